package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/nikobarra/proyecto-utn-datos/internal/config"
	"github.com/nikobarra/proyecto-utn-datos/internal/middleware"
)

// SetupRoutes configures all the routes for the lake API
func SetupRoutes(app *fiber.App, cfg *config.Config) {
	handlers := NewHandlers(cfg)

	app.Use(recover.New())
	app.Use(middleware.RequestLogger())

	api := app.Group("/api/v1")

	api.Get("/health", handlers.HealthCheck)
	api.Get("/news-count", handlers.NewsCount)
	api.Get("/runs", handlers.Runs)

	// 404 Handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Endpoint not found",
		})
	})
}
