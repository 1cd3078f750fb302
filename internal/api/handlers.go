package api

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/nikobarra/proyecto-utn-datos/internal/config"
	"github.com/nikobarra/proyecto-utn-datos/internal/logger"
	"github.com/nikobarra/proyecto-utn-datos/internal/pipeline"
	"github.com/nikobarra/proyecto-utn-datos/internal/table"
)

// Handlers serves read-only views over the data lake.
type Handlers struct {
	config *config.Config
	store  *table.Store
}

func NewHandlers(cfg *config.Config) *Handlers {
	return &Handlers{
		config: cfg,
		store:  table.NewStore(),
	}
}

// HealthCheck handles GET /api/v1/health
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// NewsCount handles GET /api/v1/news-count, returning the gold aggregate.
func (h *Handlers) NewsCount(c *fiber.Ctx) error {
	path := pipeline.AggregatedPath(h.config.DataLakeBase)

	ds, err := h.store.Read(path)
	if err != nil {
		logger.Get().Error().Err(err).Str("path", path).Msg("Error reading aggregated table")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read aggregated table",
		})
	}

	return c.JSON(fiber.Map{
		"total": ds.Len(),
		"items": ds.Rows(),
	})
}

// Runs handles GET /api/v1/runs, returning persistence metadata newest
// first.
func (h *Handlers) Runs(c *fiber.Ctx) error {
	records, err := pipeline.ListMetadata(pipeline.LogsPath(h.config.DataLakeBase))
	if err != nil {
		logger.Get().Error().Err(err).Msg("Error listing run metadata")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list run metadata",
		})
	}

	return c.JSON(fiber.Map{
		"total": len(records),
		"items": records,
	})
}
