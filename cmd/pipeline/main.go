package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/nikobarra/proyecto-utn-datos/internal/config"
	"github.com/nikobarra/proyecto-utn-datos/internal/logger"
	"github.com/nikobarra/proyecto-utn-datos/internal/pipeline"
)

func main() {
	// Load and validate configuration
	cfg := config.Load()

	// Initialize logger
	if err := logger.Init(logger.Config{
		Level:  cfg.LogLevel,
		Output: cfg.LogFile,
		Pretty: cfg.LogFile == "",
	}); err != nil {
		panic(err)
	}

	log := logger.Get()
	log.Info().Msg("Starting news pipeline...")

	p := pipeline.New(cfg)
	defer func() {
		if err := p.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing pipeline")
		}
	}()

	result := p.Run(context.Background())

	printSummary(cfg, result)
	// A degraded stage shows as a zero count, not a process failure.
}

func printSummary(cfg *config.Config, result pipeline.Result) {
	line := strings.Repeat("=", 60)

	fmt.Println(line)
	fmt.Println("RESULTADOS DEL PIPELINE DE NOTICIAS")
	fmt.Println(line)
	fmt.Printf("Noticias extraídas:   %d\n", result.TopStories)
	fmt.Printf("Fuentes extraídas:    %d\n", result.Sources)
	fmt.Printf("Noticias enriquecidas: %d\n", result.Enriched)
	fmt.Printf("Fuentes agregadas:    %d\n", result.AggregatedGroups)
	fmt.Println()
	fmt.Println("Datos guardados en:")
	fmt.Printf("- Bronze noticias: %s\n", pipeline.TopStoriesPath(cfg.DataLakeBase))
	fmt.Printf("- Bronze fuentes:  %s\n", pipeline.SourcesPath(cfg.DataLakeBase))
	fmt.Printf("- Silver:          %s\n", pipeline.EnrichedPath(cfg.DataLakeBase))
	fmt.Printf("- Gold:            %s\n", pipeline.AggregatedPath(cfg.DataLakeBase))
	fmt.Printf("- Logs:            %s\n", pipeline.LogsPath(cfg.DataLakeBase))
	fmt.Println(line)
}
