package aggregate

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/nikobarra/proyecto-utn-datos/internal/logger"
	"github.com/nikobarra/proyecto-utn-datos/internal/table"
)

// Aggregator builds the gold layer: per-source news counts.
type Aggregator struct {
	store *table.Store
}

// NewAggregator creates an Aggregator backed by the given store.
func NewAggregator(store *table.Store) *Aggregator {
	return &Aggregator{store: store}
}

// Aggregate groups the enriched dataset by fuente_nombre, counting rows
// with a uuid per group, and persists the result at outputPath with mode
// overwrite. Rows without a source name are excluded from grouping. Group
// ordering is not guaranteed. Returns the number of groups written.
func (a *Aggregator) Aggregate(ctx context.Context, enriched *table.Dataset, outputPath string) int {
	log := logger.Get()

	if enriched == nil || enriched.Empty() {
		log.Warn().Str("path", outputPath).Msg("Enriched dataset is empty, nothing to aggregate")
		return 0
	}

	counted := lo.Filter(enriched.Rows(), func(row table.Row, _ int) bool {
		name, _ := row["fuente_nombre"].(string)
		uuid := fmt.Sprint(row["uuid"])
		return name != "" && uuid != "" && uuid != "<nil>"
	})

	counts := lo.CountValuesBy(counted, func(row table.Row) string {
		name, _ := row["fuente_nombre"].(string)
		return name
	})

	out := table.New("fuente_nombre", "cantidad_noticias")
	for name, count := range counts {
		out.Append(table.Row{
			"fuente_nombre":     name,
			"cantidad_noticias": count,
		})
	}

	if err := a.store.Save(out, outputPath, table.ModeOverwrite); err != nil {
		log.Error().Err(err).Str("path", outputPath).Msg("Failed to persist aggregated dataset")
		return 0
	}

	log.Info().
		Int("groups", out.Len()).
		Str("path", outputPath).
		Msg("Aggregated dataset persisted")
	return out.Len()
}
