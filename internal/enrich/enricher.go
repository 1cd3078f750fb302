package enrich

import (
	"context"
	"fmt"
	"net/url"
	"unicode/utf8"

	"github.com/samber/lo"

	"github.com/nikobarra/proyecto-utn-datos/internal/logger"
	"github.com/nikobarra/proyecto-utn-datos/internal/table"
)

// DescriptionPlaceholder fills stories that arrive without a description.
const DescriptionPlaceholder = "Sin descripción"

// ShortTitleThreshold is the exclusive rune-count bound below which a title
// counts as short.
const ShortTitleThreshold = 50

// Enricher builds the silver layer: deduplicated news joined with their
// publisher catalog plus derived columns.
type Enricher struct {
	store *table.Store
}

// NewEnricher creates an Enricher backed by the given store.
func NewEnricher(store *table.Store) *Enricher {
	return &Enricher{store: store}
}

// Enrich reads the raw news and sources tables, cleans and joins them, and
// persists the result at outputPath with mode overwrite. Any failure is
// logged and degrades to an empty dataset; nothing partial is written.
func (e *Enricher) Enrich(ctx context.Context, rawNewsPath, rawSourcesPath, outputPath string) *table.Dataset {
	log := logger.Get()

	news, err := e.store.Read(rawNewsPath)
	if err != nil {
		log.Error().Err(err).Str("path", rawNewsPath).Msg("Failed to read raw news")
		return table.New()
	}
	if news.Empty() {
		log.Warn().Str("path", rawNewsPath).Msg("Raw news table is empty, nothing to enrich")
		return table.New()
	}

	// Deduplicate by uuid, keeping the first occurrence.
	before := news.Len()
	rows := lo.UniqBy(news.Rows(), func(row table.Row) string {
		return fmt.Sprint(row["uuid"])
	})
	if removed := before - len(rows); removed > 0 {
		log.Info().Int("removed", removed).Msg("Removed duplicate news records")
	}

	deduped := table.New(news.Columns()...)
	for _, row := range rows {
		deduped.Append(row)
	}

	deduped.Rename("source", "fuente_id")
	deduped.EnsureColumn("es_titular_corto")
	deduped.EnsureColumn("dominio_fuente")
	deduped.EnsureColumn("fuente_nombre")

	for _, row := range deduped.Rows() {
		title, _ := row["title"].(string)
		row["es_titular_corto"] = utf8.RuneCountInString(title) < ShortTitleThreshold

		if desc, _ := row["description"].(string); desc == "" {
			row["description"] = DescriptionPlaceholder
		}

		row["dominio_fuente"] = hostOf(row["url"])
	}

	sourceNames, err := e.sourceNames(rawSourcesPath)
	if err != nil {
		log.Error().Err(err).Str("path", rawSourcesPath).Msg("Failed to read raw sources")
		return table.New()
	}

	// Left-outer join: every news row survives, unmatched rows keep a null
	// fuente_nombre.
	for _, row := range deduped.Rows() {
		if name, ok := sourceNames[fmt.Sprint(row["fuente_id"])]; ok {
			row["fuente_nombre"] = name
		} else {
			row["fuente_nombre"] = nil
		}
	}

	if err := e.store.Save(deduped, outputPath, table.ModeOverwrite, "fecha_particion"); err != nil {
		log.Error().Err(err).Str("path", outputPath).Msg("Failed to persist enriched dataset")
		return table.New()
	}

	log.Info().
		Int("records", deduped.Len()).
		Str("path", outputPath).
		Msg("Enriched dataset persisted")
	return deduped
}

// sourceNames loads the sources table and maps fuente_id to fuente_nombre.
func (e *Enricher) sourceNames(path string) (map[string]string, error) {
	sources, err := e.store.Read(path)
	if err != nil {
		return nil, err
	}
	sources.Rename("source_id", "fuente_id")
	sources.Rename("domain", "fuente_nombre")

	names := make(map[string]string, sources.Len())
	for _, row := range sources.Select("fuente_id", "fuente_nombre").Rows() {
		id := fmt.Sprint(row["fuente_id"])
		if _, seen := names[id]; !seen {
			names[id] = fmt.Sprint(row["fuente_nombre"])
		}
	}
	return names, nil
}

// hostOf extracts the network-location component of a URL value, nil when
// the value is missing or unparseable.
func hostOf(value any) any {
	raw, _ := value.(string)
	if raw == "" {
		return nil
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return nil
	}
	return parsed.Host
}
