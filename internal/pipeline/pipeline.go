package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nikobarra/proyecto-utn-datos/internal/aggregate"
	"github.com/nikobarra/proyecto-utn-datos/internal/cache"
	"github.com/nikobarra/proyecto-utn-datos/internal/config"
	"github.com/nikobarra/proyecto-utn-datos/internal/enrich"
	"github.com/nikobarra/proyecto-utn-datos/internal/extract"
	"github.com/nikobarra/proyecto-utn-datos/internal/logger"
	"github.com/nikobarra/proyecto-utn-datos/internal/mirror"
	"github.com/nikobarra/proyecto-utn-datos/internal/table"
)

// Pipeline stages, logged as the run advances.
type stage string

const (
	stageInit          stage = "init"
	stageExtracting    stage = "extracting"
	stageRawPersisting stage = "raw_persisting"
	stageEnriching     stage = "enriching"
	stageAggregating   stage = "aggregating"
	stageDone          stage = "done"
)

// Table names within the lake.
const (
	TableTopStories = "top_stories"
	TableSources    = "sources"
	TableEnriched   = "top_stories_enriched"
	TableAggregated = "news_count_by_source"
)

// Lake layout helpers, all relative to the lake base directory.
func TopStoriesPath(base string) string {
	return filepath.Join(base, "bronze", "thenewsapi", TableTopStories)
}
func SourcesPath(base string) string {
	return filepath.Join(base, "bronze", "thenewsapi", TableSources)
}
func EnrichedPath(base string) string   { return filepath.Join(base, "silver", TableEnriched) }
func AggregatedPath(base string) string { return filepath.Join(base, "gold", TableAggregated) }
func LogsPath(base string) string       { return filepath.Join(base, "logs") }

// DedupTTL bounds how long a persisted story uuid stays in the dedup cache.
const DedupTTL = 30 * 24 * time.Hour

// Result summarizes one pipeline run.
type Result struct {
	TopStories       int `json:"top_stories_count"`
	Sources          int `json:"sources_count"`
	Enriched         int `json:"enriched_count"`
	AggregatedGroups int `json:"aggregated_group_count"`
}

// Pipeline sequences extraction, raw persistence, enrichment and
// aggregation. Stages run strictly one after another and each degrades to
// an empty output on failure instead of aborting the run; emptiness then
// propagates downstream. Runs against one lake root must be serialized by
// the caller.
type Pipeline struct {
	cfg        *config.Config
	store      *table.Store
	extractor  *extract.Extractor
	enricher   *enrich.Enricher
	aggregator *aggregate.Aggregator
	dedup      cache.Cache
	mirror     *mirror.Mirror
}

// New wires a Pipeline from configuration. The dedup cache uses Redis when
// REDIS_URL is set and an in-process map otherwise; the S3 mirror stays off
// unless credentials are configured.
func New(cfg *config.Config) *Pipeline {
	log := logger.Get()
	store := table.NewStore()

	var dedup cache.Cache
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedisCache(cfg.RedisURL, cfg.RedisPrefix)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, falling back to in-memory dedup cache")
			dedup = cache.NewMemoryCache()
		} else {
			dedup = redisCache
		}
	} else {
		dedup = cache.NewMemoryCache()
	}

	var m *mirror.Mirror
	if cfg.R2Endpoint != "" && cfg.R2AccessKey != "" {
		var err error
		m, err = mirror.New(context.Background(), cfg)
		if err != nil {
			log.Warn().Err(err).Msg("Object store mirror unavailable, continuing without it")
			m = nil
		}
	}

	return &Pipeline{
		cfg:        cfg,
		store:      store,
		extractor:  extract.NewExtractor(cfg),
		enricher:   enrich.NewEnricher(store),
		aggregator: aggregate.NewAggregator(store),
		dedup:      dedup,
		mirror:     m,
	}
}

// Close releases the dedup cache connection.
func (p *Pipeline) Close() error {
	return p.dedup.Close()
}

// Run executes the full pipeline and reports per-stage counts. It never
// fails: a degraded stage produces zero counts and the JSON metadata logs
// hold the details.
func (p *Pipeline) Run(ctx context.Context) Result {
	log := logger.Get()
	start := time.Now()
	base := p.cfg.DataLakeBase

	p.logStage(stageInit)
	if err := p.createLakeDirectories(base); err != nil {
		log.Error().Err(err).Msg("Failed to prepare data lake directories")
	}

	var result Result

	// Bronze: top stories.
	p.logStage(stageExtracting)
	stories := p.extractor.TopStories(ctx, p.cfg.DefaultCountry, p.cfg.DefaultLanguage, p.cfg.DefaultLimit)
	result.TopStories = stories.Len()

	p.logStage(stageRawPersisting)
	p.persistTopStories(ctx, base, stories)

	// Bronze: sources.
	sources := p.extractor.Sources(ctx)
	result.Sources = sources.Len()
	if !sources.Empty() {
		// Full extraction: the catalog is replaced each run. The category
		// partition column only exists on some API plans, the store drops
		// it with a warning otherwise.
		if err := p.store.Save(sources, SourcesPath(base), table.ModeOverwrite, "category"); err == nil {
			writeMetadata(LogsPath(base), TableSources, sources.Len(), SourcesPath(base), table.ModeOverwrite)
		}
	}

	// Silver.
	p.logStage(stageEnriching)
	enriched := p.enricher.Enrich(ctx, TopStoriesPath(base), SourcesPath(base), EnrichedPath(base))
	result.Enriched = enriched.Len()
	if !enriched.Empty() {
		writeMetadata(LogsPath(base), TableEnriched, enriched.Len(), EnrichedPath(base), table.ModeOverwrite)
	}

	// Gold.
	p.logStage(stageAggregating)
	result.AggregatedGroups = p.aggregator.Aggregate(ctx, enriched, AggregatedPath(base))
	if result.AggregatedGroups > 0 {
		writeMetadata(LogsPath(base), TableAggregated, result.AggregatedGroups, AggregatedPath(base), table.ModeOverwrite)
		p.mirrorGold(ctx, base)
	}

	p.logStage(stageDone)
	log.Info().
		Int("top_stories", result.TopStories).
		Int("sources", result.Sources).
		Int("enriched", result.Enriched).
		Int("aggregated_groups", result.AggregatedGroups).
		Dur("duration", time.Since(start)).
		Msg("Pipeline run finished")
	return result
}

// persistTopStories saves the raw news dataset, filtering records already
// persisted on earlier runs when the raw layer appends.
func (p *Pipeline) persistTopStories(ctx context.Context, base string, stories *table.Dataset) {
	log := logger.Get()

	if stories.Empty() {
		log.Warn().Msg("No top stories extracted this run")
		return
	}

	toSave := stories
	if p.cfg.RawSaveMode == config.ModeAppend {
		toSave = p.filterSeen(ctx, stories)
		if toSave.Empty() {
			log.Info().Msg("All extracted stories already persisted, skipping raw save")
			return
		}
	}

	err := p.store.Save(toSave, TopStoriesPath(base), p.cfg.RawSaveMode, "fecha_particion", "hora_particion")
	if err != nil {
		return
	}
	writeMetadata(LogsPath(base), TableTopStories, toSave.Len(), TopStoriesPath(base), p.cfg.RawSaveMode)

	for _, row := range toSave.Rows() {
		key := cache.Key(fmt.Sprint(row["uuid"]))
		if err := p.dedup.MarkSeen(ctx, key, DedupTTL); err != nil {
			log.Warn().Err(err).Msg("Failed to mark story as persisted in dedup cache")
		}
	}
}

// filterSeen drops stories whose uuid was persisted on a previous run.
// Cache errors keep the record, duplicate rows are cheaper than lost ones.
func (p *Pipeline) filterSeen(ctx context.Context, stories *table.Dataset) *table.Dataset {
	log := logger.Get()
	out := table.New(stories.Columns()...)
	skipped := 0

	for _, row := range stories.Rows() {
		key := cache.Key(fmt.Sprint(row["uuid"]))
		seen, err := p.dedup.IsSeen(ctx, key)
		if err != nil {
			log.Warn().Err(err).Msg("Dedup cache lookup failed, keeping record")
			seen = false
		}
		if seen {
			skipped++
			continue
		}
		out.Append(row)
	}

	if skipped > 0 {
		log.Info().Int("skipped", skipped).Msg("Skipped stories already persisted on earlier runs")
	}
	return out
}

func (p *Pipeline) mirrorGold(ctx context.Context, base string) {
	if p.mirror == nil {
		return
	}
	log := logger.Get()
	if err := p.mirror.UploadDir(ctx, AggregatedPath(base), "gold/"+TableAggregated); err != nil {
		log.Warn().Err(err).Msg("Failed to mirror gold table to object store")
	}
	if err := p.mirror.UploadDir(ctx, LogsPath(base), "logs"); err != nil {
		log.Warn().Err(err).Msg("Failed to mirror metadata logs to object store")
	}
}

func (p *Pipeline) createLakeDirectories(base string) error {
	for _, dir := range []string{
		TopStoriesPath(base),
		SourcesPath(base),
		EnrichedPath(base),
		AggregatedPath(base),
		LogsPath(base),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

func (p *Pipeline) logStage(s stage) {
	logger.Get().Info().Str("stage", string(s)).Msg("Pipeline stage")
}
