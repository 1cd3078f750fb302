package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikobarra/proyecto-utn-datos/internal/config"
	"github.com/nikobarra/proyecto-utn-datos/internal/table"
)

func fakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/news/top":
			json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]any{
					{
						"uuid": "1", "title": "Noticia 1", "source": "fuente1",
						"published_at": "2025-08-22T10:00:00", "url": "http://example.com/1",
						"description": "desc 1", "categories": []string{"tech"},
					},
					{
						"uuid": "2", "title": "Noticia 2", "source": "fuente2",
						"published_at": "2025-08-22T11:00:00", "url": "http://example.org/2",
						"description": "desc 2", "categories": []string{"sports"},
					},
				},
			})
		case "/news/sources":
			json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]any{
					{"source_id": "fuente1", "domain": "Fuente Uno"},
					{"source_id": "fuente2", "domain": "Fuente Dos"},
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
}

func testConfig(t *testing.T, baseURL string) *config.Config {
	return &config.Config{
		APIBaseURL:      baseURL,
		APIToken:        "test-token",
		HTTPTimeout:     5 * time.Second,
		HTTPRetries:     0,
		DefaultCountry:  "us",
		DefaultLanguage: "en",
		DefaultLimit:    2,
		DataLakeBase:    t.TempDir(),
		RawSaveMode:     config.ModeAppend,
	}
}

func TestRunFullPipeline(t *testing.T) {
	server := fakeAPI(t)
	defer server.Close()

	cfg := testConfig(t, server.URL)
	p := New(cfg)
	defer p.Close()

	result := p.Run(context.Background())

	assert.Equal(t, 2, result.TopStories)
	assert.Equal(t, 2, result.Sources)
	assert.Equal(t, 2, result.Enriched)
	assert.Equal(t, 2, result.AggregatedGroups)

	store := table.NewStore()

	silver, err := store.Read(EnrichedPath(cfg.DataLakeBase))
	require.NoError(t, err)
	require.Equal(t, 2, silver.Len())
	assert.True(t, silver.HasColumn("fuente_nombre"))

	gold, err := store.Read(AggregatedPath(cfg.DataLakeBase))
	require.NoError(t, err)
	assert.Equal(t, 2, gold.Len())

	// One metadata record per persistence step.
	records, err := ListMetadata(LogsPath(cfg.DataLakeBase))
	require.NoError(t, err)
	assert.Len(t, records, 4)
	for _, rec := range records {
		assert.Equal(t, MetadataFormat, rec.Format)
		assert.NotZero(t, rec.RecordCount)
	}
}

func TestRunSkipsStoriesSeenOnEarlierRuns(t *testing.T) {
	server := fakeAPI(t)
	defer server.Close()

	cfg := testConfig(t, server.URL)
	p := New(cfg)
	defer p.Close()

	p.Run(context.Background())
	second := p.Run(context.Background())

	// Extraction still reports the fetched records, but the raw layer did
	// not grow.
	assert.Equal(t, 2, second.TopStories)

	store := table.NewStore()
	bronze, err := store.Read(TopStoriesPath(cfg.DataLakeBase))
	require.NoError(t, err)
	assert.Equal(t, 2, bronze.Len())
}

func TestRunDegradesToZeroCountsOnAPIFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := testConfig(t, server.URL)
	p := New(cfg)
	defer p.Close()

	result := p.Run(context.Background())

	assert.Zero(t, result.TopStories)
	assert.Zero(t, result.Sources)
	assert.Zero(t, result.Enriched)
	assert.Zero(t, result.AggregatedGroups)

	records, err := ListMetadata(LogsPath(cfg.DataLakeBase))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRunOverwriteModeReplacesRawLayer(t *testing.T) {
	server := fakeAPI(t)
	defer server.Close()

	cfg := testConfig(t, server.URL)
	cfg.RawSaveMode = config.ModeOverwrite
	p := New(cfg)
	defer p.Close()

	p.Run(context.Background())
	p.Run(context.Background())

	store := table.NewStore()
	bronze, err := store.Read(TopStoriesPath(cfg.DataLakeBase))
	require.NoError(t, err)
	assert.Equal(t, 2, bronze.Len())
}

func TestListMetadataMissingDirIsEmpty(t *testing.T) {
	records, err := ListMetadata(LogsPath(t.TempDir()))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestLakeDirectoriesCreatedOnRun(t *testing.T) {
	server := fakeAPI(t)
	defer server.Close()

	cfg := testConfig(t, server.URL)
	p := New(cfg)
	defer p.Close()

	p.Run(context.Background())

	for _, dir := range []string{
		TopStoriesPath(cfg.DataLakeBase),
		SourcesPath(cfg.DataLakeBase),
		EnrichedPath(cfg.DataLakeBase),
		AggregatedPath(cfg.DataLakeBase),
		LogsPath(cfg.DataLakeBase),
	} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
