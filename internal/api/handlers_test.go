package api

import (
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikobarra/proyecto-utn-datos/internal/config"
	"github.com/nikobarra/proyecto-utn-datos/internal/pipeline"
	"github.com/nikobarra/proyecto-utn-datos/internal/table"
)

func testApp(t *testing.T) (*fiber.App, *config.Config) {
	t.Helper()
	cfg := &config.Config{DataLakeBase: t.TempDir()}
	app := fiber.New()
	SetupRoutes(app, cfg)
	return app, cfg
}

func TestHealthCheck(t *testing.T) {
	app, _ := testApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestNewsCountServesGoldTable(t *testing.T) {
	app, cfg := testApp(t)

	gold := table.New("fuente_nombre", "cantidad_noticias")
	gold.Append(table.Row{"fuente_nombre": "Fuente Uno", "cantidad_noticias": 2})
	store := table.NewStore()
	require.NoError(t, store.Save(gold, pipeline.AggregatedPath(cfg.DataLakeBase), table.ModeOverwrite))

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/news-count", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Total int              `json:"total"`
		Items []map[string]any `json:"items"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, 1, body.Total)
	assert.Equal(t, "Fuente Uno", body.Items[0]["fuente_nombre"])
}

func TestNewsCountEmptyLake(t *testing.T) {
	app, _ := testApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/news-count", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Zero(t, body.Total)
}

func TestRunsListsMetadata(t *testing.T) {
	app, cfg := testApp(t)

	logsDir := pipeline.LogsPath(cfg.DataLakeBase)
	require.NoError(t, os.MkdirAll(logsDir, 0755))
	meta := pipeline.Metadata{
		TableName:   "top_stories",
		Timestamp:   "2025-08-22T10:00:00Z",
		RecordCount: 2,
		Operation:   "append",
		Format:      pipeline.MetadataFormat,
	}
	data, err := json.Marshal(meta)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(logsDir, "top_stories_20250822_100000.json"), data, 0644))

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/runs", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Total int                 `json:"total"`
		Items []pipeline.Metadata `json:"items"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, 1, body.Total)
	assert.Equal(t, "top_stories", body.Items[0].TableName)
}

func TestUnknownRouteReturns404(t *testing.T) {
	app, _ := testApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/nope", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
