package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikobarra/proyecto-utn-datos/internal/config"
)

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		APIBaseURL:  baseURL,
		APIToken:    "test-token",
		HTTPTimeout: 5 * time.Second,
		HTTPRetries: 0,
	}
}

func storiesPayload() map[string]any {
	return map[string]any{
		"data": []map[string]any{
			{
				"uuid":         "1",
				"title":        "Noticia 1",
				"source":       "fuente1",
				"published_at": "2025-08-22T10:00:00",
				"url":          "http://example.com/1",
				"categories":   []string{"tech"},
			},
			{
				"uuid":         "2",
				"title":        "Noticia 2",
				"source":       "fuente2",
				"published_at": "2025-08-22T11:00:00",
				"url":          "http://example.org/2",
				"categories":   []string{"sports"},
			},
		},
	}
}

func TestTopStoriesSuccess(t *testing.T) {
	var gotToken, gotLocale string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.URL.Query().Get("api_token")
		gotLocale = r.URL.Query().Get("locale")
		json.NewEncoder(w).Encode(storiesPayload())
	}))
	defer server.Close()

	e := NewExtractor(testConfig(server.URL))
	ds := e.TopStories(context.Background(), "us", "en", 2)

	require.Equal(t, 2, ds.Len())
	assert.Equal(t, "test-token", gotToken)
	assert.Equal(t, "us", gotLocale)

	row := ds.Rows()[0]
	assert.Equal(t, "1", row["uuid"])
	assert.Equal(t, EndpointTopStories, row["endpoint_origen"])
	assert.Equal(t, "us", row["pais_consulta"])
	assert.Equal(t, "en", row["idioma_consulta"])
	assert.NotNil(t, row["fecha_extraccion"])
	assert.Equal(t, "2025-08-22", row["fecha_particion"])
	assert.Equal(t, 10, row["hora_particion"])
}

func TestTopStoriesMissingDataKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"metadata": "sin datos"})
	}))
	defer server.Close()

	e := NewExtractor(testConfig(server.URL))
	ds := e.TopStories(context.Background(), "us", "en", 3)

	assert.True(t, ds.Empty())
}

func TestTopStoriesServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	e := NewExtractor(testConfig(server.URL))
	ds := e.TopStories(context.Background(), "us", "en", 3)

	assert.True(t, ds.Empty())
}

func TestTopStoriesNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse all connections

	e := NewExtractor(testConfig(server.URL))
	ds := e.TopStories(context.Background(), "us", "en", 3)

	assert.True(t, ds.Empty())
}

func TestTopStoriesSkipsInvalidRecords(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"uuid": "1", "title": "Válida"},
				{"uuid": "", "title": "Sin identidad"},
			},
		})
	}))
	defer server.Close()

	e := NewExtractor(testConfig(server.URL))
	ds := e.TopStories(context.Background(), "us", "en", 5)

	require.Equal(t, 1, ds.Len())
	assert.Equal(t, "1", ds.Rows()[0]["uuid"])
}

func TestTopStoriesPaginates(t *testing.T) {
	var pagesServed []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		pagesServed = append(pagesServed, page)

		stories := make([]map[string]any, limit)
		for i := range stories {
			stories[i] = map[string]any{
				"uuid":  fmt.Sprintf("%s-%d", page, i),
				"title": "Noticia",
			}
		}
		json.NewEncoder(w).Encode(map[string]any{"data": stories})
	}))
	defer server.Close()

	e := NewExtractor(testConfig(server.URL))
	ds := e.TopStories(context.Background(), "us", "en", 150)

	assert.Equal(t, 150, ds.Len())
	assert.Equal(t, []string{"1", "2"}, pagesServed)
}

func TestSourcesSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"source_id": "fuente1", "domain": "Fuente Uno"},
				{"source_id": "fuente2", "domain": "Fuente Dos"},
			},
		})
	}))
	defer server.Close()

	e := NewExtractor(testConfig(server.URL))
	ds := e.Sources(context.Background())

	require.Equal(t, 2, ds.Len())
	row := ds.Rows()[0]
	assert.Equal(t, "fuente1", row["source_id"])
	assert.Equal(t, "Fuente Uno", row["domain"])
	assert.Equal(t, EndpointSources, row["endpoint_origen"])
}

func TestSourcesMissingDataKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"metadata": "sin datos"})
	}))
	defer server.Close()

	e := NewExtractor(testConfig(server.URL))
	ds := e.Sources(context.Background())

	assert.True(t, ds.Empty())
}
