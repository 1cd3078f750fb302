package extract

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"

	"github.com/nikobarra/proyecto-utn-datos/internal/config"
	"github.com/nikobarra/proyecto-utn-datos/internal/logger"
	"github.com/nikobarra/proyecto-utn-datos/internal/models"
	"github.com/nikobarra/proyecto-utn-datos/internal/table"
)

// Endpoint names tagged onto extracted rows.
const (
	EndpointTopStories = "top_stories"
	EndpointSources    = "sources"
)

// maxPageSize caps the per-request limit sent to the API.
const maxPageSize = 100

// Column orders match the raw table schemas.
var (
	storyColumns = []string{
		"uuid", "title", "description", "keywords", "snippet", "url",
		"image_url", "language", "published_at", "source", "categories",
		"relevance_score", "locale", "fecha_extraccion", "endpoint_origen",
		"pais_consulta", "idioma_consulta", "fecha_publicacion",
		"fecha_particion", "hora_particion",
	}
	sourceColumns = []string{
		"source_id", "domain", "language", "locale", "categories",
		"fecha_extraccion", "endpoint_origen",
	}
)

var publishedAtLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Extractor pulls records from the news API and converts them into tagged
// datasets. It never returns an error: every failure degrades to an empty
// dataset so callers treat it as "nothing to persist this run".
type Extractor struct {
	client   *resty.Client
	validate *validator.Validate
	baseURL  string
	apiToken string
}

// NewExtractor creates an Extractor from the pipeline configuration.
func NewExtractor(cfg *config.Config) *Extractor {
	return &Extractor{
		client: resty.New().
			SetTimeout(cfg.HTTPTimeout).
			SetRetryCount(cfg.HTTPRetries).
			SetRetryWaitTime(2 * time.Second).
			SetRetryMaxWaitTime(10 * time.Second),
		validate: validator.New(),
		baseURL:  cfg.APIBaseURL,
		apiToken: cfg.APIToken,
	}
}

type apiEnvelope struct {
	Data json.RawMessage `json:"data"`
}

// TopStories extracts up to limit top stories, paging through the endpoint
// until the limit is reached or a page comes back short.
func (e *Extractor) TopStories(ctx context.Context, country, language string, limit int) *table.Dataset {
	log := logger.Get()
	ds := table.New(storyColumns...)
	extractedAt := time.Now()

	for page := 1; ds.Len() < limit; page++ {
		pageSize := limit - ds.Len()
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}

		data, ok := e.fetchData(ctx, "/news/top", map[string]string{
			"api_token": e.apiToken,
			"locale":    country,
			"language":  language,
			"limit":     strconv.Itoa(pageSize),
			"page":      strconv.Itoa(page),
		})
		if !ok {
			break
		}

		var stories []models.Story
		if err := json.Unmarshal(data, &stories); err != nil {
			log.Error().Err(err).Msg("Failed to decode top stories payload")
			break
		}
		if len(stories) == 0 {
			break
		}

		for _, story := range stories {
			if err := e.validate.Struct(story); err != nil {
				log.Warn().Err(err).Str("uuid", story.UUID).Msg("Skipping invalid story record")
				continue
			}
			ds.Append(e.storyRow(story, country, language, extractedAt))
		}

		// A short page means the feed is exhausted.
		if len(stories) < pageSize {
			break
		}
	}

	log.Info().
		Int("records", ds.Len()).
		Str("country", country).
		Str("language", language).
		Msg("Extracted top stories")
	return ds
}

// Sources extracts the full publisher catalog in a single request.
func (e *Extractor) Sources(ctx context.Context) *table.Dataset {
	log := logger.Get()
	ds := table.New(sourceColumns...)
	extractedAt := time.Now()

	data, ok := e.fetchData(ctx, "/news/sources", map[string]string{
		"api_token": e.apiToken,
	})
	if !ok {
		return ds
	}

	var sources []models.Source
	if err := json.Unmarshal(data, &sources); err != nil {
		log.Error().Err(err).Msg("Failed to decode sources payload")
		return ds
	}

	for _, src := range sources {
		if err := e.validate.Struct(src); err != nil {
			log.Warn().Err(err).Str("source_id", src.SourceID).Msg("Skipping invalid source record")
			continue
		}
		ds.Append(e.sourceRow(src, extractedAt))
	}

	log.Info().Int("records", ds.Len()).Msg("Extracted sources")
	return ds
}

// fetchData performs one GET and returns the raw `data` array. Transport
// errors, non-2xx statuses and envelopes without a `data` key are logged
// and reported as not-ok.
func (e *Extractor) fetchData(ctx context.Context, endpoint string, params map[string]string) (json.RawMessage, bool) {
	log := logger.Get()

	resp, err := e.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParams(params).
		Get(e.baseURL + endpoint)
	if err != nil {
		log.Error().Err(err).Str("endpoint", endpoint).Msg("API request failed")
		return nil, false
	}
	if resp.StatusCode() != http.StatusOK {
		log.Error().
			Int("status", resp.StatusCode()).
			Str("endpoint", endpoint).
			Msg("Unexpected status code from API")
		return nil, false
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		log.Error().Err(err).Str("endpoint", endpoint).Msg("Failed to parse API response")
		return nil, false
	}
	if envelope.Data == nil {
		log.Error().Str("endpoint", endpoint).Msg("API response does not contain 'data'")
		return nil, false
	}
	return envelope.Data, true
}

func (e *Extractor) storyRow(story models.Story, country, language string, extractedAt time.Time) table.Row {
	row := table.Row{
		"uuid":              story.UUID,
		"title":             story.Title,
		"description":       deref(story.Description),
		"keywords":          deref(story.Keywords),
		"snippet":           deref(story.Snippet),
		"url":               deref(story.URL),
		"image_url":         deref(story.ImageURL),
		"language":          deref(story.Language),
		"published_at":      deref(story.PublishedAt),
		"source":            deref(story.Source),
		"categories":        story.Categories,
		"relevance_score":   deref(story.RelevanceScore),
		"locale":            deref(story.Locale),
		"fecha_extraccion":  extractedAt,
		"endpoint_origen":   EndpointTopStories,
		"pais_consulta":     country,
		"idioma_consulta":   language,
		"fecha_publicacion": nil,
		"fecha_particion":   nil,
		"hora_particion":    nil,
	}

	if published, ok := parsePublishedAt(deref(story.PublishedAt)); ok {
		row["fecha_publicacion"] = published
		row["fecha_particion"] = published.Format("2006-01-02")
		row["hora_particion"] = published.Hour()
	}
	return row
}

func (e *Extractor) sourceRow(src models.Source, extractedAt time.Time) table.Row {
	return table.Row{
		"source_id":        src.SourceID,
		"domain":           src.Domain,
		"language":         deref(src.Language),
		"locale":           deref(src.Locale),
		"categories":       src.Categories,
		"fecha_extraccion": extractedAt,
		"endpoint_origen":  EndpointSources,
	}
}

func parsePublishedAt(value any) (time.Time, bool) {
	str, ok := value.(string)
	if !ok || str == "" {
		return time.Time{}, false
	}
	for _, layout := range publishedAtLayouts {
		if t, err := time.Parse(layout, str); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
