package models

// Story represents one news item as returned by the top-stories endpoint.
// Optional fields are pointers so a missing value is distinguishable from
// an empty one.
type Story struct {
	UUID           string   `json:"uuid" validate:"required"`
	Title          string   `json:"title" validate:"required"`
	Description    *string  `json:"description,omitempty"`
	Keywords       *string  `json:"keywords,omitempty"`
	Snippet        *string  `json:"snippet,omitempty"`
	URL            *string  `json:"url,omitempty" validate:"omitempty,url"`
	ImageURL       *string  `json:"image_url,omitempty" validate:"omitempty,url"`
	Language       *string  `json:"language,omitempty"`
	PublishedAt    *string  `json:"published_at,omitempty"`
	Source         *string  `json:"source,omitempty"`
	Categories     []string `json:"categories,omitempty"`
	RelevanceScore *float64 `json:"relevance_score,omitempty"`
	Locale         *string  `json:"locale,omitempty"`
}
