package models

// Source represents one publisher as returned by the sources endpoint.
type Source struct {
	SourceID   string   `json:"source_id" validate:"required"`
	Domain     string   `json:"domain" validate:"required"`
	Language   *string  `json:"language,omitempty"`
	Locale     *string  `json:"locale,omitempty"`
	Categories []string `json:"categories,omitempty"`
}
