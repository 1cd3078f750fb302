package table

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nikobarra/proyecto-utn-datos/internal/logger"
)

// Save modes.
const (
	ModeAppend    = "append"
	ModeOverwrite = "overwrite"
)

const (
	manifestFile = "_manifest.json"
	segmentsDir  = "segments"
	formatName   = "segment_lake"
)

// Store persists datasets as a log of immutable JSON segments referenced by
// a manifest. Overwrite swaps the manifest atomically, so concurrent
// readers always see a complete table version.
//
// Operational constraint: only one writer per table path. Concurrent runs
// against the same data lake root are unsafe and must be serialized by the
// caller.
type Store struct {
	mu sync.Mutex
}

// NewStore creates a Store.
func NewStore() *Store {
	return &Store{}
}

type manifest struct {
	Format    string    `json:"format"`
	Columns   []string  `json:"columns"`
	Segments  []segment `json:"segments"`
	UpdatedAt time.Time `json:"updated_at"`
}

type segment struct {
	ID        string            `json:"id"`
	File      string            `json:"file"`
	Rows      int               `json:"rows"`
	Partition map[string]string `json:"partition,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

type segmentBody struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// Save persists the dataset at path. An empty dataset is a no-op with a
// warning. Every column is normalized before writing. Partition columns
// missing from the schema are skipped with a warning instead of failing
// the write.
func (s *Store) Save(ds *Dataset, path, mode string, partitionBy ...string) error {
	log := logger.Get()

	if ds == nil || ds.Empty() {
		log.Warn().Str("path", path).Msg("Empty dataset, nothing saved")
		return nil
	}
	if mode != ModeAppend && mode != ModeOverwrite {
		return fmt.Errorf("invalid save mode %q for %s", mode, path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	clean := ds.Normalize()
	partCols := s.resolvePartitionColumns(clean, path, partitionBy)

	if err := os.MkdirAll(filepath.Join(path, segmentsDir), 0755); err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to create table directory")
		return fmt.Errorf("failed to create table directory %s: %w", path, err)
	}

	newSegments, err := s.writeSegments(clean, path, partCols)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to write segments")
		return err
	}

	man := manifest{
		Format:    formatName,
		Columns:   clean.Columns(),
		Segments:  newSegments,
		UpdatedAt: time.Now().UTC(),
	}

	var stale []segment
	if prev, err := s.readManifest(path); err == nil && prev != nil {
		if mode == ModeAppend {
			man.Columns = unionColumns(prev.Columns, man.Columns)
			man.Segments = append(prev.Segments, newSegments...)
		} else {
			stale = prev.Segments
		}
	}

	if err := s.writeManifest(path, man); err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to write manifest")
		return err
	}

	if mode == ModeOverwrite {
		s.removeStaleSegments(path, stale, man.Segments)
	}

	log.Info().
		Str("path", path).
		Str("mode", mode).
		Int("records", clean.Len()).
		Int("segments", len(newSegments)).
		Strs("partition_by", partCols).
		Msg("Dataset saved")

	return nil
}

// Read returns the full dataset stored at path. A path with no manifest
// reads as an empty dataset.
func (s *Store) Read(path string) (*Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	man, err := s.readManifest(path)
	if err != nil {
		return nil, err
	}
	if man == nil {
		return New(), nil
	}

	out := New(man.Columns...)
	for _, seg := range man.Segments {
		body, err := s.readSegment(filepath.Join(path, seg.File))
		if err != nil {
			return nil, err
		}
		for _, row := range body.Rows {
			out.Append(row)
		}
	}
	return out, nil
}

func (s *Store) resolvePartitionColumns(ds *Dataset, path string, partitionBy []string) []string {
	var available, dropped []string
	for _, col := range partitionBy {
		if ds.HasColumn(col) {
			available = append(available, col)
		} else {
			dropped = append(dropped, col)
		}
	}
	if len(dropped) > 0 {
		logger.Warn().
			Str("path", path).
			Strs("missing_columns", dropped).
			Msg("Partition columns not found in dataset, skipping them")
	}
	return available
}

// writeSegments groups rows by partition value and writes one immutable
// segment file per group.
func (s *Store) writeSegments(ds *Dataset, path string, partCols []string) ([]segment, error) {
	groups := map[string][]Row{}
	var order []string
	for _, row := range ds.Rows() {
		key := partitionKey(row, partCols)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], row)
	}

	var segments []segment
	for _, key := range order {
		rows := groups[key]
		id := uuid.NewString()

		relDir := segmentsDir
		if key != "" {
			relDir = filepath.Join(segmentsDir, key)
			if err := os.MkdirAll(filepath.Join(path, relDir), 0755); err != nil {
				return nil, fmt.Errorf("failed to create partition directory: %w", err)
			}
		}
		relFile := filepath.Join(relDir, id+".json")

		body := segmentBody{Columns: ds.Columns(), Rows: rows}
		data, err := json.MarshalIndent(body, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal segment: %w", err)
		}
		if err := os.WriteFile(filepath.Join(path, relFile), data, 0644); err != nil {
			return nil, fmt.Errorf("failed to write segment: %w", err)
		}

		segments = append(segments, segment{
			ID:        id,
			File:      relFile,
			Rows:      len(rows),
			Partition: partitionValues(rows[0], partCols),
			CreatedAt: time.Now().UTC(),
		})
	}
	return segments, nil
}

func (s *Store) readManifest(path string) (*manifest, error) {
	data, err := os.ReadFile(filepath.Join(path, manifestFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest at %s: %w", path, err)
	}
	var man manifest
	if err := json.Unmarshal(data, &man); err != nil {
		return nil, fmt.Errorf("failed to parse manifest at %s: %w", path, err)
	}
	return &man, nil
}

// writeManifest replaces the manifest through a temp file rename, keeping
// the swap atomic for concurrent readers.
func (s *Store) writeManifest(path string, man manifest) error {
	data, err := json.MarshalIndent(man, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	tmp, err := os.CreateTemp(path, manifestFile+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp manifest: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write temp manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp manifest: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(path, manifestFile)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to swap manifest: %w", err)
	}
	return nil
}

func (s *Store) readSegment(file string) (*segmentBody, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read segment %s: %w", file, err)
	}
	var body segmentBody
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("failed to parse segment %s: %w", file, err)
	}
	return &body, nil
}

// removeStaleSegments deletes segment files dropped by an overwrite.
// Failures are logged and ignored, the manifest no longer references them.
func (s *Store) removeStaleSegments(path string, stale, live []segment) {
	liveFiles := make(map[string]bool, len(live))
	for _, seg := range live {
		liveFiles[seg.File] = true
	}
	for _, seg := range stale {
		if liveFiles[seg.File] {
			continue
		}
		if err := os.Remove(filepath.Join(path, seg.File)); err != nil && !os.IsNotExist(err) {
			logger.Warn().Err(err).Str("segment", seg.File).Msg("Failed to remove stale segment")
		}
	}
}

func partitionKey(row Row, partCols []string) string {
	if len(partCols) == 0 {
		return ""
	}
	parts := make([]string, 0, len(partCols))
	for _, col := range partCols {
		parts = append(parts, fmt.Sprintf("%s=%s", col, url.PathEscape(fmt.Sprint(row[col]))))
	}
	return filepath.Join(parts...)
}

func partitionValues(row Row, partCols []string) map[string]string {
	if len(partCols) == 0 {
		return nil
	}
	values := make(map[string]string, len(partCols))
	for _, col := range partCols {
		values[col] = fmt.Sprint(row[col])
	}
	return values
}

func unionColumns(a, b []string) []string {
	seen := make(map[string]bool, len(a))
	out := append([]string{}, a...)
	for _, col := range a {
		seen[col] = true
	}
	for _, col := range b {
		if !seen[col] {
			seen[col] = true
			out = append(out, col)
		}
	}
	return out
}
