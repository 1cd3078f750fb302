package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/nikobarra/proyecto-utn-datos/internal/logger"
)

// MetadataFormat names the physical table format in metadata records.
const MetadataFormat = "segment_lake"

// Metadata describes one successful persistence step. One JSON file is
// written per step under the lake's logs directory.
type Metadata struct {
	TableName   string `json:"table_name"`
	Timestamp   string `json:"timestamp"`
	RecordCount int    `json:"record_count"`
	FilePath    string `json:"file_path"`
	Operation   string `json:"operation"`
	Format      string `json:"format"`
}

func writeMetadata(logsDir, tableName string, recordCount int, filePath, operation string) {
	log := logger.Get()
	now := time.Now()

	meta := Metadata{
		TableName:   tableName,
		Timestamp:   now.Format(time.RFC3339),
		RecordCount: recordCount,
		FilePath:    filePath,
		Operation:   operation,
		Format:      MetadataFormat,
	}

	name := fmt.Sprintf("%s_%s.json", tableName, now.Format("20060102_150405"))
	path := filepath.Join(logsDir, name)

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		log.Error().Err(err).Str("table", tableName).Msg("Failed to marshal extraction metadata")
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to write extraction metadata")
		return
	}

	log.Info().Str("path", path).Msg("Extraction metadata saved")
}

// ListMetadata reads every metadata record under logsDir, newest first.
func ListMetadata(logsDir string) ([]Metadata, error) {
	entries, err := os.ReadDir(logsDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read logs directory %s: %w", logsDir, err)
	}

	var records []Metadata
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(logsDir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read metadata %s: %w", entry.Name(), err)
		}
		var meta Metadata
		if err := json.Unmarshal(data, &meta); err != nil {
			logger.Warn().Err(err).Str("file", entry.Name()).Msg("Skipping unparseable metadata record")
			continue
		}
		records = append(records, meta)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp > records[j].Timestamp
	})
	return records, nil
}
