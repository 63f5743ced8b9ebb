package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"cts/internal/domain"
)

// Save writes the run record to the configured JSON output file. The
// per-case results are summarized in output and not stored separately.
func (s *JSONStorage) Save(output *domain.RunOutput, _ []domain.CaseResult) error {
	return s.SaveOutput(output)
}

// Load reads the last run record from the configured JSON output file.
func (s *JSONStorage) Load() (*domain.RunOutput, error) {
	path := s.cfg.GetOutputPath()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read results file: %w", err)
	}
	var output domain.RunOutput
	if err := json.Unmarshal(data, &output); err != nil {
		return nil, fmt.Errorf("parse results: %w", err)
	}
	return &output, nil
}

// SaveOutput writes the full output to the configured JSON file.
func (s *JSONStorage) SaveOutput(output *domain.RunOutput) error {
	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	path := s.cfg.GetOutputPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}
