package storage

import (
	"cts/internal/config"
	"cts/internal/domain"
)

// Storage persists and loads run results (e.g. for the failures viewer).
type Storage interface {
	Save(output *domain.RunOutput, results []domain.CaseResult) error
	Load() (*domain.RunOutput, error)
	// SaveOutput writes the full output (e.g. after marking failures resolved).
	SaveOutput(output *domain.RunOutput) error
}

// JSONStorage stores results in a JSON file under the configured output path.
type JSONStorage struct {
	cfg *config.Config
}

// NewJSONStorage returns a Storage that reads/writes the config's output JSON path.
func NewJSONStorage(cfg *config.Config) *JSONStorage {
	return &JSONStorage{cfg: cfg}
}

// Multi fans writes out to several stores and loads from the first.
type Multi []Storage

// Save writes to every store, stopping at the first error
func (m Multi) Save(output *domain.RunOutput, results []domain.CaseResult) error {
	for _, s := range m {
		if err := s.Save(output, results); err != nil {
			return err
		}
	}
	return nil
}

// Load reads from the first store
func (m Multi) Load() (*domain.RunOutput, error) {
	return m[0].Load()
}

// SaveOutput writes to every store, stopping at the first error
func (m Multi) SaveOutput(output *domain.RunOutput) error {
	for _, s := range m {
		if err := s.SaveOutput(output); err != nil {
			return err
		}
	}
	return nil
}
