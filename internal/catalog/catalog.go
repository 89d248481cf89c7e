package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
	"trivia-service/internal/domain"
)

//go:embed default.yaml
var defaultCatalog []byte

type document struct {
	Subjects []domain.Subject `yaml:"subjects"`
}

// Default returns the built-in subject catalog.
func Default() ([]domain.Subject, error) {
	return Parse(defaultCatalog)
}

// LoadFile reads a catalog in the same YAML shape as the built-in one.
func LoadFile(path string) ([]domain.Subject, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) ([]domain.Subject, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	seen := make(map[string]struct{}, len(doc.Subjects))
	for _, s := range doc.Subjects {
		if _, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("duplicate subject %q", s.Name)
		}
		seen[s.Name] = struct{}{}
		if err := s.Validate(); err != nil {
			return nil, err
		}
	}
	return doc.Subjects, nil
}

// Index keys subjects by name.
func Index(subjects []domain.Subject) map[string]domain.Subject {
	out := make(map[string]domain.Subject, len(subjects))
	for _, s := range subjects {
		out[s.Name] = s
	}
	return out
}
