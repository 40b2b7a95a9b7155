// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/goal-engine/pkg/types"
)

const exportLimit = 100000

// ExportYAML writes the corpus (optionally restricted to one category) to
// corpusDir/index/export.yaml.
func (s *Store) ExportYAML(ctx context.Context, category types.PassageCategory) error {
	passages, err := s.exportPassages(ctx, category)
	if err != nil {
		return err
	}

	path := filepath.Join(s.corpusDir, indexDir, "export.yaml")
	data, err := yaml.Marshal(passages)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ExportJSON writes the corpus (optionally restricted to one category) to
// corpusDir/index/export.json.
func (s *Store) ExportJSON(ctx context.Context, category types.PassageCategory) error {
	passages, err := s.exportPassages(ctx, category)
	if err != nil {
		return err
	}

	path := filepath.Join(s.corpusDir, indexDir, "export.json")
	data, err := json.MarshalIndent(passages, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *Store) exportPassages(ctx context.Context, category types.PassageCategory) ([]types.ReferencePassage, error) {
	passages, err := s.Search(ctx, "", exportLimit, category)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}
	return passages, nil
}
