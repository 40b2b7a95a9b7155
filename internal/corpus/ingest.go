// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package corpus

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/goal-engine/pkg/types"
)

// validCategories is the set of accepted PassageCategory values.
var validCategories = map[types.PassageCategory]bool{
	types.CategoryOccupation:            true,
	types.CategoryStandard:              true,
	types.CategoryEmployabilitySkill:    true,
	types.CategoryPostsecondaryTemplate: true,
	types.CategoryAnnualGoalTemplate:    true,
	types.CategoryObjectiveTemplate:     true,
	types.CategoryTransitionService:     true,
	types.CategoryLegalReference:        true,
}

// SeedPassage is one passage record in a corpus source file.
type SeedPassage struct {
	Category types.PassageCategory `yaml:"category"`
	Content  string                `yaml:"content"`
}

// SeedFile is the shape of a corpus source file: one provenance source and
// its passages.
type SeedFile struct {
	Source   string        `yaml:"source"`
	Passages []SeedPassage `yaml:"passages"`
}

// IngestSummary holds counts from a corpus seeding run.
type IngestSummary struct {
	Seeded  int
	Updated int
	Skipped int
	Failed  int
}

// Total returns the number of source files processed.
func (s IngestSummary) Total() int {
	return s.Seeded + s.Updated + s.Skipped + s.Failed
}

// Ingest reads seed YAML files from corpusDir/sources/ and populates the
// passage index. Unchanged files are skipped on subsequent runs; changed
// files have their passages replaced wholesale.
func (s *Store) Ingest(ctx context.Context, w io.Writer) (IngestSummary, error) {
	srcDir := filepath.Join(s.corpusDir, sourcesDir)

	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return IngestSummary{}, fmt.Errorf("reading sources directory %s: %w", srcDir, err)
	}

	var summary IngestSummary

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || (!strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml")) {
			continue
		}

		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		info, err := entry.Info()
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", name, err)
			summary.Failed++
			continue
		}
		modTime := info.ModTime().UTC().Format(time.RFC3339Nano)

		// Skip files unchanged since the last seeding run.
		var storedModTime string
		err = s.db.QueryRowContext(ctx,
			`SELECT file_mod_time FROM seed_status WHERE seed_file = ?`, name,
		).Scan(&storedModTime)

		if err == nil && storedModTime == modTime {
			fmt.Fprintf(w, "skipped %s\n", name)
			summary.Skipped++
			continue
		}

		isUpdate := err == nil

		data, err := os.ReadFile(filepath.Join(srcDir, name))
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", name, err)
			summary.Failed++
			continue
		}

		var seed SeedFile
		if err := yaml.Unmarshal(data, &seed); err != nil {
			fmt.Fprintf(w, "failed  %s: parse error: %v\n", name, err)
			summary.Failed++
			continue
		}

		if err := s.ingestFile(ctx, name, &seed, modTime, isUpdate); err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", name, err)
			summary.Failed++
			continue
		}

		if isUpdate {
			fmt.Fprintf(w, "updated %s (%d passages)\n", name, len(seed.Passages))
			summary.Updated++
		} else {
			fmt.Fprintf(w, "seeded  %s (%d passages)\n", name, len(seed.Passages))
			summary.Seeded++
		}
	}

	fmt.Fprintf(w, "\nseeded: %d, updated: %d, skipped: %d, failed: %d\n",
		summary.Seeded, summary.Updated, summary.Skipped, summary.Failed)

	return summary, nil
}

func (s *Store) ingestFile(ctx context.Context, seedFile string, seed *SeedFile, modTime string, isUpdate bool) error {
	if seed.Source == "" {
		return fmt.Errorf("missing source name")
	}

	if errs := validatePassages(seed.Passages); len(errs) > 0 {
		return fmt.Errorf("validation errors: %s", strings.Join(errs, "; "))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// Replace old passages if updating.
	if isUpdate {
		if _, err := tx.ExecContext(ctx, `DELETE FROM passages WHERE seed_file = ?`, seedFile); err != nil {
			return fmt.Errorf("deleting old passages: %w", err)
		}
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO passages (id, content, source, category, seed_file)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range seed.Passages {
		id := stableID(seed.Source, string(p.Category), p.Content)
		if _, err := stmt.ExecContext(ctx, id, p.Content, seed.Source, string(p.Category), seedFile); err != nil {
			return fmt.Errorf("inserting passage %s: %w", id, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO seed_status (seed_file, file_mod_time) VALUES (?, ?)
		 ON CONFLICT(seed_file) DO UPDATE SET file_mod_time=excluded.file_mod_time`,
		seedFile, modTime,
	)
	if err != nil {
		return fmt.Errorf("updating seed status: %w", err)
	}

	return tx.Commit()
}

// validatePassages checks category and content on every seed passage.
func validatePassages(passages []SeedPassage) []string {
	var errs []string
	for i, p := range passages {
		if !validCategories[p.Category] {
			errs = append(errs, fmt.Sprintf("passage %d: invalid category %q", i, p.Category))
		}
		if strings.TrimSpace(p.Content) == "" {
			errs = append(errs, fmt.Sprintf("passage %d: empty content", i))
		}
	}
	return errs
}

// stableID generates a deterministic ID from source, category, and content.
// The ID is the first 12 hex characters of SHA-256(source + category + content).
func stableID(source, category, content string) string {
	h := sha256.New()
	h.Write([]byte(source))
	h.Write([]byte(category))
	h.Write([]byte(content))
	return fmt.Sprintf("%x", h.Sum(nil))[:12]
}
