// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package corpus

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/goal-engine/pkg/types"
)

// newTestStore creates a store rooted in a temp directory and seeds it from
// the given source files (name -> YAML content).
func newTestStore(t *testing.T, seeds map[string]string) *Store {
	t.Helper()

	corpusDir := t.TempDir()
	srcDir := filepath.Join(corpusDir, sourcesDir)
	require.NoError(t, os.MkdirAll(srcDir, 0o755))

	for name, content := range seeds {
		require.NoError(t, os.WriteFile(filepath.Join(srcDir, name), []byte(content), 0o644))
	}

	store, err := NewStore(types.CorpusConfig{CorpusDir: corpusDir})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	if len(seeds) > 0 {
		var buf bytes.Buffer
		summary, err := store.Ingest(context.Background(), &buf)
		require.NoError(t, err)
		require.Zero(t, summary.Failed, "seed ingest failed: %s", buf.String())
	}

	return store
}

const sampleSeed = `source: Occupational Outlook Handbook
passages:
  - category: occupation-reference
    content: >
      Automotive service technicians inspect, maintain, and repair cars and
      light trucks. Most learn through postsecondary programs in automotive
      technology.
  - category: occupation-reference
    content: >
      Welders use hand-held or remotely controlled welding equipment to join
      metal parts. Training is available through technical schools and
      apprenticeships.
  - category: standard
    content: >
      The student will demonstrate employability skills required by business
      and industry, including punctuality and collaborative work habits.
`

const templateSeed = `source: Transition Planning Guide
passages:
  - category: annual-goal-template
    content: >
      Given direct instruction in self-advocacy, the student will identify
      and request needed accommodations in 4 out of 5 opportunities.
  - category: objective-template
    content: >
      The student will complete a career interest inventory and discuss the
      results with the case manager by the end of the first semester.
`

func TestSearchReturnsRankedMatches(t *testing.T) {
	store := newTestStore(t, map[string]string{"ooh.yaml": sampleSeed})

	results, err := store.Search(context.Background(), "automotive repair technician", 5, "")
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.Contains(t, results[0].Content, "Automotive service technicians")
	assert.Equal(t, "Occupational Outlook Handbook", results[0].Source)
	assert.Equal(t, types.CategoryOccupation, results[0].Category)
}

func TestSearchCategoryFilter(t *testing.T) {
	store := newTestStore(t, map[string]string{
		"ooh.yaml":       sampleSeed,
		"templates.yaml": templateSeed,
	})

	// "student" appears in both a standard and the templates; the filter
	// must restrict results to the requested category only.
	results, err := store.Search(context.Background(), "student skills", 10, types.CategoryStandard)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for _, p := range results {
		assert.Equal(t, types.CategoryStandard, p.Category)
	}
}

func TestSearchNonMatchingCategoryReturnsEmpty(t *testing.T) {
	store := newTestStore(t, map[string]string{"ooh.yaml": sampleSeed})

	results, err := store.Search(context.Background(), "automotive", 5, types.CategoryLegalReference)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchRespectsLimit(t *testing.T) {
	store := newTestStore(t, map[string]string{
		"ooh.yaml":       sampleSeed,
		"templates.yaml": templateSeed,
	})

	results, err := store.Search(context.Background(), "the student will", 1, "")
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearchEmptyQueryListsCorpusOrder(t *testing.T) {
	store := newTestStore(t, map[string]string{"ooh.yaml": sampleSeed})

	results, err := store.Search(context.Background(), "", 10, "")
	require.NoError(t, err)
	require.Len(t, results, 3)

	// Insertion order within a seed file is preserved.
	assert.Contains(t, results[0].Content, "Automotive")
	assert.Contains(t, results[1].Content, "Welders")
	assert.Contains(t, results[2].Content, "employability")
}

func TestSearchPunctuationHeavyQuery(t *testing.T) {
	store := newTestStore(t, map[string]string{"ooh.yaml": sampleSeed})

	// Queries built from profile fields carry punctuation that raw FTS5
	// syntax would reject.
	results, err := store.Search(context.Background(), `welding (entry-level) "career" requirements!`, 5, "")
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Contains(t, results[0].Content, "Welders")
}

func TestSearchEmptyCorpus(t *testing.T) {
	store := newTestStore(t, nil)

	results, err := store.Search(context.Background(), "anything at all", 5, "")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestCount(t *testing.T) {
	store := newTestStore(t, map[string]string{
		"ooh.yaml":       sampleSeed,
		"templates.yaml": templateSeed,
	})

	total, err := store.Count(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 5, total)

	occupations, err := store.Count(context.Background(), types.CategoryOccupation)
	require.NoError(t, err)
	assert.Equal(t, 2, occupations)
}

func TestFTSQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"plain words", "automotive repair", `"automotive" OR "repair"`},
		{"strips punctuation", `welding, (career)!`, `"welding" OR "career"`},
		{"lowercases", "Automotive Repair", `"automotive" OR "repair"`},
		{"dedupes terms", "repair repair repair", `"repair"`},
		{"drops single characters", "a repair b", `"repair"`},
		{"empty", "", ""},
		{"only punctuation", "?!,.", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ftsQuery(tt.query))
		})
	}
}
