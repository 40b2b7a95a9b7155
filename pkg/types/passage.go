// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the goal-engine pipeline:
// reference passages and their provenance categories, student profiles,
// stage outputs, generation results, and stage configuration.
package types

// PassageCategory tags a reference passage by provenance. Categories drive
// retrieval filtering: each generation stage requests passages from the
// categories it is grounded on.
type PassageCategory string

const (
	// CategoryOccupation covers occupation descriptions from the
	// Occupational Outlook Handbook (duties, requirements, pay, outlook).
	CategoryOccupation PassageCategory = "occupation-reference"

	// CategoryStandard covers educational standards such as the
	// 21st Century Skills framework.
	CategoryStandard PassageCategory = "standard"

	// CategoryEmployabilitySkill covers employability skill definitions
	// with observable indicators.
	CategoryEmployabilitySkill PassageCategory = "employability-skill"

	// CategoryPostsecondaryTemplate covers example postsecondary goal
	// statements used as generation templates.
	CategoryPostsecondaryTemplate PassageCategory = "postsecondary-template"

	// CategoryAnnualGoalTemplate covers example annual goal statements.
	CategoryAnnualGoalTemplate PassageCategory = "annual-goal-template"

	// CategoryObjectiveTemplate covers example short-term objective
	// progressions.
	CategoryObjectiveTemplate PassageCategory = "objective-template"

	// CategoryTransitionService covers transition service descriptions.
	CategoryTransitionService PassageCategory = "transition-service"

	// CategoryLegalReference covers transition planning requirements from
	// IDEA 2004 regulations.
	CategoryLegalReference PassageCategory = "legal-reference"
)

// ReferencePassage is one retrievable unit of reference text with provenance.
// Passages are immutable once indexed; the pipeline only reads them.
type ReferencePassage struct {
	// ID is a stable identifier derived from the passage content,
	// consistent across re-seeding of unchanged sources.
	ID string `json:"id" yaml:"id"`

	// Content is the passage text.
	Content string `json:"content" yaml:"content"`

	// Source names the reference work the passage came from
	// (e.g. "Occupational Outlook Handbook").
	Source string `json:"source" yaml:"source"`

	// Category is the provenance tag used for retrieval filtering.
	Category PassageCategory `json:"category" yaml:"category"`
}

// RetrievedPassage pairs a passage with its 1-based rank within the corpus
// query that returned it.
type RetrievedPassage struct {
	Passage ReferencePassage
	Rank    int
}

// ContextBundle is the ordered sequence of passages assembled for one
// generation stage. Insertion order is retrieval order: when a stage fans out
// over several categories, the first category's results precede the second's.
// A passage relevant to more than one sub-query appears once per sub-query;
// duplicates are kept so every requested category stays represented.
type ContextBundle []RetrievedPassage

// Passages returns the bundle's passages in bundle order.
func (b ContextBundle) Passages() []ReferencePassage {
	passages := make([]ReferencePassage, len(b))
	for i, rp := range b {
		passages[i] = rp.Passage
	}
	return passages
}
