// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// StageOutput is the text produced by one generation stage. It is created
// exactly once per stage per run and never mutated afterwards.
type StageOutput struct {
	// Stage is the stage name ("postsecondary_goals", "annual_goal", ...).
	Stage string `json:"stage" yaml:"stage"`

	// Text is the stage's generated output, verbatim.
	Text string `json:"text" yaml:"text"`
}

// GenerationResult is the aggregate returned by one pipeline invocation.
// It is created fresh per run and owned by the caller; the pipeline never
// persists it.
type GenerationResult struct {
	// RunID uniquely identifies this invocation.
	RunID string `json:"run_id" yaml:"run_id"`

	// Profile is the student profile the document was generated for.
	Profile StudentProfile `json:"profile" yaml:"profile"`

	// Document is the assembled document text covering all sections.
	Document string `json:"document" yaml:"document"`

	// Stages holds the per-stage outputs in execution order. Single-shot
	// runs carry one entry; staged runs carry one per stage.
	Stages []StageOutput `json:"stages" yaml:"stages"`

	// ContextPassages lists every passage retrieved across every corpus
	// query issued during the run, in retrieval order, for provenance
	// display. A passage returned by several queries appears once per
	// query.
	ContextPassages []ReferencePassage `json:"context_passages" yaml:"context_passages"`
}
