// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package generate chains retrieval-grounded completion calls into IEP
// transition-goal documents. Two modes are supported: a single-shot mode
// producing the full document from one completion call over one combined
// retrieval pass, and a staged mode running four dependent stages whose
// prompts each consume the previous stage's text plus freshly retrieved
// context.
package generate

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/goal-engine/internal/retrieve"
	"github.com/pdiddy/goal-engine/pkg/types"
)

// Stage names, in staged-mode execution order.
const (
	StagePostsecondary    = "postsecondary_goals"
	StageAnnualGoal       = "annual_goal"
	StageObjectives       = "short_term_objectives"
	StageExplanation      = "explanation"
	StageCompleteDocument = "complete_document"
)

// Per-stage retrieval sizes. A stage fanning out over N categories gets up
// to N times its k back, which is the intent: every category it is grounded
// on stays represented.
const (
	occupationK = 3
	templateK   = 2
	standardsK  = 3
	combinedK   = 4
)

// Completer abstracts the text-completion service so tests can supply a
// deterministic mock. Implementations normalize their backend's response
// shape to plain text before returning; nothing past this boundary branches
// on response shape.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Pipeline runs retrieval-augmented goal generation against a ready corpus
// handle and a ready completion service. Pipelines are safe for concurrent
// invocations: all per-run state lives in the GenerationResult.
type Pipeline struct {
	retriever  *retrieve.Orchestrator
	completer  Completer
	topK       int
	maxRetries int
}

// NewPipeline constructs a Pipeline. Both handles are required: a missing
// completion service is a construction error, never a silent fallback to a
// degraded mode.
func NewPipeline(retriever *retrieve.Orchestrator, completer Completer, cfg types.GenerationConfig) (*Pipeline, error) {
	if retriever == nil {
		return nil, fmt.Errorf("retrieval orchestrator required")
	}
	if completer == nil {
		return nil, fmt.Errorf("completion service required")
	}

	topK := cfg.TopK
	if topK <= 0 {
		topK = 5
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &Pipeline{
		retriever:  retriever,
		completer:  completer,
		topK:       topK,
		maxRetries: maxRetries,
	}, nil
}

// RetrieveRelevantContext is a passthrough to the retrieval orchestrator for
// ad-hoc inspection. A non-positive k uses the configured default.
func (p *Pipeline) RetrieveRelevantContext(ctx context.Context, query string, k int, categories []types.PassageCategory) (types.ContextBundle, error) {
	if k <= 0 {
		k = p.topK
	}
	return p.retriever.Retrieve(ctx, query, k, categories)
}

// Generate runs single-shot mode: one retrieval pass covering occupation
// data, standards, and all goal templates feeds one completion call that
// produces the full document. This is the default end-to-end entry point.
func (p *Pipeline) Generate(ctx context.Context, profile types.StudentProfile) (*types.GenerationResult, error) {
	careerQuery := strings.TrimSpace(profile.Interests + " " + profile.CareerInterest + " career requirements")
	career, err := p.retriever.Retrieve(ctx, careerQuery, occupationK,
		[]types.PassageCategory{types.CategoryOccupation})
	if err != nil {
		return nil, err
	}

	standards, err := p.retriever.Retrieve(ctx, "employability skills workplace standards communication", standardsK,
		[]types.PassageCategory{types.CategoryStandard, types.CategoryEmployabilitySkill})
	if err != nil {
		return nil, err
	}

	templates, err := p.retriever.Retrieve(ctx, "transition goals objectives planning", combinedK,
		[]types.PassageCategory{types.CategoryPostsecondaryTemplate, types.CategoryAnnualGoalTemplate, types.CategoryObjectiveTemplate})
	if err != nil {
		return nil, err
	}

	bundle := make(types.ContextBundle, 0, len(career)+len(standards)+len(templates))
	bundle = append(bundle, career...)
	bundle = append(bundle, standards...)
	bundle = append(bundle, templates...)

	prompt, err := renderTemplate(completeDocumentTmpl, completeDocumentInput{
		StudentInfo: formatProfile(profile),
		Context:     retrieve.Render(bundle),
	})
	if err != nil {
		return nil, err
	}

	text, err := p.complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generating complete document: %w", err)
	}

	return &types.GenerationResult{
		RunID:           uuid.NewString(),
		Profile:         profile,
		Document:        text,
		Stages:          []types.StageOutput{{Stage: StageCompleteDocument, Text: text}},
		ContextPassages: bundle.Passages(),
	}, nil
}

// GenerateStaged runs the four-stage chain: postsecondary goals, annual
// goal, short-term objectives, explanation. Stages execute strictly in
// order; each reads the prior stages' outputs verbatim, and a stage failure
// aborts the run before any later stage executes, so no partial result ever
// leaks to the caller.
func (p *Pipeline) GenerateStaged(ctx context.Context, profile types.StudentProfile) (*types.GenerationResult, error) {
	postsecondary, postBundle, err := p.PostsecondaryGoals(ctx, profile)
	if err != nil {
		return nil, err
	}

	annual, annualBundle, err := p.AnnualGoal(ctx, profile, postsecondary)
	if err != nil {
		return nil, err
	}

	objectives, objBundle, err := p.ShortTermObjectives(ctx, profile, annual)
	if err != nil {
		return nil, err
	}

	explanation, err := p.Explanation(ctx, profile, postsecondary, annual, objectives, annualBundle)
	if err != nil {
		return nil, err
	}

	stages := []types.StageOutput{
		{Stage: StagePostsecondary, Text: postsecondary},
		{Stage: StageAnnualGoal, Text: annual},
		{Stage: StageObjectives, Text: objectives},
		{Stage: StageExplanation, Text: explanation},
	}

	// The explanation stage reuses the annual-goal bundle without issuing
	// new queries, so consumed passages cover three retrieval passes.
	var consumed []types.ReferencePassage
	for _, b := range []types.ContextBundle{postBundle, annualBundle, objBundle} {
		consumed = append(consumed, b.Passages()...)
	}

	return &types.GenerationResult{
		RunID:           uuid.NewString(),
		Profile:         profile,
		Document:        assembleDocument(stages),
		Stages:          stages,
		ContextPassages: consumed,
	}, nil
}

// PostsecondaryGoals generates measurable postsecondary employment,
// education, and independent-living goals from the profile, grounded in
// occupation references and postsecondary goal templates.
func (p *Pipeline) PostsecondaryGoals(ctx context.Context, profile types.StudentProfile) (string, types.ContextBundle, error) {
	query := fmt.Sprintf("Career information for %s. Requirements for %s.", profile.Interests, profile.CareerInterest)
	occupation, err := p.retriever.Retrieve(ctx, query, occupationK,
		[]types.PassageCategory{types.CategoryOccupation})
	if err != nil {
		return "", nil, err
	}

	templates, err := p.retriever.Retrieve(ctx, "postsecondary employment and education goals", templateK,
		[]types.PassageCategory{types.CategoryPostsecondaryTemplate})
	if err != nil {
		return "", nil, err
	}

	bundle := append(occupation, templates...)

	prompt, err := renderTemplate(postsecondaryTmpl, postsecondaryInput{
		StudentInfo: formatProfile(profile),
		Context:     retrieve.Render(bundle),
	})
	if err != nil {
		return "", nil, err
	}

	text, err := p.complete(ctx, prompt)
	if err != nil {
		return "", nil, fmt.Errorf("generating postsecondary goals: %w", err)
	}
	return text, bundle, nil
}

// AnnualGoal generates one measurable annual goal aligned with the
// previously generated postsecondary goals, with a standards-alignment
// section. It reads the postsecondary output verbatim.
func (p *Pipeline) AnnualGoal(ctx context.Context, profile types.StudentProfile, postsecondaryGoals string) (string, types.ContextBundle, error) {
	skillsQuery := fmt.Sprintf("Skills and standards for %s and workplace communication", profile.CareerInterest)
	skills, err := p.retriever.Retrieve(ctx, skillsQuery, standardsK,
		[]types.PassageCategory{types.CategoryStandard, types.CategoryEmployabilitySkill})
	if err != nil {
		return "", nil, err
	}

	templates, err := p.retriever.Retrieve(ctx, "annual goals for employment skills", templateK,
		[]types.PassageCategory{types.CategoryAnnualGoalTemplate})
	if err != nil {
		return "", nil, err
	}

	occupation, err := p.retriever.Retrieve(ctx, profile.CareerInterest+" requirements", templateK,
		[]types.PassageCategory{types.CategoryOccupation})
	if err != nil {
		return "", nil, err
	}

	bundle := append(append(skills, templates...), occupation...)

	prompt, err := renderTemplate(annualGoalTmpl, annualGoalInput{
		StudentInfo:        formatProfile(profile),
		PostsecondaryGoals: postsecondaryGoals,
		Context:            retrieve.Render(bundle),
	})
	if err != nil {
		return "", nil, err
	}

	text, err := p.complete(ctx, prompt)
	if err != nil {
		return "", nil, fmt.Errorf("generating annual goal: %w", err)
	}
	return text, bundle, nil
}

// ShortTermObjectives generates four sequential objectives that break the
// annual goal into quarterly benchmarks. It reads the annual-goal output
// verbatim.
func (p *Pipeline) ShortTermObjectives(ctx context.Context, profile types.StudentProfile, annualGoal string) (string, types.ContextBundle, error) {
	bundle, err := p.retriever.Retrieve(ctx, "short-term objectives benchmarks progression", occupationK,
		[]types.PassageCategory{types.CategoryObjectiveTemplate, types.CategoryAnnualGoalTemplate})
	if err != nil {
		return "", nil, err
	}

	prompt, err := renderTemplate(objectivesTmpl, objectivesInput{
		StudentInfo: formatProfile(profile),
		AnnualGoal:  annualGoal,
		Context:     retrieve.Render(bundle),
	})
	if err != nil {
		return "", nil, err
	}

	text, err := p.complete(ctx, prompt)
	if err != nil {
		return "", nil, fmt.Errorf("generating short-term objectives: %w", err)
	}
	return text, bundle, nil
}

// Explanation generates the narrative cross-reference tying all prior stage
// outputs together. It issues no retrieval of its own: the annual-goal
// stage's bundle is reused as its context.
func (p *Pipeline) Explanation(ctx context.Context, profile types.StudentProfile, postsecondaryGoals, annualGoal, objectives string, bundle types.ContextBundle) (string, error) {
	prompt, err := renderTemplate(explanationTmpl, explanationInput{
		StudentInfo:        formatProfile(profile),
		PostsecondaryGoals: postsecondaryGoals,
		AnnualGoal:         annualGoal,
		Objectives:         objectives,
		Context:            retrieve.Render(bundle),
	})
	if err != nil {
		return "", err
	}

	text, err := p.complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generating explanation: %w", err)
	}
	return text, nil
}

// stageHeaders maps stage names to document section headers for staged-mode
// assembly.
var stageHeaders = map[string]string{
	StagePostsecondary: "MEASURABLE POSTSECONDARY GOALS",
	StageAnnualGoal:    "MEASURABLE ANNUAL GOAL",
	StageObjectives:    "SHORT-TERM OBJECTIVES",
	StageExplanation:   "EXPLANATION OF CONNECTIONS",
}

// assembleDocument joins staged outputs into one document, each section
// under its header, in stage order.
func assembleDocument(stages []types.StageOutput) string {
	parts := make([]string, len(stages))
	for i, s := range stages {
		parts[i] = stageHeaders[s.Stage] + "\n\n" + strings.TrimSpace(s.Text)
	}
	return strings.Join(parts, "\n\n")
}

// backoffBase controls the base duration for completion retry backoff.
// Tests override this to avoid real sleeps.
var backoffBase = time.Second

// complete invokes the completion service with exponential backoff on
// failure. Every attempt re-sends the identical prompt as a fresh,
// independent call; attempts are never merged.
func (p *Pipeline) complete(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		text, err := p.completer.Complete(ctx, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("after %d retries: %w", p.maxRetries, lastErr)
}
