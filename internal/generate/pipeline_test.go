// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/goal-engine/internal/retrieve"
	"github.com/pdiddy/goal-engine/pkg/types"
)

func init() {
	// Use a tiny base delay so retry tests finish quickly.
	backoffBase = 1 * time.Millisecond
}

// stubSearcher serves canned passages keyed by category. Safe for concurrent
// use by the retrieval fan-out.
type stubSearcher struct {
	mu    sync.Mutex
	byCat map[types.PassageCategory][]types.ReferencePassage
	calls []searchCall
}

type searchCall struct {
	query    string
	k        int
	category types.PassageCategory
}

func (s *stubSearcher) Search(_ context.Context, query string, k int, category types.PassageCategory) ([]types.ReferencePassage, error) {
	s.mu.Lock()
	s.calls = append(s.calls, searchCall{query, k, category})
	s.mu.Unlock()

	passages := s.byCat[category]
	if len(passages) > k {
		passages = passages[:k]
	}
	return passages, nil
}

// scriptedCompleter records every prompt and answers from a queue, or with a
// fixed reply when the queue is empty.
type scriptedCompleter struct {
	mu      sync.Mutex
	prompts []string
	replies []string
	errOn   int // 1-based call number that fails; 0 disables
	errs    int // remaining failures when errOn hits (for retry tests)
	reply   string
}

func (c *scriptedCompleter) Complete(_ context.Context, prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.prompts = append(c.prompts, prompt)
	n := len(c.prompts)

	if c.errOn != 0 && n >= c.errOn && c.errs > 0 {
		c.errs--
		return "", errors.New("completion service unavailable")
	}

	if len(c.replies) > 0 {
		reply := c.replies[0]
		c.replies = c.replies[1:]
		return reply, nil
	}
	if c.reply != "" {
		return c.reply, nil
	}
	return fmt.Sprintf("generated text %d", n), nil
}

func fullCorpus() map[types.PassageCategory][]types.ReferencePassage {
	mk := func(id string, cat types.PassageCategory) types.ReferencePassage {
		return types.ReferencePassage{ID: id, Content: "passage " + id, Source: "test source", Category: cat}
	}
	return map[types.PassageCategory][]types.ReferencePassage{
		types.CategoryOccupation:            {mk("occ1", types.CategoryOccupation), mk("occ2", types.CategoryOccupation)},
		types.CategoryStandard:              {mk("std1", types.CategoryStandard)},
		types.CategoryEmployabilitySkill:    {mk("emp1", types.CategoryEmployabilitySkill)},
		types.CategoryPostsecondaryTemplate: {mk("pst1", types.CategoryPostsecondaryTemplate)},
		types.CategoryAnnualGoalTemplate:    {mk("ann1", types.CategoryAnnualGoalTemplate)},
		types.CategoryObjectiveTemplate:     {mk("obj1", types.CategoryObjectiveTemplate)},
	}
}

func clarenceProfile() types.StudentProfile {
	return types.StudentProfile{
		Name:              "Clarence",
		Age:               "17",
		Grade:             "11th",
		Disability:        "Specific Learning Disability",
		Interests:         "working on cars",
		CareerInterest:    "Automotive Technician",
		AssessmentResults: "Strong mechanical aptitude",
	}
}

func newTestPipeline(t *testing.T, searcher *stubSearcher, completer Completer, cfg types.GenerationConfig) *Pipeline {
	t.Helper()
	p, err := NewPipeline(retrieve.NewOrchestrator(searcher), completer, cfg)
	require.NoError(t, err)
	return p
}

func TestNewPipelineRequiresHandles(t *testing.T) {
	_, err := NewPipeline(nil, &scriptedCompleter{}, types.GenerationConfig{})
	assert.Error(t, err)

	_, err = NewPipeline(retrieve.NewOrchestrator(&stubSearcher{}), nil, types.GenerationConfig{})
	assert.Error(t, err)
}

func TestGenerateSingleShot(t *testing.T) {
	searcher := &stubSearcher{byCat: fullCorpus()}
	completer := &scriptedCompleter{reply: "FULL IEP DOCUMENT"}
	p := newTestPipeline(t, searcher, completer, types.GenerationConfig{})

	result, err := p.Generate(context.Background(), clarenceProfile())
	require.NoError(t, err)

	assert.Equal(t, "FULL IEP DOCUMENT", result.Document)
	require.Len(t, result.Stages, 1)
	assert.Equal(t, StageCompleteDocument, result.Stages[0].Stage)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, "Clarence", result.Profile.Name)

	// One completion call carrying the profile and the retrieved context.
	require.Len(t, completer.prompts, 1)
	prompt := completer.prompts[0]
	assert.Contains(t, prompt, "Name: Clarence")
	assert.Contains(t, prompt, "Career Interest: Automotive Technician")
	assert.Contains(t, prompt, "passage occ1")
	assert.Contains(t, prompt, "passage std1")
	assert.Contains(t, prompt, "passage pst1")

	// Omitted profile fields never reach the prompt.
	assert.NotContains(t, prompt, "Additional Information")

	// Context passages cover all three retrieval passes: two occupation
	// matches, one standard, one employability skill, three templates.
	assert.Len(t, result.ContextPassages, 7)
}

func TestGenerateStagedRunsStagesInOrder(t *testing.T) {
	searcher := &stubSearcher{byCat: fullCorpus()}
	completer := &scriptedCompleter{replies: []string{
		"POSTSECONDARY OUTPUT",
		"ANNUAL OUTPUT",
		"OBJECTIVES OUTPUT",
		"EXPLANATION OUTPUT",
	}}
	p := newTestPipeline(t, searcher, completer, types.GenerationConfig{})

	result, err := p.GenerateStaged(context.Background(), clarenceProfile())
	require.NoError(t, err)

	require.Len(t, result.Stages, 4)
	assert.Equal(t, StagePostsecondary, result.Stages[0].Stage)
	assert.Equal(t, StageAnnualGoal, result.Stages[1].Stage)
	assert.Equal(t, StageObjectives, result.Stages[2].Stage)
	assert.Equal(t, StageExplanation, result.Stages[3].Stage)

	assert.Equal(t, "POSTSECONDARY OUTPUT", result.Stages[0].Text)
	assert.Equal(t, "EXPLANATION OUTPUT", result.Stages[3].Text)

	// Each later prompt consumes the earlier stage's output verbatim.
	require.Len(t, completer.prompts, 4)
	assert.Contains(t, completer.prompts[1], "POSTSECONDARY OUTPUT")
	assert.Contains(t, completer.prompts[2], "ANNUAL OUTPUT")
	assert.Contains(t, completer.prompts[3], "POSTSECONDARY OUTPUT")
	assert.Contains(t, completer.prompts[3], "ANNUAL OUTPUT")
	assert.Contains(t, completer.prompts[3], "OBJECTIVES OUTPUT")

	// The assembled document carries every section under its header.
	assert.Contains(t, result.Document, "MEASURABLE POSTSECONDARY GOALS\n\nPOSTSECONDARY OUTPUT")
	assert.Contains(t, result.Document, "MEASURABLE ANNUAL GOAL\n\nANNUAL OUTPUT")
	assert.Contains(t, result.Document, "SHORT-TERM OBJECTIVES\n\nOBJECTIVES OUTPUT")
	assert.Contains(t, result.Document, "EXPLANATION OF CONNECTIONS\n\nEXPLANATION OUTPUT")
}

func TestGenerateStagedAbortsOnStageFailure(t *testing.T) {
	searcher := &stubSearcher{byCat: fullCorpus()}
	completer := &scriptedCompleter{errOn: 2, errs: 100}
	p := newTestPipeline(t, searcher, completer, types.GenerationConfig{})

	result, err := p.GenerateStaged(context.Background(), clarenceProfile())
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "generating annual goal")

	// No stage past the failing one ever ran.
	assert.Len(t, completer.prompts, 2)
}

func TestGenerateStagedExplanationReusesAnnualContext(t *testing.T) {
	searcher := &stubSearcher{byCat: fullCorpus()}
	completer := &scriptedCompleter{}
	p := newTestPipeline(t, searcher, completer, types.GenerationConfig{})

	_, err := p.GenerateStaged(context.Background(), clarenceProfile())
	require.NoError(t, err)

	// Category searches: 2 for postsecondary, 4 for annual (the skills pass
	// fans out over two categories), 2 for objectives. The explanation stage
	// issues none of its own.
	assert.Len(t, searcher.calls, 8)

	// The explanation prompt still carries the annual-goal stage's context.
	assert.Contains(t, completer.prompts[3], "passage std1")
	assert.Contains(t, completer.prompts[3], "passage emp1")
}

func TestGenerateEmptyCorpus(t *testing.T) {
	searcher := &stubSearcher{byCat: map[types.PassageCategory][]types.ReferencePassage{}}
	completer := &scriptedCompleter{reply: "document from empty context"}
	p := newTestPipeline(t, searcher, completer, types.GenerationConfig{})

	// An empty corpus degrades the context, it does not fail the run.
	result, err := p.Generate(context.Background(), clarenceProfile())
	require.NoError(t, err)
	assert.Equal(t, "document from empty context", result.Document)
	assert.Empty(t, result.ContextPassages)
}

func TestGenerateStagedEmptyCorpus(t *testing.T) {
	searcher := &stubSearcher{byCat: map[types.PassageCategory][]types.ReferencePassage{}}
	completer := &scriptedCompleter{}
	p := newTestPipeline(t, searcher, completer, types.GenerationConfig{})

	result, err := p.GenerateStaged(context.Background(), clarenceProfile())
	require.NoError(t, err)
	assert.Len(t, result.Stages, 4)
	assert.Empty(t, result.ContextPassages)
}

func TestGeneratePromptsAreDeterministic(t *testing.T) {
	profile := clarenceProfile()

	run := func() ([]string, string) {
		searcher := &stubSearcher{byCat: fullCorpus()}
		completer := &scriptedCompleter{}
		p := newTestPipeline(t, searcher, completer, types.GenerationConfig{})
		result, err := p.GenerateStaged(context.Background(), profile)
		require.NoError(t, err)
		return completer.prompts, result.Document
	}

	firstPrompts, firstDoc := run()
	secondPrompts, secondDoc := run()

	// Identical profile and corpus produce byte-identical prompts and,
	// under a deterministic completion stub, an identical document.
	require.Equal(t, len(firstPrompts), len(secondPrompts))
	for i := range firstPrompts {
		assert.Equal(t, firstPrompts[i], secondPrompts[i], "prompt %d differs between runs", i)
	}
	assert.Equal(t, firstDoc, secondDoc)
}

func TestGenerateStagedDistinctRunIDs(t *testing.T) {
	searcher := &stubSearcher{byCat: fullCorpus()}
	p := newTestPipeline(t, searcher, &scriptedCompleter{}, types.GenerationConfig{})

	a, err := p.GenerateStaged(context.Background(), clarenceProfile())
	require.NoError(t, err)
	b, err := p.GenerateStaged(context.Background(), clarenceProfile())
	require.NoError(t, err)

	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestCompleteRetriesUpToMaxRetries(t *testing.T) {
	searcher := &stubSearcher{byCat: fullCorpus()}
	completer := &scriptedCompleter{errOn: 1, errs: 2, reply: "ok"}
	p := newTestPipeline(t, searcher, completer, types.GenerationConfig{MaxRetries: 3})

	text, err := p.complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	// Two failures, then success on the third attempt.
	assert.Len(t, completer.prompts, 3)

	// Every retry re-sent the identical prompt.
	for _, prompt := range completer.prompts {
		assert.Equal(t, "prompt", prompt)
	}
}

func TestCompleteNoRetriesByDefault(t *testing.T) {
	searcher := &stubSearcher{byCat: fullCorpus()}
	completer := &scriptedCompleter{errOn: 1, errs: 1, reply: "ok"}
	p := newTestPipeline(t, searcher, completer, types.GenerationConfig{})

	_, err := p.complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 0 retries")
	assert.Len(t, completer.prompts, 1)
}

func TestCompleteExhaustsRetries(t *testing.T) {
	searcher := &stubSearcher{byCat: fullCorpus()}
	completer := &scriptedCompleter{errOn: 1, errs: 100}
	p := newTestPipeline(t, searcher, completer, types.GenerationConfig{MaxRetries: 2})

	_, err := p.complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 retries")
	assert.Contains(t, err.Error(), "completion service unavailable")
	assert.Len(t, completer.prompts, 3)
}

func TestRetrieveRelevantContextDefaultsK(t *testing.T) {
	searcher := &stubSearcher{byCat: fullCorpus()}
	p := newTestPipeline(t, searcher, &scriptedCompleter{}, types.GenerationConfig{TopK: 7})

	_, err := p.RetrieveRelevantContext(context.Background(), "query", 0, nil)
	require.NoError(t, err)

	require.Len(t, searcher.calls, 1)
	assert.Equal(t, 7, searcher.calls[0].k)
}

func TestAssembleDocument(t *testing.T) {
	stages := []types.StageOutput{
		{Stage: StagePostsecondary, Text: "  post text  \n"},
		{Stage: StageAnnualGoal, Text: "annual text"},
	}

	doc := assembleDocument(stages)

	want := "MEASURABLE POSTSECONDARY GOALS\n\npost text\n\nMEASURABLE ANNUAL GOAL\n\nannual text"
	assert.Equal(t, want, doc)
}

func TestRenderTemplateSlots(t *testing.T) {
	prompt, err := renderTemplate(annualGoalTmpl, annualGoalInput{
		StudentInfo:        "Name: Clarence",
		PostsecondaryGoals: "EMPLOYMENT GOAL: work as a technician",
		Context:            "--- Passage 1 ---",
	})
	require.NoError(t, err)

	assert.True(t, strings.Contains(prompt, "Name: Clarence"))
	assert.True(t, strings.Contains(prompt, "EMPLOYMENT GOAL: work as a technician"))
	assert.True(t, strings.Contains(prompt, "--- Passage 1 ---"))
	assert.Contains(t, prompt, "ALIGNMENT TO STANDARDS")
}
