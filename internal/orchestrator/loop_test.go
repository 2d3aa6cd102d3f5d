package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mairylabs/triadic-controller/internal/memory"
	"github.com/mairylabs/triadic-controller/internal/policy"
	"github.com/mairylabs/triadic-controller/internal/triad"
)

// #region stubs

// stubGenerator returns canned texts per attempt and records every prompt
// and temperature it sees.
type stubGenerator struct {
	texts        []string
	prompts      []string
	temperatures []float64
	err          error
}

func (g *stubGenerator) Generate(_ context.Context, prompt string, temperature float64, _ int) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	g.prompts = append(g.prompts, prompt)
	g.temperatures = append(g.temperatures, temperature)
	idx := len(g.prompts) - 1
	if idx < len(g.texts) {
		return g.texts[idx], nil
	}
	return "filler response", nil
}

// stubScorer maps text → triad score.
type stubScorer struct {
	scores map[string]triad.Score
	err    error
}

func (s *stubScorer) ScoreTriad(_ context.Context, text, _ string) (triad.Score, error) {
	if s.err != nil {
		return triad.Score{}, s.err
	}
	if sc, ok := s.scores[text]; ok {
		return sc, nil
	}
	return triad.Score{Kindness: 1, Freedom: 1, Truth: 1}, nil
}

// recordingLearner captures absorbed deviations in order.
type recordingLearner struct {
	deviations []triad.Vector
	reasons    []string
	err        error
}

func (l *recordingLearner) Absorb(_ context.Context, dev triad.Vector, reason string) error {
	l.deviations = append(l.deviations, dev)
	l.reasons = append(l.reasons, reason)
	return l.err
}

// #endregion stubs

var neutralCtx = AdaptiveContext{TargetTriad: triad.Score{Kindness: 1, Freedom: 1, Truth: 1}}

func newTestEngine(gen Generator, scorer Scorer, learner Learner) *Engine {
	return NewEngine(gen, scorer, policy.New(policy.DefaultConfig()), learner, DefaultConfig())
}

func TestFirstAttemptAccepted(t *testing.T) {
	gen := &stubGenerator{texts: []string{"good answer"}}
	scorer := &stubScorer{scores: map[string]triad.Score{
		"good answer": {Kindness: 1, Freedom: 1, Truth: 1},
	}}
	learner := &recordingLearner{}
	e := newTestEngine(gen, scorer, learner)

	out, err := e.Run(context.Background(), "hi", nil, neutralCtx, triad.Score{Kindness: 1, Freedom: 1, Truth: 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Status != StatusApproved {
		t.Fatalf("expected approved, got %s", out.Status)
	}
	if out.AttemptsUsed != 1 {
		t.Fatalf("attempts used = %d, want 1", out.AttemptsUsed)
	}
	if out.CandidateID != "attempt_0" {
		t.Fatalf("candidate id = %s", out.CandidateID)
	}
	// First-success wins: no further generation after acceptance.
	if len(gen.prompts) != 1 {
		t.Fatalf("generator called %d times, want 1", len(gen.prompts))
	}
	if len(learner.deviations) != 0 {
		t.Fatal("learner should not be invoked on acceptance")
	}
}

func TestRetryAfterRejectionThenAccept(t *testing.T) {
	gen := &stubGenerator{texts: []string{"bad", "good"}}
	scorer := &stubScorer{scores: map[string]triad.Score{
		"bad":  {Kindness: 1.5, Freedom: 1, Truth: 1}, // out of band
		"good": {Kindness: 1, Freedom: 1, Truth: 1},
	}}
	learner := &recordingLearner{}
	e := newTestEngine(gen, scorer, learner)

	out, err := e.Run(context.Background(), "hi", nil, neutralCtx, triad.Score{Kindness: 1, Freedom: 1, Truth: 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Status != StatusApproved || out.AttemptsUsed != 2 {
		t.Fatalf("expected approval on attempt 2, got %s after %d", out.Status, out.AttemptsUsed)
	}
	if out.CandidateID != "attempt_1" {
		t.Fatalf("candidate id = %s", out.CandidateID)
	}

	// Exactly one deviation absorbed, before the second generation.
	if len(learner.deviations) != 1 {
		t.Fatalf("learner invoked %d times, want 1", len(learner.deviations))
	}
	want := triad.Vector{0.5, 0, 0}
	if learner.deviations[0] != want {
		t.Fatalf("deviation = %v, want %v", learner.deviations[0], want)
	}

	// Second prompt carries the failure digest of the first attempt only.
	if !strings.Contains(gen.prompts[1], "Previous attempt failed") {
		t.Fatal("second prompt missing failure digest")
	}
	if !strings.Contains(gen.prompts[1], "K=1.50") {
		t.Fatalf("digest missing scored components: %q", gen.prompts[1])
	}
	if strings.Contains(gen.prompts[0], "Previous attempt failed") {
		t.Fatal("first prompt must not carry a failure digest")
	}
}

func TestTemperatureRampsPerAttempt(t *testing.T) {
	gen := &stubGenerator{texts: []string{"bad", "bad", "bad"}}
	scorer := &stubScorer{scores: map[string]triad.Score{
		"bad": {Kindness: 0.5, Freedom: 1, Truth: 1},
	}}
	e := newTestEngine(gen, scorer, nil)

	_, err := e.Run(context.Background(), "hi", nil, neutralCtx, triad.Score{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []float64{0.7, 0.8, 0.9}
	if len(gen.temperatures) != 3 {
		t.Fatalf("generator called %d times, want 3", len(gen.temperatures))
	}
	for i, w := range want {
		if diff := gen.temperatures[i] - w; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("attempt %d temperature = %f, want %f", i, gen.temperatures[i], w)
		}
	}
}

func TestExhaustionEngagesLimitationProtocol(t *testing.T) {
	gen := &stubGenerator{}
	// Scorer always returns an out-of-band posture.
	scorer := &stubScorer{scores: map[string]triad.Score{
		"filler response": {Kindness: 2, Freedom: 2, Truth: 2},
	}}
	learner := &recordingLearner{}
	e := newTestEngine(gen, scorer, learner)

	out, err := e.Run(context.Background(), "hi", nil, neutralCtx, triad.Score{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Status != StatusLimitation {
		t.Fatalf("expected limitation protocol, got %s", out.Status)
	}
	// Exactly MaxAttempts generator invocations, then the fixed fallback.
	if len(gen.prompts) != 3 {
		t.Fatalf("generator called %d times, want 3", len(gen.prompts))
	}
	if len(learner.deviations) != 3 {
		t.Fatalf("learner invoked %d times, want 3", len(learner.deviations))
	}
	if out.CandidateID != "limitation" {
		t.Fatalf("candidate id = %s", out.CandidateID)
	}
	if out.AttemptsUsed != 3 {
		t.Fatalf("attempts used = %d, want 3", out.AttemptsUsed)
	}
	if out.Triad.Truth != 1.2 || out.Triad.Kindness != 1.0 || out.Triad.Freedom != 1.0 {
		t.Fatalf("unexpected fallback triad: %+v", out.Triad)
	}
}

func TestLimitationOutcomeIdempotent(t *testing.T) {
	a := LimitationOutcome(3)
	b := LimitationOutcome(3)
	if a != b {
		t.Fatal("limitation outcome should be identical across invocations")
	}
	if a.Text == "" {
		t.Fatal("limitation text should be fixed and non-empty")
	}
}

func TestGeneratorErrorPropagates(t *testing.T) {
	wantErr := errors.New("backend down")
	gen := &stubGenerator{err: wantErr}
	e := newTestEngine(gen, &stubScorer{}, nil)

	_, err := e.Run(context.Background(), "hi", nil, neutralCtx, triad.Score{})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped generator error, got %v", err)
	}
}

func TestScorerErrorPropagates(t *testing.T) {
	wantErr := errors.New("scorer down")
	gen := &stubGenerator{texts: []string{"x"}}
	e := newTestEngine(gen, &stubScorer{err: wantErr}, nil)

	_, err := e.Run(context.Background(), "hi", nil, neutralCtx, triad.Score{})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped scorer error, got %v", err)
	}
}

func TestLearnerFailureDoesNotAffectLoop(t *testing.T) {
	gen := &stubGenerator{texts: []string{"bad", "good"}}
	scorer := &stubScorer{scores: map[string]triad.Score{
		"bad":  {Kindness: 1.5, Freedom: 1, Truth: 1},
		"good": {Kindness: 1, Freedom: 1, Truth: 1},
	}}
	learner := &recordingLearner{err: errors.New("disk full")}
	e := newTestEngine(gen, scorer, learner)

	out, err := e.Run(context.Background(), "hi", nil, neutralCtx, triad.Score{Kindness: 1, Freedom: 1, Truth: 1})
	if err != nil {
		t.Fatalf("learner failure must not propagate: %v", err)
	}
	if out.Status != StatusApproved {
		t.Fatalf("expected approval despite learner failure, got %s", out.Status)
	}
}

func TestNilLearnerDefaultsToNop(t *testing.T) {
	gen := &stubGenerator{texts: []string{"bad", "good"}}
	scorer := &stubScorer{scores: map[string]triad.Score{
		"bad":  {Kindness: 1.5, Freedom: 1, Truth: 1},
		"good": {Kindness: 1, Freedom: 1, Truth: 1},
	}}
	e := newTestEngine(gen, scorer, nil)

	if _, err := e.Run(context.Background(), "hi", nil, neutralCtx, triad.Score{Kindness: 1, Freedom: 1, Truth: 1}); err != nil {
		t.Fatalf("Run with nil learner: %v", err)
	}
}

func TestPromptMemoryTruncation(t *testing.T) {
	memories := []memory.Exchange{
		{Content: "m1"}, {Content: "m2"}, {Content: "m3"},
		{Content: "m4"}, {Content: "m5"}, {Content: "m6"},
	}
	prompt := BuildPrompt("hi", memories, triad.Score{Kindness: 1, Freedom: 1, Truth: 1}, nil, 5)
	for _, want := range []string{"- m1\n", "- m5\n"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(prompt, "- m6") {
		t.Fatal("prompt should truncate to 5 memories")
	}
	// Order preserved as supplied.
	if strings.Index(prompt, "- m1") > strings.Index(prompt, "- m2") {
		t.Fatal("memory order not preserved")
	}
}

func TestPromptTargetBlock(t *testing.T) {
	prompt := BuildPrompt("hi", nil, triad.Score{Kindness: 0.95, Freedom: 1.05, Truth: 1.1}, nil, 5)
	for _, want := range []string{"Kindness: 0.95", "Freedom: 1.05", "Truth: 1.10"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
