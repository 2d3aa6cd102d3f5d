package replay

import (
	"context"
	"fmt"

	"github.com/mairylabs/triadic-controller/internal/orchestrator"
	"github.com/mairylabs/triadic-controller/internal/policy"
	"github.com/mairylabs/triadic-controller/internal/triad"
)

// #region types

// ReplayResult captures the outcome of replaying one turn through the
// candidate loop.
type ReplayResult struct {
	TurnID       string
	Status       orchestrator.Status
	AttemptsUsed int
	CandidateID  string
	OutputTriad  triad.Score

	// Matched reports whether the outcome agreed with the fixture's
	// expected result, when one was recorded for this turn.
	Matched bool
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalTurns  int
	Approved    int
	Limitations int
	Mismatches  int
}

// #endregion types

// #region scripted-collaborators

// scriptedGenerator hands out a turn's recorded candidates in order.
// Past the recorded list it repeats the last candidate, which keeps an
// exhausted turn flowing to the limitation protocol.
type scriptedGenerator struct {
	candidates []FixtureCandidate
	next       int
}

func (g *scriptedGenerator) Generate(context.Context, string, float64, int) (string, error) {
	if len(g.candidates) == 0 {
		return "", fmt.Errorf("turn has no recorded candidates")
	}
	i := g.next
	if i >= len(g.candidates) {
		i = len(g.candidates) - 1
	}
	g.next++
	return g.candidates[i].Text, nil
}

// scriptedScorer replays the recorded triads instead of calling a model.
type scriptedScorer struct {
	byText map[string]triad.Score
	input  triad.Score
}

func (s *scriptedScorer) ScoreTriad(_ context.Context, text, role string) (triad.Score, error) {
	if role == triad.RoleRequester {
		return s.input, nil
	}
	sc, ok := s.byText[text]
	if !ok {
		return triad.Score{}, fmt.Errorf("no recorded triad for candidate %q", text)
	}
	return sc, nil
}

// #endregion scripted-collaborators

// #region replay

// Replay runs every fixture turn through the real acceptance policy and
// candidate loop, with generation and scoring replayed from the recording.
// Operates entirely in-memory.
func Replay(f *Fixture) ([]ReplayResult, error) {
	pol := policy.New(f.Config.ToPolicyConfig())
	expected := make(map[string]FixtureExpectedResult, len(f.ExpectedResults))
	for _, er := range f.ExpectedResults {
		expected[er.TurnID] = er
	}

	results := make([]ReplayResult, 0, len(f.Turns))
	for _, turn := range f.Turns {
		gen := &scriptedGenerator{candidates: turn.Candidates}
		scorer := &scriptedScorer{
			byText: make(map[string]triad.Score, len(turn.Candidates)),
			input:  turn.InputTriad.ToScore(),
		}
		for _, c := range turn.Candidates {
			scorer.byText[c.Text] = c.Triad.ToScore()
		}

		engine := orchestrator.NewEngine(gen, scorer, pol, nil, orchestrator.DefaultConfig())
		actx := orchestrator.AdaptiveContext{TargetTriad: turn.Target.ToScore()}
		outcome, err := engine.Run(context.Background(), turn.Input, nil, actx, turn.InputTriad.ToScore())
		if err != nil {
			return nil, fmt.Errorf("replay turn %s: %w", turn.TurnID, err)
		}

		r := ReplayResult{
			TurnID:       turn.TurnID,
			Status:       outcome.Status,
			AttemptsUsed: outcome.AttemptsUsed,
			CandidateID:  outcome.CandidateID,
			OutputTriad:  outcome.Triad,
			Matched:      true,
		}
		if er, ok := expected[turn.TurnID]; ok {
			r.Matched = string(outcome.Status) == er.Status &&
				outcome.AttemptsUsed == er.AttemptsUsed &&
				outcome.CandidateID == er.CandidateID
		}
		results = append(results, r)
	}
	return results, nil
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult) ReplaySummary {
	s := ReplaySummary{TotalTurns: len(results)}
	for _, r := range results {
		switch r.Status {
		case orchestrator.StatusApproved:
			s.Approved++
		case orchestrator.StatusLimitation:
			s.Limitations++
		}
		if !r.Matched {
			s.Mismatches++
		}
	}
	return s
}

// #endregion replay
