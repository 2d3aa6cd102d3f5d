package orchestrator

// #region imports
import (
	"context"
	"fmt"
	"log"

	"github.com/mairylabs/triadic-controller/internal/memory"
	"github.com/mairylabs/triadic-controller/internal/policy"
	"github.com/mairylabs/triadic-controller/internal/triad"
)

// #endregion

// #region engine-struct

// Engine drives the bounded generate → score → validate → learn loop.
// One generation, one scoring, one policy evaluation per attempt, strictly
// sequential: each retry is conditioned on the failure directly before it.
type Engine struct {
	gen     Generator
	scorer  Scorer
	policy  *policy.Policy
	learner Learner
	config  Config
}

// NewEngine creates a loop engine. A nil learner is replaced by NopLearner.
func NewEngine(gen Generator, scorer Scorer, pol *policy.Policy, learner Learner, config Config) *Engine {
	if learner == nil {
		learner = NopLearner{}
	}
	return &Engine{
		gen:     gen,
		scorer:  scorer,
		policy:  pol,
		learner: learner,
		config:  config,
	}
}

// #endregion

// #region run

// Run executes up to MaxAttempts generation attempts and returns the first
// accepted candidate, or the limitation protocol outcome on exhaustion.
// Generator and scorer failures propagate; no partial outcome is returned.
func (e *Engine) Run(
	ctx context.Context,
	input string,
	memories []memory.Exchange,
	actx AdaptiveContext,
	inputTriad triad.Score,
) (Outcome, error) {
	history := make([]AttemptRecord, 0, e.config.MaxAttempts)

	for attempt := 0; attempt < e.config.MaxAttempts; attempt++ {
		var prev *AttemptRecord
		if len(history) > 0 {
			prev = &history[len(history)-1]
		}

		prompt := BuildPrompt(input, memories, actx.TargetTriad, prev, e.config.MaxMemories)
		temperature := e.config.BaseTemperature + float64(attempt)*e.config.TemperatureStep

		text, err := e.gen.Generate(ctx, prompt, temperature, e.config.MaxTokens)
		if err != nil {
			return Outcome{}, fmt.Errorf("generate attempt %d: %w", attempt, err)
		}

		candidate, err := e.scorer.ScoreTriad(ctx, text, triad.RoleResponder)
		if err != nil {
			return Outcome{}, fmt.Errorf("score attempt %d: %w", attempt, err)
		}

		out := e.policy.Evaluate(candidate, actx.TargetTriad, inputTriad)
		if out.Verdict == policy.Accepted {
			return Outcome{
				Status:       StatusApproved,
				Text:         text,
				Triad:        candidate,
				CandidateID:  fmt.Sprintf("attempt_%d", attempt),
				AttemptsUsed: attempt + 1,
			}, nil
		}

		// Every rejection becomes a training signal before the next attempt.
		if err := e.learner.Absorb(ctx, out.Deviation, out.Reason); err != nil {
			log.Printf("[LOOP] learner absorb failed (attempt %d): %v", attempt, err)
		}
		log.Printf("[LOOP] attempt %d rejected: %s | Δ=[%.2f, %.2f, %.2f]",
			attempt, out.Reason, out.Deviation[0], out.Deviation[1], out.Deviation[2])

		history = append(history, AttemptRecord{
			Attempt: attempt,
			Text:    text,
			Triad:   candidate,
			Failure: out.Reason,
		})
	}

	log.Printf("[LOOP] all %d attempts exhausted, engaging limitation protocol", e.config.MaxAttempts)
	return LimitationOutcome(e.config.MaxAttempts), nil
}

// #endregion
