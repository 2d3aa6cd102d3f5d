package orchestrator

// #region imports
import (
	"context"

	"github.com/mairylabs/triadic-controller/internal/triad"
)

// #endregion

// #region status

// Status is the terminal state of one generation loop.
type Status string

const (
	StatusApproved   Status = "approved"
	StatusLimitation Status = "limitation_protocol"
)

// #endregion

// #region attempt-record

// AttemptRecord captures one rejected generation attempt. Records live only
// for the duration of a single loop invocation and are never persisted.
type AttemptRecord struct {
	Attempt int
	Text    string
	Triad   triad.Score
	Failure string
}

// #endregion

// #region outcome

// Outcome is the result of a full generation loop.
type Outcome struct {
	Status       Status
	Text         string
	Triad        triad.Score
	CandidateID  string
	AttemptsUsed int
}

// #endregion

// #region adaptive-context

// AdaptiveContext is the per-turn target computed by the shell state
// collaborator. Stats is opaque to the loop and flows through to the caller.
type AdaptiveContext struct {
	TargetTriad triad.Score
	Stats       map[string]any
}

// #endregion

// #region config

// Config tunes the generation loop.
type Config struct {
	MaxAttempts     int
	BaseTemperature float64
	TemperatureStep float64 // added per retry to diversify attempts
	MaxTokens       int
	MaxMemories     int // memories injected into the prompt, order preserved
}

// DefaultConfig returns the production loop settings.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:     3,
		BaseTemperature: 0.7,
		TemperatureStep: 0.1,
		MaxTokens:       2000,
		MaxMemories:     5,
	}
}

// #endregion

// #region collaborators

// Generator produces a single candidate response for a prompt.
// May be nondeterministic.
type Generator interface {
	Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error)
}

// Scorer rates a message's triadic posture for the given role
// (triad.RoleRequester or triad.RoleResponder).
type Scorer interface {
	ScoreTriad(ctx context.Context, text, role string) (triad.Score, error)
}

// Learner absorbs a rejection's deviation vector as a training signal.
// Implementations own their storage; failures are logged by the loop, never
// propagated.
type Learner interface {
	Absorb(ctx context.Context, deviation triad.Vector, reason string) error
}

// NopLearner is the explicit no-op default for a missing learner.
type NopLearner struct{}

// Absorb discards the deviation.
func (NopLearner) Absorb(context.Context, triad.Vector, string) error { return nil }

// #endregion
