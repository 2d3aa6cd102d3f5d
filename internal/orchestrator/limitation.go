package orchestrator

import "github.com/mairylabs/triadic-controller/internal/triad"

// #region limitation-text

const limitationText = `I need to be transparent with you: I'm having difficulty generating a response that maintains the relational balance this conversation needs.

This isn't evasion - it's me acknowledging a computational limit. Could you help me understand what you need most right now? That would help me respond more appropriately.`

// #endregion

// #region limitation-outcome

// LimitationOutcome is the deterministic transparency response issued when
// all attempts are exhausted. It is exempt from policy evaluation, identical
// across invocations, and never persisted as a learned exchange. Truth sits
// above the reference value to signal candor about the limit.
func LimitationOutcome(maxAttempts int) Outcome {
	return Outcome{
		Status: StatusLimitation,
		Text:   limitationText,
		Triad: triad.Score{
			Kindness:  1.0,
			Freedom:   1.0,
			Truth:     1.2,
			Reasoning: "honest limitation protocol engaged",
		},
		CandidateID:  "limitation",
		AttemptsUsed: maxAttempts,
	}
}

// #endregion
