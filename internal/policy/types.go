package policy

import "github.com/mairylabs/triadic-controller/internal/triad"

// #region verdict
// Verdict enumerates acceptance check results.
type Verdict string

const (
	Accepted          Verdict = "accepted"
	RejectedHardBound Verdict = "rejected_hard_bound"
	RejectedTension   Verdict = "rejected_tension"
	RejectedProximity Verdict = "rejected_proximity"
	RejectedCoherence Verdict = "rejected_coherence"
)

// #endregion verdict

// #region config
// Config holds thresholds for the layered acceptance checks.
type Config struct {
	Band              triad.Band // hard safety interval around the reference posture
	TensionTrigger    float64    // a component above this must be backed by its partner
	TensionFloor      float64    // minimum value the partner component must hold
	MaxTargetDistance float64    // max Euclidean distance from the adaptive target
	CoherenceTrigger  float64    // input component above this demands a coherent output
	CoherenceFloor    float64    // minimum matching output component
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		Band:              triad.DefaultBand(),
		TensionTrigger:    1.0,
		TensionFloor:      0.85,
		MaxTargetDistance: 0.5,
		CoherenceTrigger:  1.0,
		CoherenceFloor:    0.9,
	}
}

// #endregion config

// #region outcome
// Outcome is the result of one policy evaluation. On rejection, Deviation
// carries the learning signal: the difference between the candidate posture
// and the reference point of the failed check.
type Outcome struct {
	Verdict   Verdict
	Deviation triad.Vector
	Reason    string
}

// Rejected reports whether any check failed.
func (o Outcome) Rejected() bool {
	return o.Verdict != Accepted
}

// #endregion outcome
