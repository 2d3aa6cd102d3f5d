package policy

import (
	"fmt"

	"github.com/mairylabs/triadic-controller/internal/triad"
)

// #region policy
// Policy evaluates whether a candidate response posture should be accepted.
// Checks run in a fixed order with early exit on first failure:
// hard bound, geometric tension, target proximity, semantic coherence.
// Evaluate is a pure function of its inputs.
type Policy struct {
	config Config
}

// New creates a policy with the given configuration.
func New(config Config) *Policy {
	return &Policy{config: config}
}

// Evaluate checks candidate posture v against the adaptive target and the
// input posture. The deviation reference differs per check: the hard bound
// measures against the fixed reference posture, the remaining checks against
// the target.
func (p *Policy) Evaluate(v, target, input triad.Score) Outcome {
	vv := v.Vector()
	tv := target.Vector()

	// 1. Hard bound: componentwise containment in the harmonic band.
	if !p.config.Band.Contains(vv) {
		return Outcome{
			Verdict:   RejectedHardBound,
			Deviation: vv.Sub(triad.V0),
			Reason:    fmt.Sprintf("out of harmonic band: %s", v),
		}
	}

	// 2. Geometric tension: no component dominates without support from
	// its correlated partner.
	if reason, ok := p.checkTension(v); !ok {
		return Outcome{
			Verdict:   RejectedTension,
			Deviation: vv.Sub(tv),
			Reason:    fmt.Sprintf("geometric tension violated: %s (%s)", reason, v),
		}
	}

	// 3. Target proximity. The boundary itself passes.
	dist := vv.Distance(tv)
	if dist > p.config.MaxTargetDistance {
		return Outcome{
			Verdict:   RejectedProximity,
			Deviation: vv.Sub(tv),
			Reason:    fmt.Sprintf("too far from target (%.2f)", dist),
		}
	}

	// 4. Semantic coherence against the input posture.
	if reason, ok := p.checkCoherence(v, input); !ok {
		return Outcome{
			Verdict:   RejectedCoherence,
			Deviation: vv.Sub(tv),
			Reason:    fmt.Sprintf("semantic coherence failed: %s", reason),
		}
	}

	return Outcome{
		Verdict: Accepted,
		Reason:  fmt.Sprintf("passed: distance_to_target=%.2f", dist),
	}
}

// #endregion policy

// #region tension

// checkTension verifies the cross-component implications:
// freedom needs truth (no freedom through deception), truth needs kindness
// (harsh truth needs care), kindness needs freedom (care must not control).
func (p *Policy) checkTension(v triad.Score) (string, bool) {
	trigger := p.config.TensionTrigger
	floor := p.config.TensionFloor

	if v.Freedom > trigger && v.Truth < floor {
		return "freedom without truth", false
	}
	if v.Truth > trigger && v.Kindness < floor {
		return "truth without kindness", false
	}
	if v.Kindness > trigger && v.Freedom < floor {
		return "kindness without freedom", false
	}
	return "", true
}

// #endregion tension

// #region coherence

// checkCoherence cross-checks the output posture against the input posture:
// a truth-seeking input must not get an evasive output, a care-seeking input
// must not get a careless one.
func (p *Policy) checkCoherence(v, input triad.Score) (string, bool) {
	if input.Truth > p.config.CoherenceTrigger && v.Truth < p.config.CoherenceFloor {
		return "truth sought but not given", false
	}
	if input.Kindness > p.config.CoherenceTrigger && v.Kindness < p.config.CoherenceFloor {
		return "care sought but not given", false
	}
	return "", true
}

// #endregion coherence
