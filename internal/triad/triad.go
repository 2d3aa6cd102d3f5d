package triad

import (
	"fmt"
	"math"
)

// #region roles

// Scoring roles for triad evaluation.
const (
	RoleRequester = "requester"
	RoleResponder = "responder"
)

// #endregion roles

// #region score

// Score is a triadic posture with semantic reasoning.
// Canonical order: kindness (care), freedom (autonomy), truth (accuracy).
// Components carry no range restriction at construction; bounds are
// enforced by policy checks, not by the type.
type Score struct {
	Kindness  float64
	Freedom   float64
	Truth     float64
	Reasoning string
}

// Vector returns the numeric components in canonical order.
func (s Score) Vector() Vector {
	return Vector{s.Kindness, s.Freedom, s.Truth}
}

// String formats the components for log lines and failure digests.
func (s Score) String() string {
	return fmt.Sprintf("K=%.2f F=%.2f T=%.2f", s.Kindness, s.Freedom, s.Truth)
}

// Finite reports whether all three components are finite reals.
func (s Score) Finite() bool {
	for _, c := range s.Vector() {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// #endregion score

// #region vector

// Vector is a 3-component posture point in (kindness, freedom, truth) order.
type Vector [3]float64

// V0 is the reference posture, the origin for hard-bound deviation
// measurement. Read-only after initialization; never mutated.
var V0 = Vector{1.0, 1.0, 1.0}

// Sub computes v - other element-wise.
func (v Vector) Sub(other Vector) Vector {
	return Vector{v[0] - other[0], v[1] - other[1], v[2] - other[2]}
}

// Norm computes the Euclidean (L2) norm.
func (v Vector) Norm() float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// Distance computes the Euclidean distance to other.
func (v Vector) Distance(other Vector) float64 {
	return v.Sub(other).Norm()
}

// #endregion vector

// #region band

// Band is a symmetric safety interval applied componentwise around the
// reference posture.
type Band struct {
	Lo float64
	Hi float64
}

// DefaultBand returns the harmonic band [0.8, 1.2].
func DefaultBand() Band {
	return Band{Lo: 0.8, Hi: 1.2}
}

// Contains reports componentwise containment of v within the band.
func (b Band) Contains(v Vector) bool {
	for _, c := range v {
		if c < b.Lo || c > b.Hi {
			return false
		}
	}
	return true
}

// #endregion band
