package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mairylabs/triadic-controller/internal/policy"
	"github.com/mairylabs/triadic-controller/internal/triad"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description     string                  `json:"description"`
	Config          FixtureConfig           `json:"config"`
	Turns           []FixtureTurn           `json:"turns"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results"`
}

// FixtureTriad mirrors triad.Score with JSON tags.
type FixtureTriad struct {
	Kindness float64 `json:"kindness"`
	Freedom  float64 `json:"freedom"`
	Truth    float64 `json:"truth"`
}

// FixtureCandidate is one pre-scored generation attempt.
type FixtureCandidate struct {
	Text  string       `json:"text"`
	Triad FixtureTriad `json:"triad"`
}

// FixtureTurn is one recorded turn: the input posture, the target the
// shell held at that moment, and the candidates the model produced.
type FixtureTurn struct {
	TurnID     string             `json:"turn_id"`
	Input      string             `json:"input"`
	InputTriad FixtureTriad       `json:"input_triad"`
	Target     FixtureTriad       `json:"target"`
	Candidates []FixtureCandidate `json:"candidates"`
}

// FixtureExpectedResult captures the expected outcome per turn.
type FixtureExpectedResult struct {
	TurnID       string `json:"turn_id"`
	Status       string `json:"status"`
	AttemptsUsed int    `json:"attempts_used"`
	CandidateID  string `json:"candidate_id"`
}

// FixtureConfig mirrors policy.Config with JSON tags.
type FixtureConfig struct {
	BandLo            float64 `json:"band_lo"`
	BandHi            float64 `json:"band_hi"`
	TensionTrigger    float64 `json:"tension_trigger"`
	TensionFloor      float64 `json:"tension_floor"`
	MaxTargetDistance float64 `json:"max_target_distance"`
	CoherenceTrigger  float64 `json:"coherence_trigger"`
	CoherenceFloor    float64 `json:"coherence_floor"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// ToScore converts a FixtureTriad to a domain Score.
func (ft FixtureTriad) ToScore() triad.Score {
	return triad.Score{Kindness: ft.Kindness, Freedom: ft.Freedom, Truth: ft.Truth}
}

// ToPolicyConfig converts a FixtureConfig to a domain policy config. A
// zero-valued config falls back to the production defaults.
func (fc FixtureConfig) ToPolicyConfig() policy.Config {
	if fc == (FixtureConfig{}) {
		return policy.DefaultConfig()
	}
	return policy.Config{
		Band:              triad.Band{Lo: fc.BandLo, Hi: fc.BandHi},
		TensionTrigger:    fc.TensionTrigger,
		TensionFloor:      fc.TensionFloor,
		MaxTargetDistance: fc.MaxTargetDistance,
		CoherenceTrigger:  fc.CoherenceTrigger,
		CoherenceFloor:    fc.CoherenceFloor,
	}
}

// #endregion fixture-loader
