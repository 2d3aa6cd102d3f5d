package shell

import (
	"context"
	"database/sql"
	"math"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/mairylabs/triadic-controller/internal/triad"
)

func tempManager(t *testing.T) (*Manager, *sql.DB) {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "shell.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	m, err := NewManager(db, DefaultConfig())
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m, db
}

func TestSeededState(t *testing.T) {
	m, _ := tempManager(t)
	ctx := context.Background()

	actx, err := m.ComputeContext(ctx, triad.Score{Kindness: 1, Freedom: 1, Truth: 1}, nil)
	if err != nil {
		t.Fatalf("compute context: %v", err)
	}
	if actx.TargetTriad.Kindness != 1.0 || actx.TargetTriad.Freedom != 1.0 || actx.TargetTriad.Truth != 1.0 {
		t.Errorf("fresh target = %s, want neutral", actx.TargetTriad.String())
	}
	if got := actx.Stats["trajectory"]; got != TrajectorySettled {
		t.Errorf("fresh trajectory = %v, want %q", got, TrajectorySettled)
	}
	if got := actx.Stats["interactions"]; got != 0 {
		t.Errorf("fresh interactions = %v, want 0", got)
	}
}

func TestSeedIdempotent(t *testing.T) {
	m, db := tempManager(t)
	if _, err := NewManager(db, DefaultConfig()); err != nil {
		t.Fatalf("second manager: %v", err)
	}

	sum, err := m.StateSummary(context.Background())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum["interactions"] != 0 {
		t.Errorf("interactions = %v after reseed, want 0", sum["interactions"])
	}
}

func TestUpdatePullsTowardMidpoint(t *testing.T) {
	m, _ := tempManager(t)
	ctx := context.Background()

	in := triad.Score{Kindness: 1.2, Freedom: 1.0, Truth: 0.8}
	out := triad.Score{Kindness: 1.0, Freedom: 1.0, Truth: 1.0}
	if err := m.UpdateFromInteraction(ctx, in, out); err != nil {
		t.Fatalf("update: %v", err)
	}

	sum, err := m.StateSummary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	// Midpoint is (1.1, 1.0, 0.9); with pull 0.2 the target moves a fifth
	// of the way from neutral.
	wantK := 0.8*1.0 + 0.2*1.1
	if got := sum["target_kindness"].(float64); math.Abs(got-wantK) > 1e-9 {
		t.Errorf("target kindness = %.4f, want %.4f", got, wantK)
	}
	if got := sum["target_freedom"].(float64); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("target freedom = %.4f, want 1.0", got)
	}
	if sum["interactions"] != 1 {
		t.Errorf("interactions = %v, want 1", sum["interactions"])
	}
}

func TestUpdateClampsToBand(t *testing.T) {
	m, _ := tempManager(t)
	ctx := context.Background()

	// Hammer the target upward far past the band ceiling.
	in := triad.Score{Kindness: 3.0, Freedom: 3.0, Truth: 3.0}
	out := triad.Score{Kindness: 3.0, Freedom: 3.0, Truth: 3.0}
	for i := 0; i < 20; i++ {
		if err := m.UpdateFromInteraction(ctx, in, out); err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
	}

	sum, err := m.StateSummary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	band := triad.DefaultBand()
	for _, key := range []string{"target_kindness", "target_freedom", "target_truth"} {
		if got := sum[key].(float64); got > band.Hi+1e-9 {
			t.Errorf("%s = %.4f, exceeds band ceiling %.2f", key, got, band.Hi)
		}
	}
}

func TestTrajectoryLabels(t *testing.T) {
	m, _ := tempManager(t)
	ctx := context.Background()

	// A big swing marks the state as drifting.
	swing := triad.Score{Kindness: 1.2, Freedom: 1.2, Truth: 0.8}
	if err := m.UpdateFromInteraction(ctx, swing, swing); err != nil {
		t.Fatalf("update: %v", err)
	}
	traj, err := m.Trajectory(ctx)
	if err != nil {
		t.Fatalf("trajectory: %v", err)
	}
	if traj != TrajectoryDrifting {
		t.Errorf("trajectory after swing = %q, want %q", traj, TrajectoryDrifting)
	}

	// Repeating the same posture converges; the target stops moving and
	// the state settles.
	for i := 0; i < 50; i++ {
		if err := m.UpdateFromInteraction(ctx, swing, swing); err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
	}
	traj, err = m.Trajectory(ctx)
	if err != nil {
		t.Fatalf("trajectory: %v", err)
	}
	if traj != TrajectorySettled {
		t.Errorf("trajectory after convergence = %q, want %q", traj, TrajectorySettled)
	}
}

func TestStatePersistsAcrossManagers(t *testing.T) {
	m, db := tempManager(t)
	ctx := context.Background()

	in := triad.Score{Kindness: 1.2, Freedom: 1.0, Truth: 0.8}
	if err := m.UpdateFromInteraction(ctx, in, in); err != nil {
		t.Fatalf("update: %v", err)
	}

	m2, err := NewManager(db, DefaultConfig())
	if err != nil {
		t.Fatalf("reopen manager: %v", err)
	}
	sum, err := m2.StateSummary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum["interactions"] != 1 {
		t.Errorf("interactions after reopen = %v, want 1", sum["interactions"])
	}
}
