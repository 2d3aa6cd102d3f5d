package shell

// #region imports
import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mairylabs/triadic-controller/internal/memory"
	"github.com/mairylabs/triadic-controller/internal/orchestrator"
	"github.com/mairylabs/triadic-controller/internal/triad"
)

// #endregion

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS shell_state (
	id            INTEGER PRIMARY KEY CHECK (id = 1),
	target_k      REAL NOT NULL,
	target_f      REAL NOT NULL,
	target_t      REAL NOT NULL,
	trajectory    TEXT NOT NULL,
	interactions  INTEGER NOT NULL DEFAULT 0,
	updated_at    TEXT NOT NULL
);
`

// #endregion schema

// #region trajectories

// Trajectory labels for the shell state.
const (
	TrajectorySettled     = "settled"
	TrajectoryStabilizing = "stabilizing"
	TrajectoryDrifting    = "drifting"
)

// #endregion trajectories

// #region config

// Config tunes the adaptive target computation.
type Config struct {
	TargetPull   float64 // EMA weight pulling the target toward observed postures
	DriftCutoff  float64 // per-update target movement above this marks drifting
	SettleCutoff float64 // per-update target movement below this marks settled
	Band         triad.Band
}

// DefaultConfig returns the production shell settings.
func DefaultConfig() Config {
	return Config{
		TargetPull:   0.2,
		DriftCutoff:  0.05,
		SettleCutoff: 0.01,
		Band:         triad.DefaultBand(),
	}
}

// #endregion config

// #region manager

// Manager maintains the adaptive target posture and its trajectory in
// SQLite. It implements the pipeline's context provider contract.
type Manager struct {
	db     *sql.DB
	config Config
}

// NewManager initializes the shell_state row if needed and returns a Manager.
func NewManager(db *sql.DB, config Config) (*Manager, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create shell_state table: %w", err)
	}
	_, err := db.Exec(
		`INSERT INTO shell_state (id, target_k, target_f, target_t, trajectory, interactions, updated_at)
		 VALUES (1, ?, ?, ?, ?, 0, ?)
		 ON CONFLICT(id) DO NOTHING`,
		triad.V0[0], triad.V0[1], triad.V0[2], TrajectorySettled,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("seed shell state: %w", err)
	}
	return &Manager{db: db, config: config}, nil
}

// #endregion manager

// #region state-row

type stateRow struct {
	target       triad.Vector
	trajectory   string
	interactions int
}

func (m *Manager) load(ctx context.Context) (stateRow, error) {
	var row stateRow
	err := m.db.QueryRowContext(ctx,
		`SELECT target_k, target_f, target_t, trajectory, interactions FROM shell_state WHERE id = 1`,
	).Scan(&row.target[0], &row.target[1], &row.target[2], &row.trajectory, &row.interactions)
	if err != nil {
		return stateRow{}, fmt.Errorf("load shell state: %w", err)
	}
	return row, nil
}

// #endregion state-row

// #region compute-context

// ComputeContext returns the current adaptive target for a turn, plus
// opaque stats for the pipeline result.
func (m *Manager) ComputeContext(ctx context.Context, inputTriad triad.Score, memories []memory.Exchange) (orchestrator.AdaptiveContext, error) {
	row, err := m.load(ctx)
	if err != nil {
		return orchestrator.AdaptiveContext{}, err
	}
	return orchestrator.AdaptiveContext{
		TargetTriad: triad.Score{
			Kindness:  row.target[0],
			Freedom:   row.target[1],
			Truth:     row.target[2],
			Reasoning: "adaptive target",
		},
		Stats: map[string]any{
			"trajectory":          row.trajectory,
			"interactions":        row.interactions,
			"memories_considered": len(memories),
		},
	}, nil
}

// #endregion compute-context

// #region update

// UpdateFromInteraction pulls the target toward the midpoint of the observed
// input/output postures, clamps it to the harmonic band, and relabels the
// trajectory from the size of the move.
func (m *Manager) UpdateFromInteraction(ctx context.Context, in, out triad.Score) error {
	row, err := m.load(ctx)
	if err != nil {
		return err
	}

	iv, ov := in.Vector(), out.Vector()
	var next triad.Vector
	for i := range next {
		mid := (iv[i] + ov[i]) / 2
		next[i] = clampToBand((1-m.config.TargetPull)*row.target[i]+m.config.TargetPull*mid, m.config.Band)
	}

	move := next.Distance(row.target)
	trajectory := TrajectoryStabilizing
	switch {
	case move > m.config.DriftCutoff:
		trajectory = TrajectoryDrifting
	case move < m.config.SettleCutoff:
		trajectory = TrajectorySettled
	}

	_, err = m.db.ExecContext(ctx,
		`UPDATE shell_state
		 SET target_k = ?, target_f = ?, target_t = ?, trajectory = ?,
		     interactions = interactions + 1, updated_at = ?
		 WHERE id = 1`,
		next[0], next[1], next[2], trajectory,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("update shell state: %w", err)
	}
	return nil
}

func clampToBand(v float64, band triad.Band) float64 {
	if v < band.Lo {
		return band.Lo
	}
	if v > band.Hi {
		return band.Hi
	}
	return v
}

// #endregion update

// #region accessors

// Trajectory returns the current trajectory label.
func (m *Manager) Trajectory(ctx context.Context) (string, error) {
	row, err := m.load(ctx)
	if err != nil {
		return "", err
	}
	return row.trajectory, nil
}

// StateSummary returns an opaque snapshot of the shell state.
func (m *Manager) StateSummary(ctx context.Context) (map[string]any, error) {
	row, err := m.load(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"target_kindness": row.target[0],
		"target_freedom":  row.target[1],
		"target_truth":    row.target[2],
		"trajectory":      row.trajectory,
		"interactions":    row.interactions,
	}, nil
}

// #endregion accessors
