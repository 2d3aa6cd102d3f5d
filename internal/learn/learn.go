package learn

// #region imports
import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/mairylabs/triadic-controller/internal/triad"
)

// #endregion

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS deviation_log (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	dev_k       REAL NOT NULL,
	dev_f       REAL NOT NULL,
	dev_t       REAL NOT NULL,
	reason      TEXT NOT NULL,
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_deviation_created ON deviation_log(created_at);
`

// #endregion schema

// #region deviation-log

// DeviationLog records policy rejections in SQLite so later turns can see
// which directions candidates keep missing in.
type DeviationLog struct {
	db *sql.DB
}

// NewDeviationLog creates the deviation table if needed.
func NewDeviationLog(db *sql.DB) (*DeviationLog, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create deviation_log table: %w", err)
	}
	return &DeviationLog{db: db}, nil
}

// Absorb stores one rejection deviation with its reason.
func (l *DeviationLog) Absorb(ctx context.Context, deviation triad.Vector, reason string) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO deviation_log (dev_k, dev_f, dev_t, reason, created_at) VALUES (?, ?, ?, ?, ?)`,
		deviation[0], deviation[1], deviation[2], reason,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record deviation: %w", err)
	}
	return nil
}

// #endregion deviation-log

// #region weighted-mean

const decayHalfLifeHours = 7.0 * 24.0

// WeightedMean returns the decay-weighted mean deviation over the most
// recent records, plus the number of records considered. Recent rejections
// count more; a week-old rejection carries 1/e the weight of a fresh one.
// Returns a zero vector when the log is empty.
func (l *DeviationLog) WeightedMean(ctx context.Context, limit int) (triad.Vector, int, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT dev_k, dev_f, dev_t, created_at FROM deviation_log ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return triad.Vector{}, 0, fmt.Errorf("query deviations: %w", err)
	}
	defer rows.Close()

	now := time.Now()
	var sum triad.Vector
	var totalWeight float64
	count := 0

	for rows.Next() {
		var dev triad.Vector
		var createdStr string
		if err := rows.Scan(&dev[0], &dev[1], &dev[2], &createdStr); err != nil {
			return triad.Vector{}, 0, fmt.Errorf("scan deviation: %w", err)
		}
		createdAt, err := time.Parse(time.RFC3339Nano, createdStr)
		if err != nil {
			continue
		}
		weight := math.Exp(-now.Sub(createdAt).Hours() / decayHalfLifeHours)
		for i := range sum {
			sum[i] += dev[i] * weight
		}
		totalWeight += weight
		count++
	}
	if err := rows.Err(); err != nil {
		return triad.Vector{}, 0, fmt.Errorf("iterate deviations: %w", err)
	}

	if totalWeight == 0 {
		return triad.Vector{}, 0, nil
	}
	for i := range sum {
		sum[i] /= totalWeight
	}
	return sum, count, nil
}

// Count returns the total number of recorded deviations.
func (l *DeviationLog) Count(ctx context.Context) (int, error) {
	var n int
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM deviation_log`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count deviations: %w", err)
	}
	return n, nil
}

// #endregion weighted-mean
