package provenance

// #region imports
import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mairylabs/triadic-controller/internal/triad"
)

// #endregion

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS provenance (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	turn_id        TEXT NOT NULL,
	status         TEXT NOT NULL,
	attempts_used  INTEGER NOT NULL,
	candidate_id   TEXT NOT NULL,
	input_k        REAL NOT NULL,
	input_f        REAL NOT NULL,
	input_t        REAL NOT NULL,
	output_k       REAL NOT NULL,
	output_f       REAL NOT NULL,
	output_t       REAL NOT NULL,
	created_at     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_provenance_created ON provenance(created_at);
`

// #endregion schema

// #region entry

// Entry is one audited turn outcome. Only final outcomes land here, not
// intermediate attempts.
type Entry struct {
	TurnID       string
	Status       string
	AttemptsUsed int
	CandidateID  string
	InputTriad   triad.Score
	OutputTriad  triad.Score
	CreatedAt    time.Time
}

// #endregion entry

// #region operations

// Init creates the provenance table if needed.
func Init(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create provenance table: %w", err)
	}
	return nil
}

// Log appends one turn outcome.
func Log(db *sql.DB, e Entry) error {
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := db.Exec(
		`INSERT INTO provenance
		 (turn_id, status, attempts_used, candidate_id,
		  input_k, input_f, input_t, output_k, output_f, output_t, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.TurnID, e.Status, e.AttemptsUsed, e.CandidateID,
		e.InputTriad.Kindness, e.InputTriad.Freedom, e.InputTriad.Truth,
		e.OutputTriad.Kindness, e.OutputTriad.Freedom, e.OutputTriad.Truth,
		createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log provenance: %w", err)
	}
	return nil
}

// Recent returns the latest n entries, newest first.
func Recent(db *sql.DB, n int) ([]Entry, error) {
	rows, err := db.Query(
		`SELECT turn_id, status, attempts_used, candidate_id,
		        input_k, input_f, input_t, output_k, output_f, output_t, created_at
		 FROM provenance ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query provenance: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var createdStr string
		err := rows.Scan(&e.TurnID, &e.Status, &e.AttemptsUsed, &e.CandidateID,
			&e.InputTriad.Kindness, &e.InputTriad.Freedom, &e.InputTriad.Truth,
			&e.OutputTriad.Kindness, &e.OutputTriad.Freedom, &e.OutputTriad.Truth,
			&createdStr)
		if err != nil {
			return nil, fmt.Errorf("scan provenance: %w", err)
		}
		if t, perr := time.Parse(time.RFC3339Nano, createdStr); perr == nil {
			e.CreatedAt = t
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate provenance: %w", err)
	}
	return entries, nil
}

// #endregion operations
