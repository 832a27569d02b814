// Package jobs keeps a sqlite ledger of structure-prediction requests so a
// long run can be inspected or resumed by hand.
package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

// State is the lifecycle position of a prediction job.
type State string

// Job states. A job starts submitted, moves to polling while the service
// answers 202 and ends done, failed or skipped.
const (
	StateSubmitted State = "submitted"
	StatePolling   State = "polling"
	StateDone      State = "done"
	StateFailed    State = "failed"
	StateSkipped   State = "skipped"
)

// ErrNotFound is returned by Update when no job has the given id.
var ErrNotFound = errors.New("job not found")

// Job is one prediction request for one accession.
type Job struct {
	ID        string
	Accession string
	RequestID string
	State     State
	Message   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

const schema = `CREATE TABLE IF NOT EXISTS jobs (
	id TEXT PRIMARY KEY,
	accession TEXT NOT NULL,
	request_id TEXT,
	state TEXT NOT NULL,
	message TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

// Store is the sqlite-backed ledger.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating when needed) the ledger database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating ledger directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Create records a new submitted job for acc.
func (s *Store) Create(ctx context.Context, acc string) (Job, error) {
	now := s.now().Truncate(time.Second)
	j := Job{
		ID:        uuid.New().String(),
		Accession: acc,
		State:     StateSubmitted,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, accession, request_id, state, message, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		j.ID, j.Accession, "", string(j.State), "", formatTime(now), formatTime(now))
	if err != nil {
		return Job{}, fmt.Errorf("inserting job for %s: %w", acc, err)
	}
	return j, nil
}

// Update moves job id to state. An empty reqID keeps the stored one.
func (s *Store) Update(ctx context.Context, id string, state State, reqID, msg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET state = ?, request_id = CASE WHEN ? = '' THEN request_id ELSE ? END, message = ?, updated_at = ? WHERE id = ?`,
		string(state), reqID, reqID, msg, formatTime(s.now()), id)
	if err != nil {
		return fmt.Errorf("updating job %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return nil
}

// List returns every job, oldest first.
func (s *Store) List(ctx context.Context) ([]Job, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, accession, COALESCE(request_id, ''), state, COALESCE(message, ''), created_at, updated_at FROM jobs ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		var (
			j                Job
			state            string
			created, updated string
		)
		if err := rows.Scan(&j.ID, &j.Accession, &j.RequestID, &state, &j.Message, &created, &updated); err != nil {
			return nil, err
		}
		j.State = State(state)
		if j.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
			return nil, fmt.Errorf("parsing created_at of job %s: %w", j.ID, err)
		}
		if j.UpdatedAt, err = time.Parse(time.RFC3339, updated); err != nil {
			return nil, fmt.Errorf("parsing updated_at of job %s: %w", j.ID, err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339) }
