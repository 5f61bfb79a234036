// Package history persists one audit row per solve-run to a Postgres
// schedule_runs table, so operators can see which seed produced which
// published schedule. Persistence is entirely optional: callers that never
// configure a DSN never open a database connection, although importing this
// package still registers the lib/pq driver.
package history

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/paiban/edrota/pkg/logger"
)

// Store writes schedule_runs rows to Postgres.
type Store struct {
	db *sql.DB
}

// Open connects to the Postgres database at dsn and verifies it is
// reachable. Callers should defer Close.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening history store: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging history store: %w", err)
	}

	logger.Info().Msg("connected to run-history store")
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the schedule_runs table if it does not already
// exist. Safe to call on every invocation.
func (s *Store) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS schedule_runs (
	id            UUID PRIMARY KEY,
	run_at        TIMESTAMPTZ NOT NULL,
	horizon_start DATE NOT NULL,
	horizon_end   DATE NOT NULL,
	seed          BIGINT NOT NULL,
	score         DOUBLE PRECISION NOT NULL,
	feasible      BOOLEAN NOT NULL,
	duration_ms   BIGINT NOT NULL,
	csv_digest    TEXT NOT NULL
)`
	_, err := s.db.ExecContext(ctx, ddl)
	if err != nil {
		return fmt.Errorf("ensuring schedule_runs schema: %w", err)
	}
	return nil
}

// Run is one audited solve-run.
type Run struct {
	ID           uuid.UUID
	RunAt        time.Time
	HorizonStart time.Time
	HorizonEnd   time.Time
	Seed         int64
	Score        float64
	Feasible     bool
	Duration     time.Duration
	CSV          []byte
}

// Record inserts one run row, computing the CSV's digest for later
// comparison without storing the full document.
func (s *Store) Record(ctx context.Context, run Run) (uuid.UUID, error) {
	id := uuid.New()
	digest := sha256.Sum256(run.CSV)

	const stmt = `
INSERT INTO schedule_runs (id, run_at, horizon_start, horizon_end, seed, score, feasible, duration_ms, csv_digest)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := s.db.ExecContext(ctx, stmt,
		id, run.RunAt, run.HorizonStart, run.HorizonEnd, run.Seed, run.Score, run.Feasible,
		run.Duration.Milliseconds(), hex.EncodeToString(digest[:]))
	if err != nil {
		return uuid.Nil, fmt.Errorf("recording run history: %w", err)
	}
	return id, nil
}

// Best returns the lowest-scored feasible run recorded for the given
// horizon, or ok=false if none exists.
func (s *Store) Best(ctx context.Context, horizonStart, horizonEnd time.Time) (run Run, ok bool, err error) {
	const q = `
SELECT id, run_at, horizon_start, horizon_end, seed, score, feasible, duration_ms
FROM schedule_runs
WHERE horizon_start = $1 AND horizon_end = $2 AND feasible = TRUE
ORDER BY score ASC
LIMIT 1`
	row := s.db.QueryRowContext(ctx, q, horizonStart, horizonEnd)

	var durationMS int64
	if err := row.Scan(&run.ID, &run.RunAt, &run.HorizonStart, &run.HorizonEnd, &run.Seed, &run.Score, &run.Feasible, &durationMS); err != nil {
		if err == sql.ErrNoRows {
			return Run{}, false, nil
		}
		return Run{}, false, fmt.Errorf("querying best run: %w", err)
	}
	run.Duration = time.Duration(durationMS) * time.Millisecond
	return run, true, nil
}
