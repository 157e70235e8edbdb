package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/snow-ghost/wolfpack/core"
	"github.com/snow-ghost/wolfpack/optimizer"
)

// SQLite persists runs and checkpoints in a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at dbPath. ":memory:" gives a
// private in-memory database.
func NewSQLite(dbPath string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" || strings.Contains(dbPath, "mode=memory") {
		// every connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	s := &SQLite{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *SQLite) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		algorithm TEXT NOT NULL,
		direction TEXT NOT NULL,
		seed INTEGER NOT NULL,
		best_fitness REAL NOT NULL,
		best_position BLOB NOT NULL,
		history BLOB NOT NULL,
		evaluations INTEGER NOT NULL,
		duration_ns INTEGER NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_algorithm ON runs(algorithm);
	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);

	CREATE TABLE IF NOT EXISTS checkpoints (
		run_id TEXT NOT NULL,
		generation INTEGER NOT NULL,
		state BLOB NOT NULL,
		created_at DATETIME NOT NULL,
		PRIMARY KEY (run_id, generation)
	);
	`
	_, err := s.db.Exec(query)
	return err
}

func (s *SQLite) SaveRun(ctx context.Context, r core.Result) error {
	if r.RunID == "" {
		return fmt.Errorf("store: run without id")
	}
	position, err := json.Marshal(r.BestPosition)
	if err != nil {
		return fmt.Errorf("encode best position: %w", err)
	}
	history, err := json.Marshal(r.History)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	query := `
	INSERT OR REPLACE INTO runs (
		id, algorithm, direction, seed, best_fitness, best_position,
		history, evaluations, duration_ns, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		r.RunID,
		r.Algorithm,
		r.Direction.String(),
		int64(r.Seed),
		r.BestFitness,
		position,
		history,
		r.Evaluations,
		int64(r.Duration),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", r.RunID, err)
	}
	return nil
}

func (s *SQLite) GetRun(ctx context.Context, id string) (core.Result, error) {
	query := `
	SELECT id, algorithm, direction, seed, best_fitness, best_position,
		history, evaluations, duration_ns
	FROM runs WHERE id = ?
	`
	var (
		r                 core.Result
		direction         string
		seed, duration    int64
		position, history []byte
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&r.RunID,
		&r.Algorithm,
		&direction,
		&seed,
		&r.BestFitness,
		&position,
		&history,
		&r.Evaluations,
		&duration,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Result{}, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Result{}, fmt.Errorf("get run %s: %w", id, err)
	}

	if r.Direction, err = core.ParseDirection(direction); err != nil {
		return core.Result{}, err
	}
	if err := json.Unmarshal(position, &r.BestPosition); err != nil {
		return core.Result{}, fmt.Errorf("decode best position: %w", err)
	}
	if err := json.Unmarshal(history, &r.History); err != nil {
		return core.Result{}, fmt.Errorf("decode history: %w", err)
	}
	r.Seed = uint64(seed)
	r.Duration = time.Duration(duration)
	return r, nil
}

func (s *SQLite) ListRuns(ctx context.Context, filter RunFilter) ([]RunInfo, error) {
	query := `SELECT id, algorithm, best_fitness, history, created_at FROM runs`
	var args []interface{}
	if filter.Algorithm != "" {
		query += ` WHERE algorithm = ?`
		args = append(args, filter.Algorithm)
	}
	query += ` ORDER BY created_at DESC, id ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunInfo
	for rows.Next() {
		var (
			info    RunInfo
			history []byte
		)
		if err := rows.Scan(&info.ID, &info.Algorithm, &info.BestFitness, &history, &info.CreatedAt); err != nil {
			return nil, err
		}
		var h []float64
		if err := json.Unmarshal(history, &h); err != nil {
			return nil, fmt.Errorf("decode history: %w", err)
		}
		info.Generations = len(h)
		out = append(out, info)
	}
	return out, rows.Err()
}

func (s *SQLite) SaveCheckpoint(ctx context.Context, runID string, st optimizer.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO checkpoints (run_id, generation, state, created_at) VALUES (?, ?, ?, ?)`,
		runID, st.Generation, data, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save checkpoint %s@%d: %w", runID, st.Generation, err)
	}
	return nil
}

func (s *SQLite) LatestCheckpoint(ctx context.Context, runID string) (optimizer.State, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM checkpoints WHERE run_id = ? ORDER BY generation DESC LIMIT 1`,
		runID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return optimizer.State{}, fmt.Errorf("checkpoint %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return optimizer.State{}, err
	}

	var st optimizer.State
	if err := json.Unmarshal(data, &st); err != nil {
		return optimizer.State{}, fmt.Errorf("decode checkpoint: %w", err)
	}
	return st, nil
}

// Close closes the database
func (s *SQLite) Close() error {
	return s.db.Close()
}

// IsTransient reports whether err is a SQLite busy or locked condition that
// may clear on retry.
func IsTransient(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
}
