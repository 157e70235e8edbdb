// Package store persists finished runs and in-flight checkpoints.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/snow-ghost/wolfpack/core"
	"github.com/snow-ghost/wolfpack/optimizer"
)

// ErrNotFound is returned for unknown run IDs.
var ErrNotFound = errors.New("store: not found")

// Store is the full persistence surface used by the runner and the worker.
type Store interface {
	core.RunStore
	ListRuns(ctx context.Context, filter RunFilter) ([]RunInfo, error)
	SaveCheckpoint(ctx context.Context, runID string, st optimizer.State) error
	LatestCheckpoint(ctx context.Context, runID string) (optimizer.State, error)
	Close() error
}

// RunInfo is the listing view of a stored run.
type RunInfo struct {
	ID          string    `json:"id"`
	Algorithm   string    `json:"algorithm"`
	BestFitness float64   `json:"best_fitness"`
	Generations int       `json:"generations"`
	CreatedAt   time.Time `json:"created_at"`
}

// RunFilter narrows ListRuns. Zero values match everything.
type RunFilter struct {
	Algorithm string
	Limit     int
}

// NewRunID returns a fresh run identifier.
func NewRunID() string { return uuid.NewString() }
