package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/snow-ghost/wolfpack/core"
	"github.com/snow-ghost/wolfpack/optimizer"
)

type memoryRun struct {
	result    core.Result
	createdAt time.Time
}

// Memory is an in-process Store.
type Memory struct {
	mu          sync.RWMutex
	runs        map[string]memoryRun
	checkpoints map[string]optimizer.State
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		runs:        make(map[string]memoryRun),
		checkpoints: make(map[string]optimizer.State),
	}
}

func (m *Memory) SaveRun(_ context.Context, r core.Result) error {
	if r.RunID == "" {
		return fmt.Errorf("store: run without id")
	}
	r.BestPosition = slices.Clone(r.BestPosition)
	r.History = slices.Clone(r.History)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[r.RunID] = memoryRun{result: r, createdAt: time.Now()}
	return nil
}

func (m *Memory) GetRun(_ context.Context, id string) (core.Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[id]
	if !ok {
		return core.Result{}, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	r := run.result
	r.BestPosition = slices.Clone(r.BestPosition)
	r.History = slices.Clone(r.History)
	return r, nil
}

func (m *Memory) ListRuns(_ context.Context, filter RunFilter) ([]RunInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []RunInfo
	for id, run := range m.runs {
		if filter.Algorithm != "" && run.result.Algorithm != filter.Algorithm {
			continue
		}
		out = append(out, RunInfo{
			ID:          id,
			Algorithm:   run.result.Algorithm,
			BestFitness: run.result.BestFitness,
			Generations: len(run.result.History),
			CreatedAt:   run.createdAt,
		})
	}

	// Sort by creation time descending
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *Memory) SaveCheckpoint(_ context.Context, runID string, st optimizer.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.checkpoints[runID]; ok && cur.Generation > st.Generation {
		return nil
	}
	m.checkpoints[runID] = st
	return nil
}

func (m *Memory) LatestCheckpoint(_ context.Context, runID string) (optimizer.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.checkpoints[runID]
	if !ok {
		return optimizer.State{}, fmt.Errorf("checkpoint %s: %w", runID, ErrNotFound)
	}
	return st, nil
}

func (m *Memory) Close() error { return nil }
