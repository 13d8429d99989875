// Package resd implements the run service: an in-memory store of model
// runs, an executor that drives them in goroutines, the webhook notifier
// and the HTTP API.
package resd

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hydronet-sim/reservoir-core/pkg/models"
	"github.com/hydronet-sim/reservoir-core/pkg/utils"
)

var (
	ErrRunNotFound = errors.New("run not found")
	ErrRunTerminal = errors.New("run is terminal")
)

// RunStore keeps run records in memory. The store owns the canonical
// records; readers get copies so handlers never race with the executor.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]*models.Run
}

func NewRunStore() *RunStore {
	return &RunStore{
		runs: make(map[string]*models.Run),
	}
}

// Create registers a new pending run. An empty id gets a generated one.
func (s *RunStore) Create(id, title, modelYAML string, meta map[string]string) (*models.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		id = utils.GenerateRunID()
	}
	if _, exists := s.runs[id]; exists {
		return nil, fmt.Errorf("run already exists: %s", id)
	}

	run := &models.Run{
		ID:          id,
		Status:      models.RunStatusPending,
		Title:       title,
		ModelYAML:   modelYAML,
		SubmittedAt: time.Now(),
		Metadata:    meta,
	}
	s.runs[id] = run
	return copyRun(run), nil
}

// Get returns a copy of the run with the given id.
func (s *RunStore) Get(id string) (*models.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return copyRun(run), nil
}

// List returns run summaries, newest first. A status of "" matches every
// run; limit <= 0 falls back to 50.
func (s *RunStore) List(limit, offset int, status models.RunStatus) []models.RunSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	all := make([]models.RunSummary, 0, len(s.runs))
	for _, run := range s.runs {
		if status != "" && run.Status != status {
			continue
		}
		all = append(all, run.Summary())
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].SubmittedAt.Equal(all[j].SubmittedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].SubmittedAt.After(all[j].SubmittedAt)
	})

	if offset >= len(all) {
		return []models.RunSummary{}
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all
}

// MarkRunning transitions a pending run to running. Calling it on a run
// that is already running is a no-op.
func (s *RunStore) MarkRunning(id string) (*models.Run, error) {
	return s.transition(id, func(run *models.Run) {
		if run.Status != models.RunStatusRunning {
			run.MarkRunning()
		}
	})
}

// MarkCompleted transitions a running run to completed and attaches its
// results.
func (s *RunStore) MarkCompleted(id string, results *models.RunResults) (*models.Run, error) {
	return s.transition(id, func(run *models.Run) {
		run.MarkCompleted(results)
	})
}

// MarkFailed transitions a run to failed with the given message.
func (s *RunStore) MarkFailed(id, msg string) (*models.Run, error) {
	return s.transition(id, func(run *models.Run) {
		run.MarkFailed(msg)
	})
}

// MarkCanceled transitions a run to canceled.
func (s *RunStore) MarkCanceled(id string) (*models.Run, error) {
	return s.transition(id, func(run *models.Run) {
		run.MarkCanceled()
	})
}

// transition applies a status change under the write lock. Terminal runs
// stay as they are: a cancellation that lost the race with completion must
// not rewrite history, and vice versa.
func (s *RunStore) transition(id string, apply func(*models.Run)) (*models.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if run.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: %s is %s", ErrRunTerminal, id, run.Status)
	}

	apply(run)
	return copyRun(run), nil
}

// copyRun returns a shallow copy. Results and Metadata are shared with the
// stored record but are never mutated after being set.
func copyRun(run *models.Run) *models.Run {
	cp := *run
	return &cp
}
