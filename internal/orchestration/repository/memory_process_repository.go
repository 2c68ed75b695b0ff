// Package repository implements in-memory persistence for orchestration processes.
// Records live for the lifetime of the process and are lost on restart.
package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/dsorch/orchestrator/internal/clock"
	"github.com/dsorch/orchestrator/internal/orchestration/domain"
)

// MemoryProcessRepository stores orchestration processes in a mutex-guarded map.
// Every operation holds the lock for its whole duration and callers only ever see copies.
type MemoryProcessRepository struct {
	mu        sync.Mutex
	processes map[string]*domain.Process
	clock     clock.Clock
}

// NewMemoryProcessRepository creates an empty repository.
func NewMemoryProcessRepository(clk clock.Clock) *MemoryProcessRepository {
	return &MemoryProcessRepository{
		processes: make(map[string]*domain.Process),
		clock:     clk,
	}
}

// Create inserts a new process. Ids are never reused.
func (r *MemoryProcessRepository) Create(_ context.Context, process *domain.Process) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.processes[process.ID]; ok {
		return domain.ErrProcessAlreadyExists
	}
	r.processes[process.ID] = process.Clone()
	return nil
}

// Update applies mutate to a copy of the stored process and commits it when mutate succeeds.
// UpdatedAt is refreshed and never moves backwards.
func (r *MemoryProcessRepository) Update(
	_ context.Context,
	id string,
	mutate func(*domain.Process) error,
) (*domain.Process, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.processes[id]
	if !ok {
		return nil, domain.ErrProcessNotFound
	}

	next := current.Clone()
	if err := mutate(next); err != nil {
		return nil, err
	}

	now := r.clock.Now()
	if now.Before(current.UpdatedAt) {
		now = current.UpdatedAt
	}
	next.ID = current.ID
	next.CreatedAt = current.CreatedAt
	next.UpdatedAt = now

	r.processes[id] = next
	return next.Clone(), nil
}

// Get returns a copy of the process with the given id.
func (r *MemoryProcessRepository) Get(_ context.Context, id string) (*domain.Process, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	process, ok := r.processes[id]
	if !ok {
		return nil, domain.ErrProcessNotFound
	}
	return process.Clone(), nil
}

// List returns copies of every process ordered by creation time.
func (r *MemoryProcessRepository) List(_ context.Context) ([]*domain.Process, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	processes := make([]*domain.Process, 0, len(r.processes))
	for _, process := range r.processes {
		processes = append(processes, process.Clone())
	}

	slices.SortFunc(processes, func(a, b *domain.Process) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		// UUIDv7 ids are time ordered
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})

	return processes, nil
}

// DeleteUpdatedBefore removes processes in one of statuses last updated before cutoff
// and returns how many were removed.
func (r *MemoryProcessRepository) DeleteUpdatedBefore(
	_ context.Context,
	cutoff time.Time,
	statuses []domain.Status,
) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	deleted := 0
	for id, process := range r.processes {
		if process.UpdatedAt.Before(cutoff) && slices.Contains(statuses, process.Status) {
			delete(r.processes, id)
			deleted++
		}
	}
	return deleted, nil
}

// CountByStatus returns the number of stored processes per status.
func (r *MemoryProcessRepository) CountByStatus(_ context.Context) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[string]int)
	for _, process := range r.processes {
		counts[string(process.Status)]++
	}
	return counts, nil
}
