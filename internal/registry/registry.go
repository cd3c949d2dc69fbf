// Package registry holds the authoritative, concurrently-accessed set of
// monitored Position values (component B). It is the sole owner of live
// position state; every other component observes Clone()d copies.
package registry

import (
	"sort"

	"sync"

	"github.com/aegis-labs/aegis/internal/domain"
	"github.com/google/uuid"
)

// Registry is a keyed, thread-safe store of Position values.
type Registry struct {
	mu        sync.RWMutex
	positions map[uuid.UUID]domain.Position
}

// New creates an empty position registry.
func New() *Registry {
	return &Registry{positions: make(map[uuid.UUID]domain.Position)}
}

// Add inserts position. It fails if a position with the same ID is
// already registered.
func (r *Registry) Add(position domain.Position) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.positions[position.ID]; exists {
		return &domain.PositionAlreadyExistsError{ID: position.ID}
	}
	r.positions[position.ID] = position.Clone()
	return nil
}

// Update replaces the stored position, keeping its ID. It fails if no
// position with that ID is registered.
func (r *Registry) Update(position domain.Position) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.positions[position.ID]; !exists {
		return &domain.PositionNotFoundError{ID: position.ID}
	}
	r.positions[position.ID] = position.Clone()
	return nil
}

// Remove deletes the position with the given ID. It fails if no such
// position is registered.
func (r *Registry) Remove(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.positions[id]; !exists {
		return &domain.PositionNotFoundError{ID: id}
	}
	delete(r.positions, id)
	return nil
}

// Get returns a clone of the position with the given ID.
func (r *Registry) Get(id uuid.UUID) (domain.Position, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	position, exists := r.positions[id]
	if !exists {
		return domain.Position{}, &domain.PositionNotFoundError{ID: id}
	}
	return position.Clone(), nil
}

// ListSnapshot returns a clone of every registered position, ordered by
// ID for deterministic iteration by callers such as the monitor sweep.
func (r *Registry) ListSnapshot() []domain.Position {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Position, 0, len(r.positions))
	for _, position := range r.positions {
		out = append(out, position.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// Count returns the number of registered positions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.positions)
}

// ListByProtocol returns a clone of every registered position tagged
// with protocol, ordered by ID.
func (r *Registry) ListByProtocol(protocol string) []domain.Position {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Position, 0)
	for _, position := range r.positions {
		if position.Protocol == protocol {
			out = append(out, position.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}
