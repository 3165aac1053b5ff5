// Package memory is a process-local character store for single-node
// deployments and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hitpoints/hitpoints-service/internal/core/domain"
	"github.com/hitpoints/hitpoints-service/internal/core/ports"
)

// CharacterRepository keeps characters in a map. Every read returns a copy,
// so callers never share state with the store.
type CharacterRepository struct {
	mu    sync.RWMutex
	chars map[string]*domain.Character
}

func NewCharacterRepository() *CharacterRepository {
	return &CharacterRepository{chars: make(map[string]*domain.Character)}
}

var (
	_ ports.CharacterRepository = (*CharacterRepository)(nil)
	_ ports.CharacterSeeder     = (*CharacterRepository)(nil)
)

// GetAll returns characters ordered by id.
func (r *CharacterRepository) GetAll(_ context.Context) ([]*domain.Character, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Character, 0, len(r.chars))
	for _, c := range r.chars {
		out = append(out, c.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *CharacterRepository) GetByID(_ context.Context, id string) (*domain.Character, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.chars[id]
	if !ok {
		return nil, domain.ErrCharacterNotFound
	}
	return c.Clone(), nil
}

func (r *CharacterRepository) GetForMutation(_ context.Context, id string) (domain.HealthState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.chars[id]
	if !ok {
		return domain.HealthState{}, domain.ErrCharacterNotFound
	}
	return c.Health(), nil
}

// Save replaces the hit points of id if state.Revision is still current.
func (r *CharacterRepository) Save(_ context.Context, id string, state domain.HealthState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.chars[id]
	if !ok {
		return domain.ErrCharacterNotFound
	}
	if c.Revision != state.Revision {
		return fmt.Errorf("save %s: %w (have %d, got %d)", id, domain.ErrStaleState, c.Revision, state.Revision)
	}
	state.Revision++
	r.chars[id] = c.WithHealth(state)
	return nil
}

func (r *CharacterRepository) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.chars)), nil
}

// Insert adds or replaces c.
func (r *CharacterRepository) Insert(_ context.Context, c *domain.Character) error {
	if c.ID == "" {
		return fmt.Errorf("insert character: empty id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chars[c.ID] = c.Clone()
	return nil
}
