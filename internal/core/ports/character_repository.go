package ports

import (
	"context"

	"github.com/hitpoints/hitpoints-service/internal/core/domain"
)

// CharacterRepository is the durable store behind the mutation coordinator.
//
// The coordinator serializes mutations per character inside one process; the
// store guards against writers elsewhere by comparing HealthState.Revision on
// Save and returning domain.ErrStaleState on mismatch.
type CharacterRepository interface {
	// GetAll returns every character. Bulk reads are not serialized against
	// mutations and may observe either side of one.
	GetAll(ctx context.Context) ([]*domain.Character, error)
	// GetByID returns domain.ErrCharacterNotFound when id is unknown.
	GetByID(ctx context.Context, id string) (*domain.Character, error)
	// GetForMutation returns the health state of id for a read-modify-write
	// cycle, or domain.ErrCharacterNotFound.
	GetForMutation(ctx context.Context, id string) (domain.HealthState, error)
	// Save writes current and temporary hit points and advances the revision.
	Save(ctx context.Context, id string, state domain.HealthState) error
}

// CharacterSeeder loads the initial roster into a store.
type CharacterSeeder interface {
	Count(ctx context.Context) (int64, error)
	Insert(ctx context.Context, c *domain.Character) error
}
