package ports

import (
	"context"

	"github.com/hitpoints/hitpoints-service/internal/core/domain"
)

// ApplyCommandInput carries one mutation request from the transport layer.
type ApplyCommandInput struct {
	CharacterID string
	Command     domain.Command
	// IdempotencyKey is optional; a repeated key for the same character is
	// acknowledged without applying the command again.
	IdempotencyKey string
}

// MutationResult is returned for every successful command.
type MutationResult struct {
	CharacterID string
	Health      domain.HealthState
	// Replayed is true when the idempotency key had already been processed.
	Replayed bool
}

// CharacterService defines the use cases of the character tracker.
type CharacterService interface {
	GetAllCharacters(ctx context.Context) ([]*domain.Character, error)
	GetCharacter(ctx context.Context, id string) (*domain.Character, error)

	ApplyCommand(ctx context.Context, in ApplyCommandInput) (*MutationResult, error)
	DealDamage(ctx context.Context, id string, kind domain.DamageKind, amount int, idempotencyKey string) (*MutationResult, error)
	Heal(ctx context.Context, id string, amount int, idempotencyKey string) (*MutationResult, error)
	AddTemporaryHitPoints(ctx context.Context, id string, amount int, idempotencyKey string) (*MutationResult, error)
}
