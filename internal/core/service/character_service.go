package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hitpoints/hitpoints-service/internal/core/domain"
	"github.com/hitpoints/hitpoints-service/internal/core/ports"
	"github.com/hitpoints/hitpoints-service/internal/pkg/metrics"
)

// DedupChecker abstracts the idempotency store (Redis). Reserve must be atomic
// across nodes.
type DedupChecker interface {
	Reserve(ctx context.Context, characterID, key string) (bool, error)
	Release(ctx context.Context, characterID, key string) error
}

// Serializer runs jobs one at a time per key.
type Serializer interface {
	Submit(ctx context.Context, key string, job func(ctx context.Context) error) error
}

type characterService struct {
	repo     ports.CharacterRepository
	notifier ports.ChangeNotifier
	lanes    Serializer
	dedup    DedupChecker
	log      zerolog.Logger
}

// NewCharacterService returns the mutation coordinator. dedup may be nil, in
// which case idempotency keys are ignored.
func NewCharacterService(
	repo ports.CharacterRepository,
	notifier ports.ChangeNotifier,
	lanes Serializer,
	dedup DedupChecker,
	log zerolog.Logger,
) ports.CharacterService {
	return &characterService{
		repo:     repo,
		notifier: notifier,
		lanes:    lanes,
		dedup:    dedup,
		log:      log,
	}
}

func (s *characterService) GetAllCharacters(ctx context.Context) ([]*domain.Character, error) {
	chars, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("get all characters: %w", err)
	}
	return chars, nil
}

func (s *characterService) GetCharacter(ctx context.Context, id string) (*domain.Character, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get character %s: %w", id, err)
	}
	return c, nil
}

func (s *characterService) DealDamage(ctx context.Context, id string, kind domain.DamageKind, amount int, idempotencyKey string) (*ports.MutationResult, error) {
	return s.ApplyCommand(ctx, ports.ApplyCommandInput{CharacterID: id, Command: domain.Damage(kind, amount), IdempotencyKey: idempotencyKey})
}

func (s *characterService) Heal(ctx context.Context, id string, amount int, idempotencyKey string) (*ports.MutationResult, error) {
	return s.ApplyCommand(ctx, ports.ApplyCommandInput{CharacterID: id, Command: domain.Heal(amount), IdempotencyKey: idempotencyKey})
}

func (s *characterService) AddTemporaryHitPoints(ctx context.Context, id string, amount int, idempotencyKey string) (*ports.MutationResult, error) {
	return s.ApplyCommand(ctx, ports.ApplyCommandInput{CharacterID: id, Command: domain.GrantTemporaryHitPoints(amount), IdempotencyKey: idempotencyKey})
}

// ApplyCommand validates the command, then applies it inside the lane of its
// character: read, transform, save, notify. Commands for one character never
// overlap; a command whose save fails is reported and never announced.
func (s *characterService) ApplyCommand(ctx context.Context, in ports.ApplyCommandInput) (*ports.MutationResult, error) {
	cmd := in.Command
	if strings.TrimSpace(in.CharacterID) == "" {
		metrics.MutationsTotal.WithLabelValues(string(cmd.Type), "invalid").Inc()
		return nil, fmt.Errorf("apply command: %w: character id is required", domain.ErrInvalidCommand)
	}
	if err := cmd.Validate(); err != nil {
		metrics.MutationsTotal.WithLabelValues(string(cmd.Type), "invalid").Inc()
		return nil, fmt.Errorf("apply command: %w", err)
	}

	var result *ports.MutationResult
	err := s.lanes.Submit(ctx, in.CharacterID, func(ctx context.Context) error {
		r, err := s.mutate(ctx, in)
		result = r
		return err
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			metrics.MutationsTotal.WithLabelValues(string(cmd.Type), "abandoned").Inc()
		}
		return nil, err
	}
	return result, nil
}

// mutate runs with exclusive ownership of the character's health state.
func (s *characterService) mutate(ctx context.Context, in ports.ApplyCommandInput) (*ports.MutationResult, error) {
	start := time.Now()
	cmd := in.Command
	label := string(cmd.Type)

	// 1. Idempotency reservation. A failing dedup store never blocks the command.
	reserved := false
	if in.IdempotencyKey != "" && s.dedup != nil {
		ok, err := s.dedup.Reserve(ctx, in.CharacterID, in.IdempotencyKey)
		switch {
		case err != nil:
			s.log.Warn().Err(err).Str("character_id", in.CharacterID).Msg("dedup reserve failed, applying anyway")
		case !ok:
			metrics.DedupTotal.WithLabelValues("hit").Inc()
			metrics.MutationsTotal.WithLabelValues(label, "replayed").Inc()
			s.log.Debug().Str("character_id", in.CharacterID).Str("idempotency_key", in.IdempotencyKey).Msg("replayed command skipped")
			state, err := s.repo.GetForMutation(ctx, in.CharacterID)
			if err != nil {
				return nil, fmt.Errorf("apply %s: %w", label, err)
			}
			return &ports.MutationResult{CharacterID: in.CharacterID, Health: state, Replayed: true}, nil
		default:
			metrics.DedupTotal.WithLabelValues("miss").Inc()
			reserved = true
		}
	}
	release := func() {
		if !reserved {
			return
		}
		if err := s.dedup.Release(ctx, in.CharacterID, in.IdempotencyKey); err != nil {
			s.log.Warn().Err(err).Str("character_id", in.CharacterID).Msg("failed to release dedup key")
		}
	}

	// 2. Load.
	before, err := s.repo.GetForMutation(ctx, in.CharacterID)
	if err != nil {
		release()
		if errors.Is(err, domain.ErrCharacterNotFound) {
			metrics.MutationsTotal.WithLabelValues(label, "not_found").Inc()
			return nil, fmt.Errorf("apply %s: %w", label, domain.ErrCharacterNotFound)
		}
		metrics.MutationsTotal.WithLabelValues(label, "persistence_failure").Inc()
		return nil, fmt.Errorf("apply %s: load: %w: %w", label, domain.ErrPersistenceFailure, err)
	}

	// 3. Transform.
	after := domain.Apply(before, cmd)
	recordAbsorbed(before, cmd)

	// 4. Persist. Nothing is announced unless this succeeds.
	if err := s.repo.Save(ctx, in.CharacterID, after); err != nil {
		release()
		metrics.MutationsTotal.WithLabelValues(label, "persistence_failure").Inc()
		s.log.Error().Err(err).Str("character_id", in.CharacterID).Str("command", label).Msg("failed to save character")
		return nil, fmt.Errorf("apply %s: %w: %w", label, domain.ErrPersistenceFailure, err)
	}
	after.Revision = before.Revision + 1

	// 5. Notify. The change is durable at this point, so a failed publish is
	// logged and the command still succeeds.
	if err := s.notifier.Publish(ctx, in.CharacterID); err != nil {
		s.log.Warn().Err(err).Str("character_id", in.CharacterID).Msg("failed to publish character change")
	}

	result := "applied"
	if !domain.Changed(before, after) {
		result = "unchanged"
	}
	metrics.MutationsTotal.WithLabelValues(label, result).Inc()
	metrics.MutationDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())

	s.log.Info().
		Str("character_id", in.CharacterID).
		Str("command", label).
		Int("amount", cmd.Amount).
		Int("current_hit_points", after.CurrentHitPoints).
		Int("temporary_hit_points", after.TemporaryHitPoints).
		Bool("changed", result == "applied").
		Msg("command applied")

	return &ports.MutationResult{CharacterID: in.CharacterID, Health: after}, nil
}

func recordAbsorbed(h domain.HealthState, cmd domain.Command) {
	if cmd.Type != domain.CommandDamage || cmd.Amount == 0 {
		return
	}
	switch {
	case h.HasImmunityTo(cmd.DamageKind):
		metrics.DamageAbsorbedTotal.WithLabelValues(string(domain.DefenseImmunity)).Add(float64(cmd.Amount))
	case h.HasResistanceTo(cmd.DamageKind):
		metrics.DamageAbsorbedTotal.WithLabelValues(string(domain.DefenseResistance)).Add(float64(cmd.Amount / 2))
	}
}
