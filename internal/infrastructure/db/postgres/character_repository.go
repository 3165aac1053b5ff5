package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitpoints/hitpoints-service/internal/core/domain"
	"github.com/hitpoints/hitpoints-service/internal/core/ports"
)

const uniqueViolation = "23505"

// details holds the descriptive parts of a character that the health engine
// never reads.
type details struct {
	Classes []domain.Class       `json:"classes"`
	Stats   domain.AbilityScores `json:"stats"`
	Items   []domain.Item        `json:"items"`
}

type CharacterRepository struct {
	db *sql.DB
}

func NewCharacterRepository(db *sql.DB) *CharacterRepository {
	return &CharacterRepository{db: db}
}

var (
	_ ports.CharacterRepository = (*CharacterRepository)(nil)
	_ ports.CharacterSeeder     = (*CharacterRepository)(nil)
)

const selectCharacter = `SELECT id, name, level, hit_points, current_hit_points, temporary_hit_points, revision, defenses, details FROM characters`

func (r *CharacterRepository) GetAll(ctx context.Context) ([]*domain.Character, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, selectCharacter+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query characters: %w", err)
	}
	defer rows.Close()

	chars := []*domain.Character{}
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, err
		}
		chars = append(chars, c)
	}
	return chars, rows.Err()
}

func (r *CharacterRepository) GetByID(ctx context.Context, id string) (*domain.Character, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	c, err := scanCharacter(r.db.QueryRowContext(ctx, selectCharacter+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCharacterNotFound
	}
	return c, err
}

func (r *CharacterRepository) GetForMutation(ctx context.Context, id string) (domain.HealthState, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var (
		h        domain.HealthState
		defenses []byte
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT hit_points, current_hit_points, temporary_hit_points, revision, defenses FROM characters WHERE id = $1`, id,
	).Scan(&h.MaxHitPoints, &h.CurrentHitPoints, &h.TemporaryHitPoints, &h.Revision, &defenses)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.HealthState{}, domain.ErrCharacterNotFound
	}
	if err != nil {
		return domain.HealthState{}, fmt.Errorf("load health %s: %w", id, err)
	}
	if err := json.Unmarshal(defenses, &h.Defenses); err != nil {
		return domain.HealthState{}, fmt.Errorf("decode defenses %s: %w", id, err)
	}
	return h, nil
}

// Save updates the hit point pools guarded by the revision column.
func (r *CharacterRepository) Save(ctx context.Context, id string, state domain.HealthState) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx,
		`UPDATE characters SET current_hit_points = $2, temporary_hit_points = $3, revision = revision + 1 WHERE id = $1 AND revision = $4`,
		id, state.CurrentHitPoints, state.TemporaryHitPoints, state.Revision,
	)
	if err != nil {
		return fmt.Errorf("save %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save %s: %w", id, err)
	}
	if n > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM characters WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("save %s: %w", id, err)
	}
	if !exists {
		return domain.ErrCharacterNotFound
	}
	return fmt.Errorf("save %s at revision %d: %w", id, state.Revision, domain.ErrStaleState)
}

func (r *CharacterRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM characters`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count characters: %w", err)
	}
	return n, nil
}

func (r *CharacterRepository) Insert(ctx context.Context, c *domain.Character) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	defenses, err := json.Marshal(nonNil(c.Defenses))
	if err != nil {
		return fmt.Errorf("encode defenses: %w", err)
	}
	extra, err := json.Marshal(details{Classes: c.Classes, Stats: c.Stats, Items: c.Items})
	if err != nil {
		return fmt.Errorf("encode details: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO characters (id, name, level, hit_points, current_hit_points, temporary_hit_points, revision, defenses, details)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.Name, c.Level, c.HitPoints, c.CurrentHitPoints, c.TemporaryHitPoints, c.Revision, defenses, extra,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("insert %s: already exists", c.ID)
	}
	if err != nil {
		return fmt.Errorf("insert %s: %w", c.ID, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCharacter(s scanner) (*domain.Character, error) {
	var (
		c        domain.Character
		defenses []byte
		extra    []byte
	)
	if err := s.Scan(&c.ID, &c.Name, &c.Level, &c.HitPoints, &c.CurrentHitPoints, &c.TemporaryHitPoints, &c.Revision, &defenses, &extra); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan character: %w", err)
	}
	if err := json.Unmarshal(defenses, &c.Defenses); err != nil {
		return nil, fmt.Errorf("decode defenses %s: %w", c.ID, err)
	}
	var d details
	if err := json.Unmarshal(extra, &d); err != nil {
		return nil, fmt.Errorf("decode details %s: %w", c.ID, err)
	}
	c.Classes, c.Stats, c.Items = d.Classes, d.Stats, d.Items
	return &c, nil
}

func nonNil(d []domain.Defense) []domain.Defense {
	if d == nil {
		return []domain.Defense{}
	}
	return d
}

// Ping reports whether the database answers, for readiness probes.
func Ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	return db.PingContext(ctx)
}
