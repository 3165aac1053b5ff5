package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hitpoints/hitpoints-service/internal/core/domain"
	"github.com/hitpoints/hitpoints-service/internal/core/ports"
)

const collectionCharacters = "characters"

type CharacterRepository struct {
	col *mongo.Collection
}

func NewCharacterRepository(db *mongo.Database) *CharacterRepository {
	return &CharacterRepository{col: db.Collection(collectionCharacters)}
}

var (
	_ ports.CharacterRepository = (*CharacterRepository)(nil)
	_ ports.CharacterSeeder     = (*CharacterRepository)(nil)
)

// GetAll returns every character ordered by id.
func (r *CharacterRepository) GetAll(ctx context.Context) ([]*domain.Character, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cursor, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var chars []*domain.Character
	if err := cursor.All(ctx, &chars); err != nil {
		return nil, err
	}
	if chars == nil {
		chars = []*domain.Character{}
	}
	return chars, nil
}

// GetByID retrieves a character by id.
func (r *CharacterRepository) GetByID(ctx context.Context, id string) (*domain.Character, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var c domain.Character
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrCharacterNotFound
		}
		return nil, err
	}
	return &c, nil
}

// GetForMutation loads only the fields the health engine needs.
func (r *CharacterRepository) GetForMutation(ctx context.Context, id string) (domain.HealthState, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	projection := bson.M{
		"hit_points":           1,
		"current_hit_points":   1,
		"temporary_hit_points": 1,
		"defenses":             1,
		"revision":             1,
	}

	var c domain.Character
	err := r.col.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(projection)).Decode(&c)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.HealthState{}, domain.ErrCharacterNotFound
		}
		return domain.HealthState{}, err
	}
	return c.Health(), nil
}

// Save writes the hit point pools when the stored revision still matches
// state.Revision, and bumps the revision.
func (r *CharacterRepository) Save(ctx context.Context, id string, state domain.HealthState) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "revision": state.Revision}
	update := bson.M{
		"$set": bson.M{
			"current_hit_points":   state.CurrentHitPoints,
			"temporary_hit_points": state.TemporaryHitPoints,
		},
		"$inc": bson.M{"revision": 1},
	}

	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		n, err := r.col.CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.ErrCharacterNotFound
		}
		return fmt.Errorf("save %s at revision %d: %w", id, state.Revision, domain.ErrStaleState)
	}
	return nil
}

// Count returns the number of stored characters.
func (r *CharacterRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	return r.col.CountDocuments(ctx, bson.M{})
}

// Insert stores a new character document.
func (r *CharacterRepository) Insert(ctx context.Context, c *domain.Character) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.InsertOne(ctx, c)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("insert %s: already exists", c.ID)
		}
		return err
	}
	return nil
}

// Ping reports whether the primary answers, for readiness probes.
func Ping(ctx context.Context, client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return client.Ping(ctx, nil)
}
