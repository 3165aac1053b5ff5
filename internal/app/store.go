package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hitpoints/hitpoints-service/internal/api/handler"
	"github.com/hitpoints/hitpoints-service/internal/core/ports"
	"github.com/hitpoints/hitpoints-service/internal/infrastructure/config"
	"github.com/hitpoints/hitpoints-service/internal/infrastructure/db/memory"
	mongodb "github.com/hitpoints/hitpoints-service/internal/infrastructure/db/mongo"
	"github.com/hitpoints/hitpoints-service/internal/infrastructure/db/postgres"
)

// Store is a character store that can also be seeded.
type Store interface {
	ports.CharacterRepository
	ports.CharacterSeeder
}

// OpenedStore is the configured store with its readiness check and cleanup.
type OpenedStore struct {
	Store Store
	Name  string
	Check handler.Check
	Close func(ctx context.Context) error
}

// OpenStore connects to the backend named by cfg.StoreBackend.
func OpenStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*OpenedStore, error) {
	noop := func(context.Context) error { return nil }

	switch cfg.StoreBackend {
	case config.StoreMongo:
		client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		log.Info().Str("database", cfg.Mongo.Database).Msg("connected to mongodb")
		return &OpenedStore{
			Store: mongodb.NewCharacterRepository(db),
			Name:  "mongodb",
			Check: func(ctx context.Context) error { return mongodb.Ping(ctx, client) },
			Close: client.Disconnect,
		}, nil

	case config.StorePostgres:
		db, err := postgres.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		log.Info().Msg("connected to postgres")
		return &OpenedStore{
			Store: postgres.NewCharacterRepository(db),
			Name:  "postgres",
			Check: func(ctx context.Context) error { return postgres.Ping(ctx, db) },
			Close: func(context.Context) error { return db.Close() },
		}, nil

	case config.StoreMemory:
		return &OpenedStore{
			Store: memory.NewCharacterRepository(),
			Name:  "memory",
			Close: noop,
		}, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}
