// Package app wires configuration, stores, notifiers and the HTTP server
// into a running service.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/hitpoints/hitpoints-service/internal/api"
	"github.com/hitpoints/hitpoints-service/internal/api/handler"
	"github.com/hitpoints/hitpoints-service/internal/core/ports"
	"github.com/hitpoints/hitpoints-service/internal/core/service"
	"github.com/hitpoints/hitpoints-service/internal/infrastructure/config"
	"github.com/hitpoints/hitpoints-service/internal/infrastructure/db/redis"
	"github.com/hitpoints/hitpoints-service/internal/infrastructure/notify"
	"github.com/hitpoints/hitpoints-service/internal/infrastructure/queue"
	"github.com/hitpoints/hitpoints-service/internal/infrastructure/seed"
)

// App is a fully wired service instance.
type App struct {
	cfg        *config.Config
	log        zerolog.Logger
	store      *OpenedStore
	redis      *goredis.Client
	bus        *notify.Bus
	broker     *redis.ChangeBroker
	dispatcher *queue.Dispatcher
	echo       *echo.Echo
}

// New connects every configured backend, seeds the store when it is empty
// and builds the HTTP router. Call Run to serve.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	a := &App{cfg: cfg, log: log}

	store, err := OpenStore(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.store = store

	if cfg.SeedDir != "" {
		if _, err := seed.NewLoader(cfg.SeedDir, log).Seed(ctx, store.Store); err != nil {
			a.closeBackends(ctx)
			return nil, err
		}
	}

	checks := map[string]handler.Check{}
	if store.Check != nil {
		checks[store.Name] = store.Check
	}

	var dedup service.DedupChecker
	if cfg.Redis.Addr != "" {
		client, err := redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			a.closeBackends(ctx)
			return nil, err
		}
		a.redis = client
		dedup = redis.NewDedupChecker(client, cfg.Redis.DedupTTL)
		checks["redis"] = func(ctx context.Context) error { return redis.Ping(ctx, client) }
		log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to redis")
	}

	a.bus = notify.NewBus(cfg.SubscriberBuffer, log)
	var (
		notifier ports.ChangeNotifier = a.bus
		feed     ports.ChangeFeed     = a.bus
	)
	if cfg.Notifier == config.NotifierRedis {
		a.broker = redis.NewChangeBroker(a.redis, cfg.Redis.Channel, a.bus, log)
		notifier, feed = a.broker, a.broker
	}

	a.dispatcher = queue.NewDispatcher(log)
	svc := service.NewCharacterService(store.Store, notifier, a.dispatcher, dedup, log)

	a.echo = api.NewRouter(api.Deps{
		Service:     svc,
		Feed:        feed,
		Checks:      checks,
		CORSOrigins: cfg.CORSOrigins,
		Log:         log,
	})
	return a, nil
}

// Handler exposes the router, for tests.
func (a *App) Handler() http.Handler {
	return a.echo
}

// Run serves HTTP until ctx ends, then shuts down gracefully: stop accepting
// requests, finish queued commands, end live subscriptions, close backends.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		addr := ":" + a.cfg.Port
		a.log.Info().Str("addr", addr).Str("store", a.store.Name).Str("notifier", a.cfg.Notifier).Msg("http server listening")
		if err := a.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if a.broker != nil {
		g.Go(func() error { return a.broker.Run(gctx) })
	}

	g.Go(func() error {
		<-gctx.Done()
		return a.shutdown()
	})

	return g.Wait()
}

func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	a.log.Info().Msg("shutting down")

	// Live connections never end on their own; closing the bus releases them
	// so the server can drain.
	a.bus.Close()

	var errs []error
	if err := a.echo.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := a.dispatcher.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("dispatcher: %w", err))
	}
	a.closeBackends(ctx)

	a.log.Info().Msg("shutdown complete")
	return errors.Join(errs...)
}

func (a *App) closeBackends(ctx context.Context) {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn().Err(err).Msg("closing redis")
		}
	}
	if a.store != nil {
		if err := a.store.Close(ctx); err != nil {
			a.log.Warn().Err(err).Str("store", a.store.Name).Msg("closing store")
		}
	}
}
