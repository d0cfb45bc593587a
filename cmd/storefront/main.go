package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/sliceline-client/internal/backend"
	"github.com/angelmondragon/sliceline-client/internal/cart"
	"github.com/angelmondragon/sliceline-client/internal/identity"
	"github.com/angelmondragon/sliceline-client/internal/pricing"
	"github.com/angelmondragon/sliceline-client/internal/tracker"
	"github.com/angelmondragon/sliceline-client/pkg/config"
	"github.com/angelmondragon/sliceline-client/pkg/db"
	"github.com/angelmondragon/sliceline-client/pkg/enums"
	"github.com/angelmondragon/sliceline-client/pkg/logger"
	"github.com/angelmondragon/sliceline-client/pkg/metrics"
	"github.com/angelmondragon/sliceline-client/pkg/redis"
)

// authTokenEnv holds the stored session JWT, when the subject is logged in.
const authTokenEnv = "SLICELINE_AUTH_TOKEN"

func main() {
	trackOrderID := flag.String("track", "", "order id to follow until it is delivered")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "storefront"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "storefront",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	adapter, cleanup, err := newAdapter(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap cart storage", err)
		os.Exit(1)
	}
	defer cleanup()

	tokens := identity.NewProvider(identity.TokenSourceFunc(func(context.Context) (string, error) {
		return os.Getenv(authTokenEnv), nil
	}), logg)

	clientMetrics := metrics.NewClientMetrics(prometheus.DefaultRegisterer)

	store, err := cart.NewStore(adapter, pricing.NewCalculator(cfg.Pricing), logg, clientMetrics)
	if err != nil {
		logg.Error(ctx, "failed to create cart store", err)
		os.Exit(1)
	}

	subject := tokens.Subject(ctx)
	ctx = logg.WithOwnerID(ctx, subject.OwnerID)
	if _, err := store.SwitchOwner(ctx, subject.OwnerID); err != nil {
		logg.Error(ctx, "failed to switch cart owner", err)
		os.Exit(1)
	}
	snap, err := store.Hydrate(ctx)
	if err != nil {
		logg.Error(ctx, "failed to hydrate cart", err)
		os.Exit(1)
	}
	logg.Info(logg.WithField(ctx, "lines", len(snap.Items)), "cart hydrated")

	apiClient, err := backend.New(cfg.API, tokens, logg)
	if err != nil {
		logg.Error(ctx, "failed to create api client", err)
		os.Exit(1)
	}

	if *trackOrderID == "" {
		logg.Info(ctx, "no order to track, exiting")
		return
	}

	runTracker(ctx, cfg, apiClient, tokens, logg, clientMetrics, *trackOrderID)
}

// newAdapter selects the configured cart persistence backend.
func newAdapter(ctx context.Context, cfg *config.Config, logg *logger.Logger) (cart.Adapter, func(), error) {
	switch cfg.Storage.Backend {
	case config.StorageBackendRedis:
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return nil, nil, err
		}
		repo, err := cart.NewRedisRepo(redisClient, logg)
		if err != nil {
			redisClient.Close()
			return nil, nil, err
		}
		return repo, func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}, nil
	default:
		dbClient, err := db.New(ctx, cfg.Storage, logg)
		if err != nil {
			return nil, nil, err
		}
		repo, err := cart.NewRepo(dbClient, logg)
		if err != nil {
			dbClient.Close()
			return nil, nil, err
		}
		return repo, func() {
			if err := dbClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing local store", err)
			}
		}, nil
	}
}

// runTracker follows one order until it is delivered, the stream closes, or
// the process receives a shutdown signal.
func runTracker(
	ctx context.Context,
	cfg *config.Config,
	apiClient *backend.Client,
	tokens *identity.Provider,
	logg *logger.Logger,
	clientMetrics *metrics.ClientMetrics,
	orderID string,
) {
	tr, err := tracker.New(tracker.Params{
		Stream:        cfg.Stream,
		Orders:        apiClient,
		Tokens:        tokens,
		Logger:        logg,
		Metrics:       clientMetrics,
		TargetOrderID: orderID,
	})
	if err != nil {
		logg.Error(ctx, "failed to create order tracker", err)
		os.Exit(1)
	}

	trackCtx := logg.WithOrderID(ctx, orderID)
	logg.Info(trackCtx, "tracking order")

	tr.Start(ctx)
	defer tr.Stop()

	for {
		select {
		case <-ctx.Done():
			logg.Info(trackCtx, "shutting down")
			return
		case update := <-tr.Updates():
			fields := map[string]any{"stream_state": update.State.String()}
			if update.Status != "" {
				fields["status"] = update.Status.String()
			}
			entry := logg.WithFields(trackCtx, fields)
			switch {
			case update.Err != nil:
				logg.Error(entry, "order stream needs attention", update.Err)
			case update.Status != "":
				logg.Info(entry, "order status advanced")
			default:
				logg.Info(entry, "order stream state changed")
			}
			if update.State == enums.StreamStateClosed {
				return
			}
		}
	}
}
