package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"phishguard-engine/internal/app"
	"phishguard-engine/internal/config"
	"phishguard-engine/internal/events"
	"phishguard-engine/internal/identity"
	"phishguard-engine/internal/infra/memory"
	mongostore "phishguard-engine/internal/infra/mongo"
	pgloader "phishguard-engine/internal/infra/postgres"
	rediscache "phishguard-engine/internal/infra/redis"
	transport "phishguard-engine/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the progression engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	// Profile storage: Mongo when configured, in-memory otherwise.
	var store app.ProfileStore = memory.NewProfileStore()
	if cfg.Mongo.URL != "" {
		client, err := mongostore.Connect(ctx, cfg.Mongo.URL)
		if err != nil {
			return err
		}
		defer client.Disconnect(context.Background())
		database := cfg.Mongo.Database
		if database == "" {
			database = "phishguard"
		}
		store = mongostore.NewProfileStore(client, database)
		logger.Info("using mongo profile store", zap.String("database", database))
	}

	// Content catalog: Postgres JSONB when configured, built-in sample otherwise.
	catalog := memory.SampleCatalog()
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		catalog, err = pgloader.NewCatalogLoader(pool).LoadCatalog(ctx)
		if err != nil {
			return err
		}
		logger.Info("loaded catalog from postgres", zap.Int("questions", len(catalog.Questions)))
	}

	// Leaderboard reads go through Redis when available.
	var reader app.LeaderboardReader = store
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ttl := config.TTLDuration(cfg.Redis.TTL, 30*time.Second)
		reader = rediscache.NewLeaderboardCache(redisClient, store, ttl)
		logger.Info("leaderboard cache enabled", zap.Duration("ttl", ttl))
	}

	var publisher app.EventPublisher = app.NopPublisher{}
	if cfg.NATS.URL != "" {
		natsPub, err := events.Connect(cfg.NATS.URL)
		if err != nil {
			return err
		}
		defer natsPub.Close()
		publisher = natsPub
		logger.Info("nats publisher connected")
	}

	var verifier *identity.Verifier
	if cfg.Auth.Secret != "" {
		verifier = identity.NewVerifier(cfg.Auth.Secret)
	}

	progression := app.NewProgressionService(store, reader, catalog.Levels, publisher, logger)
	groups := app.NewGroupService(store, nil, logger)

	sessionLength := cfg.Progression.SessionLength
	if sessionLength <= 0 {
		sessionLength = app.DefaultSessionLength
	}
	pageLimit := cfg.Progression.LeaderboardLimit
	if pageLimit <= 0 {
		pageLimit = 10
	}

	wsHandler := transport.NewWSHandler(progression, catalog, verifier, sessionLength, pageLimit, logger)
	apiHandler := transport.NewAPIHandler(progression, groups, verifier, pageLimit, logger)

	// The projection self-heals on write, the reconciler bounds staleness
	// for profiles that stop generating events.
	reconciler := app.NewReconciler(store, 0, logger)
	scheduler := cron.New()
	every := cfg.Progression.ReconcileEvery
	if every == "" {
		every = "@every 5m"
	}
	if _, err := scheduler.AddFunc(every, func() {
		if err := reconciler.Run(context.Background()); err != nil {
			logger.Warn("leaderboard reconcile failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	apiHandler.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting progression engine", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server stopped", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
