package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/config"
	"trivia-quiz-service/internal/infra/memory"
	"trivia-quiz-service/internal/infra/postgres"
	redisstore "trivia-quiz-service/internal/infra/redis"
	"trivia-quiz-service/internal/infra/sqlite"
	"trivia-quiz-service/internal/provider"
	transport "trivia-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
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
	if logLevel == "" && logFormat == "" && (cfg.Log.Level != "" || cfg.Log.Format != "") {
		setupLogging(cfg.Log.Level, cfg.Log.Format)
	}
	logger := slog.Default()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	deps, closers, err := buildDeps(ctx, cfg, logger)
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()
	if err != nil {
		return err
	}

	service := app.NewQuizService(deps, app.Options{
		Duration:     config.TTLDuration(cfg.Quiz.Duration, app.DefaultDuration),
		CacheTTL:     config.TTLDuration(cfg.Quiz.CacheTTL, app.DefaultCacheTTL),
		TickInterval: config.TTLDuration(cfg.Quiz.Tick, time.Second),
		Logger:       logger,
	})

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     transport.NewRouter(service, logger),
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting quiz service", "port", finalPort, "storage", cfg.StorageDriver())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to start server", "err", err)
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

// buildDeps selects the session/cache backend and the result history store from
// config. The returned closers must be closed even when err is non-nil.
func buildDeps(ctx context.Context, cfg config.Config, logger *slog.Logger) (app.Deps, []io.Closer, error) {
	var closers []io.Closer

	deps := app.Deps{
		Source: provider.NewClient(provider.Config{
			BaseURL: cfg.Provider.BaseURL,
			Amount:  cfg.Provider.Amount,
			Type:    cfg.Provider.Type,
			Timeout: config.TTLDuration(cfg.Provider.Timeout, 10*time.Second),
			Retry: provider.RetryPolicy{
				MaxRetries: cfg.MaxRetries(provider.DefaultRetryPolicy.MaxRetries),
				Unit:       config.TTLDuration(cfg.Provider.BackoffUnit, provider.DefaultRetryPolicy.Unit),
			},
		}, logger.With("component", "provider")),
	}

	switch cfg.StorageDriver() {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, client)
		if err := client.Ping(ctx).Err(); err != nil {
			return deps, closers, fmt.Errorf("redis ping: %w", err)
		}
		deps.Sessions = redisstore.NewSessionStore(client, config.TTLDuration(cfg.Redis.TTL, 24*time.Hour), logger)
		deps.Cache = redisstore.NewQuestionCache(client, config.TTLDuration(cfg.Quiz.CacheTTL, app.DefaultCacheTTL))
	case "sqlite":
		path := cfg.Storage.SQLitePath
		if path == "" {
			path = "quiz.db"
		}
		store, err := sqlite.Open(path, logger)
		if err != nil {
			return deps, closers, err
		}
		closers = append(closers, store)
		deps.Sessions = store
		deps.Cache = store.QuestionCache()
	default:
		deps.Sessions = memory.NewSessionStore()
		deps.Cache = memory.NewQuestionCache()
	}

	if cfg.Postgres.URL == "" {
		deps.Results = memory.NewResultStore()
		return deps, closers, nil
	}
	if err := runMigrationsWithConfig(ctx, cfg); err != nil {
		return deps, closers, err
	}
	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return deps, closers, err
	}
	closers = append(closers, poolCloser{pool})
	deps.Results = postgres.NewResultRepository(pool)
	return deps, closers, nil
}

type poolCloser struct{ pool *pgxpool.Pool }

func (p poolCloser) Close() error {
	p.pool.Close()
	return nil
}
