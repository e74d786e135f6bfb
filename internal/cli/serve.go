package cli

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quizroom/internal/config"
	"quizroom/internal/game"
	"quizroom/internal/infra/file"
	"quizroom/internal/infra/memory"
	"quizroom/internal/infra/postgres"
	infraredis "quizroom/internal/infra/redis"
	"quizroom/internal/observability"
	"quizroom/internal/transport/ws"
)

// NewServeCmd builds the CLI subcommand to start the server.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the quiz room server",
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

	log, err := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	store, cleanup, err := buildStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	coord := game.NewCoordinator(game.Options{
		Password:       cfg.Manager.Password,
		StartCountdown: cfg.StartCountdown(),
		BankName:       cfg.BankName(),
		Store:          store,
		Logger:         log.Named("game"),
	})

	relay := ws.NewRelay(coord, log.Named("ws"))
	coord.SetEmitter(relay)

	if err := coord.Bootstrap(ctx); err != nil {
		return err
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	mux := ws.NewRouter(relay, coord, cfg.Server.PublicURL, releaseVersion, log.Named("http"))

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Bind, finalPort),
		Handler:           mux,
		ReadHeaderTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting quizroom server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildStore assembles the question store stack: Postgres when a URL is
// configured (migrations applied first), the JSON file otherwise, with a
// Redis- or memory-backed cache layered on top.
func buildStore(ctx context.Context, cfg config.Config, log *zap.Logger) (game.BankStore, func(), error) {
	cleanup := func() {}

	var backing game.BankStore
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return nil, nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, err
		}
		cleanup = pool.Close
		backing = postgres.NewStore(pool)
		log.Info("question store: postgres")
	} else {
		backing = file.NewStore(cfg.QuestionsFile())
		log.Info("question store: file", zap.String("path", cfg.QuestionsFile()))
	}

	ttl := config.TTLDuration(cfg.Questions.TTL, 10*time.Minute)

	if cfg.Redis.Addr != "" {
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		prev := cleanup
		cleanup = func() {
			_ = client.Close()
			prev()
		}
		return infraredis.NewBankRepository(client, backing, ttl), cleanup, nil
	}
	return memory.NewBankRepository(backing, ttl), cleanup, nil
}
