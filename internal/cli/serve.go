package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/evcraddock/visit-scheduler/internal/auth"
	"github.com/evcraddock/visit-scheduler/internal/config"
	"github.com/evcraddock/visit-scheduler/internal/db"
	"github.com/evcraddock/visit-scheduler/internal/email"
	"github.com/evcraddock/visit-scheduler/internal/events"
	"github.com/evcraddock/visit-scheduler/internal/logging"
	"github.com/evcraddock/visit-scheduler/internal/scheduling"
	"github.com/evcraddock/visit-scheduler/internal/web"
)

func newServeCmd() *cobra.Command {
	var (
		port    int
		envFile string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the HTTP API server.

Configuration comes from VS_* environment variables, optionally loaded from
an env file. --port and --db override VS_PORT and VS_DB_PATH.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if flagDB != "" {
				cfg.DBPath = flagDB
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}

	cmd.Flags().IntVar(&port, "port", 8080, "port to listen on")
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "env file to load before reading the environment")

	return cmd
}

func runServe(ctx context.Context, cfg config.Config) error {
	log, err := logging.New(cfg.DevMode)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer closeDB(database)

	users := auth.NewUserStore(database)
	if err := users.EnsureAdmin(ctx, cfg.AdminEmail); err != nil {
		return fmt.Errorf("ensuring admin %s: %w", cfg.AdminEmail, err)
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.RedisAddr != "" {
		rdb, err := events.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()
		publisher = events.NewRedisPublisher(rdb, cfg.RedisStream)
		log.Info("publishing status changes", zap.String("redis", cfg.RedisAddr), zap.String("stream", cfg.RedisStream))
	}

	svc := scheduling.NewService(database, scheduling.Options{
		Location:  cfg.Location(),
		Publisher: publisher,
		Notifier:  email.NewNotifier(cfg.SMTP, log.Named("email")),
		Directory: users,
		Logger:    log.Named("scheduling"),
		BaseURL:   cfg.BaseURL,
	})

	srv := web.NewServer(database, web.Options{
		Service:        svc,
		Tokens:         auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL),
		Logger:         log.Named("http"),
		AllowedOrigins: cfg.AllowedOrigins,
	})

	log.Info("starting server",
		zap.String("base_url", cfg.BaseURL),
		zap.String("db", cfg.DBPath),
		zap.String("timezone", cfg.Timezone),
		zap.Bool("dev_mode", cfg.DevMode),
	)
	return srv.ListenAndServe(ctx, cfg.Addr())
}
