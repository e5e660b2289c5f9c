package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-voyage/internal/app/domain/auth"
	database "github.com/FACorreiaa/go-voyage/internal/db"
	"github.com/FACorreiaa/go-voyage/internal/pkg/config"
	"github.com/FACorreiaa/go-voyage/internal/pkg/logger"
	"github.com/FACorreiaa/go-voyage/internal/server"
)

func rootCmd() *cobra.Command {
	var skipMigrations bool

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "AI travel itinerary API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), !skipMigrations)
		},
	}
	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "Do not apply pending migrations on start")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), !skipMigrations)
		},
	}
	serveCmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "Do not apply pending migrations on start")

	cmd.AddCommand(serveCmd, migrateCmd(), createAdminCmd(), &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})
	return cmd
}

// bootstrap loads configuration and the process logger.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.Init(cfg.LogLevel, cfg.IsDevelopment(), zap.String("service", cfg.Observability.ServiceName))
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func serve(parent context.Context, migrate bool) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := server.InitObservability(cfg.Observability, Version, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := otelShutdown(context.Background()); err != nil {
			log.Error("Failed to shutdown OpenTelemetry", zap.Error(err))
		}
	}()

	srv, err := server.New(ctx, cfg, log, migrate)
	if err != nil {
		return err
	}
	defer srv.Close()

	pool := srv.GetDBPool()
	srv.SetRouter(server.SetupRouter(ctx, pool, pool, cfg, log))

	// pprof stays on a separate port, not exposed publicly
	pprofServer := server.StartPprofServer(cfg.Observability.PprofAddr, log)

	httpServer := srv.HTTPServer()
	done := make(chan struct{})
	go server.GracefulShutdown(ctx, log, done, httpServer, pprofServer)

	log.Info("Server starting",
		zap.String("port", cfg.ServerPort),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.Int("max_anonymous_trips", cfg.Usage.MaxAnonymousTrips))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("Server error", zap.Error(err))
		stop()
	}

	<-done
	log.Info("Graceful shutdown complete")
	return nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		RunE: func(*cobra.Command, []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			dbConfig, err := database.NewDatabaseConfig(cfg, log)
			if err != nil {
				return err
			}
			return database.RunMigrations(dbConfig.ConnectionURL, log)
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(*cobra.Command, []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			dbConfig, err := database.NewDatabaseConfig(cfg, log)
			if err != nil {
				return err
			}
			return database.RollbackMigrations(dbConfig.ConnectionURL, steps, log)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "Number of migrations to roll back")
	cmd.AddCommand(down)

	return cmd
}

func createAdminCmd() *cobra.Command {
	var email, password, name string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account or promote an existing one",
		Long: `Creates an admin account with the given email. When the email already
belongs to a user, that user is promoted, and the password is reset if one
is given.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			dbConfig, err := database.NewDatabaseConfig(cfg, log)
			if err != nil {
				return err
			}
			pool, err := database.Init(ctx, dbConfig.ConnectionURL, cfg.Repositories.Postgres, log)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := auth.NewAuthService(auth.NewPostgresUserRepo(pool, log), cfg, log)
			user, created, err := svc.CreateAdmin(ctx, email, password, name)
			if err != nil {
				return err
			}

			verb := "Promoted"
			if created {
				verb = "Created"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s admin %s (%s)\n", verb, user.Email, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Admin email address")
	cmd.Flags().StringVar(&password, "password", "", "Password (required for a new account)")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}
