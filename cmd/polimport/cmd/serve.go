package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coverline/polimport/internal/api"
	"github.com/coverline/polimport/internal/config"
	"github.com/coverline/polimport/internal/db"
	"github.com/coverline/polimport/internal/ingestion"
	"github.com/coverline/polimport/internal/logging"
	"github.com/coverline/polimport/internal/repository"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := logging.New(cfg.Logging)

	if err := db.RunMigrations(cfg.Database.Driver, cfg.Database.URL); err != nil {
		return fmt.Errorf("migrations failed: %w", err)
	}

	policies, operations, closeDB, err := buildRepositories(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer closeDB()

	engine := ingestion.NewEngine(ingestion.DefaultRules()...)
	service := ingestion.NewService(policies, operations, engine, logger)
	uploadHandler := ingestion.NewHTTPHandler(service, cfg.Upload.MaxBytes)

	router := api.NewRouter(logger, policies, operations, uploadHandler, cfg.Server.AllowedOrigins)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", server.Addr, "driver", cfg.Database.Driver)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited")
	return nil
}

// buildRepositories wires the repository pair for the configured backend.
func buildRepositories(ctx context.Context, cfg config.DatabaseConfig) (repository.PolicyRepository, repository.OperationRepository, func(), error) {
	switch cfg.Driver {
	case "postgres":
		pool, err := db.NewPostgresPool(ctx, cfg.URL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return repository.NewPostgresPolicyRepository(pool),
			repository.NewPostgresOperationRepository(pool),
			pool.Close,
			nil
	case "sqlite":
		sqldb, err := db.OpenSQLite(cfg.URL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		queries, err := repository.LoadQueries(sqldb)
		if err != nil {
			sqldb.Close()
			return nil, nil, nil, fmt.Errorf("failed to load queries: %w", err)
		}
		return repository.NewSQLitePolicyRepository(queries),
			repository.NewSQLiteOperationRepository(queries),
			func() { _ = sqldb.Close() },
			nil
	default:
		return nil, nil, nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

// loadConfig merges the config file with any CLI flag overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return config.Config{}, err
	}
	if dbDriver != "" {
		cfg.Database.Driver = dbDriver
	}
	if dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	return cfg, nil
}
