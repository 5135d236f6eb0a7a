package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"helpdesk/internal/core/container"
	"helpdesk/internal/core/routes"
	"helpdesk/internal/database"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cfg.AutoMigrate {
			if err := database.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir, log); err != nil {
				return fmt.Errorf("migrate database: %w", err)
			}
		}

		db, err := database.NewPostgresConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		log.Info("Connected to the database")

		app, err := container.NewAppContainer(ctx, cfg, db, Version, log)
		if err != nil {
			return err
		}
		defer app.Close()

		server := &http.Server{
			Addr:              cfg.AppHost,
			Handler:           routes.NewRouter(app),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info("Starting server", zap.String("addr", cfg.AppHost), zap.String("version", Version))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("http server: %w", err)
			}
		case <-ctx.Done():
			log.Info("Shutting down server")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Server forced to shutdown", zap.Error(err))
			return err
		}

		log.Info("Server stopped")
		return nil
	},
}
