package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/yukikurage/timesheet-management-api/internal/database"
	apierrors "github.com/yukikurage/timesheet-management-api/internal/errors"
	"github.com/yukikurage/timesheet-management-api/internal/logger"
	"github.com/yukikurage/timesheet-management-api/internal/server"
)

var migrateOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", true, "run database migrations before serving")
}

func serve(ctx context.Context) error {
	defer logger.Log.Sync()

	gin.SetMode(cfg.GinMode)
	apierrors.SetExposeErrors(cfg.ExposeErrors)
	apierrors.RegisterJSONTagNames()

	if err := database.Connect(cfg); err != nil {
		return err
	}
	if migrateOnStart {
		if err := database.Migrate(); err != nil {
			return err
		}
	}

	store, err := server.NewSessionStore(cfg)
	if err != nil {
		return err
	}
	mailer, err := server.NewMailer(ctx, cfg)
	if err != nil {
		return err
	}

	router, err := server.NewRouter(server.Dependencies{
		Config:   cfg,
		DB:       database.GetDB(),
		Sessions: store,
		Mailer:   mailer,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logger.Log.Infow("Server starting", "addr", srv.Addr, "env", cfg.AppEnv)
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Log.Errorw("Server shutdown error", "error", err)
		}
	}

	if sqlDB, err := database.GetDB().DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Log.Errorw("Database close error", "error", err)
		}
	}

	logger.Log.Info("Server stopped")
	return nil
}
