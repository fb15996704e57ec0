package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"table-exporter/api"
	"table-exporter/service"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// JSON until the configured format is known
	slog.SetDefault(newLogger(os.Stdout, "json", slog.LevelInfo))

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using system environment variables")
	}

	cfg, err := service.LoadConfigFromEnv()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(os.Stdout, cfg.LogFormat, cfg.LogLevel))

	ctx := context.Background()

	db, err := service.NewDatabaseService(cfg.Database)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	store, err := service.NewObjectStore(ctx, cfg.ObjectStore)
	if err != nil {
		slog.Error("Failed to initialize object store", "error", err)
		os.Exit(1)
	}

	exporter := service.NewExporter(db, store, cfg.ExportDir, cfg.ObjectStore.KeyPrefix)

	if cfg.RunMode == service.RunModeServer {
		serve(cfg, exporter)
		return
	}

	// Job mode: export once and exit. Table failures are reported, not fatal.
	// The run is not cancellable; SIGINT keeps its default behavior.
	summary := exporter.Run(ctx, service.RunOptions{Tables: cfg.Tables})
	if err := summary.Err(); err != nil {
		slog.Warn("Some tables were not exported", "failed", summary.Failed(), "error", err)
	}
}

func newLogger(w io.Writer, format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	// JSON by default for Cloud Run and similar collectors
	return slog.New(slog.NewJSONHandler(w, opts))
}

func serve(cfg service.Config, exporter *service.Exporter) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: api.NewRouter(exporter, cfg.APIKey),
	}

	go func() {
		slog.Info("Server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down server...")

	// Give the in-flight request five seconds to finish
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server exiting")
}
