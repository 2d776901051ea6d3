package main

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

	"github.com/gorilla/handlers"
	"github.com/spf13/cobra"

	"archie/app/config"
	"archie/app/usecase"
	"archie/internal/infrastructure/correlation"
	"archie/internal/infrastructure/llm"
	"archie/internal/infrastructure/logging"
	"archie/internal/infrastructure/metrics"
	"archie/internal/infrastructure/rules"
	"archie/internal/infrastructure/transport"
	"archie/internal/infrastructure/validator"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

// newLogger writes JSON logs to stdout and to the rotating file under the log directory.
func newLogger(cfg config.LogConfig) (*slog.Logger, io.Closer, error) {
	file, err := logging.NewRotatingFile(cfg.Dir, "archie.log", cfg.MaxBytes, cfg.Backups)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger := logging.New(io.MultiWriter(os.Stdout, file), logging.ParseLevel(cfg.Level))
	return logger, file, nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger, logFile, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logFile.Close()

	// Rules
	registry := rules.NewRegistry()
	if _, gaps := registry.Check(); len(gaps) > 0 {
		for _, g := range gaps {
			logger.Warn("rule registry gap", "kind", g.Kind, "notation", g.Notation, "reason", g.Reason)
		}
	}

	// LLM client
	gateway := llm.NewChatCompletionGateway(llm.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		APIVersion:  cfg.LLM.APIVersion,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
		MaxRetries:  cfg.LLM.MaxRetries,
	}, logger)

	diagrams := usecase.NewDiagramService(registry, gateway, validator.NewArtifactAnalyzer(), logger)

	// Transport (HTTP handlers)
	api := transport.NewDiagramHandler(diagrams, logger).Handler()
	corsHandler := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", correlation.Header}),
		handlers.ExposedHeaders([]string{correlation.Header}),
	)(api)

	addr := cfg.Addr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           corsHandler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var metricsSrv *http.Server
	if cfg.Metrics.Addr != "" {
		metricsSrv = metrics.NewServer(cfg.Metrics.Addr)
		go func() {
			logger.Info("starting metrics server", "addr", cfg.Metrics.Addr)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "err", err)
			}
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", "addr", addr, "model", cfg.LLM.Model)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "err", err)
			serveErr <- err
			cancel()
		}
	}()

	// OS signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case <-stop:
		logger.Info("shutdown signal received")
	case <-ctx.Done():
		logger.Info("context cancelled")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	logger.Info("shutting down http server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	if metricsSrv != nil {
		logger.Info("shutting down metrics server")
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", "err", err)
		}
	}

	logger.Info("service stopped")

	select {
	case err := <-serveErr:
		return err
	default:
		return nil
	}
}
