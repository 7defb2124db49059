// Command provider runs a mock of the remote hotel API for local development.
// PROVIDER_TYPE picks the latency, failure and price profile.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	if err := run(logger); err != nil {
		logger.Error("provider failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	port := getEnv("PORT", "9001")
	providerType := getEnv("PROVIDER_TYPE", "mock1")

	p, ok := profiles[providerType]
	if !ok {
		return errors.New("unknown provider type " + providerType)
	}

	mux := http.NewServeMux()
	NewMock(p, time.Now().UnixNano(), logger.With("provider", p.name)).Routes(mux)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("provider listening", "provider", p.name, "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	logger.Info("shutting down provider")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
