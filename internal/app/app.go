package app

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

	"github.com/alex-user-go/hotelsearch/internal/config"
	"github.com/alex-user-go/hotelsearch/internal/handler"
	"github.com/alex-user-go/hotelsearch/internal/middleware"
	"github.com/alex-user-go/hotelsearch/internal/obs"
	"github.com/alex-user-go/hotelsearch/internal/providers"
	"github.com/alex-user-go/hotelsearch/internal/search"
	"github.com/alex-user-go/hotelsearch/internal/search/cache"
	"github.com/alex-user-go/hotelsearch/internal/search/ratelimit"
	"github.com/alex-user-go/hotelsearch/internal/search/store"
	"github.com/alex-user-go/hotelsearch/internal/session"
	"github.com/alex-user-go/hotelsearch/internal/ws"
)

// NewLogger creates the JSON logger used by every component.
func NewLogger(w io.Writer, cfg config.Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
}

// NewSource builds the hotel source: one HTTP provider per configured base
// URL behind the aggregator, optionally cached. The returned function
// releases background resources.
func NewSource(cfg config.Config, metrics *obs.Metrics, logger *slog.Logger) (providers.Source, func()) {
	list := make([]providers.Source, 0, len(cfg.Remote.BaseURLs))
	for i, u := range cfg.Remote.BaseURLs {
		name := fmt.Sprintf("remote%d", i+1)
		list = append(list, providers.NewHTTPProvider(name, u, cfg.Remote.TenantID, cfg.Remote.Timeout))
	}

	aggregator := search.NewAggregator(list, cfg.Remote.Timeout, metrics, logger)
	if cfg.Cache.TTL <= 0 {
		return aggregator, func() {}
	}

	searchCache := cache.NewCache(cfg.Cache.TTL)
	return cache.NewSource(aggregator, searchCache, metrics), searchCache.Close
}

// Run initializes and runs the server until ctx is cancelled or a
// termination signal arrives.
func Run(ctx context.Context, cfg config.Config) error {
	// Initialize logger
	logger := NewLogger(os.Stdout, cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize metrics
	metrics := obs.NewMetrics(logger)

	source, closeSource := NewSource(cfg, metrics, logger)
	defer closeSource()

	// Sessions, one search store each
	sessions := session.NewRegistry(func() *store.Store {
		return store.New(source, cfg.Search, metrics, logger)
	}, cfg.Session.IdleTTL, metrics, logger)
	defer sessions.Close()

	hub := ws.NewHub(metrics, logger)
	hubCtx, cancelHub := context.WithCancel(context.Background())
	defer cancelHub()
	go hub.Run(hubCtx)

	limiter := ratelimit.New(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	defer limiter.Close()

	// Initialize handler
	h := handler.New(sessions, source, hub, limiter, metrics, logger)
	router := h.Router(obs.HealthHandler(logger), metrics.MetricsHandler())

	// Wrap with middleware
	wrappedHandler := middleware.CORS(middleware.Logging(logger)(router))

	// Configure server. No write timeout: websocket connections are long lived.
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           wrappedHandler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", srv.Addr, "remotes", len(cfg.Remote.BaseURLs))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("server error", "error", err)
		return err
	}

	// Graceful shutdown
	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		return err
	}

	logger.Info("server stopped")
	return nil
}
