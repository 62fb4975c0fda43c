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

	"connectrpc.com/connect"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/dutch/internal/auth"
	"github.com/mmynk/dutch/internal/config"
	"github.com/mmynk/dutch/internal/events"
	"github.com/mmynk/dutch/internal/middleware"
	"github.com/mmynk/dutch/internal/service"
	"github.com/mmynk/dutch/internal/settlement"
	"github.com/mmynk/dutch/internal/storage/sqlite"
	"github.com/mmynk/dutch/pkg/dutchrpc"
	"github.com/mmynk/dutch/pkg/logging"
)

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	cfg := config.Load()
	logging.SetupWithLevel(logging.ParseLevel(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	publisher := newPublisher(cfg)
	defer publisher.Close()

	engine := settlement.NewEngine(store, publisher)
	manager := settlement.NewManager(store, engine)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)

	mux := http.NewServeMux()

	// Register Connect services
	groupPath, groupHandler := dutchrpc.NewGroupServiceHandler(
		service.NewGroupService(manager, engine),
		connect.WithInterceptors(middleware.RequireAuth(jwtManager), middleware.LoggingInterceptor()),
	)
	mux.Handle(groupPath, groupHandler)

	authPath, authHandler := dutchrpc.NewAuthServiceHandler(
		service.NewAuthService(auth.NewPasswordAuthenticator(store), jwtManager, slog.Default()),
		connect.WithInterceptors(middleware.LoggingInterceptor()),
	)
	mux.Handle(authPath, authHandler)

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Add logging and CORS middleware
	loggedHandler := loggingMiddleware(corsMiddleware(mux))

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h2c.NewHandler(loggedHandler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		slog.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	slog.Info("Connect server starting", "address", srv.Addr, "url", "http://localhost"+srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()
	slog.Info("Server stopped gracefully")
}

// newPublisher connects to the broker when one is configured. A broker that
// cannot be reached disables events instead of stopping the server.
func newPublisher(cfg *config.Config) events.Publisher {
	if cfg.AMQPURL == "" {
		slog.Info("AMQP not configured, settlement events disabled")
		return events.Noop{}
	}

	publisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	if err != nil {
		slog.Warn("Failed to connect to AMQP, settlement events disabled", "error", err)
		return events.Noop{}
	}

	slog.Info("Publishing settlement events", "exchange", cfg.AMQPExchange)
	return publisher
}

// loggingMiddleware logs all incoming requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		slog.Debug("Request received",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"user_agent", r.UserAgent(),
		)

		next.ServeHTTP(w, r)

		slog.Debug("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
