package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	ifhttp "github.com/Strob0t/invoiceflow/internal/adapter/http"
	ifotel "github.com/Strob0t/invoiceflow/internal/adapter/otel"
	"github.com/Strob0t/invoiceflow/internal/config"
	"github.com/Strob0t/invoiceflow/internal/middleware"
	"github.com/Strob0t/invoiceflow/internal/service"
)

func runServe(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.close()
	defer a.hub.Close()

	if a.queue != nil {
		cancelIntake, err := service.NewIntake(a.queue, a.orch).Start(ctx)
		if err != nil {
			return err
		}
		defer cancelIntake()
		slog.Info("document intake subscribed")
	}
	go reloadSecretsOnHUP(ctx, a)

	var writes []func(http.Handler) http.Handler
	if cfg.Server.RateLimit > 0 {
		rl := middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst)
		defer rl.StartCleanup(time.Minute, 10*time.Minute)()
		writes = append(writes, rl.Handler)
	}
	writes = append(writes, middleware.Idempotency(a.cache, cfg.Server.IdempotencyTTL))

	r := chi.NewRouter()
	r.Use(ifotel.HTTPMiddleware(cfg.Logging.Service))
	r.Use(ifhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(middleware.TraceID)
	r.Use(ifhttp.Logger)
	r.Use(chimw.Recoverer)

	r.Get("/health", healthHandler(a))
	r.Get("/ws", a.hub.HandleWS)

	ifhttp.MountRoutes(r, &ifhttp.Handlers{
		Pipeline:     a.orch,
		Runs:         a.runs,
		MaxBodyBytes: cfg.Server.MaxRequestBodySize,
	}, writes...)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Pipeline.RunDeadline + 30*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// healthHandler reports the state of the backing services.
func healthHandler(a *app) http.HandlerFunc {
	type healthStatus struct {
		Status      string `json:"status"`
		Postgres    string `json:"postgres"`
		NATS        string `json:"nats"`
		Stages      int    `json:"stages"`
		Connections int    `json:"ws_connections"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		st := healthStatus{
			Status:      "ok",
			Postgres:    "disabled",
			NATS:        "disabled",
			Stages:      len(a.orch.RegisteredAgents()),
			Connections: a.hub.ConnectionCount(),
		}
		code := http.StatusOK
		if a.pool != nil {
			st.Postgres = "up"
			if err := a.pool.Ping(r.Context()); err != nil {
				st.Postgres, st.Status, code = "down", "degraded", http.StatusServiceUnavailable
			}
		}
		if a.queue != nil {
			st.NATS = "up"
			if !a.queue.IsConnected() {
				st.NATS, st.Status, code = "down", "degraded", http.StatusServiceUnavailable
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(st)
	}
}

// reloadSecretsOnHUP re-reads notifier secrets whenever the process receives SIGHUP.
func reloadSecretsOnHUP(ctx context.Context, a *app) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := a.vault.Reload(); err != nil {
				slog.Error("secret reload failed", "error", err)
				continue
			}
			slog.Info("secrets reloaded")
		}
	}
}
