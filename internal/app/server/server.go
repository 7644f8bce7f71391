package server

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"campus/internal/domain/audit"
	"campus/internal/domain/auth"
	"campus/internal/domain/components"
	"campus/internal/domain/payroll"
	"campus/internal/domain/staff"
	"campus/internal/platform/config"
	"campus/internal/platform/db"
	"campus/internal/platform/metrics"
	"campus/internal/transport/http/api"
	authhandler "campus/internal/transport/http/handlers/auth"
	componentshandler "campus/internal/transport/http/handlers/components"
	payrollhandler "campus/internal/transport/http/handlers/payroll"
	staffhandler "campus/internal/transport/http/handlers/staff"
	"campus/internal/transport/http/middleware"
)

const maxBodyBytes = 1 << 20

type App struct {
	Config config.Config
	Pool   *pgxpool.Pool
	Router http.Handler
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
			pool.Close()
			return nil, err
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, err
		}
	}

	return &App{
		Config: cfg,
		Pool:   pool,
		Router: buildRouter(cfg, pool),
	}, nil
}

func (a *App) Close() {
	a.Pool.Close()
}

func Run() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg := config.Load()
	app, err := New(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to start app: %v", err)
	}
	defer app.Close()

	slog.Info("payroll server listening", "addr", cfg.Addr, "env", cfg.Environment)
	if err := http.ListenAndServe(cfg.Addr, app.Router); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

func buildRouter(cfg config.Config, pool dbPool) http.Handler {
	collector := metrics.New()

	authStore := auth.NewStore(pool)
	staffStore := staff.NewStore(pool)
	componentStore := components.NewStore(pool)
	recordStore := payroll.NewStore(pool)
	auditLog := audit.New(pool)

	payrollService := payroll.NewService(recordStore, staffStore, componentStore, cfg.BulkWorkers)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(collector))
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(maxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Get("/metricsz", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, collector.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		authHandler := authhandler.NewHandler(authStore, cfg.JWTSecret)
		r.Post("/auth/login", authHandler.HandleLogin)

		staffhandler.NewHandler(staffStore, auditLog).RegisterRoutes(r)

		r.Route("/payroll", func(r chi.Router) {
			componentshandler.NewHandler(componentStore, auditLog, payrollService).RegisterRoutes(r)
			payrollhandler.NewHandler(payrollService, auditLog).RegisterRoutes(r)
		})
	})

	return router
}

// dbPool is the pool surface the router needs; *pgxpool.Pool satisfies it and
// tests can substitute a mock.
type dbPool interface {
	payroll.Querier
	Ping(ctx context.Context) error
}
