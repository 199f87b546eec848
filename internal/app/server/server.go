package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"appraisal/internal/domain/appraisals"
	"appraisal/internal/domain/auth"
	"appraisal/internal/domain/cycles"
	"appraisal/internal/domain/directory"
	"appraisal/internal/domain/goals"
	"appraisal/internal/domain/notifications"
	"appraisal/internal/platform/config"
	"appraisal/internal/platform/db"
	"appraisal/internal/platform/email"
	"appraisal/internal/platform/metrics"
	appraisalshandler "appraisal/internal/transport/http/handlers/appraisals"
	authhandler "appraisal/internal/transport/http/handlers/auth"
	cycleshandler "appraisal/internal/transport/http/handlers/cycles"
	eligibilityhandler "appraisal/internal/transport/http/handlers/eligibility"
	goalshandler "appraisal/internal/transport/http/handlers/goals"
	notificationshandler "appraisal/internal/transport/http/handlers/notifications"
	"appraisal/internal/transport/http/middleware"
)

type App struct {
	Config config.Config
	DB     *pgxpool.Pool
	Router http.Handler
}

// New connects to the database, applies migrations and seed data when
// configured, and assembles the HTTP router.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	if cfg.RunMigrations {
		applied, err := db.Migrate(ctx, pool, cfg.MigrationsDir)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
		if len(applied) > 0 {
			slog.Info("migrations applied", "files", applied)
		}
	}
	if cfg.RunSeed {
		hrID, err := db.Seed(ctx, pool, cfg)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
		slog.Info("seed complete", "hrUserId", hrID)
	}
	if cfg.MetricsEnabled {
		metrics.RegisterPool(pool)
	}

	return &App{Config: cfg, DB: pool, Router: newRouter(cfg, pool)}, nil
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests for up
// to ShutdownTimeout.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("appraisal server listening", "addr", a.Config.Addr, "env", a.Config.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return <-errCh
}

func newRouter(cfg config.Config, pool *pgxpool.Pool) http.Handler {
	dir := directory.NewStore(pool)
	perms := auth.StaticPermissions{}
	idempotency := middleware.NewIdempotencyStore(pool)

	notifier := notifications.New(notifications.NewStore(pool), email.New(cfg))
	if cfg.EmailFrom != "" {
		notifier.DefaultFrom = cfg.EmailFrom
	}

	cycleService := cycles.NewService(cycles.NewStore(pool), dir, nil, notifier)
	cycleService.HRReviewPlaceholders = cfg.HRReviewPlaceholders
	goalService := goals.NewService(goals.NewStore(pool), cycleService, notifier)
	goalService.Directory = dir
	appraisalService := appraisals.NewService(appraisals.NewStore(pool), cycleService, dir, goalSource{goals: goalService})
	cycleService.Provisioner = appraisalService
	cycleService.Appraisals = appraisalService
	goalService.Sync = appraisalService

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Logger)
	if cfg.MetricsEnabled {
		router.Use(middleware.Metrics)
	}
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMinute, cfg.RateLimitBurst))
	router.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, cfg.RateLimitBurst))

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
		router.Handle("/metrics", metrics.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		authhandler.NewHandler(dir, perms, cfg.JWTSecret, cfg.TokenTTL).RegisterRoutes(r)
		eligibilityhandler.NewHandler(cycleService, dir, perms).RegisterRoutes(r)
		cycleshandler.NewHandler(cycleService, perms, idempotency).RegisterRoutes(r)
		goalshandler.NewHandler(goalService, dir, perms, idempotency).RegisterRoutes(r)
		appraisalshandler.NewHandler(appraisalService, perms).RegisterRoutes(r)
		notificationshandler.NewHandler(notifier, perms).RegisterRoutes(r)
	})

	return router
}

// goalSource feeds an employee's cycle goals into appraisal provisioning
// and resync.
type goalSource struct {
	goals *goals.Service
}

func (g goalSource) GoalsFor(ctx context.Context, employeeID, cycleID string) ([]appraisals.GoalSnapshot, error) {
	list, err := g.goals.List(ctx, goals.ListFilter{EmployeeID: employeeID, CycleID: cycleID})
	if err != nil {
		return nil, err
	}
	out := make([]appraisals.GoalSnapshot, 0, len(list))
	for _, goal := range list {
		out = append(out, appraisals.GoalSnapshot{
			ID:             goal.ID,
			ApprovalStatus: goal.ApprovalStatus,
			Title:          goal.Title,
			Weight:         goal.Weight,
			Progress:       goal.Progress,
		})
	}
	return out, nil
}
