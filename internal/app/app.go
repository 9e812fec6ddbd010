// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/bissquit/risk-ledger/internal/analytics"
	"github.com/bissquit/risk-ledger/internal/config"
	"github.com/bissquit/risk-ledger/internal/domain"
	"github.com/bissquit/risk-ledger/internal/incidents"
	"github.com/bissquit/risk-ledger/internal/incidents/memory"
	incidentspostgres "github.com/bissquit/risk-ledger/internal/incidents/postgres"
	"github.com/bissquit/risk-ledger/internal/incidents/seed"
	incidentssqlite "github.com/bissquit/risk-ledger/internal/incidents/sqlite"
	"github.com/bissquit/risk-ledger/internal/pkg/ctxlog"
	"github.com/bissquit/risk-ledger/internal/pkg/httputil"
	"github.com/bissquit/risk-ledger/internal/pkg/metrics"
	"github.com/bissquit/risk-ledger/internal/pkg/migrations"
	"github.com/bissquit/risk-ledger/internal/pkg/postgres"
	"github.com/bissquit/risk-ledger/internal/pkg/sqlite"
	"github.com/bissquit/risk-ledger/internal/version"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// App represents the application instance.
type App struct {
	config        *config.Config
	logger        *slog.Logger
	pool          *pgxpool.Pool
	sqlDB         *sql.DB
	service       *incidents.Service
	server        *http.Server
	metricsServer *http.Server
	metricsCancel context.CancelFunc
}

// New creates a new application instance: it opens the configured storage,
// seeds an empty register and builds both HTTP servers.
func New(cfg *config.Config) (*App, error) {
	logger := initLogger(cfg.Log)
	slog.SetDefault(logger)

	app := &App{
		config: cfg,
		logger: logger,
	}

	repo, err := app.openStorage()
	if err != nil {
		return nil, err
	}

	formatter, err := analytics.NewFormatter(cfg.Dashboard.Locale)
	if err != nil {
		app.closeStorage()
		return nil, fmt.Errorf("create formatter: %w", err)
	}
	app.service = incidents.NewService(repo, formatter)

	if err := app.seed(); err != nil {
		app.closeStorage()
		return nil, err
	}

	metricsCtx, metricsCancel := context.WithCancel(context.Background())
	app.metricsCancel = metricsCancel
	if app.pool != nil || app.sqlDB != nil {
		go app.collectDBMetrics(metricsCtx)
	}

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           app.setupRouter(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Metrics server on separate port
	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())

	app.metricsServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return app, nil
}

func (a *App) openStorage() (incidents.Repository, error) {
	cfg := a.config
	a.logger.Info("opening storage", "driver", cfg.Storage.Driver)

	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		if cfg.Database.AutoMigrate {
			if err := migrations.Up(migrations.DialectPostgres, cfg.Database.URL); err != nil {
				return nil, fmt.Errorf("migrate database: %w", err)
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeout)
		defer cancel()

		pool, err := postgres.Connect(ctx, postgres.Config{
			URL:             cfg.Database.URL,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			ConnectAttempts: cfg.Database.ConnectAttempts,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		a.pool = pool
		return incidentspostgres.NewRepository(pool), nil

	case config.DriverSQLite:
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeout)
		defer cancel()

		db, err := sqlite.Open(ctx, sqlite.Config{
			Path:        cfg.SQLite.Path,
			BusyTimeout: cfg.SQLite.BusyTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		a.sqlDB = db

		if cfg.Database.AutoMigrate {
			if err := migrations.Up(migrations.DialectSQLite, migrations.SQLiteURL(cfg.SQLite.Path)); err != nil {
				a.closeStorage()
				return nil, fmt.Errorf("migrate database: %w", err)
			}
		}
		return incidentssqlite.NewRepository(db), nil

	default:
		return memory.NewRepository(), nil
	}
}

func (a *App) closeStorage() {
	if a.pool != nil {
		a.pool.Close()
	}
	if a.sqlDB != nil {
		if err := a.sqlDB.Close(); err != nil {
			a.logger.Warn("failed to close sqlite database", "error", err)
		}
	}
}

// seed fills an empty register from the configured seed file or the
// bundled demo data.
func (a *App) seed() error {
	var (
		list []domain.Incident
		err  error
		src  string
	)
	switch {
	case a.config.Seed.Path != "":
		src = a.config.Seed.Path
		list, err = seed.Load(a.config.Seed.Path)
	case a.config.Seed.Demo:
		src = "demo"
		list, err = seed.Demo()
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("load seed: %w", err)
	}

	ctx := ctxlog.WithLogger(context.Background(), a.logger.With("seed_source", src))
	if _, err := a.service.Seed(ctx, list); err != nil {
		return fmt.Errorf("seed register: %w", err)
	}
	return nil
}

// Run starts the HTTP servers.
func (a *App) Run() error {
	// Start metrics server in background
	go func() {
		a.logger.Info("starting metrics server",
			"host", a.config.Server.Host,
			"port", a.config.Server.MetricsPort,
		)
		if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server error", "error", err)
		}
	}()

	a.logger.Info("starting server",
		"host", a.config.Server.Host,
		"port", a.config.Server.Port,
		"version", version.Version,
	)

	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")

	a.metricsCancel()

	var wg sync.WaitGroup
	var errs []error
	var mu sync.Mutex

	shutdown := func(name string, srv *http.Server) {
		defer wg.Done()
		if err := srv.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown %s: %w", name, err))
			mu.Unlock()
		}
	}

	wg.Add(2)
	go shutdown("server", a.server)
	go shutdown("metrics server", a.metricsServer)
	wg.Wait()

	a.closeStorage()

	return errors.Join(errs...)
}

func (a *App) collectDBMetrics(ctx context.Context) {
	record := func() {
		if a.pool != nil {
			metrics.RecordDBPoolMetrics(a.pool)
		}
		if a.sqlDB != nil {
			metrics.RecordSQLDBMetrics(a.sqlDB)
		}
	}
	record()

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			record()
		case <-ctx.Done():
			return
		}
	}
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

func (a *App) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)

	// CORS must be early to handle preflight requests before other middleware
	r.Use(httputil.CORSMiddleware(a.config.CORS.AllowedOrigins))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", a.healthzHandler)
	r.Get("/readyz", a.readyzHandler)
	r.Get("/version", a.versionHandler)

	r.Get("/api/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-yaml")
		http.ServeFile(w, r, "api/openapi/openapi.yaml")
	})

	r.Get("/docs", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(docsPage))
	})

	handler := incidents.NewHandler(a.service)
	rl := a.config.Server.RateLimit

	r.Route("/api/v1", func(r chi.Router) {
		handler.RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(httputil.RateLimitMiddleware(rl.RPS, rl.Burst))
			handler.RegisterWriteRoutes(r)
		})
	})

	return r
}

const docsPage = `<!DOCTYPE html>
<html>
<head>
    <title>Risk Ledger API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
        SwaggerUIBundle({
            url: "/api/openapi.yaml",
            dom_id: '#swagger-ui',
            presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
            layout: "BaseLayout"
        });
    </script>
</body>
</html>`

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.service.Ping(ctx); err != nil {
		ctxlog.FromContext(r.Context()).Error("readiness check failed", "error", err)
		httputil.Text(w, http.StatusServiceUnavailable, "Storage unavailable")
		return
	}

	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{
		"version":    version.Version,
		"commit":     version.GitCommit,
		"build_date": version.BuildDate,
	})
}

func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
