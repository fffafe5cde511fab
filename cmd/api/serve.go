package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"assetapi/docs"
	"assetapi/internal/config"
	"assetapi/internal/database"
	"assetapi/internal/database/migration"
	handlers "assetapi/internal/http/handler"
	"assetapi/internal/http/middleware"
	apiotel "assetapi/internal/otel"
	"assetapi/internal/repository"
	"assetapi/internal/repository/memory"
	"assetapi/internal/repository/postgres"
	"assetapi/internal/service"
	"assetapi/internal/storage"
	"assetapi/internal/validation"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	e := loadEnv(cmd)
	defer e.log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := apiotel.Init(ctx, e.log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			e.log.Warn("tracing_shutdown_failed", zap.Error(err))
		}
	}()

	b, err := openBackends(ctx, e.cfg, e.log)
	if err != nil {
		return err
	}
	defer b.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	app, err := newServer(e, b, reg)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		e.log.Info("server_stopping")
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			e.log.Error("server_shutdown_failed", zap.Error(err))
		}
	}()

	addr := ":" + e.cfg.Port
	e.log.Info("server_starting",
		zap.String("addr", addr),
		zap.String("storage_backend", e.cfg.Storage.Backend),
		zap.String("metadata_backend", e.cfg.Metadata.Backend),
		zap.Int64("max_file_size", e.cfg.Upload.MaxFileSize),
	)
	if err := app.Listen(addr); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// backends are the stores chosen by configuration.
type backends struct {
	db    *sql.DB
	store storage.Storage
	repo  repository.AssetRepository
}

func (b *backends) Close() {
	if b.db != nil {
		_ = b.db.Close()
	}
}

func openBackends(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) (*backends, error) {
	b := &backends{}

	switch cfg.Metadata.Backend {
	case "postgres":
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		b.db = db
		if cfg.Database.AutoMigrate {
			if err := migration.EnsureMigrated(ctx, db, log, cfg.Database.Host); err != nil {
				b.Close()
				return nil, err
			}
		}
		b.repo = postgres.NewAssetPostgres(db)
	case "memory":
		log.Warn("metadata_backend_volatile", zap.String("metadata_backend", "memory"))
		b.repo = memory.NewAssetRepository()
	default:
		return nil, fmt.Errorf("unknown metadata backend %q", cfg.Metadata.Backend)
	}

	var err error
	switch cfg.Storage.Backend {
	case "fs":
		b.store, err = storage.NewFilesystem(cfg.Storage.UploadDir, afero.NewOsFs())
	case "minio":
		b.store, err = storage.NewMinIO(cfg.MinIO)
	default:
		err = fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to initialize blob storage: %w", err)
	}

	return b, nil
}

// newServer assembles the Fiber app around already opened backends.
func newServer(e env, b *backends, reg *prometheus.Registry) (*fiber.App, error) {
	if b == nil || b.store == nil || b.repo == nil {
		return nil, errors.New("backends are not initialized")
	}

	httpMetrics, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return nil, fmt.Errorf("register http metrics: %w", err)
	}
	svcMetrics, err := service.NewMetrics(reg)
	if err != nil {
		return nil, fmt.Errorf("register service metrics: %w", err)
	}

	policy := validation.Policy{
		MaxFileSize:  e.cfg.Upload.MaxFileSize,
		AllowedTypes: e.cfg.Upload.AllowedTypes,
		Location:     e.loc,
	}
	assetSvc := service.NewAssetService(b.store, b.repo, policy,
		service.WithLogger(e.log),
		service.WithMetrics(svcMetrics),
	)

	app := fiber.New(fiber.Config{
		AppName:               "assetapi",
		ErrorHandler:          handlers.ErrorHandler(),
		BodyLimit:             bodyLimit(policy.MaxFileSize),
		DisableStartupMessage: true,
	})

	app.Use(otelfiber.Middleware())
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(e.log))
	app.Use(httpMetrics.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	handlers.RegisterRoutes(app, b.db, assetSvc)

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	return app, nil
}

// bodyLimit leaves room for multipart framing and the tags field so that a
// file at exactly the maximum size is never cut off by the transport.
func bodyLimit(maxFileSize int64) int {
	limit := 2*maxFileSize + 1<<20
	if maxFileSize > (math.MaxInt32-1<<20)/2 {
		return math.MaxInt32
	}
	return int(limit)
}
