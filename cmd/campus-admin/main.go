package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/campus-admin-api/api/swagger"
	"github.com/noah-isme/campus-admin-api/internal/handler"
	"github.com/noah-isme/campus-admin-api/internal/middleware"
	"github.com/noah-isme/campus-admin-api/internal/repository"
	"github.com/noah-isme/campus-admin-api/internal/service"
	"github.com/noah-isme/campus-admin-api/internal/store"
	"github.com/noah-isme/campus-admin-api/internal/validation"
	"github.com/noah-isme/campus-admin-api/pkg/cache"
	"github.com/noah-isme/campus-admin-api/pkg/config"
	"github.com/noah-isme/campus-admin-api/pkg/database"
	"github.com/noah-isme/campus-admin-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/campus-admin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/campus-admin-api/pkg/middleware/requestid"
)

// @title Campus Admin API
// @version 1.0.0
// @description Courses, students and enrollments with schedule overlap checks
// @BasePath /api/v1
// @schemes http

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx := context.Background()

	var metrics *service.MetricsService
	if cfg.Metrics.Enabled {
		metrics = service.NewMetricsService()
	}

	remote, checks, closeStore, err := openStore(ctx, cfg, logr)
	if err != nil {
		return err
	}
	defer closeStore()
	remote = store.NewInstrumented(remote, observer(metrics))

	cacheSvc, closeCache := openCache(ctx, cfg, metrics, logr)
	defer closeCache()

	records := validation.NewRecords(validator.New())
	participants := repository.NewParticipantsQuery(remote, cacheSvc, cfg.Participants.CacheTTL, logr.Named("participants"))
	courses := repository.NewCourseRepository(remote, records, logr.Named("courses"))
	students := repository.NewStudentRepository(remote, records, participants, logr.Named("students"))
	enrollments := repository.NewEnrollmentRepository(remote, records, participants, logr.Named("enrollments"))
	exports := service.NewExportService(participants, logr.Named("export"))

	warmUp(ctx, logr, courses, students)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(observerHTTP(metrics), "/metrics", "/health", "/ready"))

	handler.Register(r, cfg.APIPrefix, handler.Handlers{
		Courses:     handler.NewCourseHandler(courses, participants, exports, metrics),
		Students:    handler.NewStudentHandler(students, courses),
		Enrollments: handler.NewEnrollmentHandler(students, courses, enrollments, metrics),
		Metrics:     handler.NewMetricsHandler(metrics, checks),
	}, metrics != nil)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("store", cfg.Store.Driver))
		serverErrors <- srv.ListenAndServe()
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case sig := <-signals:
		logr.Info("shutdown requested", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logr.Info("server stopped")
	return nil
}

// openStore builds the configured remote store along with its readiness checks and a close func.
func openStore(ctx context.Context, cfg *config.Config, logr *zap.Logger) (store.Store, map[string]handler.ReadinessCheck, func(), error) {
	noop := func() {}
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, nil, noop, fmt.Errorf("connect postgres: %w", err)
		}
		checks := map[string]handler.ReadinessCheck{"postgres": db.PingContext}
		return store.NewPostgresStore(db), checks, func() { _ = db.Close() }, nil
	case config.StoreDriverPostgREST:
		if cfg.PostgREST.URL == "" {
			return nil, nil, noop, errors.New("SUPABASE_URL is required for the postgrest store")
		}
		return store.NewPostgRESTStore(cfg.PostgREST.URL, cfg.PostgREST.APIKey, cfg.PostgREST.Timeout, nil), nil, noop, nil
	case config.StoreDriverMemory:
		mem := store.NewMemoryStore()
		if cfg.Store.SeedFile != "" {
			if err := mem.LoadSeedFile(cfg.Store.SeedFile); err != nil {
				return nil, nil, noop, err
			}
			logr.Info("memory store seeded", zap.String("file", cfg.Store.SeedFile))
		}
		return mem, nil, noop, nil
	default:
		return nil, nil, noop, fmt.Errorf("unknown STORE_DRIVER %q", cfg.Store.Driver)
	}
}

// openCache connects redis when the participants cache is enabled. Connection failures disable the cache.
func openCache(ctx context.Context, cfg *config.Config, metrics *service.MetricsService, logr *zap.Logger) (*service.CacheService, func()) {
	if !cfg.Participants.CacheEnabled {
		return nil, func() {}
	}
	client, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("participants cache disabled", zap.Error(err))
		return nil, func() {}
	}
	repo := repository.NewCacheRepository(client, "campus", logr.Named("cache"))
	return service.NewCacheService(repo, metrics, cfg.Participants.CacheTTL, logr.Named("cache"), true), func() { _ = repo.Close() }
}

// warmUp loads the course and student collections once at startup.
func warmUp(ctx context.Context, logr *zap.Logger, courses *repository.CourseRepository, students *repository.StudentRepository) {
	if _, err := courses.FetchAll(ctx); err != nil {
		logr.Warn("initial course load failed", zap.Error(err))
	}
	if _, err := students.FetchAll(ctx); err != nil {
		logr.Warn("initial student load failed", zap.Error(err))
	}
}

// observer avoids handing a typed nil to the store decorator.
func observer(metrics *service.MetricsService) store.Observer {
	if metrics == nil {
		return nil
	}
	return metrics
}

func observerHTTP(metrics *service.MetricsService) middleware.RequestObserver {
	if metrics == nil {
		return nil
	}
	return metrics
}
