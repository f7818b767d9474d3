package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-enrollment-api/api/swagger"
	"github.com/noah-isme/sma-enrollment-api/internal/handler"
	"github.com/noah-isme/sma-enrollment-api/internal/repository"
	"github.com/noah-isme/sma-enrollment-api/internal/router"
	"github.com/noah-isme/sma-enrollment-api/internal/service"
	"github.com/noah-isme/sma-enrollment-api/pkg/cache"
	"github.com/noah-isme/sma-enrollment-api/pkg/config"
	"github.com/noah-isme/sma-enrollment-api/pkg/database"
	"github.com/noah-isme/sma-enrollment-api/pkg/jobs"
	"github.com/noah-isme/sma-enrollment-api/pkg/logger"
)

// @title Course Enrollment API
// @version 1.0.0
// @description Course enrollment with capacity control, schedule conflict detection and resource availability.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 15 * time.Second

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server exited", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}

	metrics := service.NewMetricsService()

	enrollmentRepo := repository.NewEnrollmentRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	classroomRepo := repository.NewClassroomRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, "enrollment-api:", logr)
	defer cacheRepo.Close() //nolint:errcheck

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Availability.CacheTTL, logr, redisClient != nil)

	enrollmentSvc := service.NewEnrollmentService(
		enrollmentRepo,
		studentRepo,
		courseRepo,
		service.NewCapacityLedger(logr, metrics),
		metrics,
		service.EnrollmentConfig{
			WithdrawGradedPolicy: cfg.Enrollment.WithdrawGradedPolicy,
			PersistenceRetries:   cfg.Enrollment.PersistenceRetries,
		},
		logr,
	)
	if err := enrollmentSvc.Reconcile(ctx); err != nil {
		return fmt.Errorf("seed capacity ledger: %w", err)
	}

	var batchSvc *service.BatchEnrollmentService
	queue := jobs.NewQueue("enrollment-batch", func(ctx context.Context, job jobs.Job) error {
		return batchSvc.Handle(ctx, job)
	}, jobs.QueueConfig{
		Workers:    cfg.Batch.Workers,
		BufferSize: cfg.Batch.BufferSize,
		Logger:     logr,
		OnResult: func(job jobs.Job, err error, _ time.Duration) {
			result := "OK"
			if err != nil {
				result = "ERROR"
			}
			metrics.RecordOutcome(job.Type, result)
		},
	})
	batchSvc = service.NewBatchEnrollmentService(
		enrollmentSvc,
		service.NewBatchJobStore(cacheSvc, cfg.Batch.ResultTTL, logr),
		queue,
		metrics,
		validator.New(),
		service.BatchConfig{MaxSize: cfg.Batch.MaxSize, ResultTTL: cfg.Batch.ResultTTL},
		logr,
	)
	queue.Start(ctx)

	availabilityCache := cacheSvc
	if !cfg.Availability.CacheEnabled {
		availabilityCache = nil
	}
	availabilitySvc := service.NewAvailabilityService(classroomRepo, courseRepo, availabilityCache, cfg.Availability.CacheTTL, logr)

	engine := router.New(router.Deps{
		Config:  cfg,
		Logger:  logr,
		Tokens:  service.NewTokenService(cfg.JWT.Secret, logr),
		Metrics: metrics,
	}, router.Handlers{
		Enrollment:   handler.NewEnrollmentHandler(enrollmentSvc),
		Batch:        handler.NewBatchHandler(batchSvc),
		Availability: handler.NewAvailabilityHandler(availabilitySvc),
		Metrics:      handler.NewMetricsHandler(metrics, db),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		logr.Info("shutdown requested")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("http shutdown", zap.Error(err))
	}
	queue.Stop(shutdownCtx)
	return nil
}
