package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"

	_ "github.com/noah-isme/scoresheet-api/api/swagger"
	"github.com/noah-isme/scoresheet-api/internal/handler"
	"github.com/noah-isme/scoresheet-api/internal/repository"
	"github.com/noah-isme/scoresheet-api/internal/service"
	"github.com/noah-isme/scoresheet-api/internal/session"
	"github.com/noah-isme/scoresheet-api/pkg/cache"
	"github.com/noah-isme/scoresheet-api/pkg/config"
	"github.com/noah-isme/scoresheet-api/pkg/database"
	"github.com/noah-isme/scoresheet-api/pkg/jobs"
	"github.com/noah-isme/scoresheet-api/pkg/logger"
	"github.com/noah-isme/scoresheet-api/pkg/storage"
)

// @title Scoresheet API
// @version 0.1.0
// @description Gradebook service: subjects, groups, score columns and grading criteria
// @BasePath /
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	userRepo := repository.NewUserRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	criteriaRepo := repository.NewCriteriaRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	learnerRepo := repository.NewLearnerRepository(db)
	exportRepo := repository.NewExportRepository(db)

	var cacheRepo *repository.CacheRepository
	if cfg.Cache.Enabled && redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}

	sessions := session.NewStore(userRepo, session.Config{
		Window:         cfg.Session.Window,
		RememberWindow: cfg.Session.RememberWindow,
		SweepInterval:  cfg.Session.SweepInterval,
	}, logr)
	sessions.StartSweeper(ctx)

	validate := validator.New()
	metricsSvc := service.NewMetricsService(sessions.ActiveCount)

	authSvc := service.NewAuthService(userRepo, sessions, validate, logr)
	groupSvc := service.NewGroupService(groupRepo, learnerRepo, subjectRepo, criteriaRepo, cacheValue(cacheRepo), cfg.Cache.GroupTTL, metricsSvc, validate, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, criteriaRepo, groupRepo, cacheValue(cacheRepo), cfg.Cache.GroupTTL, validate, logr)

	recomputeQueue := jobs.NewQueue("recompute", func(ctx context.Context, job jobs.Job) error {
		groupID, ok := job.Payload.(string)
		if !ok || groupID == "" {
			return nil
		}
		return groupSvc.Recompute(ctx, groupID)
	}, jobs.QueueConfig{Workers: 1, MaxRetries: 3, RetryDelay: 2 * time.Second, Logger: logr})
	recomputeQueue.Start(ctx)
	defer recomputeQueue.Stop()

	criteriaSvc := service.NewCriteriaService(criteriaRepo, subjectRepo, groupRepo, recomputeQueue, validate, logr)

	var exportSvc *service.ExportService
	if cfg.Exports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		signer := storage.NewDownloadSigner(cfg.Exports.DownloadSecret, cfg.Exports.DownloadTTL)

		exportSvc = service.NewExportService(exportRepo, groupRepo, criteriaRepo, store, signer, nil, validate, logr)
		exportQueue := jobs.NewQueue("exports", exportSvc.HandleJob, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			RetryDelay: 5 * time.Second,
			Logger:     logr,
		})
		exportQueue.Start(ctx)
		defer exportQueue.Stop()
		exportSvc.SetQueue(exportQueue)
	}

	router := handler.NewRouter(handler.RouterDeps{
		Config:   cfg,
		Logger:   logr,
		Auth:     authSvc,
		Subjects: subjectSvc,
		Criteria: criteriaSvc,
		Groups:   groupSvc,
		Exports:  exportSvc,
		Metrics:  metricsSvc,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

// cacheValue keeps a typed nil from sneaking into the service layer's cache
// interface; a nil *CacheRepository must become a nil interface.
func cacheValue(repo *repository.CacheRepository) service.CacheStore {
	if repo == nil {
		return nil
	}
	return repo
}
