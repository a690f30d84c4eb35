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
	"go.uber.org/zap"

	_ "github.com/Patrickjoshanedez/Capstone-management-system-sub000/api/swagger"
	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/internal/handler"
	internalmiddleware "github.com/Patrickjoshanedez/Capstone-management-system-sub000/internal/middleware"
	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/internal/repository"
	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/internal/service"
	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/pkg/cache"
	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/pkg/config"
	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/pkg/database"
	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/pkg/jobs"
	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/pkg/logger"
	"github.com/Patrickjoshanedez/Capstone-management-system-sub000/pkg/mailer"
	corsmiddleware "github.com/Patrickjoshanedez/Capstone-management-system-sub000/pkg/middleware/cors"
	reqidmiddleware "github.com/Patrickjoshanedez/Capstone-management-system-sub000/pkg/middleware/requestid"
)

// @title Capstone Management API
// @version 1.0.0
// @description Capstone project workflow, document locking and notifications
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close()

	metrics := service.NewMetricsService()
	checks := map[string]handler.Pinger{"postgres": db}

	projectRepo := repository.NewProjectRepository(db)
	logRepo := repository.NewWorkflowLogRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	userRepo := repository.NewUserRepository(db)

	var statusCache *service.CacheService
	if cfg.Locks.StatusCacheEnabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, lock status cache disabled", zap.Error(err))
		} else {
			cacheRepo := repository.NewCacheRepository(client, logr)
			defer cacheRepo.Close()
			statusCache = service.NewCacheService(cacheRepo, metrics, cfg.Locks.StatusCacheTTL, logr, true)
			checks["redis"] = handler.PingerFunc(cacheRepo.Ping)
		}
	}

	worker := service.NewNotificationWorker(notificationRepo, nil, nil, metrics, logr)
	if cfg.Notifications.EmailEnabled {
		worker = service.NewNotificationWorker(notificationRepo, userRepo, mailer.NewSMTPMailer(cfg.Notifications.SMTP), metrics, logr)
	}
	queue := jobs.NewQueue("notifications", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
		OnDrop: func(job jobs.Job, err error) {
			metrics.RecordNotificationDispatch("abandoned")
		},
	})
	queueCtx, stopQueue := context.WithCancel(context.Background())
	defer stopQueue()
	queue.Start(queueCtx)

	notifications := service.NewNotificationService(notificationRepo, queue, worker, metrics, logr)
	workflow := service.NewWorkflowService(projectRepo, logRepo, notifications, validator.New(), logr,
		service.WithWorkflowMetrics(metrics),
		service.WithWorkflowAudit(auditRepo),
	)
	lockOpts := []service.LockServiceOption{service.WithLockMetrics(metrics)}
	if statusCache != nil {
		lockOpts = append(lockOpts, service.WithLockStatusCache(statusCache, cfg.Locks.StatusCacheTTL))
	}
	locks := service.NewLockService(projectRepo, notifications, auditRepo, logr, lockOpts...)
	tokens := service.NewTokenService(service.TokenConfig{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
		Expiry: cfg.JWT.Expiration,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(internalmiddleware.Metrics(metrics))

	registerRoutes(r, cfg, routeDeps{
		tokens:        tokens,
		workflow:      handler.NewWorkflowHandler(workflow),
		locks:         handler.NewLockHandler(locks),
		notifications: handler.NewNotificationHandler(notifications),
		ops:           handler.NewMetricsHandler(metrics, checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logr.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	queue.Stop()
}
