package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rehanisg222/deploymentcrm/internal/access"
	"github.com/rehanisg222/deploymentcrm/internal/activity"
	"github.com/rehanisg222/deploymentcrm/internal/config"
	"github.com/rehanisg222/deploymentcrm/internal/database"
	"github.com/rehanisg222/deploymentcrm/internal/handler"
	"github.com/rehanisg222/deploymentcrm/internal/logger"
	"github.com/rehanisg222/deploymentcrm/internal/middleware"
	"github.com/rehanisg222/deploymentcrm/internal/queue"
	"github.com/rehanisg222/deploymentcrm/internal/repository"
	"github.com/rehanisg222/deploymentcrm/internal/router"
	"github.com/rehanisg222/deploymentcrm/internal/service"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, "deploymentcrm")
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	db, err := database.Open(database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}
	defer db.Close()

	ctx := context.Background()
	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatal("migrate", zap.Error(err))
		}
	}

	var rdb *redis.Client
	if c, err := config.NewRedisClient(ctx, config.LoadRedisOptions()); err != nil {
		log.Warn("redis unavailable; rate limiting and caching disabled", zap.Error(err))
	} else {
		rdb = c
		defer rdb.Close()
	}

	users := repository.NewUserRepo(db)
	leads := repository.NewLeadRepo(db)
	resolver := access.NewResolver(users)

	var hooks []activity.Hook
	if cfg.AMQPURL != "" {
		pub := queue.NewPublisher(cfg.AMQPURL, cfg.ActivityQueue, log, cfg.ActivityBuffer)
		defer pub.Close()
		hooks = append(hooks, pub)
	}
	recorder := activity.NewRecorder(repository.NewActivityRepo(db), users, log, hooks...)

	userSvc := service.NewUserService(users, cfg.BcryptCost)
	created, err := userSvc.EnsureAdmin(ctx, cfg.BootstrapAdminName, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword)
	if err != nil {
		log.Fatal("bootstrap admin", zap.Error(err))
	}
	if created {
		log.Info("bootstrap admin created", zap.String("email", cfg.BootstrapAdminEmail))
	}

	h := router.Handlers{
		Auth:       handler.NewAuthHandler(cfg, users, repository.NewTokenRepo(db), log),
		Leads:      handler.NewLeadHandler(service.NewLeadService(leads, recorder, resolver), log),
		Comments:   handler.NewCommentHandler(service.NewCommentService(repository.NewCommentRepo(db), leads, recorder), log),
		Activities: handler.NewActivityHandler(service.NewActivityService(repository.NewActivityRepo(db), recorder), log),
		Brokers:    handler.NewBrokerHandler(service.NewBrokerService(repository.NewBrokerRepo(db), users), log),
		Projects:   handler.NewProjectHandler(service.NewProjectService(repository.NewProjectRepo(db), recorder), log),
		Users:      handler.NewUserHandler(userSvc, log),
		Health:     handler.Health(db),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(log))
	router.Register(e, h, router.Options{
		JWTSecret: cfg.JWTSecret,
		Resolver:  resolver,
		Redis:     rdb,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
		Log:       log,
	})

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
}
