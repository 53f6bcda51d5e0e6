package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"signaling-platform/internal/audit"
	"signaling-platform/internal/auth"
	"signaling-platform/internal/config"
	"signaling-platform/internal/events"
	"signaling-platform/internal/notify"
	"signaling-platform/internal/reclaimer"
	"signaling-platform/internal/sessions"
	"signaling-platform/pkg/logger"
	"signaling-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	publisher, err := events.NewMQTTPublisher(events.MQTTOptions{
		Broker:   cfg.MQTT.Broker,
		ClientID: cfg.MQTT.ClientID,
		QoS:      byte(cfg.MQTT.QoS),
	})
	if err != nil {
		log.Error("mqtt init failed", "err", err)
		os.Exit(1)
	}
	defer publisher.Close()

	repo := sessions.NewPostgresRepo(db)
	coordinator := sessions.NewService(
		repo,
		notify.NewRedisDispatcher(rdb),
		publisher,
		sessions.WithTransitionLog(audit.NewService(audit.NewPostgresRepo(db))),
		sessions.WithHistoryPageSize(cfg.Signaling.HistoryPageSize),
	)

	// One sweep at a time across all API instances.
	sweepLock, err := utils.NewRedisLock(rdb, "calls:reclaimer:sweep", 30*time.Second)
	if err != nil {
		log.Error("sweep lock init failed", "err", err)
		os.Exit(1)
	}
	rec := reclaimer.New(repo, coordinator,
		reclaimer.WithInterval(cfg.Signaling.SweepInterval),
		reclaimer.WithGracePeriod(cfg.Signaling.RingGracePeriod),
		reclaimer.WithSweepLock(sweepLock),
		reclaimer.WithLogger(log),
	)
	go rec.Run(rootCtx)

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, authManager, coordinator)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	// Let in-flight notifications and event publishes finish.
	coordinator.Drain()

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
