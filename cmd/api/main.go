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

	"voiceai-platform/internal/ai"
	"voiceai-platform/internal/audit"
	"voiceai-platform/internal/auth"
	"voiceai-platform/internal/booking"
	"voiceai-platform/internal/calls"
	"voiceai-platform/internal/config"
	"voiceai-platform/internal/dialog"
	"voiceai-platform/internal/events"
	"voiceai-platform/internal/extract"
	"voiceai-platform/internal/notify"
	"voiceai-platform/internal/session"
	"voiceai-platform/internal/tasks"
	"voiceai-platform/internal/telephony"
	"voiceai-platform/internal/tenant"
	"voiceai-platform/internal/voice"
	"voiceai-platform/pkg/logger"
	"voiceai-platform/pkg/utils"

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

	if cfg.IsProduction() {
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

	// Domain events are optional; without a broker the publisher is a noop.
	var pub events.Publisher = events.NoopPublisher{}
	if cfg.Events.AMQPURL != "" {
		pub, err = events.New(cfg.Events.AMQPURL, cfg.Events.Exchange, log)
		if err != nil {
			log.Error("event broker init failed", "err", err)
			os.Exit(1)
		}
		defer pub.Close()
	}

	var sms notify.Sender = notify.NewNoopSender()
	if cfg.Notify.SMSWebhookURL != "" {
		sms = notify.NewWebhookSender(cfg.Notify)
	}

	queue := tasks.NewQueue(
		tasks.NewRedisStore(rdb, cfg.Dialog.SessionTTL),
		tasks.DefaultQueueConfig(),
		log,
	)

	voiceSvc := voice.NewService(voice.Deps{
		DialogConfig: cfg.Dialog,
		Sessions:     session.NewRedisStore(rdb, cfg.Dialog.SessionTTL),
		Machine:      dialog.NewMachine(extract.New(extract.DefaultConfig()), cfg.Dialog.MaxAttemptsPerStep),
		AI:           ai.NewOpenAIClient(cfg.OpenAI),
		Scorer:       ai.NewScorer(ai.DefaultScoreConfig()),
		Finalizer:    booking.NewFinalizer(booking.NewPostgresRepo(db)),
		Queue:        queue,
		SMS:          sms,
		Events:       pub,
		Audit:        audit.NewService(audit.NewPostgresRepo(db)),
		CallLog:      calls.NewPostgresRepo(db),
		Logger:       log,
	})
	voice.NewTaskHandlers(voiceSvc, cfg.Twilio).Register()
	queue.Start(rootCtx)
	defer queue.Stop()

	tenants := tenant.NewPostgresRepo(db)
	gateway := telephony.NewGateway(cfg, voiceSvc, tenants, rdb)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, registerDeps{
		db:       db,
		auth:     authManager,
		gateway:  gateway,
		bookings: booking.NewPostgresRepo(db),
	})

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

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
