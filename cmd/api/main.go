package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/nibsworks/tms-scheduler/internal/config"
	"github.com/nibsworks/tms-scheduler/internal/email"
	dashboardHandler "github.com/nibsworks/tms-scheduler/internal/handler/dashboard"
	healthHandler "github.com/nibsworks/tms-scheduler/internal/handler/health"
	holidayHandler "github.com/nibsworks/tms-scheduler/internal/handler/holiday"
	patientHandler "github.com/nibsworks/tms-scheduler/internal/handler/patient"
	protocolHandler "github.com/nibsworks/tms-scheduler/internal/handler/protocol"
	schedulingHandler "github.com/nibsworks/tms-scheduler/internal/handler/scheduling"
	sessionHandler "github.com/nibsworks/tms-scheduler/internal/handler/session"
	"github.com/nibsworks/tms-scheduler/internal/repository/postgres"
	"github.com/nibsworks/tms-scheduler/internal/router"
	holidayService "github.com/nibsworks/tms-scheduler/internal/service/holiday"
	patientService "github.com/nibsworks/tms-scheduler/internal/service/patient"
	protocolService "github.com/nibsworks/tms-scheduler/internal/service/protocol"
	schedulingService "github.com/nibsworks/tms-scheduler/internal/service/scheduling"
	sessionService "github.com/nibsworks/tms-scheduler/internal/service/session"
	"github.com/nibsworks/tms-scheduler/pkg/logger"
	"github.com/nibsworks/tms-scheduler/pkg/messaging"
	redisbroker "github.com/nibsworks/tms-scheduler/pkg/messaging/redis"
	"github.com/nibsworks/tms-scheduler/pkg/metrics"
	"github.com/nibsworks/tms-scheduler/pkg/security"
	"github.com/nibsworks/tms-scheduler/pkg/worker"
)

func main() {
	log := logger.NewLogger(nil)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err, "failed to load configuration")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	if err := postgres.EnsureSchema(context.Background(), db); err != nil {
		log.Fatal(err, "failed to ensure database schema")
	}

	m := metrics.NewMetrics("tms_scheduler")

	// Repositories
	patientRepo := postgres.NewPatientRepository(db)
	protocolRepo := postgres.NewProtocolRepository(db)
	holidayRepo := postgres.NewHolidayRepository(db)
	sessionRepo := postgres.NewSessionRepository(db)
	slotRepo := postgres.NewSlotRepository(db)
	paramRepo := postgres.NewParameterRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	// Referral notifications are optional; without SMTP they are logged
	// and dropped.
	var notifier email.Service
	if cfg.SMTP.Enabled {
		notifier = email.NewSMTPService(email.SMTPConfig{
			Host:        cfg.SMTP.Host,
			Port:        cfg.SMTP.Port,
			Username:    cfg.SMTP.Username,
			Password:    cfg.SMTP.Password,
			From:        cfg.SMTP.From,
			TeamAddress: cfg.SMTP.TeamAddress,
		})
	} else {
		notifier = email.NewNoopService()
	}

	// Services
	holidaySvc := holidayService.NewService(holidayRepo)
	protocolSvc := protocolService.NewService(protocolRepo, log)
	schedulingSvc := schedulingService.NewService(
		sessionRepo,
		slotRepo,
		outboxRepo,
		holidaySvc,
		protocolSvc,
		log,
		m,
	)
	sessionSvc := sessionService.NewService(sessionRepo, paramRepo, log, m)
	hasher := security.NewBcryptHasher(0)
	patientSvc := patientService.NewService(patientRepo, notifier, hasher, cfg.Admin.PasswordHash, log)

	// Router
	r := router.NewRouter(
		healthHandler.NewHandler(db),
		patientHandler.NewHandler(patientSvc),
		protocolHandler.NewHandler(protocolSvc),
		holidayHandler.NewHandler(holidaySvc),
		schedulingHandler.NewHandler(schedulingSvc),
		sessionHandler.NewHandler(sessionSvc),
		dashboardHandler.NewHandler(slotRepo, cfg.Scheduling.MaxDailySlots),
		router.RouterConfig{
			RateLimit:     rate.Limit(100),
			RateBurst:     200,
			Timeout:       time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
			MetricsPrefix: "tms_scheduler_http",
		},
	)
	r.Setup()

	// Outbox relay, only when a broker is configured.
	if cfg.Redis.Enabled {
		var broker messaging.Broker
		broker, err = redisbroker.NewRedisBroker(redisbroker.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   cfg.Redis.MaxRetries,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		}, log.Zerolog())
		if err != nil {
			log.Fatal(err, "failed to connect to Redis")
		}

		outboxProcessor := worker.NewOutboxProcessor(outboxRepo, broker, worker.OutboxProcessorConfig{
			BatchSize:     cfg.Outbox.BatchSize,
			PollInterval:  time.Duration(cfg.Outbox.PollIntervalSeconds) * time.Second,
			RetryAttempts: cfg.Outbox.RetryAttempts,
		}, log, m)
		go outboxProcessor.Start(context.Background())
	} else {
		log.Info("redis disabled, outbox events will accumulate until a broker is configured")
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		log.Info("starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err, "failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal(err, "server forced to shutdown")
	}

	log.Info("server exited properly")
}
