package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ErlanBelekov/wa-scheduler/config"
	"github.com/ErlanBelekov/wa-scheduler/internal/gateway"
	"github.com/ErlanBelekov/wa-scheduler/internal/health"
	"github.com/ErlanBelekov/wa-scheduler/internal/infrastructure/store"
	ctxlog "github.com/ErlanBelekov/wa-scheduler/internal/log"
	"github.com/ErlanBelekov/wa-scheduler/internal/metrics"
	"github.com/ErlanBelekov/wa-scheduler/internal/notify"
	"github.com/ErlanBelekov/wa-scheduler/internal/scheduler"
	httptransport "github.com/ErlanBelekov/wa-scheduler/internal/transport/http"
	"github.com/ErlanBelekov/wa-scheduler/internal/transport/http/handler"
	"github.com/ErlanBelekov/wa-scheduler/internal/usecase"
	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())
	slog.SetDefault(logger)

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer st.Close()

	gw := gateway.New(gateway.Config{
		BaseURL:     cfg.WAServiceURL,
		Timeout:     cfg.GatewayTimeout,
		MaxAttempts: cfg.GatewayMaxAttempts,
		RatePerSec:  cfg.GatewayRatePerSec,
	}, logger)

	notifier, err := notify.New(notify.Config{
		TelegramToken:  cfg.TelegramToken,
		TelegramChatID: cfg.TelegramChatID,
		ResendAPIKey:   cfg.ResendAPIKey,
		ResendFrom:     cfg.ResendFrom,
		EmailTo:        cfg.NotifyEmailTo,
	}, logger)
	if err != nil {
		log.Fatalf("notifier: %v", err)
	}

	loc := cfg.Location()

	// Jobs and the executor reference each other: the executor unregisters
	// finished one-shots, jobs fire into the executor.
	jobs := scheduler.NewJobs(st.Schedules, loc, logger)
	executor := scheduler.NewExecutor(st.Schedules, st.Logs, gw, notifier, logger,
		scheduler.WithLease(cfg.ExecutionLease),
		scheduler.WithLocation(loc),
		scheduler.WithTriggers(jobs),
	)
	jobs.Start(executor.Fire)

	report, err := jobs.ReloadAll(ctx)
	if err != nil {
		log.Fatalf("reload schedules: %v", err)
	}
	for _, inv := range report.Invalid {
		logger.Warn("schedule left unarmed", "schedule_id", inv.ScheduleID, "error", inv.Err)
	}

	scheduleUsecase := usecase.NewScheduleUsecase(st.Schedules, st.Contacts, jobs, executor, logger)
	messageUsecase := usecase.NewMessageUsecase(st.Logs, st.Contacts, gw, logger)
	contactUsecase := usecase.NewContactUsecase(st.Contacts)

	metrics.Register()
	checker := health.NewChecker(map[string]health.Pinger{
		"store":   st.Ping,
		"gateway": health.PingFunc(gw.Health),
	}, logger, prometheus.DefaultRegisterer)

	srv := http.Server{
		Addr: ":" + cfg.Port,
		Handler: httptransport.NewRouter(logger, httptransport.Handlers{
			Schedules: handler.NewScheduleHandler(scheduleUsecase, logger),
			Messages:  handler.NewMessageHandler(messageUsecase, logger),
			Contacts:  handler.NewContactHandler(contactUsecase, logger),
		}, []byte(cfg.JWTSecret)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("server started", "port", cfg.Port, "store", cfg.StoreDriver, "timezone", loc.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	sdNotify(logger, daemon.SdNotifyReady)

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")
	sdNotify(logger, daemon.SdNotifyStopping)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	// In-flight sends finish and record their outcome before the store closes.
	if err := jobs.Stop(shutdownCtx); err != nil {
		logger.Error("job scheduler shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
}

// sdNotify is a no-op outside systemd.
func sdNotify(logger *slog.Logger, state string) {
	if _, err := daemon.SdNotify(false, state); err != nil {
		logger.Warn("sd_notify", "state", state, "error", err)
	}
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
