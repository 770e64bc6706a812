package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/hamed0406/storewatch/internal/config"
	"github.com/hamed0406/storewatch/internal/httpapi"
	"github.com/hamed0406/storewatch/internal/logging"
	"github.com/hamed0406/storewatch/internal/metrics"
	"github.com/hamed0406/storewatch/internal/monitor"
	"github.com/hamed0406/storewatch/internal/notify"
	"github.com/hamed0406/storewatch/internal/probe"
	"github.com/hamed0406/storewatch/internal/repo/factory"
	"github.com/hamed0406/storewatch/internal/scheduler"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logger, err := logging.NewLogger(cfg.LogDir)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logging.Sync(logger) }()

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Fatal("metrics_register_failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := factory.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("status_store_init_failed", zap.Error(err))
	}
	defer closeStore()

	popts := probe.Options{Timeout: cfg.ProbeTimeout, DiagnoseDNS: true}
	play := probe.NewPlayProbe(cfg.GooglePlayPackage, popts)
	appStore := probe.NewAppStoreProbe(cfg.AppStoreID, cfg.AppStoreCountry, popts)

	var notifier notify.Notifier
	if wh := notify.NewWebhook(cfg.WebhookURL, cfg.WebhookSecret); wh != nil {
		notifier = wh
	} else {
		logger.Warn("notifications_disabled", zap.String("reason", "WEBHOOK_URL not set"))
	}

	mon := monitor.New(logger, store, play, appStore, notifier, monitor.Options{Cooldown: cfg.NotifyCooldown})

	sched, err := scheduler.New(logger, mon, cfg.CheckCron, nil)
	if err != nil {
		logger.Fatal("scheduler_init_failed", zap.Error(err))
	}
	go sched.Run(ctx)

	api := httpapi.NewServer(logger, mon, httpapi.Options{
		AdminKeys:  cfg.AdminAPIKeys,
		CheckRPM:   cfg.CheckRPM,
		CheckBurst: cfg.CheckBurst,
	})
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("api_shutdown_failed", zap.Error(err))
		}
	}()

	logger.Info("api_listen",
		zap.String("addr", cfg.Addr),
		zap.String("cron", cfg.CheckCron),
		zap.String("google_play_package", cfg.GooglePlayPackage),
		zap.String("app_store_id", cfg.AppStoreID),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("api_listen_failed", zap.Error(err))
		return
	}
	logger.Info("api_stopped")
}
