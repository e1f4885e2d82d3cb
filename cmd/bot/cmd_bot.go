package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"VCPSentinel/internal/notifier"
	"VCPSentinel/internal/scheduler"
)

func runBot(cmd *cobra.Command, _ []string) error {
	log.Info().Msg("VCP scanner bot starting...")
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()
	cfg := a.cfg

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)

	sched := scheduler.NewScheduler(ctx, a.scanner, tn, a.recorder, cfg.Telegram.ChatID, a.scanner.Calendar.Location)
	if err := sched.Register(cfg.Schedule.DailyCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if cfg.Metrics.Listen != "" {
		go serveMetrics(ctx, cfg.Metrics.Listen, a)
	}

	go tn.StartPolling(ctx, sched.HandleCommand)
	log.Info().Str("cron", cfg.Schedule.DailyCron).Msg("telegram polling started")

	if err := tn.SendWithRetry(ctx, "🤖 VCP scanner is online. Send /help for commands.", 3); err != nil {
		log.Error().Err(err).Msg("send startup message")
	}

	if cfg.RunOnStart {
		log.Info().Msg("RUN_ON_START enabled, executing daily scan now")
		go sched.RunDailyNow()
	}

	log.Info().Msg("VCP scanner is running. Press Ctrl+C to stop.")
	<-ctx.Done()
	log.Info().Msg("shutdown signal received, stopping...")
	return nil
}

func serveMetrics(ctx context.Context, addr string, a *app) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("metrics endpoint listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("metrics server")
	}
}
