package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"VCPSentinel/internal/collector"
	"VCPSentinel/internal/config"
	"VCPSentinel/internal/recorder"
	"VCPSentinel/internal/scanner"
	"VCPSentinel/internal/strategy"
)

// app holds the components shared by every subcommand.
type app struct {
	cfg      *config.Config
	scanner  *scanner.Scanner
	recorder recorder.Recorder
	registry *prometheus.Registry
}

func loadConfig(bot bool) (*config.Config, error) {
	cfg, err := config.Load(cfgPath, envPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	validate := cfg.Validate
	if bot {
		validate = cfg.ValidateBot
	}
	if err := validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log_level: %w", err)
	}
	zerolog.SetGlobalLevel(level)
	return cfg, nil
}

func newApp(bot bool) (*app, error) {
	cfg, err := loadConfig(bot)
	if err != nil {
		return nil, err
	}
	cal, err := cfg.Calendar()
	if err != nil {
		return nil, err
	}

	ds := cfg.DataSource
	var provider collector.Provider
	if ds.BaseURL != "" {
		provider = collector.NewVsTraderProvider(ds.BaseURL, ds.APIKey, cfg.Proxy, ds.Timeout, ds.Concurrency, cal.Location)
	} else {
		provider = collector.NewYahooProvider(cfg.Proxy, ds.Timeout, ds.RequestsPerSecond, ds.Burst, ds.Concurrency, cal.Location)
	}
	log.Info().Str("provider", provider.Name()).Msg("data source selected")
	provider = collector.NewGuardedProvider(provider, ds.BreakerOpen)

	universe := collector.NewISINUniverse(cfg.ISINSources(), cfg.Universe.ExcludePrefixes, cfg.Universe.Fallback, cfg.Proxy)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	sc := scanner.New(provider, universe, strategy.NewEvaluator(cfg.StrategyConfig()),
		cal, cfg.ScanOptions(), cfg.Suffixes(), scanner.NewMetrics(reg))

	return &app{cfg: cfg, scanner: sc, recorder: openRecorder(cfg.Database.SQLitePath), registry: reg}, nil
}

func openRecorder(path string) recorder.Recorder {
	if path == "" {
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(path)
	if err != nil {
		log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		return recorder.NewNoopRecorder()
	}
	return sr
}

func (a *app) Close() {
	if err := a.recorder.Close(); err != nil {
		log.Error().Err(err).Msg("close recorder")
	}
}
