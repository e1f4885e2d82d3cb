package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"VCPSentinel/internal/collector"
	"VCPSentinel/internal/scanner"
	"VCPSentinel/internal/strategy"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	DataSource struct {
		BaseURL           string        `yaml:"base_url"`
		APIKey            string        `yaml:"api_key"`
		RequestsPerSecond float64       `yaml:"requests_per_second"`
		Burst             int           `yaml:"burst"`
		Concurrency       int           `yaml:"concurrency"`
		Timeout           time.Duration `yaml:"timeout"`
		BreakerOpen       time.Duration `yaml:"breaker_open"`
	} `yaml:"data_source"`
	Universe struct {
		TWSEURL         string   `yaml:"twse_url"`
		TPExURL         string   `yaml:"tpex_url"`
		Fallback        []string `yaml:"fallback"`
		ExcludePrefixes []string `yaml:"exclude_prefixes"`
	} `yaml:"universe"`
	Scan struct {
		BatchSize       int           `yaml:"batch_size"`
		BatchPause      time.Duration `yaml:"batch_pause"`
		HistoryDays     int           `yaml:"history_days"`
		Timezone        string        `yaml:"timezone"`
		SessionClose    string        `yaml:"session_close"`
		PrimarySuffix   string        `yaml:"primary_suffix"`
		SecondarySuffix string        `yaml:"secondary_suffix"`
	} `yaml:"scan"`
	Criteria struct {
		SMAPeriod        int     `yaml:"sma_period"`
		SlopeLag         int     `yaml:"slope_lag"`
		LookbackDays     int     `yaml:"lookback_days"`
		GapThreshold     float64 `yaml:"gap_threshold"`
		DefaultTightness float64 `yaml:"default_tightness"`
		MinTightSessions int     `yaml:"min_tight_sessions"`
		ShortVolumeDays  int     `yaml:"short_volume_days"`
		LongVolumeDays   int     `yaml:"long_volume_days"`
		MinAvgVolume     float64 `yaml:"min_avg_volume"`
	} `yaml:"criteria"`
	Schedule struct {
		DailyCron string `yaml:"daily_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Metrics struct {
		Listen string `yaml:"listen"`
	} `yaml:"metrics"`
	Proxy      string `yaml:"proxy"`
	LogLevel   string `yaml:"log_level"`
	RunOnStart bool   `yaml:"run_on_start"`
}

// Load reads config from a YAML file, loads envPath into the environment if it
// exists, then applies environment variable overrides and defaults.
func Load(path, envPath string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("path", envPath).Msg("could not load env file")
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func (c *Config) applyEnv() {
	if v := firstEnv("TG_TOKEN", "TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := firstEnv("TG_CHAT_ID", "TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("VSTRADER_BASE_URL"); v != "" {
		c.DataSource.BaseURL = v
	}
	if v := os.Getenv("VSTRADER_API_KEY"); v != "" {
		c.DataSource.APIKey = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("CRON_DAILY"); v != "" {
		c.Schedule.DailyCron = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("METRICS_LISTEN"); v != "" {
		c.Metrics.Listen = v
	}
	if v := os.Getenv("RUN_ON_START"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.RunOnStart = b
		}
	}
}

func (c *Config) applyDefaults() {
	ds := &c.DataSource
	if ds.RequestsPerSecond == 0 {
		ds.RequestsPerSecond = 5
	}
	if ds.Burst == 0 {
		ds.Burst = 5
	}
	if ds.Concurrency == 0 {
		ds.Concurrency = 8
	}
	if ds.Timeout == 0 {
		ds.Timeout = 20 * time.Second
	}
	if ds.BreakerOpen == 0 {
		ds.BreakerOpen = 60 * time.Second
	}

	u := &c.Universe
	if u.TWSEURL == "" {
		u.TWSEURL = collector.DefaultISINSources[0].URL
	}
	if u.TPExURL == "" {
		u.TPExURL = collector.DefaultISINSources[1].URL
	}
	if len(u.Fallback) == 0 {
		u.Fallback = collector.DefaultFallbackSymbols
	}
	if u.ExcludePrefixes == nil {
		u.ExcludePrefixes = []string{"91"}
	}

	s := &c.Scan
	opts := scanner.DefaultOptions()
	if s.BatchSize == 0 {
		s.BatchSize = opts.BatchSize
	}
	if s.BatchPause == 0 {
		s.BatchPause = opts.BatchPause
	}
	if s.HistoryDays == 0 {
		s.HistoryDays = opts.HistoryDays
	}
	if s.Timezone == "" {
		s.Timezone = "Asia/Taipei"
	}
	if s.SessionClose == "" {
		s.SessionClose = "14:30"
	}
	if s.PrimarySuffix == "" {
		s.PrimarySuffix = ".TW"
	}
	if s.SecondarySuffix == "" {
		s.SecondarySuffix = ".TWO"
	}

	cr := &c.Criteria
	def := strategy.DefaultConfig()
	if cr.SMAPeriod == 0 {
		cr.SMAPeriod = def.SMAPeriod
	}
	if cr.SlopeLag == 0 {
		cr.SlopeLag = def.SlopeLag
	}
	if cr.LookbackDays == 0 {
		cr.LookbackDays = def.LookbackDays
	}
	if cr.GapThreshold == 0 {
		cr.GapThreshold = def.GapThreshold
	}
	if cr.DefaultTightness == 0 {
		cr.DefaultTightness = def.DefaultTightness
	}
	if cr.MinTightSessions == 0 {
		cr.MinTightSessions = def.MinTightSessions
	}
	if cr.ShortVolumeDays == 0 {
		cr.ShortVolumeDays = def.ShortVolumeDays
	}
	if cr.LongVolumeDays == 0 {
		cr.LongVolumeDays = def.LongVolumeDays
	}
	if cr.MinAvgVolume == 0 {
		cr.MinAvgVolume = def.MinAvgVolume
	}

	if c.Schedule.DailyCron == "" {
		c.Schedule.DailyCron = "0 40 14 * * 1-5"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// StrategyConfig returns the evaluator settings.
func (c *Config) StrategyConfig() strategy.Config {
	cr := c.Criteria
	return strategy.Config{
		SMAPeriod:        cr.SMAPeriod,
		SlopeLag:         cr.SlopeLag,
		LookbackDays:     cr.LookbackDays,
		GapThreshold:     cr.GapThreshold,
		DefaultTightness: cr.DefaultTightness,
		MinTightSessions: cr.MinTightSessions,
		ShortVolumeDays:  cr.ShortVolumeDays,
		LongVolumeDays:   cr.LongVolumeDays,
		MinAvgVolume:     cr.MinAvgVolume,
	}
}

// ScanOptions returns the batch scanner limits.
func (c *Config) ScanOptions() scanner.Options {
	return scanner.Options{
		BatchSize:   c.Scan.BatchSize,
		BatchPause:  c.Scan.BatchPause,
		HistoryDays: c.Scan.HistoryDays,
	}
}

// ISINSources returns the universe pages with their exchange suffixes.
func (c *Config) ISINSources() []collector.ISINSource {
	return []collector.ISINSource{
		{URL: c.Universe.TWSEURL, Suffix: c.Scan.PrimarySuffix},
		{URL: c.Universe.TPExURL, Suffix: c.Scan.SecondarySuffix},
	}
}

// Suffixes returns the exchange suffixes in the order diagnostics try them.
func (c *Config) Suffixes() []string {
	return []string{c.Scan.PrimarySuffix, c.Scan.SecondarySuffix}
}

// Calendar builds the market calendar from timezone and session_close.
func (c *Config) Calendar() (scanner.Calendar, error) {
	loc, err := time.LoadLocation(c.Scan.Timezone)
	if err != nil {
		return scanner.Calendar{}, fmt.Errorf("scan.timezone: %w", err)
	}
	closeAt, err := scanner.ParseClock(c.Scan.SessionClose)
	if err != nil {
		return scanner.Calendar{}, fmt.Errorf("scan.session_close: %w", err)
	}
	return scanner.Calendar{Location: loc, SessionClose: closeAt}, nil
}

// Validate checks everything a scan needs.
func (c *Config) Validate() error {
	if err := c.StrategyConfig().Validate(); err != nil {
		return fmt.Errorf("criteria: %w", err)
	}
	if _, err := c.Calendar(); err != nil {
		return err
	}
	if c.Scan.BatchSize <= 0 {
		return fmt.Errorf("scan.batch_size must be positive")
	}
	if c.Scan.HistoryDays*5/7 < c.StrategyConfig().MinSessions()+c.StrategyConfig().LookbackDays {
		return fmt.Errorf("scan.history_days %d too short for %d sessions", c.Scan.HistoryDays, c.StrategyConfig().MinSessions())
	}
	if c.DataSource.RequestsPerSecond < 0 || c.DataSource.Concurrency < 0 {
		return fmt.Errorf("data_source limits must not be negative")
	}
	return nil
}

// ValidateBot additionally checks the Telegram settings the bot mode needs.
func (c *Config) ValidateBot() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required")
	}
	return nil
}
