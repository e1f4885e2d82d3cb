package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"VCPSentinel/internal/strategy"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

// unsetEnv clears keys for the test; t.Setenv restores them afterwards.
func unsetEnv(t *testing.T, keys ...string) {
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	unsetEnv(t, "TG_TOKEN", "TELEGRAM_BOT_TOKEN", "CRON_DAILY")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), "")
	require.NoError(t, err)

	assert.Equal(t, strategy.DefaultConfig(), cfg.StrategyConfig())
	assert.Equal(t, 200, cfg.Scan.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.Scan.BatchPause)
	assert.Equal(t, 250, cfg.Scan.HistoryDays)
	assert.Equal(t, "0 40 14 * * 1-5", cfg.Schedule.DailyCron)
	assert.Equal(t, []string{".TW", ".TWO"}, cfg.Suffixes())
	assert.Equal(t, []string{"91"}, cfg.Universe.ExcludePrefixes)
	assert.NoError(t, cfg.Validate())
	assert.Error(t, cfg.ValidateBot(), "no telegram token")

	cal, err := cfg.Calendar()
	require.NoError(t, err)
	assert.Equal(t, 14*time.Hour+30*time.Minute, cal.SessionClose)
	assert.Equal(t, "Asia/Taipei", cal.Location.String())
}

func TestLoad_YAMLAndEnv(t *testing.T) {
	path := writeFile(t, "config.yaml", `
telegram:
  bot_token: yaml-token
  chat_id: "42"
data_source:
  timeout: 5s
scan:
  batch_size: 50
  batch_pause: 2s
criteria:
  default_tightness: 0.03
  min_avg_volume: 1000000
universe:
  exclude_prefixes: []
`)
	unsetEnv(t, "TG_CHAT_ID", "TELEGRAM_CHAT_ID")
	t.Setenv("TG_TOKEN", "env-token")
	t.Setenv("SQLITE_PATH", "/tmp/vcp.db")

	cfg, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.Telegram.BotToken)
	assert.Equal(t, "42", cfg.Telegram.ChatID)
	assert.Equal(t, "/tmp/vcp.db", cfg.Database.SQLitePath)
	assert.Equal(t, 5*time.Second, cfg.DataSource.Timeout)
	assert.Equal(t, 50, cfg.ScanOptions().BatchSize)
	assert.Equal(t, 2*time.Second, cfg.ScanOptions().BatchPause)
	assert.Empty(t, cfg.Universe.ExcludePrefixes, "explicit empty list keeps 91xx receipts")

	sc := cfg.StrategyConfig()
	assert.Equal(t, 0.03, sc.DefaultTightness)
	assert.Equal(t, 1000000.0, sc.MinAvgVolume)
	assert.Equal(t, 60, sc.SMAPeriod)
	assert.NoError(t, cfg.ValidateBot())
}

func TestLoad_EnvFile(t *testing.T) {
	unsetEnv(t, "TG_CHAT_ID", "TELEGRAM_CHAT_ID", "LOG_LEVEL")
	env := writeFile(t, ".env", "TG_CHAT_ID=777\nLOG_LEVEL=debug\n")

	cfg, err := Load("", env)
	require.NoError(t, err)
	assert.Equal(t, "777", cfg.Telegram.ChatID)
	assert.Equal(t, "debug", cfg.LogLevel)

	_, err = Load("", filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}

func TestLoad_BadYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", "scan: [unterminated")
	_, err := Load(path, "")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := Load("", "")
	require.NoError(t, err)

	bad := *cfg
	bad.Scan.Timezone = "Mars/Olympus"
	assert.ErrorContains(t, bad.Validate(), "scan.timezone")

	bad = *cfg
	bad.Scan.SessionClose = "2pm"
	assert.ErrorContains(t, bad.Validate(), "scan.session_close")

	bad = *cfg
	bad.Criteria.LongVolumeDays = 10
	assert.ErrorContains(t, bad.Validate(), "criteria")

	bad = *cfg
	bad.Scan.HistoryDays = 60
	assert.ErrorContains(t, bad.Validate(), "history_days")
}
