package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("CONFIG_PATH", path)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, BackendSheets, cfg.Sources.Backend)
	assert.Equal(t, "ITC_Campaign_Data_Live", cfg.Sources.Campaigns)
	assert.Equal(t, "ITC_Issue_Queue", cfg.Sources.Issues)
	assert.Equal(t, 10*time.Minute, cfg.Cache.AnalyticTTL)
	assert.Equal(t, 10*time.Second, cfg.Cache.QueueTTL)
	assert.Equal(t, 0.95, cfg.Analysis.InsightThreshold)
	assert.Equal(t, 7, cfg.Analysis.ForecastHorizon)
	assert.Equal(t, 10, cfg.Analysis.MinForecastHistory)
	assert.Equal(t, 5, cfg.Analysis.MinAllocationHistory)
	assert.Equal(t, 5, cfg.Analysis.PendingWindow)
	assert.Equal(t, 10*time.Second, cfg.Webhook.Timeout)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestLoadYAMLAndEnvOverride(t *testing.T) {
	writeConfig(t, `
port: "9090"
log_level: debug
sources:
  backend: workbook
  workbook_dir: /tmp/sheets
  spreadsheet_ids:
    ITC_Campaign_Data_Live: abc123
cache:
  analytic_ttl: 5m
  queue_ttl: 3s
analysis:
  insight_threshold: 0.9
  forecast_horizon: 14
agent:
  schedule: "@every 30s"
`)
	t.Setenv("PORT", "7070")
	t.Setenv("SPREADSHEET_IDS", "ITC_Issue_Queue=xyz")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, BackendWorkbook, cfg.Sources.Backend)
	assert.Equal(t, "/tmp/sheets", cfg.Sources.WorkbookDir)
	assert.Equal(t, map[string]string{"ITC_Campaign_Data_Live": "abc123", "ITC_Issue_Queue": "xyz"}, cfg.Sources.SpreadsheetIDs)
	assert.Equal(t, 5*time.Minute, cfg.Cache.AnalyticTTL)
	assert.Equal(t, 3*time.Second, cfg.Cache.QueueTTL)
	assert.Equal(t, 0.9, cfg.Analysis.InsightThreshold)
	assert.Equal(t, 14, cfg.Analysis.ForecastHorizon)
	assert.Equal(t, "@every 30s", cfg.Agent.Schedule)
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	writeConfig(t, "sources:\n  backend: ftp\n")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sources.backend")
}

func TestLoadRejectsBadEnvNumber(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("FORECAST_HORIZON", "seven")

	_, err := Load()
	require.Error(t, err)
}

func TestPostgresJournalNeedsDSN(t *testing.T) {
	writeConfig(t, "journal:\n  driver: postgres\n")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "journal.dsn")
}
