package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	BackendSheets   = "sheets"
	BackendWorkbook = "workbook"
)

type Config struct {
	Port        string        `yaml:"port"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`
	LogLevel    slog.Level    `yaml:"-"`
	LogLevelRaw string        `yaml:"log_level"`

	Sources  Sources  `yaml:"sources"`
	Cache    Cache    `yaml:"cache"`
	Analysis Analysis `yaml:"analysis"`
	Webhook  Webhook  `yaml:"webhook"`
	Slack    Slack    `yaml:"slack"`
	Agent    Agent    `yaml:"agent"`
	Journal  Journal  `yaml:"journal"`
	LLM      LLM      `yaml:"llm"`
}

// Sources describes the backing tabular store and the two collections read from it.
type Sources struct {
	Backend         string            `yaml:"backend"`
	Campaigns       string            `yaml:"campaigns"`
	Issues          string            `yaml:"issues"`
	SpreadsheetIDs  map[string]string `yaml:"spreadsheet_ids"`
	CredentialsFile string            `yaml:"credentials_file"`
	CredentialsJSON string            `yaml:"credentials_json"`
	WorkbookDir     string            `yaml:"workbook_dir"`
	ReadRPS         float64           `yaml:"read_rps"`
	ReadBurst       int               `yaml:"read_burst"`
}

type Cache struct {
	AnalyticTTL time.Duration `yaml:"analytic_ttl"`
	QueueTTL    time.Duration `yaml:"queue_ttl"`
	RedisAddr   string        `yaml:"redis_addr"`
}

type Analysis struct {
	InsightThreshold     float64 `yaml:"insight_threshold"`
	ForecastHorizon      int     `yaml:"forecast_horizon"`
	MinForecastHistory   int     `yaml:"min_forecast_history"`
	MinAllocationHistory int     `yaml:"min_allocation_history"`
	DefaultWindowDays    int     `yaml:"default_window_days"`
	PendingWindow        int     `yaml:"pending_window"`
}

type Webhook struct {
	URL     string        `yaml:"url"`
	Secret  string        `yaml:"secret"`
	Timeout time.Duration `yaml:"timeout"`
}

type Slack struct {
	Token   string `yaml:"token"`
	Channel string `yaml:"channel"`
}

// Agent paces the automatic resolution sequence and optionally runs it on a schedule.
type Agent struct {
	Schedule      string        `yaml:"schedule"`
	FetchDelay    time.Duration `yaml:"fetch_delay"`
	DispatchDelay time.Duration `yaml:"dispatch_delay"`
	SettleDelay   time.Duration `yaml:"settle_delay"`
}

type Journal struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type LLM struct {
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	Model           string `yaml:"model"`
}

// Load reads config.yaml (or CONFIG_PATH), a local .env file, and environment overrides.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	path := envOr("CONFIG_PATH", "config.yaml")
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	envOverride(&cfg.Port, "PORT")
	envOverride(&cfg.LogLevelRaw, "LOG_LEVEL")
	if v := os.Getenv("HTTP_TIMEOUT_SECONDS"); v != "" {
		if d, err := time.ParseDuration(v + "s"); err == nil {
			cfg.HTTPTimeout = d
		}
	}

	envOverride(&cfg.Sources.Backend, "SOURCE_BACKEND")
	envOverride(&cfg.Sources.Campaigns, "CAMPAIGN_SHEET")
	envOverride(&cfg.Sources.Issues, "ISSUE_SHEET")
	envOverride(&cfg.Sources.CredentialsFile, "GCP_CREDENTIALS_FILE")
	envOverride(&cfg.Sources.CredentialsJSON, "GCP_CREDENTIALS_JSON")
	envOverride(&cfg.Sources.WorkbookDir, "WORKBOOK_DIR")
	if ids := os.Getenv("SPREADSHEET_IDS"); ids != "" {
		if cfg.Sources.SpreadsheetIDs == nil {
			cfg.Sources.SpreadsheetIDs = map[string]string{}
		}
		for _, pair := range strings.Split(ids, ",") {
			name, id, ok := strings.Cut(pair, "=")
			if ok && strings.TrimSpace(name) != "" {
				cfg.Sources.SpreadsheetIDs[strings.TrimSpace(name)] = strings.TrimSpace(id)
			}
		}
	}

	envOverride(&cfg.Cache.RedisAddr, "REDIS_ADDR")
	if err := envOverrideFloat(&cfg.Analysis.InsightThreshold, "INSIGHT_THRESHOLD"); err != nil {
		return err
	}
	if err := envOverrideInt(&cfg.Analysis.ForecastHorizon, "FORECAST_HORIZON"); err != nil {
		return err
	}

	envOverride(&cfg.Webhook.URL, "WEBHOOK_URL")
	envOverride(&cfg.Webhook.Secret, "WEBHOOK_SECRET")
	envOverride(&cfg.Slack.Token, "SLACK_BOT_TOKEN")
	envOverride(&cfg.Slack.Channel, "SLACK_CHANNEL")
	envOverride(&cfg.Agent.Schedule, "AGENT_SCHEDULE")
	envOverride(&cfg.Journal.Driver, "JOURNAL_DRIVER")
	envOverride(&cfg.Journal.DSN, "JOURNAL_DSN")
	envOverride(&cfg.LLM.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.LLM.Model, "LLM_MODEL")
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 15 * time.Second
	}
	cfg.LogLevel = slog.LevelInfo
	if strings.EqualFold(cfg.LogLevelRaw, "debug") {
		cfg.LogLevel = slog.LevelDebug
	}

	s := &cfg.Sources
	if s.Backend == "" {
		s.Backend = BackendSheets
	}
	if s.Campaigns == "" {
		s.Campaigns = "ITC_Campaign_Data_Live"
	}
	if s.Issues == "" {
		s.Issues = "ITC_Issue_Queue"
	}
	if s.CredentialsFile == "" {
		s.CredentialsFile = "gcp_secrets.json"
	}
	if s.WorkbookDir == "" {
		s.WorkbookDir = "./data"
	}
	if s.ReadRPS == 0 {
		// Sheets API read quota is 60 requests per minute per user.
		s.ReadRPS = 1
	}
	if s.ReadBurst == 0 {
		s.ReadBurst = 5
	}

	if cfg.Cache.AnalyticTTL == 0 {
		cfg.Cache.AnalyticTTL = 10 * time.Minute
	}
	if cfg.Cache.QueueTTL == 0 {
		cfg.Cache.QueueTTL = 10 * time.Second
	}

	a := &cfg.Analysis
	if a.InsightThreshold == 0 {
		a.InsightThreshold = 0.95
	}
	if a.ForecastHorizon == 0 {
		a.ForecastHorizon = 7
	}
	if a.MinForecastHistory == 0 {
		a.MinForecastHistory = 10
	}
	if a.MinAllocationHistory == 0 {
		a.MinAllocationHistory = 5
	}
	if a.DefaultWindowDays == 0 {
		a.DefaultWindowDays = 30
	}
	if a.PendingWindow == 0 {
		a.PendingWindow = 5
	}

	if cfg.Webhook.Timeout == 0 {
		cfg.Webhook.Timeout = 10 * time.Second
	}
	if cfg.Agent.FetchDelay == 0 {
		cfg.Agent.FetchDelay = time.Second
	}
	if cfg.Agent.DispatchDelay == 0 {
		cfg.Agent.DispatchDelay = 2 * time.Second
	}
	if cfg.Agent.SettleDelay == 0 {
		cfg.Agent.SettleDelay = 1500 * time.Millisecond
	}
	if cfg.Journal.Driver == "" {
		cfg.Journal.Driver = "sqlite3"
	}
	if cfg.Journal.DSN == "" && cfg.Journal.Driver == "sqlite3" {
		cfg.Journal.DSN = "./yukti.db"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "claude-3-5-haiku-latest"
	}
}

func (c Config) Validate() error {
	switch c.Sources.Backend {
	case BackendSheets, BackendWorkbook:
	default:
		return fmt.Errorf("sources.backend must be %q or %q, got %q", BackendSheets, BackendWorkbook, c.Sources.Backend)
	}
	if c.Analysis.InsightThreshold <= 0 || c.Analysis.InsightThreshold > 2 {
		return fmt.Errorf("invalid analysis.insight_threshold %v: must be in (0, 2]", c.Analysis.InsightThreshold)
	}
	if c.Analysis.ForecastHorizon < 1 {
		return fmt.Errorf("invalid analysis.forecast_horizon %d: must be >= 1", c.Analysis.ForecastHorizon)
	}
	if c.Analysis.MinForecastHistory < 2 || c.Analysis.MinAllocationHistory < 2 {
		return fmt.Errorf("minimum forecast history must be >= 2")
	}
	if c.Analysis.PendingWindow < 1 {
		return fmt.Errorf("invalid analysis.pending_window %d: must be >= 1", c.Analysis.PendingWindow)
	}
	switch c.Journal.Driver {
	case "sqlite3", "postgres", "none":
	default:
		return fmt.Errorf("journal.driver must be sqlite3, postgres or none, got %q", c.Journal.Driver)
	}
	if c.Journal.Driver == "postgres" && c.Journal.DSN == "" {
		return fmt.Errorf("journal.dsn is required when journal.driver=postgres")
	}
	return nil
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envOverride(field *string, key string) {
	if v := os.Getenv(key); v != "" {
		*field = v
	}
}

func envOverrideInt(field *int, key string) error {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, v, err)
		}
		*field = n
	}
	return nil
}

func envOverrideFloat(field *float64, key string) error {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, v, err)
		}
		*field = f
	}
	return nil
}
