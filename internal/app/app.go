package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/AngelCh415/yukti/internal/alerts"
	"github.com/AngelCh415/yukti/internal/cache"
	"github.com/AngelCh415/yukti/internal/config"
	"github.com/AngelCh415/yukti/internal/dashboard"
	"github.com/AngelCh415/yukti/internal/forecast"
	"github.com/AngelCh415/yukti/internal/httpx"
	"github.com/AngelCh415/yukti/internal/ingest"
	"github.com/AngelCh415/yukti/internal/insight"
	"github.com/AngelCh415/yukti/internal/notify"
	"github.com/AngelCh415/yukti/internal/store"
	"github.com/AngelCh415/yukti/internal/telemetry"
)

// App holds every long-lived client of the process. Build it once with New and
// release it with Close.
type App struct {
	Config    config.Config
	Log       *slog.Logger
	Telemetry *telemetry.Registry
	Cache     cache.Cache
	Adapter   *ingest.Adapter
	Journal   store.Journal
	Dashboard *dashboard.Service
	Alerts    *alerts.Controller
	Sessions  *store.Sessions
	// Agent is nil unless agent.schedule is set.
	Agent *alerts.Agent

	closers []func() error
}

// NewLogger is the process logger: JSON on w at the configured level.
func NewLogger(cfg config.Config, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.LogLevel}))
}

// Backend picks the tabular store named by the config.
func Backend(cfg config.Config) ingest.Backend {
	if cfg.Sources.Backend == config.BackendWorkbook {
		return ingest.NewWorkbookBackend(cfg.Sources.WorkbookDir)
	}
	return ingest.NewSheetsBackend(ingest.SheetsConfig{
		CredentialsJSON: cfg.Sources.CredentialsJSON,
		CredentialsFile: cfg.Sources.CredentialsFile,
		SpreadsheetIDs:  cfg.Sources.SpreadsheetIDs,
	})
}

func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	return NewWithBackend(ctx, cfg, Backend(cfg), log)
}

// NewWithBackend wires the application around b.
func NewWithBackend(ctx context.Context, cfg config.Config, b ingest.Backend, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	a := &App{Config: cfg, Log: log, Telemetry: telemetry.New(), Sessions: store.NewSessions(0)}

	c, closeCache := cache.New(cfg.Cache.RedisAddr)
	a.Cache = c
	a.closers = append(a.closers, closeCache)
	if cfg.Cache.RedisAddr != "" {
		if err := cache.Ping(ctx, c); err != nil {
			log.Warn("redis unreachable, reads will miss the cache", slog.String("addr", cfg.Cache.RedisAddr), slog.Any("err", err))
		}
	}

	j, err := store.OpenJournal(ctx, cfg.Journal.Driver, cfg.Journal.DSN)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open journal: %w", err)
	}
	a.Journal = j
	a.closers = append(a.closers, j.Close)

	a.Adapter = ingest.NewAdapter(b, c, ingest.Options{
		Campaigns:   cfg.Sources.Campaigns,
		Issues:      cfg.Sources.Issues,
		AnalyticTTL: cfg.Cache.AnalyticTTL,
		QueueTTL:    cfg.Cache.QueueTTL,
		ReadRPS:     cfg.Sources.ReadRPS,
		ReadBurst:   cfg.Sources.ReadBurst,
	}, log.With(slog.String("component", "ingest")), a.Telemetry)

	fe := forecast.NewEngine(forecast.Options{
		Horizon:              cfg.Analysis.ForecastHorizon,
		MinForecastHistory:   cfg.Analysis.MinForecastHistory,
		MinAllocationHistory: cfg.Analysis.MinAllocationHistory,
	}, log.With(slog.String("component", "forecast")), a.Telemetry)
	narrator := insight.NewNarrator(cfg.LLM.AnthropicAPIKey, cfg.LLM.Model, log)
	a.Dashboard = dashboard.NewService(a.Adapter, insight.New(cfg.Analysis.InsightThreshold), narrator, fe, j,
		dashboard.Options{WindowDays: cfg.Analysis.DefaultWindowDays}, log)

	var notifier notify.Notifier
	if cfg.Webhook.URL != "" {
		notifier = notify.NewWebhook(cfg.Webhook.URL, cfg.Webhook.Secret, notify.NewHTTPClient(cfg.Webhook.Timeout), log)
	}
	var announcer alerts.Announcer
	if s := notify.NewSlack(cfg.Slack.Token, cfg.Slack.Channel, log); s != nil {
		announcer = s
	}
	a.Alerts = alerts.NewController(a.Adapter, notifier, announcer, j, alerts.Options{
		Window:        cfg.Analysis.PendingWindow,
		FetchDelay:    cfg.Agent.FetchDelay,
		DispatchDelay: cfg.Agent.DispatchDelay,
		SettleDelay:   cfg.Agent.SettleDelay,
	}, log.With(slog.String("component", "alerts")), a.Telemetry)

	if cfg.Agent.Schedule != "" {
		a.Agent, err = alerts.NewAgent(a.Alerts, cfg.Agent.Schedule, 0, log)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("agent schedule %q: %w", cfg.Agent.Schedule, err)
		}
	}
	return a, nil
}

// Handler is the HTTP surface of the app.
func (a *App) Handler() http.Handler {
	return httpx.NewRouter(httpx.Deps{
		Log:       a.Log,
		Dashboard: a.Dashboard,
		Alerts:    a.Alerts,
		Sessions:  a.Sessions,
		Telemetry: a.Telemetry,
		Ready:     a.Ready,
	})
}

// Ready checks the issue queue, the journal and the shared cache.
func (a *App) Ready(ctx context.Context) error {
	return errors.Join(a.Adapter.Ready(ctx), a.Journal.Ping(ctx), cache.Ping(ctx, a.Cache))
}

// Close releases held clients in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
