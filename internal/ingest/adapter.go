package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/AngelCh415/yukti/internal/cache"
	"github.com/AngelCh415/yukti/internal/models"
	"github.com/AngelCh415/yukti/internal/telemetry"
)

type Options struct {
	Campaigns   string
	Issues      string
	AnalyticTTL time.Duration
	QueueTTL    time.Duration
	ReadRPS     float64
	ReadBurst   int
}

// Adapter is the only way the dashboard reads or writes the backing store. Reads are
// served from the staleness cache when possible, throttled, and guarded by a breaker.
type Adapter struct {
	backend Backend
	cache   cache.Cache
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	log     *slog.Logger
	tel     *telemetry.Registry
	opt     Options
}

func NewAdapter(b Backend, c cache.Cache, opt Options, log *slog.Logger, tel *telemetry.Registry) *Adapter {
	if c == nil {
		c = cache.NewMemory()
	}
	if log == nil {
		log = slog.Default()
	}
	if opt.ReadRPS <= 0 {
		opt.ReadRPS = 1
	}
	if opt.ReadBurst <= 0 {
		opt.ReadBurst = 5
	}
	st := gobreaker.Settings{
		Name:        "backing-store",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 3 },
		IsSuccessful: func(err error) bool {
			// a missing row is an answer, not an outage
			return err == nil || errors.Is(err, ErrRowNotFound) || errors.Is(err, ErrColumnNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("breaker state change", slog.String("breaker", name),
				slog.String("from", from.String()), slog.String("to", to.String()))
		},
	}
	return &Adapter{
		backend: b,
		cache:   c,
		limiter: rate.NewLimiter(rate.Limit(opt.ReadRPS), opt.ReadBurst),
		breaker: gobreaker.NewCircuitBreaker(st),
		log:     log,
		tel:     tel,
		opt:     opt,
	}
}

// CampaignSnapshot is a normalised read of the campaign collection.
type CampaignSnapshot struct {
	Records   []models.CampaignRecord
	Dropped   int
	FetchedAt time.Time
}

// IssueSnapshot is a normalised read of the issue queue, in sheet order.
type IssueSnapshot struct {
	Issues    []models.IssueRecord
	FetchedAt time.Time
}

// Table returns the raw collection, reusing a cached copy younger than ttl.
func (a *Adapter) Table(ctx context.Context, name string, ttl time.Duration) (Table, error) {
	if b, ok := a.cache.Get(ctx, name); ok {
		var t Table
		if err := json.Unmarshal(b, &t); err == nil {
			a.tel.Count(telemetry.CacheLookups, name, "hit")
			return t, nil
		}
		a.cache.Delete(ctx, name)
	}
	a.tel.Count(telemetry.CacheLookups, name, "miss")

	t, err := a.fetch(ctx, name)
	if err != nil {
		return Table{}, err
	}
	if b, err := json.Marshal(t); err == nil {
		a.cache.Set(ctx, name, b, ttl)
	}
	return t, nil
}

func (a *Adapter) fetch(ctx context.Context, name string) (Table, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return Table{}, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, name, err)
	}
	start := time.Now()
	v, err := a.breaker.Execute(func() (interface{}, error) {
		return a.backend.Fetch(ctx, name)
	})
	if err != nil {
		a.tel.Count(telemetry.SourceFetches, name, "error")
		a.log.Error("source fetch failed", slog.String("collection", name), slog.Any("err", err))
		return Table{}, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, name, err)
	}
	a.tel.Count(telemetry.SourceFetches, name, "ok")
	t := v.(Table)
	a.log.Debug("source fetched", slog.String("collection", name),
		slog.Int("rows", len(t.Rows)), slog.Duration("took", time.Since(start)))
	return t, nil
}

// Campaigns loads the campaign collection. On failure the snapshot is empty and the
// error wraps ErrSourceUnavailable.
func (a *Adapter) Campaigns(ctx context.Context) (CampaignSnapshot, error) {
	t, err := a.Table(ctx, a.opt.Campaigns, a.opt.AnalyticTTL)
	if err != nil {
		return CampaignSnapshot{}, err
	}
	recs, dropped, err := Campaigns(t)
	if err != nil {
		a.cache.Delete(ctx, a.opt.Campaigns)
		return CampaignSnapshot{}, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, a.opt.Campaigns, err)
	}
	if dropped > 0 {
		a.tel.Count(telemetry.RowsDropped, a.opt.Campaigns)
		a.log.Warn("rows dropped on ingest", slog.String("collection", a.opt.Campaigns), slog.Int("dropped", dropped))
	}
	return CampaignSnapshot{Records: recs, Dropped: dropped, FetchedAt: t.FetchedAt}, nil
}

// Issues loads the issue queue with the short queue staleness window.
func (a *Adapter) Issues(ctx context.Context) (IssueSnapshot, error) {
	t, err := a.Table(ctx, a.opt.Issues, a.opt.QueueTTL)
	if err != nil {
		return IssueSnapshot{}, err
	}
	issues, err := Issues(t)
	if err != nil {
		a.cache.Delete(ctx, a.opt.Issues)
		return IssueSnapshot{}, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, a.opt.Issues, err)
	}
	return IssueSnapshot{Issues: issues, FetchedAt: t.FetchedAt}, nil
}

// SetIssueStatus writes status into the Status cell of the row keyed by timestamp.
// The row is located on a fresh read, never a cached one.
func (a *Adapter) SetIssueStatus(ctx context.Context, timestamp string, status models.IssueStatus) error {
	t, err := a.fetch(ctx, a.opt.Issues)
	if err != nil {
		return err
	}
	row, err := t.Find("Timestamp", timestamp)
	if err != nil {
		return fmt.Errorf("issue %q: %w", timestamp, err)
	}
	col := t.Column("Status")
	if col < 0 {
		return fmt.Errorf("%w: Status", ErrColumnNotFound)
	}
	_, err = a.breaker.Execute(func() (interface{}, error) {
		return nil, a.backend.UpdateCell(ctx, a.opt.Issues, row, col+1, string(status))
	})
	if err != nil {
		return fmt.Errorf("%w: write %s row %d: %w", ErrSourceUnavailable, a.opt.Issues, row, err)
	}
	a.Invalidate(ctx, a.opt.Issues)
	a.log.Info("issue status written", slog.String("timestamp", timestamp),
		slog.String("status", string(status)), slog.Int("row", row))
	return nil
}

// Invalidate drops the cached copy of a collection.
func (a *Adapter) Invalidate(ctx context.Context, name string) { a.cache.Delete(ctx, name) }

// Ready reports whether the issue queue can be read within its staleness window.
func (a *Adapter) Ready(ctx context.Context) error {
	_, err := a.Table(ctx, a.opt.Issues, a.opt.QueueTTL)
	return err
}
