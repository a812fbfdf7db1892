package alerts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/AngelCh415/yukti/internal/ingest"
	"github.com/AngelCh415/yukti/internal/models"
	"github.com/AngelCh415/yukti/internal/notify"
	"github.com/AngelCh415/yukti/internal/store"
	"github.com/AngelCh415/yukti/internal/telemetry"
)

// ErrIssueNotFound means no queue row carries the issue's Timestamp.
var ErrIssueNotFound = errors.New("issue not found in queue")

// Queue is the read/write view of the issue collection.
type Queue interface {
	Issues(ctx context.Context) (ingest.IssueSnapshot, error)
	SetIssueStatus(ctx context.Context, timestamp string, status models.IssueStatus) error
}

// Announcer tells humans about an automatic resolution.
type Announcer interface {
	Announce(ctx context.Context, issue models.IssueRecord) error
}

type Options struct {
	Window        int
	FetchDelay    time.Duration
	DispatchDelay time.Duration
	SettleDelay   time.Duration
}

// Controller lists pending issues and resolves them, masking the store's read lag
// with each session's resolved set.
type Controller struct {
	q         Queue
	notifier  notify.Notifier
	announcer Announcer
	journal   store.Journal
	log       *slog.Logger
	tel       *telemetry.Registry
	opt       Options

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewController(q Queue, n notify.Notifier, a Announcer, j store.Journal, opt Options, log *slog.Logger, tel *telemetry.Registry) *Controller {
	if opt.Window < 1 {
		opt.Window = 5
	}
	if j == nil {
		j = store.NopJournal{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		q: q, notifier: n, announcer: a, journal: j, log: log, tel: tel, opt: opt,
		now:   time.Now,
		sleep: sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Listing is one read of the pending queue as a session sees it.
type Listing struct {
	Issues    []models.IssueRecord `json:"issues"`
	Pending   int                  `json:"pending"`
	Masked    int                  `json:"masked"`
	// Awaiting lists, in resolve order, the issues resolved in this session that
	// the store has not yet confirmed.
	Awaiting  []string             `json:"awaiting,omitempty"`
	FetchedAt time.Time            `json:"fetched_at"`
}

func isPending(i models.IssueRecord) bool {
	return strings.TrimSpace(string(i.Status)) == string(models.StatusPending)
}

// ListPending returns the session's pending issues, most recent first, capped at the
// display window. Issues the session resolved are hidden until a read taken after
// the resolve no longer lists them as pending.
func (c *Controller) ListPending(ctx context.Context, sess *store.Session) (Listing, error) {
	snap, err := c.q.Issues(ctx)
	if err != nil {
		return Listing{}, err
	}
	pending := make(map[string]bool)
	var queue []models.IssueRecord
	for _, i := range snap.Issues {
		if isPending(i) {
			pending[i.Timestamp] = true
			queue = append(queue, i)
		}
	}
	if n := sess.Resolved.Confirm(func(ts string) bool { return pending[ts] }, snap.FetchedAt); n > 0 {
		c.log.Debug("resolved set confirmed", slog.String("session", sess.ID), slog.Int("confirmed", n))
	}

	l := Listing{Pending: len(queue), Awaiting: sess.Resolved.Timestamps(), FetchedAt: snap.FetchedAt}
	visible := make([]models.IssueRecord, 0, len(queue))
	for _, i := range queue {
		if sess.Resolved.Contains(i.Timestamp) {
			l.Masked++
			continue
		}
		visible = append(visible, i)
	}
	if len(visible) > c.opt.Window {
		visible = visible[len(visible)-c.opt.Window:]
	}
	for i, j := 0, len(visible)-1; i < j; i, j = i+1, j-1 {
		visible[i], visible[j] = visible[j], visible[i]
	}
	l.Issues = visible
	c.tel.SetPending(l.Pending, l.Masked)
	return l, nil
}

// Outcome reports one resolve attempt.
type Outcome struct {
	Issue       models.IssueRecord `json:"issue"`
	Auto        bool               `json:"auto"`
	Notified    bool               `json:"notified"`
	NotifyError string             `json:"notify_error,omitempty"`
	Resolved    bool               `json:"resolved"`
}

func modeLabel(auto bool) string {
	if auto {
		return "auto"
	}
	return "manual"
}

// Resolve marks issue Resolved in the store. In auto mode the notification is sent
// first; a failed notification is logged and does not block the write. On success
// the Timestamp joins the session's resolved set.
func (c *Controller) Resolve(ctx context.Context, sess *store.Session, issue models.IssueRecord, auto bool) (Outcome, error) {
	out := Outcome{Issue: issue, Auto: auto}
	log := c.log.With(slog.String("timestamp", issue.Timestamp), slog.String("mode", modeLabel(auto)), slog.String("session", sess.ID))

	if auto && c.notifier != nil {
		if err := c.notifier.Notify(ctx, issue.Notification()); err != nil {
			out.NotifyError = err.Error()
			c.tel.Count(telemetry.Notifications, "webhook", "error")
			log.Warn("notification failed, resolving anyway", slog.Any("err", err))
		} else {
			out.Notified = true
			c.tel.Count(telemetry.Notifications, "webhook", "ok")
		}
	}

	err := c.q.SetIssueStatus(ctx, issue.Timestamp, models.StatusResolved)
	if errors.Is(err, ingest.ErrRowNotFound) {
		err = fmt.Errorf("%w: %s", ErrIssueNotFound, issue.Timestamp)
	}
	c.record(ctx, sess, out, err)
	if err != nil {
		c.tel.Count(telemetry.Resolutions, modeLabel(auto), "error")
		log.Error("resolve failed", slog.Any("err", err))
		return out, err
	}

	out.Resolved = true
	sess.Resolved.Mark(issue.Timestamp, c.now())
	c.tel.Count(telemetry.Resolutions, modeLabel(auto), "ok")
	log.Info("issue resolved", slog.String("sku", issue.SKU), slog.String("city", issue.City))

	if auto && c.announcer != nil {
		result := "ok"
		if err := c.announcer.Announce(ctx, issue); err != nil {
			result = "error"
		}
		c.tel.Count(telemetry.Notifications, "slack", result)
	}
	return out, nil
}

func (c *Controller) record(ctx context.Context, sess *store.Session, out Outcome, err error) {
	r := store.Resolution{
		Timestamp: out.Issue.Timestamp, Product: out.Issue.Product, SKU: out.Issue.SKU,
		City: out.Issue.City, IssueType: string(out.Issue.IssueType),
		Mode: modeLabel(out.Auto), Notified: out.Notified, Success: err == nil,
		SessionID: sess.ID, ResolvedAt: c.now(),
	}
	if err != nil {
		r.Error = err.Error()
	}
	if jerr := c.journal.RecordResolution(ctx, r); jerr != nil {
		c.log.Warn("journal write failed", slog.Any("err", jerr))
	}
}

// Resolutions lists the journal, newest first.
func (c *Controller) Resolutions(ctx context.Context, limit int) ([]store.Resolution, error) {
	return c.journal.Resolutions(ctx, limit)
}

// SetAuto switches the session's mode; leaving auto mode clears its resolved set.
func (c *Controller) SetAuto(sess *store.Session, on bool) {
	if sess.SetAuto(on) {
		c.log.Info("auto-resolve disabled, resolved set cleared", slog.String("session", sess.ID))
	}
}

// FindPending returns the pending issue with timestamp ts from a fresh listing of
// the whole queue.
func (c *Controller) FindPending(ctx context.Context, ts string) (models.IssueRecord, error) {
	snap, err := c.q.Issues(ctx)
	if err != nil {
		return models.IssueRecord{}, err
	}
	for _, i := range snap.Issues {
		if i.Timestamp == ts && isPending(i) {
			return i, nil
		}
	}
	return models.IssueRecord{}, fmt.Errorf("%w: %s", ErrIssueNotFound, ts)
}
