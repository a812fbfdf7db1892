package alerts

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/yukti/internal/ingest"
	"github.com/AngelCh415/yukti/internal/models"
	"github.com/AngelCh415/yukti/internal/store"
)

// fakeQueue serves issues from memory. While stale is set, reads keep returning the
// rows as they were before any write, like a lagging store.
type fakeQueue struct {
	mu       sync.Mutex
	issues   []models.IssueRecord
	snapshot []models.IssueRecord
	stale    bool
	clock    time.Time
	readErr  error
	writeErr error
	writes   []string
}

func newQueue(issues ...models.IssueRecord) *fakeQueue {
	return &fakeQueue{issues: issues, clock: time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC)}
}

func (q *fakeQueue) tick() time.Time {
	q.clock = q.clock.Add(time.Second)
	return q.clock
}

func (q *fakeQueue) Issues(context.Context) (ingest.IssueSnapshot, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.readErr != nil {
		return ingest.IssueSnapshot{}, q.readErr
	}
	src := q.issues
	if q.stale && q.snapshot != nil {
		src = q.snapshot
	}
	return ingest.IssueSnapshot{Issues: append([]models.IssueRecord(nil), src...), FetchedAt: q.tick()}, nil
}

func (q *fakeQueue) SetIssueStatus(_ context.Context, ts string, status models.IssueStatus) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.writeErr != nil {
		return q.writeErr
	}
	if q.stale && q.snapshot == nil {
		q.snapshot = append([]models.IssueRecord(nil), q.issues...)
	}
	for i := range q.issues {
		if q.issues[i].Timestamp == ts {
			q.issues[i].Status = status
			q.writes = append(q.writes, ts)
			return nil
		}
	}
	return ingest.ErrRowNotFound
}

type fakeNotifier struct {
	mu    sync.Mutex
	sent  []models.IssueNotification
	err   error
	order *[]string
}

func (n *fakeNotifier) Notify(_ context.Context, in models.IssueNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, in)
	if n.order != nil {
		*n.order = append(*n.order, "notify")
	}
	return n.err
}

type fakeAnnouncer struct{ got []string }

func (a *fakeAnnouncer) Announce(_ context.Context, i models.IssueRecord) error {
	a.got = append(a.got, i.Timestamp)
	return nil
}

func issue(ts, sku string, t models.IssueType) models.IssueRecord {
	return models.IssueRecord{Timestamp: ts, Product: "Serum", SKU: sku, City: "Pune", IssueType: t, Details: "d", Status: models.StatusPending}
}

func newController(q Queue, n *fakeNotifier, a *fakeAnnouncer) *Controller {
	var ann Announcer
	if a != nil {
		ann = a
	}
	c := NewController(q, n, ann, nil, Options{Window: 5}, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	c.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	if fq, ok := q.(*fakeQueue); ok {
		c.now = func() time.Time {
			fq.mu.Lock()
			defer fq.mu.Unlock()
			return fq.tick()
		}
	}
	return c
}

func timestamps(is []models.IssueRecord) []string {
	out := make([]string, len(is))
	for i, x := range is {
		out[i] = x.Timestamp
	}
	return out
}

func TestListPendingWindowMostRecentFirst(t *testing.T) {
	q := newQueue(
		issue("t1", "A", models.IssueOOS),
		issue("t2", "B", models.IssueContent),
		issue("t3", "C", models.IssueOOS),
		issue("t4", "D", models.IssueOOS),
		issue("t5", "E", models.IssueContent),
		issue("t6", "F", models.IssueOOS),
		issue("t7", "G", models.IssueOOS),
	)
	q.issues[1].Status = models.StatusResolved
	c := newController(q, &fakeNotifier{}, nil)

	l, err := c.ListPending(context.Background(), store.NewSession("s"))
	require.NoError(t, err)
	assert.Equal(t, 6, l.Pending)
	assert.Equal(t, []string{"t7", "t6", "t5", "t4", "t3"}, timestamps(l.Issues))
}

func TestListPendingSourceDown(t *testing.T) {
	q := newQueue()
	q.readErr = ingest.ErrSourceUnavailable
	c := newController(q, &fakeNotifier{}, nil)

	l, err := c.ListPending(context.Background(), store.NewSession("s"))
	require.ErrorIs(t, err, ingest.ErrSourceUnavailable)
	assert.Empty(t, l.Issues)
}

func TestManualResolveNeverNotifies(t *testing.T) {
	q := newQueue(issue("t1", "A", models.IssueOOS))
	n := &fakeNotifier{}
	a := &fakeAnnouncer{}
	c := newController(q, n, a)
	sess := store.NewSession("s")

	out, err := c.Resolve(context.Background(), sess, q.issues[0], false)
	require.NoError(t, err)
	assert.True(t, out.Resolved)
	assert.False(t, out.Notified)
	assert.Empty(t, n.sent)
	assert.Empty(t, a.got)
	assert.Equal(t, []string{"t1"}, q.writes)
	assert.True(t, sess.Resolved.Contains("t1"))
}

func TestAutoResolveNotifiesBeforeWrite(t *testing.T) {
	q := newQueue(issue("t1", "A", models.IssueOOS))
	n := &fakeNotifier{}
	a := &fakeAnnouncer{}
	c := newController(q, n, a)

	out, err := c.Resolve(context.Background(), store.NewSession("s"), q.issues[0], true)
	require.NoError(t, err)
	assert.True(t, out.Notified)
	require.Len(t, n.sent, 1)
	assert.Equal(t, "A", n.sent[0].SKU)
	assert.Equal(t, []string{"t1"}, a.got)
}

func TestNotifyFailureDoesNotBlockResolve(t *testing.T) {
	q := newQueue(issue("t1", "A", models.IssueOOS))
	n := &fakeNotifier{err: errors.New("webhook down")}
	c := newController(q, n, nil)

	out, err := c.Resolve(context.Background(), store.NewSession("s"), q.issues[0], true)
	require.NoError(t, err)
	assert.True(t, out.Resolved)
	assert.False(t, out.Notified)
	assert.Equal(t, "webhook down", out.NotifyError)
	assert.Equal(t, models.StatusResolved, q.issues[0].Status)
}

func TestResolveMissingRow(t *testing.T) {
	q := newQueue(issue("t1", "A", models.IssueOOS))
	sess := store.NewSession("s")
	c := newController(q, &fakeNotifier{}, nil)

	out, err := c.Resolve(context.Background(), sess, issue("gone", "Z", models.IssueOOS), false)
	require.ErrorIs(t, err, ErrIssueNotFound)
	assert.False(t, out.Resolved)
	assert.Zero(t, sess.Resolved.Len())
}

func TestResolveWriteFailureLeavesSetUntouched(t *testing.T) {
	q := newQueue(issue("t1", "A", models.IssueOOS))
	q.writeErr = ingest.ErrSourceUnavailable
	sess := store.NewSession("s")
	c := newController(q, &fakeNotifier{}, nil)

	_, err := c.Resolve(context.Background(), sess, q.issues[0], false)
	require.ErrorIs(t, err, ingest.ErrSourceUnavailable)
	assert.False(t, sess.Resolved.Contains("t1"))
}

func TestResolvedSetMasksStaleReads(t *testing.T) {
	q := newQueue(issue("t1", "A", models.IssueOOS), issue("t2", "B", models.IssueOOS))
	q.stale = true
	c := newController(q, &fakeNotifier{}, nil)
	sess := store.NewSession("s")
	ctx := context.Background()

	_, err := c.Resolve(ctx, sess, q.issues[1], false)
	require.NoError(t, err)

	l, err := c.ListPending(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, timestamps(l.Issues), "stale read must not resurface t2")
	assert.Equal(t, 1, l.Masked)
	assert.Equal(t, []string{"t2"}, l.Awaiting)
	assert.True(t, sess.Resolved.Contains("t2"))

	// the store catches up; the next read confirms and the set forgets t2
	q.stale = false
	l, err = c.ListPending(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, timestamps(l.Issues))
	assert.Zero(t, l.Masked)
	assert.Empty(t, l.Awaiting)
	assert.False(t, sess.Resolved.Contains("t2"))
}

func TestResolvedSetIsPerSession(t *testing.T) {
	q := newQueue(issue("t1", "A", models.IssueOOS))
	q.stale = true
	c := newController(q, &fakeNotifier{}, nil)
	ctx := context.Background()

	_, err := c.Resolve(ctx, store.NewSession("a"), q.issues[0], false)
	require.NoError(t, err)

	l, err := c.ListPending(ctx, store.NewSession("b"))
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, timestamps(l.Issues))
}

func TestLeavingAutoClearsSet(t *testing.T) {
	c := newController(newQueue(), &fakeNotifier{}, nil)
	sess := store.NewSession("s")
	c.SetAuto(sess, true)
	sess.Resolved.Mark("t1", time.Now())

	c.SetAuto(sess, true)
	assert.Equal(t, 1, sess.Resolved.Len())
	c.SetAuto(sess, false)
	assert.Zero(t, sess.Resolved.Len())
}

func TestFindPending(t *testing.T) {
	q := newQueue(issue("t1", "A", models.IssueOOS), issue("t2", "B", models.IssueOOS))
	q.issues[1].Status = models.StatusResolved
	c := newController(q, &fakeNotifier{}, nil)

	got, err := c.FindPending(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "A", got.SKU)

	_, err = c.FindPending(context.Background(), "t2")
	assert.ErrorIs(t, err, ErrIssueNotFound)
}
