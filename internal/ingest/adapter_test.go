package ingest

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

	"github.com/AngelCh415/yukti/internal/cache"
	"github.com/AngelCh415/yukti/internal/models"
)

type fakeBackend struct {
	mu      sync.Mutex
	tables  map[string]Table
	fetches int
	err     error
	writes  []string
}

func (f *fakeBackend) Fetch(_ context.Context, name string) (Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.err != nil {
		return Table{}, f.err
	}
	t, ok := f.tables[name]
	if !ok {
		return Table{}, errors.New("no such collection")
	}
	t.FetchedAt = time.Now().UTC()
	return t, nil
}

func (f *fakeBackend) UpdateCell(_ context.Context, name string, row, col int, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	t := f.tables[name]
	t.Rows[row-2][col-1] = value
	f.writes = append(f.writes, ColumnLetter(col)+string(rune('0'+row))+"="+value)
	return nil
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newTestAdapter(b Backend) *Adapter {
	return NewAdapter(b, cache.NewMemory(), Options{
		Campaigns:   "campaigns",
		Issues:      "issues",
		AnalyticTTL: time.Minute,
		QueueTTL:    time.Minute,
		ReadRPS:     1000,
		ReadBurst:   1000,
	}, quiet(), nil)
}

func issueTable() Table {
	return Table{
		Header: []string{"Timestamp", "Product", "SKU", "City", "Issue_Type", "Details", "Status"},
		Rows: [][]string{
			{"t1", "Bingo", "50g", "Pune", "OOS", "stock 0", "Pending"},
			{"t2", "Yippee", "70g", "Jaipur", "Content", "wrong image", "Pending"},
		},
	}
}

func TestAdapterCachesReads(t *testing.T) {
	fb := &fakeBackend{tables: map[string]Table{
		"campaigns": {Header: campaignHeader, Rows: [][]string{
			{"01-Aug-25", "Mumbai", "Atta", "5kg", "Display", "Morning", "5", "4"},
			{"junk", "Mumbai"},
		}},
	}}
	a := newTestAdapter(fb)
	ctx := context.Background()

	snap, err := a.Campaigns(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Records, 1)
	assert.Equal(t, 1, snap.Dropped)

	_, err = a.Campaigns(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, fb.fetches, "second read within the window is served from cache")

	a.Invalidate(ctx, "campaigns")
	_, err = a.Campaigns(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, fb.fetches)
}

func TestAdapterFailureIsEmptyAndWrapped(t *testing.T) {
	fb := &fakeBackend{err: ErrNoCredentials}
	a := newTestAdapter(fb)

	snap, err := a.Campaigns(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.ErrorIs(t, err, ErrNoCredentials)
	assert.Empty(t, snap.Records)

	is, err := a.Issues(context.Background())
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.Empty(t, is.Issues)
}

func TestAdapterBreakerOpensAfterFailures(t *testing.T) {
	fb := &fakeBackend{err: errors.New("503")}
	a := newTestAdapter(fb)
	for i := 0; i < 5; i++ {
		_, err := a.Issues(context.Background())
		assert.ErrorIs(t, err, ErrSourceUnavailable)
	}
	assert.Equal(t, 3, fb.fetches, "open breaker stops calling the store")
}

func TestSetIssueStatus(t *testing.T) {
	fb := &fakeBackend{tables: map[string]Table{"issues": issueTable()}}
	a := newTestAdapter(fb)
	ctx := context.Background()

	_, err := a.Issues(ctx)
	require.NoError(t, err)

	require.NoError(t, a.SetIssueStatus(ctx, "t2", models.StatusResolved))
	assert.Equal(t, []string{"G3=Resolved"}, fb.writes)

	snap, err := a.Issues(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, snap.Issues[1].Status, "write invalidates the cached queue")
}

func TestSetIssueStatusMissingRow(t *testing.T) {
	fb := &fakeBackend{tables: map[string]Table{"issues": issueTable()}}
	a := newTestAdapter(fb)
	err := a.SetIssueStatus(context.Background(), "nope", models.StatusResolved)
	assert.ErrorIs(t, err, ErrRowNotFound)
	assert.NotErrorIs(t, err, ErrSourceUnavailable)
	assert.Empty(t, fb.writes)
}
