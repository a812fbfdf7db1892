package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvedSetMark(t *testing.T) {
	s := NewResolvedSet()
	now := time.Now()
	assert.True(t, s.Mark("t1", now))
	assert.False(t, s.Mark("t1", now.Add(time.Second)), "second mark is a no-op")
	assert.True(t, s.Contains("t1"))
	assert.False(t, s.Contains("t2"))
	assert.Equal(t, 1, s.Len())
}

func TestResolvedSetConfirm(t *testing.T) {
	s := NewResolvedSet()
	at := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)
	s.Mark("done", at)
	s.Mark("lagging", at)

	pending := map[string]bool{"lagging": true}
	still := func(ts string) bool { return pending[ts] }

	assert.Zero(t, s.Confirm(still, at.Add(-time.Second)), "a read older than the resolve confirms nothing")
	assert.Equal(t, 2, s.Len())

	assert.Equal(t, 1, s.Confirm(still, at.Add(time.Second)))
	assert.False(t, s.Contains("done"))
	assert.True(t, s.Contains("lagging"), "still pending in the store, keep masking")

	s.Clear()
	assert.Zero(t, s.Len())
}

func TestResolvedSetTimestampsInOrder(t *testing.T) {
	s := NewResolvedSet()
	at := time.Now()
	s.Mark("b", at.Add(2*time.Second))
	s.Mark("a", at)
	s.Mark("c", at.Add(time.Second))
	assert.Equal(t, []string{"a", "c", "b"}, s.Timestamps())
}

func TestSessionLeavingAutoClears(t *testing.T) {
	sess := NewSession("")
	require.NotEmpty(t, sess.ID)
	sess.Resolved.Mark("t1", time.Now())

	assert.False(t, sess.SetAuto(false), "manual to manual keeps the set")
	assert.Equal(t, 1, sess.Resolved.Len())

	assert.False(t, sess.SetAuto(true))
	assert.True(t, sess.Auto())
	assert.Equal(t, 1, sess.Resolved.Len())

	assert.True(t, sess.SetAuto(false))
	assert.Zero(t, sess.Resolved.Len())
}

func TestSessions(t *testing.T) {
	now := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	ss := NewSessions(time.Hour)
	ss.now = func() time.Time { return now }

	a := ss.Get("")
	assert.Same(t, a, ss.Get(a.ID))
	assert.NotSame(t, a, ss.Get("unknown"), "unknown ids get a fresh session")
	assert.Equal(t, 2, ss.Len())

	now = now.Add(2 * time.Hour)
	b := ss.Get(a.ID)
	assert.NotEqual(t, a.ID, b.ID, "idle sessions expire")
	assert.Equal(t, 1, ss.Len())
}
