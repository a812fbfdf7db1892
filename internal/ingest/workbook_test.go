package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkbookRoundTrip(t *testing.T) {
	dir := t.TempDir()
	tbl := issueTable()
	require.NoError(t, WriteWorkbook(dir, "issues", tbl.Header, tbl.Rows))

	b := NewWorkbookBackend(dir)
	ctx := context.Background()
	got, err := b.Fetch(ctx, "issues")
	require.NoError(t, err)
	assert.Equal(t, tbl.Header, got.Header)
	require.Len(t, got.Rows, 2)
	assert.Equal(t, "Jaipur", got.Rows[1][3])

	require.NoError(t, b.UpdateCell(ctx, "issues", 3, 7, "Resolved"))
	got, err = b.Fetch(ctx, "issues")
	require.NoError(t, err)
	assert.Equal(t, "Resolved", got.Rows[1][6])
	assert.Equal(t, "Pending", got.Rows[0][6])
}

func TestWorkbookMissing(t *testing.T) {
	_, err := NewWorkbookBackend(t.TempDir()).Fetch(context.Background(), "nothing")
	assert.Error(t, err)
}
