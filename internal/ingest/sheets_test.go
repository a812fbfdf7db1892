package ingest

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnLetter(t *testing.T) {
	assert.Equal(t, "A", ColumnLetter(1))
	assert.Equal(t, "G", ColumnLetter(7))
	assert.Equal(t, "Z", ColumnLetter(26))
	assert.Equal(t, "AA", ColumnLetter(27))
	assert.Equal(t, "AZ", ColumnLetter(52))
}

func TestServiceAccountJSONForcesType(t *testing.T) {
	b, err := serviceAccountJSON(`{"type":"authorized_user","client_email":"x@y"}`)
	require.NoError(t, err)
	var m map[string]string
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, "service_account", m["type"])
	assert.Equal(t, "x@y", m["client_email"])

	_, err = serviceAccountJSON("not json")
	assert.Error(t, err)
}

func TestSheetsWithoutCredentialsFailsAtFetch(t *testing.T) {
	b := NewSheetsBackend(SheetsConfig{CredentialsFile: "/nonexistent/gcp_secrets.json"})
	_, err := b.Fetch(context.Background(), "ITC_Issue_Queue")
	assert.ErrorIs(t, err, ErrNoCredentials)
	assert.ErrorIs(t, b.UpdateCell(context.Background(), "ITC_Issue_Queue", 2, 7, "Resolved"), ErrNoCredentials)
}

func TestTableFromValues(t *testing.T) {
	tbl := tableFromValues([][]interface{}{
		{"Timestamp", "Status"},
		{" t1 ", nil},
		{42.0},
	})
	assert.Equal(t, []string{"Timestamp", "Status"}, tbl.Header)
	assert.Equal(t, []string{"t1", ""}, tbl.Rows[0])
	assert.Equal(t, []string{"42"}, tbl.Rows[1])
	assert.False(t, tbl.FetchedAt.IsZero())
}
