package ingest

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrSourceUnavailable wraps every auth, fetch or parse failure against the backing store.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrNoCredentials means neither a deployed secret nor a local credential file is configured.
	ErrNoCredentials = errors.New("no service credentials configured")
	// ErrRowNotFound means no row carried the requested key.
	ErrRowNotFound = errors.New("row not found")
	// ErrColumnNotFound means the collection header lacks a required column.
	ErrColumnNotFound = errors.New("column not found")
)

// Backend is a tabular store of named collections whose first row is the header.
type Backend interface {
	Fetch(ctx context.Context, collection string) (Table, error)
	// UpdateCell writes value at the 1-based sheet row and column.
	UpdateCell(ctx context.Context, collection string, row, col int, value string) error
}

// Table is a raw snapshot of one collection.
type Table struct {
	Header    []string   `json:"header"`
	Rows      [][]string `json:"rows"`
	FetchedAt time.Time  `json:"fetched_at"`
}

// Column returns the 0-based index of name in the header.
func (t Table) Column(name string) int {
	want := normalizeHeader(name)
	for i, h := range t.Header {
		if normalizeHeader(h) == want {
			return i
		}
	}
	return -1
}

// Find returns the 1-based sheet row whose column equals key. The header is row 1.
func (t Table) Find(column, key string) (int, error) {
	idx := t.Column(column)
	if idx < 0 {
		return 0, ErrColumnNotFound
	}
	for i, row := range t.Rows {
		if cell(row, idx) == strings.TrimSpace(key) {
			return i + 2, nil
		}
	}
	return 0, ErrRowNotFound
}

func normalizeHeader(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
