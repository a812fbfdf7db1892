package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/AngelCh415/yukti/internal/models"
)

// Resolution is one attempt to resolve an issue.
type Resolution struct {
	ID         int64     `db:"id" json:"id"`
	Timestamp  string    `db:"issue_timestamp" json:"issue_timestamp"`
	Product    string    `db:"product" json:"product"`
	SKU        string    `db:"sku" json:"sku"`
	City       string    `db:"city" json:"city"`
	IssueType  string    `db:"issue_type" json:"issue_type"`
	Mode       string    `db:"mode" json:"mode"`
	Notified   bool      `db:"notified" json:"notified"`
	Success    bool      `db:"success" json:"success"`
	Error      string    `db:"error" json:"error,omitempty"`
	SessionID  string    `db:"session_id" json:"session_id"`
	ResolvedAt time.Time `db:"resolved_at" json:"resolved_at"`
}

// Plan is a generated budget allocation.
type Plan struct {
	ID          int64     `db:"id" json:"id"`
	Goal        string    `db:"goal" json:"goal"`
	TotalBudget float64   `db:"total_budget" json:"total_budget"`
	City        string    `db:"city" json:"city"`
	Product     string    `db:"product" json:"product"`
	SKU         string    `db:"sku" json:"sku"`
	Lines       string    `db:"lines" json:"-"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Allocations decodes the stored lines.
func (p Plan) Allocations() ([]models.Allocation, error) {
	var out []models.Allocation
	if p.Lines == "" {
		return out, nil
	}
	err := json.Unmarshal([]byte(p.Lines), &out)
	return out, err
}

// NewPlan captures an allocation result for the journal.
func NewPlan(res models.AllocationResult, s models.ScenarioFilter, at time.Time) (Plan, error) {
	b, err := json.Marshal(res.Lines)
	if err != nil {
		return Plan{}, err
	}
	return Plan{
		Goal: string(res.Goal), TotalBudget: res.TotalBudget,
		City: s.City, Product: s.Product, SKU: s.SKU,
		Lines: string(b), CreatedAt: at.UTC(),
	}, nil
}

// Journal keeps an audit trail of resolutions and generated plans.
type Journal interface {
	RecordResolution(ctx context.Context, r Resolution) error
	Resolutions(ctx context.Context, limit int) ([]Resolution, error)
	RecordPlan(ctx context.Context, p Plan) error
	Plans(ctx context.Context, limit int) ([]Plan, error)
	Ping(ctx context.Context) error
	Close() error
}

var ErrJournalDisabled = errors.New("journal disabled")

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS resolutions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	issue_timestamp TEXT NOT NULL,
	product TEXT NOT NULL DEFAULT '',
	sku TEXT NOT NULL DEFAULT '',
	city TEXT NOT NULL DEFAULT '',
	issue_type TEXT NOT NULL DEFAULT '',
	mode TEXT NOT NULL,
	notified BOOLEAN NOT NULL DEFAULT 0,
	success BOOLEAN NOT NULL DEFAULT 0,
	error TEXT NOT NULL DEFAULT '',
	session_id TEXT NOT NULL DEFAULT '',
	resolved_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_resolutions_ts ON resolutions(issue_timestamp);
CREATE TABLE IF NOT EXISTS plans (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	goal TEXT NOT NULL,
	total_budget REAL NOT NULL,
	city TEXT NOT NULL DEFAULT '',
	product TEXT NOT NULL DEFAULT '',
	sku TEXT NOT NULL DEFAULT '',
	lines TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS resolutions (
	id BIGSERIAL PRIMARY KEY,
	issue_timestamp TEXT NOT NULL,
	product TEXT NOT NULL DEFAULT '',
	sku TEXT NOT NULL DEFAULT '',
	city TEXT NOT NULL DEFAULT '',
	issue_type TEXT NOT NULL DEFAULT '',
	mode TEXT NOT NULL,
	notified BOOLEAN NOT NULL DEFAULT FALSE,
	success BOOLEAN NOT NULL DEFAULT FALSE,
	error TEXT NOT NULL DEFAULT '',
	session_id TEXT NOT NULL DEFAULT '',
	resolved_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_resolutions_ts ON resolutions(issue_timestamp);
CREATE TABLE IF NOT EXISTS plans (
	id BIGSERIAL PRIMARY KEY,
	goal TEXT NOT NULL,
	total_budget DOUBLE PRECISION NOT NULL,
	city TEXT NOT NULL DEFAULT '',
	product TEXT NOT NULL DEFAULT '',
	sku TEXT NOT NULL DEFAULT '',
	lines TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);`

// SQLJournal stores the journal in sqlite or postgres.
type SQLJournal struct {
	db      *sqlx.DB
	timeout time.Duration
}

// OpenJournal opens driver ("sqlite3" or "postgres") at dsn and applies the schema.
// Driver "none" returns a journal that records nothing.
func OpenJournal(ctx context.Context, driver, dsn string) (Journal, error) {
	var schema string
	switch driver {
	case "", "none":
		return NopJournal{}, nil
	case "sqlite3":
		schema = sqliteSchema
	case "postgres":
		schema = postgresSchema
	default:
		return nil, fmt.Errorf("unsupported journal driver %q", driver)
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if driver == "sqlite3" {
		db.SetMaxOpenConns(1)
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping journal: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal schema: %w", err)
	}
	return &SQLJournal{db: db, timeout: 5 * time.Second}, nil
}

func (j *SQLJournal) RecordResolution(ctx context.Context, r Resolution) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()
	if r.ResolvedAt.IsZero() {
		r.ResolvedAt = time.Now()
	}
	r.ResolvedAt = r.ResolvedAt.UTC()
	_, err := j.db.NamedExecContext(ctx, `
		INSERT INTO resolutions (issue_timestamp, product, sku, city, issue_type, mode, notified, success, error, session_id, resolved_at)
		VALUES (:issue_timestamp, :product, :sku, :city, :issue_type, :mode, :notified, :success, :error, :session_id, :resolved_at)`, r)
	if err != nil {
		return fmt.Errorf("record resolution: %w", err)
	}
	return nil
}

func (j *SQLJournal) Resolutions(ctx context.Context, limit int) ([]Resolution, error) {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()
	if limit <= 0 {
		limit = 50
	}
	var out []Resolution
	q := j.db.Rebind(`SELECT id, issue_timestamp, product, sku, city, issue_type, mode, notified, success, error, session_id, resolved_at
		FROM resolutions ORDER BY resolved_at DESC, id DESC LIMIT ?`)
	if err := j.db.SelectContext(ctx, &out, q, limit); err != nil {
		return nil, fmt.Errorf("list resolutions: %w", err)
	}
	return out, nil
}

func (j *SQLJournal) RecordPlan(ctx context.Context, p Plan) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := j.db.NamedExecContext(ctx, `
		INSERT INTO plans (goal, total_budget, city, product, sku, lines, created_at)
		VALUES (:goal, :total_budget, :city, :product, :sku, :lines, :created_at)`, p)
	if err != nil {
		return fmt.Errorf("record plan: %w", err)
	}
	return nil
}

func (j *SQLJournal) Plans(ctx context.Context, limit int) ([]Plan, error) {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()
	if limit <= 0 {
		limit = 20
	}
	var out []Plan
	q := j.db.Rebind(`SELECT id, goal, total_budget, city, product, sku, lines, created_at
		FROM plans ORDER BY created_at DESC, id DESC LIMIT ?`)
	if err := j.db.SelectContext(ctx, &out, q, limit); err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return out, nil
}

func (j *SQLJournal) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()
	return j.db.PingContext(ctx)
}

func (j *SQLJournal) Close() error { return j.db.Close() }

// NopJournal discards writes and lists nothing.
type NopJournal struct{}

func (NopJournal) RecordResolution(context.Context, Resolution) error { return nil }
func (NopJournal) Resolutions(context.Context, int) ([]Resolution, error) {
	return nil, ErrJournalDisabled
}
func (NopJournal) RecordPlan(context.Context, Plan) error     { return nil }
func (NopJournal) Plans(context.Context, int) ([]Plan, error) { return nil, ErrJournalDisabled }
func (NopJournal) Ping(context.Context) error                 { return nil }
func (NopJournal) Close() error                               { return nil }
