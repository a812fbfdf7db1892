package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsConfig names the service-account credential sources and known spreadsheet ids.
type SheetsConfig struct {
	CredentialsJSON string
	CredentialsFile string
	SpreadsheetIDs  map[string]string
}

// SheetsBackend reads the first worksheet of Google spreadsheets. The API clients are
// created on first use and held for the life of the process.
type SheetsBackend struct {
	cfg SheetsConfig

	mu     sync.Mutex
	sheets *sheets.Service
	drive  *drive.Service
	ids    map[string]string
}

func NewSheetsBackend(cfg SheetsConfig) *SheetsBackend {
	ids := make(map[string]string, len(cfg.SpreadsheetIDs))
	for k, v := range cfg.SpreadsheetIDs {
		ids[k] = v
	}
	return &SheetsBackend{cfg: cfg, ids: ids}
}

func (b *SheetsBackend) clientOptions() ([]option.ClientOption, error) {
	scopes := option.WithScopes(sheets.SpreadsheetsScope, drive.DriveReadonlyScope)
	if js := strings.TrimSpace(b.cfg.CredentialsJSON); js != "" {
		creds, err := serviceAccountJSON(js)
		if err != nil {
			return nil, err
		}
		return []option.ClientOption{option.WithCredentialsJSON(creds), scopes}, nil
	}
	if b.cfg.CredentialsFile != "" {
		if _, err := os.Stat(b.cfg.CredentialsFile); err == nil {
			return []option.ClientOption{option.WithCredentialsFile(b.cfg.CredentialsFile), scopes}, nil
		}
	}
	return nil, ErrNoCredentials
}

// serviceAccountJSON forces type=service_account on secrets copied from deployment
// config, which often omit or rename it.
func serviceAccountJSON(raw string) ([]byte, error) {
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("parse credentials json: %w", err)
	}
	m["type"] = "service_account"
	return json.Marshal(m)
}

func (b *SheetsBackend) services(ctx context.Context) (*sheets.Service, *drive.Service, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sheets != nil {
		return b.sheets, b.drive, nil
	}
	opts, err := b.clientOptions()
	if err != nil {
		return nil, nil, err
	}
	ss, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("sheets client: %w", err)
	}
	ds, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("drive client: %w", err)
	}
	b.sheets, b.drive = ss, ds
	return ss, ds, nil
}

// spreadsheetID resolves a spreadsheet by its title when no id is configured.
func (b *SheetsBackend) spreadsheetID(ctx context.Context, ds *drive.Service, name string) (string, error) {
	b.mu.Lock()
	id, ok := b.ids[name]
	b.mu.Unlock()
	if ok && id != "" {
		return id, nil
	}
	q := fmt.Sprintf("name = '%s' and mimeType = 'application/vnd.google-apps.spreadsheet' and trashed = false",
		strings.ReplaceAll(name, "'", `\'`))
	res, err := ds.Files.List().Q(q).Fields("files(id, name)").PageSize(1).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("lookup spreadsheet %q: %w", name, err)
	}
	if len(res.Files) == 0 {
		return "", fmt.Errorf("spreadsheet %q not found or not shared with the service account", name)
	}
	b.mu.Lock()
	b.ids[name] = res.Files[0].Id
	b.mu.Unlock()
	return res.Files[0].Id, nil
}

func (b *SheetsBackend) Fetch(ctx context.Context, collection string) (Table, error) {
	ss, ds, err := b.services(ctx)
	if err != nil {
		return Table{}, err
	}
	id, err := b.spreadsheetID(ctx, ds, collection)
	if err != nil {
		return Table{}, err
	}
	sheet, err := firstSheetTitle(ctx, ss, id)
	if err != nil {
		return Table{}, err
	}
	vr, err := ss.Spreadsheets.Values.Get(id, quoteSheet(sheet)).Context(ctx).Do()
	if err != nil {
		return Table{}, fmt.Errorf("read %q: %w", collection, err)
	}
	return tableFromValues(vr.Values), nil
}

func (b *SheetsBackend) UpdateCell(ctx context.Context, collection string, row, col int, value string) error {
	if row < 1 || col < 1 {
		return errors.New("row and column are 1-based")
	}
	ss, ds, err := b.services(ctx)
	if err != nil {
		return err
	}
	id, err := b.spreadsheetID(ctx, ds, collection)
	if err != nil {
		return err
	}
	sheet, err := firstSheetTitle(ctx, ss, id)
	if err != nil {
		return err
	}
	rng := fmt.Sprintf("%s!%s%d", quoteSheet(sheet), ColumnLetter(col), row)
	_, err = ss.Spreadsheets.Values.Update(id, rng, &sheets.ValueRange{Values: [][]interface{}{{value}}}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s %s: %w", collection, rng, err)
	}
	return nil
}

func firstSheetTitle(ctx context.Context, ss *sheets.Service, id string) (string, error) {
	sp, err := ss.Spreadsheets.Get(id).Fields("sheets(properties(title,index))").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("spreadsheet metadata: %w", err)
	}
	if len(sp.Sheets) == 0 || sp.Sheets[0].Properties == nil {
		return "", errors.New("spreadsheet has no worksheets")
	}
	return sp.Sheets[0].Properties.Title, nil
}

func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// tableFromValues converts a Sheets values matrix into a Table.
func tableFromValues(values [][]interface{}) Table {
	t := Table{FetchedAt: time.Now().UTC()}
	if len(values) == 0 {
		return t
	}
	t.Header = toStrings(values[0])
	for _, v := range values[1:] {
		t.Rows = append(t.Rows, toStrings(v))
	}
	return t
}

func toStrings(row []interface{}) []string {
	out := make([]string, len(row))
	for i, v := range row {
		if v == nil {
			continue
		}
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

// ColumnLetter converts a 1-based column index to A1 letters (1 → A, 27 → AA).
func ColumnLetter(col int) string {
	var b []byte
	for col > 0 {
		col--
		b = append([]byte{byte('A' + col%26)}, b...)
		col /= 26
	}
	return string(b)
}
