package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"
)

// WorkbookBackend serves collections from <dir>/<collection>.xlsx, reading and
// writing the first worksheet. It backs local runs and demos without Google access.
type WorkbookBackend struct {
	dir string
	mu  sync.Mutex
}

func NewWorkbookBackend(dir string) *WorkbookBackend { return &WorkbookBackend{dir: dir} }

func (b *WorkbookBackend) path(collection string) string {
	return filepath.Join(b.dir, collection+".xlsx")
}

func (b *WorkbookBackend) Fetch(ctx context.Context, collection string) (Table, error) {
	if err := ctx.Err(); err != nil {
		return Table{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	f, err := excelize.OpenFile(b.path(collection))
	if err != nil {
		if os.IsNotExist(err) {
			return Table{}, fmt.Errorf("workbook %q not found in %s", collection, b.dir)
		}
		return Table{}, fmt.Errorf("open workbook %q: %w", collection, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return Table{}, fmt.Errorf("read workbook %q: %w", collection, err)
	}
	t := Table{FetchedAt: time.Now().UTC()}
	if len(rows) == 0 {
		return t, nil
	}
	t.Header = trimAll(rows[0])
	for _, r := range rows[1:] {
		t.Rows = append(t.Rows, trimAll(r))
	}
	return t, nil
}

func (b *WorkbookBackend) UpdateCell(ctx context.Context, collection string, row, col int, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	f, err := excelize.OpenFile(b.path(collection))
	if err != nil {
		return fmt.Errorf("open workbook %q: %w", collection, err)
	}
	defer f.Close()

	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := f.SetCellStr(f.GetSheetName(0), name, value); err != nil {
		return fmt.Errorf("set %s: %w", name, err)
	}
	return f.Save()
}

// WriteWorkbook creates <dir>/<collection>.xlsx holding header and rows. Used to seed
// demo data and fixtures.
func WriteWorkbook(dir, collection string, header []string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	all := append([][]string{header}, rows...)
	for i, r := range all {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		vals := make([]interface{}, len(r))
		for j, v := range r {
			vals[j] = v
		}
		if err := f.SetSheetRow(sheet, cellName, &vals); err != nil {
			return err
		}
	}
	return f.SaveAs(filepath.Join(dir, collection+".xlsx"))
}

func trimAll(r []string) []string {
	out := make([]string, len(r))
	for i, c := range r {
		out[i] = strings.TrimSpace(c)
	}
	return out
}
