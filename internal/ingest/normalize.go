package ingest

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/AngelCh415/yukti/internal/models"
)

// DateLayout is the DD-Mon-YY format of the Date column. The day may be
// written with or without a leading zero.
const DateLayout = "2-Jan-06"

// ParseDate parses a Date cell into a calendar date at UTC midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	return dayUTC(t), nil
}

// ParseNumber strips '%' and thousands separators and coerces to a finite float.
// Anything unparseable is Missing.
func ParseNumber(s string) models.Float {
	s = strings.TrimSpace(strings.ReplaceAll(s, "%", ""))
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return models.Missing
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return models.Missing
	}
	return models.Some(v)
}

// Campaigns converts a campaign table into records. Rows with an unparseable Date are
// dropped and counted; numeric cells never fail a row.
func Campaigns(t Table) ([]models.CampaignRecord, int, error) {
	dateIdx := t.Column("Date")
	if dateIdx < 0 {
		return nil, 0, fmt.Errorf("%w: Date", ErrColumnNotFound)
	}
	idx := map[string]int{
		"City":    t.Column("City"),
		"Product": t.Column("Product"),
		"SKU":     t.Column("SKU"),
		"AdType":  t.Column("AdType"),
		"Time":    t.Column("Time"),
	}
	metricIdx := make(map[models.Metric]int, len(models.NumericMetrics))
	for _, m := range models.NumericMetrics {
		metricIdx[m] = t.Column(string(m))
	}

	out := make([]models.CampaignRecord, 0, len(t.Rows))
	dropped := 0
	for _, row := range t.Rows {
		if isBlank(row) {
			continue
		}
		d, err := ParseDate(cell(row, dateIdx))
		if err != nil {
			dropped++
			continue
		}
		rec := models.CampaignRecord{
			Date:     d,
			City:     cell(row, idx["City"]),
			Product:  cell(row, idx["Product"]),
			SKU:      cell(row, idx["SKU"]),
			AdType:   cell(row, idx["AdType"]),
			TimeSlot: cell(row, idx["Time"]),
		}
		for m, i := range metricIdx {
			rec.Set(m, ParseNumber(cell(row, i)))
		}
		out = append(out, rec)
	}
	return out, dropped, nil
}

// Issues converts an issue queue table into records, in sheet order.
func Issues(t Table) ([]models.IssueRecord, error) {
	tsIdx := t.Column("Timestamp")
	statusIdx := t.Column("Status")
	if tsIdx < 0 {
		return nil, fmt.Errorf("%w: Timestamp", ErrColumnNotFound)
	}
	if statusIdx < 0 {
		return nil, fmt.Errorf("%w: Status", ErrColumnNotFound)
	}
	productIdx, skuIdx, cityIdx := t.Column("Product"), t.Column("SKU"), t.Column("City")
	typeIdx, detailsIdx := t.Column("Issue_Type"), t.Column("Details")

	out := make([]models.IssueRecord, 0, len(t.Rows))
	for _, row := range t.Rows {
		ts := cell(row, tsIdx)
		if ts == "" {
			continue
		}
		out = append(out, models.IssueRecord{
			Timestamp: ts,
			Product:   cell(row, productIdx),
			SKU:       cell(row, skuIdx),
			City:      cell(row, cityIdx),
			IssueType: models.IssueType(cell(row, typeIdx)),
			Details:   cell(row, detailsIdx),
			Status:    models.IssueStatus(cell(row, statusIdx)),
		})
	}
	return out, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func dayUTC(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
