package metrics

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/AngelCh415/yukti/internal/models"
)

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// csvSet parses a comma separated query value into a normalised set.
func csvSet(s string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, p := range strings.Split(s, ",") {
		p = norm(p)
		if p != "" {
			out[p] = struct{}{}
		}
	}
	return out
}

// active reports whether a dimension constraint is set, i.e. not empty and not its
// "no filter" sentinel.
func active(v, sentinel string) bool {
	v = strings.TrimSpace(v)
	return v != "" && v != sentinel
}

// Filter applies each active constraint of s. Dates are inclusive on both ends; every
// other dimension is exact string equality.
func Filter(recs []models.CampaignRecord, s models.ScenarioFilter) []models.CampaignRecord {
	return lo.Filter(recs, func(r models.CampaignRecord, _ int) bool {
		if !s.Start.IsZero() && r.Date.Before(s.Start) {
			return false
		}
		if !s.End.IsZero() && r.Date.After(s.End) {
			return false
		}
		if active(s.City, models.AllCities) && r.City != s.City {
			return false
		}
		if active(s.Product, models.AllProducts) && r.Product != s.Product {
			return false
		}
		if active(s.SKU, models.AllSKUs) && r.SKU != s.SKU {
			return false
		}
		if active(s.TimeSlot, models.AllDay) && r.TimeSlot != s.TimeSlot {
			return false
		}
		if active(s.AdType, models.AllAdTypes) && r.AdType != s.AdType {
			return false
		}
		return true
	})
}

const day = 24 * time.Hour

// PreviousPeriod returns the equal-length window ending the day before start.
func PreviousPeriod(start, end time.Time) (time.Time, time.Time) {
	prevEnd := start.Add(-day)
	return prevEnd.Add(-end.Sub(start)), prevEnd
}

// Previous shifts the scenario's date window to the previous period, keeping the
// other dimensions.
func Previous(s models.ScenarioFilter) models.ScenarioFilter {
	s.Start, s.End = PreviousPeriod(s.Start, s.End)
	return s
}

// DefaultWindow is the `days`-long window ending at the latest record date.
func DefaultWindow(recs []models.CampaignRecord, days int) (time.Time, time.Time, bool) {
	if len(recs) == 0 {
		return time.Time{}, time.Time{}, false
	}
	if days < 1 {
		days = 1
	}
	latest := lo.MaxBy(recs, func(a, b models.CampaignRecord) bool { return a.Date.After(b.Date) }).Date
	return latest.Add(-time.Duration(days-1) * day), latest, true
}

// Bounds returns the earliest and latest record dates.
func Bounds(recs []models.CampaignRecord) (time.Time, time.Time, bool) {
	if len(recs) == 0 {
		return time.Time{}, time.Time{}, false
	}
	first := lo.MinBy(recs, func(a, b models.CampaignRecord) bool { return a.Date.Before(b.Date) }).Date
	last := lo.MaxBy(recs, func(a, b models.CampaignRecord) bool { return a.Date.After(b.Date) }).Date
	return first, last, true
}

// Kind is how a metric is rolled up within a group.
type Kind int

const (
	KindMean Kind = iota
	KindSum
)

// KindOf is sum for counts (Conversions, Impressions) and mean for everything else.
func KindOf(m models.Metric) Kind {
	switch m {
	case models.Conversions, models.Impressions:
		return KindSum
	}
	return KindMean
}

// Mean averages the valid values of m; no valid values is Missing.
func Mean(recs []models.CampaignRecord, m models.Metric) models.Float {
	var sum float64
	n := 0
	for _, r := range recs {
		if v := r.Value(m); v.Valid {
			sum += v.Value
			n++
		}
	}
	if n == 0 {
		return models.Missing
	}
	return models.Some(sum / float64(n))
}

// Sum totals the valid values of m. Like a spreadsheet total, an empty set sums to 0.
func Sum(recs []models.CampaignRecord, m models.Metric) models.Float {
	var sum float64
	for _, r := range recs {
		if v := r.Value(m); v.Valid {
			sum += v.Value
		}
	}
	return models.Some(sum)
}

// Aggregate rolls m up with its natural kind.
func Aggregate(recs []models.CampaignRecord, m models.Metric) models.Float {
	if KindOf(m) == KindSum {
		return Sum(recs, m)
	}
	return Mean(recs, m)
}

// Point is one value of a daily series.
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Daily aggregates m per calendar date in ascending order. Days with no valid value
// for a mean metric are omitted.
func Daily(recs []models.CampaignRecord, m models.Metric) []Point {
	groups := lo.GroupBy(recs, func(r models.CampaignRecord) time.Time { return r.Date })
	out := make([]Point, 0, len(groups))
	for d, rs := range groups {
		v := Aggregate(rs, m)
		if !v.Valid {
			continue
		}
		out = append(out, Point{Date: d, Value: v.Value})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Group is one aggregated value per dimension key.
type Group struct {
	Key   string       `json:"key"`
	Value models.Float `json:"value"`
}

// ByCity aggregates m per city, sorted by city name.
func ByCity(recs []models.CampaignRecord, m models.Metric) []Group {
	groups := lo.GroupBy(recs, func(r models.CampaignRecord) string { return r.City })
	out := make([]Group, 0, len(groups))
	for c, rs := range groups {
		out = append(out, Group{Key: c, Value: Aggregate(rs, m)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Change is a percent change with the zero floor made visible.
type Change struct {
	Percent         float64 `json:"percent"`
	PreviousMissing bool    `json:"previous_missing"`
}

// PercentChange is (current-previous)/previous*100, and exactly 0 when previous is
// missing or zero. PreviousMissing marks the floored case.
func PercentChange(current, previous models.Float) Change {
	if !previous.Valid || previous.Value == 0 {
		return Change{Percent: 0, PreviousMissing: true}
	}
	if !current.Valid {
		return Change{}
	}
	return Change{Percent: (current.Value - previous.Value) / previous.Value * 100}
}

func round2(f float64) float64 { return roundTo(f, 100) }
func round3(f float64) float64 { return roundTo(f, 1000) }

func roundTo(f, scale float64) float64 {
	if f < 0 {
		return -float64(int64(-f*scale+0.5)) / scale
	}
	return float64(int64(f*scale+0.5)) / scale
}

func safeDiv(a, b models.Float) models.Float {
	if !a.Valid || !b.Valid || b.Value == 0 {
		return models.Missing
	}
	return models.Some(a.Value / b.Value)
}

// Page returns rows[offset:offset+limit] with the limit clamped to 1000.
func Page[T any](rows []T, limit, offset int) []T {
	limit, offset = clampLimitOffset(limit, offset, len(rows))
	if offset >= len(rows) {
		return []T{}
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}

// AtoiDef parses s, falling back to d.
func AtoiDef(s string, d int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return d
	}
	return v
}

func clampLimitOffset(limit, offset, n int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = n
	}
	if limit > 1000 {
		limit = 1000
	}
	if offset > n {
		offset = n
	}
	return limit, offset
}
