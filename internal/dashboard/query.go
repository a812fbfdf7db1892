package dashboard

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/AngelCh415/yukti/internal/metrics"
	"github.com/AngelCh415/yukti/internal/models"
)

// DateLayout is the form/query date format.
const DateLayout = "2006-01-02"

// ParseScenario reads the scenario selectors from query values. Unknown or empty
// values stay empty, which every filter treats as "no constraint".
func ParseScenario(v url.Values) (models.ScenarioFilter, error) {
	s := models.ScenarioFilter{
		City:     strings.TrimSpace(v.Get("city")),
		Product:  strings.TrimSpace(v.Get("product")),
		SKU:      strings.TrimSpace(v.Get("sku")),
		TimeSlot: strings.TrimSpace(v.Get("time_slot")),
		AdType:   strings.TrimSpace(v.Get("ad_type")),
	}
	var err error
	if s.Start, err = parseDate(v.Get("start")); err != nil {
		return s, fmt.Errorf("start: %w", err)
	}
	if s.End, err = parseDate(v.Get("end")); err != nil {
		return s, fmt.Errorf("end: %w", err)
	}
	if !s.Start.IsZero() && !s.End.IsZero() && s.End.Before(s.Start) {
		return s, fmt.Errorf("end %s is before start %s", s.End.Format(DateLayout), s.Start.Format(DateLayout))
	}
	return s, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(DateLayout, s)
}

// DiagnosticsQuery selects what the Diagnostics view renders.
type DiagnosticsQuery struct {
	Scenario models.ScenarioFilter
	Cards    []metrics.CardKey
	Narrate  bool
}

func ParseDiagnostics(v url.Values) (DiagnosticsQuery, error) {
	s, err := ParseScenario(v)
	if err != nil {
		return DiagnosticsQuery{}, err
	}
	narrate, _ := strconv.ParseBool(v.Get("narrate"))
	return DiagnosticsQuery{Scenario: s, Cards: metrics.ParseCards(strings.Join(v["cards"], ",")), Narrate: narrate}, nil
}

// ForecastQuery selects one scenario and metric to project.
type ForecastQuery struct {
	Scenario models.ScenarioFilter
	Metric   models.Metric
}

func ParseForecast(v url.Values) (ForecastQuery, error) {
	s, err := ParseScenario(v)
	if err != nil {
		return ForecastQuery{}, err
	}
	return ForecastQuery{Scenario: s, Metric: models.Metric(strings.TrimSpace(v.Get("metric")))}, nil
}

// PlanQuery asks for a budget allocation.
type PlanQuery struct {
	Scenario models.ScenarioFilter
	Goal     models.Goal
	Budget   float64
}

func ParsePlan(v url.Values) (PlanQuery, error) {
	s, err := ParseScenario(v)
	if err != nil {
		return PlanQuery{}, err
	}
	q := PlanQuery{Scenario: s, Goal: models.Goal(strings.TrimSpace(v.Get("goal"))), Budget: DefaultBudget}
	if b := strings.TrimSpace(v.Get("budget")); b != "" {
		d, err := decimal.NewFromString(b)
		if err != nil {
			return PlanQuery{}, fmt.Errorf("budget: %w", err)
		}
		if !d.Equal(d.Round(2)) {
			return PlanQuery{}, fmt.Errorf("budget %s: at most 2 decimal places", b)
		}
		q.Budget = d.InexactFloat64()
	}
	return q, nil
}
