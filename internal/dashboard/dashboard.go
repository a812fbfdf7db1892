package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"github.com/AngelCh415/yukti/internal/forecast"
	"github.com/AngelCh415/yukti/internal/ingest"
	"github.com/AngelCh415/yukti/internal/insight"
	"github.com/AngelCh415/yukti/internal/metrics"
	"github.com/AngelCh415/yukti/internal/models"
	"github.com/AngelCh415/yukti/internal/store"
)

const (
	MinBudget     = 10000.0
	DefaultBudget = 100000.0

	msgLoadFailed         = "Failed to load data. Please ensure the campaign sheet is set up correctly and shared."
	msgForecastShort      = "Not enough historical data for this specific scenario to generate a reliable forecast."
	msgPlanShort          = "Could not generate a budget plan. Not enough historical data for the selected product/SKU/city combination."
	msgInvalidRange       = "Please select a valid date range."
	msgBudgetBelowMinimum = "The total budget must be at least 10,000."
)

var ErrBudgetTooLow = errors.New("budget below minimum")

// Campaigns is the read side of the adapter the views need.
type Campaigns interface {
	Campaigns(ctx context.Context) (ingest.CampaignSnapshot, error)
}

type Options struct {
	WindowDays int
}

// Service assembles the Diagnostics and Forecaster views from one campaign read.
type Service struct {
	src      Campaigns
	insight  *insight.Engine
	narrator *insight.Narrator
	forecast *forecast.Engine
	journal  store.Journal
	log      *slog.Logger
	opt      Options
	now      func() time.Time
}

func NewService(src Campaigns, ie *insight.Engine, nar *insight.Narrator, fe *forecast.Engine, j store.Journal, opt Options, log *slog.Logger) *Service {
	if opt.WindowDays < 1 {
		opt.WindowDays = 30
	}
	if j == nil {
		j = store.NopJournal{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{src: src, insight: ie, narrator: nar, forecast: fe, journal: j, log: log, opt: opt, now: time.Now}
}

// Diagnostics is the performance view for one period and scenario.
type Diagnostics struct {
	Scenario  models.ScenarioFilter `json:"scenario"`
	Options   metrics.Options       `json:"options"`
	Cards     []metrics.Card        `json:"cards"`
	Selected  []metrics.CardKey     `json:"selected"`
	Map       []metrics.CityPoint   `json:"map"`
	Insight   insight.Insight       `json:"insight"`
	Summary   string                `json:"summary,omitempty"`
	Rows      int                   `json:"rows"`
	Dropped   int                   `json:"dropped"`
	FetchedAt time.Time             `json:"fetched_at"`
	// Message is shown instead of the view body when set.
	Message string `json:"message,omitempty"`
}

// Diagnostics loads the campaign table and builds the view. A source failure returns
// the error along with a view carrying only the failure message.
func (s *Service) Diagnostics(ctx context.Context, q DiagnosticsQuery) (Diagnostics, error) {
	v := Diagnostics{Scenario: q.Scenario, Selected: q.Cards}
	if len(v.Selected) == 0 {
		v.Selected = append([]metrics.CardKey(nil), metrics.DefaultCards...)
	}
	snap, err := s.src.Campaigns(ctx)
	if err != nil {
		v.Message = msgLoadFailed
		return v, err
	}
	v.Rows, v.Dropped, v.FetchedAt = len(snap.Records), snap.Dropped, snap.FetchedAt
	v.Options = metrics.OptionsFor(snap.Records, q.Scenario.Product).WithSentinels()
	v.Scenario = s.window(snap.Records, v.Scenario)
	if v.Scenario.Start.IsZero() || v.Scenario.End.IsZero() || v.Scenario.End.Before(v.Scenario.Start) {
		v.Message = msgInvalidRange
		v.Insight = insight.InsufficientData()
		return v, nil
	}

	current := metrics.Filter(snap.Records, v.Scenario)
	previous := metrics.Filter(snap.Records, metrics.Previous(v.Scenario))
	v.Cards = metrics.Cards(current, previous, v.Selected)
	v.Map = metrics.CityPerformance(metrics.Filter(snap.Records, metrics.MapScenario(v.Scenario)))
	v.Insight = s.insight.Diagnose(current, insight.Period{Start: v.Scenario.Start, End: v.Scenario.End})
	if q.Narrate {
		v.Summary = s.narrator.Summarize(ctx, v.Insight)
	}
	return v, nil
}

// window fills an open date range from the data: no dates at all means the default
// trailing window, a single open end means the table's bound on that side.
func (s *Service) window(recs []models.CampaignRecord, sc models.ScenarioFilter) models.ScenarioFilter {
	if sc.Start.IsZero() && sc.End.IsZero() {
		sc.Start, sc.End, _ = metrics.DefaultWindow(recs, s.opt.WindowDays)
		return sc
	}
	first, last, ok := metrics.Bounds(recs)
	if !ok {
		return sc
	}
	if sc.Start.IsZero() {
		sc.Start = first
	}
	if sc.End.IsZero() {
		sc.End = last
	}
	return sc
}

// ForecastView is Part 1 of the Forecaster: one projected scenario.
type ForecastView struct {
	Scenario models.ScenarioFilter `json:"scenario"`
	Options  metrics.Options       `json:"options"`
	Metrics  []models.Metric       `json:"metrics"`
	Goals    []models.Goal         `json:"goals"`
	Metric   models.Metric         `json:"metric"`
	Result   *forecast.Result      `json:"result,omitempty"`
	Horizon  int                   `json:"horizon"`
	Message  string                `json:"message,omitempty"`
}

// Forecast projects the chosen metric for a fully specified scenario. Each unset
// selector takes the first available value, SKUs restricted to the product.
func (s *Service) Forecast(ctx context.Context, q ForecastQuery) (ForecastView, error) {
	v := ForecastView{Metrics: forecast.ForecastMetrics, Goals: models.Goals, Metric: q.Metric, Horizon: s.forecast.Horizon()}
	if !lo.Contains(forecast.ForecastMetrics, v.Metric) {
		v.Metric = forecast.ForecastMetrics[0]
	}
	snap, err := s.src.Campaigns(ctx)
	if err != nil {
		v.Message = msgLoadFailed
		return v, err
	}
	v.Scenario, v.Options = resolveScenario(snap.Records, q.Scenario)

	res, err := s.forecast.Forecast(snap.Records, v.Scenario, v.Metric)
	if errors.Is(err, forecast.ErrInsufficientHistory) {
		v.Message = msgForecastShort
		return v, nil
	}
	if err != nil {
		return v, err
	}
	v.Result = &res
	return v, nil
}

// resolveScenario pins every forecast selector to a concrete value. Dates and the
// time slot are not selectable here and are cleared.
func resolveScenario(recs []models.CampaignRecord, sc models.ScenarioFilter) (models.ScenarioFilter, metrics.Options) {
	opts := metrics.OptionsFor(recs, sc.Product)
	pick := func(v string, from []string) string {
		if lo.Contains(from, v) || len(from) == 0 {
			return v
		}
		return from[0]
	}
	sc.Start, sc.End, sc.TimeSlot = time.Time{}, time.Time{}, ""
	sc.City = pick(sc.City, opts.Cities)
	product := pick(sc.Product, opts.Products)
	if product != sc.Product {
		sc.Product = product
		opts = metrics.OptionsFor(recs, product)
	}
	sc.SKU = pick(sc.SKU, opts.SKUs)
	sc.AdType = pick(sc.AdType, opts.AdTypes)
	return sc, opts
}

// PlanView is Part 2 of the Forecaster: a goal-driven budget split.
type PlanView struct {
	Scenario   models.ScenarioFilter    `json:"scenario"`
	Allocation *models.AllocationResult `json:"allocation,omitempty"`
	Message    string                   `json:"message,omitempty"`
}

// Plan allocates budget across the scenario's ad types and records the plan in the
// journal. A journal failure is logged and does not fail the plan.
func (s *Service) Plan(ctx context.Context, q PlanQuery) (PlanView, error) {
	var v PlanView
	if q.Budget < MinBudget {
		v.Message = msgBudgetBelowMinimum
		return v, fmt.Errorf("%w: %.2f < %.0f", ErrBudgetTooLow, q.Budget, MinBudget)
	}
	if _, ok := q.Goal.Metric(); !ok {
		return v, fmt.Errorf("%w: %q", forecast.ErrUnknownGoal, q.Goal)
	}
	snap, err := s.src.Campaigns(ctx)
	if err != nil {
		v.Message = msgLoadFailed
		return v, err
	}
	v.Scenario, _ = resolveScenario(snap.Records, q.Scenario)
	v.Scenario.AdType = ""

	res, err := s.forecast.Allocate(q.Goal, q.Budget, snap.Records, v.Scenario)
	if errors.Is(err, forecast.ErrInsufficientHistory) {
		v.Message = msgPlanShort
		return v, nil
	}
	if err != nil {
		return v, err
	}
	v.Allocation = &res

	p, err := store.NewPlan(res, v.Scenario, s.now())
	if err == nil {
		err = s.journal.RecordPlan(ctx, p)
	}
	if err != nil {
		s.log.Warn("plan not journaled", slog.Any("err", err))
	}
	return v, nil
}

// Plans lists recently generated plans.
func (s *Service) Plans(ctx context.Context, limit int) ([]store.Plan, error) {
	return s.journal.Plans(ctx, limit)
}
