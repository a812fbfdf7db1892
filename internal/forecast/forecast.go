package forecast

import (
	"log/slog"
	"sort"
	"time"

	"github.com/AngelCh415/yukti/internal/metrics"
	"github.com/AngelCh415/yukti/internal/models"
	"github.com/AngelCh415/yukti/internal/telemetry"
)

// ForecastMetrics are the columns offered for a single-scenario forecast.
var ForecastMetrics = []models.Metric{
	models.ActualROAS, models.ActualCTR, models.ActualCPC, models.Impressions, models.Conversions,
}

type Options struct {
	Horizon              int
	MinForecastHistory   int
	MinAllocationHistory int
}

type Engine struct {
	opt Options
	log *slog.Logger
	tel *telemetry.Registry
}

func NewEngine(opt Options, log *slog.Logger, tel *telemetry.Registry) *Engine {
	if opt.Horizon < 1 {
		opt.Horizon = 7
	}
	if opt.MinForecastHistory < 2 {
		opt.MinForecastHistory = 10
	}
	if opt.MinAllocationHistory < 2 {
		opt.MinAllocationHistory = 5
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{opt: opt, log: log, tel: tel}
}

func (e *Engine) Horizon() int { return e.opt.Horizon }

// Result is a fitted series projected Horizon days past its last observation.
type Result struct {
	Metric       models.Metric   `json:"metric"`
	Observations int             `json:"observations"`
	History      []Point         `json:"history"`
	Fitted       []Point         `json:"fitted"`
	Future       []Point         `json:"future"`
	Trend        []Point         `json:"trend"`
	Weekly       []WeekdayEffect `json:"weekly,omitempty"`
	// Score is the mean of the projected points.
	Score float64 `json:"score"`
}

// Series extracts the valid observations of m from recs.
func Series(recs []models.CampaignRecord, m models.Metric) []Observation {
	out := make([]Observation, 0, len(recs))
	for _, r := range recs {
		if v := r.Value(m); v.Valid {
			out = append(out, Observation{Date: r.Date, Value: v.Value})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Project fits obs and projects horizon daily periods. Fewer than minHistory
// observations fail with ErrInsufficientHistory without fitting.
func (e *Engine) Project(obs []Observation, horizon, minHistory int) (Result, error) {
	if len(obs) < minHistory || len(obs) == 0 {
		return Result{Observations: len(obs)}, ErrInsufficientHistory
	}
	if horizon < 1 {
		horizon = e.opt.Horizon
	}
	start := time.Now()
	m, err := fit(obs)
	e.tel.ObserveFit(start, err)
	if err != nil {
		return Result{Observations: len(obs)}, err
	}

	res := Result{Observations: len(obs), Weekly: m.effects()}
	dates := distinctDates(obs)
	byDate := map[time.Time][]float64{}
	for _, o := range obs {
		byDate[o.Date] = append(byDate[o.Date], o.Value)
	}
	for _, d := range dates {
		vs := byDate[d]
		var s float64
		for _, v := range vs {
			s += v
		}
		res.History = append(res.History, Point{Date: d, Value: s / float64(len(vs))})
		res.Fitted = append(res.Fitted, Point{Date: d, Value: m.predict(d)})
		res.Trend = append(res.Trend, Point{Date: d, Value: m.trend(d)})
	}
	last := dates[len(dates)-1]
	var sum float64
	for i := 1; i <= horizon; i++ {
		d := last.AddDate(0, 0, i)
		v := m.predict(d)
		res.Future = append(res.Future, Point{Date: d, Value: v})
		res.Fitted = append(res.Fitted, Point{Date: d, Value: v})
		res.Trend = append(res.Trend, Point{Date: d, Value: m.trend(d)})
		sum += v
	}
	res.Score = sum / float64(horizon)
	return res, nil
}

// Forecast projects metric for the records matching the scenario.
func (e *Engine) Forecast(recs []models.CampaignRecord, s models.ScenarioFilter, metric models.Metric) (Result, error) {
	obs := Series(metrics.Filter(recs, s), metric)
	res, err := e.Project(obs, e.opt.Horizon, e.opt.MinForecastHistory)
	res.Metric = metric
	if err != nil {
		e.log.Info("forecast declined", slog.String("metric", string(metric)),
			slog.Int("observations", len(obs)), slog.Any("err", err))
	}
	return res, err
}
