package forecast

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"
)

const (
	day = 24 * time.Hour
	// seasonalSpan is the history needed before weekday effects are fitted.
	seasonalSpan = 14 * day
	ridge        = 1e-6
)

// ErrInsufficientHistory means the series is shorter than the minimum history.
var ErrInsufficientHistory = errors.New("insufficient history to forecast")

// Observation is one dated value. Several observations may share a date.
type Observation struct {
	Date  time.Time
	Value float64
}

// Point is one dated model output.
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// WeekdayEffect is the additive weekly component for one weekday.
type WeekdayEffect struct {
	Weekday time.Weekday `json:"weekday"`
	Effect  float64      `json:"effect"`
}

// model is an additive linear trend plus optional day-of-week offsets, fitted by
// ridge-stabilised least squares.
type model struct {
	origin   time.Time
	scale    float64
	seasonal bool
	beta     []float64 // intercept, slope, then Monday..Saturday offsets vs Sunday
}

func (m *model) x(t time.Time) float64 {
	return float64(t.Sub(m.origin)/day) / m.scale
}

func (m *model) weekly(t time.Time) float64 {
	if !m.seasonal {
		return 0
	}
	return m.weekdayEffect(t.Weekday()) - m.weeklyMean()
}

func (m *model) weekdayEffect(wd time.Weekday) float64 {
	if !m.seasonal || wd == time.Sunday {
		return 0
	}
	return m.beta[1+int(wd)]
}

func (m *model) weeklyMean() float64 {
	if !m.seasonal {
		return 0
	}
	var s float64
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		s += m.weekdayEffect(wd)
	}
	return s / 7
}

// trend includes the mean weekly offset so trend + weekly is the prediction.
func (m *model) trend(t time.Time) float64 {
	return m.beta[0] + m.beta[1]*m.x(t) + m.weeklyMean()
}

func (m *model) predict(t time.Time) float64 { return m.trend(t) + m.weekly(t) }

func (m *model) effects() []WeekdayEffect {
	if !m.seasonal {
		return nil
	}
	out := make([]WeekdayEffect, 0, 7)
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		out = append(out, WeekdayEffect{Weekday: wd, Effect: m.weekdayEffect(wd) - m.weeklyMean()})
	}
	return out
}

func fit(obs []Observation) (*model, error) {
	if len(obs) == 0 {
		return nil, ErrInsufficientHistory
	}
	first, last := obs[0].Date, obs[0].Date
	for _, o := range obs[1:] {
		if o.Date.Before(first) {
			first = o.Date
		}
		if o.Date.After(last) {
			last = o.Date
		}
	}
	span := last.Sub(first)
	m := &model{origin: first, scale: math.Max(1, float64(span/day)), seasonal: span >= seasonalSpan}

	cols := 2
	if m.seasonal {
		cols += 6
	}
	n := len(obs)
	// ridge rows below the design matrix penalise every coefficient but the intercept
	a := mat.NewDense(n+cols-1, cols, nil)
	b := mat.NewVecDense(n+cols-1, nil)
	for i, o := range obs {
		a.Set(i, 0, 1)
		a.Set(i, 1, m.x(o.Date))
		if m.seasonal && o.Date.Weekday() != time.Sunday {
			a.Set(i, 1+int(o.Date.Weekday()), 1)
		}
		b.SetVec(i, o.Value)
	}
	lambda := math.Sqrt(ridge)
	for j := 1; j < cols; j++ {
		a.Set(n+j-1, j, lambda)
	}

	var beta mat.VecDense
	if err := beta.SolveVec(a, b); err != nil {
		// a poorly conditioned fit still carries a solution
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, fmt.Errorf("least squares: %w", err)
		}
	}
	m.beta = make([]float64, cols)
	for j := range m.beta {
		m.beta[j] = beta.AtVec(j)
	}
	for _, v := range m.beta {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.New("least squares: non-finite coefficient")
		}
	}
	return m, nil
}

// distinctDates returns the sorted unique dates of obs.
func distinctDates(obs []Observation) []time.Time {
	seen := make(map[time.Time]struct{}, len(obs))
	out := make([]time.Time, 0, len(obs))
	for _, o := range obs {
		if _, ok := seen[o.Date]; ok {
			continue
		}
		seen[o.Date] = struct{}{}
		out = append(out, o.Date)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
