package forecast

import (
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/yukti/internal/models"
	"github.com/AngelCh415/yukti/internal/telemetry"
)

var t0 = time.Date(2025, 7, 6, 0, 0, 0, 0, time.UTC) // a Sunday

func engine() *Engine {
	return NewEngine(Options{Horizon: 7, MinForecastHistory: 10, MinAllocationHistory: 5},
		slog.New(slog.NewTextHandler(io.Discard, nil)), telemetry.New())
}

func linear(n int, a, b float64) []Observation {
	out := make([]Observation, n)
	for i := range out {
		out[i] = Observation{Date: t0.AddDate(0, 0, i), Value: a + b*float64(i)}
	}
	return out
}

func TestProjectRecoversLinearTrend(t *testing.T) {
	res, err := engine().Project(linear(10, 2, 0.5), 7, 10)
	require.NoError(t, err)
	require.Len(t, res.Future, 7)
	assert.Equal(t, t0.AddDate(0, 0, 10), res.Future[0].Date, "projection starts the day after the last observation")
	for i, p := range res.Future {
		assert.InDelta(t, 2+0.5*float64(10+i), p.Value, 0.01)
	}
	assert.InDelta(t, 2+0.5*13, res.Score, 0.01, "score is the mean of the projected points")
	assert.Len(t, res.History, 10)
	assert.Len(t, res.Fitted, 17)
	assert.Len(t, res.Trend, 17)
	assert.Nil(t, res.Weekly, "short history has no weekly component")
}

func TestProjectWeeklySeasonality(t *testing.T) {
	var obs []Observation
	for i := 0; i < 28; i++ {
		d := t0.AddDate(0, 0, i)
		v := 10.0
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			v = 14
		}
		obs = append(obs, Observation{Date: d, Value: v})
	}
	res, err := engine().Project(obs, 7, 10)
	require.NoError(t, err)
	require.Len(t, res.Weekly, 7)

	var sum float64
	for _, w := range res.Weekly {
		sum += w.Effect
	}
	assert.InDelta(t, 0, sum, 1e-6, "weekly effects are centred")
	assert.Greater(t, res.Weekly[time.Saturday].Effect, res.Weekly[time.Wednesday].Effect)

	for _, p := range res.Future {
		want := 10.0
		if p.Date.Weekday() == time.Saturday || p.Date.Weekday() == time.Sunday {
			want = 14
		}
		assert.InDelta(t, want, p.Value, 0.1, "%s", p.Date.Weekday())
	}
}

func TestProjectMinimumHistory(t *testing.T) {
	res, err := engine().Project(linear(9, 1, 1), 7, 10)
	assert.ErrorIs(t, err, ErrInsufficientHistory)
	assert.Equal(t, 9, res.Observations)
	assert.Empty(t, res.Future)

	_, err = engine().Project(nil, 7, 0)
	assert.ErrorIs(t, err, ErrInsufficientHistory)
}

func TestProjectSameDayObservations(t *testing.T) {
	obs := []Observation{{t0, 3}, {t0, 5}, {t0, 4}, {t0, 4}, {t0, 4}}
	res, err := engine().Project(obs, 3, 5)
	require.NoError(t, err)
	require.Len(t, res.History, 1)
	assert.Equal(t, 4.0, res.History[0].Value)
	for _, p := range res.Future {
		assert.InDelta(t, 4, p.Value, 0.05)
		assert.False(t, math.IsNaN(p.Value))
	}
}

func TestForecastFiltersScenario(t *testing.T) {
	var recs []models.CampaignRecord
	for i := 0; i < 12; i++ {
		recs = append(recs,
			models.CampaignRecord{Date: t0.AddDate(0, 0, i), City: "Pune", Product: "Atta", SKU: "5kg", AdType: "Display", ActualROAS: models.Some(3)},
			models.CampaignRecord{Date: t0.AddDate(0, 0, i), City: "Delhi", Product: "Atta", SKU: "5kg", AdType: "Display", ActualROAS: models.Some(9)},
		)
	}
	e := engine()
	res, err := e.Forecast(recs, models.ScenarioFilter{City: "Pune", Product: "Atta", SKU: "5kg", AdType: "Display"}, models.ActualROAS)
	require.NoError(t, err)
	assert.Equal(t, models.ActualROAS, res.Metric)
	assert.Equal(t, 12, res.Observations)
	assert.InDelta(t, 3, res.Score, 0.01)

	_, err = e.Forecast(recs, models.ScenarioFilter{City: "Pune", AdType: "Video"}, models.ActualROAS)
	assert.ErrorIs(t, err, ErrInsufficientHistory)
}
