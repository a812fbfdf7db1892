package forecast

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/AngelCh415/yukti/internal/metrics"
	"github.com/AngelCh415/yukti/internal/models"
)

var (
	ErrUnknownGoal   = errors.New("unknown allocation goal")
	ErrInvalidBudget = errors.New("total budget must be a positive amount")
)

// Allocate forecasts the goal's metric per ad type within the scenario's city,
// product and SKU, and splits total proportionally to the non-negative scores.
// Ad types with too little history are listed in Excluded. When every score is
// non-positive the budget is split equally. Budgets are in currency units: total
// is rounded to 2 decimal places and the lines sum to that rounded amount.
func (e *Engine) Allocate(goal models.Goal, total float64, recs []models.CampaignRecord, s models.ScenarioFilter) (models.AllocationResult, error) {
	metric, ok := goal.Metric()
	if !ok {
		return models.AllocationResult{}, fmt.Errorf("%w: %q", ErrUnknownGoal, goal)
	}
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return models.AllocationResult{}, ErrInvalidBudget
	}
	s.AdType = ""
	base := metrics.Filter(recs, s)
	groups := lo.GroupBy(base, func(r models.CampaignRecord) string { return r.AdType })
	adTypes := lo.Keys(groups)
	sort.Strings(adTypes)

	res := models.AllocationResult{Goal: goal, TotalBudget: total}
	var lines []models.Allocation
	for _, at := range adTypes {
		fc, err := e.Project(Series(groups[at], metric), e.opt.Horizon, e.opt.MinAllocationHistory)
		if err != nil {
			res.Excluded = append(res.Excluded, at)
			continue
		}
		lines = append(lines, models.Allocation{AdType: at, PredictedPerformance: fc.Score})
	}
	if len(lines) == 0 {
		return res, ErrInsufficientHistory
	}
	res.Lines = split(lines, total)
	e.log.Info("budget allocated", slog.String("goal", string(goal)),
		slog.Float64("total", total), slog.Int("lines", len(res.Lines)), slog.Int("excluded", len(res.Excluded)))
	return res, nil
}

// split assigns budgets in currency units. Shares are rounded to 2 dp and the
// rounding remainder goes to the largest line so the lines sum to total exactly.
func split(lines []models.Allocation, total float64) []models.Allocation {
	scores := lo.Map(lines, func(l models.Allocation, _ int) decimal.Decimal {
		return decimal.NewFromFloat(math.Max(0, l.PredictedPerformance))
	})
	sum := decimal.Sum(decimal.Zero, scores...)
	tot := decimal.NewFromFloat(total).Round(2)
	n := decimal.NewFromInt(int64(len(lines)))

	budgets := make([]decimal.Decimal, len(lines))
	allocated := decimal.Zero
	for i := range lines {
		if sum.IsPositive() {
			budgets[i] = tot.Mul(scores[i]).Div(sum).Round(2)
		} else {
			budgets[i] = tot.Div(n).Round(2)
		}
		allocated = allocated.Add(budgets[i])
	}

	largest := 0
	for i := range budgets {
		if budgets[i].GreaterThan(budgets[largest]) {
			largest = i
		}
	}
	budgets[largest] = budgets[largest].Add(tot.Sub(allocated))

	out := make([]models.Allocation, len(lines))
	for i, l := range lines {
		l.RecommendedBudget = budgets[i].InexactFloat64()
		out[i] = l
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RecommendedBudget != out[j].RecommendedBudget {
			return out[i].RecommendedBudget > out[j].RecommendedBudget
		}
		return out[i].AdType < out[j].AdType
	})
	return out
}
