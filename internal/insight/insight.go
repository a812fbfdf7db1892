package insight

import (
	"fmt"
	"math"
	"time"

	"github.com/AngelCh415/yukti/internal/metrics"
	"github.com/AngelCh415/yukti/internal/models"
)

// DefaultThreshold is the relative performance below which a metric is off target.
const DefaultThreshold = 0.95

// Cause classifies the root cause branch of the decision tree.
type Cause string

const (
	CauseInsufficient Cause = "insufficient_data"
	CauseStrong       Cause = "performance_strong"
	CauseCPC          Cause = "cost_inefficiency"
	CauseCTR          Cause = "low_click_through"
	CausePostClick    Cause = "post_click_conversion"
)

const (
	insufficientSymptom = "Not enough data for this selection."
	causeStrongText     = "Performance is strong across key metrics."
	causeCTRTextFmt     = "The primary cause is a low Click-Through Rate (CTR), at %s of target. This suggests the ad creative may not be resonating."
	causeCPCTextFmt     = "The primary cause is a high Cost Per Click (CPC), which is only %s cost-efficient. CTR performance is adequate."
	causePostClickText  = "Underlying metrics (CPC, CTR) are on target. Low ROAS may be due to a poor conversion rate post-click."
	recReallocate       = "Consider reallocating budget to higher-performing creatives or ad types to improve ROAS."
	recScale            = "Performance is strong. Consider increasing budget for the highest-performing campaigns to maximize returns."
)

// Period is the reporting window the narrative refers to.
type Period struct {
	Start time.Time
	End   time.Time
}

func (p Period) String() string {
	return fmt.Sprintf("%s to %s", p.Start.Format("02 Jan"), p.End.Format("02 Jan"))
}

// Ratios are the relative performances feeding the decision tree. A ratio whose
// inputs are missing or whose denominator is zero is 0.
type Ratios struct {
	ROAS float64 `json:"roas"`
	CPC  float64 `json:"cpc"`
	CTR  float64 `json:"ctr"`
}

// Insight is the symptom, root cause and recommendation for one filtered table.
type Insight struct {
	Symptom        string  `json:"symptom"`
	Cause          string  `json:"cause"`
	Recommendation string  `json:"recommendation"`
	CauseCode      Cause   `json:"cause_code"`
	Ratios         *Ratios `json:"ratios,omitempty"`
	Period         string  `json:"period,omitempty"`
}

// Insufficient reports whether the table was too small to diagnose.
func (i Insight) Insufficient() bool { return i.CauseCode == CauseInsufficient }

// InsufficientData is the fixed triple returned for an empty selection.
func InsufficientData() Insight {
	return Insight{Symptom: insufficientSymptom, CauseCode: CauseInsufficient}
}

type Engine struct{ threshold float64 }

// New returns an engine using threshold, or DefaultThreshold when it is not positive.
func New(threshold float64) *Engine {
	if threshold <= 0 || math.IsNaN(threshold) {
		threshold = DefaultThreshold
	}
	return &Engine{threshold: threshold}
}

func (e *Engine) Threshold() float64 { return e.threshold }

func ratio(num, den models.Float) float64 {
	if !num.Valid || !den.Valid || den.Value == 0 {
		return 0
	}
	return num.Value / den.Value
}

// ComputeRatios derives ROAS, CPC (inverted, lower cost is better) and CTR performance.
func ComputeRatios(recs []models.CampaignRecord) Ratios {
	return Ratios{
		ROAS: ratio(metrics.Mean(recs, models.ActualROAS), metrics.Mean(recs, models.TargetROAS)),
		CPC:  ratio(metrics.Mean(recs, models.TargetCPC), metrics.Mean(recs, models.ActualCPC)),
		CTR:  ratio(metrics.Mean(recs, models.ActualCTR), metrics.Mean(recs, models.TargetCTR)),
	}
}

// Diagnose runs the decision tree over recs. An empty table never computes a ratio.
func (e *Engine) Diagnose(recs []models.CampaignRecord, period Period) Insight {
	if len(recs) < 1 {
		return InsufficientData()
	}
	r := ComputeRatios(recs)
	actual, target := metrics.Mean(recs, models.ActualROAS), metrics.Mean(recs, models.TargetROAS)

	in := Insight{
		Symptom: fmt.Sprintf("The average ROAS (%s) is at %s of its target (%s).",
			fixed2(actual), pct(r.ROAS), fixed2(target)),
		Ratios: &r,
		Period: period.String(),
	}
	switch {
	case r.ROAS >= e.threshold:
		in.CauseCode, in.Cause = CauseStrong, causeStrongText
	case r.CPC < e.threshold:
		in.CauseCode, in.Cause = CauseCPC, fmt.Sprintf(causeCPCTextFmt, pct(r.CPC))
	case r.CTR < e.threshold:
		in.CauseCode, in.Cause = CauseCTR, fmt.Sprintf(causeCTRTextFmt, pct(r.CTR))
	default:
		in.CauseCode, in.Cause = CausePostClick, causePostClickText
	}
	if r.ROAS < e.threshold {
		in.Recommendation = recReallocate
	} else {
		in.Recommendation = recScale
	}
	return in
}

func pct(f float64) string { return fmt.Sprintf("%.0f%%", f*100) }

func fixed2(f models.Float) string {
	if !f.Valid {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", f.Value)
}
