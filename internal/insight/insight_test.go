package insight

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/yukti/internal/models"
)

var aug = Period{
	Start: time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2025, 8, 30, 0, 0, 0, 0, time.UTC),
}

type row struct{ aROAS, tROAS, aCPC, tCPC, aCTR, tCTR float64 }

func recs(rows ...row) []models.CampaignRecord {
	out := make([]models.CampaignRecord, len(rows))
	for i, r := range rows {
		out[i] = models.CampaignRecord{
			ActualROAS: models.Some(r.aROAS), TargetROAS: models.Some(r.tROAS),
			ActualCPC: models.Some(r.aCPC), TargetCPC: models.Some(r.tCPC),
			ActualCTR: models.Some(r.aCTR), TargetCTR: models.Some(r.tCTR),
		}
	}
	return out
}

func TestDiagnoseCPCInefficiency(t *testing.T) {
	got := New(0).Diagnose(recs(row{3.5, 5.0, 15, 10, 2, 2}), aug)
	require.NotNil(t, got.Ratios)
	assert.InDelta(t, 0.70, got.Ratios.ROAS, 1e-9)
	assert.InDelta(t, 0.667, got.Ratios.CPC, 1e-3)
	assert.Equal(t, CauseCPC, got.CauseCode)
	assert.Contains(t, got.Cause, "Cost Per Click")
	assert.Contains(t, got.Cause, "67%")
	assert.Equal(t, recReallocate, got.Recommendation)
	assert.Equal(t, "The average ROAS (3.50) is at 70% of its target (5.00).", got.Symptom)
	assert.Equal(t, "01 Aug to 30 Aug", got.Period)
}

func TestDiagnoseStrongIgnoresOtherRatios(t *testing.T) {
	for _, r := range []row{
		{5, 5, 100, 1, 0.1, 5},
		{4.75, 5, 1, 1, 1, 1},
		{9, 5, 50, 10, 0, 3},
	} {
		got := New(0.95).Diagnose(recs(r), aug)
		assert.Equal(t, CauseStrong, got.CauseCode, "row %+v", r)
		assert.Equal(t, recScale, got.Recommendation)
	}
}

func TestDiagnoseBranches(t *testing.T) {
	e := New(0.95)
	ctr := e.Diagnose(recs(row{3, 5, 10, 10, 1, 2}), aug)
	assert.Equal(t, CauseCTR, ctr.CauseCode)
	assert.Contains(t, ctr.Cause, "50%")

	post := e.Diagnose(recs(row{3, 5, 10, 10, 2, 2}), aug)
	assert.Equal(t, CausePostClick, post.CauseCode)
	assert.Equal(t, recReallocate, post.Recommendation)
}

func TestDiagnoseConfigurableThreshold(t *testing.T) {
	got := New(0.6).Diagnose(recs(row{3.5, 5.0, 15, 10, 2, 2}), aug)
	assert.Equal(t, CauseStrong, got.CauseCode)
	assert.Equal(t, 0.6, New(0.6).Threshold())
	assert.Equal(t, DefaultThreshold, New(-1).Threshold())
}

func TestDiagnoseEmpty(t *testing.T) {
	got := New(0).Diagnose(nil, aug)
	assert.Equal(t, InsufficientData(), got)
	assert.True(t, got.Insufficient())
	assert.Nil(t, got.Ratios)
	assert.NotContains(t, got.Symptom, "NaN")
}

func TestRatiosMissingOrZeroDenominator(t *testing.T) {
	r := ComputeRatios([]models.CampaignRecord{{
		ActualROAS: models.Some(3), TargetROAS: models.Some(0),
		TargetCPC: models.Some(10), ActualCPC: models.Missing,
	}})
	assert.Zero(t, r.ROAS)
	assert.Zero(t, r.CPC)
	assert.Zero(t, r.CTR)
	assert.False(t, math.IsNaN(r.ROAS))

	got := New(0).Diagnose([]models.CampaignRecord{{ActualROAS: models.Some(3)}}, aug)
	assert.Equal(t, CauseCPC, got.CauseCode, "missing ratios read as 0, never as on target")
	assert.Contains(t, got.Symptom, "n/a")
}

type fakeCompleter struct {
	out  string
	err  error
	user string
}

func (f *fakeCompleter) Complete(_ context.Context, _, user string) (string, error) {
	f.user = user
	return f.out, f.err
}

func TestNarrator(t *testing.T) {
	in := New(0).Diagnose(recs(row{3.5, 5.0, 15, 10, 2, 2}), aug)

	fc := &fakeCompleter{out: "  ROAS is at 70% of target because clicks cost too much.  "}
	n := NewNarratorWith(fc, nil)
	assert.Equal(t, "ROAS is at 70% of target because clicks cost too much.", n.Summarize(context.Background(), in))
	assert.True(t, strings.Contains(fc.user, "Root cause: The primary cause is a high Cost Per Click"))

	failing := NewNarratorWith(&fakeCompleter{err: errors.New("529 overloaded")}, nil)
	assert.Empty(t, failing.Summarize(context.Background(), in))

	var none *Narrator
	assert.Empty(t, none.Summarize(context.Background(), in))
	assert.Nil(t, NewNarrator(" ", "model", nil))

	fc.user = ""
	assert.Empty(t, n.Summarize(context.Background(), InsufficientData()))
	assert.Empty(t, fc.user, "no call for an empty selection")
}
