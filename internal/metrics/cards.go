package metrics

import (
	"github.com/AngelCh415/yukti/internal/models"
)

// CardKey identifies one performance summary card.
type CardKey string

const (
	CardROAS        CardKey = "roas"
	CardConversions CardKey = "conversions"
	CardCPC         CardKey = "cpc"
	CardCTR         CardKey = "ctr"
	CardImpressions CardKey = "impressions"
	CardNTB         CardKey = "ntb"
)

type cardDef struct {
	key     CardKey
	label   string
	metric  models.Metric
	target  models.Metric
	inverse bool
}

var cardDefs = []cardDef{
	{CardROAS, "Average ROAS", models.ActualROAS, models.TargetROAS, false},
	{CardConversions, "Total Conversions", models.Conversions, "", false},
	{CardCPC, "Average CPC", models.ActualCPC, models.TargetCPC, true},
	{CardCTR, "Average CTR", models.ActualCTR, models.TargetCTR, false},
	{CardImpressions, "Total Impressions", models.Impressions, "", false},
	{CardNTB, "Average NTB Rate", models.NTBRate, "", false},
}

// DefaultCards is the selection shown before the operator picks any.
var DefaultCards = []CardKey{CardROAS, CardConversions, CardCPC}

// AllCards lists every card in display order.
func AllCards() []CardKey {
	out := make([]CardKey, len(cardDefs))
	for i, d := range cardDefs {
		out[i] = d.key
	}
	return out
}

// ParseCards reads a comma separated card list, keeping display order and dropping
// unknown keys. An empty or fully unknown list yields DefaultCards.
func ParseCards(s string) []CardKey {
	set := csvSet(s)
	var out []CardKey
	for _, d := range cardDefs {
		if _, ok := set[string(d.key)]; ok {
			out = append(out, d.key)
		}
	}
	if len(out) == 0 {
		return append([]CardKey(nil), DefaultCards...)
	}
	return out
}

// Card is one summary metric for the period, compared with the previous period.
type Card struct {
	Key     CardKey       `json:"key"`
	Label   string        `json:"label"`
	Metric  models.Metric `json:"metric"`
	Value   models.Float  `json:"value"`
	Target  models.Float  `json:"target"`
	Delta   Change        `json:"delta"`
	Inverse bool          `json:"inverse"`
	Spark   []Point       `json:"spark"`
}

// Good reports whether the delta moves in the metric's favourable direction.
func (c Card) Good() bool {
	if c.Inverse {
		return c.Delta.Percent <= 0
	}
	return c.Delta.Percent >= 0
}

// Cards builds the selected cards from the current and previous period subsets.
func Cards(current, previous []models.CampaignRecord, keys []CardKey) []Card {
	want := make(map[CardKey]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}
	var out []Card
	for _, d := range cardDefs {
		if !want[d.key] {
			continue
		}
		cur := Aggregate(current, d.metric)
		c := Card{
			Key:     d.key,
			Label:   d.label,
			Metric:  d.metric,
			Value:   roundFloat(cur),
			Delta:   PercentChange(cur, Aggregate(previous, d.metric)),
			Inverse: d.inverse,
			Spark:   Daily(current, d.metric),
		}
		c.Delta.Percent = round2(c.Delta.Percent)
		if d.target != "" {
			c.Target = roundFloat(Mean(current, d.target))
		}
		out = append(out, c)
	}
	return out
}

func roundFloat(f models.Float) models.Float {
	if !f.Valid {
		return f
	}
	return models.Some(round3(f.Value))
}
