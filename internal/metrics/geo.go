package metrics

import (
	"sort"

	"github.com/samber/lo"

	"github.com/AngelCh415/yukti/internal/models"
)

// Coordinates is a latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// CityCoordinates places the cities the campaigns run in.
var CityCoordinates = map[string]Coordinates{
	"Mumbai":    {19.0760, 72.8777},
	"Delhi":     {28.7041, 77.1025},
	"Bengaluru": {12.9716, 77.5946},
	"Pune":      {18.5204, 73.8567},
	"Jaipur":    {26.9124, 75.7873},
	"Indore":    {22.7196, 75.8577},
}

const (
	minBubble = 20.0
	maxBubble = 40.0
)

// CityPoint is one bubble of the city performance map.
type CityPoint struct {
	City        string       `json:"city"`
	ActualROAS  models.Float `json:"actual_roas"`
	TargetROAS  models.Float `json:"target_roas"`
	Conversions float64      `json:"conversions"`
	// Performance is actual/target ROAS, 1 when either side is missing.
	Performance float64      `json:"performance"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	BubbleSize  float64      `json:"bubble_size"`
}

// MapScenario drops the city constraint: the map always compares every city.
func MapScenario(s models.ScenarioFilter) models.ScenarioFilter {
	s.City = models.AllCities
	return s
}

// CityPerformance aggregates ROAS and conversions per city and scales bubble sizes
// linearly by conversions into [20, 40]. All-equal conversions give every city 40.
func CityPerformance(recs []models.CampaignRecord) []CityPoint {
	groups := lo.GroupBy(recs, func(r models.CampaignRecord) string { return r.City })
	out := make([]CityPoint, 0, len(groups))
	for city, rs := range groups {
		p := CityPoint{
			City:        city,
			ActualROAS:  Mean(rs, models.ActualROAS),
			TargetROAS:  Mean(rs, models.TargetROAS),
			Conversions: Sum(rs, models.Conversions).Value,
			Performance: 1,
		}
		if perf := safeDiv(p.ActualROAS, p.TargetROAS); perf.Valid {
			p.Performance = round3(perf.Value)
		}
		if c, ok := CityCoordinates[city]; ok {
			p.Coordinates = &c
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].City < out[j].City })
	if len(out) == 0 {
		return out
	}

	conv := lo.Map(out, func(p CityPoint, _ int) float64 { return p.Conversions })
	minC, maxC := lo.Min(conv), lo.Max(conv)
	for i := range out {
		if maxC == minC {
			out[i].BubbleSize = maxBubble
			continue
		}
		out[i].BubbleSize = round2((out[i].Conversions-minC)/(maxC-minC)*(maxBubble-minBubble) + minBubble)
	}
	return out
}
