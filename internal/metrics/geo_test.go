package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/yukti/internal/models"
)

func TestCityPerformance(t *testing.T) {
	recs := append(sample(), models.CampaignRecord{
		Date: d(5), City: "Atlantis", ActualROAS: models.Some(2), Conversions: models.Some(30),
	})
	pts := CityPerformance(recs)
	require.Len(t, pts, 4)

	byCity := map[string]CityPoint{}
	for _, p := range pts {
		byCity[p.City] = p
	}

	delhi := byCity["Delhi"]
	assert.Equal(t, 70.0, delhi.Conversions)
	assert.Equal(t, 0.625, delhi.Performance)
	require.NotNil(t, delhi.Coordinates)
	assert.Equal(t, 28.7041, delhi.Coordinates.Lat)
	assert.Equal(t, 40.0, delhi.BubbleSize, "largest conversions get the max bubble")

	mumbai := byCity["Mumbai"]
	assert.Equal(t, 20.0, mumbai.BubbleSize, "smallest conversions get the min bubble")

	pune := byCity["Pune"]
	assert.Equal(t, 1.5, pune.Performance)
	assert.InDelta(t, 20+20.0/40*20, pune.BubbleSize, 0.01)

	atl := byCity["Atlantis"]
	assert.Equal(t, 1.0, atl.Performance, "missing target counts as on target")
	assert.Nil(t, atl.Coordinates)
}

func TestCityPerformanceEqualConversions(t *testing.T) {
	pts := CityPerformance([]models.CampaignRecord{
		rec(1, "Mumbai", "Atta", "5kg", "Morning", 4, 10),
		rec(1, "Pune", "Atta", "5kg", "Morning", 4, 10),
	})
	for _, p := range pts {
		assert.Equal(t, 40.0, p.BubbleSize)
	}
	assert.Empty(t, CityPerformance(nil))
}

func TestMapScenarioIgnoresCity(t *testing.T) {
	s := MapScenario(models.ScenarioFilter{City: "Delhi", Product: "Atta"})
	assert.Equal(t, models.AllCities, s.City)
	assert.Equal(t, "Atta", s.Product)
}

func TestOptionsFor(t *testing.T) {
	o := OptionsFor(sample(), "Atta")
	assert.Equal(t, []string{"Delhi", "Mumbai", "Pune"}, o.Cities)
	assert.Equal(t, []string{"Atta", "Bingo"}, o.Products)
	assert.Equal(t, []string{"10kg", "5kg"}, o.SKUs)
	assert.Equal(t, []string{"Evening", "Morning", "Night"}, o.TimeSlots)

	all := OptionsFor(sample(), models.AllProducts).WithSentinels()
	assert.Equal(t, []string{models.AllSKUs, "10kg", "50g", "5kg"}, all.SKUs)
	assert.Equal(t, models.AllDay, all.TimeSlots[0])
	assert.Equal(t, models.AllAdTypes, all.AdTypes[0])
}
