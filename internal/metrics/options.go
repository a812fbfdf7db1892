package metrics

import (
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/AngelCh415/yukti/internal/models"
)

// Options are the selector values offered for a table.
type Options struct {
	Cities    []string `json:"cities"`
	Products  []string `json:"products"`
	SKUs      []string `json:"skus"`
	TimeSlots []string `json:"time_slots"`
	AdTypes   []string `json:"ad_types"`
}

func distinct(recs []models.CampaignRecord, f func(models.CampaignRecord) string) []string {
	vals := lo.Uniq(lo.FilterMap(recs, func(r models.CampaignRecord, _ int) (string, bool) {
		v := f(r)
		return v, strings.TrimSpace(v) != ""
	}))
	sort.Strings(vals)
	return vals
}

// OptionsFor lists distinct sorted values per dimension. SKUs are restricted to
// product unless product is empty or its sentinel.
func OptionsFor(recs []models.CampaignRecord, product string) Options {
	skuRecs := recs
	if active(product, models.AllProducts) {
		skuRecs = lo.Filter(recs, func(r models.CampaignRecord, _ int) bool { return r.Product == product })
	}
	return Options{
		Cities:    distinct(recs, func(r models.CampaignRecord) string { return r.City }),
		Products:  distinct(recs, func(r models.CampaignRecord) string { return r.Product }),
		SKUs:      distinct(skuRecs, func(r models.CampaignRecord) string { return r.SKU }),
		TimeSlots: distinct(recs, func(r models.CampaignRecord) string { return r.TimeSlot }),
		AdTypes:   distinct(recs, func(r models.CampaignRecord) string { return r.AdType }),
	}
}

// WithSentinels prefixes every list with its "no filter" value.
func (o Options) WithSentinels() Options {
	return Options{
		Cities:    append([]string{models.AllCities}, o.Cities...),
		Products:  append([]string{models.AllProducts}, o.Products...),
		SKUs:      append([]string{models.AllSKUs}, o.SKUs...),
		TimeSlots: append([]string{models.AllDay}, o.TimeSlots...),
		AdTypes:   append([]string{models.AllAdTypes}, o.AdTypes...),
	}
}
