package models

import (
	"encoding/json"
	"time"
)

// Float is a numeric cell that is either a finite number or explicitly missing.
type Float struct {
	Value float64
	Valid bool
}

func Some(v float64) Float { return Float{Value: v, Valid: true} }

var Missing = Float{}

func (f Float) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

func (f *Float) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = Missing
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = Some(v)
	return nil
}

// CampaignRecord is one row per campaign/day/segment.
type CampaignRecord struct {
	Date        time.Time `json:"date"`
	City        string    `json:"city"`
	Product     string    `json:"product"`
	SKU         string    `json:"sku"`
	AdType      string    `json:"ad_type"`
	TimeSlot    string    `json:"time_slot"`
	TargetROAS  Float     `json:"target_roas"`
	ActualROAS  Float     `json:"actual_roas"`
	TargetCTR   Float     `json:"target_ctr"`
	ActualCTR   Float     `json:"actual_ctr"`
	TargetCPC   Float     `json:"target_cpc"`
	ActualCPC   Float     `json:"actual_cpc"`
	Impressions Float     `json:"impressions"`
	Conversions Float     `json:"conversions"`
	NTBRate     Float     `json:"ntb_rate"`
}

// Metric names a numeric column of a CampaignRecord.
type Metric string

const (
	TargetROAS  Metric = "Target_ROAS"
	ActualROAS  Metric = "Actual_ROAS"
	TargetCTR   Metric = "Target_CTR"
	ActualCTR   Metric = "Actual_CTR"
	TargetCPC   Metric = "Target_CPC"
	ActualCPC   Metric = "Actual_CPC"
	Impressions Metric = "Impressions"
	Conversions Metric = "Conversions"
	NTBRate     Metric = "NTB_Rate"
)

// NumericMetrics are the columns coerced to numbers on ingest.
var NumericMetrics = []Metric{
	TargetROAS, ActualROAS, TargetCTR, ActualCTR, TargetCPC, ActualCPC, Impressions, Conversions, NTBRate,
}

// Value returns the cell for metric m.
func (r CampaignRecord) Value(m Metric) Float {
	switch m {
	case TargetROAS:
		return r.TargetROAS
	case ActualROAS:
		return r.ActualROAS
	case TargetCTR:
		return r.TargetCTR
	case ActualCTR:
		return r.ActualCTR
	case TargetCPC:
		return r.TargetCPC
	case ActualCPC:
		return r.ActualCPC
	case Impressions:
		return r.Impressions
	case Conversions:
		return r.Conversions
	case NTBRate:
		return r.NTBRate
	}
	return Missing
}

// Set stores v into the cell for metric m.
func (r *CampaignRecord) Set(m Metric, v Float) {
	switch m {
	case TargetROAS:
		r.TargetROAS = v
	case ActualROAS:
		r.ActualROAS = v
	case TargetCTR:
		r.TargetCTR = v
	case ActualCTR:
		r.ActualCTR = v
	case TargetCPC:
		r.TargetCPC = v
	case ActualCPC:
		r.ActualCPC = v
	case Impressions:
		r.Impressions = v
	case Conversions:
		r.Conversions = v
	case NTBRate:
		r.NTBRate = v
	}
}

type IssueType string

const (
	IssueOOS     IssueType = "OOS"
	IssueContent IssueType = "Content"
)

type IssueStatus string

const (
	StatusPending  IssueStatus = "Pending"
	StatusResolved IssueStatus = "Resolved"
)

// IssueRecord is one row of the live issue queue. Timestamp is its identity.
type IssueRecord struct {
	Timestamp string      `json:"timestamp"`
	Product   string      `json:"product"`
	SKU       string      `json:"sku"`
	City      string      `json:"city"`
	IssueType IssueType   `json:"issue_type"`
	Details   string      `json:"details"`
	Status    IssueStatus `json:"status"`
}

// IssueNotification is the body posted to the workflow webhook.
type IssueNotification struct {
	Product   string `json:"product"`
	SKU       string `json:"sku"`
	City      string `json:"city"`
	IssueType string `json:"issue_type"`
	Details   string `json:"details"`
}

func (i IssueRecord) Notification() IssueNotification {
	return IssueNotification{
		Product:   i.Product,
		SKU:       i.SKU,
		City:      i.City,
		IssueType: string(i.IssueType),
		Details:   i.Details,
	}
}

// Sentinels meaning "no filter" for each dimension.
const (
	AllCities   = "All Cities"
	AllProducts = "All Products"
	AllSKUs     = "All SKUs"
	AllDay      = "All Day"
	AllAdTypes  = "All Ad Types"
)

// ScenarioFilter holds the operator's dimension constraints for one rendering pass.
// A zero Start/End leaves that end of the window open.
type ScenarioFilter struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	City     string    `json:"city"`
	Product  string    `json:"product"`
	SKU      string    `json:"sku"`
	TimeSlot string    `json:"time_slot"`
	AdType   string    `json:"ad_type"`
}

// Goal is an optimisation target for budget allocation.
type Goal string

const (
	GoalROAS        Goal = "Maximize overall ROAS"
	GoalConversions Goal = "Maximize Total Conversions"
	GoalNTB         Goal = "Maximize New-to-Brand (NTB) Rate"
)

var Goals = []Goal{GoalROAS, GoalConversions, GoalNTB}

// Metric returns the column forecast for goal g.
func (g Goal) Metric() (Metric, bool) {
	switch g {
	case GoalROAS:
		return ActualROAS, true
	case GoalConversions:
		return Conversions, true
	case GoalNTB:
		return NTBRate, true
	}
	return "", false
}

type Allocation struct {
	AdType               string  `json:"ad_type"`
	PredictedPerformance float64 `json:"predicted_performance"`
	RecommendedBudget    float64 `json:"recommended_budget"`
}

// AllocationResult lists per-AdType budgets; budgets sum to TotalBudget.
type AllocationResult struct {
	Goal        Goal         `json:"goal"`
	TotalBudget float64      `json:"total_budget"`
	Lines       []Allocation `json:"lines"`
	Excluded    []string     `json:"excluded,omitempty"`
}
