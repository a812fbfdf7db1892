package dashboard

import (
	"github.com/AngelCh415/yukti/internal/alerts"
	"github.com/AngelCh415/yukti/internal/models"
	"github.com/AngelCh415/yukti/internal/store"
)

const msgQueueUnavailable = "Error connecting to Live Issue Queue."

// AlertCard is one pending issue as shown on the Live Alerts page.
type AlertCard struct {
	Issue    models.IssueRecord `json:"issue"`
	Title    string             `json:"title"`
	Priority string             `json:"priority"`
}

func cardFor(i models.IssueRecord) AlertCard {
	if i.IssueType == models.IssueOOS {
		return AlertCard{Issue: i, Title: "High Priority: Out of Stock", Priority: "high"}
	}
	return AlertCard{Issue: i, Title: "Medium Priority: Content Discrepancy", Priority: "medium"}
}

// AlertsView is the Live Alerts page for one session.
type AlertsView struct {
	Auto     bool               `json:"auto"`
	Cards    []AlertCard        `json:"cards"`
	Pending  int                `json:"pending"`
	Masked   int                `json:"masked"`
	Awaiting []string           `json:"awaiting,omitempty"`
	AllClear bool               `json:"all_clear"`
	Steps    []alerts.Step      `json:"steps,omitempty"`
	History  []store.Resolution `json:"history,omitempty"`
	Message  string             `json:"message,omitempty"`
	Outcome  *alerts.Outcome    `json:"outcome,omitempty"`
}

// NewAlertsView renders a listing. A nil listing means the queue could not be read.
func NewAlertsView(l *alerts.Listing, auto bool) AlertsView {
	v := AlertsView{Auto: auto}
	if l == nil {
		v.Message = msgQueueUnavailable
		return v
	}
	v.Pending, v.Masked, v.Awaiting = l.Pending, l.Masked, l.Awaiting
	for _, i := range l.Issues {
		v.Cards = append(v.Cards, cardFor(i))
	}
	v.AllClear = len(v.Cards) == 0
	return v
}
