package httpx

import (
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/AngelCh415/yukti/internal/alerts"
	"github.com/AngelCh415/yukti/internal/dashboard"
	"github.com/AngelCh415/yukti/internal/metrics"
	"github.com/AngelCh415/yukti/internal/models"
	"github.com/AngelCh415/yukti/internal/store"
)

type pages struct{ t *template.Template }

func newPages() *pages {
	funcs := template.FuncMap{
		"spark":   spark,
		"chart":   chart,
		"cityMap": cityMap,
		"money":   money,
		"date":    func(d time.Time) string { return d.Format(dashboard.DateLayout) },
		"checked": func(keys []metrics.CardKey, k metrics.CardKey) bool {
			for _, x := range keys {
				if x == k {
					return true
				}
			}
			return false
		},
		"allCards": metrics.AllCards,
	}
	t := template.Must(template.New("layout").Funcs(funcs).Parse(layoutTpl))
	template.Must(t.New("diagnostics").Parse(diagnosticsTpl))
	template.Must(t.New("forecaster").Parse(forecasterTpl))
	template.Must(t.New("alerts").Parse(alertsTpl))
	return &pages{t: t}
}

type page struct {
	Title   string
	Refresh int
	Body    any
}

func (rt *router) render(w http.ResponseWriter, r *http.Request, name string, p page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := rt.pages.t.ExecuteTemplate(w, name, p); err != nil {
		rt.Log.Error("render failed", slog.String("page", name), slog.Any("err", err))
	}
}

func (rt *router) diagnosticsPage(w http.ResponseWriter, r *http.Request) {
	q, err := dashboard.ParseDiagnostics(r.URL.Query())
	if err != nil {
		rt.render(w, r, "diagnostics", page{Title: "Diagnostics", Body: dashboard.Diagnostics{Message: err.Error(), Selected: metrics.DefaultCards}})
		return
	}
	v, err := rt.Dashboard.Diagnostics(r.Context(), q)
	if err != nil {
		rt.Log.Warn("diagnostics degraded", slog.Any("err", err))
	}
	rt.render(w, r, "diagnostics", page{Title: "Diagnostics", Body: v})
}

type forecasterBody struct {
	Forecast dashboard.ForecastView
	Plan     *dashboard.PlanView
	Goal     models.Goal
	Budget   float64
	Error    string
	Plans    []store.Plan
}

func (rt *router) forecasterPage(w http.ResponseWriter, r *http.Request) {
	rt.forecaster(w, r, r.URL.Query(), nil)
}

func (rt *router) planPage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	body := &forecasterBody{}
	q, err := dashboard.ParsePlan(r.PostForm)
	if err != nil {
		body.Error = err.Error()
	} else {
		body.Goal, body.Budget = q.Goal, q.Budget
		pv, err := rt.Dashboard.Plan(r.Context(), q)
		switch {
		case err != nil && pv.Message != "":
			body.Error = pv.Message
		case err != nil:
			body.Error = err.Error()
		default:
			body.Plan = &pv
		}
	}
	rt.forecaster(w, r, r.PostForm, body)
}

func (rt *router) forecaster(w http.ResponseWriter, r *http.Request, v url.Values, body *forecasterBody) {
	if body == nil {
		body = &forecasterBody{}
	}
	if body.Goal == "" {
		body.Goal, body.Budget = models.GoalROAS, dashboard.DefaultBudget
	}
	q, err := dashboard.ParseForecast(v)
	if err != nil {
		body.Forecast.Message = err.Error()
	} else {
		fv, err := rt.Dashboard.Forecast(r.Context(), q)
		if err != nil && fv.Message == "" {
			fv.Message = err.Error()
		}
		body.Forecast = fv
	}
	body.Plans, _ = rt.Dashboard.Plans(r.Context(), 5)
	rt.render(w, r, "forecaster", page{Title: "Forecaster", Body: body})
}

// alertsPage lists the session's queue. In auto mode each load runs one paced
// resolution first and asks the browser to reload until the queue is clear.
func (rt *router) alertsPage(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	var steps []alerts.Step
	var outcome *alerts.Outcome
	msg := r.URL.Query().Get("msg")
	if sess.Auto() {
		res, err := rt.Alerts.AutoResolveNext(r.Context(), sess, nil)
		steps, outcome = res.Steps, res.Outcome
		if err != nil && msg == "" {
			msg = err.Error()
		}
	}

	var v dashboard.AlertsView
	if l, err := rt.Alerts.ListPending(r.Context(), sess); err != nil {
		v = dashboard.NewAlertsView(nil, sess.Auto())
	} else {
		v = dashboard.NewAlertsView(&l, sess.Auto())
	}
	v.Steps, v.Outcome = steps, outcome
	if msg != "" && v.Message == "" {
		v.Message = msg
	}
	v.History, _ = rt.Alerts.Resolutions(r.Context(), 10)

	p := page{Title: "Live Alerts", Body: v}
	if v.Auto && !v.AllClear && v.Message == "" {
		p.Refresh = 1
	}
	rt.render(w, r, "alerts", p)
}

func (rt *router) resolveForm(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if _, err := rt.resolve(r.Context(), sess, r.FormValue("timestamp"), false); err != nil {
		http.Redirect(w, r, "/alerts?msg="+url.QueryEscape("Could not resolve issue in backend: "+err.Error()), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/alerts", http.StatusSeeOther)
}

func (rt *router) autoForm(w http.ResponseWriter, r *http.Request) {
	rt.Alerts.SetAuto(sessionFrom(r.Context()), formBool(r, "auto"))
	http.Redirect(w, r, "/alerts", http.StatusSeeOther)
}
