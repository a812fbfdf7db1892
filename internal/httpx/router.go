package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/AngelCh415/yukti/internal/alerts"
	"github.com/AngelCh415/yukti/internal/dashboard"
	"github.com/AngelCh415/yukti/internal/forecast"
	"github.com/AngelCh415/yukti/internal/ingest"
	"github.com/AngelCh415/yukti/internal/metrics"
	"github.com/AngelCh415/yukti/internal/store"
	"github.com/AngelCh415/yukti/internal/telemetry"
	"github.com/AngelCh415/yukti/internal/utils"
)

// Deps are the components the router serves.
type Deps struct {
	Log       *slog.Logger
	Dashboard *dashboard.Service
	Alerts    *alerts.Controller
	Sessions  *store.Sessions
	Telemetry *telemetry.Registry
	// Ready reports whether the backing store and journal answer.
	Ready func(ctx context.Context) error
}

type router struct {
	Deps
	pages *pages
}

func NewRouter(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	rt := &router{Deps: d, pages: newPages()}

	mux := chi.NewRouter()
	mux.Use(utils.RequestID)
	mux.Use(utils.Logger(d.Log))

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
	mux.Get("/readyz", rt.readyz)
	if d.Telemetry != nil {
		mux.Handle("/metrics", d.Telemetry.Handler())
	}

	mux.Group(func(mux chi.Router) {
		mux.Use(rt.session)

		mux.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/diagnostics", http.StatusFound)
		})
		mux.Get("/diagnostics", rt.diagnosticsPage)
		mux.Get("/forecaster", rt.forecasterPage)
		mux.Post("/forecaster/plan", rt.planPage)
		mux.Get("/alerts", rt.alertsPage)
		mux.Post("/alerts/resolve", rt.resolveForm)
		mux.Post("/alerts/auto", rt.autoForm)

		mux.Route("/api", func(mux chi.Router) {
			mux.Get("/diagnostics", rt.apiDiagnostics)
			mux.Get("/options", rt.apiOptions)
			mux.Get("/forecast", rt.apiForecast)
			mux.Post("/plans", rt.apiPlan)
			mux.Get("/plans", rt.apiPlans)
			mux.Get("/issues", rt.apiIssues)
			mux.Post("/issues/resolve", rt.apiResolve)
			mux.Post("/issues/auto-step", rt.apiAutoStep)
			mux.Get("/resolutions", rt.apiResolutions)
			mux.Put("/session/auto", rt.apiSetAuto)
		})
	})
	return mux
}

func (rt *router) readyz(w http.ResponseWriter, r *http.Request) {
	if rt.Ready != nil {
		if err := rt.Ready(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(200)
	w.Write([]byte("ready"))
}

// status maps the error taxonomy onto HTTP codes for the JSON API.
func status(err error) int {
	switch {
	case errors.Is(err, ingest.ErrSourceUnavailable), errors.Is(err, ingest.ErrNoCredentials):
		return http.StatusBadGateway
	case errors.Is(err, alerts.ErrIssueNotFound):
		return http.StatusNotFound
	case errors.Is(err, dashboard.ErrBudgetTooLow), errors.Is(err, forecast.ErrUnknownGoal),
		errors.Is(err, forecast.ErrInvalidBudget), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrJournalDisabled):
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

var errBadRequest = errors.New("bad request")

func badRequest(err error) error { return errors.Join(errBadRequest, err) }

func (rt *router) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := status(err)
	if code >= 500 {
		rt.Log.Error("request failed", slog.String("path", r.URL.Path), slog.String("rid", utils.RID(r.Context())), slog.Any("err", err))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	enc.Encode(v)
}

func (rt *router) apiDiagnostics(w http.ResponseWriter, r *http.Request) {
	q, err := dashboard.ParseDiagnostics(r.URL.Query())
	if err != nil {
		rt.fail(w, r, badRequest(err))
		return
	}
	v, err := rt.Dashboard.Diagnostics(r.Context(), q)
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	writeJSON(w, v)
}

func (rt *router) apiOptions(w http.ResponseWriter, r *http.Request) {
	q := dashboard.DiagnosticsQuery{}
	q.Scenario.Product = r.URL.Query().Get("product")
	v, err := rt.Dashboard.Diagnostics(r.Context(), q)
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	writeJSON(w, struct {
		metrics.Options
		Cards []metrics.CardKey `json:"cards"`
	}{v.Options, metrics.AllCards()})
}

func (rt *router) apiForecast(w http.ResponseWriter, r *http.Request) {
	q, err := dashboard.ParseForecast(r.URL.Query())
	if err != nil {
		rt.fail(w, r, badRequest(err))
		return
	}
	v, err := rt.Dashboard.Forecast(r.Context(), q)
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	writeJSON(w, v)
}

func (rt *router) apiPlan(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		rt.fail(w, r, badRequest(err))
		return
	}
	q, err := dashboard.ParsePlan(r.Form)
	if err != nil {
		rt.fail(w, r, badRequest(err))
		return
	}
	v, err := rt.Dashboard.Plan(r.Context(), q)
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	writeJSON(w, v)
}

func (rt *router) apiPlans(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	plans, err := rt.Dashboard.Plans(r.Context(), limit+offset)
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	writeJSON(w, metrics.Page(plans, limit, offset))
}

func (rt *router) apiIssues(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	l, err := rt.Alerts.ListPending(r.Context(), sess)
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	writeJSON(w, dashboard.NewAlertsView(&l, sess.Auto()))
}

type resolveRequest struct {
	Timestamp string `json:"timestamp"`
	Auto      bool   `json:"auto"`
}

func (rt *router) apiResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rt.fail(w, r, badRequest(err))
		return
	}
	if strings.TrimSpace(req.Timestamp) == "" {
		rt.fail(w, r, badRequest(errors.New("timestamp required")))
		return
	}
	out, err := rt.resolve(r.Context(), sessionFrom(r.Context()), req.Timestamp, req.Auto)
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	writeJSON(w, out)
}

func (rt *router) resolve(ctx context.Context, sess *store.Session, ts string, auto bool) (alerts.Outcome, error) {
	issue, err := rt.Alerts.FindPending(ctx, ts)
	if err != nil {
		return alerts.Outcome{}, err
	}
	return rt.Alerts.Resolve(ctx, sess, issue, auto)
}

func (rt *router) apiAutoStep(w http.ResponseWriter, r *http.Request) {
	res, err := rt.Alerts.AutoResolveNext(r.Context(), sessionFrom(r.Context()), nil)
	if err != nil && res.Outcome == nil {
		rt.fail(w, r, err)
		return
	}
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status(err))
		json.NewEncoder(w).Encode(struct {
			alerts.AutoResult
			Error string `json:"error"`
		}{res, err.Error()})
		return
	}
	writeJSON(w, res)
}

func (rt *router) apiResolutions(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	rs, err := rt.Alerts.Resolutions(r.Context(), limit+offset)
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	writeJSON(w, metrics.Page(rs, limit, offset))
}

// pageParams reads limit (default 20, at most 1000) and offset from the query.
func pageParams(r *http.Request) (int, int) {
	q := r.URL.Query()
	limit := metrics.AtoiDef(q.Get("limit"), 20)
	if limit <= 0 || limit > 1000 {
		limit = 20
	}
	offset := metrics.AtoiDef(q.Get("offset"), 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (rt *router) apiSetAuto(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Auto bool `json:"auto"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rt.fail(w, r, badRequest(err))
		return
	}
	sess := sessionFrom(r.Context())
	rt.Alerts.SetAuto(sess, req.Auto)
	writeJSON(w, map[string]any{"auto": sess.Auto(), "resolved": sess.Resolved.Len()})
}

func formBool(r *http.Request, key string) bool {
	b, _ := strconv.ParseBool(r.FormValue(key))
	return b
}
