package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the dashboard's Prometheus instruments on a private registry.
type Registry struct {
	reg *prometheus.Registry

	SourceFetches  *prometheus.CounterVec
	CacheLookups   *prometheus.CounterVec
	RowsDropped    *prometheus.CounterVec
	Resolutions    *prometheus.CounterVec
	Notifications  *prometheus.CounterVec
	ForecastFits   *prometheus.CounterVec
	FitDuration    prometheus.Histogram
	PendingIssues  prometheus.Gauge
	ResolvedMasked prometheus.Gauge
}

func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		SourceFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yukti_source_fetches_total",
			Help: "Backing store fetches by collection and result",
		}, []string{"collection", "result"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yukti_cache_lookups_total",
			Help: "Staleness cache lookups by collection and outcome",
		}, []string{"collection", "outcome"}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yukti_rows_dropped_total",
			Help: "Rows dropped during normalisation by collection",
		}, []string{"collection"}),
		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yukti_issue_resolutions_total",
			Help: "Issue resolution attempts by mode and result",
		}, []string{"mode", "result"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yukti_notifications_total",
			Help: "Outbound notifications by channel and result",
		}, []string{"channel", "result"}),
		ForecastFits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yukti_forecast_fits_total",
			Help: "Forecast model fits by outcome",
		}, []string{"outcome"}),
		FitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "yukti_forecast_fit_seconds",
			Help:    "Time spent fitting one forecast model",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		PendingIssues: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "yukti_pending_issues",
			Help: "Pending issues in the last authoritative queue read",
		}),
		ResolvedMasked: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "yukti_resolved_masked",
			Help: "Issues hidden by a session resolved set in the last listing",
		}),
	}
	r.reg.MustRegister(
		r.SourceFetches, r.CacheLookups, r.RowsDropped, r.Resolutions,
		r.Notifications, r.ForecastFits, r.FitDuration, r.PendingIssues, r.ResolvedMasked,
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// ObserveFit records one model fit.
func (r *Registry) ObserveFit(start time.Time, err error) {
	if r == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.ForecastFits.WithLabelValues(outcome).Inc()
	r.FitDuration.Observe(time.Since(start).Seconds())
}

// Count increments vec with labels; a nil registry is a no-op so callers can run
// without telemetry in tests.
func (r *Registry) Count(vec func(*Registry) *prometheus.CounterVec, labels ...string) {
	if r == nil {
		return
	}
	vec(r).WithLabelValues(labels...).Inc()
}

func SourceFetches(r *Registry) *prometheus.CounterVec { return r.SourceFetches }
func CacheLookups(r *Registry) *prometheus.CounterVec  { return r.CacheLookups }
func RowsDropped(r *Registry) *prometheus.CounterVec   { return r.RowsDropped }
func Resolutions(r *Registry) *prometheus.CounterVec   { return r.Resolutions }
func Notifications(r *Registry) *prometheus.CounterVec { return r.Notifications }

// SetPending records queue gauges.
func (r *Registry) SetPending(pending, masked int) {
	if r == nil {
		return
	}
	r.PendingIssues.Set(float64(pending))
	r.ResolvedMasked.Set(float64(masked))
}
