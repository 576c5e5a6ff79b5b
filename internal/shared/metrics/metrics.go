package metrics

import (
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds every collector of the service; Handler serves it.
	Registry = prometheus.NewRegistry()

	leadsCapturedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tdm_leads_captured_total",
		Help: "Leads captured, split by whether the email was new",
	}, []string{"new"})

	diagnosesStartedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tdm_diagnoses_started_total",
		Help: "Diagnoses started by questionnaire type",
	}, []string{"type"})

	diagnosesCompletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tdm_diagnoses_completed_total",
		Help: "Diagnoses scored and persisted",
	})

	maturityLevel = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tdm_maturity_level",
		Help:    "Distribution of computed maturity levels",
		Buckets: []float64{1, 2, 3, 4, 5},
	})

	reportDeliveriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tdm_report_deliveries_total",
		Help: "Report deliveries by outcome",
	}, []string{"outcome"})

	reportRenderDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tdm_report_render_duration_seconds",
		Help:    "Time spent rendering a report document",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	})

	emailsSentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tdm_emails_sent_total",
		Help: "Outbound emails by template and outcome",
	}, []string{"template", "outcome"})

	reportJobsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tdm_report_jobs_total",
		Help: "Queued report jobs seen by the worker, by outcome",
	}, []string{"outcome"})

	rateLimitedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tdm_http_rate_limited_total",
		Help: "Requests rejected with 429, by rate group",
	}, []string{"group"})

	httpPanicsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tdm_http_panics_total",
		Help: "Handler panics recovered, by route",
	}, []string{"route"})

	httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tdm_http_request_duration_seconds",
		Help:    "HTTP request duration by route and status",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

func init() {
	Registry.MustRegister(
		leadsCapturedTotal,
		diagnosesStartedTotal,
		diagnosesCompletedTotal,
		maturityLevel,
		reportDeliveriesTotal,
		reportRenderDuration,
		emailsSentTotal,
		reportJobsTotal,
		rateLimitedTotal,
		httpPanicsTotal,
		httpRequestDuration,
	)
}

// IncLeadCaptured counts a lead capture.
func IncLeadCaptured(isNew bool) {
	leadsCapturedTotal.WithLabelValues(strconv.FormatBool(isNew)).Inc()
}

// IncDiagnosisStarted counts a started diagnosis.
func IncDiagnosisStarted(diagnosisType string) {
	diagnosesStartedTotal.WithLabelValues(diagnosisType).Inc()
}

// IncDiagnosisCompleted counts a completed diagnosis and records its level.
func IncDiagnosisCompleted(level int) {
	diagnosesCompletedTotal.Inc()
	maturityLevel.Observe(float64(level))
}

// IncReportDelivered counts a successful report delivery.
func IncReportDelivered() {
	reportDeliveriesTotal.WithLabelValues("ok").Inc()
}

// IncReportFailed counts a failed report delivery.
func IncReportFailed() {
	reportDeliveriesTotal.WithLabelValues("failed").Inc()
}

// ObserveReportRender records how long a report took to render.
func ObserveReportRender(d time.Duration) {
	if d < 0 {
		d = 0
	}
	reportRenderDuration.Observe(d.Seconds())
}

// IncEmail counts an outbound email attempt.
func IncEmail(template string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	emailsSentTotal.WithLabelValues(template, outcome).Inc()
}

// IncReportJobReceived counts a job pulled from the queue.
func IncReportJobReceived() {
	reportJobsTotal.WithLabelValues("received").Inc()
}

// IncReportJobCompleted counts a job processed and deleted.
func IncReportJobCompleted() {
	reportJobsTotal.WithLabelValues("completed").Inc()
}

// IncReportJobFailed counts a job left on the queue for redelivery.
func IncReportJobFailed() {
	reportJobsTotal.WithLabelValues("failed").Inc()
}

// IncReportJobDeletedUnrecoverable counts a job dropped because retrying cannot help.
func IncReportJobDeletedUnrecoverable() {
	reportJobsTotal.WithLabelValues("deleted_unrecoverable").Inc()
}

// IncRateLimited counts a request rejected by the rate limiter.
func IncRateLimited(group string) {
	rateLimitedTotal.WithLabelValues(group).Inc()
}

// IncPanic counts a recovered handler panic.
func IncPanic(route string) {
	if route == "" {
		route = "unmatched"
	}
	httpPanicsTotal.WithLabelValues(route).Inc()
}

// ObserveHTTPRequest records a finished HTTP request.
func ObserveHTTPRequest(method, route string, status int, d time.Duration) {
	httpRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// RegisterDBStats exports the pool statistics of db as go_sql_* series
// labelled db_name="tdm". Registering a second pool is a no-op.
func RegisterDBStats(db *sql.DB) error {
	if db == nil {
		return nil
	}
	err := Registry.Register(collectors.NewDBStatsCollector(db, "tdm"))
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		return nil
	}
	return err
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}))
}
