package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(reportDeliveriesTotal.WithLabelValues("failed"))
	IncReportFailed()
	if got := testutil.ToFloat64(reportDeliveriesTotal.WithLabelValues("failed")); got != before+1 {
		t.Fatalf("expected %v, got %v", before+1, got)
	}

	beforeEmail := testutil.ToFloat64(emailsSentTotal.WithLabelValues("report", "failed"))
	IncEmail("report", errors.New("smtp down"))
	if got := testutil.ToFloat64(emailsSentTotal.WithLabelValues("report", "failed")); got != beforeEmail+1 {
		t.Fatalf("expected %v, got %v", beforeEmail+1, got)
	}
}

func TestReportJobOutcomes(t *testing.T) {
	cases := []struct {
		outcome string
		inc     func()
	}{
		{outcome: "received", inc: IncReportJobReceived},
		{outcome: "completed", inc: IncReportJobCompleted},
		{outcome: "failed", inc: IncReportJobFailed},
		{outcome: "deleted_unrecoverable", inc: IncReportJobDeletedUnrecoverable},
	}
	for _, tc := range cases {
		before := testutil.ToFloat64(reportJobsTotal.WithLabelValues(tc.outcome))
		tc.inc()
		if got := testutil.ToFloat64(reportJobsTotal.WithLabelValues(tc.outcome)); got != before+1 {
			t.Fatalf("%s: expected %v, got %v", tc.outcome, before+1, got)
		}
	}
}

func TestHandlerServesRegistry(t *testing.T) {
	gin.SetMode(gin.TestMode)
	IncDiagnosisStarted("express")
	IncDiagnosisCompleted(3)
	ObserveReportRender(120 * time.Millisecond)

	r := gin.New()
	r.GET("/metrics", Handler())
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	body := resp.Body.String()
	for _, want := range []string{
		`tdm_diagnoses_started_total{type="express"}`,
		"tdm_diagnoses_completed_total",
		`tdm_maturity_level_bucket{le="3"}`,
		"tdm_report_render_duration_seconds_count",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics output", want)
		}
	}
}

func TestPanicCounter(t *testing.T) {
	before := testutil.ToFloat64(httpPanicsTotal.WithLabelValues("unmatched"))
	IncPanic("")
	if got := testutil.ToFloat64(httpPanicsTotal.WithLabelValues("unmatched")); got != before+1 {
		t.Fatalf("expected panic counter to increase, got %v", got)
	}
}

func TestRegisterDBStats(t *testing.T) {
	if err := RegisterDBStats(nil); err != nil {
		t.Fatalf("nil db: %v", err)
	}
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	if err := RegisterDBStats(db); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := RegisterDBStats(db); err != nil {
		t.Fatalf("second register should be a no-op: %v", err)
	}

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/metrics", Handler())
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(resp.Body.String(), `go_sql_max_open_connections{db_name="tdm"}`) {
		t.Fatalf("expected pool stats in metrics output")
	}
}
