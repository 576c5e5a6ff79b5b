package server

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tdm-diagnostic/internal/diagnoses"
	"tdm-diagnostic/internal/leads"
	"tdm-diagnostic/internal/reports"
	"tdm-diagnostic/internal/services/health"
	"tdm-diagnostic/internal/shared/auth"
	"tdm-diagnostic/internal/shared/config"
	"tdm-diagnostic/internal/shared/metrics"
	"tdm-diagnostic/internal/shared/server/middleware"
	"tdm-diagnostic/internal/shared/server/respond"
)

const (
	rateGroupDefault = "DEFAULT"
	rateGroupSubmit  = "SUBMIT"
)

// RouterDeps carries the handlers mounted under /api/v1.
type RouterDeps struct {
	Config           config.Config
	DB               *sql.DB
	LeadHandler      *leads.Handler
	DiagnosisHandler *diagnoses.Handler
	ReportHandler    *reports.Handler
	RateLimiter      *middleware.RateLimiter
	// AdminAuth enables /api/v1/admin when set.
	AdminAuth *auth.Verifier
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.RateLimit(middleware.RateLimitConfig{
			DefaultGroup: rateGroupDefault,
			GroupFor:     rateGroupFor,
			Limiter:      deps.RateLimiter,
			Rules: map[string]middleware.RateLimitRule{
				rateGroupDefault: {Rate: 5, Burst: 30},
				rateGroupSubmit:  {Rate: 0.2, Burst: 5},
			},
		}),
	)

	var pinger health.Pinger
	if deps.DB != nil {
		pinger = deps.DB
	}
	healthSvc := health.NewService(pinger)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		status := healthSvc.Check(c.Request.Context())
		code := http.StatusOK
		if !status.OK {
			code = http.StatusServiceUnavailable
		}
		respond.JSON(c, code, status)
	})
	if deps.LeadHandler != nil {
		deps.LeadHandler.RegisterRoutes(api)
	}
	if deps.DiagnosisHandler != nil {
		deps.DiagnosisHandler.RegisterRoutes(api)
	}
	if deps.ReportHandler != nil {
		deps.ReportHandler.RegisterRoutes(api)
	}

	if deps.AdminAuth != nil {
		admin := api.Group("/admin", auth.RequireAdmin(deps.AdminAuth))
		if deps.LeadHandler != nil {
			deps.LeadHandler.RegisterAdminRoutes(admin)
		}
		if deps.DiagnosisHandler != nil {
			deps.DiagnosisHandler.RegisterAdminRoutes(admin)
		}
	}

	return r
}

// rateGroupFor puts lead capture and questionnaire submission in the stricter group.
func rateGroupFor(c *gin.Context) string {
	if c.Request.Method != http.MethodPost {
		return rateGroupDefault
	}
	route := c.FullPath()
	if route == "/api/v1/leads" || strings.HasSuffix(route, "/submit") {
		return rateGroupSubmit
	}
	return rateGroupDefault
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
