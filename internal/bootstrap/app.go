package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tdm-diagnostic/internal/diagnoses"
	"tdm-diagnostic/internal/diagnostic/scoring"
	"tdm-diagnostic/internal/leads"
	"tdm-diagnostic/internal/notify"
	"tdm-diagnostic/internal/queue"
	"tdm-diagnostic/internal/reports"
	"tdm-diagnostic/internal/shared/auth"
	"tdm-diagnostic/internal/shared/config"
	"tdm-diagnostic/internal/shared/metrics"
	"tdm-diagnostic/internal/shared/server"
	"tdm-diagnostic/internal/shared/storage/db"
	"tdm-diagnostic/internal/shared/storage/object"
	localstore "tdm-diagnostic/internal/shared/storage/object/local"
	s3store "tdm-diagnostic/internal/shared/storage/object/s3"
	"tdm-diagnostic/internal/shared/telemetry"
)

// App holds shared dependencies.
type App struct {
	Config           config.Config
	Router           *gin.Engine
	DB               *sql.DB
	Store            object.ObjectStore
	Queue            queue.Client
	Mailer           notify.Mailer
	Catalog          *scoring.Catalog
	LeadsRepo        leads.Repo
	DiagnosesRepo    diagnoses.Repo
	LeadsService     *leads.Service
	DiagnosesService *diagnoses.Service
	ReportsService   *reports.Service
	ReportDeliverer  ReportDeliverer
	LeadHandler      *leads.Handler
	DiagnosisHandler *diagnoses.Handler
	ReportHandler    *reports.Handler
	AdminAuth        *auth.Verifier
}

// ReportDeliverer allows callers to override report delivery for tests.
type ReportDeliverer interface {
	Deliver(ctx context.Context, diagnosisID string) error
}

// Build prepares shared dependencies and the HTTP router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:  cfg,
		DB:      sqlDB,
		Store:   store,
		Queue:   queueClient,
		Mailer:  buildMailer(cfg),
		Catalog: scoring.MustDefault(),
	}

	if err := buildServices(app); err != nil {
		return nil, err
	}

	if cfg.AdminTokenSecret != "" {
		verifier, err := auth.NewVerifier(cfg.AdminTokenSecret)
		if err != nil {
			return nil, err
		}
		app.AdminAuth = verifier
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:           app.Config,
		DB:               app.DB,
		LeadHandler:      app.LeadHandler,
		DiagnosisHandler: app.DiagnosisHandler,
		ReportHandler:    app.ReportHandler,
		AdminAuth:        app.AdminAuth,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_storage", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Open(ctx, cfg.DatabaseURL, db.RuntimeProfile())
	if err == nil && isDevLike(cfg.Env) {
		err = db.RunMigrations(ctx, sqlDB)
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_storage", map[string]any{
				"reason": "database unavailable",
				"error":  err.Error(),
			})
			return nil, nil
		}
		return nil, err
	}

	if err := metrics.RegisterDBStats(sqlDB); err != nil {
		telemetry.Warn("bootstrap.db_metrics_failed", map[string]any{"error": err.Error()})
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, s3store.Options{
			Region:   cfg.AWSRegion,
			Bucket:   cfg.S3Bucket,
			Prefix:   cfg.S3Prefix,
			KMSKeyID: cfg.SSEKMSKeyID,
		})
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.SQSQueueURL) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx, cfg.SQSQueueURL, cfg.AWSRegion)
}

func buildMailer(cfg config.Config) notify.Mailer {
	if cfg.MailProvider != "mailjet" {
		return notify.LogMailer{}
	}
	return notify.NewMailjetMailer(notify.MailjetConfig{
		BaseURL:     cfg.MailjetBaseURL,
		APIKey:      cfg.MailjetAPIKey,
		SecretKey:   cfg.MailjetSecretKey,
		SenderEmail: cfg.MailFrom,
		SenderName:  cfg.MailFromName,
	}, nil)
}

func buildTokens(cfg config.Config) (*diagnoses.TokenIssuer, error) {
	secret := cfg.TokenSecret
	if strings.TrimSpace(secret) == "" {
		if !isDevLike(cfg.Env) {
			return nil, errors.New("TOKEN_SECRET is required")
		}
		// Links signed with a per-process secret stop verifying after a restart.
		secret = uuid.NewString()
		telemetry.Warn("bootstrap.ephemeral_token_secret", map[string]any{"env": cfg.Env})
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = config.DefaultTokenTTL
	}
	return diagnoses.NewTokenIssuer(secret, ttl)
}

func buildServices(app *App) error {
	var leadRepo leads.Repo
	var diagnosisRepo diagnoses.Repo

	if app.DB != nil {
		leadRepo = &leads.PGRepo{DB: app.DB}
		diagnosisRepo = &diagnoses.PGRepo{DB: app.DB}
	} else {
		leadRepo = leads.NewMemoryRepo()
		diagnosisRepo = diagnoses.NewMemoryRepo()
	}

	tokens, err := buildTokens(app.Config)
	if err != nil {
		return err
	}

	var renderer reports.PDFRenderer
	if app.Config.PDFRenderer == "chrome" {
		renderer = &reports.ChromeRenderer{
			ExecPath: app.Config.ChromePath,
			Timeout:  app.Config.ReportRenderLimit,
		}
	}

	leadSvc := leads.NewService(leadRepo)
	reportSvc := &reports.Service{
		Diagnoses:   diagnosisRepo,
		Leads:       leadRepo,
		Catalog:     app.Catalog,
		Renderer:    renderer,
		Store:       app.Store,
		Mailer:      app.Mailer,
		OwnerEmail:  app.Config.OwnerEmail,
		FrontendURL: app.Config.FrontendURL,
	}
	diagnosisSvc := &diagnoses.Service{
		Repo:        diagnosisRepo,
		Leads:       leadRepo,
		Engine:      scoring.NewEngine(app.Catalog),
		Tokens:      tokens,
		Mailer:      app.Mailer,
		Queue:       app.Queue,
		Reports:     reportSvc,
		FrontendURL: app.Config.FrontendURL,
	}

	app.LeadsRepo = leadRepo
	app.DiagnosesRepo = diagnosisRepo
	app.LeadsService = leadSvc
	app.DiagnosesService = diagnosisSvc
	app.ReportsService = reportSvc
	app.ReportDeliverer = reportSvc
	app.LeadHandler = leads.NewHandler(leadSvc)
	app.DiagnosisHandler = diagnoses.NewHandler(diagnosisSvc)
	app.ReportHandler = reports.NewHandler(reportSvc)

	if app.LeadHandler == nil || app.DiagnosisHandler == nil || app.ReportHandler == nil {
		return errors.New("failed to initialize handlers")
	}

	return nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
