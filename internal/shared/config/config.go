package config

import (
	"errors"
	"log"
	"os"
	"strings"
	"time"
)

// DefaultTokenTTL is the questionnaire link validity when TOKEN_TTL is unset.
const DefaultTokenTTL = 30 * 24 * time.Hour

// Config holds application configuration.
type Config struct {
	Port            string
	CORSAllowOrigin []string
	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	DatabaseURL     string
	Env             string
	SQSQueueURL     string

	TokenSecret      string
	TokenTTL         time.Duration
	AdminTokenSecret string
	FrontendURL      string
	OwnerEmail       string

	MailProvider      string
	MailFrom          string
	MailFromName      string
	MailjetAPIKey     string
	MailjetSecretKey  string
	MailjetBaseURL    string
	PDFRenderer       string
	ChromePath        string
	ReportRenderLimit time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),
		DatabaseURL:     dbURL,
		Env:             env,
		SQSQueueURL:     getEnv("SQS_QUEUE_URL", ""),

		TokenSecret:      os.Getenv("TOKEN_SECRET"),
		TokenTTL:         getDuration("TOKEN_TTL", DefaultTokenTTL),
		AdminTokenSecret: os.Getenv("ADMIN_TOKEN_SECRET"),
		FrontendURL:      strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:5173"), "/"),
		OwnerEmail:       getEnv("OWNER_EMAIL", ""),

		MailProvider:      normalizeMailProvider(getEnv("MAIL_PROVIDER", "log")),
		MailFrom:          getEnv("MAIL_FROM", "diagnostico@localhost"),
		MailFromName:      getEnv("MAIL_FROM_NAME", "Diagnóstico TDM"),
		MailjetAPIKey:     getEnv("MAILJET_API_KEY", ""),
		MailjetSecretKey:  getEnv("MAILJET_SECRET_KEY", ""),
		MailjetBaseURL:    getEnv("MAILJET_BASE_URL", "https://api.mailjet.com"),
		PDFRenderer:       normalizePDFRenderer(getEnv("PDF_RENDERER", "none")),
		ChromePath:        getEnv("CHROME_PATH", ""),
		ReportRenderLimit: getDuration("REPORT_RENDER_TIMEOUT", 45*time.Second),
	}
}

// Validate reports settings that cannot work together.
func (c Config) Validate() error {
	var errs []error
	if c.Env == "production" && c.TokenSecret == "" {
		errs = append(errs, errors.New("TOKEN_SECRET is required in production"))
	}
	if c.AdminTokenSecret != "" && c.AdminTokenSecret == c.TokenSecret {
		errs = append(errs, errors.New("ADMIN_TOKEN_SECRET must differ from TOKEN_SECRET"))
	}
	if c.ObjectStoreType == "s3" && c.S3Bucket == "" {
		errs = append(errs, errors.New("S3_BUCKET is required when OBJECT_STORE=s3"))
	}
	if c.MailProvider == "mailjet" && (c.MailjetAPIKey == "" || c.MailjetSecretKey == "") {
		errs = append(errs, errors.New("MAILJET_API_KEY and MAILJET_SECRET_KEY are required when MAIL_PROVIDER=mailjet"))
	}
	return errors.Join(errs...)
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("invalid %s=%q, using %s", key, raw, def)
		return def
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func normalizeMailProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "mailjet":
		return "mailjet"
	default:
		return "log"
	}
}

func normalizePDFRenderer(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "chrome", "chromedp":
		return "chrome"
	default:
		return "none"
	}
}
