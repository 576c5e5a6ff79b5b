package reports

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"tdm-diagnostic/internal/diagnoses"
	"tdm-diagnostic/internal/diagnostic/scoring"
	"tdm-diagnostic/internal/leads"
	"tdm-diagnostic/internal/notify"
	"tdm-diagnostic/internal/shared/metrics"
	"tdm-diagnostic/internal/shared/storage/object"
	"tdm-diagnostic/internal/shared/telemetry"
	"tdm-diagnostic/internal/shared/util"
)

const (
	contentTypePDF  = "application/pdf"
	contentTypeHTML = "text/html; charset=utf-8"

	defaultLinkTTL = 7 * 24 * time.Hour
)

// DiagnosisStore is the part of the diagnoses repository used for delivery.
type DiagnosisStore interface {
	GetByID(ctx context.Context, id string) (diagnoses.Diagnosis, error)
	UpdateReport(ctx context.Context, id string, rec diagnoses.ReportRecord) error
	MarkReportFailed(ctx context.Context, id, reason string) error
}

// LeadLookup resolves report recipients.
type LeadLookup interface {
	GetByID(ctx context.Context, id string) (leads.Lead, error)
}

// Document is a rendered report.
type Document struct {
	Body        []byte
	ContentType string
	Ext         string
	Pages       int
}

// Service renders, stores and announces diagnosis reports.
type Service struct {
	Diagnoses   DiagnosisStore
	Leads       LeadLookup
	Catalog     *scoring.Catalog
	Renderer    PDFRenderer
	Store       object.ObjectStore
	Mailer      notify.Mailer
	OwnerEmail  string
	FrontendURL string
	LinkTTL     time.Duration
	Now         func() time.Time
}

// Deliver renders the report of a completed diagnosis, stores it and emails the
// lead and the owner. Running it again overwrites the stored report.
func (s *Service) Deliver(ctx context.Context, diagnosisID string) (err error) {
	requestID := diagnoses.RequestIDFromContext(ctx)
	defer func() {
		if err == nil {
			return
		}
		metrics.IncReportFailed()
		telemetry.Error("report.failed", map[string]any{
			"request_id":   requestID,
			"diagnosis_id": diagnosisID,
			"error":        err.Error(),
		})
		if !errors.Is(err, diagnoses.ErrNotFound) {
			if markErr := s.Diagnoses.MarkReportFailed(ctx, diagnosisID, truncate(err.Error(), 500)); markErr != nil {
				telemetry.Warn("report.mark_failed_error", map[string]any{
					"diagnosis_id": diagnosisID,
					"error":        markErr.Error(),
				})
			}
		}
	}()

	d, lead, err := s.load(ctx, diagnosisID)
	if err != nil {
		return err
	}

	doc, err := s.Render(ctx, d, lead)
	if err != nil {
		return err
	}

	key := object.ReportKey(lead.ID, d.ID, doc.Ext)
	if _, err := s.Store.SaveWithKey(ctx, key, doc.ContentType, bytes.NewReader(doc.Body)); err != nil {
		return fmt.Errorf("store report: %w", err)
	}

	url, err := s.reportURL(ctx, key, d.ID)
	if err != nil {
		return err
	}
	rec := diagnoses.ReportRecord{Key: key, URL: url, Pages: doc.Pages, DeliveredAt: s.now()}
	if err := s.Diagnoses.UpdateReport(ctx, d.ID, rec); err != nil {
		return fmt.Errorf("record report: %w", err)
	}

	if err := s.notify(ctx, d, lead, url); err != nil {
		return fmt.Errorf("notify: %w", err)
	}

	metrics.IncReportDelivered()
	telemetry.Info("report.delivered", map[string]any{
		"request_id":   requestID,
		"lead_id":      lead.ID,
		"diagnosis_id": d.ID,
		"key":          key,
		"pages":        doc.Pages,
		"bytes":        len(doc.Body),
	})
	return nil
}

// Render produces the report document: a PDF when a renderer is configured,
// the HTML page otherwise.
func (s *Service) Render(ctx context.Context, d diagnoses.Diagnosis, lead leads.Lead) (Document, error) {
	if d.Result == nil {
		return Document{}, diagnoses.ErrNotCompleted
	}
	completedAt := d.UpdatedAt
	if d.CompletedAt != nil {
		completedAt = *d.CompletedAt
	}
	html, err := RenderHTML(NewView(s.catalog(), *d.Result, lead.Email, lead.Company, completedAt))
	if err != nil {
		return Document{}, err
	}
	if s.Renderer == nil {
		return Document{Body: html, ContentType: contentTypeHTML, Ext: "html"}, nil
	}

	started := time.Now()
	pdf, err := s.Renderer.RenderPDF(ctx, html)
	metrics.ObserveReportRender(time.Since(started))
	if err != nil {
		return Document{}, fmt.Errorf("render pdf: %w", err)
	}
	pages, err := CountPages(pdf)
	if err != nil {
		telemetry.Warn("report.page_count_failed", map[string]any{
			"diagnosis_id": d.ID,
			"error":        err.Error(),
		})
	}
	return Document{Body: pdf, ContentType: contentTypePDF, Ext: "pdf", Pages: pages}, nil
}

// Open returns the stored report, rendering the HTML version on the fly when
// nothing was stored yet.
func (s *Service) Open(ctx context.Context, diagnosisID string) (io.ReadCloser, string, string, error) {
	d, lead, err := s.load(ctx, diagnosisID)
	if err != nil {
		return nil, "", "", err
	}
	name, err := util.SafeFileName("diagnostico-tdm-" + d.ID)
	if err != nil {
		name = "diagnostico-tdm"
	}

	if d.ReportKey != "" {
		body, err := s.Store.Open(ctx, d.ReportKey)
		switch {
		case err == nil:
			contentType, ext := contentTypePDF, ".pdf"
			if strings.HasSuffix(d.ReportKey, ".html") {
				contentType, ext = contentTypeHTML, ".html"
			}
			return body, contentType, name + ext, nil
		case !errors.Is(err, object.ErrNotFound):
			return nil, "", "", fmt.Errorf("open report: %w", err)
		}
	}

	completedAt := d.UpdatedAt
	if d.CompletedAt != nil {
		completedAt = *d.CompletedAt
	}
	html, err := RenderHTML(NewView(s.catalog(), *d.Result, lead.Email, lead.Company, completedAt))
	if err != nil {
		return nil, "", "", err
	}
	return io.NopCloser(bytes.NewReader(html)), contentTypeHTML, name + ".html", nil
}

func (s *Service) load(ctx context.Context, diagnosisID string) (diagnoses.Diagnosis, leads.Lead, error) {
	d, err := s.Diagnoses.GetByID(ctx, diagnosisID)
	if err != nil {
		return diagnoses.Diagnosis{}, leads.Lead{}, err
	}
	if !d.Completed() || d.Result == nil {
		return diagnoses.Diagnosis{}, leads.Lead{}, diagnoses.ErrNotCompleted
	}
	lead, err := s.Leads.GetByID(ctx, d.LeadID)
	if err != nil {
		if errors.Is(err, leads.ErrNotFound) {
			return diagnoses.Diagnosis{}, leads.Lead{}, diagnoses.ErrLeadNotFound
		}
		return diagnoses.Diagnosis{}, leads.Lead{}, err
	}
	return d, lead, nil
}

// reportURL prefers a presigned object link and falls back to the site's report page.
func (s *Service) reportURL(ctx context.Context, key, diagnosisID string) (string, error) {
	if p, ok := s.Store.(object.Presigner); ok {
		ttl := s.LinkTTL
		if ttl <= 0 {
			ttl = defaultLinkTTL
		}
		url, err := p.PresignGet(ctx, key, ttl)
		if err != nil {
			return "", fmt.Errorf("presign report: %w", err)
		}
		return url, nil
	}
	return strings.TrimRight(s.FrontendURL, "/") + "/relatorio/" + diagnosisID, nil
}

// notify sends the report email and the owner notification concurrently.
func (s *Service) notify(ctx context.Context, d diagnoses.Diagnosis, lead leads.Lead, reportURL string) error {
	if s.Mailer == nil {
		return nil
	}
	catalog := s.catalog()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		lines := make([]notify.RecommendationLine, 0, len(d.Result.Recommendations))
		for _, rec := range d.Result.Recommendations {
			lines = append(lines, notify.RecommendationLine{Title: rec.Title, Priority: string(rec.Priority)})
		}
		msg, err := notify.ReportEmail(lead.Email, notify.ReportData{
			Name:            lead.Name,
			MaturityLevel:   d.Result.MaturityLevel,
			LevelName:       catalog.LevelName(d.Result.MaturityLevel),
			Recommendations: lines,
			ReportURL:       reportURL,
			Summary:         catalog.Summary(*d.Result),
		})
		if err != nil {
			return err
		}
		return s.Mailer.Send(gctx, msg)
	})

	if owner := strings.TrimSpace(s.OwnerEmail); owner != "" {
		g.Go(func() error {
			completedAt := s.now()
			if d.CompletedAt != nil {
				completedAt = *d.CompletedAt
			}
			msg, err := notify.OwnerEmail(owner, notify.OwnerData{
				Email:         lead.Email,
				Company:       lead.Company,
				MaturityLevel: d.Result.MaturityLevel,
				CompletedAt:   completedAt,
			})
			if err != nil {
				return err
			}
			return s.Mailer.Send(gctx, msg)
		})
	}
	return g.Wait()
}

func (s *Service) catalog() *scoring.Catalog {
	if s.Catalog == nil {
		return scoring.MustDefault()
	}
	return s.Catalog
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

var _ diagnoses.Deliverer = (*Service)(nil)
