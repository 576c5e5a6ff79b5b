package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFiles embed.FS

var templates = template.Must(template.New("email").
	Funcs(template.FuncMap{"upper": strings.ToUpper}).
	ParseFS(templateFiles, "templates/*.html"))

const (
	TemplateLink   = "link"
	TemplateReport = "report"
	TemplateOwner  = "owner"
)

// LinkData fills the diagnosis link email.
type LinkData struct {
	Name      string
	URL       string
	ValidDays int
}

// RecommendationLine is one recommendation shown in the report email.
type RecommendationLine struct {
	Title    string
	Priority string
}

// ReportData fills the report-ready email.
type ReportData struct {
	Name            string
	MaturityLevel   int
	LevelName       string
	Recommendations []RecommendationLine
	ReportURL       string
	// Summary replaces the short text part when set.
	Summary string
}

// OwnerData fills the owner notification.
type OwnerData struct {
	Email         string
	Company       string
	MaturityLevel int
	CompletedAt   time.Time
}

// LinkEmail builds the email carrying the questionnaire link.
func LinkEmail(to string, data LinkData) (Message, error) {
	if data.ValidDays <= 0 {
		data.ValidDays = 30
	}
	html, err := render(TemplateLink, data)
	if err != nil {
		return Message{}, err
	}
	text := fmt.Sprintf("Seu diagnóstico de maturidade TDM está pronto.\n\nAcesse: %s\n\nEste link é válido por %d dias.\n", data.URL, data.ValidDays)
	return Message{
		To:       to,
		ToName:   data.Name,
		Subject:  "Seu Diagnóstico TDM Está Pronto",
		Text:     text,
		HTML:     html,
		Template: TemplateLink,
	}, nil
}

// ReportEmail builds the email announcing the finished report. Only the first
// three recommendations are listed.
func ReportEmail(to string, data ReportData) (Message, error) {
	if len(data.Recommendations) > 3 {
		data.Recommendations = data.Recommendations[:3]
	}
	html, err := render(TemplateReport, data)
	if err != nil {
		return Message{}, err
	}

	var text strings.Builder
	if data.Summary != "" {
		text.WriteString(strings.TrimRight(data.Summary, "\n"))
		text.WriteString("\n")
	} else {
		fmt.Fprintf(&text, "Seu nível de maturidade TDM: %d/5", data.MaturityLevel)
		if data.LevelName != "" {
			fmt.Fprintf(&text, " (%s)", data.LevelName)
		}
		text.WriteString("\n\nPrincipais recomendações:\n")
		for _, rec := range data.Recommendations {
			fmt.Fprintf(&text, "- %s [%s]\n", rec.Title, strings.ToUpper(rec.Priority))
		}
	}
	if data.ReportURL != "" {
		fmt.Fprintf(&text, "\nRelatório completo: %s\n", data.ReportURL)
	}

	return Message{
		To:       to,
		ToName:   data.Name,
		Subject:  "Seu Relatório de Diagnóstico TDM",
		Text:     text.String(),
		HTML:     html,
		Template: TemplateReport,
	}, nil
}

// OwnerEmail builds the notification sent to the site owner.
func OwnerEmail(to string, data OwnerData) (Message, error) {
	view := struct {
		Email         string
		Company       string
		MaturityLevel int
		CompletedAt   string
	}{data.Email, data.Company, data.MaturityLevel, FormatDate(data.CompletedAt)}

	html, err := render(TemplateOwner, view)
	if err != nil {
		return Message{}, err
	}
	company := data.Company
	if company == "" {
		company = "Não informada"
	}
	text := fmt.Sprintf("Novo diagnóstico completado\nE-mail: %s\nEmpresa: %s\nNível de Maturidade: %d/5\nData: %s\n",
		data.Email, company, data.MaturityLevel, view.CompletedAt)
	return Message{
		To:       to,
		Subject:  "Novo Diagnóstico Completado",
		Text:     text,
		HTML:     html,
		Template: TemplateOwner,
	}, nil
}

// FormatDate renders a timestamp the way Brazilian readers expect, in São Paulo time when available.
func FormatDate(t time.Time) string {
	if loc, err := time.LoadLocation("America/Sao_Paulo"); err == nil {
		t = t.In(loc)
	} else {
		t = t.UTC()
	}
	return t.Format("02/01/2006 15:04")
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s email: %w", name, err)
	}
	return buf.String(), nil
}
