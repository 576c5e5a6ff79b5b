package reports

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/report.html
var reportFiles embed.FS

var reportTemplate = template.Must(template.ParseFS(reportFiles, "templates/report.html"))

// RenderHTML renders the standalone report page.
func RenderHTML(v View) ([]byte, error) {
	var buf bytes.Buffer
	if err := reportTemplate.ExecuteTemplate(&buf, "report.html", v); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return buf.Bytes(), nil
}
