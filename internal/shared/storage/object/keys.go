package object

import (
	"path"
	"strings"

	"tdm-diagnostic/internal/shared/util"
)

// ReportKey returns the storage key of a diagnosis report. The lead id is hashed so
// keys never expose email-derived identifiers.
func ReportKey(leadID, diagnosisID, ext string) string {
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext == "" {
		ext = "pdf"
	}
	return path.Join("reports", util.ShortKey(leadID), diagnosisID+"."+ext)
}
