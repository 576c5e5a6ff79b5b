package telemetry

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"
)

func TestWriteEmitsJSONLine(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stdout) })

	Warn("report.delivery_failed", map[string]any{"diagnosisId": "d-1", "attempt": 2})

	line := strings.TrimSpace(buf.String())
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("expected JSON line, got %q: %v", line, err)
	}
	if entry["level"] != "WARN" || entry["msg"] != "report.delivery_failed" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if entry["diagnosisId"] != "d-1" || entry["attempt"] != float64(2) {
		t.Fatalf("missing fields: %v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key: %v", entry)
	}
}
