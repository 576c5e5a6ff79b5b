package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tdm-diagnostic/internal/diagnostic/scoring"
	"tdm-diagnostic/internal/shared/auth"
)

const allThrees = `{"1":3,"2":3,"3":3,"4":3,"5":3,"6":3,"7":3,"8":3,"9":3,"10":3}`

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestScoreJSONFromStdin(t *testing.T) {
	out, _, err := run(t, allThrees, "score")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	var res scoring.Result
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if res.MaturityLevel != 3 || res.Benchmarking.UserScore != 3 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestScoreTextFromWrappedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answers.json")
	if err := os.WriteFile(path, []byte(`{"answers":`+allThrees+`}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	out, _, err := run(t, "", "score", "--answers", path, "--format", "text")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if !strings.Contains(out, "Seu Nível de Maturidade TDM: 3/5 (Definido)") {
		t.Fatalf("unexpected summary:\n%s", out)
	}
}

func TestScoreWarnsAboutMissingAnswers(t *testing.T) {
	_, stderr, err := run(t, `{"1":4}`, "score")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if !strings.Contains(stderr, "unanswered questions") {
		t.Fatalf("expected warning, got %q", stderr)
	}
}

func TestScoreRejectsInvalidAnswers(t *testing.T) {
	_, _, err := run(t, `{"1":9}`, "score")
	if !errors.Is(err, scoring.ErrInvalidAnswer) {
		t.Fatalf("expected ErrInvalidAnswer, got %v", err)
	}
	if _, _, err := run(t, allThrees, "score", "--format", "xml"); err == nil {
		t.Fatalf("expected unknown format error")
	}
}

func TestRenderHTMLToStdout(t *testing.T) {
	out, _, err := run(t, allThrees, "render", "--company", "ACME", "--email", "ana@example.com")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{"Empresa: ACME", "Definido"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in report", want)
		}
	}
}

func TestRenderHTMLToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.html")
	if _, _, err := run(t, allThrees, "render", "-o", path); err != nil {
		t.Fatalf("render: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Contains(data, []byte("<html")) {
		t.Fatalf("expected html document")
	}
}

func TestCatalogText(t *testing.T) {
	out, _, err := run(t, "", "catalog")
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if !strings.Contains(out, "1. TDM Strategy & Policy") || !strings.Contains(out, "  Q9 ") {
		t.Fatalf("unexpected catalog output:\n%s", out)
	}
}

func TestCustomCatalogFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	yaml := `
pillars: [{ id: 1, name: Only }]
levels: [{ level: 1, name: L1 }]
questions:
  - { id: 1, pillar: 1, question: q1, options: [{ value: 1, label: a }, { value: 2, label: b }] }
recommendations:
  1:
    - { priority: high, title: a, description: a }
    - { priority: medium, title: b, description: b }
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	out, _, err := run(t, "", "--catalog", path, "catalog", "--json")
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	var pub scoring.PublicCatalog
	if err := json.Unmarshal([]byte(out), &pub); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(pub.Pillars) != 1 || pub.Pillars[0].Name != "Only" {
		t.Fatalf("unexpected catalog: %+v", pub)
	}
}

func TestInspectMissingFile(t *testing.T) {
	if _, _, err := run(t, "", "inspect", filepath.Join(t.TempDir(), "nope.pdf")); err == nil {
		t.Fatalf("expected read error")
	}
}

func TestAdminTokenVerifies(t *testing.T) {
	out, _, err := run(t, "", "admin-token", "--secret", "s3cret", "--subject", "ops@example.com")
	if err != nil {
		t.Fatalf("admin-token: %v", err)
	}
	v, err := auth.NewVerifier("s3cret")
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}
	claims, err := v.Verify(strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "ops@example.com" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}
}

func TestAdminTokenRequiresSecret(t *testing.T) {
	t.Setenv("ADMIN_TOKEN_SECRET", "")
	if _, _, err := run(t, "", "admin-token", "--subject", "ops"); err == nil {
		t.Fatalf("expected missing secret error")
	}
}
