package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"tdm-diagnostic/internal/diagnostic/scoring"
)

// version is set at build time via -ldflags.
var version = "dev"

type rootOptions struct {
	catalogPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "diagctl",
		Short: "Score TDM maturity questionnaires and render reports offline",
		Long: "diagctl runs the diagnostic scoring engine outside the API:\n" +
			"score answer sets, render the report and inspect generated PDFs.",
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		Version: version,
	}
	root.PersistentFlags().StringVar(&opts.catalogPath, "catalog", "", "Questionnaire catalog YAML (default: embedded express catalog)")

	root.AddCommand(
		newScoreCmd(opts),
		newRenderCmd(opts),
		newCatalogCmd(opts),
		newInspectCmd(),
		newAdminTokenCmd(),
	)
	return root
}

func (o *rootOptions) catalog() (*scoring.Catalog, error) {
	if o.catalogPath == "" {
		return scoring.MustDefault(), nil
	}
	f, err := os.Open(o.catalogPath)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return scoring.Load(f)
}

// readAnswers accepts either {"answers": {...}} or a bare {"<id>": value} object.
// Path "-" reads from stdin.
func readAnswers(cmd *cobra.Command, path string) (scoring.AnswerSet, error) {
	var r io.Reader
	if path == "" || path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open answers: %w", err)
		}
		defer f.Close()
		r = f
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read answers: %w", err)
	}

	var wrapped struct {
		Answers scoring.AnswerSet `json:"answers"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Answers != nil {
		return wrapped.Answers, nil
	}
	var answers scoring.AnswerSet
	if err := json.Unmarshal(raw, &answers); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	return answers, nil
}

func loadAndScore(cmd *cobra.Command, opts *rootOptions, answersPath string) (*scoring.Catalog, scoring.Result, error) {
	c, err := opts.catalog()
	if err != nil {
		return nil, scoring.Result{}, err
	}
	answers, err := readAnswers(cmd, answersPath)
	if err != nil {
		return nil, scoring.Result{}, err
	}
	if err := c.Validate(answers); err != nil {
		return nil, scoring.Result{}, err
	}
	if missing := c.Missing(answers); len(missing) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: unanswered questions %v count as 1\n", missing)
	}
	return c, scoring.NewEngine(c).Score(answers), nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
