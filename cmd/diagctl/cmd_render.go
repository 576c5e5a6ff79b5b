package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tdm-diagnostic/internal/reports"
)

func newRenderCmd(opts *rootOptions) *cobra.Command {
	var flags struct {
		answers string
		out     string
		email   string
		company string
		chrome  string
		timeout time.Duration
	}
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the report of an answer set to HTML or PDF",
		Long:  "Render writes the report page. An --out path ending in .pdf prints it through headless Chrome.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, result, err := loadAndScore(cmd, opts, flags.answers)
			if err != nil {
				return err
			}
			html, err := reports.RenderHTML(reports.NewView(c, result, flags.email, flags.company, time.Now()))
			if err != nil {
				return fmt.Errorf("render html: %w", err)
			}

			body := html
			if strings.HasSuffix(strings.ToLower(flags.out), ".pdf") {
				renderer := &reports.ChromeRenderer{ExecPath: flags.chrome, Timeout: flags.timeout}
				body, err = renderer.RenderPDF(cmd.Context(), html)
				if err != nil {
					return err
				}
			}

			if flags.out == "" || flags.out == "-" {
				_, err = cmd.OutOrStdout().Write(body)
				return err
			}
			if err := os.WriteFile(flags.out, body, 0o644); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d bytes)\n", flags.out, len(body))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&flags.answers, "answers", "a", "-", "Answers JSON file, - for stdin")
	f.StringVarP(&flags.out, "out", "o", "-", "Output path (.html or .pdf), - for stdout")
	f.StringVar(&flags.email, "email", "", "Lead email shown on the report")
	f.StringVar(&flags.company, "company", "", "Company shown on the report")
	f.StringVar(&flags.chrome, "chrome", "", "Chrome executable for PDF output")
	f.DurationVar(&flags.timeout, "timeout", 45*time.Second, "PDF render timeout")
	return cmd
}
