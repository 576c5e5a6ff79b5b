package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tdm-diagnostic/internal/reports"
)

func newInspectCmd() *cobra.Command {
	var showText bool
	cmd := &cobra.Command{
		Use:   "inspect <report.pdf>",
		Short: "Print page count and text of a generated PDF report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read pdf: %w", err)
			}
			pages, err := reports.CountPages(data)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "pages: %d\n", pages)
			if !showText {
				return nil
			}
			text, err := reports.ExtractText(data)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, text)
			return nil
		},
	}
	cmd.Flags().BoolVar(&showText, "text", false, "Also print the extracted text")
	return cmd
}
