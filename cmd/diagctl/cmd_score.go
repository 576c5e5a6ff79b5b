package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newScoreCmd(opts *rootOptions) *cobra.Command {
	var flags struct {
		answers string
		format  string
	}
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score an answer set and print the diagnosis",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, result, err := loadAndScore(cmd, opts, flags.answers)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch flags.format {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			case "text":
				_, err := fmt.Fprint(out, c.Summary(result))
				return err
			default:
				return fmt.Errorf("unknown format %q (want json or text)", flags.format)
			}
		},
	}
	f := cmd.Flags()
	f.StringVarP(&flags.answers, "answers", "a", "-", "Answers JSON file, - for stdin")
	f.StringVarP(&flags.format, "format", "f", "json", "Output format: json or text")
	return cmd
}
