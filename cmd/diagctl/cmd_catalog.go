package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newCatalogCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the questionnaire",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.catalog()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(c.Public())
			}
			for _, p := range c.Pillars {
				fmt.Fprintf(out, "%d. %s\n", p.ID, p.Name)
				for _, q := range c.QuestionsFor(p.ID) {
					fmt.Fprintf(out, "  Q%d %s\n", q.ID, q.Prompt)
					for _, o := range q.Options {
						fmt.Fprintf(out, "     %d) %s\n", o.Value, o.Label)
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the client-facing catalog as JSON")
	return cmd
}
