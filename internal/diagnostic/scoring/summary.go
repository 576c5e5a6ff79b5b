package scoring

import (
	"fmt"
	"sort"
	"strings"
)

// Summary renders a plain-text digest of a result for emails.
func (c *Catalog) Summary(r Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Seu Nível de Maturidade TDM: %d/5 (%s)\n\n", r.MaturityLevel, c.LevelName(r.MaturityLevel))

	b.WriteString("Pontuação por Pilar:\n")
	ids := make([]int, 0, len(r.Scores))
	for id := range r.Scores {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		name := ""
		if p, ok := c.Pillar(id); ok {
			name = p.Name
		}
		fmt.Fprintf(&b, "- %s: %s/5\n", name, formatScore(r.Scores[id]))
	}

	b.WriteString("\nPrincipais Gaps:\n")
	for _, g := range r.Gaps {
		fmt.Fprintf(&b, "- %s: %s\n", g.Name, g.Gap)
	}

	b.WriteString("\nRecomendações Prioritárias:\n")
	for _, rec := range r.Recommendations[:min(3, len(r.Recommendations))] {
		fmt.Fprintf(&b, "- [%s] %s: %s\n", strings.ToUpper(string(rec.Priority)), rec.Title, rec.Description)
	}

	b.WriteString("\nBenchmarking:\n")
	fmt.Fprintf(&b, "- Seu Score: %s/5\n", formatScore(r.Benchmarking.UserScore))
	fmt.Fprintf(&b, "- Média de Mercado: %s/5\n", formatScore(r.Benchmarking.MarketAverage))
	fmt.Fprintf(&b, "- Percentil: %d%%\n", r.Benchmarking.Percentile)
	return b.String()
}
