package scoring

import (
	"math"
	"sort"
	"strconv"
)

const (
	// MarketAverage is the reference overall score shown next to the user's score.
	MarketAverage = 2.8

	gapCount            = 3
	recommendationCount = 5
	lowScoreTenths      = 30
)

// AnswerSet maps a question id to the chosen option value.
type AnswerSet map[int]int

// Gap is one of the lowest scoring pillars.
type Gap struct {
	Pillar int    `json:"pillar"`
	Name   string `json:"name"`
	Gap    string `json:"gap"`
}

// Recommendation is a catalog advice attached to a pillar.
type Recommendation struct {
	Priority    Priority `json:"priority"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Pillar      int      `json:"pillar"`
}

// Benchmarking compares the overall score with the market reference.
type Benchmarking struct {
	UserScore     float64 `json:"userScore"`
	MarketAverage float64 `json:"marketAverage"`
	Percentile    int     `json:"percentile"`
}

// Result is the outcome of scoring one answer set.
type Result struct {
	MaturityLevel   int              `json:"maturityLevel"`
	Scores          map[int]float64  `json:"scores"`
	Gaps            []Gap            `json:"gaps"`
	Recommendations []Recommendation `json:"recommendations"`
	Benchmarking    Benchmarking     `json:"benchmarking"`
}

// Engine scores answer sets against a catalog. It holds no mutable state.
type Engine struct {
	catalog *Catalog
}

// NewEngine returns an engine over the given catalog; nil means the embedded one.
func NewEngine(c *Catalog) *Engine {
	if c == nil {
		c = MustDefault()
	}
	return &Engine{catalog: c}
}

// Catalog returns the reference data used by the engine.
func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// Score scores answers with the embedded catalog.
func Score(answers AnswerSet) Result {
	return NewEngine(nil).Score(answers)
}

type pillarScore struct {
	pillar Pillar
	tenths int
}

// Score computes the maturity diagnosis. Missing or out-of-range answers count as 1.
// Question ids not in the catalog are ignored.
func (e *Engine) Score(answers AnswerSet) Result {
	pillars := e.pillarScores(answers)

	scores := make(map[int]float64, len(pillars))
	total := 0
	for _, ps := range pillars {
		scores[ps.pillar.ID] = fromTenths(ps.tenths)
		total += ps.tenths
	}
	overallTenths := roundTenths(total, len(pillars))
	overall := fromTenths(overallTenths)

	ranked := append([]pillarScore(nil), pillars...)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].tenths < ranked[j].tenths })

	gaps := make([]Gap, 0, gapCount)
	for _, ps := range ranked[:min(gapCount, len(ranked))] {
		gaps = append(gaps, Gap{
			Pillar: ps.pillar.ID,
			Name:   ps.pillar.Name,
			Gap:    "Score atual: " + formatScore(fromTenths(ps.tenths)) + "/5 - Oportunidade de melhoria identificada",
		})
	}

	return Result{
		MaturityLevel:   int(math.Ceil(overall)),
		Scores:          scores,
		Gaps:            gaps,
		Recommendations: e.recommend(ranked, gaps),
		Benchmarking: Benchmarking{
			UserScore:     overall,
			MarketAverage: MarketAverage,
			Percentile:    max(0, int(math.Round(overall/5*100))),
		},
	}
}

// pillarScores returns the rounded per-pillar mean in tenths, in pillar id order.
func (e *Engine) pillarScores(answers AnswerSet) []pillarScore {
	out := make([]pillarScore, 0, len(e.catalog.Pillars))
	for _, p := range e.catalog.Pillars {
		questions := e.catalog.QuestionsFor(p.ID)
		if len(questions) == 0 {
			continue
		}
		sum := 0
		for _, q := range questions {
			sum += answerValue(answers, q.ID)
		}
		out = append(out, pillarScore{pillar: p, tenths: roundTenths(10*sum, len(questions))})
	}
	return out
}

func answerValue(answers AnswerSet, questionID int) int {
	v, ok := answers[questionID]
	if !ok || v < minOptionValue || v > maxOptionValue {
		return minOptionValue
	}
	return v
}

// recommend picks exactly recommendationCount advices, never two for the same pillar.
// Gap pillars come first, then other pillars below the low-score threshold, then
// the remaining pillars by id.
func (e *Engine) recommend(ranked []pillarScore, gaps []Gap) []Recommendation {
	out := make([]Recommendation, 0, recommendationCount)
	used := make(map[int]bool, len(ranked))
	add := func(pillarID int) {
		if len(out) >= recommendationCount || used[pillarID] {
			return
		}
		advice := e.catalog.Recommendations[pillarID]
		if len(advice) == 0 {
			return
		}
		used[pillarID] = true
		out = append(out, Recommendation{
			Priority:    advice[0].Priority,
			Title:       advice[0].Title,
			Description: advice[0].Description,
			Pillar:      pillarID,
		})
	}

	for _, g := range gaps {
		add(g.Pillar)
	}
	for _, ps := range ranked {
		if ps.tenths < lowScoreTenths {
			add(ps.pillar.ID)
		}
	}
	// Pillars are never repeated, so a used pillar's medium entry is never
	// picked here; reports list those as follow-ups.
	for _, p := range e.catalog.Pillars {
		add(p.ID)
	}
	return out
}

// roundTenths divides two non-negative integers rounding half up.
func roundTenths(num, den int) int {
	if den <= 0 {
		return 0
	}
	return (2*num + den) / (2 * den)
}

func fromTenths(t int) float64 {
	return float64(t) / 10
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
