package reports

import (
	"math"
	"sort"
	"strconv"
	"time"

	"tdm-diagnostic/internal/diagnostic/scoring"
	"tdm-diagnostic/internal/notify"
)

// ScoreRow is one pillar line of the score table.
type ScoreRow struct {
	Pillar  string
	Score   string
	Percent int
}

// GapRow is one of the highlighted gaps.
type GapRow struct {
	Rank int
	Name string
	Text string
}

// RecommendationRow is a recommendation with its display badge.
type RecommendationRow struct {
	Title       string
	Description string
	Pillar      string
	Badge       Badge
}

// Badge is the priority label and its colors.
type Badge struct {
	Label      string
	Background string
	Foreground string
}

var badges = map[scoring.Priority]Badge{
	scoring.PriorityHigh:   {Label: "ALTA", Background: "#fee2e2", Foreground: "#991b1b"},
	scoring.PriorityMedium: {Label: "MÉDIA", Background: "#fef3c7", Foreground: "#92400e"},
	scoring.PriorityLow:    {Label: "BAIXA", Background: "#dcfce7", Foreground: "#166534"},
}

// BadgeFor returns the display badge of a priority; unknown priorities render as low.
func BadgeFor(p scoring.Priority) Badge {
	if b, ok := badges[p]; ok {
		return b
	}
	return badges[scoring.PriorityLow]
}

// View is everything the report template needs.
type View struct {
	Email            string
	Company          string
	Date             string
	MaturityLevel    int
	LevelName        string
	LevelDescription string
	UserScore        string
	MarketAverage    string
	Percentile       int
	Scores           []ScoreRow
	Gaps             []GapRow
	Recommendations  []RecommendationRow
	// FollowUps holds the medium-priority advice of each recommended pillar.
	FollowUps        []RecommendationRow
}

// NewView resolves catalog names and formats numbers for a result.
func NewView(c *scoring.Catalog, r scoring.Result, email, company string, completedAt time.Time) View {
	v := View{
		Email:         email,
		Company:       company,
		Date:          notify.FormatDate(completedAt),
		MaturityLevel: r.MaturityLevel,
		UserScore:     oneDecimal(r.Benchmarking.UserScore),
		MarketAverage: oneDecimal(r.Benchmarking.MarketAverage),
		Percentile:    r.Benchmarking.Percentile,
	}
	if lvl, ok := c.Level(r.MaturityLevel); ok {
		v.LevelName = lvl.Name
		v.LevelDescription = lvl.Description
	}

	ids := make([]int, 0, len(r.Scores))
	for id := range r.Scores {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		score := r.Scores[id]
		v.Scores = append(v.Scores, ScoreRow{
			Pillar:  pillarName(c, id),
			Score:   oneDecimal(score),
			Percent: int(math.Round(score / 5 * 100)),
		})
	}

	for i, g := range r.Gaps {
		v.Gaps = append(v.Gaps, GapRow{Rank: i + 1, Name: g.Name, Text: g.Gap})
	}
	for _, rec := range r.Recommendations {
		v.Recommendations = append(v.Recommendations, RecommendationRow{
			Title:       rec.Title,
			Description: rec.Description,
			Pillar:      pillarName(c, rec.Pillar),
			Badge:       BadgeFor(rec.Priority),
		})
		if adv, ok := c.FollowUp(rec.Pillar); ok {
			v.FollowUps = append(v.FollowUps, RecommendationRow{
				Title:       adv.Title,
				Description: adv.Description,
				Pillar:      pillarName(c, rec.Pillar),
				Badge:       BadgeFor(adv.Priority),
			})
		}
	}
	return v
}

func pillarName(c *scoring.Catalog, id int) string {
	if p, ok := c.Pillar(id); ok {
		return p.Name
	}
	return "Pilar " + strconv.Itoa(id)
}

func oneDecimal(f float64) string {
	return strconv.FormatFloat(f, 'f', 1, 64)
}
