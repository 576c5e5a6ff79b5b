package scoring

import (
	"encoding/json"
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func uniform(v int) AnswerSet {
	answers := AnswerSet{}
	for id := 1; id <= 10; id++ {
		answers[id] = v
	}
	return answers
}

func with(base AnswerSet, overrides map[int]int) AnswerSet {
	out := AnswerSet{}
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

func pillarsOf(recs []Recommendation) []int {
	out := make([]int, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Pillar)
	}
	return out
}

func gapPillars(gaps []Gap) []int {
	out := make([]int, 0, len(gaps))
	for _, g := range gaps {
		out = append(out, g.Pillar)
	}
	return out
}

func TestScoreUniformAnswers(t *testing.T) {
	for v := 1; v <= 5; v++ {
		res := Score(uniform(v))
		if res.MaturityLevel != v {
			t.Fatalf("v=%d: expected level %d, got %d", v, v, res.MaturityLevel)
		}
		if res.Benchmarking.UserScore != float64(v) {
			t.Fatalf("v=%d: expected overall %d, got %v", v, v, res.Benchmarking.UserScore)
		}
		if len(res.Scores) != 8 {
			t.Fatalf("v=%d: expected 8 pillar scores, got %d", v, len(res.Scores))
		}
		for id, s := range res.Scores {
			if s != float64(v) {
				t.Fatalf("v=%d: pillar %d scored %v", v, id, s)
			}
		}
	}
}

func TestScoreAllFives(t *testing.T) {
	res := Score(uniform(5))
	c := MustDefault()

	wantGaps := []Gap{
		{Pillar: 1, Name: "TDM Strategy & Policy", Gap: "Score atual: 5/5 - Oportunidade de melhoria identificada"},
		{Pillar: 2, Name: "TDM Planning & Demand Management", Gap: "Score atual: 5/5 - Oportunidade de melhoria identificada"},
		{Pillar: 3, Name: "Data Sourcing & Modeling", Gap: "Score atual: 5/5 - Oportunidade de melhoria identificada"},
	}
	if diff := cmp.Diff(wantGaps, res.Gaps); diff != "" {
		t.Fatalf("gaps mismatch (-want +got):\n%s", diff)
	}

	wantRecs := make([]Recommendation, 0, 5)
	for id := 1; id <= 5; id++ {
		a := c.Recommendations[id][0]
		wantRecs = append(wantRecs, Recommendation{Priority: PriorityHigh, Title: a.Title, Description: a.Description, Pillar: id})
	}
	if diff := cmp.Diff(wantRecs, res.Recommendations); diff != "" {
		t.Fatalf("recommendations mismatch (-want +got):\n%s", diff)
	}

	want := Benchmarking{UserScore: 5, MarketAverage: 2.8, Percentile: 100}
	if diff := cmp.Diff(want, res.Benchmarking); diff != "" {
		t.Fatalf("benchmarking mismatch (-want +got):\n%s", diff)
	}
}

func TestScoreAllOnes(t *testing.T) {
	res := Score(uniform(1))
	if res.MaturityLevel != 1 {
		t.Fatalf("expected level 1, got %d", res.MaturityLevel)
	}
	if res.Benchmarking.Percentile != 20 {
		t.Fatalf("expected percentile 20, got %d", res.Benchmarking.Percentile)
	}
	if diff := cmp.Diff([]int{1, 2, 3, 4, 5}, pillarsOf(res.Recommendations)); diff != "" {
		t.Fatalf("recommendation pillars (-want +got):\n%s", diff)
	}
}

func TestScoreGapsLowestFirst(t *testing.T) {
	answers := with(uniform(5), map[int]int{
		6: 1,
		1: 1, 9: 2,
		8: 2, 10: 2,
	})
	res := Score(answers)

	if diff := cmp.Diff([]int{6, 1, 8}, gapPillars(res.Gaps)); diff != "" {
		t.Fatalf("gap pillars (-want +got):\n%s", diff)
	}
	if res.Gaps[1].Gap != "Score atual: 1.5/5 - Oportunidade de melhoria identificada" {
		t.Fatalf("unexpected gap text %q", res.Gaps[1].Gap)
	}
	if res.Benchmarking.UserScore != 3.7 || res.MaturityLevel != 4 || res.Benchmarking.Percentile != 74 {
		t.Fatalf("unexpected overall: %+v level=%d", res.Benchmarking, res.MaturityLevel)
	}
	// No other pillar is below 3, so unused pillars fill by id.
	if diff := cmp.Diff([]int{6, 1, 8, 2, 3}, pillarsOf(res.Recommendations)); diff != "" {
		t.Fatalf("recommendation pillars (-want +got):\n%s", diff)
	}
}

// Medium entries of pillars already recommended are skipped, so the list is
// topped up with high entries of unused pillars instead.
func TestScoreNeverRepeatsPillarForMediumEntries(t *testing.T) {
	res := Score(with(uniform(4), map[int]int{2: 1, 3: 2, 4: 2}))

	if diff := cmp.Diff([]int{2, 3, 4}, gapPillars(res.Gaps)); diff != "" {
		t.Fatalf("gap pillars (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{2, 3, 4, 1, 5}, pillarsOf(res.Recommendations)); diff != "" {
		t.Fatalf("recommendation pillars (-want +got):\n%s", diff)
	}
	for _, r := range res.Recommendations {
		if r.Priority != PriorityHigh {
			t.Fatalf("pillar %d got a %q entry, want high only", r.Pillar, r.Priority)
		}
	}
}

func TestScoreLowPillarsOrderedByScore(t *testing.T) {
	answers := with(uniform(5), map[int]int{
		2: 1, 3: 1, 5: 1,
		7: 2,
		1: 2, 9: 3,
	})
	res := Score(answers)

	if diff := cmp.Diff([]int{2, 3, 5}, gapPillars(res.Gaps)); diff != "" {
		t.Fatalf("gap pillars (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{2, 3, 5, 7, 1}, pillarsOf(res.Recommendations)); diff != "" {
		t.Fatalf("recommendation pillars (-want +got):\n%s", diff)
	}
	for _, r := range res.Recommendations {
		if r.Priority != PriorityHigh {
			t.Fatalf("expected high priority, got %q for pillar %d", r.Priority, r.Pillar)
		}
	}
}

func TestScoreMissingAnswerCountsAsOne(t *testing.T) {
	answers := uniform(4)
	delete(answers, 7)
	res := Score(answers)
	if res.Scores[7] != 1 {
		t.Fatalf("expected pillar 7 score 1, got %v", res.Scores[7])
	}
	if res.Gaps[0].Pillar != 7 {
		t.Fatalf("expected pillar 7 as first gap, got %d", res.Gaps[0].Pillar)
	}
}

func TestScoreOutOfRangeAnswerCountsAsOne(t *testing.T) {
	res := Score(with(uniform(4), map[int]int{3: 9, 4: 0, 5: -2}))
	for _, id := range []int{3, 4, 5} {
		if res.Scores[id] != 1 {
			t.Fatalf("expected pillar %d score 1, got %v", id, res.Scores[id])
		}
	}
}

func TestScoreIgnoresUnknownQuestions(t *testing.T) {
	base := Score(uniform(3))
	extra := Score(with(uniform(3), map[int]int{11: 1, 99: 5, -1: 2}))
	if diff := cmp.Diff(base, extra); diff != "" {
		t.Fatalf("unknown question ids changed the result (-base +extra):\n%s", diff)
	}
}

func TestScoreRoundsHalfUp(t *testing.T) {
	cases := []struct {
		name    string
		answers AnswerSet
		pillar1 float64
		overall float64
		level   int
	}{
		{
			name:    "pillar_average_half",
			answers: with(uniform(3), map[int]int{1: 2, 9: 3}),
			pillar1: 2.5,
			overall: 2.9,
			level:   3,
		},
		{
			name:    "overall_half_rounds_up",
			answers: with(uniform(3), map[int]int{1: 4, 9: 4, 8: 4, 10: 4}),
			pillar1: 4,
			overall: 3.3,
			level:   4,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Score(tc.answers)
			if res.Scores[1] != tc.pillar1 {
				t.Fatalf("expected pillar 1 score %v, got %v", tc.pillar1, res.Scores[1])
			}
			if res.Benchmarking.UserScore != tc.overall {
				t.Fatalf("expected overall %v, got %v", tc.overall, res.Benchmarking.UserScore)
			}
			if res.MaturityLevel != tc.level {
				t.Fatalf("expected level %d, got %d", tc.level, res.MaturityLevel)
			}
		})
	}
}

func TestRoundTenths(t *testing.T) {
	cases := []struct {
		num, den, want int
	}{
		{num: 25, den: 10, want: 3},
		{num: 24, den: 10, want: 2},
		{num: 70, den: 3, want: 23},
		{num: 260, den: 8, want: 33},
		{num: 5, den: 0, want: 0},
	}
	for _, tc := range cases {
		if got := roundTenths(tc.num, tc.den); got != tc.want {
			t.Fatalf("roundTenths(%d, %d) = %d, want %d", tc.num, tc.den, got, tc.want)
		}
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	answers := with(uniform(2), map[int]int{3: 4, 6: 5, 10: 1})
	first, err := json.Marshal(Score(answers))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	second, err := json.Marshal(Score(answers))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(first) != string(second) {
		t.Fatalf("expected identical output:\n%s\n%s", first, second)
	}
}

func TestScoreInvariants(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for i := 0; i < 2000; i++ {
		answers := AnswerSet{}
		for id := 1; id <= 10; id++ {
			if rng.IntN(12) == 0 {
				continue
			}
			answers[id] = 1 + rng.IntN(5)
		}
		res := Score(answers)

		if len(res.Scores) != 8 {
			t.Fatalf("case %d: expected 8 scores, got %d", i, len(res.Scores))
		}
		for id, s := range res.Scores {
			if s < 1 || s > 5 {
				t.Fatalf("case %d: pillar %d score %v out of range", i, id, s)
			}
		}
		if res.MaturityLevel < 1 || res.MaturityLevel > 5 {
			t.Fatalf("case %d: level %d out of range", i, res.MaturityLevel)
		}
		if u := res.Benchmarking.UserScore; u < 1 || u > 5 {
			t.Fatalf("case %d: overall %v out of range", i, u)
		}

		type entry struct {
			id    int
			score float64
		}
		all := make([]entry, 0, 8)
		for id := 1; id <= 8; id++ {
			all = append(all, entry{id: id, score: res.Scores[id]})
		}
		sort.SliceStable(all, func(a, b int) bool { return all[a].score < all[b].score })
		if len(res.Gaps) != 3 {
			t.Fatalf("case %d: expected 3 gaps, got %d", i, len(res.Gaps))
		}
		for k, g := range res.Gaps {
			if g.Pillar != all[k].id {
				t.Fatalf("case %d: gap %d is pillar %d, want %d (%v)", i, k, g.Pillar, all[k].id, res.Scores)
			}
		}

		if len(res.Recommendations) != 5 {
			t.Fatalf("case %d: expected 5 recommendations, got %d", i, len(res.Recommendations))
		}
		seen := map[int]bool{}
		for k, r := range res.Recommendations {
			if seen[r.Pillar] {
				t.Fatalf("case %d: pillar %d recommended twice", i, r.Pillar)
			}
			seen[r.Pillar] = true
			if k < 3 && r.Pillar != res.Gaps[k].Pillar {
				t.Fatalf("case %d: recommendation %d should cover gap pillar %d, got %d", i, k, res.Gaps[k].Pillar, r.Pillar)
			}
		}
	}
}

func TestScoreJSONShape(t *testing.T) {
	payload, err := json.Marshal(Score(uniform(3)))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"maturityLevel", "scores", "gaps", "recommendations", "benchmarking"} {
		if _, ok := decoded[key]; !ok {
			t.Fatalf("missing key %q in %s", key, payload)
		}
	}
	scores := decoded["scores"].(map[string]any)
	if _, ok := scores["8"]; !ok {
		t.Fatalf("expected scores keyed by pillar id, got %v", scores)
	}
}
