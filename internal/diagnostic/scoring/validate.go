package scoring

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidAnswer reports an answer value that is not an option of its question.
var ErrInvalidAnswer = errors.New("invalid answer")

// Validate checks that every answered catalog question carries one of its option
// values. Unanswered questions and unknown question ids are accepted; Score treats
// the former as the lowest option and ignores the latter.
func (c *Catalog) Validate(answers AnswerSet) error {
	ids := make([]int, 0, len(answers))
	for id := range answers {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		q, ok := c.question(id)
		if !ok {
			continue
		}
		if !q.hasOption(answers[id]) {
			return fmt.Errorf("%w: question %d value %d", ErrInvalidAnswer, id, answers[id])
		}
	}
	return nil
}

// Missing returns the catalog question ids absent from answers, ascending.
func (c *Catalog) Missing(answers AnswerSet) []int {
	var out []int
	for _, q := range c.Questions {
		if _, ok := answers[q.ID]; !ok {
			out = append(out, q.ID)
		}
	}
	return out
}

func (c *Catalog) question(id int) (Question, bool) {
	i := sort.Search(len(c.Questions), func(i int) bool { return c.Questions[i].ID >= id })
	if i < len(c.Questions) && c.Questions[i].ID == id {
		return c.Questions[i], true
	}
	return Question{}, false
}

func (q Question) hasOption(value int) bool {
	for _, o := range q.Options {
		if o.Value == value {
			return true
		}
	}
	return false
}
