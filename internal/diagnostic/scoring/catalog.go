package scoring

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Priority ranks a recommendation.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

const (
	minOptionValue = 1
	maxOptionValue = 5
)

// ErrInvalidCatalog is returned when catalog data violates the questionnaire shape.
var ErrInvalidCatalog = errors.New("invalid catalog")

// Pillar is one of the assessed dimensions.
type Pillar struct {
	ID          int    `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Icon        string `yaml:"icon" json:"icon,omitempty"`
	Details     string `yaml:"details" json:"details,omitempty"`
}

// Option is a selectable answer for a question.
type Option struct {
	Value int    `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
}

// Question belongs to exactly one pillar.
type Question struct {
	ID      int      `yaml:"id" json:"id"`
	Pillar  int      `yaml:"pillar" json:"pillar"`
	Prompt  string   `yaml:"question" json:"question"`
	Options []Option `yaml:"options" json:"options"`
}

// Level names a maturity level.
type Level struct {
	Level       int    `yaml:"level" json:"level"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
}

// Advice is a catalog recommendation before it is attached to a pillar.
type Advice struct {
	Priority    Priority `yaml:"priority" json:"priority"`
	Title       string   `yaml:"title" json:"title"`
	Description string   `yaml:"description" json:"description"`
}

// Catalog holds the immutable questionnaire reference data.
type Catalog struct {
	Pillars         []Pillar         `yaml:"pillars"`
	Levels          []Level          `yaml:"levels"`
	Questions       []Question       `yaml:"questions"`
	Recommendations map[int][]Advice `yaml:"recommendations"`

	pillarByID map[int]Pillar
	byPillar   map[int][]Question
}

// Load parses and validates a YAML catalog.
func Load(r io.Reader) (*Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.index(); err != nil {
		return nil, err
	}
	return &c, nil
}

var defaultCatalog = sync.OnceValue(func() *Catalog {
	c, err := Load(bytes.NewReader(defaultCatalogYAML))
	if err != nil {
		panic(fmt.Sprintf("scoring: embedded catalog: %v", err))
	}
	return c
})

// MustDefault returns the embedded express questionnaire.
func MustDefault() *Catalog {
	return defaultCatalog()
}

func (c *Catalog) index() error {
	if len(c.Pillars) == 0 {
		return fmt.Errorf("%w: no pillars", ErrInvalidCatalog)
	}
	sort.SliceStable(c.Pillars, func(i, j int) bool { return c.Pillars[i].ID < c.Pillars[j].ID })
	sort.SliceStable(c.Questions, func(i, j int) bool { return c.Questions[i].ID < c.Questions[j].ID })

	c.pillarByID = make(map[int]Pillar, len(c.Pillars))
	for _, p := range c.Pillars {
		if _, dup := c.pillarByID[p.ID]; dup {
			return fmt.Errorf("%w: duplicate pillar %d", ErrInvalidCatalog, p.ID)
		}
		c.pillarByID[p.ID] = p
	}

	c.byPillar = make(map[int][]Question, len(c.Pillars))
	seen := make(map[int]bool, len(c.Questions))
	for _, q := range c.Questions {
		if seen[q.ID] {
			return fmt.Errorf("%w: duplicate question %d", ErrInvalidCatalog, q.ID)
		}
		seen[q.ID] = true
		if _, ok := c.pillarByID[q.Pillar]; !ok {
			return fmt.Errorf("%w: question %d references unknown pillar %d", ErrInvalidCatalog, q.ID, q.Pillar)
		}
		if len(q.Options) == 0 {
			return fmt.Errorf("%w: question %d has no options", ErrInvalidCatalog, q.ID)
		}
		for _, o := range q.Options {
			if o.Value < minOptionValue || o.Value > maxOptionValue {
				return fmt.Errorf("%w: question %d option value %d out of range", ErrInvalidCatalog, q.ID, o.Value)
			}
		}
		c.byPillar[q.Pillar] = append(c.byPillar[q.Pillar], q)
	}

	for _, p := range c.Pillars {
		if len(c.byPillar[p.ID]) == 0 {
			return fmt.Errorf("%w: pillar %d has no questions", ErrInvalidCatalog, p.ID)
		}
		advice := c.Recommendations[p.ID]
		if len(advice) < 2 || advice[0].Priority != PriorityHigh || advice[1].Priority != PriorityMedium {
			return fmt.Errorf("%w: pillar %d needs a high and a medium recommendation", ErrInvalidCatalog, p.ID)
		}
	}
	return nil
}

// Pillar looks up a pillar by id.
func (c *Catalog) Pillar(id int) (Pillar, bool) {
	p, ok := c.pillarByID[id]
	return p, ok
}

// QuestionsFor returns the questions of a pillar in id order.
func (c *Catalog) QuestionsFor(pillarID int) []Question {
	return c.byPillar[pillarID]
}

// LevelName returns the display name of a maturity level, or "" when unknown.
func (c *Catalog) LevelName(level int) string {
	for _, l := range c.Levels {
		if l.Level == level {
			return l.Name
		}
	}
	return ""
}

// Level returns the maturity level entry.
func (c *Catalog) Level(level int) (Level, bool) {
	for _, l := range c.Levels {
		if l.Level == level {
			return l, true
		}
	}
	return Level{}, false
}

// FollowUp returns the medium-priority advice for a pillar.
func (c *Catalog) FollowUp(pillarID int) (Advice, bool) {
	advice := c.Recommendations[pillarID]
	if len(advice) < 2 {
		return Advice{}, false
	}
	return advice[1], true
}

// PublicCatalog is the questionnaire shape served to clients.
type PublicCatalog struct {
	Pillars   []Pillar   `json:"pillars"`
	Levels    []Level    `json:"levels"`
	Questions []Question `json:"questions"`
}

// Public returns the client-facing part of the catalog.
func (c *Catalog) Public() PublicCatalog {
	return PublicCatalog{
		Pillars:   c.Pillars,
		Levels:    c.Levels,
		Questions: c.Questions,
	}
}
