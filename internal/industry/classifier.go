package industry

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yolwise/leadscore-cli/internal/turkish"
)

// Match is the outcome of a classification. Tag "other" with a neutral
// multiplier means no keyword in the table matched.
type Match struct {
	Tag        string
	Multiplier float64
	Confidence string
	Reasoning  string
}

// Explanation renders the match in the pipe-delimited form carried through
// scoring results and batch exports.
func (m Match) Explanation() string {
	return fmt.Sprintf("Industry: %s | Multiplier: ×%.2f | %s", m.Tag, m.Multiplier, m.Reasoning)
}

// Classifier matches company text against an industry table.
type Classifier struct {
	table []Industry
	keys  [][]string // keywords folded once at construction
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithTable replaces the built-in classification table.
func WithTable(table []Industry) Option {
	return func(c *Classifier) {
		if len(table) > 0 {
			c.table = table
		}
	}
}

// New builds a Classifier over the default table unless overridden.
func New(opts ...Option) *Classifier {
	c := &Classifier{table: DefaultTable()}
	for _, opt := range opts {
		opt(c)
	}
	c.keys = make([][]string, len(c.table))
	for i := range c.table {
		c.keys[i] = turkish.FoldAll(c.table[i].Keywords)
	}
	return c
}

// Table returns the active classification table.
func (c *Classifier) Table() []Industry {
	return c.table
}

// Classify resolves a free-text industry description to the first table row
// with any keyword contained in it. Matching is substring-based over folded
// text, so "Yenilenebilir Enerji" hits the renewables row before the
// utilities row gets a chance at "enerji".
func (c *Classifier) Classify(industryText string) Match {
	text := turkish.Fold(industryText)
	if text != "" {
		for i := range c.keys {
			for _, kw := range c.keys[i] {
				if strings.Contains(text, kw) {
					return c.match(i)
				}
			}
		}
	}
	return c.fallback()
}

// Detect scores every table row against the combined texts and returns the
// best match. Each contained keyword contributes its rune length, doubled
// for keywords longer than five runes, so specific terms outweigh generic
// ones. Ties keep the earlier (higher-multiplier) row.
func (c *Classifier) Detect(texts ...string) Match {
	parts := make([]string, 0, len(texts))
	for _, t := range texts {
		parts = append(parts, turkish.Fold(t))
	}
	combined := strings.Join(parts, " ")

	bestIdx := -1
	bestScore := 0
	for i := range c.keys {
		score := 0
		for _, kw := range c.keys[i] {
			if strings.Contains(combined, kw) {
				n := utf8.RuneCountInString(kw)
				if n > 5 {
					n *= 2
				}
				score += n
			}
		}
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return c.fallback()
	}
	return c.match(bestIdx)
}

func (c *Classifier) match(i int) Match {
	ind := c.table[i]
	return Match{Tag: ind.Tag, Multiplier: ind.Multiplier, Confidence: ind.Confidence, Reasoning: ind.Reasoning}
}

func (c *Classifier) fallback() Match {
	return Match{
		Tag:        "other",
		Multiplier: 1.0,
		Confidence: ConfidenceLow,
		Reasoning:  "no sector keywords matched, neutral baseline",
	}
}
