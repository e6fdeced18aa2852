// Package measures defines the canonical measure vocabulary shared by every
// tool adapter, plus in-process estimators for a subset of it.
package measures

import (
	"fmt"
	"sort"
	"strings"
)

// Measure identifies a tool-agnostic code quality metric.
type Measure string

const (
	CyclomaticComplexity Measure = "cyclomatic_complexity"
	NPathComplexity      Measure = "npath_complexity"
	LinesOfCode          Measure = "lines_of_code"
	BlankLines           Measure = "blank_lines"
	CommentLines         Measure = "comment_lines"
	CodeLines            Measure = "code_lines"
	HelpCoverage         Measure = "help_coverage"
	TodoCount            Measure = "todo_count"
	FixmeCount           Measure = "fixme_count"
	HackCount            Measure = "hack_count"
)

// vocabulary is the closed set of measures; order here is the canonical order.
var vocabulary = []Measure{
	CyclomaticComplexity,
	NPathComplexity,
	LinesOfCode,
	BlankLines,
	CommentLines,
	CodeLines,
	HelpCoverage,
	TodoCount,
	FixmeCount,
	HackCount,
}

var known = func() map[Measure]int {
	m := make(map[Measure]int, len(vocabulary))
	for i, v := range vocabulary {
		m[v] = i
	}
	return m
}()

// All returns every known measure in canonical order.
func All() []Measure {
	out := make([]Measure, len(vocabulary))
	copy(out, vocabulary)
	return out
}

// Valid reports whether m belongs to the vocabulary.
func (m Measure) Valid() bool {
	_, ok := known[m]
	return ok
}

func (m Measure) String() string { return string(m) }

// Parse converts a user-supplied name into a Measure. Matching ignores case
// and accepts dashes in place of underscores.
func Parse(name string) (Measure, error) {
	m := Measure(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_"))
	if !m.Valid() {
		return "", fmt.Errorf("unknown measure %q", name)
	}
	return m, nil
}

// Sort orders ms in canonical vocabulary order. Unknown measures sort last.
func Sort(ms []Measure) {
	sort.SliceStable(ms, func(i, j int) bool {
		return rank(ms[i]) < rank(ms[j])
	})
}

func rank(m Measure) int {
	if r, ok := known[m]; ok {
		return r
	}
	return len(vocabulary)
}

// Calculator computes measures for a single file.
type Calculator interface {
	// Calculate returns measure values for the given file content and language.
	Calculate(filePath string, content []byte, language string) (map[Measure]float64, error)
}

// CompositeCalculator runs multiple calculators and merges their results.
type CompositeCalculator struct {
	calculators []Calculator
}

// NewCompositeCalculator creates a CompositeCalculator with all built-in calculators.
func NewCompositeCalculator() *CompositeCalculator {
	return &CompositeCalculator{
		calculators: []Calculator{
			&CyclomaticComplexityCalculator{},
			&LinesOfCodeCalculator{},
			&TodoCounter{},
		},
	}
}

// Calculate runs all calculators and merges results into a single map.
func (c *CompositeCalculator) Calculate(filePath string, content []byte, language string) (map[Measure]float64, error) {
	result := make(map[Measure]float64)
	for _, calc := range c.calculators {
		m, err := calc.Calculate(filePath, content, language)
		if err != nil {
			return nil, err
		}
		for k, v := range m {
			result[k] = v
		}
	}
	return result, nil
}

// Estimated returns the measures the built-in calculators produce, in canonical order.
func Estimated() []Measure {
	return []Measure{
		CyclomaticComplexity,
		LinesOfCode,
		BlankLines,
		CommentLines,
		CodeLines,
		TodoCount,
		FixmeCount,
		HackCount,
	}
}
