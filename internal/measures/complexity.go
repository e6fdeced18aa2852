package measures

import (
	"regexp"
	"strings"
)

// CyclomaticComplexityCalculator estimates cyclomatic complexity by counting
// branch tokens. The baseline complexity is 1; each branch token adds 1.
// It is an estimate for languages no external analyzer covers, not a
// replacement for a parser-based tool.
type CyclomaticComplexityCalculator struct{}

// branchTokens lists decision points per language. Word tokens are matched on
// word boundaries, operator tokens literally.
var branchTokens = map[string][]string{
	"go":         {"if", "else", "case", "for", "range", "&&", "||", "go", "select"},
	"python":     {"if", "elif", "else", "for", "while", "except", "and", "or", "with"},
	"typescript": {"if", "else", "case", "for", "while", "do", "catch", "&&", "||", "??"},
	"java":       {"if", "else", "case", "for", "while", "do", "catch", "&&", "||"},
	"c":          {"if", "else", "case", "for", "while", "do", "&&", "||", "?"},
	"matlab":     {"if", "elseif", "else", "case", "for", "parfor", "while", "catch", "&&", "||"},
}

var branchPatterns = map[string][]*regexp.Regexp{}

func init() {
	branchTokens["javascript"] = branchTokens["typescript"]
	branchTokens["c++"] = branchTokens["c"]

	for lang, tokens := range branchTokens {
		patterns := make([]*regexp.Regexp, 0, len(tokens))
		for _, tok := range tokens {
			if isWord(tok) {
				patterns = append(patterns, regexp.MustCompile(`\b`+tok+`\b`))
			} else {
				patterns = append(patterns, regexp.MustCompile(regexp.QuoteMeta(tok)))
			}
		}
		branchPatterns[lang] = patterns
	}
}

func isWord(tok string) bool {
	for _, r := range tok {
		if !(r >= 'a' && r <= 'z') {
			return false
		}
	}
	return true
}

func (c *CyclomaticComplexityCalculator) Calculate(_ string, content []byte, language string) (map[Measure]float64, error) {
	patterns, ok := branchPatterns[strings.ToLower(language)]
	if !ok {
		// Unknown languages get the baseline.
		return map[Measure]float64{CyclomaticComplexity: 1}, nil
	}

	complexity := 1
	text := string(content)
	for _, p := range patterns {
		complexity += len(p.FindAllStringIndex(text, -1))
	}

	return map[Measure]float64{CyclomaticComplexity: float64(complexity)}, nil
}
