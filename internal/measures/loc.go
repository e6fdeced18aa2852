package measures

import (
	"strings"
)

// LinesOfCodeCalculator counts total lines, blank lines, comment lines, and code lines.
type LinesOfCodeCalculator struct{}

// commentSyntax describes how a language marks comments.
type commentSyntax struct {
	line       []string
	blockOpen  []string
	blockClose []string
	// exactBlock means block markers must stand alone on their line (MATLAB %{ %}).
	exactBlock bool
}

var (
	cStyle = commentSyntax{line: []string{"//"}, blockOpen: []string{"/*"}, blockClose: []string{"*/"}}

	commentSyntaxes = map[string]commentSyntax{
		"go":         cStyle,
		"java":       cStyle,
		"typescript": cStyle,
		"javascript": cStyle,
		"c":          cStyle,
		"c++":        cStyle,
		"python": {
			line:       []string{"#"},
			blockOpen:  []string{`"""`, "'''"},
			blockClose: []string{`"""`, "'''"},
		},
		"r": {line: []string{"#"}},
		"matlab": {
			line:       []string{"%"},
			blockOpen:  []string{"%{"},
			blockClose: []string{"%}"},
			exactBlock: true,
		},
	}

	defaultSyntax = commentSyntax{line: []string{"//", "#"}, blockOpen: []string{"/*"}, blockClose: []string{"*/"}}
)

func (c *LinesOfCodeCalculator) Calculate(_ string, content []byte, language string) (map[Measure]float64, error) {
	lines := strings.Split(string(content), "\n")
	// A trailing newline does not start another line.
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	total := float64(len(lines))

	syntax, ok := commentSyntaxes[strings.ToLower(language)]
	if !ok {
		syntax = defaultSyntax
	}

	var blank, comment float64
	inBlock := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			blank++
		case inBlock:
			comment++
			if syntax.closes(trimmed, true) {
				inBlock = false
			}
		case syntax.opens(trimmed):
			comment++
			if !syntax.closes(trimmed, false) {
				inBlock = true
			}
		case hasAnyPrefix(trimmed, syntax.line):
			comment++
		}
	}

	code := total - blank - comment
	if code < 0 {
		code = 0
	}

	return map[Measure]float64{
		LinesOfCode:  total,
		BlankLines:   blank,
		CommentLines: comment,
		CodeLines:    code,
	}, nil
}

func (s commentSyntax) opens(trimmed string) bool {
	if s.exactBlock {
		for _, m := range s.blockOpen {
			if trimmed == m {
				return true
			}
		}
		return false
	}
	return hasAnyPrefix(trimmed, s.blockOpen)
}

// closes reports whether trimmed ends a block comment. On the opening line
// (insideBlock false) the closing marker must follow the opening one.
func (s commentSyntax) closes(trimmed string, insideBlock bool) bool {
	for i, m := range s.blockClose {
		if s.exactBlock {
			if insideBlock && trimmed == m {
				return true
			}
			continue
		}
		if insideBlock {
			if strings.Contains(trimmed, m) {
				return true
			}
			continue
		}
		open := s.blockOpen[i]
		if strings.HasPrefix(trimmed, open) && len(trimmed) >= len(open)+len(m) && strings.HasSuffix(trimmed, m) {
			return true
		}
	}
	return false
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
