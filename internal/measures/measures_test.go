package measures

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCyclomaticComplexityGo(t *testing.T) {
	src := []byte(`package main

func compute(x int) int {
	if x > 0 && x < 100 {
		for i := range x {
			switch {
			case i%2 == 0:
				go handle(i)
			}
		}
	} else {
		return -1
	}
	return x
}
`)
	calc := &CyclomaticComplexityCalculator{}
	m, err := calc.Calculate("test.go", src, "go")
	require.NoError(t, err)
	cc := m[CyclomaticComplexity]
	// Branches: if, &&, for, range, case, go, else = 7  -> baseline 1 + 7 = 8
	assert.EqualValues(t, 8, cc)
}

func TestCyclomaticComplexityPython(t *testing.T) {
	src := []byte(`def process(items):
    if items and len(items) > 0:
        for item in items:
            if item.valid or item.override:
                pass
            elif item.skip:
                continue
    else:
        raise ValueError("empty")
`)
	calc := &CyclomaticComplexityCalculator{}
	m, err := calc.Calculate("test.py", src, "python")
	require.NoError(t, err)
	cc := m[CyclomaticComplexity]
	// if, and, for, if, or, elif, else = 7 -> baseline 1 + 7 = 8
	assert.EqualValues(t, 8, cc)
}

func TestCyclomaticComplexityJavaScript(t *testing.T) {
	src := []byte(`function handle(x) {
  if (x > 0 || x === -1) {
    for (let i = 0; i < x; i++) {
      try {
        process(i);
      } catch (e) {
        fallback(e);
      }
    }
  } else {
    return x ?? 0;
  }
}
`)
	calc := &CyclomaticComplexityCalculator{}
	m, err := calc.Calculate("test.js", src, "javascript")
	require.NoError(t, err)
	cc := m[CyclomaticComplexity]
	// if, ||, for, catch, else, ?? = 6 -> baseline 1 + 6 = 7
	assert.EqualValues(t, 7, cc)
}

func TestCyclomaticComplexityJava(t *testing.T) {
	src := []byte(`public class Example {
    public int run(int x) {
        if (x > 0 && x < 100) {
            for (int i = 0; i < x; i++) {
                while (check(i)) {
                    try {
                        process(i);
                    } catch (Exception e) {
                        handle(e);
                    }
                }
            }
        } else {
            return -1;
        }
        return x;
    }
}
`)
	calc := &CyclomaticComplexityCalculator{}
	m, err := calc.Calculate("Test.java", src, "java")
	require.NoError(t, err)
	cc := m[CyclomaticComplexity]
	// if, &&, for, while, catch, else = 6 -> baseline 1 + 6 = 7
	assert.EqualValues(t, 7, cc)
}

func TestCyclomaticComplexityUnsupportedLanguage(t *testing.T) {
	calc := &CyclomaticComplexityCalculator{}
	m, err := calc.Calculate("test.rb", []byte("if x > 0\n  puts x\nend"), "ruby")
	require.NoError(t, err)
	assert.EqualValues(t, 1, m[CyclomaticComplexity])
}

func TestLinesOfCodeGo(t *testing.T) {
	src := []byte(`package main

// main is the entry point.
func main() {
	/*
	  Multi-line comment
	*/
	fmt.Println("hello")
}
`)
	calc := &LinesOfCodeCalculator{}
	m, err := calc.Calculate("test.go", src, "go")
	require.NoError(t, err)

	assert.EqualValues(t, 9, m[LinesOfCode])
	assert.EqualValues(t, 1, m[BlankLines])
	assert.EqualValues(t, 4, m[CommentLines])
	assert.EqualValues(t, 4, m[CodeLines])
}

func TestLinesOfCodePython(t *testing.T) {
	src := []byte(`# Module docstring
"""
This is a docstring.
"""

def hello():
    print("hello")
`)
	calc := &LinesOfCodeCalculator{}
	m, err := calc.Calculate("test.py", src, "python")
	require.NoError(t, err)

	assert.EqualValues(t, 7, m[LinesOfCode])
	assert.EqualValues(t, 1, m[BlankLines])
	// # comment + """ + docstring text + """ = 4
	assert.EqualValues(t, 4, m[CommentLines])
	assert.EqualValues(t, 2, m[CodeLines])
}

func TestLinesOfCodeMatlab(t *testing.T) {
	src := []byte(`function y = scale(x)
% SCALE doubles the input.
%{
  Block comment spanning
  several lines.
%}

y = 2 * x; % trailing comment is code
end
`)
	calc := &LinesOfCodeCalculator{}
	m, err := calc.Calculate("scale.m", src, "matlab")
	require.NoError(t, err)

	assert.EqualValues(t, 9, m[LinesOfCode])
	assert.EqualValues(t, 1, m[BlankLines])
	assert.EqualValues(t, 5, m[CommentLines])
	assert.EqualValues(t, 3, m[CodeLines])
}

func TestCyclomaticComplexityMatlab(t *testing.T) {
	src := []byte(`function r = classify(x)
if x > 0 && x < 10
    r = 1;
elseif x >= 10
    r = 2;
else
    r = 0;
end
`)
	calc := &CyclomaticComplexityCalculator{}
	m, err := calc.Calculate("classify.m", src, "matlab")
	require.NoError(t, err)
	// if, &&, elseif, else = 4 -> baseline 1 + 4 = 5
	assert.EqualValues(t, 5, m[CyclomaticComplexity])
}

func TestParseMeasure(t *testing.T) {
	tests := []struct {
		input   string
		want    Measure
		wantErr bool
	}{
		{"cyclomatic_complexity", CyclomaticComplexity, false},
		{"Cyclomatic-Complexity", CyclomaticComplexity, false},
		{" lines_of_code ", LinesOfCode, false},
		{"halstead_volume", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				assert.ErrorContains(t, err, "unknown measure")
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVocabularyOrder(t *testing.T) {
	all := All()
	require.Len(t, all, 10)
	for _, m := range all {
		assert.True(t, m.Valid(), "%s should be valid", m)
	}
	// All returns a copy.
	all[0] = "mutated"
	assert.Equal(t, CyclomaticComplexity, All()[0], "All() must not expose the vocabulary")

	ms := []Measure{HackCount, "bogus", LinesOfCode, CyclomaticComplexity}
	Sort(ms)
	assert.Equal(t, []Measure{CyclomaticComplexity, LinesOfCode, HackCount, "bogus"}, ms)
}

func TestTodoCounter(t *testing.T) {
	src := []byte(`// TODO: implement this
// FIXME: broken logic
// HACK: workaround for bug #123
func hello() {
	// todo: another one
	// This is fine, no markers here
	// fixme and hack on same line
}
`)
	calc := &TodoCounter{}
	m, err := calc.Calculate("test.go", src, "go")
	require.NoError(t, err)
	assert.EqualValues(t, 2, m[TodoCount])
	assert.EqualValues(t, 2, m[FixmeCount])
	assert.EqualValues(t, 2, m[HackCount])
}

func TestCompositeCalculator(t *testing.T) {
	src := []byte(`package main

// TODO: refactor
func main() {
	if true {
		return
	}
}
`)
	calc := NewCompositeCalculator()
	m, err := calc.Calculate("test.go", src, "go")
	require.NoError(t, err)

	// Verify all metric types are present.
	expectedKeys := []Measure{
		CyclomaticComplexity,
		LinesOfCode, BlankLines, CommentLines, CodeLines,
		TodoCount, FixmeCount, HackCount,
	}
	for _, k := range expectedKeys {
		assert.Contains(t, m, k, "missing metric %s in composite result", k)
	}

	assert.GreaterOrEqual(t, m[CyclomaticComplexity], 1.0)
	assert.EqualValues(t, 1, m[TodoCount])
}
