package languages

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"src/Main.java", Java},
		{"stats/generateStats.m", Matlab},
		{"lib/util.cpp", CPP},
		{"analysis.R", R},
		{"README.md", Unknown},
		{"Makefile", Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, FromPath(tt.path))
		})
	}
}

func TestDetectDirectory(t *testing.T) {
	root := t.TempDir()
	files := []string{
		"src/A.java",
		"src/B.java",
		"src/pkg/C.java",
		"scripts/run.py",
		"node_modules/dep/x.js",
		"node_modules/dep/y.js",
		"node_modules/dep/z.js",
	}
	for _, f := range files {
		p := filepath.Join(root, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}

	lang, err := Detect(root)
	require.NoError(t, err)
	assert.Equal(t, Java, lang)
}

func TestDetectSingleFileAndMissing(t *testing.T) {
	root := t.TempDir()
	p := filepath.Join(root, "f.m")
	require.NoError(t, os.WriteFile(p, []byte("x = 1;"), 0o644))

	lang, err := Detect(p)
	require.NoError(t, err)
	assert.Equal(t, Matlab, lang)

	_, err = Detect(filepath.Join(root, "missing"))
	assert.Error(t, err)
}

func TestDetectEmptyDirectory(t *testing.T) {
	lang, err := Detect(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Unknown, lang)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "java", Normalize(" Java "))
	assert.Equal(t, "matlab", Normalize("MATLAB"))
}
