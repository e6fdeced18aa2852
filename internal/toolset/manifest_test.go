package toolset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadManifest(t *testing.T) {
	root := t.TempDir()
	content := `
[pmd]
executable = "pmd-bin-6.55.0/bin/run.sh"

[matlab]
executable = "/opt/matlab/bin/matlab"
resources = "scripts/matlab"
`
	require.NoError(t, os.WriteFile(filepath.Join(root, ManifestFile), []byte(content), 0o644))

	m, err := LoadManifest(root)
	require.NoError(t, err)
	assert.Equal(t, "pmd-bin-6.55.0/bin/run.sh", m.PMD.Executable)
	assert.Equal(t, "/opt/matlab/bin/matlab", m.Matlab.Executable)

	p := NewPMD(Options{ToolsRoot: root, Manifest: m})
	assert.Equal(t, filepath.Join(root, "pmd-bin-6.55.0", "bin", "run.sh"), p.executable)
	mat := NewMatlab(Options{ToolsRoot: root, Manifest: m})
	assert.Equal(t, filepath.Join(root, "scripts", "matlab"), mat.scripts)
}

func TestLoadManifestMissing(t *testing.T) {
	m, err := LoadManifest(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, &Manifest{}, m)
}

func TestLoadManifestInvalid(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ManifestFile), []byte("[pmd\n"), 0o644))
	_, err := LoadManifest(root)
	assert.Error(t, err)
}

func TestDefaultToolsRoot(t *testing.T) {
	assert.Equal(t, "tools", filepath.Base(DefaultToolsRoot()))
}
