package toolset

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	toml "github.com/pelletier/go-toml/v2"
)

// ManifestFile is the optional manifest at the top of a tools root.
const ManifestFile = "tools.toml"

// Default locations below the tools root.
const (
	defaultPMDExecutable = "pmd-bin-5.1.1/bin/run.sh"
	defaultPMDRuleset    = "pmd-rulesets/java/metricscarpet.xml"
	defaultMatlabScripts = "matlab"
)

// ToolEntry overrides where one tool's files live. Relative paths are
// resolved against the tools root.
type ToolEntry struct {
	Executable string `toml:"executable"`
	// Resources is the ruleset file (PMD) or script directory (MATLAB).
	Resources string `toml:"resources"`
}

// Manifest is the parsed tools.toml:
//
//	[pmd]
//	executable = "pmd-bin-6.55.0/bin/run.sh"
//
//	[matlab]
//	executable = "/opt/matlab/R2023b/bin/matlab"
//	resources = "matlab"
type Manifest struct {
	PMD    ToolEntry `toml:"pmd"`
	Matlab ToolEntry `toml:"matlab"`
}

// LoadManifest reads tools.toml from root. A missing manifest yields an
// empty one.
func LoadManifest(root string) (*Manifest, error) {
	path := filepath.Join(root, ManifestFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Manifest{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read tools manifest")
	}
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return &m, nil
}

// DefaultToolsRoot returns the tools directory next to the installed
// binary: <dir of executable>/../tools.
func DefaultToolsRoot() string {
	exe, err := os.Executable()
	if err != nil {
		return "tools"
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Join(filepath.Dir(exe), "..", "tools")
}

// resolve returns override, or def when override is empty, anchored at root
// unless absolute.
func resolve(root, override, def string) string {
	p := override
	if p == "" {
		p = def
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, filepath.FromSlash(p))
}
