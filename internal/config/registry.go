package config

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.yaml.in/yaml/v3"
)

const registryFileName = ".mcarpet.conf"

// ExperimentEntry records a persisted experiment in the global registry.
type ExperimentEntry struct {
	Name    string    `yaml:"name"`
	DBPath  string    `yaml:"db_path"`
	Created time.Time `yaml:"created"`
	Updated time.Time `yaml:"updated"`
}

type registryFile struct {
	Experiments []ExperimentEntry `yaml:"experiments"`
}

// RegistryPath returns the path to the global experiment registry file (~/.mcarpet.conf).
func RegistryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, registryFileName)
}

// RegisterExperiment adds an experiment to the registry, or refreshes its
// database path and update time when it is already known.
func RegisterExperiment(name, dbPath string) error {
	now := time.Now().UTC().Truncate(time.Second)
	entries := ListExperiments()

	found := false
	for i, entry := range entries {
		if entry.Name == name {
			entries[i].DBPath = dbPath
			entries[i].Updated = now
			found = true
			break
		}
	}
	if !found {
		entries = append(entries, ExperimentEntry{
			Name:    name,
			DBPath:  dbPath,
			Created: now,
			Updated: now,
		})
	}

	return writeRegistry(entries)
}

// UnregisterExperiment removes an experiment from the registry. Unknown
// names are not an error.
func UnregisterExperiment(name string) error {
	entries := ListExperiments()
	kept := entries[:0]
	for _, entry := range entries {
		if entry.Name != name {
			kept = append(kept, entry)
		}
	}
	return writeRegistry(kept)
}

// LookupExperiment finds a registry entry by name.
func LookupExperiment(name string) (*ExperimentEntry, bool) {
	for _, entry := range ListExperiments() {
		if entry.Name == name {
			return &entry, true
		}
	}
	return nil, false
}

// ListExperiments returns all registered experiments sorted by name.
func ListExperiments() []ExperimentEntry {
	regPath := RegistryPath()
	if regPath == "" {
		return nil
	}

	data, err := os.ReadFile(regPath)
	if err != nil {
		return nil
	}

	var reg registryFile
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil
	}

	sort.Slice(reg.Experiments, func(i, j int) bool {
		return reg.Experiments[i].Name < reg.Experiments[j].Name
	})
	return reg.Experiments
}

func writeRegistry(entries []ExperimentEntry) error {
	regPath := RegistryPath()
	if regPath == "" {
		return nil
	}

	reg := registryFile{Experiments: entries}
	data, err := yaml.Marshal(&reg)
	if err != nil {
		return err
	}

	return os.WriteFile(regPath, data, 0644)
}
