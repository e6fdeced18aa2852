// Package config handles configuration loading and validation for mcarpet.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/imyousuf/metricscarpet/internal/toolset"
)

const (
	// DefaultConfigFile is the default configuration file name (without extension).
	DefaultConfigFile = ".mcarpet"
	// DefaultConfigType is the default configuration file type.
	DefaultConfigType = "yaml"
	// EnvPrefix prefixes environment overrides, e.g. MCARPET_TOOLS_ROOT.
	EnvPrefix = "MCARPET"
)

// Experiment storage backends.
const (
	StorageMemory = "memory"
	StorageBadger = "badger"
)

// Config holds all configuration for mcarpet.
type Config struct {
	// Tools locates the external analyzers.
	Tools ToolsConfig `mapstructure:"tools" yaml:"tools"`
	// PMD tunes the PMD adapter.
	PMD PMDConfig `mapstructure:"pmd" yaml:"pmd"`
	// Matlab tunes the MATLAB adapter.
	Matlab MatlabConfig `mapstructure:"matlab" yaml:"matlab"`
	// Estimator tunes the in-process estimator.
	Estimator EstimatorConfig `mapstructure:"estimator" yaml:"estimator"`
	// Experiment selects where measurements are aggregated.
	Experiment ExperimentConfig `mapstructure:"experiment" yaml:"experiment"`
}

// ToolsConfig holds settings shared by every external tool.
type ToolsConfig struct {
	// Root is the tools directory; empty means <dir of executable>/../tools.
	Root string `mapstructure:"root" yaml:"root"`
	// Timeout bounds a single tool run.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// TempDir is where per-run working directories are created.
	TempDir string `mapstructure:"temp_dir" yaml:"temp_dir,omitempty"`
}

// PMDConfig holds PMD adapter settings.
type PMDConfig struct {
	// Args are extra command line arguments, shell quoted.
	Args string `mapstructure:"args" yaml:"args,omitempty"`
}

// MatlabConfig holds MATLAB adapter settings.
type MatlabConfig struct {
	// Executable is the MATLAB binary.
	Executable string `mapstructure:"executable" yaml:"executable"`
	// FieldPositions picks the generateStats record fields holding line
	// counts, comments, complexity, help metric, file name and path.
	FieldPositions []int `mapstructure:"field_positions" yaml:"field_positions"`
}

// EstimatorConfig holds estimator settings.
type EstimatorConfig struct {
	// Exclude lists glob patterns skipped while walking a product.
	Exclude []string `mapstructure:"exclude" yaml:"exclude"`
}

// ExperimentConfig selects the experiment sink.
type ExperimentConfig struct {
	// Name is the default experiment measurements are added to.
	Name string `mapstructure:"name" yaml:"name"`
	// Storage is the backend (memory or badger).
	Storage string `mapstructure:"storage" yaml:"storage"`
	// DBPath is the badger directory (used when Storage is "badger").
	DBPath string `mapstructure:"db_path" yaml:"db_path"`
}

// Load loads configuration from file, environment variables, and defaults.
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Check if a specific config file was set via CLI flag (stored in global viper)
	globalViper := viper.GetViper()
	if configFile := globalViper.GetString("config_file"); configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(DefaultConfigFile)
		v.SetConfigType(DefaultConfigType)
		v.AddConfigPath(".")
	}

	// Environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	cfg.Experiment.DBPath = expandHome(cfg.Experiment.DBPath)
	cfg.Tools.Root = expandHome(cfg.Tools.Root)

	return &cfg, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Tools.Timeout < 0 {
		return fmt.Errorf("tools.timeout must not be negative, got %v", c.Tools.Timeout)
	}

	if len(c.Matlab.FieldPositions) != 0 {
		if err := toolset.ValidateFieldPositions(c.Matlab.FieldPositions); err != nil {
			return fmt.Errorf("matlab: %w", err)
		}
	}

	switch c.Experiment.Storage {
	case "", StorageMemory:
	case StorageBadger:
		if c.Experiment.DBPath == "" {
			return fmt.Errorf("experiment.db_path is required when experiment storage is 'badger'")
		}
	default:
		return fmt.Errorf("experiment storage must be 'memory' or 'badger', got %q", c.Experiment.Storage)
	}

	if strings.Contains(c.Experiment.Name, ":") {
		return fmt.Errorf("experiment name must not contain ':', got %q", c.Experiment.Name)
	}

	return nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Tools: ToolsConfig{Timeout: 30 * time.Minute},
		Matlab: MatlabConfig{
			Executable:     "matlab",
			FieldPositions: slices.Clone(toolset.DefaultMatlabFieldPositions),
		},
		Estimator: EstimatorConfig{Exclude: defaultExcludes()},
		Experiment: ExperimentConfig{
			Name:    "default",
			Storage: StorageMemory,
			DBPath:  DefaultDBPath(),
		},
	}
}

// DefaultDBPath returns ~/.mcarpet/experiments.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".mcarpet", "experiments")
	}
	return filepath.Join(home, ".mcarpet", "experiments")
}

func defaultExcludes() []string {
	return []string{
		"**/node_modules/**",
		"**/.git/**",
		"**/vendor/**",
		"**/__pycache__/**",
		"**/dist/**",
		"**/build/**",
		"**/target/**",
	}
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("tools.root", "")
	v.SetDefault("tools.timeout", d.Tools.Timeout)
	v.SetDefault("tools.temp_dir", "")

	v.SetDefault("pmd.args", "")

	v.SetDefault("matlab.executable", d.Matlab.Executable)
	v.SetDefault("matlab.field_positions", d.Matlab.FieldPositions)

	v.SetDefault("estimator.exclude", d.Estimator.Exclude)

	v.SetDefault("experiment.name", d.Experiment.Name)
	v.SetDefault("experiment.storage", d.Experiment.Storage)
	v.SetDefault("experiment.db_path", d.Experiment.DBPath)
}

func expandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~/")
	if !ok {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}
