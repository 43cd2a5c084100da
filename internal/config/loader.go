package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir    string
	configFile string
}

// NewLoader creates a new configuration loader for the given root directory.
func NewLoader(rootDir string) Loader {
	return &loader{
		rootDir: rootDir,
	}
}

// NewFileLoader creates a loader that reads an explicit config file instead
// of searching .docblock/ under the root directory.
func NewFileLoader(rootDir, configFile string) Loader {
	return &loader{
		rootDir:    rootDir,
		configFile: configFile,
	}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (DOCBLOCK_*)
// 2. Config file (.docblock/config.yml or .docblock/config.yaml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(l.rootDir, ".docblock"))
	}

	// Enable environment variable overrides
	v.SetEnvPrefix("DOCBLOCK")
	v.AutomaticEnv()
	// Replace . with _ in env var names (e.g., DOCBLOCK_OUTPUT_FORMAT)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Extraction configuration
	v.BindEnv("extract.workers")
	v.BindEnv("extract.include_private")
	v.BindEnv("extract.encoding")
	v.BindEnv("extract.strict")

	// Output configuration
	v.BindEnv("output.format")
	v.BindEnv("output.file")

	// Watch configuration
	v.BindEnv("watch.debounce_ms")
	v.BindEnv("watch.cache_size")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - we'll use defaults + env vars.
		// An explicit --config path must exist.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || l.configFile != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("syntaxes", defaults.Syntaxes)
	v.SetDefault("parsers", defaults.Parsers)

	// Tag policy defaults
	v.SetDefault("tags.repeatable", defaults.Tags.Repeatable)
	v.SetDefault("tags.singular", defaults.Tags.Singular)
	v.SetDefault("tags.name", defaults.Tags.Name)
	v.SetDefault("tags.group", defaults.Tags.Group)
	v.SetDefault("tags.version", defaults.Tags.Version)
	v.SetDefault("tags.route", defaults.Tags.Route)
	v.SetDefault("tags.ignore", defaults.Tags.Ignore)
	v.SetDefault("tags.private", defaults.Tags.Private)

	// Paths defaults
	v.SetDefault("paths.include", defaults.Paths.Include)
	v.SetDefault("paths.ignore", defaults.Paths.Ignore)

	// Extraction defaults
	v.SetDefault("extract.workers", defaults.Extract.Workers)
	v.SetDefault("extract.include_private", defaults.Extract.IncludePrivate)
	v.SetDefault("extract.encoding", defaults.Extract.Encoding)
	v.SetDefault("extract.strict", defaults.Extract.Strict)

	// Output defaults
	v.SetDefault("output.format", defaults.Output.Format)
	v.SetDefault("output.file", defaults.Output.File)

	// Watch defaults
	v.SetDefault("watch.debounce_ms", defaults.Watch.DebounceMS)
	v.SetDefault("watch.cache_size", defaults.Watch.CacheSize)
}
