package config

import (
	"path/filepath"
	"strings"

	"github.com/mvp-joe/docblock/internal/extraction"
)

// Config represents the complete docblock configuration.
// It can be loaded from .docblock/config.yml with environment variable overrides.
type Config struct {
	Syntaxes []SyntaxConfig    `yaml:"syntaxes" mapstructure:"syntaxes" validate:"required,min=1,dive"`
	Tags     TagsConfig        `yaml:"tags" mapstructure:"tags"`
	Parsers  map[string]string `yaml:"parsers" mapstructure:"parsers"` // tag name -> parser kind, on top of the built-ins
	Paths    PathsConfig       `yaml:"paths" mapstructure:"paths"`
	Extract  ExtractConfig     `yaml:"extract" mapstructure:"extract"`
	Output   OutputConfig      `yaml:"output" mapstructure:"output"`
	Watch    WatchConfig       `yaml:"watch" mapstructure:"watch"`
}

// SyntaxConfig is one comment delimiter profile.
type SyntaxConfig struct {
	Name       string   `yaml:"name" mapstructure:"name" validate:"required"`
	Open       string   `yaml:"open" mapstructure:"open" validate:"required"`
	Close      string   `yaml:"close" mapstructure:"close" validate:"required"`
	DocMarker  string   `yaml:"doc_marker" mapstructure:"doc_marker"`   // e.g. "*" for "/**"
	LinePrefix string   `yaml:"line_prefix" mapstructure:"line_prefix"` // decoration stripped from each line
	Extensions []string `yaml:"extensions" mapstructure:"extensions"`   // file extensions using this profile
}

// TagsConfig controls tag aggregation, identity and block filters.
type TagsConfig struct {
	Repeatable []string `yaml:"repeatable" mapstructure:"repeatable"`
	Singular   []string `yaml:"singular" mapstructure:"singular"`
	Name       []string `yaml:"name" mapstructure:"name" validate:"required,min=1"`
	Group      []string `yaml:"group" mapstructure:"group"`
	Version    []string `yaml:"version" mapstructure:"version"`
	Route      []string `yaml:"route" mapstructure:"route"`     // name documents from method and path when unnamed
	Ignore     []string `yaml:"ignore" mapstructure:"ignore"`   // blocks carrying these are dropped
	Private    []string `yaml:"private" mapstructure:"private"` // dropped unless extract.include_private
}

// PathsConfig defines which files to scan and which to ignore.
type PathsConfig struct {
	Include []string `yaml:"include" mapstructure:"include" validate:"required,min=1"` // glob patterns for source files
	Ignore  []string `yaml:"ignore" mapstructure:"ignore"`                             // glob patterns to skip
}

// ExtractConfig tunes the extraction run.
type ExtractConfig struct {
	Workers        int    `yaml:"workers" mapstructure:"workers" validate:"gte=0"` // 0 = GOMAXPROCS
	IncludePrivate bool   `yaml:"include_private" mapstructure:"include_private"`
	Encoding       string `yaml:"encoding" mapstructure:"encoding"` // source charset, IANA name
	Strict         bool   `yaml:"strict" mapstructure:"strict"`     // fail when any warning is produced
}

// OutputConfig selects the serialization of results.
type OutputConfig struct {
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=json yaml yml"`
	File   string `yaml:"file" mapstructure:"file"` // empty writes to stdout
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	DebounceMS int `yaml:"debounce_ms" mapstructure:"debounce_ms" validate:"gte=0"`
	CacheSize  int `yaml:"cache_size" mapstructure:"cache_size" validate:"gte=1"` // sources kept in the result cache
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	policy := extraction.DefaultPolicy()
	opts := extraction.DefaultOptions()

	syntaxes := make([]SyntaxConfig, 0, len(opts.Syntaxes))
	for _, s := range opts.Syntaxes {
		syntaxes = append(syntaxes, SyntaxConfig{
			Name:       s.Name,
			Open:       s.Open,
			Close:      s.Close,
			DocMarker:  s.DocMarker,
			LinePrefix: s.LinePrefix,
			Extensions: defaultExtensions[s.Name],
		})
	}

	return &Config{
		Syntaxes: syntaxes,
		Tags: TagsConfig{
			Repeatable: policy.Repeatable,
			Singular:   policy.Singular,
			Name:       policy.NameTags,
			Group:      policy.GroupTags,
			Version:    policy.VersionTags,
			Route:      policy.RouteTags,
			Ignore:     opts.IgnoreTags,
			Private:    opts.PrivateTags,
		},
		Parsers: map[string]string{},
		Paths: PathsConfig{
			Include: []string{
				"**/*.go",
				"**/*.js",
				"**/*.jsx",
				"**/*.ts",
				"**/*.tsx",
				"**/*.java",
				"**/*.php",
				"**/*.c",
				"**/*.cpp",
				"**/*.h",
				"**/*.cs",
				"**/*.rs",
				"**/*.py",
				"**/*.rb",
				"**/*.lua",
			},
			Ignore: []string{
				"node_modules/**",
				"vendor/**",
				".git/**",
				"dist/**",
				"build/**",
				"target/**",
				"__pycache__/**",
				"*.min.js",
			},
		},
		Extract: ExtractConfig{
			Workers:  0,
			Encoding: "utf-8",
		},
		Output: OutputConfig{
			Format: "json",
		},
		Watch: WatchConfig{
			DebounceMS: 300,
			CacheSize:  10000,
		},
	}
}

var defaultExtensions = map[string][]string{
	"python": {".py"},
	"ruby":   {".rb"},
	"lua":    {".lua"},
}

// SyntaxFor returns the profile name for a file path, matched by extension.
// Files with an unknown extension use the default profile.
func (c *Config) SyntaxFor(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return extraction.DefaultSyntax
	}
	for _, s := range c.Syntaxes {
		for _, e := range s.Extensions {
			if strings.EqualFold(normalizeExt(e), ext) {
				return s.Name
			}
		}
	}
	return extraction.DefaultSyntax
}

func normalizeExt(ext string) string {
	ext = strings.TrimPrefix(ext, "*")
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// ToOptions converts the configuration into pipeline options. Progress and
// Cache are left for the caller.
func (c *Config) ToOptions() (extraction.Options, error) {
	// Tag names are case-insensitive; viper lower-cases map keys.
	kinds := make(map[string]string)
	for tag, kind := range extraction.DefaultTagParsers() {
		kinds[strings.ToLower(tag)] = kind
	}
	for tag, kind := range c.Parsers {
		kinds[strings.ToLower(tag)] = kind
	}
	registry, err := extraction.NewRegistryFromKinds(kinds)
	if err != nil {
		return extraction.Options{}, err
	}

	syntaxes := make([]extraction.Syntax, 0, len(c.Syntaxes))
	for _, s := range c.Syntaxes {
		syntaxes = append(syntaxes, extraction.Syntax{
			Name:       s.Name,
			Open:       s.Open,
			Close:      s.Close,
			DocMarker:  s.DocMarker,
			LinePrefix: s.LinePrefix,
		})
	}

	return extraction.Options{
		Syntaxes: syntaxes,
		Registry: registry,
		Policy: extraction.TagPolicy{
			Repeatable:  c.Tags.Repeatable,
			Singular:    c.Tags.Singular,
			NameTags:    c.Tags.Name,
			GroupTags:   c.Tags.Group,
			VersionTags: c.Tags.Version,
			RouteTags:   c.Tags.Route,
		},
		IgnoreTags:     c.Tags.Ignore,
		PrivateTags:    c.Tags.Private,
		IncludePrivate: c.Extract.IncludePrivate,
		Workers:        c.Extract.Workers,
	}, nil
}
