package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/docblock/internal/extraction"
)

// Test Plan for Config System:
// - Default() returns valid configuration with all expected defaults
// - Load() uses defaults when no config file exists
// - Load() loads from .docblock/config.yml and .docblock/config.yaml
// - Load() merges config file with defaults
// - Environment variables override config file values and defaults
// - Load() returns error for malformed YAML
// - Load() returns error for invalid configuration values
// - NewFileLoader() reads an explicit file and fails when it is missing
// - Validate() rejects bad struct fields, syntaxes, parser kinds, tag conflicts, encodings
// - Validate() returns multiple errors for multiple invalid fields
// - Validate() accepts every output format name the CLI accepts
// - SyntaxFor() maps extensions to profiles
// - ToOptions() builds a working pipeline configuration

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	configDir := filepath.Join(dir, ".docblock")
	require.NoError(t, os.MkdirAll(configDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, name), []byte(content), 0644))
}

func TestDefault_ReturnsValidConfiguration(t *testing.T) {
	// Test: Default() returns valid configuration
	cfg := Default()

	require.NotNil(t, cfg)

	names := make([]string, 0, len(cfg.Syntaxes))
	for _, s := range cfg.Syntaxes {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"default", "python", "ruby", "lua"}, names)

	assert.Contains(t, cfg.Tags.Singular, "apiName")
	assert.Contains(t, cfg.Tags.Repeatable, "apiParam")
	assert.Equal(t, []string{"apiIgnore"}, cfg.Tags.Ignore)
	assert.Equal(t, []string{"apiPrivate"}, cfg.Tags.Private)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, "utf-8", cfg.Extract.Encoding)
	assert.Equal(t, 0, cfg.Extract.Workers)
	assert.Equal(t, 300, cfg.Watch.DebounceMS)
	assert.NotEmpty(t, cfg.Paths.Include)
	assert.NotEmpty(t, cfg.Paths.Ignore)

	assert.NoError(t, Validate(cfg))
}

func TestLoad_UsesDefaultsWhenNoConfigFile(t *testing.T) {
	tempDir := t.TempDir()

	cfg, err := NewLoader(tempDir).Load()
	require.NoError(t, err)

	defaults := Default()
	assert.Equal(t, defaults.Output, cfg.Output)
	assert.Equal(t, defaults.Extract, cfg.Extract)
	assert.Equal(t, defaults.Paths, cfg.Paths)
	assert.Equal(t, defaults.Tags, cfg.Tags)
	require.Len(t, cfg.Syntaxes, len(defaults.Syntaxes))
	for i, s := range defaults.Syntaxes {
		assert.Equal(t, s.Name, cfg.Syntaxes[i].Name)
		assert.Equal(t, s.Open, cfg.Syntaxes[i].Open)
		assert.Equal(t, s.Close, cfg.Syntaxes[i].Close)
	}
}

func TestLoad_FromConfigFile(t *testing.T) {
	for _, name := range []string{"config.yml", "config.yaml"} {
		t.Run(name, func(t *testing.T) {
			tempDir := t.TempDir()
			writeConfig(t, tempDir, name, `
output:
  format: yaml
extract:
  workers: 3
  include_private: true
paths:
  include:
    - "src/**/*.js"
`)

			cfg, err := NewLoader(tempDir).Load()
			require.NoError(t, err)

			assert.Equal(t, "yaml", cfg.Output.Format)
			assert.Equal(t, 3, cfg.Extract.Workers)
			assert.True(t, cfg.Extract.IncludePrivate)
			assert.Equal(t, []string{"src/**/*.js"}, cfg.Paths.Include)

			// Test: Unset values keep their defaults
			assert.Equal(t, "utf-8", cfg.Extract.Encoding)
			assert.Equal(t, Default().Paths.Ignore, cfg.Paths.Ignore)
			assert.Len(t, cfg.Syntaxes, 4)
		})
	}
}

func TestLoad_CustomSyntaxesAndParsers(t *testing.T) {
	tempDir := t.TempDir()
	writeConfig(t, tempDir, "config.yml", `
syntaxes:
  - name: default
    open: "/*"
    close: "*/"
    doc_marker: "*"
    line_prefix: "*"
  - name: haskell
    open: "{-|"
    close: "-}"
    extensions: [".hs"]
parsers:
  apiDeprecated: flag
`)

	cfg, err := NewLoader(tempDir).Load()
	require.NoError(t, err)

	require.Len(t, cfg.Syntaxes, 2)
	assert.Equal(t, "haskell", cfg.Syntaxes[1].Name)
	assert.Equal(t, "{-|", cfg.Syntaxes[1].Open)
	assert.Equal(t, "haskell", cfg.SyntaxFor("lib/Main.hs"))

	// Viper lower-cases map keys
	assert.Equal(t, "flag", cfg.Parsers["apideprecated"])

	opts, err := cfg.ToOptions()
	require.NoError(t, err)
	fields, err := opts.Registry.Lookup("apiDeprecated").Parse("")
	require.NoError(t, err)
	assert.Equal(t, extraction.Fields{"value": true}, fields)
}

func TestLoad_EnvOverrides(t *testing.T) {
	tempDir := t.TempDir()
	writeConfig(t, tempDir, "config.yml", `
output:
  format: yaml
`)

	t.Setenv("DOCBLOCK_OUTPUT_FORMAT", "json")
	t.Setenv("DOCBLOCK_EXTRACT_WORKERS", "7")
	t.Setenv("DOCBLOCK_EXTRACT_STRICT", "true")
	t.Setenv("DOCBLOCK_WATCH_DEBOUNCE_MS", "50")

	cfg, err := NewLoader(tempDir).Load()
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, 7, cfg.Extract.Workers)
	assert.True(t, cfg.Extract.Strict)
	assert.Equal(t, 50, cfg.Watch.DebounceMS)
}

func TestLoad_MalformedYAML(t *testing.T) {
	tempDir := t.TempDir()
	writeConfig(t, tempDir, "config.yml", "output: [unclosed\n")

	_, err := NewLoader(tempDir).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_InvalidValues(t *testing.T) {
	tempDir := t.TempDir()
	writeConfig(t, tempDir, "config.yml", `
output:
  format: xml
`)

	_, err := NewLoader(tempDir).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
	assert.ErrorIs(t, err, ErrInvalidField)
	assert.Contains(t, err.Error(), "output.format")
}

func TestNewFileLoader(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output:\n  file: out.json\n"), 0644))

	cfg, err := NewFileLoader(tempDir, path).Load()
	require.NoError(t, err)
	assert.Equal(t, "out.json", cfg.Output.File)

	// Test: An explicit file must exist
	_, err = NewFileLoader(tempDir, filepath.Join(tempDir, "missing.yaml")).Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"no syntaxes", func(c *Config) { c.Syntaxes = nil }, ErrInvalidField},
		{"syntax without close", func(c *Config) { c.Syntaxes[1].Close = "" }, ErrInvalidField},
		{"duplicate syntax", func(c *Config) { c.Syntaxes[2].Name = "PYTHON" }, ErrInvalidSyntax},
		{"marker equals open", func(c *Config) { c.Syntaxes[0].DocMarker = "/*" }, ErrInvalidSyntax},
		{"missing default", func(c *Config) { c.Syntaxes = c.Syntaxes[1:] }, ErrMissingDefaultSyntax},
		{"unknown parser kind", func(c *Config) { c.Parsers = map[string]string{"apiFoo": "fancy"} }, ErrUnknownParserKind},
		{"tag conflict", func(c *Config) { c.Tags.Repeatable = append(c.Tags.Repeatable, "APINAME") }, ErrTagConflict},
		{"no name tags", func(c *Config) { c.Tags.Name = nil }, ErrInvalidField},
		{"negative workers", func(c *Config) { c.Extract.Workers = -2 }, ErrInvalidField},
		{"bad encoding", func(c *Config) { c.Extract.Encoding = "klingon-8" }, ErrInvalidEncoding},
		{"bad format", func(c *Config) { c.Output.Format = "toml" }, ErrInvalidField},
		{"no include paths", func(c *Config) { c.Paths.Include = []string{} }, ErrInvalidField},
		{"zero cache", func(c *Config) { c.Watch.CacheSize = 0 }, ErrInvalidField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestValidate_OutputFormats(t *testing.T) {
	for _, format := range []string{"json", "yaml", "yml"} {
		cfg := Default()
		cfg.Output.Format = format
		assert.NoError(t, Validate(cfg), format)
	}
}

func TestLoad_YmlFormat(t *testing.T) {
	tempDir := t.TempDir()
	writeConfig(t, tempDir, "config.yml", `
output:
  format: yml
`)

	cfg, err := NewLoader(tempDir).Load()
	require.NoError(t, err)
	assert.Equal(t, "yml", cfg.Output.Format)
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := Default()
	cfg.Output.Format = "toml"
	cfg.Extract.Encoding = "klingon-8"
	cfg.Parsers = map[string]string{"x": "nope"}

	err := Validate(cfg)
	require.Error(t, err)

	assert.Contains(t, err.Error(), "validation failed")
	assert.ErrorIs(t, err, ErrInvalidField)
	assert.ErrorIs(t, err, ErrInvalidEncoding)
	assert.ErrorIs(t, err, ErrUnknownParserKind)
}

func TestSyntaxFor(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "python", cfg.SyntaxFor("pkg/mod.py"))
	assert.Equal(t, "ruby", cfg.SyntaxFor("app/MODEL.RB"))
	assert.Equal(t, "lua", cfg.SyntaxFor("init.lua"))
	assert.Equal(t, extraction.DefaultSyntax, cfg.SyntaxFor("src/api.js"))
	assert.Equal(t, extraction.DefaultSyntax, cfg.SyntaxFor("Makefile"))
}

func TestToOptions(t *testing.T) {
	cfg := Default()
	cfg.Extract.Workers = 2
	cfg.Extract.IncludePrivate = true

	opts, err := cfg.ToOptions()
	require.NoError(t, err)

	assert.Equal(t, 2, opts.Workers)
	assert.True(t, opts.IncludePrivate)
	assert.Len(t, opts.Syntaxes, 4)
	assert.Equal(t, cfg.Tags.Name, opts.Policy.NameTags)

	p, err := extraction.New(opts)
	require.NoError(t, err)
	require.NotNil(t, p)

	// Test: An unknown kind that bypassed validation still fails here
	cfg.Parsers = map[string]string{"x": "nope"}
	_, err = cfg.ToOptions()
	assert.ErrorIs(t, err, extraction.ErrUnknownParser)
}
