package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mvp-joe/docblock/internal/extraction"
)

// Format selects the serialization of an envelope.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrUnknownFormat indicates an unsupported output format.
var ErrUnknownFormat = errors.New("unknown output format")

// ParseFormat maps a format name to a Format. "yml" is accepted for YAML.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q (valid: json, yaml)", ErrUnknownFormat, name)
	}
}

// Metadata describes the run that produced an envelope.
type Metadata struct {
	Version     string    `json:"version" yaml:"version"`
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
	Sources     int       `json:"sources" yaml:"sources"`
	Blocks      int       `json:"blocks" yaml:"blocks"`
	Documents   int       `json:"documents" yaml:"documents"`
	Warnings    int       `json:"warnings" yaml:"warnings"`
}

// Envelope is the serialized form of an extraction result.
type Envelope struct {
	Metadata  Metadata              `json:"metadata" yaml:"metadata"`
	Documents []extraction.Document `json:"documents" yaml:"documents"`
	Warnings  []extraction.Warning  `json:"warnings" yaml:"warnings"`
}

// NewEnvelope wraps a result. Warnings may differ from res.Warnings when a
// later stage, such as reference resolution, adds its own.
func NewEnvelope(version string, generatedAt time.Time, res *extraction.Result, docs []extraction.Document, warnings []extraction.Warning) *Envelope {
	if docs == nil {
		docs = []extraction.Document{}
	}
	if warnings == nil {
		warnings = []extraction.Warning{}
	}
	return &Envelope{
		Metadata: Metadata{
			Version:     version,
			GeneratedAt: generatedAt.UTC(),
			Sources:     res.Stats.Sources,
			Blocks:      res.Stats.Blocks,
			Documents:   len(docs),
			Warnings:    len(warnings),
		},
		Documents: docs,
		Warnings:  warnings,
	}
}

// Marshal serializes env in the given format.
func Marshal(format Format, env *Envelope) ([]byte, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(env, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal json output: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML:
		data, err := yaml.Marshal(env)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal yaml output: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Write serializes env to w.
func Write(w io.Writer, format Format, env *Envelope) error {
	data, err := Marshal(format, env)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// WriteFile serializes env to path atomically using temp -> rename.
func WriteFile(path string, format Format, env *Envelope) error {
	data, err := Marshal(format, env)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tempPath, 0644); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to set output permissions: %w", err)
	}

	// Rename to final location (atomic operation)
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}
