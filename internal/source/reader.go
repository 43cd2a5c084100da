package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"

	"github.com/mvp-joe/docblock/internal/extraction"
)

// ErrBinaryFile indicates a file that looks binary and was not decoded.
var ErrBinaryFile = errors.New("binary file")

// SyntaxResolver names the syntax profile for a file path.
type SyntaxResolver func(path string) string

// Reader loads files into extraction sources, decoding them from a charset.
type Reader struct {
	rootDir   string
	enc       encoding.Encoding
	syntaxFor SyntaxResolver
}

// NewReader creates a reader. Source IDs are paths relative to rootDir.
// An empty encoding name means UTF-8; a nil resolver selects the default
// syntax for every file.
func NewReader(rootDir, encodingName string, syntaxFor SyntaxResolver) (*Reader, error) {
	enc := encoding.Nop
	if encodingName != "" {
		e, err := ianaindex.IANA.Encoding(encodingName)
		if err != nil {
			return nil, fmt.Errorf("unknown encoding %q: %w", encodingName, err)
		}
		if e != nil {
			enc = e
		}
	}
	if syntaxFor == nil {
		syntaxFor = func(string) string { return extraction.DefaultSyntax }
	}
	return &Reader{rootDir: rootDir, enc: enc, syntaxFor: syntaxFor}, nil
}

// Read loads and decodes one file.
func (r *Reader) Read(path string) (extraction.Source, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return extraction.Source{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	text, err := r.Decode(raw)
	if err != nil {
		return extraction.Source{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return extraction.Source{
		ID:     r.SourceID(path),
		Text:   text,
		Syntax: r.syntaxFor(path),
	}, nil
}

// Decode converts raw bytes to text. A leading byte order mark is dropped.
func (r *Reader) Decode(raw []byte) (string, error) {
	decoded, err := r.enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	if isBinary(decoded) {
		return "", ErrBinaryFile
	}
	return strings.TrimPrefix(string(decoded), "\ufeff"), nil
}

// ReadAll reads every path in order. Unreadable files are logged and skipped.
func (r *Reader) ReadAll(ctx context.Context, paths []string) ([]extraction.Source, error) {
	sources := make([]extraction.Source, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		src, err := r.Read(path)
		if err != nil {
			log.Printf("Warning: skipping %s: %v", path, err)
			continue
		}
		sources = append(sources, src)
	}
	return sources, nil
}

// SourceID returns the slash-separated path relative to the root, or the
// path itself when it lies outside the root.
func (r *Reader) SourceID(path string) string {
	if r.rootDir != "" {
		if rel, err := filepath.Rel(r.rootDir, path); err == nil && !outsideRoot(rel) {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(path)
}

func outsideRoot(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// isBinary reports a NUL byte in the first 8000 bytes of decoded text.
func isBinary(raw []byte) bool {
	head := raw
	if len(head) > 8000 {
		head = head[:8000]
	}
	return bytes.IndexByte(head, 0) >= 0
}
