package extraction

import (
	"fmt"
	"sort"
	"time"
)

// DescriptionTag is the implicit tag name for lines before the first @tag.
const DescriptionTag = "description"

// Source is one input text. ID is opaque to the pipeline: it only appears in
// locations, warnings and fallback IDs.
type Source struct {
	ID   string
	Text string
	// Syntax selects a delimiter profile by name. Empty selects the default.
	Syntax string
}

// SourceLocation identifies where a comment block lives in its source.
// Offsets are byte offsets into the CRLF-normalized text.
type SourceLocation struct {
	SourceID    string `json:"source" yaml:"source"`
	StartOffset int    `json:"start_offset" yaml:"start_offset"`
	EndOffset   int    `json:"end_offset" yaml:"end_offset"`
	Line        int    `json:"line" yaml:"line"`
	Column      int    `json:"column" yaml:"column"`
}

func (l SourceLocation) String() string {
	return fmt.Sprintf("%s:%d:%d", l.SourceID, l.Line, l.Column)
}

// CommentBlock is a located documentation comment, delimiters included.
type CommentBlock struct {
	SourceID    string
	StartOffset int
	EndOffset   int
	RawText     string
	Syntax      string
	Line        int
	Column      int
}

// Location returns the block's source location.
func (b CommentBlock) Location() SourceLocation {
	return SourceLocation{
		SourceID:    b.SourceID,
		StartOffset: b.StartOffset,
		EndOffset:   b.EndOffset,
		Line:        b.Line,
		Column:      b.Column,
	}
}

// TagLine is one tag of a block with its raw content. Continuation lines are
// already folded into Content.
type TagLine struct {
	Name    string
	Content string
	Line    int // line of the tag within the block interior, 1-based
}

// Fields holds the structured fields produced by a TagParser.
type Fields map[string]any

// String returns the first string field found among keys.
func (f Fields) String(keys ...string) string {
	for _, k := range keys {
		if s, ok := f[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func (f Fields) clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		switch vv := v.(type) {
		case []string:
			out[k] = append([]string(nil), vv...)
		case Fields:
			out[k] = vv.clone()
		default:
			out[k] = v
		}
	}
	return out
}

// ParsedTag is one occurrence of a tag after parsing.
type ParsedTag struct {
	Name       string `json:"-" yaml:"-"`
	Fields     Fields `json:"fields" yaml:"fields"`
	Occurrence int    `json:"occurrence" yaml:"occurrence"`
	Raw        string `json:"raw" yaml:"raw"`
	Err        error  `json:"-" yaml:"-"`
}

// Clone returns a deep copy of the tag.
func (t ParsedTag) Clone() ParsedTag {
	t.Fields = t.Fields.clone()
	return t
}

// TagSet maps tag names to their occurrences in block order.
type TagSet map[string][]ParsedTag

// Get returns the occurrences of name. Absent tags yield an empty slice.
func (s TagSet) Get(name string) []ParsedTag {
	if tags, ok := s[name]; ok {
		return tags
	}
	return []ParsedTag{}
}

// Has reports whether name was observed.
func (s TagSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Names returns the observed tag names sorted.
func (s TagSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy of the set.
func (s TagSet) Clone() TagSet {
	out := make(TagSet, len(s))
	for name, tags := range s {
		cp := make([]ParsedTag, len(tags))
		for i, t := range tags {
			cp[i] = t.Clone()
		}
		out[name] = cp
	}
	return out
}

// Document is the normalized form of one comment block.
type Document struct {
	ID       string         `json:"id" yaml:"id"`
	Group    string         `json:"group,omitempty" yaml:"group,omitempty"`
	Name     string         `json:"name,omitempty" yaml:"name,omitempty"`
	Version  string         `json:"version,omitempty" yaml:"version,omitempty"`
	Fields   TagSet         `json:"fields" yaml:"fields"`
	Location SourceLocation `json:"location" yaml:"location"`
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	d.Fields = d.Fields.Clone()
	return d
}

// WarningKind classifies non-fatal conditions.
type WarningKind string

const (
	WarningLocation  WarningKind = "location"
	WarningTagParse  WarningKind = "tag_parse"
	WarningAssembly  WarningKind = "assembly"
	WarningReference WarningKind = "reference"
)

// Warning is a non-fatal condition with its source context.
type Warning struct {
	Kind     WarningKind    `json:"kind" yaml:"kind"`
	Message  string         `json:"message" yaml:"message"`
	Tag      string         `json:"tag,omitempty" yaml:"tag,omitempty"`
	Location SourceLocation `json:"location" yaml:"location"`
	Err      error          `json:"-" yaml:"-"`
}

func (w Warning) String() string {
	if w.Tag != "" {
		return fmt.Sprintf("%s: %s @%s: %s", w.Location, w.Kind, w.Tag, w.Message)
	}
	return fmt.Sprintf("%s: %s: %s", w.Location, w.Kind, w.Message)
}

// SourceResult is the output for one source.
type SourceResult struct {
	SourceID  string
	Blocks    int
	Documents []Document
	Warnings  []Warning
}

// Clone returns a deep copy of the result.
func (r SourceResult) Clone() SourceResult {
	if r.Documents != nil {
		docs := make([]Document, len(r.Documents))
		for i, d := range r.Documents {
			docs[i] = d.Clone()
		}
		r.Documents = docs
	}
	if r.Warnings != nil {
		r.Warnings = append(make([]Warning, 0, len(r.Warnings)), r.Warnings...)
	}
	return r
}

// Result is the ordered output of an extraction run.
type Result struct {
	Documents []Document
	Warnings  []Warning
	Stats     Stats
}

// Stats summarizes an extraction run.
type Stats struct {
	Sources   int
	Blocks    int
	Documents int
	Warnings  int
	Duration  time.Duration
}
