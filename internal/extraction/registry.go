package extraction

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownParser indicates a parser kind that is not built in.
var ErrUnknownParser = errors.New("unknown parser kind")

// TagParser converts the raw content of one tag into structured fields.
// A parser that rejects its input may still return partial fields, either
// directly or through a *MalformedTagError.
type TagParser interface {
	Parse(raw string) (Fields, error)
}

// ParserFunc adapts a function to TagParser.
type ParserFunc func(raw string) (Fields, error)

// Parse calls f(raw).
func (f ParserFunc) Parse(raw string) (Fields, error) {
	return f(raw)
}

// Registry maps tag names to parsers. Lookups are case-insensitive and fall
// back to a default parser for unknown names.
type Registry struct {
	parsers  map[string]TagParser
	fallback TagParser
}

// NewRegistry creates an empty registry. A nil fallback selects GenericParser.
func NewRegistry(fallback TagParser) *Registry {
	if fallback == nil {
		fallback = GenericParser
	}
	return &Registry{
		parsers:  make(map[string]TagParser),
		fallback: fallback,
	}
}

// NewRegistryFromKinds builds a registry from a tag name -> parser kind
// mapping (see ParserKinds).
func NewRegistryFromKinds(mapping map[string]string) (*Registry, error) {
	r := NewRegistry(nil)
	var errs []string
	for tag, kind := range mapping {
		p, ok := ParserKinds[strings.ToLower(kind)]
		if !ok {
			errs = append(errs, fmt.Sprintf("%s -> %s", tag, kind))
			continue
		}
		r.Register(tag, p)
	}
	if len(errs) > 0 {
		sort.Strings(errs)
		return nil, fmt.Errorf("%w: %s", ErrUnknownParser, strings.Join(errs, ", "))
	}
	return r, nil
}

// DefaultRegistry returns a registry with the built-in tag mapping.
func DefaultRegistry() *Registry {
	r, err := NewRegistryFromKinds(DefaultTagParsers())
	if err != nil {
		// The built-in mapping only names built-in kinds.
		panic(err)
	}
	return r
}

// Register binds a parser to a tag name, replacing any previous binding.
func (r *Registry) Register(name string, p TagParser) {
	r.parsers[strings.ToLower(name)] = p
}

// Lookup returns the parser for name, or the fallback.
func (r *Registry) Lookup(name string) TagParser {
	if p, ok := r.parsers[strings.ToLower(name)]; ok {
		return p
	}
	return r.fallback
}

// Clone returns an independent copy of the registry.
func (r *Registry) Clone() *Registry {
	cp := &Registry{
		parsers:  make(map[string]TagParser, len(r.parsers)),
		fallback: r.fallback,
	}
	for name, p := range r.parsers {
		cp.parsers[name] = p
	}
	return cp
}

// Parse runs every tag through its parser. Failures never abort: the tag is
// kept with its raw content, the error in Err, and a parseError field.
func (r *Registry) Parse(lines []TagLine) []ParsedTag {
	tags := make([]ParsedTag, 0, len(lines))
	seen := make(map[string]int)

	for _, line := range lines {
		fields, err := safeParse(r.Lookup(line.Name), line.Content)
		if err != nil {
			var me *MalformedTagError
			reason := err.Error()
			if errors.As(err, &me) {
				me.Tag = line.Name
				reason = me.Reason
				if fields == nil {
					fields = me.Fields
				}
			}
			fields = fields.clone()
			if fields == nil {
				fields = Fields{}
			}
			fields["parseError"] = reason
		}
		if fields == nil {
			fields = Fields{}
		}

		tags = append(tags, ParsedTag{
			Name:       line.Name,
			Fields:     fields,
			Occurrence: seen[strings.ToLower(line.Name)],
			Raw:        line.Content,
			Err:        err,
		})
		seen[strings.ToLower(line.Name)]++
	}

	return tags
}

// safeParse turns a panicking parser into an error.
func safeParse(p TagParser, raw string) (fields Fields, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			fields = nil
			err = fmt.Errorf("parser panic: %v", rec)
		}
	}()
	return p.Parse(raw)
}
