package resolve

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dominikbraun/graph"

	"github.com/mvp-joe/docblock/internal/extraction"
)

// Options configures which tags declare and reference shared blocks.
type Options struct {
	DefineTag string
	UseTag    string
	// Singular tags are inherited only when the using document lacks them.
	Singular []string
	// Exclude lists tags that are never inherited, such as identity tags.
	Exclude []string
}

// DefaultOptions returns the @apiDefine / @apiUse configuration matching
// extraction.DefaultPolicy.
func DefaultOptions() Options {
	policy := extraction.DefaultPolicy()

	exclude := []string{extraction.DescriptionTag}
	exclude = append(exclude, policy.NameTags...)
	exclude = append(exclude, policy.GroupTags...)
	exclude = append(exclude, policy.VersionTags...)
	exclude = append(exclude, policy.RouteTags...)

	return Options{
		DefineTag: "apiDefine",
		UseTag:    "apiUse",
		Singular:  policy.Singular,
		Exclude:   exclude,
	}
}

// Resolver expands use references into the tags of the referenced define
// documents.
type Resolver struct {
	defineTag string
	useTag    string
	singular  map[string]bool
	exclude   map[string]bool
}

// New creates a resolver.
func New(opts Options) *Resolver {
	exclude := lowerSet(opts.Exclude)
	exclude[strings.ToLower(opts.DefineTag)] = true
	exclude[strings.ToLower(opts.UseTag)] = true

	return &Resolver{
		defineTag: opts.DefineTag,
		useTag:    opts.UseTag,
		singular:  lowerSet(opts.Singular),
		exclude:   exclude,
	}
}

// define is one named shared block and the defines it uses.
type define struct {
	index int
	uses  []string
}

// Resolve returns copies of docs with inherited tags appended after each
// document's own tags. Define documents stay in the output, expanded the same
// way. Unknown references, cycles and duplicate defines are reported as
// reference warnings; the offending reference is skipped.
func (r *Resolver) Resolve(docs []extraction.Document) ([]extraction.Document, []extraction.Warning) {
	out := make([]extraction.Document, len(docs))
	for i, d := range docs {
		out[i] = d.Clone()
	}
	var warnings []extraction.Warning

	warn := func(doc extraction.Document, tag, format string, args ...any) {
		warnings = append(warnings, extraction.Warning{
			Kind:     extraction.WarningReference,
			Message:  fmt.Sprintf(format, args...),
			Tag:      tag,
			Location: doc.Location,
		})
	}

	defines := make(map[string]*define)
	var order []string
	for i, d := range docs {
		name := r.defineName(d)
		if name == "" {
			continue
		}
		if _, ok := defines[name]; ok {
			warn(d, r.defineTag, "duplicate @%s %q, keeping the first definition", r.defineTag, name)
			continue
		}
		defines[name] = &define{index: i}
		order = append(order, name)
	}

	g := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())
	for _, name := range order {
		_ = g.AddVertex(name)
	}
	for _, name := range order {
		def := defines[name]
		doc := docs[def.index]
		for _, target := range r.uses(doc) {
			if _, ok := defines[target]; !ok {
				warn(doc, r.useTag, "unknown @%s %q", r.defineTag, target)
				continue
			}
			if target == name {
				warn(doc, r.useTag, "reference cycle: %q uses itself", name)
				continue
			}
			if err := g.AddEdge(name, target); err != nil {
				switch {
				case errors.Is(err, graph.ErrEdgeCreatesCycle):
					warn(doc, r.useTag, "reference cycle: %q uses %q", name, target)
				case errors.Is(err, graph.ErrEdgeAlreadyExists):
					// Repeated use of the same define adds nothing.
				default:
					warn(doc, r.useTag, "failed to link %q to %q: %v", name, target, err)
				}
				continue
			}
			def.uses = append(def.uses, target)
		}
	}

	sorted, err := graph.TopologicalSort(g)
	if err != nil {
		// Cycles are rejected on insert, so this is unexpected.
		warnings = append(warnings, extraction.Warning{
			Kind:    extraction.WarningReference,
			Message: fmt.Sprintf("failed to order definitions: %v", err),
		})
		return out, warnings
	}

	// Dependencies come after their users in topological order, so walking it
	// backwards expands each define before anything that uses it.
	expanded := make(map[string]extraction.TagSet, len(sorted))
	for _, name := range slices.Backward(sorted) {
		def := defines[name]
		fields := out[def.index].Fields
		for _, target := range def.uses {
			r.merge(fields, expanded[target])
		}
		expanded[name] = fields
	}

	for i, d := range docs {
		if name := r.defineName(d); name != "" && defines[name].index == i {
			continue
		}
		for _, target := range r.uses(d) {
			src, ok := expanded[target]
			if !ok {
				warn(d, r.useTag, "unknown @%s %q", r.defineTag, target)
				continue
			}
			r.merge(out[i].Fields, src)
		}
	}

	return out, warnings
}

// merge appends the inheritable tags of src to dst.
func (r *Resolver) merge(dst, src extraction.TagSet) {
	for _, name := range src.Names() {
		lower := strings.ToLower(name)
		if r.exclude[lower] {
			continue
		}
		if r.singular[lower] && len(dst[name]) > 0 {
			continue
		}
		for _, tag := range src[name] {
			c := tag.Clone()
			c.Occurrence = len(dst[name])
			dst[name] = append(dst[name], c)
		}
	}
}

// defineName returns the define name declared by doc, or "".
func (r *Resolver) defineName(doc extraction.Document) string {
	for _, tag := range tagsNamed(doc.Fields, r.defineTag) {
		if tag.Err != nil {
			continue
		}
		if name := tag.Fields.String("name"); name != "" {
			return name
		}
	}
	return ""
}

// uses returns the define names referenced by doc, in block order.
func (r *Resolver) uses(doc extraction.Document) []string {
	var names []string
	for _, tag := range tagsNamed(doc.Fields, r.useTag) {
		if tag.Err != nil {
			continue
		}
		if name := tag.Fields.String("name"); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func tagsNamed(fields extraction.TagSet, want string) []extraction.ParsedTag {
	if tags, ok := fields[want]; ok {
		return tags
	}
	for _, name := range fields.Names() {
		if strings.EqualFold(name, want) {
			return fields[name]
		}
	}
	return nil
}

func lowerSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[strings.ToLower(n)] = true
	}
	return set
}
