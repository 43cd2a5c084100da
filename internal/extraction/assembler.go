package extraction

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// fallbackNamespace seeds synthetic document IDs.
var fallbackNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/mvp-joe/docblock/document"))

// TagPolicy decides how repeated tags aggregate and which tags identify a
// document. Tag names are compared case-insensitively.
type TagPolicy struct {
	Repeatable  []string
	Singular    []string
	NameTags    []string
	GroupTags   []string
	VersionTags []string
	// RouteTags name a document from their method and path when no name tag
	// is present.
	RouteTags []string
}

// Assembler groups the parsed tags of one block into a Document.
type Assembler struct {
	singular    map[string]bool
	nameTags    []string
	groupTags   []string
	versionTags []string
	routeTags   []string
}

// NewAssembler creates an assembler for a policy. Tags that are not singular
// accumulate, whether or not they are listed as repeatable.
func NewAssembler(policy TagPolicy) (*Assembler, error) {
	repeatable := lowerSet(policy.Repeatable)
	singular := lowerSet(policy.Singular)
	for name := range singular {
		if repeatable[name] {
			return nil, fmt.Errorf("tag %q is both repeatable and singular", name)
		}
	}
	return &Assembler{
		singular:    singular,
		nameTags:    policy.NameTags,
		groupTags:   policy.GroupTags,
		versionTags: policy.VersionTags,
		routeTags:   policy.RouteTags,
	}, nil
}

// Assemble builds the document for block. It always produces a document;
// problems are returned as warnings.
func (a *Assembler) Assemble(block CommentBlock, tags []ParsedTag) (Document, []Warning) {
	loc := block.Location()
	doc := Document{
		Fields:   make(TagSet),
		Location: loc,
	}
	var warnings []Warning
	// Tag names are case-insensitive; the first spelling seen is the key.
	keys := make(map[string]string)

	for _, tag := range tags {
		if tag.Err != nil {
			warnings = append(warnings, Warning{
				Kind:     WarningTagParse,
				Message:  tag.Err.Error(),
				Tag:      tag.Name,
				Location: loc,
				Err:      tag.Err,
			})
		}

		lower := strings.ToLower(tag.Name)
		key, ok := keys[lower]
		if !ok {
			key = tag.Name
			keys[lower] = key
		}

		if a.singular[lower] && len(doc.Fields[key]) > 0 {
			warnings = append(warnings, Warning{
				Kind:     WarningAssembly,
				Message:  fmt.Sprintf("duplicate singular tag, keeping first value %q", firstValue(doc.Fields[key][0])),
				Tag:      tag.Name,
				Location: loc,
			})
			continue
		}
		doc.Fields[key] = append(doc.Fields[key], tag)
	}

	doc.Name = identity(doc.Fields, keys, a.nameTags, "name")
	if doc.Name == "" {
		doc.Name = routeIdentity(doc.Fields, keys, a.routeTags)
	}
	doc.Group = identity(doc.Fields, keys, a.groupTags, "group")
	doc.Version = identity(doc.Fields, keys, a.versionTags, "version")

	if doc.Name == "" {
		doc.ID = FallbackID(loc)
		warnings = append(warnings, Warning{
			Kind:     WarningAssembly,
			Message:  fmt.Sprintf("missing name tag (%s), assigned fallback id %s", strings.Join(prefixed(a.nameTags), ", "), doc.ID),
			Location: loc,
		})
	} else {
		doc.ID = DocumentID(doc.Group, doc.Name, doc.Version)
	}

	return doc, warnings
}

// identity returns the first non-empty value among the given tags, in the
// order the tags are listed. keys maps lowercased tag names to their keys in
// fields.
func identity(fields TagSet, keys map[string]string, names []string, field string) string {
	for _, want := range names {
		key, ok := keys[strings.ToLower(want)]
		if !ok {
			continue
		}
		for _, tag := range fields[key] {
			if tag.Err != nil {
				continue
			}
			if v := tag.Fields.String(field, "name", "text"); v != "" {
				return v
			}
		}
	}
	return ""
}

func routeIdentity(fields TagSet, keys map[string]string, names []string) string {
	for _, want := range names {
		for _, tag := range fields[keys[strings.ToLower(want)]] {
			if tag.Err != nil {
				continue
			}
			if name := RouteName(tag.Fields.String("method"), tag.Fields.String("path")); name != "" {
				return name
			}
		}
	}
	return ""
}

// RouteName builds a document name from an HTTP method and path, so
// "{get} /user/:id" becomes "GetUserId".
func RouteName(method, path string) string {
	words := strings.FieldsFunc(strings.ToLower(method)+" "+path, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var b strings.Builder
	for _, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		b.WriteRune(unicode.ToUpper(r))
		b.WriteString(w[size:])
	}
	return b.String()
}

// DocumentID joins the identifying values as group/name@version.
func DocumentID(group, name, version string) string {
	id := name
	if group != "" {
		id = group + "/" + id
	}
	if version != "" {
		id += "@" + version
	}
	return id
}

// FallbackID derives a stable synthetic ID from a block location.
func FallbackID(loc SourceLocation) string {
	key := fmt.Sprintf("%s#%d-%d", loc.SourceID, loc.StartOffset, loc.EndOffset)
	return "anon-" + uuid.NewSHA1(fallbackNamespace, []byte(key)).String()
}

func firstValue(tag ParsedTag) string {
	if v := tag.Fields.String("name", "group", "version", "text"); v != "" {
		return v
	}
	return strings.TrimSpace(tag.Raw)
}

func lowerSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[strings.ToLower(n)] = true
	}
	return set
}

func prefixed(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = "@" + n
	}
	return out
}
