package extraction

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/mod/semver"
)

// Built-in parsers.
var (
	GenericParser TagParser = ParserFunc(parseGeneric)
	TextParser    TagParser = ParserFunc(parseText)
	ParamParser   TagParser = ParserFunc(parseParam)
	FlagParser    TagParser = ParserFunc(parseFlag)
	ExampleParser TagParser = ParserFunc(parseExample)
	NameParser    TagParser = ParserFunc(parseName)
	VersionParser TagParser = ParserFunc(parseVersion)
	ListParser    TagParser = ParserFunc(parseList)
	APIParser     TagParser = ParserFunc(parseAPI)
	DefineParser  TagParser = ParserFunc(parseDefine)
	UseParser     TagParser = ParserFunc(parseUse)
)

// ParserKinds names the built-in parsers for configuration.
var ParserKinds = map[string]TagParser{
	"generic": GenericParser,
	"text":    TextParser,
	"param":   ParamParser,
	"flag":    FlagParser,
	"example": ExampleParser,
	"name":    NameParser,
	"version": VersionParser,
	"list":    ListParser,
	"api":     APIParser,
	"define":  DefineParser,
	"use":     UseParser,
}

// DefaultTagParsers returns the built-in tag name -> parser kind mapping.
func DefaultTagParsers() map[string]string {
	return map[string]string{
		DescriptionTag:     "text",
		"example":          "text",
		"apiDescription":   "text",
		"apiDeprecated":    "text",
		"apiPermission":    "text",
		"apiSampleRequest": "text",
		"codeDescription":  "text",
		"codeReturn":       "text",
		"codeAnnotation":   "text",
		"codeSince":        "text",

		"api":       "api",
		"apiName":   "name",
		"apiGroup":  "name",
		"codeName":  "name",
		"codeGroup": "name",

		"apiVersion":  "version",
		"codeVersion": "version",

		"param":      "param",
		"apiParam":   "param",
		"apiQuery":   "param",
		"apiBody":    "param",
		"apiHeader":  "param",
		"apiSuccess": "param",
		"apiError":   "param",
		"codeParam":  "param",

		"apiExample":        "example",
		"apiSuccessExample": "example",
		"apiErrorExample":   "example",
		"apiParamExample":   "example",
		"apiHeaderExample":  "example",

		"apiPrivate": "flag",
		"codeStatic": "flag",
		"codeAsync":  "flag",

		"codePlatform": "list",

		"apiDefine": "define",
		"apiUse":    "use",
	}
}

func parseGeneric(raw string) (Fields, error) {
	return Fields{"text": raw}, nil
}

// parseText trims the block as a whole; inner lines are untouched.
func parseText(raw string) (Fields, error) {
	return Fields{"text": strings.TrimSpace(raw)}, nil
}

// parseFlag accepts an empty body (true) or a true/false literal.
func parseFlag(raw string) (Fields, error) {
	switch v := strings.ToLower(strings.TrimSpace(raw)); v {
	case "", "true":
		return Fields{"value": true}, nil
	case "false":
		return Fields{"value": false}, nil
	default:
		return nil, malformed(fmt.Sprintf("expected true or false, got %q", v), Fields{"value": nil})
	}
}

// parseName normalizes identifiers: inner whitespace runs become '_'.
func parseName(raw string) (Fields, error) {
	parts := strings.Fields(raw)
	if len(parts) == 0 {
		return nil, malformed("empty name", Fields{"name": nil})
	}
	return Fields{"name": strings.Join(parts, "_")}, nil
}

// parseVersion requires a full major.minor.patch semantic version.
func parseVersion(raw string) (Fields, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil, malformed("empty version", Fields{"version": nil})
	}
	if !isFullSemver(v) {
		return nil, malformed(fmt.Sprintf("version %q is not major.minor.patch", v), Fields{"version": v})
	}
	return Fields{"version": v}, nil
}

func isFullSemver(v string) bool {
	canon := "v" + strings.TrimPrefix(v, "v")
	if !semver.IsValid(canon) {
		return false
	}
	core := canon[1:]
	if i := strings.IndexAny(core, "-+"); i >= 0 {
		core = core[:i]
	}
	return strings.Count(core, ".") == 2
}

// parseList splits on commas and whitespace.
func parseList(raw string) (Fields, error) {
	items := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	if len(items) == 0 {
		return nil, malformed("no items", Fields{"items": []string{}})
	}
	return Fields{"items": items}, nil
}

// parseAPI reads "{method} path title".
func parseAPI(raw string) (Fields, error) {
	s := strings.TrimSpace(raw)
	fields := Fields{"method": "", "path": "", "title": ""}

	if strings.HasPrefix(s, "{") {
		end := strings.IndexByte(s, '}')
		if end < 0 {
			return nil, malformed("unterminated method", fields)
		}
		fields["method"] = strings.TrimSpace(s[1:end])
		s = strings.TrimSpace(s[end+1:])
	}

	path, title := splitFirstField(s)
	if path == "" {
		fields["path"] = nil
		return nil, malformed("missing path", fields)
	}
	fields["path"] = path
	fields["title"] = title
	return fields, nil
}

// parseUse reads the referenced define name.
func parseUse(raw string) (Fields, error) {
	name, _ := splitFirstField(strings.TrimSpace(raw))
	if name == "" {
		return nil, malformed("missing define name", Fields{"name": nil})
	}
	return Fields{"name": name}, nil
}

// parseDefine reads "name title" on the first line and a description below.
func parseDefine(raw string) (Fields, error) {
	first, rest := splitFirstLine(strings.TrimLeft(raw, " \t\n"))
	name, title := splitFirstField(strings.TrimSpace(first))
	if name == "" {
		return nil, malformed("missing define name", Fields{"name": nil})
	}
	for _, r := range name {
		if !(r == '_' || r == ':' || unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return nil, malformed("define name must contain only alphanumeric, '_' and ':' characters", Fields{"name": name})
		}
	}
	return Fields{
		"name":        name,
		"title":       title,
		"description": strings.TrimSpace(Unindent(rest)),
	}, nil
}

// parseExample reads "{type} title" on the first line and the example body
// below. The body keeps its relative indentation.
func parseExample(raw string) (Fields, error) {
	first, rest := splitFirstLine(raw)
	first = strings.TrimSpace(first)
	fields := Fields{"type": "json", "title": ""}

	if strings.HasPrefix(first, "{") {
		end := strings.IndexByte(first, '}')
		if end < 0 {
			return nil, malformed("unterminated example type", fields)
		}
		if t := strings.TrimSpace(first[1:end]); t != "" {
			fields["type"] = t
		}
		first = strings.TrimSpace(first[end+1:])
	}
	fields["title"] = first

	body := strings.Join(trimTrailingBlank(trimLeadingBlank(strings.Split(rest, "\n"))), "\n")
	body = Unindent(body)
	if strings.TrimSpace(body) == "" {
		return nil, malformed("example has no content", fields)
	}
	fields["content"] = body
	return fields, nil
}

// Unindent removes the whitespace prefix shared by all non-blank lines.
func Unindent(s string) string {
	lines := strings.Split(s, "\n")
	prefix := ""
	first := true
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lead := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		if first {
			prefix = lead
			first = false
			continue
		}
		prefix = commonPrefix(prefix, lead)
	}
	if prefix == "" {
		return s
	}
	for i, line := range lines {
		if strings.HasPrefix(line, prefix) {
			lines[i] = line[len(prefix):]
		} else {
			lines[i] = strings.TrimLeft(line, " \t")
		}
	}
	return strings.Join(lines, "\n")
}

func commonPrefix(a, b string) string {
	n := min(len(a), len(b))
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return a[:i]
}

func splitFirstLine(s string) (first, rest string) {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i], s[i+1:]
	}
	return s, ""
}

func splitFirstField(s string) (field, rest string) {
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}

func trimLeadingBlank(lines []string) []string {
	i := 0
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	return lines[i:]
}
