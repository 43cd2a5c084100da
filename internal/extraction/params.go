package extraction

import (
	"strings"
)

// parseParam reads the parameter grammar shared by @apiParam, @apiSuccess,
// @apiHeader and friends:
//
//	(group) {type{size}=allowed} [name=default] description
//
// Every part except the name is optional.
func parseParam(raw string) (Fields, error) {
	s := strings.TrimSpace(raw)
	fields := Fields{"type": "", "name": nil, "description": ""}
	i := 0

	skipBlanks(s, &i)
	if i < len(s) && s[i] == '(' {
		end := strings.IndexByte(s[i:], ')')
		if end < 0 {
			return nil, malformed("unterminated group", fields)
		}
		fields["group"] = strings.TrimSpace(s[i+1 : i+end])
		i += end + 1
	}

	skipBlanks(s, &i)
	if i < len(s) && s[i] == '{' {
		inner, ok := scanBalanced(s, &i, '{', '}')
		if !ok {
			return nil, malformed("unterminated type", fields)
		}
		parseParamType(inner, fields)
	}

	skipBlanks(s, &i)
	if i >= len(s) {
		return nil, malformed("missing parameter name", fields)
	}

	if s[i] == '[' {
		inner, ok := scanBalanced(s, &i, '[', ']')
		if !ok {
			return nil, malformed("unterminated optional parameter", fields)
		}
		name, def, hasDefault := splitDefault(inner)
		if name == "" {
			return nil, malformed("missing parameter name", fields)
		}
		fields["name"] = name
		fields["optional"] = true
		if hasDefault {
			fields["defaultValue"] = def
		}
	} else {
		start := i
		for i < len(s) && !isBlank(s[i]) {
			i++
		}
		name, def, hasDefault := splitDefault(s[start:i])
		if name == "" {
			return nil, malformed("missing parameter name", fields)
		}
		fields["name"] = name
		if hasDefault {
			fields["defaultValue"] = def
		}
	}

	fields["description"] = strings.TrimSpace(s[i:])
	return fields, nil
}

// parseParamType splits "String{1..10}=\"a\",\"b\"" into type, size and
// allowed values.
func parseParamType(inner string, fields Fields) {
	inner = strings.TrimSpace(inner)
	typ := inner
	rest := ""
	if j := strings.IndexAny(inner, "{="); j >= 0 {
		typ, rest = inner[:j], inner[j:]
	}
	fields["type"] = strings.TrimSpace(typ)

	if strings.HasPrefix(rest, "{") {
		if end := strings.IndexByte(rest, '}'); end >= 0 {
			fields["size"] = strings.TrimSpace(rest[1:end])
			rest = strings.TrimSpace(rest[end+1:])
		}
	}
	if strings.HasPrefix(rest, "=") {
		fields["allowedValues"] = splitAllowed(rest[1:])
	}
}

// splitAllowed splits a comma separated list, honoring quotes.
func splitAllowed(s string) []string {
	var out []string
	var cur strings.Builder
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
				continue
			}
			cur.WriteByte(c)
		case c == '"' || c == '\'':
			quote = c
		case c == ',':
			out = append(out, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	if v := strings.TrimSpace(cur.String()); v != "" || len(out) > 0 {
		out = append(out, v)
	}
	return out
}

// splitDefault splits "name=value", unquoting value.
func splitDefault(s string) (name, def string, ok bool) {
	eq := strings.IndexByte(s, '=')
	if eq < 0 {
		return strings.TrimSpace(s), "", false
	}
	name = strings.TrimSpace(s[:eq])
	def = strings.TrimSpace(s[eq+1:])
	if len(def) >= 2 && (def[0] == '"' || def[0] == '\'') && def[len(def)-1] == def[0] {
		def = def[1 : len(def)-1]
	}
	return name, def, true
}

// scanBalanced reads from an opening delimiter at s[*i] to its matching close
// and returns the text in between. Quoted sections are skipped.
func scanBalanced(s string, i *int, open, closing byte) (string, bool) {
	depth := 0
	start := *i + 1
	var quote byte
	for j := *i; j < len(s); j++ {
		c := s[j]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case open:
			depth++
		case closing:
			depth--
			if depth == 0 {
				*i = j + 1
				return s[start:j], true
			}
		}
	}
	return "", false
}

func skipBlanks(s string, i *int) {
	for *i < len(s) && isBlank(s[*i]) {
		*i++
	}
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}
