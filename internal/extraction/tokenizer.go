package extraction

import (
	"strings"
)

// Interior strips the comment delimiters and per-line decoration from a block.
// Only the decoration is removed; indentation after it is preserved.
func Interior(block CommentBlock, syntax Syntax) string {
	raw := block.RawText
	raw = strings.TrimPrefix(raw, syntax.Open)
	if syntax.DocMarker != "" {
		raw = strings.TrimPrefix(raw, syntax.DocMarker)
	}
	raw = strings.TrimSuffix(raw, syntax.Close)

	if syntax.LinePrefix == "" {
		return raw
	}

	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		lines[i] = stripDecoration(line, syntax.LinePrefix)
	}
	return strings.Join(lines, "\n")
}

// stripDecoration removes leading blanks, the prefix and at most one space
// after it. Lines without the prefix are returned unchanged.
func stripDecoration(line, prefix string) string {
	t := strings.TrimLeft(line, " \t")
	if !strings.HasPrefix(t, prefix) {
		return line
	}
	t = t[len(prefix):]
	if strings.HasPrefix(t, " ") {
		t = t[1:]
	}
	return t
}

// Tokenize splits a block interior into tags. A line whose first non-blank
// character is '@' followed by an identifier starts a tag; every following line
// up to the next tag belongs to it and is kept verbatim. Lines before the first
// tag become an implicit description tag.
func Tokenize(interior string) []TagLine {
	lines := strings.Split(interior, "\n")

	var tags []TagLine
	cur := TagLine{Name: DescriptionTag, Line: 1}
	implicit := true
	var buf []string

	flush := func() {
		buf = trimTrailingBlank(buf)
		if implicit {
			buf = trimLeadingBlank(buf)
			if len(buf) == 0 {
				return
			}
		}
		cur.Content = strings.Join(buf, "\n")
		tags = append(tags, cur)
	}

	for i, line := range lines {
		name, rest, ok := tagStart(line)
		if !ok {
			buf = append(buf, line)
			continue
		}
		flush()
		cur = TagLine{Name: name, Line: i + 1}
		implicit = false
		buf = []string{rest}
	}
	flush()

	return tags
}

// tagStart reports whether line opens a tag and splits it into name and the
// remaining first-line content.
func tagStart(line string) (name, rest string, ok bool) {
	t := strings.TrimLeft(line, " \t")
	if len(t) < 2 || t[0] != '@' || !isIdentStart(t[1]) {
		return "", "", false
	}
	i := 2
	for i < len(t) && isIdentChar(t[i]) {
		i++
	}
	if i < len(t) && !endsTagName(t[i]) {
		return "", "", false
	}
	return t[1:i], strings.TrimLeft(t[i:], " \t"), true
}

// endsTagName reports whether c may follow a tag name. Parameter syntax may
// be glued to the name, as in "@apiParam{String} id".
func endsTagName(c byte) bool {
	switch c {
	case ' ', '\t', '{', '(', '[':
		return true
	}
	return false
}

func isIdentStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9') || c == ':' || c == '-'
}

func trimTrailingBlank(lines []string) []string {
	n := len(lines)
	for n > 0 && strings.TrimSpace(lines[n-1]) == "" {
		n--
	}
	return lines[:n]
}
