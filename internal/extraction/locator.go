package extraction

import (
	"iter"
	"strings"
	"unicode/utf8"
)

// Locator finds documentation comment blocks in raw text.
type Locator struct {
	syntax Syntax
}

// NewLocator creates a locator for one syntax profile.
func NewLocator(syntax Syntax) (*Locator, error) {
	if err := syntax.Validate(); err != nil {
		return nil, err
	}
	return &Locator{syntax: syntax}, nil
}

// Syntax returns the profile the locator scans for.
func (l *Locator) Syntax() Syntax {
	return l.syntax
}

// Blocks yields documentation comment blocks in source order. Blocks never
// overlap and plain comments are skipped whole. An unterminated documentation
// comment ends the scan; it is reported through onWarn (which may be nil) and
// nothing is yielded for it.
//
// Line endings are normalized to "\n" before scanning, so offsets refer to the
// normalized text.
func (l *Locator) Blocks(sourceID, text string, onWarn func(Warning)) iter.Seq[CommentBlock] {
	text = NormalizeNewlines(text)
	open, closing := l.syntax.Open, l.syntax.Close

	return func(yield func(CommentBlock) bool) {
		pos := 0
		line, col := 1, 1

		for pos < len(text) {
			i := strings.Index(text[pos:], open)
			if i < 0 {
				return
			}
			start := pos + i
			line, col = advance(text[pos:start], line, col)

			bodyStart := start + len(open)
			j := strings.Index(text[bodyStart:], closing)
			if j < 0 {
				if l.isDoc(text[bodyStart:]) && onWarn != nil {
					onWarn(Warning{
						Kind:    WarningLocation,
						Message: "unterminated documentation comment, block skipped",
						Location: SourceLocation{
							SourceID:    sourceID,
							StartOffset: start,
							EndOffset:   len(text),
							Line:        line,
							Column:      col,
						},
					})
				}
				return
			}

			end := bodyStart + j + len(closing)
			if l.isDoc(text[bodyStart : bodyStart+j]) {
				block := CommentBlock{
					SourceID:    sourceID,
					StartOffset: start,
					EndOffset:   end,
					RawText:     text[start:end],
					Syntax:      l.syntax.Name,
					Line:        line,
					Column:      col,
				}
				if !yield(block) {
					return
				}
			}

			line, col = advance(text[start:end], line, col)
			pos = end
		}
	}
}

// isDoc reports whether a comment interior carries the documentation marker.
// A doubled marker ("/***") marks a banner, not documentation.
func (l *Locator) isDoc(interior string) bool {
	marker := l.syntax.DocMarker
	if marker == "" {
		return true
	}
	if !strings.HasPrefix(interior, marker) {
		return false
	}
	return !strings.HasPrefix(interior[len(marker):], marker)
}

// advance moves a 1-based line/column position over seg.
func advance(seg string, line, col int) (int, int) {
	nl := strings.Count(seg, "\n")
	if nl == 0 {
		return line, col + utf8.RuneCountInString(seg)
	}
	last := strings.LastIndexByte(seg, '\n')
	return line + nl, utf8.RuneCountInString(seg[last+1:]) + 1
}

// NormalizeNewlines converts CRLF and lone CR line endings to LF.
func NormalizeNewlines(s string) string {
	if !strings.Contains(s, "\r") {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
