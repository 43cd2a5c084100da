package extraction

import (
	"fmt"
	"strings"
)

// DefaultSyntax is the profile used when a source does not name one.
const DefaultSyntax = "default"

// Syntax describes how documentation comments are delimited in a family of
// source files.
type Syntax struct {
	Name  string
	Open  string
	Close string
	// DocMarker must directly follow Open for the comment to count as
	// documentation ("*" turns "/*" into "/**"). Empty accepts every comment.
	DocMarker string
	// LinePrefix is per-line decoration stripped from the interior, e.g. " * ".
	LinePrefix string
}

// Validate reports whether the profile can be scanned.
func (s Syntax) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSyntax)
	}
	if s.Open == "" || s.Close == "" {
		return fmt.Errorf("%w: %s: open and close markers are required", ErrInvalidSyntax, s.Name)
	}
	return nil
}

// BuiltinSyntaxes returns the default delimiter profiles.
func BuiltinSyntaxes() []Syntax {
	return []Syntax{
		{Name: DefaultSyntax, Open: "/*", Close: "*/", DocMarker: "*", LinePrefix: "*"},
		{Name: "python", Open: `"""`, Close: `"""`},
		{Name: "ruby", Open: "=begin", Close: "=end"},
		{Name: "lua", Open: "--[[", Close: "]]"},
	}
}
