package extraction

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedTag indicates a tag's content did not match its grammar.
	ErrMalformedTag = errors.New("malformed tag")

	// ErrUnknownSyntax indicates a source requested an unconfigured syntax profile.
	ErrUnknownSyntax = errors.New("unknown syntax profile")

	// ErrInvalidSyntax indicates a syntax profile without delimiters.
	ErrInvalidSyntax = errors.New("invalid syntax profile")
)

// MalformedTagError is returned by parsers whose micro-grammar rejected the
// content. Fields carries whatever could be parsed before the failure.
type MalformedTagError struct {
	Tag    string
	Reason string
	Fields Fields
}

func (e *MalformedTagError) Error() string {
	if e.Tag == "" {
		return fmt.Sprintf("malformed tag: %s", e.Reason)
	}
	return fmt.Sprintf("malformed @%s: %s", e.Tag, e.Reason)
}

// Is lets errors.Is match ErrMalformedTag.
func (e *MalformedTagError) Is(target error) bool {
	return target == ErrMalformedTag
}

func malformed(reason string, partial Fields) *MalformedTagError {
	return &MalformedTagError{Reason: reason, Fields: partial}
}
