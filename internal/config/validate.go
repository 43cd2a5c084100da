package config

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/encoding/ianaindex"

	"github.com/mvp-joe/docblock/internal/extraction"
)

var (
	// ErrInvalidField indicates a field failed a declarative rule
	ErrInvalidField = errors.New("invalid field")

	// ErrInvalidSyntax indicates a broken or duplicate syntax profile
	ErrInvalidSyntax = errors.New("invalid syntax profile")

	// ErrMissingDefaultSyntax indicates no profile named "default"
	ErrMissingDefaultSyntax = errors.New("missing default syntax profile")

	// ErrUnknownParserKind indicates a parsers entry naming an unknown kind
	ErrUnknownParserKind = errors.New("unknown parser kind")

	// ErrTagConflict indicates a tag listed as both repeatable and singular
	ErrTagConflict = errors.New("conflicting tag policy")

	// ErrInvalidEncoding indicates an unsupported source charset
	ErrInvalidEncoding = errors.New("invalid source encoding")
)

// validate checks struct tags, reporting fields by their yaml names.
var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	// Declarative rules from struct tags
	if err := validateFields(cfg); err != nil {
		errs = append(errs, err)
	}

	if err := validateSyntaxes(cfg.Syntaxes); err != nil {
		errs = append(errs, err)
	}

	if err := validateParsers(cfg.Parsers); err != nil {
		errs = append(errs, err)
	}

	if err := validateTags(&cfg.Tags); err != nil {
		errs = append(errs, err)
	}

	if err := validateExtract(&cfg.Extract); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateFields(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		if fe.Param() != "" {
			errs = append(errs, fmt.Errorf("%w: %s must satisfy %s=%s, got '%v'", ErrInvalidField, field, fe.Tag(), fe.Param(), fe.Value()))
			continue
		}
		errs = append(errs, fmt.Errorf("%w: %s is %s", ErrInvalidField, field, fe.Tag()))
	}
	return joinErrors(errs)
}

func validateSyntaxes(syntaxes []SyntaxConfig) error {
	var errs []error
	seen := make(map[string]bool)

	for _, s := range syntaxes {
		name := strings.ToLower(strings.TrimSpace(s.Name))
		if name == "" {
			continue // reported by the struct rules
		}
		if seen[name] {
			errs = append(errs, fmt.Errorf("%w: duplicate profile '%s'", ErrInvalidSyntax, s.Name))
		}
		seen[name] = true

		if s.Open != "" && s.Open == s.DocMarker {
			errs = append(errs, fmt.Errorf("%w: %s: doc_marker must differ from open", ErrInvalidSyntax, s.Name))
		}
	}

	if len(syntaxes) > 0 && !seen[extraction.DefaultSyntax] {
		errs = append(errs, fmt.Errorf("%w: add a profile named '%s'", ErrMissingDefaultSyntax, extraction.DefaultSyntax))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateParsers(parsers map[string]string) error {
	var bad []string
	for tag, kind := range parsers {
		if _, ok := extraction.ParserKinds[strings.ToLower(kind)]; !ok {
			bad = append(bad, fmt.Sprintf("%s: %s", tag, kind))
		}
	}
	if len(bad) == 0 {
		return nil
	}
	slices.Sort(bad)
	return fmt.Errorf("%w: %s (valid: %s)", ErrUnknownParserKind, strings.Join(bad, ", "), strings.Join(parserKindNames(), ", "))
}

func validateTags(cfg *TagsConfig) error {
	repeatable := make(map[string]bool, len(cfg.Repeatable))
	for _, t := range cfg.Repeatable {
		repeatable[strings.ToLower(t)] = true
	}

	var errs []error
	for _, t := range cfg.Singular {
		if repeatable[strings.ToLower(t)] {
			errs = append(errs, fmt.Errorf("%w: '%s' is both repeatable and singular", ErrTagConflict, t))
		}
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateExtract(cfg *ExtractConfig) error {
	if cfg.Encoding == "" {
		return nil
	}
	if _, err := ianaindex.IANA.Encoding(cfg.Encoding); err != nil {
		return fmt.Errorf("%w: '%s'", ErrInvalidEncoding, cfg.Encoding)
	}
	return nil
}

func parserKindNames() []string {
	names := make([]string, 0, len(extraction.ParserKinds))
	for name := range extraction.ParserKinds {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// joinErrors combines multiple errors into a single error with clear formatting.
// The result wraps every input, so errors.Is works for each sentinel.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}

	return &validationError{msg: "validation failed:\n  - " + strings.Join(msgs, "\n  - "), errs: errs}
}

type validationError struct {
	msg  string
	errs []error
}

func (e *validationError) Error() string   { return e.msg }
func (e *validationError) Unwrap() []error { return e.errs }
