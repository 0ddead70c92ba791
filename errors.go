// FILE: ai4one/config/errors.go
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Error categories. Every typed error below matches exactly one of these
// through errors.Is, so callers can branch without type assertions.
var (
	ErrDefinition        = errors.New("invalid config definition")
	ErrParse             = errors.New("failed to parse command-line arguments")
	ErrCoercion          = errors.New("cannot coerce value")
	ErrValidation        = errors.New("value not allowed")
	ErrMissingField      = errors.New("missing required field")
	ErrUnsupportedFormat = errors.New("unsupported config file format")
	ErrConfigNotFound    = errors.New("configuration file not found")

	// ErrHelp is returned when -h or --help is present in the arguments.
	ErrHelp = errors.New("help requested")
)

// DefinitionError reports a malformed or cyclic schema declaration.
type DefinitionError struct {
	Type   reflect.Type
	Path   string // empty when the problem is not tied to one field
	Reason string
}

func (e *DefinitionError) Error() string {
	var b strings.Builder
	b.WriteString(ErrDefinition.Error())
	if e.Type != nil {
		fmt.Fprintf(&b, " %s", e.Type)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " at %q", e.Path)
	}
	fmt.Fprintf(&b, ": %s", e.Reason)
	return b.String()
}

func (e *DefinitionError) Is(target error) bool { return target == ErrDefinition }

// ParseError reports malformed command-line input.
type ParseError struct {
	Token  string
	Path   string // set when the token was matched to a field
	Reason string
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (token %q, path %s)", ErrParse, e.Reason, e.Token, e.Path)
	}
	return fmt.Sprintf("%s: %s (token %q)", ErrParse, e.Reason, e.Token)
}

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// CoercionError reports a value that cannot be converted to the field type.
type CoercionError struct {
	Path string
	Raw  any
	Type reflect.Type
	Err  error
}

func (e *CoercionError) Error() string {
	msg := fmt.Sprintf("%s %s for path %s", ErrCoercion, formatRaw(e.Raw), e.Path)
	if e.Type != nil {
		msg += fmt.Sprintf(" to %s", e.Type)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CoercionError) Is(target error) bool { return target == ErrCoercion }
func (e *CoercionError) Unwrap() error        { return e.Err }

// ValidationError reports a well-typed value rejected by the field's
// allowed-value set or validation rule.
type ValidationError struct {
	Path    string
	Value   any
	Allowed []string // allowed-value set, when that is what rejected the value
	Rule    string   // validator rule, when that is what rejected the value
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Rule != "" {
		return fmt.Sprintf("%s: path %s value %s fails rule %q", ErrValidation, e.Path, formatRaw(e.Value), e.Rule)
	}
	return fmt.Sprintf("%s: path %s value %s, must be one of [%s]",
		ErrValidation, e.Path, formatRaw(e.Value), strings.Join(e.Allowed, ", "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
func (e *ValidationError) Unwrap() error        { return e.Err }

// MissingFieldError reports a required leaf that no layer supplied.
type MissingFieldError struct {
	Path string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingField, e.Path)
}

func (e *MissingFieldError) Is(target error) bool { return target == ErrMissingField }

// UnsupportedFormatError reports a config file whose extension maps to no codec.
type UnsupportedFormatError struct {
	Path string
	Ext  string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Ext == "" {
		return fmt.Sprintf("%s: %s has no extension", ErrUnsupportedFormat, e.Path)
	}
	return fmt.Sprintf("%s %q: %s", ErrUnsupportedFormat, e.Ext, e.Path)
}

func (e *UnsupportedFormatError) Is(target error) bool { return target == ErrUnsupportedFormat }

func formatRaw(v any) string {
	switch t := v.(type) {
	case string:
		return fmt.Sprintf("%q", t)
	case []string:
		return fmt.Sprintf("%q", t)
	default:
		return fmt.Sprintf("%v", v)
	}
}
