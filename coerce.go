// FILE: ai4one/config/coerce.go
package config

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Coerce converts raw into a value of the field's declared type. raw may be
// command-line text (string or []string) or a value decoded from a file.
func (f *Field) Coerce(raw any) (any, error) {
	v, err := coerceValue(raw, f.Type, f.Path)
	if err != nil {
		return nil, &CoercionError{Path: f.Path, Raw: raw, Type: f.Type, Err: err}
	}
	return v, nil
}

// Validate checks an already coerced value against the allowed-value set and
// the validate rule. List values are checked element by element.
func (f *Field) Validate(v any) error {
	if len(f.choices) > 0 {
		if f.IsList() {
			rv := reflect.ValueOf(v)
			for i := 0; i < rv.Len(); i++ {
				if elem := rv.Index(i).Interface(); !f.allowed(elem) {
					return &ValidationError{Path: f.Path, Value: elem, Allowed: f.Choices()}
				}
			}
		} else if !f.allowed(v) {
			return &ValidationError{Path: f.Path, Value: v, Allowed: f.Choices()}
		}
	}

	if f.Rule != "" && f.validate != nil {
		if err := f.validate.Var(v, f.Rule); err != nil {
			return &ValidationError{Path: f.Path, Value: v, Rule: f.Rule, Err: err}
		}
	}
	return nil
}

// resolve is the single entry point used by the merge engine: coerce, then validate.
func (f *Field) resolve(raw any) (any, error) {
	v, err := f.Coerce(raw)
	if err != nil {
		return nil, err
	}
	if err := f.Validate(v); err != nil {
		return nil, err
	}
	return v, nil
}

func (f *Field) allowed(v any) bool {
	for _, c := range f.choices {
		if reflect.DeepEqual(c, v) {
			return true
		}
	}
	return false
}

// coerceValue decodes raw into a fresh value of type t. Slices are always
// newly allocated, so no two results share a backing array. name labels the
// value in decoder messages.
func coerceValue(raw any, t reflect.Type, name string) (any, error) {
	if raw == nil {
		return nil, errors.New("null value")
	}
	if name == "" {
		name = "value"
	}

	// A one-field holder keyed by name makes the decoder report the path
	// instead of an empty field name.
	holder := reflect.StructOf([]reflect.StructField{{
		Name: "Value",
		Type: t,
		Tag:  reflect.StructTag(`mapstructure:"` + name + `"`),
	}})
	out := reflect.New(holder)
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out.Interface(),
		WeaklyTypedInput: true,
		DecodeHook:       coercionHook(),
	})
	if err != nil {
		return nil, fmt.Errorf("decoder creation failed: %w", err)
	}
	if err := decoder.Decode(map[string]any{name: raw}); err != nil {
		var decodeErr *mapstructure.Error
		if errors.As(err, &decodeErr) {
			return nil, errors.New(strings.Join(decodeErr.Errors, "; "))
		}
		return nil, err
	}

	value := out.Elem().Field(0)
	// Lists are never nil once loaded
	if t.Kind() == reflect.Slice && value.IsNil() {
		value.Set(reflect.MakeSlice(t, 0, 0))
	}
	return value.Interface(), nil
}

// coercionHook returns the composite decode hook for leaf conversions.
func coercionHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		strictScalarHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// strictScalarHookFunc closes the gaps weakly typed decoding leaves open:
// blank strings for numbers and bools, non-decimal integer text, fractional
// floats into integers, numbers that do not fit the target width, and bools
// rendered as "1"/"0". Integer targets always receive an int64 or uint64.
func strictScalarHookFunc() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		fromKind, toKind := from.Kind(), to.Kind()
		v := reflect.ValueOf(data)

		if fromKind == reflect.String && (isNumericKind(toKind) || toKind == reflect.Bool) {
			if strings.TrimSpace(v.String()) == "" {
				return nil, fmt.Errorf("empty value for %s", to)
			}
		}
		if to == durationType {
			return data, nil
		}

		switch {
		case isIntKind(toKind):
			return toInt(v, to)
		case isUintKind(toKind):
			return toUint(v, to)
		case toKind == reflect.Float32:
			return toFloat32(v, to)
		case toKind == reflect.String && fromKind == reflect.Bool:
			return strconv.FormatBool(v.Bool()), nil
		}
		return data, nil
	}
}

func toInt(v reflect.Value, to reflect.Type) (any, error) {
	var n int64
	switch k := v.Kind(); {
	case k == reflect.String:
		parsed, err := strconv.ParseInt(v.String(), 10, 64)
		if errors.Is(err, strconv.ErrRange) {
			return nil, outOfRange(v.String(), to)
		}
		if err != nil {
			return nil, fmt.Errorf("%q is not a base-10 integer", v.String())
		}
		n = parsed
	case isIntKind(k):
		n = v.Int()
	case isUintKind(k):
		if v.Uint() > math.MaxInt64 {
			return nil, outOfRange(v.Uint(), to)
		}
		n = int64(v.Uint())
	case isFloatKind(k):
		f := v.Float()
		if f != math.Trunc(f) {
			return nil, fmt.Errorf("%v is not an integer", f)
		}
		// float64(math.MaxInt64) rounds up to 2^63
		if f < math.MinInt64 || f >= math.MaxInt64 {
			return nil, outOfRange(f, to)
		}
		n = int64(f)
	default:
		return v.Interface(), nil
	}

	if reflect.Zero(to).OverflowInt(n) {
		return nil, outOfRange(n, to)
	}
	return n, nil
}

func toUint(v reflect.Value, to reflect.Type) (any, error) {
	var n uint64
	switch k := v.Kind(); {
	case k == reflect.String:
		text := v.String()
		if strings.HasPrefix(strings.TrimSpace(text), "-") {
			return nil, fmt.Errorf("%s is negative", text)
		}
		parsed, err := strconv.ParseUint(text, 10, 64)
		if errors.Is(err, strconv.ErrRange) {
			return nil, outOfRange(text, to)
		}
		if err != nil {
			return nil, fmt.Errorf("%q is not a base-10 integer", text)
		}
		n = parsed
	case isIntKind(k):
		if v.Int() < 0 {
			return nil, fmt.Errorf("%d is negative", v.Int())
		}
		n = uint64(v.Int())
	case isUintKind(k):
		n = v.Uint()
	case isFloatKind(k):
		f := v.Float()
		if f != math.Trunc(f) {
			return nil, fmt.Errorf("%v is not an integer", f)
		}
		if f < 0 {
			return nil, fmt.Errorf("%v is negative", f)
		}
		// float64(math.MaxUint64) rounds up to 2^64
		if f >= math.MaxUint64 {
			return nil, outOfRange(f, to)
		}
		n = uint64(f)
	default:
		return v.Interface(), nil
	}

	if reflect.Zero(to).OverflowUint(n) {
		return nil, outOfRange(n, to)
	}
	return n, nil
}

// toFloat32 only range-checks; text that is not a number is left to the decoder.
func toFloat32(v reflect.Value, to reflect.Type) (any, error) {
	var f float64
	switch k := v.Kind(); {
	case k == reflect.String:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v.String()), 64)
		if errors.Is(err, strconv.ErrRange) {
			return nil, outOfRange(v.String(), to)
		}
		if err != nil {
			return v.Interface(), nil
		}
		f = parsed
	case isFloatKind(k):
		f = v.Float()
	default:
		return v.Interface(), nil
	}
	if reflect.Zero(to).OverflowFloat(f) {
		return nil, outOfRange(v.Interface(), to)
	}
	return v.Interface(), nil
}

func outOfRange(v any, to reflect.Type) error {
	return fmt.Errorf("%v is out of range for %s", v, to)
}

func isIntKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isUintKind(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func isFloatKind(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

func isNumericKind(k reflect.Kind) bool {
	return isIntKind(k) || isUintKind(k) || isFloatKind(k)
}
