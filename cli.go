// FILE: ai4one/config/cli.go
package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

// DefaultConfigFlag is the reserved flag naming the file merged before
// command-line values.
const DefaultConfigFlag = "config-file"

// ParseArgs turns command-line arguments into the CLI override layer.
//
// Each leaf answers to --<flag> and --<dotted.path>, with the value either
// attached (--mode=test) or in the next token (--mode test). List leaves take
// every following token up to the next "--" token (--folds 2 3). Bool leaves
// may be given bare. The reserved configFlag is not a leaf: its value is
// returned as the config file path. Only flags present in args appear in the
// returned Overrides.
func (s *Schema) ParseArgs(args []string, configFlag string) (Overrides, string, error) {
	configFlag = strings.TrimLeft(configFlag, "-")
	if configFlag == "" {
		configFlag = DefaultConfigFlag
	}
	if err := s.checkReserved(configFlag); err != nil {
		return nil, "", err
	}

	cli := make(Overrides)
	var configPath string

	for i := 0; i < len(args); {
		arg := args[i]
		if arg == "-h" || arg == "--help" {
			return nil, "", ErrHelp
		}
		if !strings.HasPrefix(arg, "--") || arg == "--" {
			return nil, "", &ParseError{Token: arg, Reason: "unexpected argument"}
		}
		i++

		name, value, hasValue := strings.Cut(arg[2:], "=")
		if name == "" {
			return nil, "", &ParseError{Token: arg, Reason: "empty flag name"}
		}

		if name == configFlag {
			if !hasValue {
				if i >= len(args) || isFlagToken(args[i]) {
					return nil, "", &ParseError{Token: arg, Reason: "missing file path"}
				}
				value = args[i]
				i++
			}
			if value == "" {
				return nil, "", &ParseError{Token: arg, Reason: "empty file path"}
			}
			configPath = value
			continue
		}

		f, ok := s.names[name]
		if !ok {
			return nil, "", &ParseError{Token: arg, Reason: "unknown flag"}
		}

		switch {
		case f.IsList():
			var values []string
			if hasValue {
				if value != "" {
					values = strings.Split(value, ",")
				}
			} else {
				for i < len(args) && !isFlagToken(args[i]) {
					values = append(values, args[i])
					i++
				}
				if len(values) == 0 {
					return nil, "", &ParseError{Token: arg, Path: f.Path, Reason: "expects one or more values"}
				}
			}
			prev, _ := cli[f.Path].([]string)
			cli[f.Path] = append(prev, values...)

		case f.isBool():
			if !hasValue {
				value = "true"
				if i < len(args) && !isFlagToken(args[i]) {
					if _, err := strconv.ParseBool(args[i]); err == nil {
						value = args[i]
						i++
					}
				}
			}
			cli[f.Path] = value

		default:
			if !hasValue {
				if i >= len(args) || isFlagToken(args[i]) {
					return nil, "", &ParseError{Token: arg, Path: f.Path, Reason: "missing value"}
				}
				value = args[i]
				i++
			}
			cli[f.Path] = value
		}
	}

	return cli, configPath, nil
}

// checkReserved rejects schemas whose leaves shadow the config-file or help flags.
func (s *Schema) checkReserved(configFlag string) error {
	for _, name := range []string{configFlag, "help"} {
		if f, taken := s.names[name]; taken {
			return &DefinitionError{
				Type:   s.typ,
				Path:   f.Path,
				Reason: fmt.Sprintf("flag --%s is reserved", name),
			}
		}
	}
	return nil
}

func isFlagToken(s string) bool {
	return strings.HasPrefix(s, "--")
}

// Usage renders the synthesized flag surface as help text.
func (s *Schema) Usage(configFlag string) string {
	configFlag = strings.TrimLeft(configFlag, "-")
	if configFlag == "" {
		configFlag = DefaultConfigFlag
	}

	fs := pflag.NewFlagSet(s.typ.Name(), pflag.ContinueOnError)
	fs.SortFlags = false
	// A leaf owning the name makes ParseArgs fail; list the leaf rather than
	// redefine the flag.
	if _, taken := s.names[configFlag]; !taken {
		fs.String(configFlag, "", "JSON, YAML or TOML file merged before command-line values")
	}

	for _, f := range s.leaves {
		usage := f.Usage
		if usage == "" {
			usage = "Config: " + f.Path
		}
		if len(f.choiceText) > 0 {
			usage += fmt.Sprintf(" (one of: %s)", strings.Join(f.choiceText, "|"))
		}
		if f.Required() {
			usage += " (required)"
		}
		flag := fs.VarPF(&usageValue{typ: typeLabel(f.Type), def: f.defaultText}, f.Flag, "", usage)
		if f.isBool() {
			flag.NoOptDefVal = "true"
		}
	}

	return fs.FlagUsages()
}

// usageValue is a display-only pflag.Value carrying a field's type label and default.
type usageValue struct {
	typ string
	def string
}

func (u *usageValue) String() string     { return u.def }
func (u *usageValue) Set(v string) error { u.def = v; return nil }
func (u *usageValue) Type() string       { return u.typ }

func typeLabel(t reflect.Type) string {
	if t.Kind() == reflect.Slice {
		return typeLabel(t.Elem()) + "s"
	}
	if t == durationType {
		return "duration"
	}
	switch {
	case isIntKind(t.Kind()):
		return "int"
	case isUintKind(t.Kind()):
		return "uint"
	case t.Kind() == reflect.Float32 || t.Kind() == reflect.Float64:
		return "float"
	}
	return t.Kind().String()
}
