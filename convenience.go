// File: ai4one/config/convenience.go
package config

import (
	"fmt"
	"reflect"
	"strings"
)

// Parse builds T from defaults, the file named by --config-file (if any) and
// the remaining arguments.
func Parse[T any](args []string) (*T, error) {
	return NewBuilder[T]().WithArgs(args).Build()
}

// MustParse is like Parse but panics on error
func MustParse[T any](args []string) *T {
	return NewBuilder[T]().WithArgs(args).MustBuild()
}

// FromFile builds T from defaults and the file at path, without a command-line layer.
func FromFile[T any](path string) (*T, error) {
	return NewBuilder[T]().WithArgs(nil).WithFile(path).Build()
}

// ToFile writes cfg, a struct or struct pointer, to path in the format implied
// by the extension.
func ToFile(path string, cfg any) error {
	schema, err := NewSchema(cfg)
	if err != nil {
		return err
	}
	return schema.WriteFile(path, cfg)
}

// Debug returns a formatted string showing every leaf of cfg in declaration
// order, with the layer it came from when sources is non-nil.
func Debug(cfg any, sources map[string]Source) (string, error) {
	schema, err := NewSchema(cfg)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("Configuration Debug Info:\n")
	for _, f := range schema.leaves {
		v, err := schema.Get(cfg, f.Path)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "  %s = %v", f.Path, v)
		if src, ok := sources[f.Path]; ok {
			fmt.Fprintf(&b, " (%s)", src)
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

// Get reads the leaf at path from an instance of the schema type.
func (s *Schema) Get(cfg any, path string) (any, error) {
	n, ok := s.nodes[path]
	if !ok || n.Kind != KindLeaf {
		return nil, fmt.Errorf("path not registered: %s", path)
	}

	rv := reflect.ValueOf(cfg)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, fmt.Errorf("cannot read %s from nil %T", path, cfg)
		}
		rv = rv.Elem()
	}
	if rv.Type() != s.typ {
		return nil, fmt.Errorf("cannot read %s from %s with schema of %s", path, rv.Type(), s.typ)
	}

	current := s.root
	for _, segment := range strings.Split(path, ".") {
		var next *Node
		for _, c := range current.Children {
			if c.Key == segment {
				next = c
				break
			}
		}
		rv = rv.Field(next.index)
		if next.Kind == KindComposite && next.Pointer {
			if rv.IsNil() {
				return nil, fmt.Errorf("section %s is nil", next.Path)
			}
			rv = rv.Elem()
		}
		current = next
	}
	return rv.Interface(), nil
}
