// FILE: ai4one/config/codec.go
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format names a supported file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath determines the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml", ".tml":
		return FormatTOML, nil
	}
	return "", &UnsupportedFormatError{Path: path, Ext: ext}
}

// Decode parses data into a nested map. The shape is the same for every
// format: maps of maps, lists and scalars.
func Decode(data []byte, format Format) (map[string]any, error) {
	tree := make(map[string]any)
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("failed to parse TOML config: %w", err)
		}
	case FormatJSON:
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.UseNumber() // Preserve number precision
		if err := decoder.Decode(&tree); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	default:
		return nil, &UnsupportedFormatError{Ext: string(format)}
	}
	return tree, nil
}

// Encode serializes a nested map in the given format.
func Encode(tree map[string]any, format Format) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case FormatTOML:
		if err := checkTOMLIntegers(tree, ""); err != nil {
			return nil, err
		}
		if err := toml.NewEncoder(&buf).Encode(tree); err != nil {
			return nil, fmt.Errorf("failed to marshal config data to TOML: %w", err)
		}
	case FormatJSON:
		encoder := json.NewEncoder(&buf)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(tree); err != nil {
			return nil, fmt.Errorf("failed to marshal config data to JSON: %w", err)
		}
	case FormatYAML:
		encoder := yaml.NewEncoder(&buf)
		encoder.SetIndent(2)
		if err := encoder.Encode(tree); err != nil {
			return nil, fmt.Errorf("failed to marshal config data to YAML: %w", err)
		}
		if err := encoder.Close(); err != nil {
			return nil, fmt.Errorf("failed to marshal config data to YAML: %w", err)
		}
	default:
		return nil, &UnsupportedFormatError{Ext: string(format)}
	}
	return buf.Bytes(), nil
}

// checkTOMLIntegers rejects unsigned values above math.MaxInt64, which TOML
// integers cannot hold and which would not load back.
func checkTOMLIntegers(tree map[string]any, prefix string) error {
	for key, value := range tree {
		path := prefix + key
		if section, ok := asMap(value); ok {
			if err := checkTOMLIntegers(section, path+"."); err != nil {
				return err
			}
			continue
		}
		values := []any{value}
		if list, ok := value.([]any); ok {
			values = list
		}
		for _, v := range values {
			if u, ok := v.(uint64); ok && u > math.MaxInt64 {
				return &CoercionError{Path: path, Raw: u, Err: fmt.Errorf("%d exceeds the TOML integer range", u)}
			}
		}
	}
	return nil
}

// Tree converts an instance of the schema type into nested maps keyed like
// the schema. Leaves are reduced to plain bools, strings, int64, uint64,
// float64 and []any; durations become their string form.
func (s *Schema) Tree(v any) (map[string]any, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, fmt.Errorf("cannot encode nil %s", rv.Type())
		}
		rv = rv.Elem()
	}
	if rv.Type() != s.typ {
		return nil, fmt.Errorf("cannot encode %s with schema of %s", rv.Type(), s.typ)
	}
	return s.tree(rv, s.root.Children), nil
}

func (s *Schema) tree(rv reflect.Value, nodes []*Node) map[string]any {
	out := make(map[string]any, len(nodes))
	for _, n := range nodes {
		fv := rv.Field(n.index)
		if n.Kind == KindComposite {
			if n.Pointer {
				if fv.IsNil() {
					out[n.Key] = map[string]any{}
					continue
				}
				fv = fv.Elem()
			}
			out[n.Key] = s.tree(fv, n.Children)
			continue
		}
		out[n.Key] = encodeLeaf(fv)
	}
	return out
}

func encodeLeaf(v reflect.Value) any {
	if v.Kind() == reflect.Slice {
		list := make([]any, v.Len())
		for i := range list {
			list[i] = encodeScalar(v.Index(i))
		}
		return list
	}
	return encodeScalar(v)
}

func encodeScalar(v reflect.Value) any {
	if v.Type() == durationType {
		return time.Duration(v.Int()).String()
	}
	switch k := v.Kind(); {
	case k == reflect.Bool:
		return v.Bool()
	case k == reflect.String:
		return v.String()
	case isIntKind(k):
		return v.Int()
	case isUintKind(k):
		return v.Uint()
	case k == reflect.Float32 || k == reflect.Float64:
		return v.Float()
	}
	return v.Interface()
}

// Flatten maps a decoded tree onto the schema, producing the file override
// layer. Keys the schema does not know are returned separately; a scalar where
// a section is expected is a coercion error for that section.
func (s *Schema) Flatten(tree map[string]any) (Overrides, []string, error) {
	out := make(Overrides)
	var unknown []string
	if err := s.flatten(tree, s.root, out, &unknown); err != nil {
		return nil, nil, err
	}
	sort.Strings(unknown)
	return out, unknown, nil
}

func (s *Schema) flatten(tree map[string]any, parent *Node, out Overrides, unknown *[]string) error {
	children := make(map[string]*Node, len(parent.Children))
	for _, n := range parent.Children {
		children[n.Key] = n
	}

	for key, value := range tree {
		n, ok := children[key]
		if !ok {
			path := key
			if parent.Path != "" {
				path = parent.Path + "." + key
			}
			*unknown = append(*unknown, path)
			continue
		}
		if n.Kind == KindLeaf {
			out[n.Path] = value
			continue
		}
		section, ok := asMap(value)
		if !ok {
			return &CoercionError{Path: n.Path, Raw: value, Type: n.Type, Err: fmt.Errorf("expected a table, got %T", value)}
		}
		if err := s.flatten(section, n, out, unknown); err != nil {
			return err
		}
	}
	return nil
}
