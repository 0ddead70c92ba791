// FILE: ai4one/config/schema.go
package config

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Struct tags read while reflecting a schema, in addition to the key tag
// (see WithTagName).
const (
	tagDefault  = "default"
	tagChoices  = "choices"
	tagValidate = "validate"
	tagFlag     = "flag"
	tagUsage    = "usage"

	defaultTagName = "toml"
)

var (
	durationType = reflect.TypeOf(time.Duration(0))
	timeType     = reflect.TypeOf(time.Time{})
)

// NodeKind distinguishes nested configuration sections from value fields.
type NodeKind int

const (
	// KindComposite is a nested struct; it has child nodes.
	KindComposite NodeKind = iota
	// KindLeaf is a scalar or list value.
	KindLeaf
)

// Node is one element of the schema tree.
type Node struct {
	Key      string
	Path     string
	Kind     NodeKind
	Type     reflect.Type // struct type for composites, field type for leaves
	Pointer  bool         // composite declared as a pointer to struct
	Children []*Node
	Field    *Field // nil for composites

	index int // field index in the parent struct
}

// Field describes a single leaf: its flag, its declared type, its default
// and the constraints applied to it.
type Field struct {
	Key   string
	Path  string
	Flag  string
	Usage string
	Type  reflect.Type
	Rule  string // go-playground/validator rule

	choices     []any    // allowed values, coerced to the element type
	choiceText  []string // allowed values as declared
	defaultFn   func() any
	defaultText string
	validate    *validator.Validate
}

// Required reports whether the field has no default and must be supplied by
// the file or the command line.
func (f *Field) Required() bool { return f.defaultFn == nil }

// IsList reports whether the field holds a slice.
func (f *Field) IsList() bool { return f.Type.Kind() == reflect.Slice }

// Choices returns the allowed-value set as declared, or nil when unconstrained.
func (f *Field) Choices() []string {
	if len(f.choiceText) == 0 {
		return nil
	}
	out := make([]string, len(f.choiceText))
	copy(out, f.choiceText)
	return out
}

// DefaultText returns the textual form of the default shown in help output.
func (f *Field) DefaultText() string { return f.defaultText }

func (f *Field) elemType() reflect.Type {
	if f.IsList() {
		return f.Type.Elem()
	}
	return f.Type
}

func (f *Field) isBool() bool { return f.Type.Kind() == reflect.Bool }

// Schema is the reflected, immutable tree of a configuration struct type.
type Schema struct {
	typ     reflect.Type
	tagName string
	root    *Node
	leaves  []*Field
	nodes   map[string]*Node  // path -> node
	names   map[string]*Field // short flag or dotted path -> leaf
}

// SchemaOption customizes schema reflection.
type SchemaOption func(*schemaOptions)

type schemaOptions struct {
	tagName  string
	defaults map[string]func() any
}

// WithTagName sets the struct tag used for keys (default "toml").
func WithTagName(name string) SchemaOption {
	return func(o *schemaOptions) {
		if name != "" {
			o.tagName = name
		}
	}
}

// WithDefault attaches a default factory to the leaf at path. The factory is
// called once per materialized instance, so it must return a fresh value;
// it may return either a typed value or its textual form.
func WithDefault(path string, factory func() any) SchemaOption {
	return func(o *schemaOptions) {
		if o.defaults == nil {
			o.defaults = make(map[string]func() any)
		}
		o.defaults[path] = factory
	}
}

// SchemaOf reflects the schema of T, which must be a struct type.
func SchemaOf[T any](opts ...SchemaOption) (*Schema, error) {
	return NewSchema(reflect.TypeFor[T](), opts...)
}

// NewSchema reflects the schema of v, which may be a struct value, a pointer
// to a struct or a reflect.Type of either.
func NewSchema(v any, opts ...SchemaOption) (*Schema, error) {
	var t reflect.Type
	switch x := v.(type) {
	case nil:
		return nil, &DefinitionError{Reason: "nil schema"}
	case reflect.Type:
		t = x
	default:
		t = reflect.TypeOf(v)
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, &DefinitionError{Type: t, Reason: "schema must be a struct or struct pointer"}
	}

	o := schemaOptions{tagName: defaultTagName}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Schema{
		typ:     t,
		tagName: o.tagName,
		nodes:   make(map[string]*Node),
		names:   make(map[string]*Field),
	}
	r := &reflector{schema: s, validate: validator.New(), expanding: make(map[reflect.Type]bool)}

	children, err := r.expand(t, "")
	if err != nil {
		return nil, err
	}
	s.root = &Node{Kind: KindComposite, Type: t, Children: children}

	if err := r.attachDefaults(o.defaults); err != nil {
		return nil, err
	}
	if err := r.indexFlags(); err != nil {
		return nil, err
	}
	return s, nil
}

// Type returns the struct type the schema was reflected from.
func (s *Schema) Type() reflect.Type { return s.typ }

// Root returns the root composite node.
func (s *Schema) Root() *Node { return s.root }

// Leaves returns every leaf in declaration order.
func (s *Schema) Leaves() []*Field {
	out := make([]*Field, len(s.leaves))
	copy(out, s.leaves)
	return out
}

// Lookup returns the node registered at the dotted path.
func (s *Schema) Lookup(path string) (*Node, bool) {
	n, ok := s.nodes[path]
	return n, ok
}

// FieldByFlag returns the leaf addressed by a flag name or dotted path.
func (s *Schema) FieldByFlag(name string) (*Field, bool) {
	f, ok := s.names[name]
	return f, ok
}

type reflector struct {
	schema    *Schema
	validate  *validator.Validate
	expanding map[reflect.Type]bool
}

// expand walks the exported fields of struct type t, recursing into nested
// structs. A struct type met again while it is still being expanded is a cycle.
func (r *reflector) expand(t reflect.Type, prefix string) ([]*Node, error) {
	if r.expanding[t] {
		return nil, &DefinitionError{Type: t, Path: strings.TrimSuffix(prefix, "."), Reason: "cyclic schema: type nests itself"}
	}
	r.expanding[t] = true
	defer delete(r.expanding, t)

	var nodes []*Node
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}

		tag := sf.Tag.Get(r.schema.tagName)
		if tag == "-" {
			continue
		}
		key := sf.Name
		if tag != "" {
			if name, _, _ := strings.Cut(tag, ","); name != "" {
				key = name
			}
		}
		path := prefix + key

		if !isValidKeySegment(key) {
			return nil, &DefinitionError{Type: t, Path: path, Reason: fmt.Sprintf("invalid key %q", key)}
		}
		if _, dup := r.schema.nodes[path]; dup {
			return nil, &DefinitionError{Type: t, Path: path, Reason: "duplicate key"}
		}

		ft := sf.Type
		isPtrToStruct := ft.Kind() == reflect.Ptr && ft.Elem().Kind() == reflect.Struct
		if ft.Kind() == reflect.Struct || isPtrToStruct {
			st := ft
			if isPtrToStruct {
				st = ft.Elem()
			}
			if st == timeType {
				return nil, &DefinitionError{Type: t, Path: path, Reason: fmt.Sprintf("unsupported field type %s", ft)}
			}
			n := &Node{Key: key, Path: path, Kind: KindComposite, Type: st, Pointer: isPtrToStruct, index: i}
			r.schema.nodes[path] = n
			children, err := r.expand(st, path+".")
			if err != nil {
				return nil, err
			}
			n.Children = children
			nodes = append(nodes, n)
			continue
		}

		f, err := r.leaf(t, sf, key, path)
		if err != nil {
			return nil, err
		}
		n := &Node{Key: key, Path: path, Kind: KindLeaf, Type: ft, Field: f, index: i}
		r.schema.nodes[path] = n
		r.schema.leaves = append(r.schema.leaves, f)
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func (r *reflector) leaf(parent reflect.Type, sf reflect.StructField, key, path string) (*Field, error) {
	if !isLeafType(sf.Type) {
		return nil, &DefinitionError{Type: parent, Path: path, Reason: fmt.Sprintf("unsupported field type %s", sf.Type)}
	}

	f := &Field{
		Key:   key,
		Path:  path,
		Flag:  key,
		Usage: sf.Tag.Get(tagUsage),
		Type:  sf.Type,
		Rule:  sf.Tag.Get(tagValidate),
	}
	if flag := strings.TrimLeft(sf.Tag.Get(tagFlag), "-"); flag != "" {
		f.Flag = flag
	}
	if !isValidKeySegment(f.Flag) {
		return nil, &DefinitionError{Type: parent, Path: path, Reason: fmt.Sprintf("invalid flag name %q", f.Flag)}
	}

	if f.Rule != "" {
		f.validate = r.validate
		if err := checkRule(r.validate, f); err != nil {
			return nil, &DefinitionError{Type: parent, Path: path, Reason: err.Error()}
		}
	}

	if raw, ok := sf.Tag.Lookup(tagChoices); ok {
		for _, text := range strings.Split(raw, ",") {
			text = strings.TrimSpace(text)
			v, err := coerceValue(text, f.elemType(), path)
			if err != nil {
				return nil, &DefinitionError{Type: parent, Path: path, Reason: fmt.Sprintf("choice %q is not a valid %s", text, f.elemType())}
			}
			f.choices = append(f.choices, v)
			f.choiceText = append(f.choiceText, text)
		}
	}

	if text, ok := sf.Tag.Lookup(tagDefault); ok {
		f.defaultText = text
		f.defaultFn = func() any { return text }
		if err := r.checkDefault(parent, f); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// checkDefault resolves the default once so that a bad declaration fails at
// reflection time instead of on the first load that relies on it.
func (r *reflector) checkDefault(parent reflect.Type, f *Field) error {
	if _, err := f.resolve(f.defaultFn()); err != nil {
		return &DefinitionError{Type: parent, Path: f.Path, Reason: fmt.Sprintf("invalid default: %v", err)}
	}
	return nil
}

func (r *reflector) attachDefaults(defaults map[string]func() any) error {
	paths := make([]string, 0, len(defaults))
	for p := range defaults {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		n, ok := r.schema.nodes[p]
		if !ok || n.Kind != KindLeaf {
			return &DefinitionError{Type: r.schema.typ, Path: p, Reason: "default factory for unknown leaf"}
		}
		factory := defaults[p]
		if factory == nil {
			return &DefinitionError{Type: r.schema.typ, Path: p, Reason: "nil default factory"}
		}
		n.Field.defaultFn = factory
		n.Field.defaultText = fmt.Sprintf("%v", factory())
		if err := r.checkDefault(r.schema.typ, n.Field); err != nil {
			return err
		}
	}
	return nil
}

// indexFlags registers every leaf under its short flag and its dotted path.
// Two leaves claiming the same name is a definition error.
func (r *reflector) indexFlags() error {
	for _, f := range r.schema.leaves {
		for _, name := range []string{f.Flag, f.Path} {
			if other, taken := r.schema.names[name]; taken && other != f {
				return &DefinitionError{
					Type:   r.schema.typ,
					Path:   f.Path,
					Reason: fmt.Sprintf("flag --%s collides with %s; set a distinct `flag` tag", name, other.Path),
				}
			}
			r.schema.names[name] = f
		}
	}
	return nil
}

// checkRule runs the validator once on the zero value; malformed rules panic
// inside the validator and are reported as errors instead.
func checkRule(v *validator.Validate, f *Field) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("invalid validate rule %q: %v", f.Rule, p)
		}
	}()
	_ = v.Var(reflect.Zero(f.Type).Interface(), f.Rule)
	return nil
}

func isLeafType(t reflect.Type) bool {
	if t.Kind() == reflect.Slice {
		return isScalarKind(t.Elem().Kind())
	}
	return isScalarKind(t.Kind())
}

func isScalarKind(k reflect.Kind) bool {
	switch k {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
