// FILE: ai4one/config/merge.go
package config

import (
	"errors"
	"reflect"
)

// Result is the outcome of one merge pass.
type Result struct {
	// Value is a pointer to a newly allocated instance of the schema type.
	Value any
	// Sources records which layer supplied each leaf path.
	Sources map[string]Source
}

type layer struct {
	source Source
	values Overrides
}

// Merge resolves every leaf with precedence defaults < file < cli and returns
// a fresh instance. Either layer may be nil. Each resolved value is coerced
// and validated once, from the representation its layer holds. All failures
// are reported together; a failed value never falls back to its default.
func (s *Schema) Merge(file, cli Overrides) (*Result, error) {
	// Highest precedence first
	layers := []layer{
		{source: SourceCLI, values: cli},
		{source: SourceFile, values: file},
	}

	root := reflect.New(s.typ)
	res := &Result{
		Value:   root.Interface(),
		Sources: make(map[string]Source, len(s.leaves)),
	}

	var errs []error
	s.mergeNodes(root.Elem(), s.root.Children, layers, res, &errs)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return res, nil
}

func (s *Schema) mergeNodes(dst reflect.Value, nodes []*Node, layers []layer, res *Result, errs *[]error) {
	for _, n := range nodes {
		fv := dst.Field(n.index)

		if n.Kind == KindComposite {
			target := fv
			if n.Pointer {
				p := reflect.New(n.Type)
				fv.Set(p)
				target = p.Elem()
			}
			s.mergeNodes(target, n.Children, layers, res, errs)
			continue
		}

		v, source, err := resolveLeaf(n.Field, layers)
		if err != nil {
			*errs = append(*errs, err)
			continue
		}
		fv.Set(reflect.ValueOf(v))
		res.Sources[n.Path] = source
	}
}

func resolveLeaf(f *Field, layers []layer) (any, Source, error) {
	for _, l := range layers {
		if raw, ok := l.values[f.Path]; ok {
			v, err := f.resolve(raw)
			return v, l.source, err
		}
	}
	if f.defaultFn != nil {
		v, err := f.resolve(f.defaultFn())
		return v, SourceDefault, err
	}
	return nil, "", &MissingFieldError{Path: f.Path}
}
