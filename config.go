// FILE: ai4one/config/config.go
package config

import (
	"sort"
	"strings"
)

// Source identifies the layer a resolved value came from.
type Source string

const (
	// SourceDefault represents use of declared default values
	SourceDefault Source = "default"
	// SourceFile represents values loaded from a configuration file
	SourceFile Source = "file"
	// SourceCLI represents values loaded from command-line arguments
	SourceCLI Source = "cli"
)

// Overrides is a sparse map from dotted leaf path to raw value. A path is
// present only if its source set it explicitly.
type Overrides map[string]any

// Get returns the raw value set for path.
func (o Overrides) Get(path string) (any, bool) {
	v, ok := o[path]
	return v, ok
}

// Set records a raw value for path.
func (o Overrides) Set(path string, value any) {
	o[path] = value
}

// Paths returns the set paths in sorted order, optionally filtered by prefix.
func (o Overrides) Paths(prefix string) []string {
	paths := make([]string, 0, len(o))
	for p := range o {
		if strings.HasPrefix(p, prefix) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths
}

// Nested expands the flat paths back into a tree of maps.
func (o Overrides) Nested() map[string]any {
	nested := make(map[string]any)
	for path, value := range o {
		setNestedValue(nested, path, value)
	}
	return nested
}
