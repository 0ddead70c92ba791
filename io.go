// File: ai4one/config/io.go
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ReadFile loads the file layer from path. The format is chosen by extension
// before any I/O, so an unsupported extension never touches the disk.
// Keys unknown to the schema are returned for the caller to report.
func (s *Schema) ReadFile(path string) (Overrides, []string, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, nil, fmt.Errorf("failed to open config file '%s': %w", path, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	tree, err := Decode(data, format)
	if err != nil {
		return nil, nil, fmt.Errorf("config file '%s': %w", path, err)
	}
	return s.Flatten(tree)
}

// WriteFile serializes the instance v to path in the format implied by the
// extension, replacing the file atomically.
func (s *Schema) WriteFile(path string, v any) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	tree, err := s.Tree(v)
	if err != nil {
		return err
	}
	data, err := Encode(tree, format)
	if err != nil {
		return err
	}
	return atomicWriteFile(path, data)
}

// WriteOverrides saves a single sparse layer, e.g. only what the command line set.
func (s *Schema) WriteOverrides(path string, o Overrides) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	for _, p := range o.Paths("") {
		if n, ok := s.nodes[p]; !ok || n.Kind != KindLeaf {
			return fmt.Errorf("path not registered: %s", p)
		}
	}
	data, err := Encode(o.Nested(), format)
	if err != nil {
		return err
	}
	return atomicWriteFile(path, data)
}

// atomicWriteFile performs atomic file write. The temporary file is closed
// and removed on every error path.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory '%s': %w", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file in '%s': %w", dir, err)
	}

	tempPath := tempFile.Name()
	removed := false
	defer func() {
		if !removed {
			os.Remove(tempPath)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to write temp config file '%s': %w", tempPath, err)
	}

	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to sync temp config file '%s': %w", tempPath, err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp config file '%s': %w", tempPath, err)
	}

	if err := os.Chmod(tempPath, 0644); err != nil {
		return fmt.Errorf("failed to set permissions on temporary config file '%s': %w", tempPath, err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file '%s' to '%s': %w", tempPath, path, err)
	}
	removed = true

	return nil
}
