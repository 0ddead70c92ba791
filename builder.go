// File: ai4one/config/builder.go
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"reflect"
	"strings"
)

// ValidatorFunc validates the fully merged configuration.
type ValidatorFunc[T any] func(cfg *T) error

// Builder provides a fluent interface for loading a configuration of type T.
type Builder[T any] struct {
	schemaOpts []SchemaOption
	args       []string
	file       string
	configFlag string
	validators []ValidatorFunc[T]
	logger     *slog.Logger
	usageOut   io.Writer
	sources    map[string]Source
}

// NewBuilder creates a builder reading os.Args[1:] with the default
// --config-file flag.
func NewBuilder[T any]() *Builder[T] {
	return &Builder[T]{
		args:       os.Args[1:],
		configFlag: DefaultConfigFlag,
		validators: make([]ValidatorFunc[T], 0),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		usageOut:   os.Stderr,
	}
}

// WithArgs sets the command-line arguments. nil means no command-line layer.
func (b *Builder[T]) WithArgs(args []string) *Builder[T] {
	b.args = args
	return b
}

// WithFile sets a configuration file used when the arguments name none.
func (b *Builder[T]) WithFile(path string) *Builder[T] {
	b.file = path
	return b
}

// WithConfigFlag renames the reserved flag that names the configuration file.
func (b *Builder[T]) WithConfigFlag(name string) *Builder[T] {
	if name = strings.TrimLeft(name, "-"); name != "" {
		b.configFlag = name
	}
	return b
}

// WithTagName sets the struct tag used for keys (default "toml").
func (b *Builder[T]) WithTagName(name string) *Builder[T] {
	b.schemaOpts = append(b.schemaOpts, WithTagName(name))
	return b
}

// WithDefault attaches a default factory to the leaf at path.
func (b *Builder[T]) WithDefault(path string, factory func() any) *Builder[T] {
	b.schemaOpts = append(b.schemaOpts, WithDefault(path, factory))
	return b
}

// WithValidator adds a validation function that runs at the end of the build process
// Multiple validators can be added and are executed in the order they are added
func (b *Builder[T]) WithValidator(fn ValidatorFunc[T]) *Builder[T] {
	if fn != nil {
		b.validators = append(b.validators, fn)
	}
	return b
}

// WithLogger sets the logger used to report file loading and ignored keys.
func (b *Builder[T]) WithLogger(logger *slog.Logger) *Builder[T] {
	if logger != nil {
		b.logger = logger
	}
	return b
}

// WithUsageOutput sets where help text is written on -h/--help.
func (b *Builder[T]) WithUsageOutput(w io.Writer) *Builder[T] {
	if w != nil {
		b.usageOut = w
	}
	return b
}

// Build reflects the schema of T, which must be a struct type, parses the
// arguments, loads the file layer if one is named and merges everything into
// a new *T.
func (b *Builder[T]) Build() (*T, error) {
	if t := reflect.TypeFor[T](); t.Kind() != reflect.Struct {
		return nil, &DefinitionError{Type: t, Reason: "builder type must be a struct type, not a pointer or other kind"}
	}
	schema, err := SchemaOf[T](b.schemaOpts...)
	if err != nil {
		return nil, err
	}

	cli, configPath, err := schema.ParseArgs(b.args, b.configFlag)
	if err != nil {
		if errors.Is(err, ErrHelp) {
			fmt.Fprintf(b.usageOut, "Usage of %s:\n%s", schema.Type().Name(), schema.Usage(b.configFlag))
		}
		return nil, err
	}
	if configPath == "" {
		configPath = b.file
	}

	var file Overrides
	if configPath != "" {
		var unknown []string
		file, unknown, err = schema.ReadFile(configPath)
		if err != nil {
			return nil, err
		}
		for _, key := range unknown {
			b.logger.Warn("ignoring unknown config key", "file", configPath, "key", key)
		}
		b.logger.Debug("config file loaded", "file", configPath, "fields", len(file))
	}

	res, err := schema.Merge(file, cli)
	if err != nil {
		return nil, err
	}
	b.logger.Debug("configuration merged", "type", schema.Type().String(), "cli", len(cli), "file", len(file))

	cfg := res.Value.(*T)
	for _, validator := range b.validators {
		if err := validator(cfg); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	b.sources = res.Sources
	return cfg, nil
}

// MustBuild is like Build but panics on error
func (b *Builder[T]) MustBuild() *T {
	cfg, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("config build failed: %v", err))
	}
	return cfg
}

// Sources reports which layer supplied each leaf in the last successful Build.
func (b *Builder[T]) Sources() map[string]Source {
	return maps.Clone(b.sources)
}
