// FILE: ai4one/config/schema_test.go
package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testData struct {
	Name  string `toml:"name" default:"hello"`
	Folds []int  `toml:"folds"`
	Date  []int  `toml:"date"`
}

type testModel struct{}

type testTrain struct {
	Device string `toml:"device" default:"auto" choices:"auto,gpu,cpu"`
}

type testConfig struct {
	Data  testData  `toml:"data"`
	Model testModel `toml:"model"`
	Train testTrain `toml:"train"`
	Mode  string    `toml:"mode" default:"train" choices:"train,test,predict"`
}

// requiredArgs supplies the leaves of testConfig that have no default.
var requiredArgs = []string{"--folds", "2", "3", "--date", "1999", "9", "9"}

func leafPaths(s *Schema) []string {
	var paths []string
	for _, f := range s.Leaves() {
		paths = append(paths, f.Path)
	}
	return paths
}

func TestSchemaReflection(t *testing.T) {
	s, err := SchemaOf[testConfig]()
	require.NoError(t, err)

	t.Run("LeavesInDeclarationOrder", func(t *testing.T) {
		assert.Equal(t, []string{"data.name", "data.folds", "data.date", "train.device", "mode"}, leafPaths(s))
	})

	t.Run("CompositeNodes", func(t *testing.T) {
		n, ok := s.Lookup("data")
		require.True(t, ok)
		assert.Equal(t, KindComposite, n.Kind)
		assert.Len(t, n.Children, 3)

		model, ok := s.Lookup("model")
		require.True(t, ok)
		assert.Equal(t, KindComposite, model.Kind)
		assert.Empty(t, model.Children)

		assert.Len(t, s.Root().Children, 4)
	})

	t.Run("FieldDescriptors", func(t *testing.T) {
		n, ok := s.Lookup("data.name")
		require.True(t, ok)
		require.NotNil(t, n.Field)
		assert.False(t, n.Field.Required())
		assert.Equal(t, "hello", n.Field.DefaultText())
		assert.Equal(t, "name", n.Field.Flag)

		folds, _ := s.Lookup("data.folds")
		assert.True(t, folds.Field.Required())
		assert.True(t, folds.Field.IsList())

		device, _ := s.Lookup("train.device")
		assert.Equal(t, []string{"auto", "gpu", "cpu"}, device.Field.Choices())
		assert.Nil(t, folds.Field.Choices())
	})

	t.Run("FlagAndPathAddressSameField", func(t *testing.T) {
		short, ok := s.FieldByFlag("name")
		require.True(t, ok)
		long, ok := s.FieldByFlag("data.name")
		require.True(t, ok)
		assert.Same(t, short, long)

		_, ok = s.FieldByFlag("missing")
		assert.False(t, ok)
	})

	t.Run("FromValueAndPointer", func(t *testing.T) {
		fromValue, err := NewSchema(testConfig{})
		require.NoError(t, err)
		fromPtr, err := NewSchema(&testConfig{})
		require.NoError(t, err)
		assert.Equal(t, leafPaths(fromValue), leafPaths(fromPtr))
		assert.Equal(t, s.Type(), fromPtr.Type())
	})
}

func TestSchemaTags(t *testing.T) {
	t.Run("SkipAndUnexported", func(t *testing.T) {
		type cfg struct {
			Kept    string `toml:"kept" default:"x"`
			Skipped string `toml:"-"`
			hidden  string
		}
		s, err := SchemaOf[cfg]()
		require.NoError(t, err)
		assert.Equal(t, []string{"kept"}, leafPaths(s))
	})

	t.Run("FieldNameWithoutTag", func(t *testing.T) {
		type cfg struct {
			Level int `default:"3"`
		}
		s, err := SchemaOf[cfg]()
		require.NoError(t, err)
		assert.Equal(t, []string{"Level"}, leafPaths(s))
	})

	t.Run("CustomTagName", func(t *testing.T) {
		type cfg struct {
			Host string `json:"hostname" default:"localhost"`
		}
		s, err := SchemaOf[cfg](WithTagName("json"))
		require.NoError(t, err)
		assert.Equal(t, []string{"hostname"}, leafPaths(s))
	})

	t.Run("PointerSection", func(t *testing.T) {
		type server struct {
			Host string `toml:"host" default:"localhost"`
		}
		type cfg struct {
			Server *server `toml:"server"`
		}
		s, err := SchemaOf[cfg]()
		require.NoError(t, err)
		n, ok := s.Lookup("server")
		require.True(t, ok)
		assert.True(t, n.Pointer)
		assert.Equal(t, []string{"server.host"}, leafPaths(s))
	})

	t.Run("DistinctFlagTag", func(t *testing.T) {
		type a struct {
			Name string `toml:"name" default:"a"`
		}
		type b struct {
			Name string `toml:"name" default:"b" flag:"b-name"`
		}
		type cfg struct {
			A a `toml:"a"`
			B b `toml:"b"`
		}
		s, err := SchemaOf[cfg]()
		require.NoError(t, err)
		f, ok := s.FieldByFlag("b-name")
		require.True(t, ok)
		assert.Equal(t, "b.name", f.Path)
	})

	t.Run("WithDefaultFactory", func(t *testing.T) {
		s, err := SchemaOf[testConfig](WithDefault("data.folds", func() any { return []int{1, 2} }))
		require.NoError(t, err)
		n, _ := s.Lookup("data.folds")
		assert.False(t, n.Field.Required())
		assert.Equal(t, "[1 2]", n.Field.DefaultText())
	})
}

func TestSchemaDefinitionErrors(t *testing.T) {
	type cyclic struct {
		Name string  `toml:"name" default:"x"`
		Next *cyclic `toml:"next"`
	}
	type collide struct {
		A struct {
			Name string `toml:"name" default:"a"`
		} `toml:"a"`
		B struct {
			Name string `toml:"name" default:"b"`
		} `toml:"b"`
	}
	type duplicate struct {
		One string `toml:"same" default:"1"`
		Two string `toml:"same" default:"2"`
	}
	type badDefault struct {
		Port int `toml:"port" default:"abc"`
	}
	type badChoice struct {
		Level int `toml:"level" default:"1" choices:"1,x"`
	}
	type defaultOutsideChoices struct {
		Mode string `toml:"mode" default:"x" choices:"a,b"`
	}
	type badRule struct {
		Port int `toml:"port" default:"1" validate:"notarule"`
	}
	type defaultFailsRule struct {
		Port int `toml:"port" default:"0" validate:"min=1"`
	}
	type mapField struct {
		Labels map[string]string `toml:"labels"`
	}
	type timeField struct {
		Started time.Time `toml:"started"`
	}
	type badKey struct {
		Name string `toml:"na me" default:"x"`
	}

	tests := []struct {
		name   string
		schema any
		opts   []SchemaOption
	}{
		{"Cycle", cyclic{}, nil},
		{"FlagCollision", collide{}, nil},
		{"DuplicateKey", duplicate{}, nil},
		{"DefaultNotCoercible", badDefault{}, nil},
		{"ChoiceNotCoercible", badChoice{}, nil},
		{"DefaultOutsideChoices", defaultOutsideChoices{}, nil},
		{"MalformedRule", badRule{}, nil},
		{"DefaultFailsRule", defaultFailsRule{}, nil},
		{"MapField", mapField{}, nil},
		{"TimeField", timeField{}, nil},
		{"InvalidKey", badKey{}, nil},
		{"NotAStruct", 42, nil},
		{"Nil", nil, nil},
		{"DefaultForUnknownPath", testConfig{}, []SchemaOption{WithDefault("data.nope", func() any { return 1 })}},
		{"DefaultForComposite", testConfig{}, []SchemaOption{WithDefault("data", func() any { return 1 })}},
		{"InvalidFactoryDefault", testConfig{}, []SchemaOption{WithDefault("mode", func() any { return "deploy" })}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSchema(tt.schema, tt.opts...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDefinition), "got %v", err)

			var defErr *DefinitionError
			assert.True(t, errors.As(err, &defErr))
		})
	}

	t.Run("CollisionNamesBothPaths", func(t *testing.T) {
		_, err := NewSchema(collide{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "a.name")
		assert.Contains(t, err.Error(), "b.name")
	})
}
