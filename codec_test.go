// FILE: ai4one/config/codec_test.go
package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"config.json", FormatJSON},
		{"config.yaml", FormatYAML},
		{"config.yml", FormatYAML},
		{"CONFIG.YAML", FormatYAML},
		{"dir/config.toml", FormatTOML},
		{"config.tml", FormatTOML},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatFromPath(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("Unsupported", func(t *testing.T) {
		for _, path := range []string{"config.ini", "config", "config.json.bak"} {
			_, err := FormatFromPath(path)
			assert.True(t, errors.Is(err, ErrUnsupportedFormat), path)
		}
	})
}

func TestRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()

	for _, ext := range []string{"json", "yaml", "toml"} {
		for _, device := range []string{"auto", "gpu", "cpu"} {
			t.Run(ext+"_"+device, func(t *testing.T) {
				original := &testConfig{
					Data:  testData{Name: "ai4one", Folds: []int{}, Date: []int{1999, 9, 9}},
					Train: testTrain{Device: device},
					Mode:  "predict",
				}
				path := filepath.Join(tmpDir, device+"."+ext)
				require.NoError(t, ToFile(path, original))

				loaded, err := FromFile[testConfig](path)
				require.NoError(t, err)
				assert.Equal(t, original.Data.Name, loaded.Data.Name)
				assert.Empty(t, loaded.Data.Folds)
				assert.NotNil(t, loaded.Data.Folds)
				assert.Equal(t, original.Data.Date, loaded.Data.Date)
				assert.Equal(t, device, loaded.Train.Device)
				assert.Equal(t, "predict", loaded.Mode)
			})
		}
	}

	t.Run("AllScalarKinds", func(t *testing.T) {
		for _, ext := range []string{"json", "yaml", "toml"} {
			original := &typedConfig{
				Port:    9000,
				Ratio:   0.25,
				Debug:   true,
				Workers: 16,
				Name:    "svc",
				Timeout: 90 * time.Second,
				Folds:   []int{1, 2, 3},
				Tags:    []string{"b", "c"},
				Big:     1 << 40,
			}
			path := filepath.Join(tmpDir, "typed."+ext)
			require.NoError(t, ToFile(path, original))

			loaded, err := FromFile[typedConfig](path)
			require.NoError(t, err, ext)
			assert.Equal(t, original, loaded, ext)
		}
	})
}

func TestRoundTripUint64Limit(t *testing.T) {
	type limits struct {
		Max   uint64   `toml:"max" default:"0"`
		Seeds []uint64 `toml:"seeds" default:""`
	}
	type cfg struct {
		Limits limits `toml:"limits"`
	}
	original := &cfg{Limits: limits{Max: math.MaxUint64, Seeds: []uint64{1, math.MaxUint64}}}
	tmpDir := t.TempDir()

	for _, ext := range []string{"json", "yaml"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(tmpDir, "limits."+ext)
			require.NoError(t, ToFile(path, original))

			loaded, err := FromFile[cfg](path)
			require.NoError(t, err)
			assert.Equal(t, original, loaded)
		})
	}

	t.Run("toml", func(t *testing.T) {
		path := filepath.Join(tmpDir, "limits.toml")
		err := ToFile(path, original)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrCoercion))

		var coerceErr *CoercionError
		require.True(t, errors.As(err, &coerceErr))
		assert.Contains(t, []string{"limits.max", "limits.seeds"}, coerceErr.Path)
		assert.NoFileExists(t, path)
	})

	t.Run("tomlWithinInt64", func(t *testing.T) {
		fits := &cfg{Limits: limits{Max: math.MaxInt64, Seeds: []uint64{}}}
		path := filepath.Join(tmpDir, "fits.toml")
		require.NoError(t, ToFile(path, fits))

		loaded, err := FromFile[cfg](path)
		require.NoError(t, err)
		assert.Equal(t, fits, loaded)
	})
}

func TestDecode(t *testing.T) {
	t.Run("SameShapeAcrossFormats", func(t *testing.T) {
		inputs := map[Format]string{
			FormatJSON: `{"data": {"name": "n", "folds": [1, 2]}, "mode": "test"}`,
			FormatYAML: "data:\n  name: n\n  folds: [1, 2]\nmode: test\n",
			FormatTOML: "mode = \"test\"\n[data]\nname = \"n\"\nfolds = [1, 2]\n",
		}
		s, err := SchemaOf[testConfig]()
		require.NoError(t, err)

		for format, input := range inputs {
			tree, err := Decode([]byte(input), format)
			require.NoError(t, err, format)

			layer, unknown, err := s.Flatten(tree)
			require.NoError(t, err, format)
			assert.Empty(t, unknown)
			assert.ElementsMatch(t, []string{"data.name", "data.folds", "mode"}, layer.Paths(""))

			folds, err := mustField(t, s, "data.folds").Coerce(layer["data.folds"])
			require.NoError(t, err)
			assert.Equal(t, []int{1, 2}, folds, format)
		}
	})

	t.Run("Malformed", func(t *testing.T) {
		for _, format := range []Format{FormatJSON, FormatYAML, FormatTOML} {
			_, err := Decode([]byte("{{ not valid = ["), format)
			assert.Error(t, err, format)
		}
	})

	t.Run("UnknownFormat", func(t *testing.T) {
		_, err := Decode([]byte("{}"), Format("ini"))
		assert.True(t, errors.Is(err, ErrUnsupportedFormat))
		_, err = Encode(map[string]any{}, Format("ini"))
		assert.True(t, errors.Is(err, ErrUnsupportedFormat))
	})
}

func TestTree(t *testing.T) {
	s, err := SchemaOf[typedConfig]()
	require.NoError(t, err)

	tree, err := s.Tree(&typedConfig{Port: 1, Workers: 2, Timeout: time.Minute, Folds: []int{4}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), tree["port"])
	assert.Equal(t, uint64(2), tree["workers"])
	assert.Equal(t, "1m0s", tree["timeout"])
	assert.Equal(t, []any{int64(4)}, tree["folds"])
	assert.Equal(t, []any{}, tree["tags"])

	_, err = s.Tree(&testConfig{})
	assert.Error(t, err)

	var nilCfg *typedConfig
	_, err = s.Tree(nilCfg)
	assert.Error(t, err)
}

func TestFlatten(t *testing.T) {
	s, err := SchemaOf[testConfig]()
	require.NoError(t, err)

	t.Run("UnknownKeys", func(t *testing.T) {
		tree := map[string]any{
			"bogus": true,
			"data":  map[string]any{"name": "x", "extra": 1},
			"model": map[string]any{"layers": 3},
		}
		layer, unknown, err := s.Flatten(tree)
		require.NoError(t, err)
		assert.Equal(t, []string{"bogus", "data.extra", "model.layers"}, unknown)
		assert.Equal(t, Overrides{"data.name": "x"}, layer)
	})

	t.Run("ScalarWhereTableExpected", func(t *testing.T) {
		_, _, err := s.Flatten(map[string]any{"data": "oops"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrCoercion))

		var coerceErr *CoercionError
		require.True(t, errors.As(err, &coerceErr))
		assert.Equal(t, "data", coerceErr.Path)
	})

	t.Run("YAMLInterfaceKeyedMap", func(t *testing.T) {
		layer, _, err := s.Flatten(map[string]any{"train": map[any]any{"device": "gpu"}})
		require.NoError(t, err)
		assert.Equal(t, "gpu", layer["train.device"])
	})
}

func mustField(t *testing.T, s *Schema, path string) *Field {
	t.Helper()
	n, ok := s.Lookup(path)
	require.True(t, ok, path)
	require.NotNil(t, n.Field, path)
	return n.Field
}

func TestReadFile(t *testing.T) {
	s, err := SchemaOf[testConfig]()
	require.NoError(t, err)
	tmpDir := t.TempDir()

	t.Run("Missing", func(t *testing.T) {
		_, _, err := s.ReadFile(filepath.Join(tmpDir, "absent.yaml"))
		assert.True(t, errors.Is(err, ErrConfigNotFound))
	})

	t.Run("FormatCheckedBeforeIO", func(t *testing.T) {
		_, _, err := s.ReadFile(filepath.Join(tmpDir, "absent.ini"))
		assert.True(t, errors.Is(err, ErrUnsupportedFormat))
		assert.False(t, errors.Is(err, ErrConfigNotFound))
	})

	t.Run("MalformedNamesFile", func(t *testing.T) {
		path := filepath.Join(tmpDir, "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("{"), 0644))
		_, _, err := s.ReadFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), path)
	})
}

func TestRoundTripDeeplyNested(t *testing.T) {
	type level string
	type inner struct {
		Level level    `toml:"level" default:"low" choices:"low,high"`
		Ids   []uint16 `toml:"ids" default:""`
	}
	type middle struct {
		Inner   inner     `toml:"inner"`
		Enabled bool      `toml:"enabled" default:"true"`
		Weights []float64 `toml:"weights" default:"0.5,1.5"`
	}
	type root struct {
		Middle *middle `toml:"middle"`
		Label  string  `toml:"label" default:""`
	}

	original := &root{
		Middle: &middle{
			Inner:   inner{Level: "high", Ids: []uint16{7, 65535}},
			Enabled: false,
			Weights: []float64{},
		},
		Label: "deep",
	}

	tmpDir := t.TempDir()
	for _, ext := range []string{"json", "yaml", "toml"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(tmpDir, "deep."+ext)
			require.NoError(t, ToFile(path, original))

			loaded, err := FromFile[root](path)
			require.NoError(t, err)
			assert.Equal(t, original, loaded)
		})
	}
}
