// File: ai4one/config/doc.go

// Package config loads typed, hierarchical configuration structs from three
// layers: declared defaults, an optional JSON, YAML or TOML file, and
// command-line flags synthesized from the struct itself.
//
// Quick Start:
//
//	type DataConfig struct {
//	    Name  string `toml:"name" default:"hello"`
//	    Folds []int  `toml:"folds"`
//	}
//
//	type TrainConfig struct {
//	    Device string `toml:"device" default:"auto" choices:"auto,gpu,cpu"`
//	}
//
//	type Config struct {
//	    Data  DataConfig  `toml:"data"`
//	    Train TrainConfig `toml:"train"`
//	    Mode  string      `toml:"mode" default:"train" choices:"train,test,predict"`
//	}
//
//	cfg, err := config.Parse[Config](os.Args[1:])
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = config.ToFile("config.yaml", cfg)
//
// Command line:
//
//	prog --device gpu --name demo --folds 2 3 --mode test
//	prog --config-file ./config.yaml --data.name other
//
// Every leaf answers to its own key (--name) and to its dotted path
// (--data.name). Two leaves with the same key are rejected when the schema is
// reflected unless one of them sets a distinct `flag` tag. List leaves take
// all tokens up to the next flag.
//
// Precedence (highest to lowest):
//  1. Command-line arguments
//  2. Configuration file (--config-file, or Builder.WithFile)
//  3. Default values (`default` tag or WithDefault factory)
//
// A leaf with no default that no layer supplies fails the load with a
// MissingFieldError. Values outside a `choices` set, or failing a `validate`
// rule, fail with a ValidationError. All load errors carry the offending path
// and match a sentinel (ErrParse, ErrCoercion, ...) through errors.Is.
//
// The package keeps no global state: each load reflects its own schema and
// returns an instance owned by the caller.
package config
