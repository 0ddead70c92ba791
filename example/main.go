// FILE: ai4one/config/example/main.go
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ai4one/config"
)

type DataConfig struct {
	Name  string `toml:"name" default:"hello"`
	Folds []int  `toml:"folds" usage:"Cross-validation folds"`
	Date  []int  `toml:"date" usage:"Date as year month day"`
}

type ModelConfig struct{}

type TrainConfig struct {
	Device string `toml:"device" default:"auto" choices:"auto,gpu,cpu"`
}

type Config struct {
	Data  DataConfig  `toml:"data"`
	Model ModelConfig `toml:"model"`
	Train TrainConfig `toml:"train"`
	Mode  string      `toml:"mode" default:"train" choices:"train,test,predict"`
}

const savePath = "./ai4one_config.json"

// Usage:
//
//	go run ./example --device gpu --name ai4one --folds 2 3 --mode test --date 1999 9 9
//	go run ./example --config-file ./ai4one_config.json --name other
//	go run ./example --config-file ./ai4one_config.json --date 2025 8 1
func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	builder := config.NewBuilder[Config]().WithLogger(logger)
	cfg, err := builder.Build()
	if err != nil {
		if errors.Is(err, config.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	printData("1", cfg)

	info, err := config.Debug(cfg, builder.Sources())
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(info)

	if err := config.ToFile(savePath, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to save config: %v\n", err)
		os.Exit(1)
	}
	logger.Info("configuration saved", "file", savePath)

	reloaded, err := config.FromFile[Config](savePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to reload config: %v\n", err)
		os.Exit(1)
	}
	printData("2", reloaded)
}

func printData(title string, cfg *Config) {
	pad := strings.Repeat("=", 9)
	fmt.Printf("%s%s%s\n", pad, title, pad)
	fmt.Println(cfg.Data.Name)
	fmt.Println(cfg.Data.Folds)
	fmt.Println(cfg.Data.Date)
}
