package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"sheetlens/internal/app"
	"sheetlens/internal/config"
	"sheetlens/pkg/contracts"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (defaults to sheetlens.yaml or configs/sheetlens.yaml)")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(contracts.GetFullVersionString())
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	application, err := app.NewApplication(cfg)
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
