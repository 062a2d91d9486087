package main

import (
	"fmt"
	"os"

	"github.com/sunnmoony/aistock-assistant-sun/internal/cli"
	"github.com/sunnmoony/aistock-assistant-sun/internal/config"
	"github.com/sunnmoony/aistock-assistant-sun/internal/logging"
)

func main() {
	cfg, err := config.Load(configFlag(os.Args[1:]))
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLoggerWithConfig(logging.LogConfig{
		Level:      cfg.Logging.Level,
		Console:    cfg.Logging.Console,
		File:       cfg.Logging.File,
		FilePath:   cfg.Logging.FilePath,
		MaxSize:    100,
		MaxBackups: 7,
		MaxAge:     30,
	})

	rootCmd := cli.NewRootCmd(cfg, logger)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// configFlag scans args for --config before cobra parses them, so the config
// file can drive logger construction.
func configFlag(args []string) string {
	for i, arg := range args {
		switch {
		case arg == "--config" && i+1 < len(args):
			return args[i+1]
		case len(arg) > len("--config=") && arg[:len("--config=")] == "--config=":
			return arg[len("--config="):]
		}
	}
	return ""
}
