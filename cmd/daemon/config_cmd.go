// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/Johndevils/Arsynox-streaming/internal/app/bootstrap"
	"github.com/Johndevils/Arsynox-streaming/internal/config"
	"github.com/Johndevils/Arsynox-streaming/internal/version"
)

func runConfigCLI(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printConfigUsage(stderr)
		return 0
	}

	switch args[0] {
	case "validate":
		return runConfigValidate(args[1:], stdout, stderr)
	case "dump":
		return runConfigDump(args[1:], stdout, stderr)
	case "init":
		return runConfigInit(args[1:], stdout, stderr)
	default:
		_, _ = fmt.Fprintf(stderr, "Unknown subcommand: %s\n\n", args[0])
		printConfigUsage(stderr)
		return 2
	}
}

func printConfigUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Usage:")
	_, _ = fmt.Fprintln(w, "  arsynox config validate [--file|-f config.yaml]")
	_, _ = fmt.Fprintln(w, "  arsynox config dump [--file|-f config.yaml] [--format=yaml|json]")
	_, _ = fmt.Fprintln(w, "  arsynox config init [--file|-f config.yaml] [--force]")
}

func fileFlags(fs *flag.FlagSet, file *string) {
	fs.StringVar(file, "file", "", "path to YAML configuration file")
	fs.StringVar(file, "f", "", "path to YAML configuration file (shorthand)")
}

// loadEffective loads defaults + file + env. An empty file falls back to
// $ARSYNOX_CONFIG, then to env-only configuration.
func loadEffective(file string, stderr io.Writer) (config.AppConfig, string, int) {
	configPath, err := bootstrap.ResolveConfigPath(file)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return config.AppConfig{}, "", 2
	}
	cfg, err := config.NewLoader(configPath, version.Version).Load()
	if err != nil {
		source := configPath
		if source == "" {
			source = "environment"
		}
		_, _ = fmt.Fprintf(stderr, "Configuration error in %s:\n  %v\n", source, err)
		return cfg, configPath, 1
	}
	return cfg, configPath, 0
}

func runConfigValidate(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("arsynox config validate", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var file string
	fileFlags(fs, &file)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	_, configPath, code := loadEffective(file, stderr)
	if code != 0 {
		return code
	}
	if configPath == "" {
		configPath = "environment configuration"
	}
	_, _ = fmt.Fprintf(stdout, "✓ %s is valid\n", configPath)
	return 0
}

func runConfigDump(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("arsynox config dump", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var file, format string
	fileFlags(fs, &file)
	fs.StringVar(&format, "format", "yaml", "output format: yaml or json")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, _, code := loadEffective(file, stderr)
	if code != 0 {
		return code
	}
	cfg = cfg.Redacted()

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "yaml", "yml":
		data, err := config.Marshal(cfg)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Failed to encode YAML: %v\n", err)
			return 1
		}
		_, _ = stdout.Write(data)
		return 0
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(cfg); err != nil {
			_, _ = fmt.Fprintf(stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	default:
		_, _ = fmt.Fprintf(stderr, "Unsupported format: %s (use yaml or json)\n", format)
		return 2
	}
}

func runConfigInit(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("arsynox config init", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var file string
	var force bool
	fileFlags(fs, &file)
	fs.BoolVar(&force, "force", false, "overwrite an existing file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if strings.TrimSpace(file) == "" {
		file = "config.yaml"
	}

	if err := config.WriteFile(file, config.Default(), force); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(stdout, "✓ wrote default configuration to %s\n", file)
	return 0
}
