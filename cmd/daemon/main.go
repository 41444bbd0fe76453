// Copyright (c) 2025 Johndevils
// Licensed under the PolyForm Noncommercial License 1.0.0
// This software is restricted to non-commercial use only.

// Command arsynox serves the Arsynox web player and its companion tools.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Johndevils/Arsynox-streaming/internal/app/bootstrap"
	alog "github.com/Johndevils/Arsynox-streaming/internal/log"
	"github.com/Johndevils/Arsynox-streaming/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 {
		switch args[0] {
		case "config":
			return runConfigCLI(args[1:], stdout, stderr)
		case "healthcheck":
			return runHealthcheckCLI(args[1:], stdout, stderr)
		case "probe":
			return runProbeCLI(args[1:], stdout, stderr)
		case "normalize":
			return runNormalizeCLI(args[1:], stdout, stderr)
		case "version":
			_, _ = fmt.Fprintln(stdout, version.String())
			return 0
		}
	}

	fs := flag.NewFlagSet("arsynox", flag.ContinueOnError)
	fs.SetOutput(stderr)
	showVersion := fs.Bool("version", false, "print version and exit")
	configPath := fs.String("config", "", "path to config file (YAML); defaults to $"+bootstrap.EnvConfigPath)
	fs.Usage = func() { printUsage(stderr, fs) }
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *showVersion {
		_, _ = fmt.Fprintln(stdout, version.String())
		return 0
	}
	if fs.NArg() > 0 {
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n\n", fs.Arg(0))
		printUsage(stderr, fs)
		return 2
	}
	return serve(*configPath)
}

func serve(configPath string) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, err := bootstrap.WireServices(ctx, configPath)
	if err != nil {
		logger := alog.WithComponent("daemon")
		logger.Error().
			Err(err).
			Str(alog.FieldEvent, "startup.failed").
			Msg("failed to initialize services")
		return 1
	}

	if err := container.Run(ctx); err != nil {
		container.Logger.Error().
			Err(err).
			Str(alog.FieldEvent, "manager.failed").
			Msg("daemon app failed")
		return 1
	}

	container.Logger.Info().Msg("server exiting")
	return 0
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	_, _ = fmt.Fprintln(w, "Usage:")
	_, _ = fmt.Fprintln(w, "  arsynox [--config config.yaml]          run the server")
	_, _ = fmt.Fprintln(w, "  arsynox config validate|dump|init        manage configuration")
	_, _ = fmt.Fprintln(w, "  arsynox normalize [--base URL] <url>...  print canonical URLs and types")
	_, _ = fmt.Fprintln(w, "  arsynox probe [--timeout 15s] <url>     try to play a stream headlessly")
	_, _ = fmt.Fprintln(w, "  arsynox healthcheck [--mode ready|live]  probe a running server")
	_, _ = fmt.Fprintln(w, "  arsynox version")
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Flags:")
	fs.PrintDefaults()
}
