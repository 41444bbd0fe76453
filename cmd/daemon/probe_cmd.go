package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Johndevils/Arsynox-streaming/internal/app/bootstrap"
	"github.com/Johndevils/Arsynox-streaming/internal/headless"
	"github.com/Johndevils/Arsynox-streaming/internal/normalize"
	"github.com/Johndevils/Arsynox-streaming/internal/proxy"
)

func runProbeCLI(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("arsynox probe", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var file string
	fileFlags(fs, &file)
	timeout := fs.Duration("timeout", 0, "probe timeout (defaults to probe.timeout from config)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		_, _ = fmt.Fprintln(stderr, "Usage: arsynox probe [--file config.yaml] [--timeout 15s] <url>")
		return 2
	}

	cfg, _, code := loadEffective(file, stderr)
	if code != 0 {
		return code
	}
	if *timeout > 0 {
		cfg.Probe.Timeout = *timeout
	}

	n, err := normalize.New(cfg.Server.PublicURL)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	guard := proxy.NewHostGuard(bootstrap.OutboundPolicy(cfg.Proxy), nil, nil, cfg.Proxy.DecisionTTL)
	prober := bootstrap.NewProber(cfg, n, guard)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Probe.Timeout+5*time.Second)
	defer cancel()

	res, err := prober.Probe(ctx, fs.Arg(0))
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(res)
	if res.Outcome != headless.OutcomePlaying {
		return 1
	}
	return 0
}
