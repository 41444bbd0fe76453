package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/Johndevils/Arsynox-streaming/internal/normalize"
)

func runNormalizeCLI(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("arsynox normalize", flag.ContinueOnError)
	fs.SetOutput(stderr)
	base := fs.String("base", "", "page base URL that relative inputs resolve against")
	asJSON := fs.Bool("json", false, "print one JSON object per input")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		_, _ = fmt.Fprintln(stderr, "Usage: arsynox normalize [--base URL] [--json] <url>...")
		return 2
	}

	n, err := normalize.New(*base)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: invalid --base: %v\n", err)
		return 2
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		for _, raw := range fs.Args() {
			if err := enc.Encode(n.Normalize(raw)); err != nil {
				_, _ = fmt.Fprintf(stderr, "Failed to encode JSON: %v\n", err)
				return 1
			}
		}
		return 0
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "TYPE\tURL")
	for _, raw := range fs.Args() {
		res := n.Normalize(raw)
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", res.Type, res.URL)
	}
	_ = tw.Flush()
	return 0
}
