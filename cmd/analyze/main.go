// Command analyze runs the signal pipeline once against a JSON snapshot file
// and prints the result. Useful for replaying recorded market data and for
// verifying that identical inputs produce identical output.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"forex-signal-engine/config"
	"forex-signal-engine/internal/engine"
)

func main() {
	inputPath := flag.String("input", "", "Path to a JSON analysis input file")
	entries := flag.Bool("entries", false, "Rank entry options instead of generating a recommendation")
	pretty := flag.Bool("pretty", true, "Indent JSON output")
	flag.Parse()

	if *inputPath == "" {
		fmt.Fprintln(os.Stderr, "usage: analyze -input snapshot.json [-entries]")
		os.Exit(2)
	}

	raw, err := os.ReadFile(*inputPath)
	if err != nil {
		fatal("read input: %v", err)
	}

	var in engine.Input
	if err := json.Unmarshal(raw, &in); err != nil {
		fatal("parse input: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fatal("load config: %v", err)
	}

	logger := zerolog.New(os.Stderr).Level(zerolog.WarnLevel).With().Timestamp().Logger()
	eng := engine.New(cfg, nil, nil, logger)

	var result interface{}
	if *entries {
		result, err = eng.AnalyzeEntries(context.Background(), in)
	} else {
		var rec *engine.Recommendation
		rec, err = eng.Analyze(context.Background(), in)
		if err == nil && rec == nil {
			fmt.Println(`{"signal": false, "reason": "no strategy matched and no soft gates active"}`)
			return
		}
		result = rec
	}
	if err != nil {
		fatal("analyze: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(result); err != nil {
		fatal("encode result: %v", err)
	}
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
