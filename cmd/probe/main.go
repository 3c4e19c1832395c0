package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"parkfacts/internal/probe"
)

// main is the entrypoint for the probing CLI. It fetches a small sample from
// the given URL or file, infers field types from the sampled rows, and prints
// a starter pipeline configuration as JSON.
//
// The resulting config is intended to be hand-edited and then used with
// cmd/parkfacts.
func main() {
	var (
		flagURL = flag.String(
			"url",
			"",
			"URL of the source CSV (http(s):// or file://)",
		)
		flagBytes = flag.Int(
			"bytes",
			0,
			"Number of bytes to sample from the start of the file (0 = default)",
		)
		flagName = flag.String(
			"name",
			"dataset_name",
			"Logical dataset name (used as job, contract name, output paths)",
		)
		flagDelim = flag.String(
			"delimiter",
			",",
			"Field delimiter of the sampled file",
		)
		flagEnumLimit = flag.Int(
			"enum-limit",
			0,
			"Max distinct values for a column to be inferred as a category (0 = default)",
		)
	)
	flag.Parse()

	if *flagURL == "" {
		fmt.Fprintln(os.Stderr, "missing -url")
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	opt := probe.Options{
		URL:       *flagURL,
		MaxBytes:  *flagBytes,
		Name:      *flagName,
		EnumLimit: *flagEnumLimit,
	}
	if *flagDelim != "" {
		opt.Delimiter = []rune(*flagDelim)[0]
	}

	cfg, err := probe.Probe(ctx, opt)
	if err != nil {
		logrus.Fatalf("probe: %v", err)
	}

	out, err := probe.MarshalConfig(cfg)
	if err != nil {
		logrus.Fatalf("encode config: %v", err)
	}
	os.Stdout.Write(out)
	fmt.Println()
}
