package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"parkfacts/internal/config"
	"parkfacts/internal/metrics"
	"parkfacts/internal/metrics/prompush"
	"parkfacts/internal/pipeline"

	// register all sinks with the storage factory.
	// config specifies which to use but we need to build in support for all of them.
	_ "parkfacts/internal/storage/all"
)

// main is the entry point for the parkfacts binary. It loads the pipeline
// config, optionally initializes a metrics backend, and executes the run.
func main() {
	var (
		cfgPath           string
		outDir            string
		metricsBackendFlg string
		pushGatewayURLFlg string
		validate          bool
	)

	flag.StringVar(&cfgPath, "config", "configs/park_facilities.json", "pipeline config path (JSON or YAML)")
	flag.StringVar(&outDir, "out-dir", "", "report output directory (overrides config report.out_dir)")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "none", "metrics backend to use (e.g. pushgateway, none)")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	p, err := config.Load(cfgPath)
	if err != nil {
		fatalf("load config: %v", err)
	}
	if outDir != "" {
		p.Report.OutDir = outDir
	}

	issues := config.ValidateConfig(p)
	hasError := false
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
		if iss.Severity == config.SeverityError {
			hasError = true
		}
	}
	if hasError {
		logrus.Errorf("configuration is invalid: %v", cfgPath)
		os.Exit(1)
	}

	// If validate flag is set, only validate the configuration and exit.
	if validate {
		logrus.Infof("configuration is valid: %v", cfgPath)
		os.Exit(0)
	}

	// Decide metrics backend: flag → env → default.
	backendName := metricsBackendFlg
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	switch backendName {
	case "pushgateway":
		gwURL := pushGatewayURLFlg
		if gwURL == "" {
			gwURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}

		jobName := p.Job
		if jobName == "" {
			jobName = "parkfacts_job"
		}

		b, err := prompush.NewBackend(jobName, gwURL)
		if err != nil {
			logrus.Warnf("metrics: failed to init prom push backend: %v; using nop", err)
		} else {
			logrus.Debugf("metrics: url=%v, backend=%v, job_name=%v", gwURL, backendName, jobName)
			metrics.SetBackend(b)
			defer func() {
				if err := metrics.Flush(); err != nil {
					logrus.Warnf("metrics: flush error: %v", err)
				}
			}()
		}

	case "", "none":
		logrus.Debugf("metrics: disabled (backend=%q)", backendName)

	default:
		logrus.Warnf("metrics: unknown backend %q; metrics disabled", backendName)
	}

	ctx := context.Background()
	start := time.Now()

	logrus.Debugf("pipeline: job=%s source=%s storage=%s", p.Job, p.Source.Kind, p.Storage.Kind)

	out, err := pipeline.Run(ctx, p)
	if err != nil {
		if errors.Is(err, pipeline.ErrQualityGate) {
			logrus.Error(err)
			os.Exit(2)
		}
		logrus.Fatal(err)
	}

	logrus.WithFields(logrus.Fields{
		"run_id":  out.RunID,
		"loaded":  out.Loaded,
		"written": out.Written,
		"took":    time.Since(start).Truncate(time.Millisecond).String(),
	}).Info("run complete")
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
