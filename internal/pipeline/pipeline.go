// Package pipeline orchestrates one batch run: load, clean, derive,
// aggregate, report, store. The stages execute strictly in order on a single
// goroutine; the table is exclusively owned by the run from load to final
// write.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"parkfacts/internal/aggregate"
	"parkfacts/internal/cleaner"
	"parkfacts/internal/config"
	"parkfacts/internal/datasource"
	"parkfacts/internal/datasource/file"
	"parkfacts/internal/datasource/httpds"
	"parkfacts/internal/derive"
	"parkfacts/internal/metrics"
	"parkfacts/internal/parser/csv"
	"parkfacts/internal/report"
	"parkfacts/internal/storage"
	"parkfacts/pkg/records"
)

// ErrQualityGate is returned when fail_on_violations is set and any quality
// check reported violations. The run's outputs are still produced; only the
// exit status changes.
var ErrQualityGate = errors.New("quality gate failed")

// Outcome collects everything a run produced, for logging and tests.
type Outcome struct {
	RunID    string
	Loaded   int
	Skipped  int
	Audit    cleaner.Audit
	Results  []aggregate.Result
	Findings []aggregate.Finding
	Summary  report.Summary
	Written  int64
}

// Run executes the pipeline described by p. On error the returned Outcome
// holds whatever was completed before the failure.
func Run(ctx context.Context, p config.Pipeline) (Outcome, error) {
	out := Outcome{RunID: uuid.NewString()}
	log := logrus.WithFields(logrus.Fields{"job": p.Job, "run_id": out.RunID})

	// Load.
	start := time.Now()
	table, skipped, err := load(ctx, p)
	metrics.RecordStage(p.Job, "load", err, time.Since(start))
	if err != nil {
		return out, fmt.Errorf("load: %w", err)
	}
	out.Loaded, out.Skipped = len(table), skipped
	metrics.RecordRows(p.Job, "loaded", int64(len(table)))
	metrics.RecordRows(p.Job, "skipped", int64(skipped))
	log.WithFields(logrus.Fields{"rows": len(table), "skipped": skipped}).Info("loaded")

	// Clean.
	start = time.Now()
	table, out.Audit = cleaner.New(p.Contract, p.Clean).Clean(table)
	metrics.RecordStage(p.Job, "clean", nil, time.Since(start))
	metrics.RecordRows(p.Job, "filled", int64(out.Audit.Filled))
	metrics.RecordRows(p.Job, "dropped", int64(out.Audit.Dropped))
	metrics.RecordRows(p.Job, "deduped", int64(out.Audit.Deduped))
	metrics.RecordRows(p.Job, "coerced", int64(out.Audit.Coerced))
	log.WithFields(logrus.Fields{
		"rows": len(table), "filled": out.Audit.Filled, "dropped": out.Audit.Dropped,
		"deduped": out.Audit.Deduped, "unnormalized": out.Audit.Unnormalized,
		"coerced": out.Audit.Coerced,
	}).Info("cleaned")

	// Derive.
	start = time.Now()
	derivations, err := derive.Compile(p.Derive)
	if err == nil {
		derive.Apply(table, derivations)
	}
	metrics.RecordStage(p.Job, "derive", err, time.Since(start))
	if err != nil {
		return out, fmt.Errorf("derive: %w", err)
	}

	// Aggregate.
	start = time.Now()
	for _, agg := range p.Aggregations {
		res, aerr := aggregate.Aggregate(table, agg)
		if aerr != nil {
			metrics.RecordStage(p.Job, "aggregate", aerr, time.Since(start))
			return out, fmt.Errorf("aggregate: %w", aerr)
		}
		out.Results = append(out.Results, res)
	}
	metrics.RecordStage(p.Job, "aggregate", nil, time.Since(start))

	// Quality checks: read-only, reported, optionally gating.
	out.Findings = aggregate.Validate(table, p.Quality.Checks)
	for _, f := range out.Findings {
		metrics.RecordViolations(p.Job, string(f.Dimension), int64(f.Violations))
		if f.Violations > 0 {
			log.WithFields(logrus.Fields{
				"dimension": f.Dimension, "op": f.Check.Op,
				"field": f.Check.Field, "violations": f.Violations,
			}).Warn("quality violations")
		}
	}

	// Report.
	start = time.Now()
	err = writeReport(p, table, &out)
	metrics.RecordStage(p.Job, "report", err, time.Since(start))
	if err != nil {
		return out, fmt.Errorf("report: %w", err)
	}

	// Store.
	start = time.Now()
	written, err := store(ctx, p, table, derivations)
	metrics.RecordStage(p.Job, "store", err, time.Since(start))
	if err != nil {
		return out, fmt.Errorf("store: %w", err)
	}
	out.Written = written
	metrics.RecordRows(p.Job, "written", written)
	if written > 0 {
		log.WithField("rows", written).Info("cleaned table written")
	}

	if p.Quality.FailOnViolations && aggregate.Total(out.Findings) > 0 {
		return out, fmt.Errorf("%w: %d violations", ErrQualityGate, aggregate.Total(out.Findings))
	}
	return out, nil
}

// load opens the configured source and parses it against the contract.
func load(ctx context.Context, p config.Pipeline) ([]records.Record, int, error) {
	var src datasource.Source
	switch p.Source.Kind {
	case "file":
		src = file.NewLocal(p.Source.File.Path)
	case "http":
		client := httpds.NewClient(httpds.Config{
			InsecureSkipVerify: p.Source.HTTP.InsecureSkipTLS,
		})
		src = httpds.NewRemote(client, p.Source.HTTP.URL)
	default:
		return nil, 0, fmt.Errorf("unknown source kind %q", p.Source.Kind)
	}

	rc, err := src.Open(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer rc.Close()

	loader := csv.NewLoader(p.Contract, csv.Options{
		Comma:     p.Loader.CommaRune(),
		TrimSpace: p.Loader.TrimSpace,
	})
	return loader.Load(rc)
}

// writeReport ranks the configured metric, writes the narrative summary and
// the optional correlation matrix, and renders the charts.
func writeReport(p config.Pipeline, table []records.Record, out *Outcome) error {
	if p.Report.RankBy.Aggregation != "" {
		res, ok := report.Select(out.Results, p.Report.RankBy)
		if !ok {
			return fmt.Errorf("rank_by references unknown aggregation %q", p.Report.RankBy.Aggregation)
		}
		out.Summary = report.Rank(res, p.Report.RankBy.Metric, p.Report.TopN)
	}

	outDir := p.Report.OutDir
	if outDir == "" {
		outDir = "."
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(outDir, "summary.txt"))
	if err != nil {
		return err
	}
	defer f.Close()
	if err := report.WriteText(f, p.Job, out.Summary, out.Audit, out.Findings); err != nil {
		return err
	}
	if p.Report.Correlation != nil {
		if err := report.WriteCorrelation(outDir, *p.Report.Correlation, table); err != nil {
			return err
		}
	}

	return report.RenderCharts(outDir, p.Report.Charts, out.Results, p.Report.TopN)
}

// store writes the cleaned table through the configured sink. Output columns
// are the contract fields followed by derivation targets that are not
// already contract fields.
func store(ctx context.Context, p config.Pipeline, table []records.Record, derivations []derive.Derivation) (int64, error) {
	if p.Storage.Kind == "" || p.Storage.Kind == "none" {
		return 0, nil
	}

	sink, err := storage.New(ctx, storage.Config{
		Kind:            p.Storage.Kind,
		Path:            p.Storage.CSV.Path,
		Comma:           p.Storage.CSV.CommaRune(),
		DSN:             p.Storage.DB.DSN,
		Table:           p.Storage.DB.Table,
		AutoCreateTable: p.Storage.DB.AutoCreateTable,
		Contract:        p.Contract,
	})
	if err != nil {
		return 0, err
	}
	defer sink.Close()

	columns := p.Contract.Names()
	have := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		have[c] = struct{}{}
	}
	for _, d := range derivations {
		if _, ok := have[d.Target()]; !ok {
			columns = append(columns, d.Target())
			have[d.Target()] = struct{}{}
		}
	}

	return sink.Write(ctx, columns, table)
}
