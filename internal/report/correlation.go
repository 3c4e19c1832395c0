package report

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"parkfacts/internal/config"
	"parkfacts/internal/derive"
	"parkfacts/pkg/records"
)

// Pivot is a cross-tabulation of the cleaned table: one row per distinct
// row-key tuple, one column per distinct value of the column field, both in
// first-appearance order.
type Pivot struct {
	Columns []string
	Rows    [][]float64
}

// BuildPivot cross-tabulates the table. Cells sum the value field; when value
// is empty, cells count rows instead.
func BuildPivot(table []records.Record, rowKey []string, column, value string) Pivot {
	colIdx := map[string]int{}
	var columns []string
	rowIdx := map[string]int{}
	nRows := 0

	for _, rec := range table {
		c := records.String(rec[column])
		if _, ok := colIdx[c]; !ok {
			colIdx[c] = len(columns)
			columns = append(columns, c)
		}
		rk := pivotRowKey(rec, rowKey)
		if _, ok := rowIdx[rk]; !ok {
			rowIdx[rk] = nRows
			nRows++
		}
	}

	rows := make([][]float64, nRows)
	for i := range rows {
		rows[i] = make([]float64, len(columns))
	}
	for _, rec := range table {
		ri := rowIdx[pivotRowKey(rec, rowKey)]
		ci := colIdx[records.String(rec[column])]
		if value == "" {
			rows[ri][ci]++
			continue
		}
		if v, ok := derive.Numeric(rec[value]); ok {
			rows[ri][ci] += v
		}
	}
	return Pivot{Columns: columns, Rows: rows}
}

func pivotRowKey(rec records.Record, rowKey []string) string {
	parts := make([]string, len(rowKey))
	for i, f := range rowKey {
		parts[i] = records.String(rec[f])
	}
	return strings.Join(parts, "\x1f")
}

// Correlate returns the Pearson correlation matrix between the pivot's
// columns. The diagonal is 1; a zero-variance column correlates 0 with
// everything else.
func (p Pivot) Correlate() [][]float64 {
	n := len(p.Columns)
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
		m[i][i] = 1
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			r := pearson(p.colVec(i), p.colVec(j))
			m[i][j], m[j][i] = r, r
		}
	}
	return m
}

func (p Pivot) colVec(i int) []float64 {
	vs := make([]float64, len(p.Rows))
	for r, row := range p.Rows {
		vs[r] = row[i]
	}
	return vs
}

func pearson(x, y []float64) float64 {
	n := float64(len(x))
	if n == 0 {
		return 0
	}
	var sx, sy float64
	for i := range x {
		sx += x[i]
		sy += y[i]
	}
	mx, my := sx/n, sy/n
	var cov, vx, vy float64
	for i := range x {
		dx, dy := x[i]-mx, y[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return 0
	}
	return cov / math.Sqrt(vx*vy)
}

// WriteCorrelation pivots the cleaned table per the spec and writes the
// column correlation matrix as CSV under outDir. The first row and column
// carry the pivot column labels.
func WriteCorrelation(outDir string, spec config.Correlation, table []records.Record) error {
	p := BuildPivot(table, spec.RowKey, spec.Column, spec.Value)
	if len(p.Columns) < 2 {
		logrus.WithField("file", spec.File).Warn("fewer than two pivot columns; skipping correlation")
		return nil
	}
	m := p.Correlate()

	if outDir == "" {
		outDir = "."
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create out dir: %w", err)
	}
	path := filepath.Join(outDir, spec.File)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(append([]string{""}, p.Columns...)); err != nil {
		return err
	}
	for i, col := range p.Columns {
		row := make([]string, 0, len(p.Columns)+1)
		row = append(row, col)
		for j := range p.Columns {
			row = append(row, strconv.FormatFloat(m[i][j], 'f', 4, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"file": path, "columns": len(p.Columns)}).Info("correlation written")
	return nil
}
