// Package ingest reads monthly energy series from CSV and generates synthetic
// ones for demos.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/longlife4everest/energy-ai-dashboard/internal/model"
)

// Columns is the CSV header the parser expects and WriteCSV emits.
var Columns = []string{
	"date",
	"energy_consumption_kwh",
	"cost_per_kwh",
	"total_cost",
	"emission_factor",
	"total_emission",
}

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"}

// SeriesParser parses monthly series exports.
//
// Expected format:
//
//	date,energy_consumption_kwh,cost_per_kwh,total_cost,emission_factor,total_emission
//	2024-01-01,10482.11,0.1321,1384.69,0.45,4.0
type SeriesParser struct{}

func NewSeriesParser() *SeriesParser {
	return &SeriesParser{}
}

// Parse returns the parsed points sorted by date. Rows with an unparseable
// date or non-finite numbers are skipped.
func (p *SeriesParser) Parse(r io.Reader) ([]model.SeriesPoint, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	if err := validateHeader(header); err != nil {
		return nil, err
	}

	var points []model.SeriesPoint
	lineNum := 1

	for {
		lineNum++
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV line %d: %w", lineNum, err)
		}

		point, err := parseRecord(record, lineNum)
		if err != nil {
			continue
		}
		points = append(points, point)
	}

	slices.SortStableFunc(points, func(a, b model.SeriesPoint) int {
		return a.Date.Compare(b.Date)
	})
	return points, nil
}

func validateHeader(header []string) error {
	if len(header) < len(Columns) {
		return fmt.Errorf("expected at least %d columns, got %d", len(Columns), len(header))
	}
	for i, col := range Columns {
		got := strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
		if got != col {
			return fmt.Errorf("expected column %d to be %q, got %q", i, col, header[i])
		}
	}
	return nil
}

func parseRecord(record []string, lineNum int) (model.SeriesPoint, error) {
	if len(record) < len(Columns) {
		return model.SeriesPoint{}, fmt.Errorf("line %d: expected %d fields, got %d", lineNum, len(Columns), len(record))
	}

	date, err := parseDate(strings.TrimSpace(record[0]))
	if err != nil {
		return model.SeriesPoint{}, fmt.Errorf("line %d: %w", lineNum, err)
	}

	var vals [5]float64
	for i := range vals {
		raw := strings.TrimSpace(record[i+1])
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return model.SeriesPoint{}, fmt.Errorf("line %d: parsing %s %q: %w", lineNum, Columns[i+1], raw, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return model.SeriesPoint{}, fmt.Errorf("line %d: %s is not finite", lineNum, Columns[i+1])
		}
		vals[i] = v
	}

	return model.SeriesPoint{
		Date:           date,
		EnergyKWh:      vals[0],
		CostPerKWh:     vals[1],
		TotalCost:      vals[2],
		EmissionFactor: vals[3],
		TotalEmission:  vals[4],
	}, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parsing date %q", s)
}

// WriteCSV writes series in the format SeriesParser reads.
func WriteCSV(w io.Writer, series []model.SeriesPoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	format := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	for _, p := range series {
		rec := []string{
			p.Date.Format("2006-01-02"),
			format(p.EnergyKWh),
			format(p.CostPerKWh),
			format(p.TotalCost),
			format(p.EmissionFactor),
			format(p.TotalEmission),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadFile parses the series CSV at path. A file without a single valid row
// is an error.
func ReadFile(path string) ([]model.SeriesPoint, error) {
	return readFile(NewSeriesParser(), path)
}

func readFile(p Parser, path string) ([]model.SeriesPoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening series: %w", err)
	}
	defer f.Close()

	points, err := p.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("no valid rows in %s", path)
	}
	return points, nil
}
