// Command validate runs one offline reconciliation over a historical CSV and an
// optional live-reading fixture, then reports each stage as a pass/fail phase.
// It exits non-zero when any phase fails, so it can gate a data refresh in CI.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -historical data/boston_historical.csv \
//	  -realtime data/mock/current_weather.json \
//	  -out data/mock/boston_weather_combined.csv
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/ejsimon0408/BostonWeatherETL/internal/adapter/csvfile"
	"github.com/ejsimon0408/BostonWeatherETL/internal/domain"
	"github.com/ejsimon0408/BostonWeatherETL/internal/pipeline"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	historical := flag.String("historical", "", "path to the historical archive CSV")
	realtime := flag.String("realtime", "", "optional JSON file with one live reading or an array of them")
	out := flag.String("out", "", "optional path for the merged CSV")
	threshold := flag.Float64("threshold", 3, "anomaly threshold in °C")
	minSamples := flag.Int("min-daily-samples", 3, "TMAX samples a calendar day needs for a daily baseline")
	maxGap := flag.Int("max-gap-days", 0, "missing days tolerated between consecutive archive rows")
	flag.Parse()

	if *historical == "" {
		flag.Usage()
		os.Exit(1)
	}

	params := domain.DefaultParams()
	params.AnomalyThreshold = *threshold
	params.MinDailySamples = *minSamples
	params.Gate.MaxGapDays = *maxGap

	os.Exit(run(params, *historical, *realtime, *out))
}

func run(params domain.Params, historicalPath, realtimePath, outPath string) int {
	fmt.Println("=== Boston Weather Reconciliation Validation ===")
	fmt.Println()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var hist []domain.RawHistoricalRecord
	err := csvfile.NewReader(historicalPath, logger).StreamHistorical(context.Background(), 500,
		func(batch []domain.RawHistoricalRecord) error {
			hist = append(hist, batch...)
			return nil
		})
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load historical CSV: %v\n", err)
		return 1
	}

	var live []domain.RawRealtimeRecord
	if realtimePath != "" {
		if live, err = loadReadings(realtimePath); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load realtime fixture: %v\n", err)
			return 1
		}
	}

	result, err := domain.Reconcile(params, hist, live)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateNormalization(result, len(hist), len(live)),
		validateBaselines(result),
		validateClassification(result),
		validateQualityGate(result),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d historical, %d realtime, %d rejected, %d merged rows, %d columns\n",
		len(hist), len(live), result.Normalized.Rejected, len(result.Table.Rows), len(result.Table.Columns))
	printLabels(result.LabelCounts())

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if outPath != "" {
		meta := pipeline.RunMeta{RunID: "validate", LocationID: params.LocationID, StartedAt: time.Now().UTC()}
		if err := csvfile.NewWriter(outPath, logger).LoadTable(context.Background(), meta, result.Table); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: write merged CSV: %v\n", err)
			return 1
		}
		fmt.Printf("\nWrote merged table: %s\n", outPath)
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// loadReadings accepts either a single reading object or an array.
func loadReadings(path string) ([]domain.RawRealtimeRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var many []domain.RawRealtimeRecord
	if err := json.Unmarshal(data, &many); err == nil {
		return many, nil
	}
	var one domain.RawRealtimeRecord
	if err := json.Unmarshal(data, &one); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return []domain.RawRealtimeRecord{one}, nil
}

// ── Phases ──

func validateNormalization(result domain.Result, historical, realtime int) *phase {
	p := &phase{name: "Normalization"}
	for _, rej := range result.Normalized.Rejections {
		p.errorf("%s record rejected: %v", rej.Source, rej)
	}
	accepted := len(result.Normalized.Records) + result.Normalized.Rejected + result.Normalized.Superseded
	if accepted != historical+realtime {
		p.errorf("record accounting: %d in, %d accepted + rejected + superseded", historical+realtime, accepted)
	}
	return p
}

func validateBaselines(result domain.Result) *phase {
	p := &phase{name: "Baselines"}
	if len(result.Normalized.Historical()) > 0 && len(result.Baselines.Monthly) == 0 {
		p.errorf("historical records present but no monthly baseline has a TMAX sample")
	}
	for m, e := range result.Baselines.Monthly {
		if e.SampleCount <= 0 {
			p.errorf("monthly baseline %s stored with %d samples", m, e.SampleCount)
		}
	}
	return p
}

func validateClassification(result domain.Result) *phase {
	p := &phase{name: "Classification"}
	for _, rec := range result.Classified {
		if rec.Source != domain.SourceRealtime {
			continue
		}
		if rec.Anomaly.Label == domain.Unclassified {
			p.errorf("live reading on %s has no baseline", rec.Date.Format("2006-01-02"))
			continue
		}
		fmt.Printf("Live reading %s: %s (%s basis, monthly %s)\n",
			rec.Date.Format("2006-01-02"), rec.Anomaly.Label, rec.Anomaly.Tier, rec.Anomaly.MonthlyLabel)
	}
	return p
}

func validateQualityGate(result domain.Result) *phase {
	p := &phase{name: "Quality gate"}
	for _, c := range result.Quality.Checks {
		for _, v := range c.Violations {
			p.errorf("%s: %s", c.Name, v)
		}
		if !c.Passed && len(c.Violations) == 0 {
			p.errorf("%s failed", c.Name)
		}
	}
	return p
}

func printLabels(counts map[domain.AnomalyLabel]int) {
	labels := make([]string, 0, len(counts))
	for l := range counts {
		labels = append(labels, string(l))
	}
	sort.Strings(labels)
	for _, l := range labels {
		fmt.Printf("  %-16s %d\n", l, counts[domain.AnomalyLabel(l)])
	}
}
