// Command genmock writes a deterministic synthetic Boston archive and a
// matching live-reading fixture. The archive follows a seasonal TMAX curve and
// mixes in the gaps real archives have: blank cells, the -9999 sentinel, and
// the occasional compact YYYYMMDD date.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out data/mock/boston_historical.csv \
//	  -realtime-out data/mock/current_weather.json \
//	  -start 2015-01-01 -years 5
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ejsimon0408/BostonWeatherETL/internal/domain"
)

const station = "USW00014739" // Boston Logan

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the historical CSV")
	realtimeOut := flag.String("realtime-out", "", "optional output path for a live-reading JSON fixture")
	start := flag.String("start", "2015-01-01", "first archive date")
	years := flag.Int("years", 5, "number of years to generate")
	seed := flag.Uint64("seed", 42, "random seed")
	flag.Parse()

	if *out == "" || *years <= 0 {
		flag.Usage()
		return fmt.Errorf("missing required flags: -out, -years > 0")
	}

	first, err := time.Parse("2006-01-02", *start)
	if err != nil {
		return fmt.Errorf("parse -start: %w", err)
	}
	last := first.AddDate(*years, 0, -1)

	rng := rand.New(rand.NewPCG(*seed, *seed>>1|1))
	rows := generate(rng, first, last)
	if err := writeCSV(*out, rows); err != nil {
		return fmt.Errorf("writing archive: %w", err)
	}
	log.Printf("wrote %d archive rows (%s to %s): %s", len(rows), first.Format("2006-01-02"), last.Format("2006-01-02"), *out)

	if *realtimeOut != "" {
		reading := liveReading(rng, last.AddDate(0, 0, 1))
		if err := writeJSON(*realtimeOut, reading); err != nil {
			return fmt.Errorf("writing realtime fixture: %w", err)
		}
		log.Printf("wrote live reading for %s: %s", reading.Timestamp, *realtimeOut)
	}
	return nil
}

// seasonalTMaxF approximates Boston's daily high: about 36°F in late January,
// about 82°F in late July.
func seasonalTMaxF(t time.Time) float64 {
	phase := 2 * math.Pi * float64(t.YearDay()-205) / 365.25
	return 59 + 23*math.Cos(phase)
}

func generate(rng *rand.Rand, first, last time.Time) [][]string {
	var rows [][]string
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		tmax := math.Round(seasonalTMaxF(d) + rng.NormFloat64()*6)
		tmin := tmax - math.Round(10+rng.Float64()*8)
		prcp := 0.0
		if rng.Float64() < 0.3 {
			prcp = math.Round(rng.ExpFloat64() * 25)
		}

		date := d.Format("2006-01-02")
		if rng.IntN(50) == 0 {
			date = d.Format("20060102")
		}
		row := []string{station, date, fmtNum(tmax), fmtNum(tmin), fmtNum(prcp)}

		switch rng.IntN(100) {
		case 0:
			row[2] = strconv.Itoa(-9999)
		case 1:
			row[3] = ""
		case 2:
			row[4] = ""
		}
		rows = append(rows, row)
	}
	return rows
}

func liveReading(rng *rand.Rand, day time.Time) domain.RawRealtimeRecord {
	loc, _ := time.LoadLocation("America/New_York")
	at := time.Date(day.Year(), day.Month(), day.Day(), 14, 0, 0, 0, loc)
	tempC := (seasonalTMaxF(day) + 8 - 32) * 5 / 9
	return domain.RawRealtimeRecord{
		Timestamp:   at.Format(time.RFC3339),
		Temperature: domain.Float(math.Round(tempC*10) / 10),
		TempUnit:    domain.Celsius,
		WindSpeed:   domain.Float(math.Round(rng.Float64()*300) / 10),
		LocationID:  "boston",
	}
}

func fmtNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func writeCSV(path string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"STATION", "DATE", "TMAX", "TMIN", "PRCP"}); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return f.Close()
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}
