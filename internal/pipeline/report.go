package pipeline

import (
	"time"

	"github.com/ejsimon0408/BostonWeatherETL/internal/domain"
)

// RunMeta identifies one pipeline run to the sinks.
type RunMeta struct {
	RunID      string    `json:"run_id"`
	LocationID string    `json:"location_id"`
	StartedAt  time.Time `json:"started_at"`
}

// LatestReading summarises the live reading of a run.
type LatestReading struct {
	Date         string     `json:"date"`
	ObservedAt   *time.Time `json:"observed_at,omitempty"`
	TempC        *float64   `json:"temp_c"`
	WindSpeedKmh *float64   `json:"wind_speed_kmh,omitempty"`
	Label        string     `json:"label"`
	MonthlyLabel string     `json:"monthly_label"`
	Basis        string     `json:"basis"`
	DeltaC       *float64   `json:"delta_c,omitempty"`
}

// RunReport is published after every run, whether or not the table was.
type RunReport struct {
	RunMeta
	FinishedAt time.Time `json:"finished_at"`

	HistoricalRecords int            `json:"historical_records"`
	RealtimeRecords   int            `json:"realtime_records"`
	Rejected          map[string]int `json:"rejected"`
	Superseded        int            `json:"superseded"`
	Labels            map[string]int `json:"labels"`
	DailyBaselines    int            `json:"daily_baselines"`
	MonthlyBaselines  int            `json:"monthly_baselines"`

	Latest        *LatestReading       `json:"latest,omitempty"`
	RealtimeError string               `json:"realtime_error,omitempty"`
	Quality       domain.QualityReport `json:"quality"`
	Published     bool                 `json:"published"`
}

func newRunReport(meta RunMeta, result domain.Result) RunReport {
	report := RunReport{
		RunMeta: meta,
		Rejected: map[string]int{
			string(domain.SourceHistorical): result.Normalized.RejectedBy(domain.SourceHistorical),
			string(domain.SourceRealtime):   result.Normalized.RejectedBy(domain.SourceRealtime),
		},
		Superseded:       result.Normalized.Superseded,
		Labels:           make(map[string]int),
		DailyBaselines:   len(result.Baselines.Daily),
		MonthlyBaselines: len(result.Baselines.Monthly),
		Quality:          result.Quality,
	}
	for label, n := range result.LabelCounts() {
		report.Labels[string(label)] = n
	}

	for _, rec := range result.Classified {
		switch rec.Source {
		case domain.SourceHistorical:
			report.HistoricalRecords++
		case domain.SourceRealtime:
			report.RealtimeRecords++
			report.Latest = latestReading(rec)
		}
	}
	return report
}

func latestReading(rec domain.ClassifiedRecord) *LatestReading {
	return &LatestReading{
		Date:         rec.Date.Format("2006-01-02"),
		ObservedAt:   rec.ObservedAt,
		TempC:        rec.TempMax,
		WindSpeedKmh: rec.WindSpeed,
		Label:        string(rec.Anomaly.Label),
		MonthlyLabel: string(rec.Anomaly.MonthlyLabel),
		Basis:        string(rec.Anomaly.Tier),
		DeltaC:       rec.Anomaly.Delta,
	}
}
