package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ejsimon0408/BostonWeatherETL/internal/domain"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Historical source kinds.
const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	LocationID       string
	LocationLat      float64
	LocationLon      float64
	LocationTimezone string

	AnomalyThreshold     float64
	MinDailySamples      int
	HistoricalPrecipUnit string
	RealtimeTempUnit     string

	QualityMinRows       int
	QualityMaxGapDays    int
	QualityMinTempC      float64
	QualityMaxTempC      float64
	PublishOnGateFailure bool

	RunInterval       time.Duration
	HistoricalSource  string
	HistoricalCSVPath string
	DatabaseURL       string
	BatchSize         int

	// Open-Meteo live readings.
	RealtimeEnabled    bool
	OpenMeteoURL       string
	OpenMeteoTimeout   time.Duration
	RealtimeCacheTTL   time.Duration
	RealtimeMaxRetries int

	OutputCSVPath    string
	KafkaBrokers     []string
	KafkaSinkTopic   string
	KafkaReportTopic string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		LocationID:           sharedcfg.EnvOrDefault("LOCATION_ID", "boston"),
		LocationTimezone:     sharedcfg.EnvOrDefault("LOCATION_TIMEZONE", "America/New_York"),
		HistoricalPrecipUnit: sharedcfg.EnvOrDefault("HISTORICAL_PRECIP_UNIT", string(domain.HundredthsInch)),
		RealtimeTempUnit:     sharedcfg.EnvOrDefault("REALTIME_TEMP_UNIT", string(domain.Celsius)),
		HistoricalSource:     sharedcfg.EnvOrDefault("HISTORICAL_SOURCE", SourceCSV),
		HistoricalCSVPath:    sharedcfg.EnvOrDefault("HISTORICAL_CSV_PATH", "data/boston_historical.csv"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		BatchSize:            batchSize,
		OpenMeteoURL:         sharedcfg.EnvOrDefault("OPEN_METEO_URL", "https://api.open-meteo.com/v1/forecast"),
		OutputCSVPath:        os.Getenv("OUTPUT_CSV_PATH"),
		KafkaSinkTopic:       sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "boston-weather-combined"),
		KafkaReportTopic:     sharedcfg.EnvOrDefault("KAFKA_REPORT_TOPIC", "boston-weather-quality"),
		HTTPAddr:             sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:             sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:      shutdownTimeout,
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = sharedcfg.ParseBrokers(brokers)
	}

	p := parser{}
	cfg.LocationLat = p.floatEnv("LOCATION_LAT", 42.3601)
	cfg.LocationLon = p.floatEnv("LOCATION_LON", -71.0589)
	cfg.AnomalyThreshold = p.floatEnv("ANOMALY_THRESHOLD", 3)
	cfg.MinDailySamples = p.intEnv("MIN_DAILY_SAMPLES", 3)
	cfg.QualityMinRows = p.intEnv("QUALITY_MIN_ROWS", 1)
	cfg.QualityMaxGapDays = p.intEnv("QUALITY_MAX_GAP_DAYS", 0)
	cfg.QualityMinTempC = p.floatEnv("QUALITY_MIN_TEMP_C", -40)
	cfg.QualityMaxTempC = p.floatEnv("QUALITY_MAX_TEMP_C", 50)
	cfg.PublishOnGateFailure = p.boolEnv("PUBLISH_ON_GATE_FAILURE", false)
	cfg.RunInterval = p.durationEnv("RUN_INTERVAL", 24*time.Hour)
	cfg.RealtimeEnabled = p.boolEnv("REALTIME_ENABLED", true)
	cfg.OpenMeteoTimeout = p.durationEnv("OPEN_METEO_TIMEOUT", 10*time.Second)
	cfg.RealtimeCacheTTL = p.durationEnv("REALTIME_CACHE_TTL", 10*time.Minute)
	cfg.RealtimeMaxRetries = p.intEnv("REALTIME_MAX_RETRIES", 3)
	if p.err != nil {
		return nil, p.err
	}

	switch cfg.HistoricalSource {
	case SourceCSV:
		if cfg.HistoricalCSVPath == "" {
			return nil, errors.New("HISTORICAL_CSV_PATH is required when HISTORICAL_SOURCE is csv")
		}
	case SourcePostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required when HISTORICAL_SOURCE is postgres")
		}
	default:
		return nil, fmt.Errorf("invalid HISTORICAL_SOURCE %q: want csv or postgres", cfg.HistoricalSource)
	}
	if cfg.RunInterval <= 0 {
		return nil, errors.New("invalid RUN_INTERVAL")
	}
	if cfg.OpenMeteoTimeout <= 0 {
		return nil, errors.New("invalid OPEN_METEO_TIMEOUT")
	}
	if cfg.RealtimeMaxRetries < 0 {
		return nil, errors.New("invalid REALTIME_MAX_RETRIES")
	}
	if len(cfg.KafkaBrokers) > 0 {
		if cfg.KafkaSinkTopic == "" {
			return nil, errors.New("KAFKA_SINK_TOPIC is required")
		}
		if cfg.KafkaReportTopic == "" {
			return nil, errors.New("KAFKA_REPORT_TOPIC is required")
		}
	}

	return cfg, nil
}

// Params converts the location and tuning settings into the parameter object
// the reconciliation core runs with.
func (c *Config) Params() (domain.Params, error) {
	loc, err := time.LoadLocation(c.LocationTimezone)
	if err != nil {
		return domain.Params{}, fmt.Errorf("invalid LOCATION_TIMEZONE %q: %w", c.LocationTimezone, err)
	}
	p := domain.Params{
		LocationID:           c.LocationID,
		Timezone:             loc,
		AnomalyThreshold:     c.AnomalyThreshold,
		MinDailySamples:      c.MinDailySamples,
		HistoricalPrecipUnit: domain.PrecipUnit(c.HistoricalPrecipUnit),
		RealtimeTempUnit:     domain.TempUnit(c.RealtimeTempUnit),
		Gate: domain.GateParams{
			MinRows:    c.QualityMinRows,
			MaxGapDays: c.QualityMaxGapDays,
			MinTempC:   c.QualityMinTempC,
			MaxTempC:   c.QualityMaxTempC,
		},
	}
	if err := p.Validate(); err != nil {
		return domain.Params{}, err
	}
	return p, nil
}

// parser keeps the first parse failure so Load can read every variable
// before checking.
type parser struct {
	err error
}

func (p *parser) fail(key, raw string) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s %q", key, raw)
	}
}

func (p *parser) floatEnv(key string, def float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		p.fail(key, s)
		return def
	}
	return v
}

func (p *parser) intEnv(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		p.fail(key, s)
		return def
	}
	return v
}

func (p *parser) boolEnv(key string, def bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		p.fail(key, s)
		return def
	}
	return v
}

func (p *parser) durationEnv(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		p.fail(key, s)
		return def
	}
	return v
}
