package config

import (
	"errors"
	"testing"
	"time"

	"github.com/ejsimon0408/BostonWeatherETL/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "boston", cfg.LocationID)
	assert.Equal(t, 42.3601, cfg.LocationLat)
	assert.Equal(t, -71.0589, cfg.LocationLon)
	assert.Equal(t, "America/New_York", cfg.LocationTimezone)
	assert.Equal(t, 3.0, cfg.AnomalyThreshold)
	assert.Equal(t, 3, cfg.MinDailySamples)
	assert.Equal(t, "hundredths_in", cfg.HistoricalPrecipUnit)
	assert.Equal(t, "C", cfg.RealtimeTempUnit)
	assert.Equal(t, 1, cfg.QualityMinRows)
	assert.Equal(t, 0, cfg.QualityMaxGapDays)
	assert.Equal(t, -40.0, cfg.QualityMinTempC)
	assert.Equal(t, 50.0, cfg.QualityMaxTempC)
	assert.False(t, cfg.PublishOnGateFailure)
	assert.Equal(t, 24*time.Hour, cfg.RunInterval)
	assert.Equal(t, SourceCSV, cfg.HistoricalSource)
	assert.Equal(t, "data/boston_historical.csv", cfg.HistoricalCSVPath)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.True(t, cfg.RealtimeEnabled)
	assert.Equal(t, "https://api.open-meteo.com/v1/forecast", cfg.OpenMeteoURL)
	assert.Equal(t, 10*time.Second, cfg.OpenMeteoTimeout)
	assert.Equal(t, 10*time.Minute, cfg.RealtimeCacheTTL)
	assert.Equal(t, 3, cfg.RealtimeMaxRetries)
	assert.Empty(t, cfg.OutputCSVPath)
	assert.Empty(t, cfg.KafkaBrokers, "kafka is disabled unless brokers are set")
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("LOCATION_ID", "logan")
	t.Setenv("LOCATION_LAT", "42.3656")
	t.Setenv("ANOMALY_THRESHOLD", "2.5")
	t.Setenv("MIN_DAILY_SAMPLES", "5")
	t.Setenv("QUALITY_MAX_GAP_DAYS", "2")
	t.Setenv("PUBLISH_ON_GATE_FAILURE", "true")
	t.Setenv("RUN_INTERVAL", "1h")
	t.Setenv("HISTORICAL_SOURCE", "postgres")
	t.Setenv("DATABASE_URL", "postgres://etl@localhost/weather?sslmode=disable")
	t.Setenv("BATCH_SIZE", "100")
	t.Setenv("REALTIME_ENABLED", "false")
	t.Setenv("REALTIME_CACHE_TTL", "30s")
	t.Setenv("OUTPUT_CSV_PATH", "out/combined.csv")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-sink")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("LOG_FORMAT", "text")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "logan", cfg.LocationID)
	assert.Equal(t, 42.3656, cfg.LocationLat)
	assert.Equal(t, 2.5, cfg.AnomalyThreshold)
	assert.Equal(t, 5, cfg.MinDailySamples)
	assert.Equal(t, 2, cfg.QualityMaxGapDays)
	assert.True(t, cfg.PublishOnGateFailure)
	assert.Equal(t, time.Hour, cfg.RunInterval)
	assert.Equal(t, SourcePostgres, cfg.HistoricalSource)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.False(t, cfg.RealtimeEnabled)
	assert.Equal(t, 30*time.Second, cfg.RealtimeCacheTTL)
	assert.Equal(t, "out/combined.csv", cfg.OutputCSVPath)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-sink", cfg.KafkaSinkTopic)
	assert.Equal(t, "boston-weather-quality", cfg.KafkaReportTopic)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"SHUTDOWN_TIMEOUT", "not-a-duration"},
		{"BATCH_SIZE", "0"},
		{"BATCH_SIZE", "9999"},
		{"ANOMALY_THRESHOLD", "warm"},
		{"MIN_DAILY_SAMPLES", "3.5"},
		{"PUBLISH_ON_GATE_FAILURE", "sometimes"},
		{"RUN_INTERVAL", "daily"},
		{"RUN_INTERVAL", "0s"},
		{"OPEN_METEO_TIMEOUT", "-1s"},
		{"REALTIME_MAX_RETRIES", "-1"},
		{"HISTORICAL_SOURCE", "s3"},
	}
	for _, tc := range tests {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.key)
		})
	}
}

func TestLoad_PostgresRequiresDatabaseURL(t *testing.T) {
	t.Setenv("HISTORICAL_SOURCE", "postgres")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestConfig_Params(t *testing.T) {
	t.Setenv("ANOMALY_THRESHOLD", "4")
	t.Setenv("QUALITY_MIN_ROWS", "10")
	t.Setenv("HISTORICAL_PRECIP_UNIT", "mm")

	cfg, err := Load()
	require.NoError(t, err)
	p, err := cfg.Params()
	require.NoError(t, err)

	assert.Equal(t, "boston", p.LocationID)
	assert.Equal(t, "America/New_York", p.Timezone.String())
	assert.Equal(t, 4.0, p.AnomalyThreshold)
	assert.Equal(t, domain.Millimeter, p.HistoricalPrecipUnit)
	assert.Equal(t, domain.Celsius, p.RealtimeTempUnit)
	assert.Equal(t, 10, p.Gate.MinRows)
}

func TestConfig_ParamsRejectsInvalidTuning(t *testing.T) {
	t.Setenv("ANOMALY_THRESHOLD", "0")
	t.Setenv("REALTIME_TEMP_UNIT", "K")

	cfg, err := Load()
	require.NoError(t, err)
	_, err = cfg.Params()

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Len(t, cfgErr.Problems, 2)
}

func TestConfig_ParamsUnknownTimezone(t *testing.T) {
	t.Setenv("LOCATION_TIMEZONE", "Mars/Olympus_Mons")

	cfg, err := Load()
	require.NoError(t, err)
	_, err = cfg.Params()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOCATION_TIMEZONE")
}

func TestConfig_ParamsRejectsNonFiniteTuning(t *testing.T) {
	t.Setenv("ANOMALY_THRESHOLD", "NaN")
	t.Setenv("QUALITY_MAX_TEMP_C", "+Inf")

	cfg, err := Load()
	require.NoError(t, err, "ParseFloat accepts NaN and Inf; the domain check rejects them")
	_, err = cfg.Params()

	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Len(t, cfgErr.Problems, 2)
}
