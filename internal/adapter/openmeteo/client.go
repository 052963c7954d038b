package openmeteo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ejsimon0408/BostonWeatherETL/internal/config"
	"github.com/ejsimon0408/BostonWeatherETL/internal/domain"
	"github.com/ejsimon0408/BostonWeatherETL/internal/observability"
	"golang.org/x/time/rate"
)

// ErrNoReading is returned when the API answers without a current_weather block.
var ErrNoReading = errors.New("open-meteo response has no current weather")

const (
	openMeteoTimeLayout = "2006-01-02T15:04"
	requestsPerSecond   = 1
)

// Client fetches the current reading for one location from the Open-Meteo
// forecast API. It implements pipeline.RealtimeSource.
type Client struct {
	httpClient *http.Client
	baseURL    string
	lat, lon   float64
	locationID string

	maxRetries    int
	retryInterval time.Duration
	limiter       *rate.Limiter

	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewClient creates an Open-Meteo client for the configured location.
func NewClient(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.OpenMeteoTimeout,
		},
		baseURL:       cfg.OpenMeteoURL,
		lat:           cfg.LocationLat,
		lon:           cfg.LocationLon,
		locationID:    cfg.LocationID,
		maxRetries:    cfg.RealtimeMaxRetries,
		retryInterval: 5 * time.Second,
		limiter:       rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		metrics:       metrics,
		logger:        logger,
	}
}

// Current returns the latest reading as a raw realtime record. Network errors,
// 429 and 5xx responses are retried; other failures are returned at once.
func (c *Client) Current(ctx context.Context) (domain.RawRealtimeRecord, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.RawRealtimeRecord{}, fmt.Errorf("open-meteo rate limit: %w", err)
	}

	params := url.Values{
		"latitude":        {strconv.FormatFloat(c.lat, 'f', -1, 64)},
		"longitude":       {strconv.FormatFloat(c.lon, 'f', -1, 64)},
		"current_weather": {"true"},
	}
	fullURL := c.baseURL + "?" + params.Encode()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInterval
	b.MaxElapsedTime = 0 // bounded by retries and context

	var body response
	operation := func() error {
		var err error
		body, err = c.fetch(ctx, fullURL)
		return err
	}
	err := backoff.RetryNotify(
		operation,
		backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.maxRetries)), ctx),
		func(err error, d time.Duration) {
			c.logger.Warn("open-meteo request failed, retrying", "error", err, "retry_delay", d)
		},
	)
	if err != nil {
		return domain.RawRealtimeRecord{}, err
	}

	return body.toRecord(c.locationID)
}

func (c *Client) fetch(ctx context.Context, fullURL string) (response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return response{}, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.RealtimeAPIDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if ctx.Err() != nil {
			return response{}, backoff.Permanent(ctx.Err())
		}
		return response{}, fmt.Errorf("open-meteo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("open-meteo API error: status %d: %s", resp.StatusCode, msg)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return response{}, err
		}
		return response{}, backoff.Permanent(err)
	}

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return response{}, backoff.Permanent(fmt.Errorf("decode response: %w", err))
	}
	return body, nil
}

// Open-Meteo API response types.

type response struct {
	UTCOffsetSeconds int               `json:"utc_offset_seconds"`
	Current          *currentWeather   `json:"current_weather"`
	Units            map[string]string `json:"current_weather_units"`
}

type currentWeather struct {
	Time        string   `json:"time"` // local to utc_offset_seconds, no zone suffix
	Temperature *float64 `json:"temperature"`
	WindSpeed   *float64 `json:"windspeed"`
}

func (r response) toRecord(locationID string) (domain.RawRealtimeRecord, error) {
	if r.Current == nil {
		return domain.RawRealtimeRecord{}, ErrNoReading
	}

	zone := time.FixedZone("", r.UTCOffsetSeconds)
	ts, err := time.ParseInLocation(openMeteoTimeLayout, r.Current.Time, zone)
	if err != nil {
		return domain.RawRealtimeRecord{}, fmt.Errorf("parse current_weather time %q: %w", r.Current.Time, err)
	}

	unit := domain.Celsius
	if r.Units["temperature"] == "°F" {
		unit = domain.Fahrenheit
	}

	return domain.RawRealtimeRecord{
		Timestamp:   ts.Format(time.RFC3339),
		Temperature: r.Current.Temperature,
		TempUnit:    unit,
		WindSpeed:   r.Current.WindSpeed,
		LocationID:  locationID,
	}, nil
}
