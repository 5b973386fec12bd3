package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"casualty-dispatch/internal/models"
)

// Result contains the result of a geocoding operation
type Result struct {
	Lat         float64
	Lng         float64
	DisplayName string
}

// Location converts the result to planar coordinates (X = longitude, Y = latitude)
func (r Result) Location() models.Location {
	return models.Location{X: r.Lng, Y: r.Lat}
}

// Geocoder provides address-to-coordinates conversion
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*Result, error)
	GeocodeWithRetry(ctx context.Context, address string, maxRetries int) (*Result, error)
}

// ErrGeocodingFailed is returned when an address cannot be geocoded
type ErrGeocodingFailed struct {
	Address string
	Reason  string
}

func (e *ErrGeocodingFailed) Error() string {
	return fmt.Sprintf("geocoding failed for address: %s - %s", e.Address, e.Reason)
}

// Config configures a Nominatim geocoder. Zero fields take the defaults.
type Config struct {
	BaseURL       string
	UserAgent     string
	RatePerSecond float64
	Timeout       time.Duration
	// RetryBackoff is the first retry delay; it doubles on every attempt
	RetryBackoff time.Duration
}

const (
	DefaultBaseURL   = "https://nominatim.openstreetmap.org"
	DefaultUserAgent = "CasualtyDispatch/1.0"
)

type nominatimGeocoder struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	backoff    time.Duration
	logger     *zap.Logger
}

type nominatimResponse struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// NewNominatimGeocoder creates a Nominatim geocoder. Requests are spaced by a
// token bucket with a burst of one, so the public usage policy of one
// request per second is kept with the default rate.
func NewNominatimGeocoder(cfg Config, logger *zap.Logger) Geocoder {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &nominatimGeocoder{
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1),
		backoff: cfg.RetryBackoff,
		logger:  logger.Named("geocoding"),
	}
}

func (g *nominatimGeocoder) Geocode(ctx context.Context, address string) (*Result, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	queryURL := fmt.Sprintf("%s/search?q=%s&format=json&limit=1", g.baseURL, url.QueryEscape(address))
	g.logger.Debug("request", zap.String("address", address), zap.String("url", queryURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return nil, &ErrGeocodingFailed{Address: address, Reason: err.Error()}
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		g.logger.Warn("request failed", zap.String("address", address), zap.Error(err))
		return nil, &ErrGeocodingFailed{Address: address, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		g.logger.Warn("api error", zap.String("address", address), zap.Int("status", resp.StatusCode), zap.ByteString("body", body))
		return nil, &ErrGeocodingFailed{
			Address: address,
			Reason:  fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body)),
		}
	}

	var results []nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, &ErrGeocodingFailed{Address: address, Reason: err.Error()}
	}

	if len(results) == 0 {
		return nil, &ErrGeocodingFailed{Address: address, Reason: "no results found"}
	}

	result := results[0]
	lat, err := strconv.ParseFloat(result.Lat, 64)
	if err != nil {
		return nil, &ErrGeocodingFailed{Address: address, Reason: "invalid latitude"}
	}
	lng, err := strconv.ParseFloat(result.Lon, 64)
	if err != nil {
		return nil, &ErrGeocodingFailed{Address: address, Reason: "invalid longitude"}
	}

	g.logger.Debug("response",
		zap.String("address", address),
		zap.Float64("lat", lat),
		zap.Float64("lng", lng),
		zap.String("display_name", result.DisplayName),
	)
	return &Result{Lat: lat, Lng: lng, DisplayName: result.DisplayName}, nil
}

func (g *nominatimGeocoder) GeocodeWithRetry(ctx context.Context, address string, maxRetries int) (*Result, error) {
	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		result, err := g.Geocode(ctx, address)
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastErr = err

		if i < maxRetries-1 {
			backoff := g.backoff << uint(i)
			g.logger.Info("retrying",
				zap.String("address", address),
				zap.Int("attempt", i+1),
				zap.Int("max_retries", maxRetries),
				zap.Duration("backoff", backoff),
				zap.Error(err),
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	g.logger.Warn("giving up", zap.String("address", address), zap.Int("attempts", maxRetries), zap.Error(lastErr))
	return nil, lastErr
}
