package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"casualty-dispatch/internal/distance"
	"casualty-dispatch/internal/models"
	"casualty-dispatch/internal/scheduling"
)

// Config is the application configuration loaded from config.yaml
type Config struct {
	Estimator EstimatorConfig `yaml:"estimator"`
	Policy    PolicyConfig    `yaml:"policy"`
	Journal   JournalConfig   `yaml:"journal"`
	Log       LogConfig       `yaml:"log"`
	Geocoding GeocodingConfig `yaml:"geocoding"`
	Notify    NotifyConfig    `yaml:"notify"`
}

// EstimatorConfig configures the travel-time estimator
type EstimatorConfig struct {
	AverageSpeedKph float64     `yaml:"average_speed_kph"`
	TrafficFactor   float64     `yaml:"traffic_factor"`
	LoadingMinutes  SeverityMap `yaml:"loading_minutes"`
}

// PolicyConfig holds the scheduling weight tables keyed by severity name
type PolicyConfig struct {
	SeverityWeights SeverityMap `yaml:"severity_weights"`
	TimeWeights     SeverityMap `yaml:"time_weights"`
	AgingRate       float64     `yaml:"aging_rate"`
}

// ErrDuplicateSeverity is returned when two keys of one table name the same severity
var ErrDuplicateSeverity = errors.New("duplicate severity key")

// SeverityMap is a table keyed by severity name. Keys are case-insensitive
// and stored in canonical form, so a file entry for "red" replaces the
// default "RED" instead of sitting beside it.
type SeverityMap map[string]float64

// UnmarshalYAML merges the node into m, rejecting unknown severities and
// keys that differ only in case.
func (m *SeverityMap) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]float64
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if _, err := severityTable(raw); err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	if *m == nil {
		*m = make(SeverityMap, len(raw))
	}
	for name, v := range raw {
		sev, _ := models.ParseSeverity(name)
		(*m)[sev.String()] = v
	}
	return nil
}

// JournalConfig configures the SQLite assignment journal
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LogConfig configures the zap logger
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// GeocodingConfig configures the address preparation tool
type GeocodingConfig struct {
	BaseURL       string  `yaml:"base_url"`
	UserAgent     string  `yaml:"user_agent"`
	RatePerSecond float64 `yaml:"rate_per_second"`
	MaxRetries    int     `yaml:"max_retries"`
}

// NotifyConfig configures the Redis pass publisher. Empty URL disables it.
type NotifyConfig struct {
	RedisURL string `yaml:"redis_url"`
	Channel  string `yaml:"channel"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Estimator: EstimatorConfig{
			AverageSpeedKph: distance.DefaultAverageSpeedKph,
			TrafficFactor:   distance.DefaultTrafficFactor,
			LoadingMinutes:  SeverityMap{"RED": 10, "YELLOW": 7, "GREEN": 5},
		},
		Policy: PolicyConfig{
			SeverityWeights: SeverityMap{"RED": 100, "YELLOW": 50, "GREEN": 10},
			TimeWeights:     SeverityMap{"RED": 3, "YELLOW": 2, "GREEN": 1},
			AgingRate:       scheduling.DefaultAgingRate,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Geocoding: GeocodingConfig{
			BaseURL:       "https://nominatim.openstreetmap.org",
			UserAgent:     "CasualtyDispatch/1.0",
			RatePerSecond: 1,
			MaxRetries:    3,
		},
		Notify: NotifyConfig{
			Channel: "dispatch:passes",
		},
	}
}

// Load reads the configuration at path, returning defaults if the file does
// not exist. An empty path means ~/.casualty-dispatch/config.yaml.
// Environment variables override file values.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := GetConfigFilePath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if cfg.Journal.Enabled && cfg.Journal.Path == "" {
		p, err := GetDefaultJournalPath()
		if err != nil {
			return nil, err
		}
		cfg.Journal.Path = p
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("DISPATCH_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("DISPATCH_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("DISPATCH_DB_PATH"); v != "" {
		c.Journal.Enabled = true
		c.Journal.Path = v
	}
	if v := os.Getenv("DISPATCH_REDIS_URL"); v != "" {
		c.Notify.RedisURL = v
	}
	if v := os.Getenv("DISPATCH_TRAFFIC_FACTOR"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid DISPATCH_TRAFFIC_FACTOR %q: %w", v, err)
		}
		c.Estimator.TrafficFactor = f
	}
	return nil
}

// Validate checks value ranges and that every severity is covered
func (c *Config) Validate() error {
	if c.Estimator.AverageSpeedKph <= 0 {
		return fmt.Errorf("estimator.average_speed_kph must be positive")
	}
	if c.Estimator.TrafficFactor <= 0 {
		return fmt.Errorf("estimator.traffic_factor must be positive")
	}
	if _, err := c.EstimatorSettings(); err != nil {
		return err
	}
	policy, err := c.SchedulingPolicy()
	if err != nil {
		return err
	}
	if err := policy.Validate(); err != nil {
		return err
	}
	if c.Geocoding.RatePerSecond <= 0 {
		return fmt.Errorf("geocoding.rate_per_second must be positive")
	}
	return nil
}

// EstimatorSettings converts the estimator section into distance.Config
func (c *Config) EstimatorSettings() (distance.Config, error) {
	minutes, err := severityTable(c.Estimator.LoadingMinutes)
	if err != nil {
		return distance.Config{}, fmt.Errorf("estimator.loading_minutes: %w", err)
	}
	loading := make(distance.LoadingTimes, len(minutes))
	for sev, m := range minutes {
		loading[sev] = time.Duration(m * float64(time.Minute))
	}
	return distance.Config{
		AverageSpeedKph: c.Estimator.AverageSpeedKph,
		TrafficFactor:   c.Estimator.TrafficFactor,
		LoadingTimes:    loading,
	}, nil
}

// SchedulingPolicy converts the policy section into scheduling.Policy
func (c *Config) SchedulingPolicy() (scheduling.Policy, error) {
	severity, err := severityTable(c.Policy.SeverityWeights)
	if err != nil {
		return scheduling.Policy{}, fmt.Errorf("policy.severity_weights: %w", err)
	}
	timeWeights, err := severityTable(c.Policy.TimeWeights)
	if err != nil {
		return scheduling.Policy{}, fmt.Errorf("policy.time_weights: %w", err)
	}
	return scheduling.Policy{
		SeverityWeights: severity,
		TimeWeights:     timeWeights,
		AgingRate:       c.Policy.AgingRate,
	}, nil
}

func severityTable(in map[string]float64) (map[models.Severity]float64, error) {
	out := make(map[models.Severity]float64, len(in))
	seen := make(map[models.Severity]string, len(in))
	for name, w := range in {
		sev, err := models.ParseSeverity(name)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[sev]; ok {
			return nil, fmt.Errorf("%w: %q and %q both name %s", ErrDuplicateSeverity, prev, name, sev)
		}
		seen[sev] = name
		out[sev] = w
	}
	return out, nil
}
