package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/grid-status-aggregator/internal/domain"
)

// Default report endpoints. "{date}" is replaced with the market date at fetch time.
const (
	DefaultStatusURL   = "https://webservices.iso-ne.com/api/v1.1/systemstatus/current.json"
	DefaultLoadURL     = "https://www.iso-ne.com/transform/csv/fiveminutesystemload/current"
	DefaultZoneLoadURL = "https://www.iso-ne.com/static-transform/csv/histRpts/rt-load/WW_RT_ACTUAL_LOADS_{date}.csv"
	DefaultForecastURL = "https://www.iso-ne.com/transform/csv/sdf?start={date}"
)

// Bounds on the primary polling interval.
const (
	MinUpdateInterval = time.Minute
	MaxUpdateInterval = 60 * time.Minute
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Scope. An empty Zone disables zonal polling.
	Zone              string
	MonitorSystemwide bool

	// Polling cadences.
	UpdateInterval      time.Duration
	ZoneLoadInterval    time.Duration
	CapacityInterval    time.Duration
	ForecastInterval    time.Duration
	FetchTimeout        time.Duration
	PermanentBackoffMax time.Duration

	// Upstream endpoints.
	StatusURL   string
	LoadURL     string
	ZoneLoadURL string
	ForecastURL string

	AlertRulesPath string

	// Snapshot publishing.
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaSnapshotTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		StatusURL:          sharedcfg.EnvOrDefault("ISONE_STATUS_URL", DefaultStatusURL),
		LoadURL:            sharedcfg.EnvOrDefault("ISONE_LOAD_URL", DefaultLoadURL),
		ZoneLoadURL:        sharedcfg.EnvOrDefault("ISONE_ZONE_LOAD_URL", DefaultZoneLoadURL),
		ForecastURL:        sharedcfg.EnvOrDefault("ISONE_FORECAST_URL", DefaultForecastURL),
		AlertRulesPath:     os.Getenv("ALERT_RULES_PATH"),
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSnapshotTopic: sharedcfg.EnvOrDefault("KAFKA_SNAPSHOT_TOPIC", "grid-snapshots"),
	}

	if cfg.Zone, err = parseZone(); err != nil {
		return nil, err
	}
	if cfg.MonitorSystemwide, err = parseBool("MONITOR_SYSTEMWIDE", true); err != nil {
		return nil, err
	}

	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"UPDATE_INTERVAL", 5 * time.Minute, &cfg.UpdateInterval},
		{"ZONE_LOAD_INTERVAL", 10 * time.Minute, &cfg.ZoneLoadInterval},
		{"CAPACITY_INTERVAL", 30 * time.Minute, &cfg.CapacityInterval},
		{"FORECAST_INTERVAL", 30 * time.Minute, &cfg.ForecastInterval},
		{"FETCH_TIMEOUT", 10 * time.Second, &cfg.FetchTimeout},
		{"PERMANENT_BACKOFF_MAX", 2 * time.Hour, &cfg.PermanentBackoffMax},
	}
	for _, d := range durations {
		if *d.dst, err = parseDuration(d.key, d.def); err != nil {
			return nil, err
		}
	}
	if cfg.UpdateInterval < MinUpdateInterval || cfg.UpdateInterval > MaxUpdateInterval {
		return nil, fmt.Errorf("invalid UPDATE_INTERVAL %s: must be between %s and %s", cfg.UpdateInterval, MinUpdateInterval, MaxUpdateInterval)
	}

	for key, u := range map[string]string{
		"ISONE_STATUS_URL":    cfg.StatusURL,
		"ISONE_LOAD_URL":      cfg.LoadURL,
		"ISONE_ZONE_LOAD_URL": cfg.ZoneLoadURL,
		"ISONE_FORECAST_URL":  cfg.ForecastURL,
	} {
		if err := validateURL(key, u); err != nil {
			return nil, err
		}
	}

	_, brokersSet := os.LookupEnv("KAFKA_BROKERS")
	if cfg.KafkaEnabled, err = parseBool("KAFKA_ENABLED", brokersSet); err != nil {
		return nil, err
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
		}
		if cfg.KafkaSnapshotTopic == "" {
			return nil, errors.New("KAFKA_SNAPSHOT_TOPIC is required")
		}
	}

	return cfg, nil
}

// parseZone returns the normalized GRID_ZONE. Unset selects the default zone;
// set but empty disables zonal polling.
func parseZone() (string, error) {
	name, ok := os.LookupEnv("GRID_ZONE")
	if !ok {
		return domain.DefaultZone, nil
	}
	if name == "" {
		return "", nil
	}
	z, err := domain.LookupZone(name)
	if err != nil {
		return "", fmt.Errorf("invalid GRID_ZONE: %w", err)
	}
	return z.Name, nil
}

func parseBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return v, nil
}

func parseDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", key, s)
	}
	return d, nil
}

func validateURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid %s %q: want an absolute http(s) URL", key, raw)
	}
	return nil
}
