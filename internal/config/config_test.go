package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultBroker = "localhost:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "NEW_HAMPSHIRE", cfg.Zone)
	assert.True(t, cfg.MonitorSystemwide)
	assert.Equal(t, 5*time.Minute, cfg.UpdateInterval)
	assert.Equal(t, 10*time.Minute, cfg.ZoneLoadInterval)
	assert.Equal(t, 30*time.Minute, cfg.CapacityInterval)
	assert.Equal(t, 30*time.Minute, cfg.ForecastInterval)
	assert.Equal(t, 10*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 2*time.Hour, cfg.PermanentBackoffMax)
	assert.Equal(t, DefaultStatusURL, cfg.StatusURL)
	assert.Equal(t, DefaultForecastURL, cfg.ForecastURL)
	assert.Empty(t, cfg.AlertRulesPath)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "grid-snapshots", cfg.KafkaSnapshotTopic)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("GRID_ZONE", "connecticut")
	t.Setenv("MONITOR_SYSTEMWIDE", "false")
	t.Setenv("UPDATE_INTERVAL", "2m")
	t.Setenv("ZONE_LOAD_INTERVAL", "15m")
	t.Setenv("CAPACITY_INTERVAL", "1h")
	t.Setenv("FORECAST_INTERVAL", "45m")
	t.Setenv("FETCH_TIMEOUT", "3s")
	t.Setenv("PERMANENT_BACKOFF_MAX", "6h")
	t.Setenv("ISONE_FORECAST_URL", "http://mirror.internal/sdf/{date}.csv")
	t.Setenv("ALERT_RULES_PATH", "/etc/gridmon/rules.yaml")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SNAPSHOT_TOPIC", "custom-snapshots")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "CONNECTICUT", cfg.Zone)
	assert.False(t, cfg.MonitorSystemwide)
	assert.Equal(t, 2*time.Minute, cfg.UpdateInterval)
	assert.Equal(t, 15*time.Minute, cfg.ZoneLoadInterval)
	assert.Equal(t, time.Hour, cfg.CapacityInterval)
	assert.Equal(t, 45*time.Minute, cfg.ForecastInterval)
	assert.Equal(t, 3*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 6*time.Hour, cfg.PermanentBackoffMax)
	assert.Equal(t, "http://mirror.internal/sdf/{date}.csv", cfg.ForecastURL)
	assert.Equal(t, "/etc/gridmon/rules.yaml", cfg.AlertRulesPath)
	assert.True(t, cfg.KafkaEnabled, "explicit brokers enable publishing")
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-snapshots", cfg.KafkaSnapshotTopic)
}

func TestLoad_EmptyZoneDisablesZonalPolling(t *testing.T) {
	t.Setenv("GRID_ZONE", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.Zone)
}

func TestLoad_KafkaExplicitlyDisabled(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker1:9092")
	t.Setenv("KAFKA_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.KafkaEnabled)
}

func TestLoad_KafkaEnabledWithDefaultBroker(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "true")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"SHUTDOWN_TIMEOUT", "not-a-duration"},
		{"SHUTDOWN_TIMEOUT", "-1s"},
		{"GRID_ZONE", "ATLANTIS"},
		{"MONITOR_SYSTEMWIDE", "sometimes"},
		{"UPDATE_INTERVAL", "30s"},
		{"UPDATE_INTERVAL", "2h"},
		{"UPDATE_INTERVAL", "soon"},
		{"ZONE_LOAD_INTERVAL", "0s"},
		{"CAPACITY_INTERVAL", "-5m"},
		{"FORECAST_INTERVAL", "often"},
		{"FETCH_TIMEOUT", "0"},
		{"PERMANENT_BACKOFF_MAX", "forever"},
		{"ISONE_STATUS_URL", "not a url"},
		{"ISONE_LOAD_URL", "ftp://example.test/load.csv"},
		{"ISONE_ZONE_LOAD_URL", "/relative/path"},
		{"KAFKA_ENABLED", "maybe"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_ZoneErrorListsChoices(t *testing.T) {
	t.Setenv("GRID_ZONE", "ATLANTIS")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NEW_HAMPSHIRE")
}
