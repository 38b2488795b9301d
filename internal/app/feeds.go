// Package app assembles the polled feeds from configuration.
package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/grid-status-aggregator/internal/adapter/isone"
	"github.com/couchcryptid/grid-status-aggregator/internal/config"
	"github.com/couchcryptid/grid-status-aggregator/internal/coordinator"
	"github.com/couchcryptid/grid-status-aggregator/internal/domain"
)

// Feed is one enabled source with its polling interval.
type Feed struct {
	Source   *isone.Source
	Interval time.Duration
}

// Rules returns the forecast rule table: the file at cfg.AlertRulesPath when
// set, otherwise the built-in table.
func Rules(cfg *config.Config) (domain.RuleConfig, error) {
	if cfg.AlertRulesPath == "" {
		return domain.DefaultRuleConfig(), nil
	}
	rules, err := domain.LoadRuleConfig(cfg.AlertRulesPath)
	if err != nil {
		return domain.RuleConfig{}, fmt.Errorf("load ALERT_RULES_PATH: %w", err)
	}
	return rules, nil
}

// Feeds builds the enabled feeds in display order. Status, capacity and
// forecast are always polled; system load only when monitoring system-wide,
// zonal load only when a zone is configured.
func Feeds(cfg *config.Config, clock clockwork.Clock, logger *slog.Logger) ([]Feed, error) {
	rules, err := Rules(cfg)
	if err != nil {
		return nil, err
	}
	client := isone.NewClient(cfg.FetchTimeout, clock, logger)

	feeds := []Feed{{Source: isone.NewStatusSource(client, cfg.StatusURL), Interval: cfg.UpdateInterval}}
	if cfg.MonitorSystemwide {
		feeds = append(feeds, Feed{Source: isone.NewTotalLoadSource(client, cfg.LoadURL), Interval: cfg.UpdateInterval})
	}
	if cfg.Zone != "" {
		zone, err := domain.LookupZone(cfg.Zone)
		if err != nil {
			return nil, err
		}
		feeds = append(feeds, Feed{Source: isone.NewZoneLoadSource(client, cfg.ZoneLoadURL, zone), Interval: cfg.ZoneLoadInterval})
	}
	feeds = append(feeds,
		Feed{Source: isone.NewCapacitySource(client, cfg.ForecastURL, rules), Interval: cfg.CapacityInterval},
		Feed{Source: isone.NewForecastSource(client, cfg.ForecastURL, domain.NewAnalyzer(rules)), Interval: cfg.ForecastInterval},
	)
	return feeds, nil
}

// Schedules converts feeds for the coordinator.
func Schedules(feeds []Feed) []coordinator.Schedule {
	out := make([]coordinator.Schedule, len(feeds))
	for i, f := range feeds {
		out[i] = coordinator.Schedule{Source: f.Source, Interval: f.Interval}
	}
	return out
}

// SourceIDs lists the feeds' source identifiers.
func SourceIDs(feeds []Feed) []domain.SourceID {
	out := make([]domain.SourceID, len(feeds))
	for i, f := range feeds {
		out[i] = f.Source.ID()
	}
	return out
}
