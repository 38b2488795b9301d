package isone

import (
	"context"

	"github.com/couchcryptid/grid-status-aggregator/internal/domain"
)

// ParseFunc turns one raw report into the update for its source.
type ParseFunc func(raw domain.RawReport) (domain.Update, domain.ParseStats, error)

// Source is one polled report: where to fetch it and how to parse it.
type Source struct {
	id     domain.SourceID
	url    string
	client *Client
	parse  ParseFunc
}

// NewSource creates a source fetching urlTemplate with client and parsing with parse.
func NewSource(id domain.SourceID, urlTemplate string, client *Client, parse ParseFunc) *Source {
	return &Source{id: id, url: urlTemplate, client: client, parse: parse}
}

// ID returns the source identifier.
func (s *Source) ID() domain.SourceID { return s.id }

// URL returns the configured URL template.
func (s *Source) URL() string { return s.url }

// Fetch downloads the current raw report.
func (s *Source) Fetch(ctx context.Context) (domain.RawReport, error) {
	return s.client.Fetch(ctx, s.id, s.url)
}

// Parse interprets a raw report previously returned by Fetch.
func (s *Source) Parse(raw domain.RawReport) (domain.Update, domain.ParseStats, error) {
	return s.parse(raw)
}

// Poll fetches and parses one report.
func (s *Source) Poll(ctx context.Context) (domain.Update, domain.ParseStats, error) {
	raw, err := s.Fetch(ctx)
	if err != nil {
		return nil, domain.ParseStats{}, err
	}
	return s.Parse(raw)
}

// NewStatusSource polls the system status feed.
func NewStatusSource(client *Client, urlTemplate string) *Source {
	return NewSource(domain.SourceStatus, urlTemplate, client, func(raw domain.RawReport) (domain.Update, domain.ParseStats, error) {
		rec, err := domain.ParseStatus(raw)
		if err != nil {
			return nil, domain.ParseStats{}, err
		}
		return domain.StatusUpdate{Record: rec}, domain.ParseStats{Rows: 1}, nil
	})
}

// NewTotalLoadSource polls the five-minute system load report.
func NewTotalLoadSource(client *Client, urlTemplate string) *Source {
	return NewSource(domain.SourceTotalLoad, urlTemplate, client, func(raw domain.RawReport) (domain.Update, domain.ParseStats, error) {
		r, stats, err := domain.ParseSystemLoad(raw)
		if err != nil {
			return nil, stats, err
		}
		return domain.TotalLoadUpdate{Reading: r}, stats, nil
	})
}

// NewZoneLoadSource polls the real-time zonal load report for zone.
func NewZoneLoadSource(client *Client, urlTemplate string, zone domain.Zone) *Source {
	return NewSource(domain.SourceZoneLoad, urlTemplate, client, func(raw domain.RawReport) (domain.Update, domain.ParseStats, error) {
		r, stats, err := domain.ParseZoneLoad(raw, zone)
		if err != nil {
			return nil, stats, err
		}
		return domain.ZoneLoadUpdate{Reading: r}, stats, nil
	})
}

// NewCapacitySource polls today's available capacity from the seven-day report.
func NewCapacitySource(client *Client, urlTemplate string, rules domain.RuleConfig) *Source {
	return NewSource(domain.SourceCapacity, urlTemplate, client, func(raw domain.RawReport) (domain.Update, domain.ParseStats, error) {
		r, stats, err := domain.ParseCapacity(raw, rules.AvailableLabel)
		if err != nil {
			return nil, stats, err
		}
		return domain.CapacityUpdate{Reading: r}, stats, nil
	})
}

// NewForecastSource polls the seven-day report and runs the forecast analyzer.
func NewForecastSource(client *Client, urlTemplate string, analyzer *domain.Analyzer) *Source {
	return NewSource(domain.SourceForecast, urlTemplate, client, func(raw domain.RawReport) (domain.Update, domain.ParseStats, error) {
		summary, stats, err := analyzer.Analyze(raw)
		if err != nil {
			return nil, stats, err
		}
		return domain.ForecastUpdate{Summary: summary}, stats, nil
	})
}
