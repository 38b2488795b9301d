package domain

import (
	"errors"
	"fmt"
	"time"
)

// LoadReading is the latest load value taken from one load report.
type LoadReading struct {
	MW         float64   `json:"mw"`
	Zone       string    `json:"zone,omitempty"`
	ObservedAt time.Time `json:"observed_at"`
}

// CapacityReading is today's available capacity from the capacity report.
type CapacityReading struct {
	CapacityMW float64   `json:"capacity_mw"`
	ForDay     string    `json:"for_day"`
	ObservedAt time.Time `json:"observed_at"`
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
}

// eastern is the ISO-NE market time zone. Reports publish local wall-clock times.
var eastern = func() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.FixedZone("EST", -5*3600)
	}
	return loc
}()

// MarketDate formats t's calendar day in market time as YYYYMMDD, the form
// dated report URLs use.
func MarketDate(t time.Time) string {
	return t.In(eastern).Format("20060102")
}

// ParseSystemLoad returns the most recent system load from a five-minute load report.
func ParseSystemLoad(raw RawReport) (LoadReading, ParseStats, error) {
	return parseLatestLoad(raw, "", "native load", "actual load", "load")
}

// ParseZoneLoad returns the most recent load for zone from a real-time zonal load report.
func ParseZoneLoad(raw RawReport, zone Zone) (LoadReading, ParseStats, error) {
	return parseLatestLoad(raw, zone.Name, zone.ColumnKey(), zone.Name)
}

func parseLatestLoad(raw RawReport, zoneName string, columns ...string) (LoadReading, ParseStats, error) {
	var stats ParseStats
	rep, err := ReadReport(raw.Source, raw.Body, &stats)
	if err != nil {
		return LoadReading{}, stats, err
	}
	col := rep.Column(columns...)
	if col < 0 {
		return LoadReading{}, stats, schemaError(raw.Source, "no column matching %q", columns[0])
	}
	tsCol := rep.Column("timestamp", "time", "date")
	heCol := rep.Column("hour ending")

	found := false
	var reading LoadReading
	for _, row := range rep.Rows {
		if col >= len(row.Fields) {
			stats.skip(raw.Source, row.Line, fmt.Errorf("row has %d fields, want at least %d", len(row.Fields), col+1))
			continue
		}
		mw, err := parseNumber(row.Fields[col])
		if err != nil {
			if !errors.Is(err, errBlank) {
				stats.skip(raw.Source, row.Line, err)
			}
			continue
		}
		found = true
		reading = LoadReading{MW: mw, Zone: zoneName, ObservedAt: rowTime(row, tsCol, heCol, raw.FetchedAt)}
	}
	if !found {
		return LoadReading{}, stats, schemaError(raw.Source, "no load values in %d rows", len(rep.Rows))
	}
	return reading, stats, nil
}

// rowTime derives a row timestamp from a timestamp column, or a date column plus
// an hour-ending column. Falls back to the fetch time.
func rowTime(row ReportRow, tsCol, heCol int, fallback time.Time) time.Time {
	if tsCol < 0 || tsCol >= len(row.Fields) {
		return fallback
	}
	ts := row.Fields[tsCol]
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, ts, eastern); err == nil {
			return t
		}
	}
	if d, err := time.ParseInLocation("01/02/2006", ts, eastern); err == nil {
		if heCol >= 0 && heCol < len(row.Fields) {
			if he, err := parseNumber(row.Fields[heCol]); err == nil {
				return d.Add(time.Duration(he) * time.Hour)
			}
		}
		return d
	}
	return fallback
}

// ParseCapacity returns day 0 available capacity from the seven-day capacity report.
// label selects the metric row, matched like report columns.
func ParseCapacity(raw RawReport, label string) (CapacityReading, ParseStats, error) {
	var stats ParseStats
	rep, err := ReadReport(raw.Source, raw.Body, &stats)
	if err != nil {
		return CapacityReading{}, stats, err
	}
	if len(rep.Header) < 2 {
		return CapacityReading{}, stats, schemaError(raw.Source, "header has no day columns")
	}
	want := compactKey(label)
	for _, row := range rep.Rows {
		if len(row.Fields) < 2 || compactKey(row.Fields[0]) != want {
			continue
		}
		mw, err := parseNumber(row.Fields[1])
		if err != nil {
			return CapacityReading{}, stats, schemaError(raw.Source, "%s day 0: %w", label, err)
		}
		return CapacityReading{CapacityMW: mw, ForDay: rep.Header[1], ObservedAt: raw.FetchedAt}, stats, nil
	}
	return CapacityReading{}, stats, schemaError(raw.Source, "no %q row", label)
}
