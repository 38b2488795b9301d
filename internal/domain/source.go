package domain

import "time"

// SourceID identifies one independently polled upstream report.
type SourceID string

const (
	SourceStatus    SourceID = "status"
	SourceTotalLoad SourceID = "total_load"
	SourceZoneLoad  SourceID = "zone_load"
	SourceCapacity  SourceID = "capacity"
	SourceForecast  SourceID = "forecast"
)

// AllSources lists every source in display order.
var AllSources = []SourceID{SourceStatus, SourceTotalLoad, SourceZoneLoad, SourceCapacity, SourceForecast}

// RawReport is an unparsed upstream payload. It is discarded once parsed.
type RawReport struct {
	Source    SourceID
	Body      []byte
	URL       string
	FetchedAt time.Time
}
