package domain

import (
	"math"
	"slices"
	"time"
)

// NoData is shown for any field whose source has never succeeded.
const NoData = "No Data"

// SourceHealth is the per-source diagnostic view: when the source last
// succeeded and why it last failed.
type SourceHealth struct {
	LastSuccess         *time.Time `json:"last_success,omitempty"`
	LastError           string     `json:"last_error,omitempty"`
	LastErrorAt         *time.Time `json:"last_error_at,omitempty"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	Permanent           bool       `json:"permanent,omitempty"`
}

// Snapshot is the aggregated, externally visible grid state. Each field holds
// the most recent successful value from the source that owns it; nil means the
// source has not succeeded yet. Fields may come from different poll times.
type Snapshot struct {
	Status            *StatusRecord             `json:"status"`
	TotalLoad         *LoadReading              `json:"total_load"`
	ZoneLoad          *LoadReading              `json:"zone_load"`
	Capacity          *CapacityReading          `json:"capacity"`
	CapacityMarginPct *float64                  `json:"capacity_margin_pct"`
	Forecast          *ForecastSummary          `json:"forecast_summary"`
	Sources           map[SourceID]SourceHealth `json:"sources"`
	UpdatedAt         time.Time                 `json:"updated_at"`
}

// Clone returns a deep copy that can be modified without affecting s.
func (s Snapshot) Clone() Snapshot {
	c := s
	c.Status = clonePtr(s.Status, StatusRecord.clone)
	c.TotalLoad = clonePtr(s.TotalLoad, nil)
	c.ZoneLoad = clonePtr(s.ZoneLoad, nil)
	c.Capacity = clonePtr(s.Capacity, nil)
	c.CapacityMarginPct = clonePtr(s.CapacityMarginPct, nil)
	c.Forecast = clonePtr(s.Forecast, ForecastSummary.clone)
	c.Sources = make(map[SourceID]SourceHealth, len(s.Sources))
	for id, h := range s.Sources {
		h.LastSuccess = clonePtr(h.LastSuccess, nil)
		h.LastErrorAt = clonePtr(h.LastErrorAt, nil)
		c.Sources[id] = h
	}
	return c
}

// clonePtr copies the value behind p, applying deep when the value itself
// holds references.
func clonePtr[T any](p *T, deep func(T) T) *T {
	if p == nil {
		return nil
	}
	v := *p
	if deep != nil {
		v = deep(v)
	}
	return &v
}

func (r StatusRecord) clone() StatusRecord {
	r.ActionNumber = clonePtr(r.ActionNumber, nil)
	r.EEALevel = clonePtr(r.EEALevel, nil)
	r.BeginDate = clonePtr(r.BeginDate, nil)
	return r
}

func (f ForecastSummary) clone() ForecastSummary {
	f.NearestAlertDaysAhead = clonePtr(f.NearestAlertDaysAhead, nil)
	if f.Days != nil {
		days := make([]ForecastDay, len(f.Days))
		for i, d := range f.Days {
			d.ReserveMarginPct = clonePtr(d.ReserveMarginPct, nil)
			d.Alerts = slices.Clone(d.Alerts)
			days[i] = d
		}
		f.Days = days
	}
	return f
}

// StatusLabel is the current status label, or NoData before the first status poll.
func (s Snapshot) StatusLabel() string {
	if s.Status == nil {
		return NoData
	}
	return s.Status.Label
}

// Severity is the current severity, 0 before the first status poll.
func (s Snapshot) Severity() int {
	if s.Status == nil {
		return SeverityNormal
	}
	return s.Status.Severity
}

// LastSuccess maps each source that has succeeded to its last success time.
func (s Snapshot) LastSuccess() map[SourceID]time.Time {
	out := make(map[SourceID]time.Time, len(s.Sources))
	for id, st := range s.Sources {
		if st.LastSuccess != nil {
			out[id] = *st.LastSuccess
		}
	}
	return out
}

// LastErrors maps each source that has failed to its last error description.
func (s Snapshot) LastErrors() map[SourceID]string {
	out := make(map[SourceID]string, len(s.Sources))
	for id, st := range s.Sources {
		if st.LastError != "" {
			out[id] = st.LastError
		}
	}
	return out
}

// Update replaces the fields owned by one source.
type Update interface {
	Source() SourceID
	Apply(s *Snapshot)
}

type StatusUpdate struct{ Record StatusRecord }

func (StatusUpdate) Source() SourceID { return SourceStatus }

func (u StatusUpdate) Apply(s *Snapshot) {
	r := u.Record
	s.Status = &r
}

type TotalLoadUpdate struct{ Reading LoadReading }

func (TotalLoadUpdate) Source() SourceID { return SourceTotalLoad }

func (u TotalLoadUpdate) Apply(s *Snapshot) {
	r := u.Reading
	s.TotalLoad = &r
	deriveMargin(s)
}

type ZoneLoadUpdate struct{ Reading LoadReading }

func (ZoneLoadUpdate) Source() SourceID { return SourceZoneLoad }

func (u ZoneLoadUpdate) Apply(s *Snapshot) {
	r := u.Reading
	s.ZoneLoad = &r
}

type CapacityUpdate struct{ Reading CapacityReading }

func (CapacityUpdate) Source() SourceID { return SourceCapacity }

func (u CapacityUpdate) Apply(s *Snapshot) {
	r := u.Reading
	s.Capacity = &r
	deriveMargin(s)
}

type ForecastUpdate struct{ Summary ForecastSummary }

func (ForecastUpdate) Source() SourceID { return SourceForecast }

func (u ForecastUpdate) Apply(s *Snapshot) {
	f := u.Summary
	s.Forecast = &f
}

// deriveMargin recomputes the capacity margin from the latest capacity and
// total load. With either input missing the previous margin is kept.
func deriveMargin(s *Snapshot) {
	if s.Capacity == nil || s.TotalLoad == nil || s.Capacity.CapacityMW == 0 {
		return
	}
	m := math.Round((s.Capacity.CapacityMW-s.TotalLoad.MW)/s.Capacity.CapacityMW*1000) / 10
	s.CapacityMarginPct = &m
}

// Poll outcomes as reported in metrics and published events.
const (
	OutcomeSuccess          = "success"
	OutcomeTransientFailure = "transient_failure"
	OutcomePermanentFailure = "permanent_failure"
)

// SnapshotEvent announces a merge into the snapshot store.
type SnapshotEvent struct {
	Source      SourceID
	PollID      string
	Outcome     string
	PublishedAt time.Time
	Snapshot    Snapshot
}
