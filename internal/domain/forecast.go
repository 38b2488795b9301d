package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// AlertType names the signal that flagged a forecast day.
type AlertType string

const (
	AlertLoadRelief         AlertType = "LOAD_RELIEF"
	AlertOP4Forecast        AlertType = "OP4_FORECAST"
	AlertLowReserve         AlertType = "LOW_RESERVE"
	AlertCapacityDeficiency AlertType = "CAPACITY_DEFICIENCY"
	AlertHighOutages        AlertType = "HIGH_OUTAGES"
)

// MaxDaysAhead bounds the forecast window: today plus seven days.
const MaxDaysAhead = 7

// AlertDetail is one detected signal on a forecast day.
type AlertDetail struct {
	Type    AlertType `json:"type"`
	Message string    `json:"message"`
}

// ForecastDay is a forecast day with at least one detected alert.
type ForecastDay struct {
	Date             time.Time     `json:"date"`
	DateLabel        string        `json:"date_label"`
	DaysAhead        int           `json:"days_ahead"`
	ReserveMarginPct *float64      `json:"reserve_margin_pct,omitempty"`
	Alerts           []AlertDetail `json:"detected_alerts"`
}

// ForecastSummary is the result of analyzing one forecast report.
type ForecastSummary struct {
	HasAlerts             bool          `json:"has_alerts"`
	TotalAlerts           int           `json:"total_alerts"`
	NearestAlertDaysAhead *int          `json:"nearest_alert_days_ahead,omitempty"`
	Days                  []ForecastDay `json:"days"`
	RowErrors             int           `json:"row_errors"`
	CheckedAt             time.Time     `json:"checked_at"`
}

// Headline renders the summary the way dashboards show it, e.g. "Alert Tomorrow (3 total)".
func (s *ForecastSummary) Headline() string {
	if s == nil {
		return NoData
	}
	if !s.HasAlerts || s.NearestAlertDaysAhead == nil {
		return "No Alerts"
	}
	switch d := *s.NearestAlertDaysAhead; d {
	case 0:
		return fmt.Sprintf("Alert Today (%d total)", s.TotalAlerts)
	case 1:
		return fmt.Sprintf("Alert Tomorrow (%d total)", s.TotalAlerts)
	default:
		return fmt.Sprintf("Alert in %d days (%d total)", d, s.TotalAlerts)
	}
}

// DayRecord is one forecast day pivoted out of the column-major capacity report.
// Values holds numeric cells by metric label; Texts holds the non-numeric ones,
// and Notes keeps those text cells in report order.
type DayRecord struct {
	DaysAhead int
	Label     string
	Date      time.Time
	Values    map[string]float64
	Texts     map[string]string
	Notes     []string

	col int // report column
}

// Value looks up a numeric metric by label, matched like report columns.
func (d DayRecord) Value(label string) (float64, bool) {
	want := compactKey(label)
	for k, v := range d.Values {
		if compactKey(k) == want {
			return v, true
		}
	}
	return 0, false
}

// TextValue looks up a text cell by metric label.
func (d DayRecord) TextValue(label string) (string, bool) {
	want := compactKey(label)
	for k, v := range d.Texts {
		if compactKey(k) == want {
			return v, true
		}
	}
	return "", false
}

var dayLayouts = []string{
	"Mon 01/02/2006",
	"Monday 01/02/2006",
	"Mon 1/2/2006",
	"01/02/2006",
	"1/2/2006",
	"2006-01-02",
	"Mon, Jan 2, 2006",
	"Jan 2, 2006",
}

// ReadForecastDays pivots a seven-day report into one record per day column.
// A column's days-ahead comes from its header date relative to base; columns
// whose label is not a date count from base by position. Days outside
// 0..MaxDaysAhead and repeated dates are ignored. Non-numeric cells become the
// day's notes. Data lines without a metric label are skipped and counted.
func ReadForecastDays(rep Report, base time.Time, stats *ParseStats) ([]DayRecord, error) {
	if len(rep.Header) < 2 {
		return nil, schemaError(SourceForecast, "header has no day columns")
	}

	baseDay := dayOf(base)
	var days []DayRecord
	seen := make(map[int]bool)
	for i, l := range rep.Header[1:] {
		ahead := i
		date, ok := parseDayLabel(l, baseDay.Location())
		if ok {
			ahead = calendarDays(baseDay, date)
		} else {
			date = baseDay.AddDate(0, 0, i)
		}
		if ahead < 0 || ahead > MaxDaysAhead || seen[ahead] {
			continue
		}
		seen[ahead] = true
		days = append(days, DayRecord{
			DaysAhead: ahead,
			Label:     l,
			Date:      date,
			Values:    make(map[string]float64),
			Texts:     make(map[string]string),
			col:       i,
		})
	}
	sort.SliceStable(days, func(i, j int) bool { return days[i].DaysAhead < days[j].DaysAhead })

	for _, row := range rep.Rows {
		if len(row.Fields) < 2 || row.Fields[0] == "" {
			stats.skip(SourceForecast, row.Line, fmt.Errorf("data line without metric label"))
			continue
		}
		metric := row.Fields[0]
		cells := row.Fields[1:]
		for i := range days {
			c := days[i].col
			if c >= len(cells) || cells[c] == "" {
				continue
			}
			if v, err := parseNumber(cells[c]); err == nil {
				days[i].Values[metric] = v
				continue
			}
			days[i].Texts[metric] = cells[c]
			days[i].Notes = append(days[i].Notes, cells[c])
		}
	}
	return days, nil
}

func parseDayLabel(label string, loc *time.Location) (time.Time, bool) {
	for _, layout := range dayLayouts {
		if t, err := time.ParseInLocation(layout, strings.TrimSpace(label), loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// calendarDays counts whole days from one midnight to another, ignoring DST shifts.
func calendarDays(from, to time.Time) int {
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
