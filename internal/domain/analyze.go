package domain

import "time"

// Analyzer turns a seven-day capacity report into ranked alert days.
type Analyzer struct {
	cfg   RuleConfig
	rules []Rule
}

// NewAnalyzer creates an Analyzer evaluating cfg's rules in table order.
func NewAnalyzer(cfg RuleConfig) *Analyzer {
	return &Analyzer{cfg: cfg, rules: cfg.Rules()}
}

// Analyze parses raw and evaluates every rule against every day independently.
// Only days with at least one alert are kept, ascending by days ahead. Day
// dates that cannot be read from the header are counted from raw.FetchedAt.
// Malformed lines are skipped and counted in the returned stats; an
// unrecognizable header fails the whole report.
func (a *Analyzer) Analyze(raw RawReport) (ForecastSummary, ParseStats, error) {
	var stats ParseStats
	rep, err := ReadReport(SourceForecast, raw.Body, &stats)
	if err != nil {
		return ForecastSummary{}, stats, err
	}

	base := raw.FetchedAt
	if base.IsZero() {
		base = clock.Now()
	}
	days, err := ReadForecastDays(rep, base.In(eastern), &stats)
	if err != nil {
		return ForecastSummary{}, stats, err
	}

	summary := ForecastSummary{Days: []ForecastDay{}, RowErrors: stats.RowErrors, CheckedAt: base}
	for _, day := range days {
		var alerts []AlertDetail
		for _, rule := range a.rules {
			if alert, ok := rule.Evaluate(day); ok {
				alerts = append(alerts, alert)
			}
		}
		if len(alerts) == 0 {
			continue
		}
		fd := ForecastDay{
			Date:      day.Date,
			DateLabel: day.Label,
			DaysAhead: day.DaysAhead,
			Alerts:    alerts,
		}
		if m, ok := a.cfg.ReserveMargin(day); ok {
			fd.ReserveMarginPct = &m
		}
		summary.Days = append(summary.Days, fd)
		summary.TotalAlerts += len(alerts)
	}

	if len(summary.Days) > 0 {
		summary.HasAlerts = true
		nearest := summary.Days[0].DaysAhead
		summary.NearestAlertDaysAhead = &nearest
	}
	return summary, stats, nil
}

// dayOf truncates t to midnight in its own location.
func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
