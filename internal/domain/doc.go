// Package domain models ISO New England (ISO-NE) grid-operations data and the
// rules that turn it into severity-ranked alert states.
//
// # Data Sources
//
// Five upstream reports are polled independently:
//
//	status      free-text system condition ("OP-4 Action 5 in effect", "EEA Level 2")
//	total_load  five-minute system load CSV, latest row wins
//	zone_load   real-time actual loads per load zone CSV, latest non-empty value wins
//	capacity    seven-day capacity report, day 0 available capacity
//	forecast    seven-day capacity report, every day column analyzed for risk
//
// # ISO-NE CSV Conventions
//
// Every ISO-NE CSV report prefixes each line with a record type:
//
//	"C"  comment / title line, ignored
//	"H"  header line; the first H line names the columns
//	"D"  data line
//	"T"  trailer with row totals, ignored
//
// Numeric cells may contain thousands separators ("31,500") and accounting-style
// negatives ("(1,200)" = -1200). Blank cells are missing values, never zero.
//
// The seven-day capacity report is column-major: the H line carries one label per
// forecast day and each D line is one metric ("Total Available Generation and
// Imports") with one value per day. [ReadForecastDays] pivots it into one record
// per day before any rule is evaluated.
//
// # Severity
//
// Procedure codes and action numbers map to a 0-5 ordinal by [Classify]:
//
//	5 Emergency              EEA 3, OP-4 actions 10-11, OP-7
//	4 Alert (Power Warning)  OP-4 actions 6-9, EEA 2, Power Warning
//	3 Watch (Power Watch)    OP-4 actions 4-5, Power Watch
//	2 Warning                OP-4 actions 1-3 (or unnumbered), EEA 1, Power Caution
//	1 Advisory               M/LCC 2 abnormal conditions
//	0 Normal / Unknown
package domain
