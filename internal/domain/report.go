package domain

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Report is an ISO-NE CSV report split by record type.
type Report struct {
	Title  string   // first "C" line, if any
	Header []string // first "H" line without the record type column
	Rows   []ReportRow
}

// ReportRow is one "D" line without the record type column.
type ReportRow struct {
	Line   int
	Fields []string
}

var errNoHeader = errors.New("no header line")

// ReadReport splits an ISO-NE CSV payload into title, header, and data rows.
// Lines that are not valid CSV are skipped and counted in stats. A payload
// without any "H" line cannot be interpreted and returns a schema-level ParseError.
func ReadReport(source SourceID, body []byte, stats *ParseStats) (Report, error) {
	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var rep Report
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				stats.Rows++
				stats.skip(source, pe.StartLine, err)
				continue
			}
			return Report{}, schemaError(source, "read csv: %w", err)
		}
		if len(rec) == 0 {
			continue
		}

		switch strings.ToUpper(strings.TrimSpace(rec[0])) {
		case "C":
			if rep.Title == "" && len(rec) > 1 {
				rep.Title = strings.TrimSpace(rec[1])
			}
		case "H":
			if rep.Header == nil {
				rep.Header = trimAll(rec[1:])
			}
		case "D":
			line, _ := r.FieldPos(0)
			stats.Rows++
			rep.Rows = append(rep.Rows, ReportRow{Line: line, Fields: trimAll(rec[1:])})
		}
	}

	if rep.Header == nil {
		return Report{}, schemaError(source, "%w", errNoHeader)
	}
	return rep, nil
}

// Column returns the index of the first header matching any of the candidates,
// compared case-insensitively with punctuation and spaces removed, or -1.
func (r Report) Column(candidates ...string) int {
	for _, c := range candidates {
		want := compactKey(c)
		for i, h := range r.Header {
			if strings.Contains(compactKey(h), want) {
				return i
			}
		}
	}
	return -1
}

func trimAll(fields []string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = strings.TrimSpace(f)
	}
	return out
}

// compactKey lowercases s and drops everything but letters and digits, so
// ".Z.NEWHAMPSHIRE", "New Hampshire" and "NEW_HAMPSHIRE" compare equal.
func compactKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var errBlank = errors.New("blank value")

// parseNumber parses ISO-NE numeric cells: thousands separators, an optional
// trailing "%" and accounting-style negatives in parentheses.
func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errBlank
	}
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = strings.TrimSuffix(strings.ReplaceAll(s, ",", ""), "%")
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	if neg {
		v = -v
	}
	return v, nil
}
