package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// OP4Actions describes each numbered OP-4 action.
var OP4Actions = map[int]string{
	1:  "Power Caution - Resources Notified",
	2:  "EEA Level 1 Declared",
	3:  "Voluntary Load Curtailment Requested",
	4:  "Power Watch - Conservation May Be Needed",
	5:  "30-Minute Reserve Depletion",
	6:  "Demand Response - 2hr Block A",
	7:  "Demand Response - 2hr Block B",
	8:  "5% Voltage Reduction / EEA Level 2",
	9:  "Customer Generation & Industrial Curtailment",
	10: "Power Warning - Immediate Reduction Needed",
	11: "Governor Appeals / Load Shed Preparation",
}

// StatusRecord is the classified result of one successful status poll.
type StatusRecord struct {
	ProcedureCode     ProcedureCode `json:"procedure_code"`
	ActionNumber      *int          `json:"procedure_action_number,omitempty"`
	EEALevel          *int          `json:"eea_level,omitempty"`
	Severity          int           `json:"severity"`
	Label             string        `json:"status_label"`
	StatusText        string        `json:"status_text"`
	Description       string        `json:"description"`
	ActionDescription string        `json:"action_description,omitempty"`
	IsEmergency       bool          `json:"is_emergency"`
	ObservedAt        time.Time     `json:"observed_at"`
	BeginDate         *time.Time    `json:"begin_date,omitempty"` // when the condition took effect upstream
}

var (
	op7Re = regexp.MustCompile(`\bop-?\s?7\b|load shed`)
	op4Re = regexp.MustCompile(`\bop-?\s?4\b`)
	eeaRe = regexp.MustCompile(`\b(?:eea|energy emergency alert)\s*(?:level\s*)?([1-3])\b`)

	// Tried in order; the first match inside 1..11 wins.
	actionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`action\s+#?(\d+)`),
		regexp.MustCompile(`op-?\s?4\s+action\s+#?(\d+)`),
		regexp.MustCompile(`op-?\s?4\s+(\d+)`),
	}
)

// statusEntry is one condition as published by the status feed. Field matching
// is case-insensitive, so "status" and "Status" both decode.
type statusEntry struct {
	Status    string `json:"Status"`
	Message   string `json:"Message"`
	EEALevel  *int   `json:"EeaLevel"`
	BeginDate string `json:"BeginDate"`
}

// ParseStatus decodes a status report and classifies it. The feed publishes
// either one condition object or an array whose first element is current.
// An empty array means no condition is in effect.
func ParseStatus(raw RawReport) (StatusRecord, error) {
	body := bytes.TrimSpace(raw.Body)
	if len(body) == 0 {
		return StatusRecord{}, schemaError(SourceStatus, "empty payload")
	}

	entries, err := decodeStatusEntries(body)
	if err != nil {
		return StatusRecord{}, schemaError(SourceStatus, "%w", err)
	}

	observed := raw.FetchedAt
	if observed.IsZero() {
		observed = clock.Now()
	}
	if len(entries) == 0 {
		rec := ParseStatusText("")
		rec.ObservedAt = observed
		return rec, nil
	}

	e := entries[0]
	text := strings.TrimSpace(e.Status)
	if e.Message != "" && !strings.EqualFold(e.Message, text) {
		text = strings.TrimSpace(text + " " + e.Message)
	}
	rec := ParseStatusText(text)
	if e.EEALevel != nil && *e.EEALevel >= 1 && *e.EEALevel <= 3 && rec.EEALevel == nil {
		lvl := *e.EEALevel
		code := rec.ProcedureCode
		if code == ProcedureUnknown || code == ProcedureNormal {
			code = ProcedureEEA
		}
		rec = classifyRecord(rec.StatusText, code, rec.ActionNumber, &lvl)
	}
	if t, err := time.Parse(time.RFC3339, e.BeginDate); err == nil {
		rec.BeginDate = &t
	}
	rec.ObservedAt = observed
	return rec, nil
}

// statusEnvelope is the web services wrapper around the condition list.
type statusEnvelope struct {
	SystemStatuses *struct {
		SystemStatus json.RawMessage `json:"SystemStatus"`
	} `json:"SystemStatuses"`
}

func decodeStatusEntries(body []byte) ([]statusEntry, error) {
	if body[0] == '[' {
		var entries []statusEntry
		if err := json.Unmarshal(body, &entries); err != nil {
			return nil, fmt.Errorf("decode status list: %w", err)
		}
		return entries, nil
	}

	var env statusEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	if env.SystemStatuses != nil {
		inner := bytes.TrimSpace(env.SystemStatuses.SystemStatus)
		if len(inner) == 0 || bytes.Equal(inner, []byte("null")) {
			return nil, nil
		}
		return decodeStatusEntries(inner)
	}

	var e statusEntry
	if err := json.Unmarshal(body, &e); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return []statusEntry{e}, nil
}

// ParseStatusText extracts the procedure code, OP-4 action number, and EEA level
// from free status text and classifies the result. Blank text means normal operation.
func ParseStatusText(text string) StatusRecord {
	text = strings.TrimSpace(text)
	lower := strings.ToLower(text)

	var eea *int
	if m := eeaRe.FindStringSubmatch(lower); m != nil {
		n, _ := strconv.Atoi(m[1])
		eea = &n
	}

	var (
		code   ProcedureCode
		action *int
	)
	switch {
	case lower == "" || lower == "normal" || strings.HasPrefix(lower, "normal "):
		code = ProcedureNormal
	case op7Re.MatchString(lower):
		code = ProcedureOP7
	case op4Re.MatchString(lower):
		code = ProcedureOP4
		action = extractOP4Action(lower)
	case eea != nil || strings.Contains(lower, "energy emergency alert"):
		code = ProcedureEEA
	case strings.Contains(lower, "m/lcc") || strings.Contains(lower, "mlcc") || strings.Contains(lower, "abnormal"):
		code = ProcedureMLCC2
	case strings.Contains(lower, "power warning"):
		code = ProcedurePowerWarning
	case strings.Contains(lower, "power watch"):
		code = ProcedurePowerWatch
	case strings.Contains(lower, "power caution"):
		code = ProcedurePowerCaution
	default:
		code = ProcedureUnknown
	}

	if text == "" {
		text = LabelNormal
	}
	return classifyRecord(text, code, action, eea)
}

func extractOP4Action(lower string) *int {
	for _, re := range actionPatterns {
		m := re.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err == nil && n >= 1 && n <= 11 {
			return &n
		}
	}
	return nil
}

func classifyRecord(text string, code ProcedureCode, action, eea *int) StatusRecord {
	severity, label := Classify(code, action, eea)
	rec := StatusRecord{
		ProcedureCode: code,
		ActionNumber:  action,
		EEALevel:      eea,
		Severity:      severity,
		Label:         label,
		StatusText:    text,
		Description:   describe(text, code, action, eea, severity),
		IsEmergency:   severity >= SeverityAlert,
	}
	if action != nil {
		rec.ActionDescription = OP4Actions[*action]
	}
	return rec
}

func describe(text string, code ProcedureCode, action, eea *int, severity int) string {
	switch code {
	case ProcedureOP7:
		return "Emergency - Load shedding may occur"
	case ProcedureOP4:
		if action == nil {
			return "OP-4 Capacity Deficiency Procedure Active"
		}
		stage := "Early Warning"
		switch severity {
		case SeverityEmergency:
			stage = "Critical"
		case SeverityAlert:
			stage = "Power Warning"
		case SeverityWatch:
			stage = "Power Watch"
		}
		return fmt.Sprintf("OP-4 Action %d - %s", *action, stage)
	case ProcedureEEA:
		if eea == nil {
			return "Energy Emergency Alert"
		}
		return fmt.Sprintf("Energy Emergency Alert Level %d", *eea)
	case ProcedureMLCC2:
		return "Abnormal conditions alert"
	case ProcedurePowerWarning:
		return "Power Warning - Immediate reduction needed"
	case ProcedurePowerWatch:
		return "Power Watch - Conservation may be needed"
	case ProcedurePowerCaution:
		return "Power Caution - Resources on alert"
	case ProcedureNormal:
		return "Grid operating normally"
	default:
		return "Unrecognized status: " + text
	}
}
