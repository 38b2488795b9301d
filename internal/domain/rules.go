package domain

import (
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// RuleConfig is the externally configurable forecast rule table.
type RuleConfig struct {
	LoadReliefKeywords     []string `yaml:"load_relief_keywords"`
	OP4Keywords            []string `yaml:"op4_keywords"`
	LowReserveThresholdPct float64  `yaml:"low_reserve_threshold_pct"`
	ReserveMarginLabel     string   `yaml:"reserve_margin_label"`
	AvailableLabel         string   `yaml:"available_label"`
	RequirementLabel       string   `yaml:"requirement_label"`
	DeficiencyLabels       []string `yaml:"deficiency_labels"`
	OutageLabel            string   `yaml:"outage_label"`
	OutageThresholdMW      float64  `yaml:"outage_threshold_mw"` // 0 disables the outage rule
}

// DefaultRuleConfig returns the built-in rule table.
func DefaultRuleConfig() RuleConfig {
	return RuleConfig{
		LoadReliefKeywords: []string{
			"load relief", "demand response", "voltage reduction", "load shed",
			"curtailment", "public appeal", "conservation",
		},
		OP4Keywords:            []string{"op-4", "op4", "op 4", "capacity deficiency procedure"},
		LowReserveThresholdPct: 10,
		ReserveMarginLabel:     "Reserve Margin (%)",
		AvailableLabel:         "Total Available Generation and Imports",
		RequirementLabel:       "Total Capacity Supply Obligation (CSO)",
		DeficiencyLabels:       []string{"Surplus/(Deficiency)", "Capacity Deficiency"},
		OutageLabel:            "Anticipated Cold Weather Outages",
		OutageThresholdMW:      3000,
	}
}

// LoadRuleConfig reads a YAML rule table. Keys absent from the file keep their
// built-in values.
func LoadRuleConfig(path string) (RuleConfig, error) {
	cfg := DefaultRuleConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return RuleConfig{}, fmt.Errorf("read rules: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return RuleConfig{}, fmt.Errorf("parse rules: %w", err)
	}
	if cfg.LowReserveThresholdPct <= 0 {
		return RuleConfig{}, fmt.Errorf("rules: low_reserve_threshold_pct must be positive")
	}
	return cfg, nil
}

// ReserveMargin returns the day's reserve margin percentage: the published
// margin row when present, otherwise (available - requirement) / requirement.
// A day missing either input has no margin.
func (c RuleConfig) ReserveMargin(day DayRecord) (float64, bool) {
	if v, ok := day.Value(c.ReserveMarginLabel); ok {
		return v, true
	}
	avail, ok1 := day.Value(c.AvailableLabel)
	req, ok2 := day.Value(c.RequirementLabel)
	if !ok1 || !ok2 || req == 0 {
		return 0, false
	}
	return math.Round((avail-req)/req*1000) / 10, true
}

// Rule is one independent per-day predicate.
type Rule interface {
	Type() AlertType
	Evaluate(day DayRecord) (AlertDetail, bool)
}

// Rules builds the ordered rule list: load relief, OP-4, low reserve,
// deficiency, then outages. Alerts on a day keep this order.
func (c RuleConfig) Rules() []Rule {
	rules := []Rule{
		keywordRule{alert: AlertLoadRelief, prefix: "Load relief anticipated", keywords: lowerAll(c.LoadReliefKeywords)},
		keywordRule{alert: AlertOP4Forecast, prefix: "OP-4 anticipated", keywords: lowerAll(c.OP4Keywords)},
		reserveRule{cfg: c},
		deficiencyRule{labels: c.DeficiencyLabels},
	}
	if c.OutageThresholdMW > 0 {
		rules = append(rules, outageRule{label: c.OutageLabel, threshold: c.OutageThresholdMW})
	}
	return rules
}

type keywordRule struct {
	alert    AlertType
	prefix   string
	keywords []string
}

func (r keywordRule) Type() AlertType { return r.alert }

func (r keywordRule) Evaluate(day DayRecord) (AlertDetail, bool) {
	for _, note := range day.Notes {
		lower := strings.ToLower(note)
		for _, kw := range r.keywords {
			if kw != "" && strings.Contains(lower, kw) {
				return AlertDetail{Type: r.alert, Message: fmt.Sprintf("%s: %s", r.prefix, note)}, true
			}
		}
	}
	return AlertDetail{}, false
}

type reserveRule struct {
	cfg RuleConfig
}

func (r reserveRule) Type() AlertType { return AlertLowReserve }

func (r reserveRule) Evaluate(day DayRecord) (AlertDetail, bool) {
	margin, ok := r.cfg.ReserveMargin(day)
	if !ok || margin >= r.cfg.LowReserveThresholdPct {
		return AlertDetail{}, false
	}
	kind := "Low reserve margin"
	if margin < 0 {
		kind = "Critical reserve margin"
	}
	msg := fmt.Sprintf("%s: %.1f%%", kind, margin)
	avail, ok1 := day.Value(r.cfg.AvailableLabel)
	req, ok2 := day.Value(r.cfg.RequirementLabel)
	if ok1 && ok2 {
		msg += fmt.Sprintf(" (Available: %s MW, Required: %s MW)", formatMW(avail), formatMW(req))
	}
	return AlertDetail{Type: AlertLowReserve, Message: msg}, true
}

type deficiencyRule struct {
	labels []string
}

func (r deficiencyRule) Type() AlertType { return AlertCapacityDeficiency }

func (r deficiencyRule) Evaluate(day DayRecord) (AlertDetail, bool) {
	for _, label := range r.labels {
		if v, ok := day.Value(label); ok && v < 0 {
			return AlertDetail{
				Type:    AlertCapacityDeficiency,
				Message: fmt.Sprintf("Capacity deficiency: %s MW short", formatMW(-v)),
			}, true
		}
		if t, ok := day.TextValue(label); ok && deficiencyFlags[strings.ToLower(t)] {
			return AlertDetail{
				Type:    AlertCapacityDeficiency,
				Message: fmt.Sprintf("Capacity deficiency flagged (%s: %s)", label, t),
			}, true
		}
	}
	return AlertDetail{}, false
}

var deficiencyFlags = map[string]bool{"y": true, "yes": true, "true": true, "deficiency": true, "deficient": true}

type outageRule struct {
	label     string
	threshold float64
}

func (r outageRule) Type() AlertType { return AlertHighOutages }

func (r outageRule) Evaluate(day DayRecord) (AlertDetail, bool) {
	v, ok := day.Value(r.label)
	if !ok || v <= r.threshold {
		return AlertDetail{}, false
	}
	return AlertDetail{
		Type:    AlertHighOutages,
		Message: fmt.Sprintf("%s MW offline due to cold weather", formatMW(v)),
	}, true
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return out
}

// formatMW renders a whole-MW value with thousands separators.
func formatMW(v float64) string {
	n := int64(math.Round(v))
	neg := n < 0
	if neg {
		n = -n
	}
	s := fmt.Sprintf("%d", n)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
