package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatusText(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		code        ProcedureCode
		action      *int
		eea         *int
		severity    int
		label       string
		description string
		emergency   bool
	}{
		{"blank", "", ProcedureNormal, nil, nil, 0, LabelNormal, "Grid operating normally", false},
		{"normal", "Normal", ProcedureNormal, nil, nil, 0, LabelNormal, "Grid operating normally", false},
		{"mlcc2", "M/LCC 2 Abnormal Conditions Alert", ProcedureMLCC2, nil, nil, 1, LabelAdvisory, "Abnormal conditions alert", false},
		{"op4 action 5", "OP-4 Action 5 in effect", ProcedureOP4, intp(5), nil, 3, LabelWatch, "OP-4 Action 5 - Power Watch", false},
		{"op4 compact", "op4 7", ProcedureOP4, intp(7), nil, 4, LabelAlert, "OP-4 Action 7 - Power Warning", true},
		{"op4 action 10", "OP-4 Action #10 implemented", ProcedureOP4, intp(10), nil, 5, LabelEmergency, "OP-4 Action 10 - Critical", true},
		{"op4 out of range action", "OP-4 Action 14", ProcedureOP4, nil, nil, 2, LabelWarning, "OP-4 Capacity Deficiency Procedure Active", false},
		{"op4 action 2 with eea 1", "OP-4 Action 2 / EEA Level 1", ProcedureOP4, intp(2), intp(1), 2, LabelWarning, "OP-4 Action 2 - Early Warning", false},
		{"op7", "OP-7 Load Shed Ordered", ProcedureOP7, nil, nil, 5, LabelEmergency, "Emergency - Load shedding may occur", true},
		{"load shed text", "Manual load shed in progress", ProcedureOP7, nil, nil, 5, LabelEmergency, "Emergency - Load shedding may occur", true},
		{"eea 2", "EEA Level 2", ProcedureEEA, nil, intp(2), 4, LabelAlert, "Energy Emergency Alert Level 2", true},
		{"eea 3 long form", "Energy Emergency Alert Level 3 declared", ProcedureEEA, nil, intp(3), 5, LabelEmergency, "Energy Emergency Alert Level 3", true},
		{"power caution", "Power Caution", ProcedurePowerCaution, nil, nil, 2, LabelWarning, "Power Caution - Resources on alert", false},
		{"power watch", "Power Watch issued", ProcedurePowerWatch, nil, nil, 3, LabelWatch, "Power Watch - Conservation may be needed", false},
		{"power warning", "Power Warning issued", ProcedurePowerWarning, nil, nil, 4, LabelAlert, "Power Warning - Immediate reduction needed", true},
		{"unknown", "Solar eclipse advisory", ProcedureUnknown, nil, nil, 0, LabelUnknown, "Unrecognized status: Solar eclipse advisory", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ParseStatusText(tt.text)
			assert.Equal(t, tt.code, rec.ProcedureCode)
			assert.Equal(t, tt.action, rec.ActionNumber)
			assert.Equal(t, tt.eea, rec.EEALevel)
			assert.Equal(t, tt.severity, rec.Severity)
			assert.Equal(t, tt.label, rec.Label)
			assert.Equal(t, tt.description, rec.Description)
			assert.Equal(t, tt.emergency, rec.IsEmergency)
		})
	}
}

func TestParseStatusText_ActionDescription(t *testing.T) {
	rec := ParseStatusText("OP-4 Action 8")
	assert.Equal(t, "5% Voltage Reduction / EEA Level 2", rec.ActionDescription)

	rec = ParseStatusText("OP-4")
	assert.Empty(t, rec.ActionDescription)
}

func TestParseStatus(t *testing.T) {
	fetched := time.Date(2026, time.October, 18, 14, 5, 0, 0, time.UTC)

	t.Run("array payload uses first entry", func(t *testing.T) {
		raw := RawReport{Source: SourceStatus, FetchedAt: fetched, Body: []byte(`[
			{"Status":"OP-4 Action 6","Message":"Demand response dispatched","BeginDate":"2026-10-18T09:45:00-04:00"},
			{"Status":"Normal"}
		]`)}
		rec, err := ParseStatus(raw)
		require.NoError(t, err)
		assert.Equal(t, ProcedureOP4, rec.ProcedureCode)
		assert.Equal(t, intp(6), rec.ActionNumber)
		assert.Equal(t, SeverityAlert, rec.Severity)
		assert.Equal(t, "OP-4 Action 6 Demand response dispatched", rec.StatusText)
		assert.Equal(t, fetched, rec.ObservedAt, "observation time is the fetch time")
		require.NotNil(t, rec.BeginDate)
		assert.True(t, rec.BeginDate.Equal(time.Date(2026, time.October, 18, 13, 45, 0, 0, time.UTC)))
	})

	t.Run("object payload with lowercase keys", func(t *testing.T) {
		raw := RawReport{Source: SourceStatus, FetchedAt: fetched, Body: []byte(`{"status":"Normal"}`)}
		rec, err := ParseStatus(raw)
		require.NoError(t, err)
		assert.Equal(t, LabelNormal, rec.Label)
		assert.Equal(t, fetched, rec.ObservedAt)
		assert.Nil(t, rec.BeginDate)
	})

	t.Run("condition in effect for days keeps fetch time", func(t *testing.T) {
		raw := RawReport{Source: SourceStatus, FetchedAt: fetched, Body: []byte(`{"Status":"M/LCC 2","BeginDate":"2026-10-15T06:00:00-04:00"}`)}
		rec, err := ParseStatus(raw)
		require.NoError(t, err)
		assert.Equal(t, fetched, rec.ObservedAt)
		require.NotNil(t, rec.BeginDate)
		assert.True(t, rec.BeginDate.Equal(time.Date(2026, time.October, 15, 10, 0, 0, 0, time.UTC)))
	})

	t.Run("explicit eea level field", func(t *testing.T) {
		raw := RawReport{Source: SourceStatus, FetchedAt: fetched, Body: []byte(`{"Status":"Capacity emergency","EeaLevel":3}`)}
		rec, err := ParseStatus(raw)
		require.NoError(t, err)
		assert.Equal(t, ProcedureEEA, rec.ProcedureCode)
		assert.Equal(t, SeverityEmergency, rec.Severity)
		assert.Equal(t, LabelEmergency, rec.Label)
	})

	t.Run("empty array is normal", func(t *testing.T) {
		raw := RawReport{Source: SourceStatus, FetchedAt: fetched, Body: []byte(`[]`)}
		rec, err := ParseStatus(raw)
		require.NoError(t, err)
		assert.Equal(t, ProcedureNormal, rec.ProcedureCode)
	})

	t.Run("web services envelope", func(t *testing.T) {
		raw := RawReport{Source: SourceStatus, FetchedAt: fetched, Body: []byte(`{"SystemStatuses":{"SystemStatus":[{"Status":"M/LCC 2 Abnormal Conditions Alert"}]}}`)}
		rec, err := ParseStatus(raw)
		require.NoError(t, err)
		assert.Equal(t, ProcedureMLCC2, rec.ProcedureCode)
		assert.Equal(t, SeverityAdvisory, rec.Severity)

		raw.Body = []byte(`{"SystemStatuses":{"SystemStatus":null}}`)
		rec, err = ParseStatus(raw)
		require.NoError(t, err)
		assert.Equal(t, ProcedureNormal, rec.ProcedureCode)
	})

	t.Run("missing fetch time uses package clock", func(t *testing.T) {
		fake := clockwork.NewFakeClockAt(fetched)
		SetClock(fake)
		t.Cleanup(func() { SetClock(nil) })

		rec, err := ParseStatus(RawReport{Source: SourceStatus, Body: []byte(`{"Status":"Normal"}`)})
		require.NoError(t, err)
		assert.Equal(t, fetched, rec.ObservedAt)
	})

	t.Run("invalid json is schema error", func(t *testing.T) {
		_, err := ParseStatus(RawReport{Source: SourceStatus, Body: []byte(`<html>`)})
		require.Error(t, err)
		var pe *ParseError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, SchemaLevel, pe.Level)
	})

	t.Run("empty body is schema error", func(t *testing.T) {
		_, err := ParseStatus(RawReport{Source: SourceStatus, Body: []byte("  ")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty payload")
	})
}

func TestParseStatus_Idempotent(t *testing.T) {
	raw := RawReport{
		Source:    SourceStatus,
		FetchedAt: time.Date(2026, time.October, 18, 14, 5, 0, 0, time.UTC),
		Body:      []byte(`{"Status":"OP-4 Action 4"}`),
	}
	first, err := ParseStatus(raw)
	require.NoError(t, err)
	second, err := ParseStatus(raw)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
