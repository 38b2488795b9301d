package domain

// ProcedureCode is the operating procedure named by a status report.
type ProcedureCode string

const (
	ProcedureNormal       ProcedureCode = "NORMAL"
	ProcedureMLCC2        ProcedureCode = "MLCC2"
	ProcedureOP4          ProcedureCode = "OP4"
	ProcedureOP7          ProcedureCode = "OP7"
	ProcedureEEA          ProcedureCode = "EEA"
	ProcedurePowerCaution ProcedureCode = "POWER_CAUTION"
	ProcedurePowerWatch   ProcedureCode = "POWER_WATCH"
	ProcedurePowerWarning ProcedureCode = "POWER_WARNING"
	ProcedureUnknown      ProcedureCode = "UNKNOWN"
)

// Severity levels, ordered from normal to emergency.
const (
	SeverityNormal    = 0
	SeverityAdvisory  = 1
	SeverityWarning   = 2
	SeverityWatch     = 3
	SeverityAlert     = 4
	SeverityEmergency = 5
)

// Status labels returned by Classify.
const (
	LabelEmergency = "Emergency"
	LabelAlert     = "Alert (Power Warning)"
	LabelWatch     = "Watch (Power Watch)"
	LabelWarning   = "Warning"
	LabelAdvisory  = "Advisory"
	LabelNormal    = "Normal"
	LabelUnknown   = "Unknown"
)

// Classify maps a procedure code, optional OP-4 action number, and optional EEA
// level to a severity in [0,5] and its label. The highest matching row wins, so an
// EEA 3 declaration is an emergency whatever the procedure code says. Unrecognized
// codes never fail: they yield severity 0 labelled "Unknown".
func Classify(code ProcedureCode, action, eea *int) (int, string) {
	op4 := code == ProcedureOP4
	act := 0
	if op4 && action != nil {
		act = *action
	}
	level := 0
	if eea != nil {
		level = *eea
	}

	switch {
	case level == 3, code == ProcedureOP7, op4 && (act == 10 || act == 11):
		return SeverityEmergency, LabelEmergency
	case op4 && act >= 6 && act <= 9, level == 2, code == ProcedurePowerWarning:
		return SeverityAlert, LabelAlert
	case op4 && (act == 4 || act == 5), code == ProcedurePowerWatch:
		return SeverityWatch, LabelWatch
	case op4, level == 1, code == ProcedurePowerCaution:
		// OP-4 actions 1-3, or OP-4 declared without a usable action number.
		return SeverityWarning, LabelWarning
	case code == ProcedureMLCC2:
		return SeverityAdvisory, LabelAdvisory
	case code == ProcedureNormal:
		return SeverityNormal, LabelNormal
	default:
		return SeverityNormal, LabelUnknown
	}
}
