package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Zone is an ISO-NE load zone.
type Zone struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	ID       int    `json:"id"`
}

// DefaultZone is polled when no zone is configured.
const DefaultZone = "NEW_HAMPSHIRE"

// Zones lists the eight ISO-NE load zones by configuration name.
var Zones = map[string]Zone{
	"MAINE":         {Name: "MAINE", Location: ".Z.MAINE", ID: 4001},
	"NEW_HAMPSHIRE": {Name: "NEW_HAMPSHIRE", Location: ".Z.NEWHAMPSHIRE", ID: 4002},
	"VERMONT":       {Name: "VERMONT", Location: ".Z.VERMONT", ID: 4003},
	"CONNECTICUT":   {Name: "CONNECTICUT", Location: ".Z.CONNECTICUT", ID: 4004},
	"RHODE_ISLAND":  {Name: "RHODE_ISLAND", Location: ".Z.RHODEISLAND", ID: 4005},
	"SEMASS":        {Name: "SEMASS", Location: ".Z.SEMASS", ID: 4006},
	"WCMASS":        {Name: "WCMASS", Location: ".Z.WCMASS", ID: 4007},
	"NEMASSBOST":    {Name: "NEMASSBOST", Location: ".Z.NEMASSBOST", ID: 4008},
}

// LookupZone resolves a zone by configuration name, case-insensitively.
func LookupZone(name string) (Zone, error) {
	z, ok := Zones[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		names := make([]string, 0, len(Zones))
		for n := range Zones {
			names = append(names, n)
		}
		sort.Strings(names)
		return Zone{}, fmt.Errorf("unknown zone %q (want one of %s)", name, strings.Join(names, ", "))
	}
	return z, nil
}

// ColumnKey is the zone identifier as it appears in load report column names,
// e.g. "NEWHAMPSHIRE" for ".Z.NEWHAMPSHIRE" or ".H.NEWHAMPSHIRE".
func (z Zone) ColumnKey() string {
	return strings.TrimPrefix(z.Location, ".Z.")
}
