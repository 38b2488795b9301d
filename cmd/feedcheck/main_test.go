package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/grid-status-aggregator/internal/config"
	"github.com/couchcryptid/grid-status-aggregator/internal/domain"
)

const statusJSON = `[{"Status":"OP-4 Action 2","Message":"Capacity deficiency procedures in effect"}]`

const systemLoadCSV = `"C","Five-Minute System Load"
"H","Local Timestamp Eastern Time (Interval Beginning)","Native Load","ARD Demand"
"D","2026-10-18 09:55:00","12188.9","41"
`

const zoneLoadCSV = `"C","Real-Time Zonal Load"
"H","Date","Hour Ending",".H.MAINE",".H.NEWHAMPSHIRE",".H.VERMONT"
"D","10/18/2026","09","1100.1","1455.5","600.2"
`

const forecastCSV = `"C","Seven-Day Capacity Forecast"
"H","Date","Sun 10/18/2026","Mon 10/19/2026","Tue 10/20/2026"
"D","Total Capacity Supply Obligation (CSO)","25,000","25,000","25,000"
"D","Total Available Generation and Imports","30,000","30,000","27,000"
"D","Anticipated Actions","","Demand response possible",""
`

func upstream(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	serve := func(path, body string) {
		mux.HandleFunc(path, func(w http.ResponseWriter, _ *http.Request) { fmt.Fprint(w, body) })
	}
	serve("/status", statusJSON)
	serve("/load", systemLoadCSV)
	serve("/zone", zoneLoadCSV)
	serve("/sdf", forecastCSV)
	mux.HandleFunc("/missing", http.NotFound)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, base string) *config.Config {
	t.Helper()
	t.Setenv("ISONE_STATUS_URL", base+"/status")
	t.Setenv("ISONE_LOAD_URL", base+"/load")
	t.Setenv("ISONE_ZONE_LOAD_URL", base+"/zone")
	t.Setenv("ISONE_FORECAST_URL", base+"/sdf?start={date}")
	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

var checkClock = clockwork.NewFakeClockAt(time.Date(2026, time.October, 18, 14, 0, 0, 0, time.UTC))

func TestRun_AllFeedsPass(t *testing.T) {
	srv := upstream(t)
	var out bytes.Buffer

	code := run(context.Background(), testConfig(t, srv.URL), checkClock, &out, false)

	assert.Equal(t, 0, code, out.String())
	assert.Equal(t, len(domain.AllSources), strings.Count(out.String(), "PASS"))
	assert.Contains(t, out.String(), "severity 2")
	assert.Contains(t, out.String(), "Forecast: Alert Tomorrow (2 total)")
}

func TestRun_FailingFeed(t *testing.T) {
	srv := upstream(t)
	cfg := testConfig(t, srv.URL)
	cfg.LoadURL = srv.URL + "/missing"
	var out bytes.Buffer

	code := run(context.Background(), cfg, checkClock, &out, false)

	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "FAIL (1 errors)")
	assert.Contains(t, out.String(), "--- total_load")
	assert.Contains(t, out.String(), "fetch: ")
}

func TestRun_JSON(t *testing.T) {
	srv := upstream(t)
	var out bytes.Buffer

	code := run(context.Background(), testConfig(t, srv.URL), checkClock, &out, true)
	require.Equal(t, 0, code, out.String())

	body := out.String()
	start := strings.Index(body, "\n{")
	require.GreaterOrEqual(t, start, 0)
	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal([]byte(body[start+1:]), &snap))
	require.NotNil(t, snap.TotalLoad)
	assert.InDelta(t, 12188.9, snap.TotalLoad.MW, 1e-6)
	require.NotNil(t, snap.CapacityMarginPct)
	assert.InDelta(t, 59.4, *snap.CapacityMarginPct, 0.05)
}
