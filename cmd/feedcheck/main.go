// Command feedcheck polls every enabled ISO-NE feed once and reports whether
// each one could be fetched and parsed. It reads the same environment as the
// service, so it answers "would gridmon see data right now?".
//
// Usage:
//
//	go run ./cmd/feedcheck [-json]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/grid-status-aggregator/internal/app"
	"github.com/couchcryptid/grid-status-aggregator/internal/config"
	"github.com/couchcryptid/grid-status-aggregator/internal/store"
)

// phase tracks pass/fail for one check.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	jsonOut := flag.Bool("json", false, "print the resulting snapshot as JSON")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if code := run(ctx, cfg, clockwork.NewRealClock(), os.Stdout, *jsonOut); code != 0 {
		os.Exit(code)
	}
}

func run(ctx context.Context, cfg *config.Config, clock clockwork.Clock, out io.Writer, jsonOut bool) int {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	feeds, err := app.Feeds(cfg, clock, logger)
	if err != nil {
		fmt.Fprintf(out, "FATAL: build sources: %v\n", err)
		return 1
	}

	fmt.Fprintln(out, "=== ISO-NE Feed Check ===")
	fmt.Fprintln(out)

	st := store.New()
	var phases []*phase
	for _, f := range feeds {
		phases = append(phases, checkFeed(ctx, f, st, clock))
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	snap := st.Snapshot()
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Status: %s (severity %d)\n", snap.StatusLabel(), snap.Severity())
	fmt.Fprintf(out, "Forecast: %s\n", snap.Forecast.Headline())

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for _, e := range p.errors {
			fmt.Fprintf(out, "  %s\n", e)
		}
	}

	if jsonOut {
		fmt.Fprintln(out)
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snap); err != nil {
			fmt.Fprintf(out, "FATAL: encode snapshot: %v\n", err)
			return 1
		}
	}

	if !allPassed {
		return 1
	}
	return 0
}

// checkFeed fetches and parses one feed, merging a successful update into st.
func checkFeed(ctx context.Context, f app.Feed, st *store.Store, clock clockwork.Clock) *phase {
	p := &phase{name: fmt.Sprintf("%s (%s)", f.Source.ID(), f.Source.URL())}

	raw, err := f.Source.Fetch(ctx)
	if err != nil {
		p.errorf("fetch: %v", err)
		return p
	}

	update, stats, err := f.Source.Parse(raw)
	if err != nil {
		p.errorf("parse: %v", err)
		return p
	}
	for _, rowErr := range stats.Errors {
		p.errorf("row skipped: %v", &rowErr)
	}
	st.Apply(update, clock.Now())
	return p
}
