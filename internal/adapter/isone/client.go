// Package isone fetches and parses the ISO New England reports that feed the
// grid snapshot.
package isone

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/grid-status-aggregator/internal/domain"
)

const (
	// maxBodyBytes bounds a single report download.
	maxBodyBytes = 8 << 20
	// cacheEntries bounds the conditional-request cache. Dated URLs roll over
	// daily, so only a handful of entries are ever live.
	cacheEntries = 16
	userAgent    = "grid-status-aggregator/1.0"
)

// Client retrieves raw reports over HTTP and classifies failures as transient
// or permanent.
type Client struct {
	httpClient *http.Client
	clock      clockwork.Clock
	cache      *lruCache
	logger     *slog.Logger
}

// NewClient creates a report client whose requests are bounded by timeout.
func NewClient(timeout time.Duration, clock clockwork.Clock, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		clock:  clock,
		cache:  newLRUCache(cacheEntries),
		logger: logger,
	}
}

// ExpandURL substitutes the market date of now for every "{date}" in tmpl.
func ExpandURL(tmpl string, now time.Time) string {
	return strings.ReplaceAll(tmpl, "{date}", domain.MarketDate(now))
}

// Fetch downloads the report for source from urlTemplate. Responses carrying
// an ETag or Last-Modified validator are revalidated on the next fetch and a
// 304 reuses the previous body.
func (c *Client) Fetch(ctx context.Context, source domain.SourceID, urlTemplate string) (domain.RawReport, error) {
	now := c.clock.Now()
	u := ExpandURL(urlTemplate, now)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.RawReport{}, &domain.FetchError{Source: source, Kind: domain.Permanent, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/csv, application/json;q=0.9, */*;q=0.5")

	cached, haveCached := c.cache.get(u)
	if haveCached {
		if cached.etag != "" {
			req.Header.Set("If-None-Match", cached.etag)
		}
		if cached.lastModified != "" {
			req.Header.Set("If-Modified-Since", cached.lastModified)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.RawReport{}, &domain.FetchError{Source: source, Kind: domain.Transient, Err: fmt.Errorf("%s request: %w", source, annotateTimeout(err))}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified && haveCached {
		c.logger.Debug("report not modified", "source", source, "url", u)
		return domain.RawReport{Source: source, Body: cached.body, URL: u, FetchedAt: now}, nil
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.RawReport{}, &domain.FetchError{
			Source:     source,
			Kind:       classifyStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("iso-ne %s: %s", http.StatusText(resp.StatusCode), strings.TrimSpace(string(body))),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return domain.RawReport{}, &domain.FetchError{Source: source, Kind: domain.Transient, Err: fmt.Errorf("read body: %w", err)}
	}
	if len(body) > maxBodyBytes {
		return domain.RawReport{}, &domain.FetchError{Source: source, Kind: domain.Transient, Err: fmt.Errorf("body exceeds %d bytes", maxBodyBytes)}
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return domain.RawReport{}, &domain.FetchError{Source: source, Kind: domain.Transient, StatusCode: resp.StatusCode, Err: errors.New("empty body")}
	}

	etag, lastMod := resp.Header.Get("ETag"), resp.Header.Get("Last-Modified")
	if etag != "" || lastMod != "" {
		c.cache.put(u, cachedReport{etag: etag, lastModified: lastMod, body: body})
	}
	return domain.RawReport{Source: source, Body: body, URL: u, FetchedAt: now}, nil
}

// classifyStatus maps a non-OK status to a failure kind: 408, 429 and 5xx are
// transient, any other 4xx is permanent.
func classifyStatus(code int) domain.FetchErrorKind {
	switch {
	case code == http.StatusTooManyRequests, code == http.StatusRequestTimeout:
		return domain.Transient
	case code >= 400 && code < 500:
		return domain.Permanent
	default:
		return domain.Transient
	}
}

func annotateTimeout(err error) error {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("timeout: %w", err)
	}
	return err
}
