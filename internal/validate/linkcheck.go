package validate

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nurpath/nurpath/internal/catalog"
	"github.com/nurpath/nurpath/internal/model"
	"github.com/nurpath/nurpath/internal/util"
	"github.com/nurpath/nurpath/internal/worker"
)

// sleepFunc waits between retries (injectable for tests)
var sleepFunc = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Link is one passage deep link to verify
type Link struct {
	PassageID string `json:"passage_id"`
	SourceID  string `json:"source_id"`
	URL       string `json:"url"`
}

// LinkResult is the outcome of checking one link
type LinkResult struct {
	Link
	StatusCode  int    `json:"status_code,omitempty"`
	Accessible  bool   `json:"accessible"`
	Dead        bool   `json:"dead"`       // 404/410 or unreachable after retries
	Disallowed  bool   `json:"disallowed"` // robots.txt forbids checking
	RedirectURL string `json:"redirect_url,omitempty"`
	Attempts    int    `json:"attempts"`
	Error       string `json:"error,omitempty"`
}

// LinkSummary counts link check outcomes
type LinkSummary struct {
	Checked    int `json:"checked"`
	Accessible int `json:"accessible"`
	Dead       int `json:"dead"`
	Disallowed int `json:"disallowed"`
	Other      int `json:"other"`
}

// LinkChecker verifies passage deep links with HEAD requests, per-host rate
// limits and robots.txt
type LinkChecker struct {
	client     *http.Client
	robots     *util.RobotsChecker
	limiter    *worker.Limiter
	workers    int
	maxRetries int
	userAgent  string
	logger     *slog.Logger
}

// NewLinkChecker creates a checker. limiter may be nil for no rate limit.
func NewLinkChecker(cfg model.HTTPConfig, workers int, limiter *worker.Limiter, logger *slog.Logger) *LinkChecker {
	if workers <= 0 {
		workers = 8
	}
	if logger == nil {
		logger = slog.Default()
	}
	client := util.NewHTTPClient(cfg)
	c := &LinkChecker{
		client:     client,
		limiter:    limiter,
		workers:    workers,
		maxRetries: cfg.MaxRetries,
		userAgent:  cfg.UserAgent,
		logger:     logger,
	}
	if cfg.RespectRobots {
		c.robots = util.NewRobotsChecker(cfg.UserAgent, client, cfg.Timeout)
	}
	return c
}

// LinksFromCatalog lists the deep link of every passage in cat
func LinksFromCatalog(cat *catalog.Catalog) []Link {
	passages := cat.Passages()
	links := make([]Link, 0, len(passages))
	for _, p := range passages {
		links = append(links, Link{PassageID: p.ID, SourceID: p.SourceID, URL: p.URL})
	}
	return links
}

// Check verifies links concurrently. Results are in input order; links
// not reached before ctx ends carry the context error.
func (c *LinkChecker) Check(ctx context.Context, links []Link) []LinkResult {
	mapped := worker.Map(ctx, c.workers, links, func(ctx context.Context, link Link) (LinkResult, error) {
		return c.checkWithRetry(ctx, link), nil
	})

	results := make([]LinkResult, len(links))
	for i, m := range mapped {
		results[i] = m.Value
		if m.Err != nil {
			results[i] = LinkResult{Link: links[i], Error: m.Err.Error()}
		}
	}
	return results
}

func (c *LinkChecker) checkWithRetry(ctx context.Context, link Link) LinkResult {
	if c.robots != nil {
		allowed, delay, err := c.robots.CanFetch(ctx, link.URL)
		if err != nil {
			return LinkResult{Link: link, Dead: true, Error: err.Error()}
		}
		if !allowed {
			return LinkResult{Link: link, Disallowed: true}
		}
		if delay > 0 && c.limiter != nil {
			if u, err := url.Parse(link.URL); err == nil {
				c.limiter.SetHostRate(u.Host, 1/delay.Seconds(), 1)
			}
		}
	}

	var result LinkResult
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx, link.URL); err != nil {
			result = LinkResult{Link: link, Error: fmt.Sprintf("rate limit: %v", err)}
			break
		}
		result = c.checkOnce(ctx, link)
		result.Attempts = attempt + 1
		if !isRetryable(result) || attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(1<<uint(attempt)) * time.Second
		c.logger.Debug("Retrying link check", "url", link.URL, "attempt", attempt+1, "backoff", backoff)
		if err := sleepFunc(ctx, backoff); err != nil {
			break
		}
	}
	if result.Error != "" && isRetryable(result) {
		result.Dead = true
	}
	return result
}

func (c *LinkChecker) checkOnce(ctx context.Context, link Link) LinkResult {
	result := c.request(ctx, http.MethodHead, link)
	if result.StatusCode == http.StatusMethodNotAllowed || result.StatusCode == http.StatusNotImplemented {
		result = c.request(ctx, http.MethodGet, link)
	}
	return result
}

func (c *LinkChecker) request(ctx context.Context, method string, link Link) LinkResult {
	result := LinkResult{Link: link}

	req, err := http.NewRequestWithContext(ctx, method, link.URL, nil)
	if err != nil {
		result.Error = fmt.Sprintf("create request: %v", err)
		result.Dead = true
		return result
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		result.Error = fmt.Sprintf("request failed: %v", err)
		return result
	}
	defer func() { _ = resp.Body.Close() }()

	result.StatusCode = resp.StatusCode
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 400:
		result.Accessible = true
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		result.Dead = true
	}
	if final := resp.Request.URL.String(); final != link.URL {
		result.RedirectURL = final
	}
	return result
}

// isRetryable reports transient failures: 5xx, 429 and network errors
func isRetryable(r LinkResult) bool {
	if r.StatusCode >= 500 && r.StatusCode < 600 {
		return true
	}
	if r.StatusCode == http.StatusTooManyRequests {
		return true
	}
	if r.StatusCode == 0 && r.Error != "" {
		s := strings.ToLower(r.Error)
		return strings.Contains(s, "timeout") ||
			strings.Contains(s, "connection refused") ||
			strings.Contains(s, "connection reset") ||
			strings.Contains(s, "request failed")
	}
	return false
}

// Summarize counts results by outcome
func Summarize(results []LinkResult) LinkSummary {
	s := LinkSummary{Checked: len(results)}
	for _, r := range results {
		switch {
		case r.Accessible:
			s.Accessible++
		case r.Disallowed:
			s.Disallowed++
		case r.Dead:
			s.Dead++
		default:
			s.Other++
		}
	}
	return s
}
