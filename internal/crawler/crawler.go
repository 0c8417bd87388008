// Package crawler fetches web pages and converts them to markdown for
// ingestion. Fetches are bounded by a concurrency semaphore and a rate
// gate shared across all callers.
package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/gocolly/colly/v2"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/jonhill90/vibes-sub001/internal/store"
)

// ErrCrawlFailed indicates a fetch that did not succeed within the retry
// budget.
var ErrCrawlFailed = errors.New("crawl failed")

// maxContentChars caps the markdown produced for one crawl.
const maxContentChars = 100_000

// JobStore persists crawl job lifecycle. *store.Store satisfies this.
type JobStore interface {
	CreateCrawlJob(ctx context.Context, job *store.CrawlJob) error
	StartCrawlJob(ctx context.Context, id string) error
	CompleteCrawlJob(ctx context.Context, id string, pagesCrawled int) error
	FailCrawlJob(ctx context.Context, id, message string) error
}

// Config holds crawler limits.
type Config struct {
	MaxConcurrent  int           // Simultaneous in-flight fetches
	RateLimit      time.Duration // Minimum delay between fetch starts
	AttemptTimeout time.Duration // Per-attempt deadline
	MaxRetries     int           // Additional attempts after the first
	UserAgent      string
}

func (c Config) withDefaults() Config {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 3
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = 30 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 3
	}
	if c.UserAgent == "" {
		c.UserAgent = "ragsvc-crawler/1.0"
	}
	return c
}

// Result reports the outcome of a website crawl.
type Result struct {
	JobID        string
	PagesCrawled int
	Content      string
	CrawlTimeMs  int64
	Error        string
}

// Service crawls pages with bounded concurrency. Safe for concurrent use;
// the semaphore and rate gate are the only shared mutable state.
type Service struct {
	cfg    Config
	sem    *semaphore.Weighted
	gate   *rate.Limiter
	jobs   JobStore
	logger *slog.Logger
}

// New creates a crawler service. jobs may be nil when only CrawlURL is used.
func New(cfg Config, jobs JobStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()

	gate := rate.NewLimiter(rate.Inf, 1)
	if cfg.RateLimit > 0 {
		gate = rate.NewLimiter(rate.Every(cfg.RateLimit), 1)
	}

	return &Service{
		cfg:    cfg,
		sem:    semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		gate:   gate,
		jobs:   jobs,
		logger: logger,
	}
}

// CrawlURL fetches a single page and returns its markdown, truncated to
// maxContentChars. Retries transient failures up to MaxRetries extra
// attempts.
func (s *Service) CrawlURL(ctx context.Context, pageURL string) (string, error) {
	md, _, err := s.crawlPage(ctx, pageURL, "")
	return md, err
}

// CrawlWebsite crawls a site starting at startURL under a persisted crawl
// job. With maxPages > 1, same-host links are followed breadth-first until
// maxPages pages are collected. Returns (false, result-with-error) instead
// of an error so callers can always report the job ID.
func (s *Service) CrawlWebsite(ctx context.Context, sourceID, startURL string, maxPages int) (bool, Result) {
	if maxPages <= 0 {
		maxPages = 1
	}

	job := &store.CrawlJob{SourceID: sourceID, MaxPages: maxPages, MaxDepth: 1}
	if err := s.jobs.CreateCrawlJob(ctx, job); err != nil {
		return false, Result{Error: fmt.Sprintf("create crawl job: %v", err)}
	}
	if err := s.jobs.StartCrawlJob(ctx, job.ID); err != nil {
		return false, Result{JobID: job.ID, Error: fmt.Sprintf("start crawl job: %v", err)}
	}

	start := time.Now()
	content, pages, err := s.crawlSite(ctx, startURL, maxPages)
	if err != nil {
		s.logger.Warn("crawl failed", "job_id", job.ID, "url", startURL, "error", err)
		if failErr := s.jobs.FailCrawlJob(ctx, job.ID, err.Error()); failErr != nil {
			s.logger.Error("failed to mark crawl job failed", "job_id", job.ID, "error", failErr)
		}
		return false, Result{JobID: job.ID, Error: err.Error()}
	}

	if err := s.jobs.CompleteCrawlJob(ctx, job.ID, pages); err != nil {
		s.logger.Error("failed to mark crawl job completed", "job_id", job.ID, "error", err)
	}

	elapsed := time.Since(start)
	s.logger.Info("crawl completed",
		"job_id", job.ID,
		"url", startURL,
		"pages", pages,
		"elapsed", elapsed)
	return true, Result{
		JobID:        job.ID,
		PagesCrawled: pages,
		Content:      content,
		CrawlTimeMs:  elapsed.Milliseconds(),
	}
}

func (s *Service) crawlSite(ctx context.Context, startURL string, maxPages int) (string, int, error) {
	if maxPages == 1 {
		content, err := s.CrawlURL(ctx, startURL)
		if err != nil {
			return "", 0, err
		}
		return content, 1, nil
	}

	base, err := url.Parse(startURL)
	if err != nil {
		return "", 0, fmt.Errorf("%w: parse url %s: %v", ErrCrawlFailed, startURL, err)
	}

	visited := map[string]bool{}
	queue := []string{startURL}
	var parts []string

	for len(queue) > 0 && len(parts) < maxPages {
		pageURL := queue[0]
		queue = queue[1:]
		if visited[pageURL] {
			continue
		}
		visited[pageURL] = true

		content, links, err := s.crawlPage(ctx, pageURL, base.Host)
		if err != nil {
			// The entry page must succeed; later pages are best-effort.
			if len(parts) == 0 {
				return "", 0, err
			}
			s.logger.Warn("skipping page", "url", pageURL, "error", err)
			continue
		}
		parts = append(parts, content)

		for _, link := range links {
			if !visited[link] {
				queue = append(queue, link)
			}
		}
	}

	return truncate(strings.Join(parts, "\n\n---\n\n")), len(parts), nil
}

// crawlPage fetches one page under the semaphore and rate gate. linkHost,
// when non-empty, enables collection of same-host links.
func (s *Service) crawlPage(ctx context.Context, pageURL, linkHost string) (string, []string, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return "", nil, fmt.Errorf("%w: acquire crawl slot: %v", ErrCrawlFailed, err)
	}
	defer s.sem.Release(1)

	attempts := s.cfg.MaxRetries + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := s.gate.Wait(ctx); err != nil {
			return "", nil, fmt.Errorf("%w: %v", ErrCrawlFailed, err)
		}

		md, links, err := s.fetchPage(ctx, pageURL, linkHost)
		if err == nil {
			return md, links, nil
		}
		lastErr = err
		s.logger.Warn("crawl attempt failed",
			"url", pageURL,
			"attempt", attempt,
			"max_attempts", attempts,
			"error", err)

		if ctx.Err() != nil {
			break
		}
	}

	return "", nil, fmt.Errorf("%w after %d attempts: %v", ErrCrawlFailed, attempts, lastErr)
}

// fetchPage runs one attempt with a fresh collector so a timed-out attempt
// leaves no state behind.
func (s *Service) fetchPage(ctx context.Context, pageURL, linkHost string) (string, []string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, s.cfg.AttemptTimeout)
	defer cancel()

	c := colly.NewCollector(
		colly.UserAgent(s.cfg.UserAgent),
		colly.MaxDepth(1),
		colly.StdlibContext(attemptCtx),
	)
	c.SetRequestTimeout(s.cfg.AttemptTimeout)

	var (
		body     []byte
		finalURL *url.URL
		links    []string
		fetchErr error
	)
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
		finalURL = r.Request.URL
	})
	c.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})
	if linkHost != "" {
		c.OnHTML("a[href]", func(e *colly.HTMLElement) {
			link := e.Request.AbsoluteURL(e.Attr("href"))
			u, err := url.Parse(link)
			if err != nil || u.Host != linkHost {
				return
			}
			if u.Scheme != "http" && u.Scheme != "https" {
				return
			}
			u.Fragment = ""
			links = append(links, u.String())
		})
	}

	if err := c.Visit(pageURL); err != nil {
		return "", nil, fmt.Errorf("visit %s: %w", pageURL, err)
	}
	if fetchErr != nil {
		return "", nil, fmt.Errorf("fetch %s: %w", pageURL, fetchErr)
	}
	if len(body) == 0 {
		return "", nil, fmt.Errorf("empty response from %s", pageURL)
	}

	md, err := s.extract(body, finalURL)
	if err != nil {
		return "", nil, err
	}
	return truncate(md), links, nil
}

// extract isolates the main content with readability and converts it to
// markdown. When readability cannot find an article, the whole page is
// converted instead.
func (s *Service) extract(body []byte, pageURL *url.URL) (string, error) {
	htmlContent := string(body)

	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err == nil && strings.TrimSpace(article.Content) != "" {
		htmlContent = article.Content
	} else if err != nil {
		s.logger.Debug("readability extraction failed, converting full page",
			"url", pageURL, "error", err)
	}

	md, err := htmlToMarkdown(htmlContent)
	if err != nil {
		return "", fmt.Errorf("convert %s to markdown: %w", pageURL, err)
	}
	if strings.TrimSpace(md) == "" {
		return "", fmt.Errorf("no content extracted from %s", pageURL)
	}
	return md, nil
}

func truncate(s string) string {
	if len(s) <= maxContentChars {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxContentChars {
		return s
	}
	return string(runes[:maxContentChars])
}
