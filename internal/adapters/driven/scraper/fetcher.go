package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/knowara/kbsync/internal/core/domain"
	"github.com/knowara/kbsync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Fetcher = (*Fetcher)(nil)

// Fetcher implements driven.Fetcher against the external scraper service.
type Fetcher struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Config holds scraper service connection configuration
type Config struct {
	// BaseURL is the scraper service endpoint (e.g., http://localhost:3100)
	BaseURL string

	// Timeout for HTTP requests. Crawls can take minutes, so this is
	// generous by default.
	Timeout time.Duration

	// RequestsPerSecond throttles calls to the scraper service.
	RequestsPerSecond float64
}

// DefaultConfig returns sensible defaults
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:           baseURL,
		Timeout:           5 * time.Minute,
		RequestsPerSecond: 2,
	}
}

// NewFetcher creates a new scraper-service-backed Fetcher
func NewFetcher(cfg Config) *Fetcher {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	return &Fetcher{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

type pageResponse struct {
	Success     bool   `json:"success"`
	Content     string `json:"content"`
	Title       string `json:"title"`
	Description string `json:"description"`
	WordCount   int    `json:"word_count"`
	Error       string `json:"error,omitempty"`
}

type crawlResponse struct {
	Pages           []pageEntry `json:"pages"`
	Domain          string      `json:"domain,omitempty"`
	SuccessfulPages int         `json:"successful_pages"`
}

type pageEntry struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Content     string `json:"content,omitempty"`
	Success     bool   `json:"success"`
}

// ScrapePage fetches and extracts a single page
func (f *Fetcher) ScrapePage(ctx context.Context, url string) (*driven.PageResult, error) {
	var resp pageResponse
	if err := f.post(ctx, "/scrape/page", map[string]any{"url": url}, &resp); err != nil {
		return nil, fmt.Errorf("scrape page %s: %w", url, err)
	}

	return &driven.PageResult{
		Success:     resp.Success,
		Content:     resp.Content,
		Title:       resp.Title,
		Description: resp.Description,
		WordCount:   resp.WordCount,
		Error:       resp.Error,
	}, nil
}

// ScrapeDomain crawls a domain, bounded at maxPages
func (f *Fetcher) ScrapeDomain(ctx context.Context, url string, maxPages int) (*driven.CrawlResult, error) {
	var resp crawlResponse
	body := map[string]any{"url": url, "max_pages": maxPages}
	if err := f.post(ctx, "/scrape/domain", body, &resp); err != nil {
		return nil, fmt.Errorf("scrape domain %s: %w", url, err)
	}
	return crawlResultFromResponse(resp), nil
}

// ScrapeSitemap fetches the pages listed in a sitemap, bounded at maxPages
func (f *Fetcher) ScrapeSitemap(ctx context.Context, url string, maxPages int) (*driven.CrawlResult, error) {
	var resp crawlResponse
	body := map[string]any{"url": url, "max_pages": maxPages}
	if err := f.post(ctx, "/scrape/sitemap", body, &resp); err != nil {
		return nil, fmt.Errorf("scrape sitemap %s: %w", url, err)
	}
	return crawlResultFromResponse(resp), nil
}

func crawlResultFromResponse(resp crawlResponse) *driven.CrawlResult {
	pages := make([]domain.Page, len(resp.Pages))
	for i, p := range resp.Pages {
		pages[i] = domain.Page{
			URL:            p.URL,
			Title:          p.Title,
			Description:    p.Description,
			Content:        p.Content,
			FetchSucceeded: p.Success,
		}
	}
	return &driven.CrawlResult{
		Pages:           pages,
		Domain:          resp.Domain,
		SuccessfulPages: resp.SuccessfulPages,
	}
}

func (f *Fetcher) post(ctx context.Context, path string, reqBody any, out any) error {
	if err := f.limiter.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("scraper service: %s - %s", resp.Status, string(respBody))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// HealthCheck verifies the scraper service is reachable
func (f *Fetcher) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("scraper health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("scraper unhealthy: %s", resp.Status)
	}
	return nil
}
