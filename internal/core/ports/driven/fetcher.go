package driven

import (
	"context"

	"github.com/knowara/kbsync/internal/core/domain"
)

// PageResult is the outcome of scraping a single URL.
type PageResult struct {
	Success     bool
	Content     string
	Title       string
	Description string
	WordCount   int
	Error       string
}

// CrawlResult is the outcome of scraping a domain or sitemap: the pages
// that were attempted, in crawl order.
type CrawlResult struct {
	Pages           []domain.Page
	Domain          string
	SuccessfulPages int
}

// Fetcher turns a URL into raw text via the external scraper service.
// Fetch timeouts are the scraper's responsibility.
type Fetcher interface {
	// ScrapePage fetches and extracts a single page
	ScrapePage(ctx context.Context, url string) (*PageResult, error)

	// ScrapeDomain crawls a domain, bounded at maxPages
	ScrapeDomain(ctx context.Context, url string, maxPages int) (*CrawlResult, error)

	// ScrapeSitemap fetches the pages listed in a sitemap, bounded at maxPages
	ScrapeSitemap(ctx context.Context, url string, maxPages int) (*CrawlResult, error)
}
