package mocks

import (
	"context"
	"sync"

	"github.com/knowara/kbsync/internal/core/ports/driven"
)

// MockFetcher is a configurable Fetcher for testing. Results are keyed
// by URL; unknown URLs return a failed page result.
type MockFetcher struct {
	mu           sync.RWMutex
	pageResults  map[string]*driven.PageResult
	crawlResults map[string]*driven.CrawlResult

	// Error injection: returned from every call when set
	PageErr  error
	CrawlErr error

	// Call recording
	PageCalls  []string
	CrawlCalls []string
}

// NewMockFetcher creates a new MockFetcher
func NewMockFetcher() *MockFetcher {
	return &MockFetcher{
		pageResults:  make(map[string]*driven.PageResult),
		crawlResults: make(map[string]*driven.CrawlResult),
	}
}

// SetPageResult configures the result for a page URL.
func (m *MockFetcher) SetPageResult(url string, result *driven.PageResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pageResults[url] = result
}

// SetCrawlResult configures the result for a domain or sitemap URL.
func (m *MockFetcher) SetCrawlResult(url string, result *driven.CrawlResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.crawlResults[url] = result
}

func (m *MockFetcher) ScrapePage(ctx context.Context, url string) (*driven.PageResult, error) {
	m.mu.Lock()
	m.PageCalls = append(m.PageCalls, url)
	m.mu.Unlock()

	if m.PageErr != nil {
		return nil, m.PageErr
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if result, ok := m.pageResults[url]; ok {
		return result, nil
	}
	return &driven.PageResult{Success: false, Error: "not configured"}, nil
}

func (m *MockFetcher) ScrapeDomain(ctx context.Context, url string, maxPages int) (*driven.CrawlResult, error) {
	return m.crawl(url)
}

func (m *MockFetcher) ScrapeSitemap(ctx context.Context, url string, maxPages int) (*driven.CrawlResult, error) {
	return m.crawl(url)
}

func (m *MockFetcher) crawl(url string) (*driven.CrawlResult, error) {
	m.mu.Lock()
	m.CrawlCalls = append(m.CrawlCalls, url)
	m.mu.Unlock()

	if m.CrawlErr != nil {
		return nil, m.CrawlErr
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if result, ok := m.crawlResults[url]; ok {
		return result, nil
	}
	return &driven.CrawlResult{}, nil
}
