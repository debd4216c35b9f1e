package domain

import "time"

// SourceKind selects the sync strategy for a source.
type SourceKind string

const (
	SourceKindSinglePage SourceKind = "single_page"
	SourceKindDomain     SourceKind = "domain"
	SourceKindSitemap    SourceKind = "sitemap"
)

// MaxSnapshotChars bounds the extracted content cache persisted per source.
const MaxSnapshotChars = 50000

// DefaultStaleAfter is the age past which a source becomes eligible for re-sync.
const DefaultStaleAfter = 24 * time.Hour

// Source is a registered external location whose content is kept indexed.
// Sources are created through the management interface; the sync pipeline
// only mutates digest, snapshot, title/description, timestamp and error fields.
type Source struct {
	ID          string     `json:"id"`
	Kind        SourceKind `json:"kind"`
	URL         string     `json:"url"`
	Tags        []string   `json:"tags,omitempty"`
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`

	// LastContentDigest is set only for single-page sources and drives
	// the skip-if-unchanged decision.
	LastContentDigest string `json:"last_content_digest,omitempty"`

	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
	Active       bool       `json:"active"`

	// Snapshot caches the extracted content, capped at MaxSnapshotChars.
	Snapshot string `json:"snapshot,omitempty"`

	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsStale reports whether the source is due for a sync at the given instant.
// A source that has never synced is always stale.
func (s *Source) IsStale(now time.Time, staleAfter time.Duration) bool {
	if !s.Active {
		return false
	}
	if s.LastSyncedAt == nil {
		return true
	}
	return now.Sub(*s.LastSyncedAt) >= staleAfter
}

// TruncateSnapshot caps a snapshot at MaxSnapshotChars.
func TruncateSnapshot(text string) string {
	if len(text) <= MaxSnapshotChars {
		return text
	}
	return text[:MaxSnapshotChars]
}

// Page is one fetched URL within a domain or sitemap source.
// Pages exist only for the duration of a sync run and are never persisted.
type Page struct {
	URL            string `json:"url"`
	Title          string `json:"title,omitempty"`
	Description    string `json:"description,omitempty"`
	Content        string `json:"content,omitempty"`
	FetchSucceeded bool   `json:"fetch_succeeded"`
}
