package domain

import "time"

// SyncStatus is the tagged outcome of one source's sync.
type SyncStatus string

const (
	// SyncStatusUpdated means content changed and the index was rewritten.
	SyncStatusUpdated SyncStatus = "updated"

	// SyncStatusSkipped means content was unchanged; only the sync
	// timestamp was refreshed.
	SyncStatusSkipped SyncStatus = "skipped"

	// SyncStatusFailed means the sync errored; the error is recorded on
	// the source and the run continues with the next source.
	SyncStatusFailed SyncStatus = "failed"
)

// SyncResult is the outcome of syncing a single source.
type SyncResult struct {
	SourceID      string     `json:"source_id"`
	Status        SyncStatus `json:"status"`
	NewChunks     int        `json:"new_chunks"`
	DeletedChunks int        `json:"deleted_chunks"`
	PagesFetched  int        `json:"pages_fetched,omitempty"`
	Error         string     `json:"error,omitempty"`
	Duration      float64    `json:"duration_seconds"`
}

// Updated reports whether the sync rewrote any part of the index.
func (r SyncResult) Updated() bool {
	return r.Status == SyncStatusUpdated
}

// SourceFailure attaches a failure message to the source that produced it.
type SourceFailure struct {
	SourceID string `json:"source_id"`
	Message  string `json:"message"`
}

// RunSummary aggregates the results of one scheduler pass. Per-source
// results are folded in; no partial success is hidden.
type RunSummary struct {
	RunID          string          `json:"run_id"`
	StartedAt      time.Time       `json:"started_at"`
	Duration       float64         `json:"duration_seconds"`
	SourcesChecked int             `json:"sources_checked"`
	SourcesUpdated int             `json:"sources_updated"`
	SourcesSkipped int             `json:"sources_skipped"`
	SourcesFailed  int             `json:"sources_failed"`
	ChunksAdded    int             `json:"chunks_added"`
	Failures       []SourceFailure `json:"failures,omitempty"`
}

// Fold accumulates one source's result into the summary.
func (s *RunSummary) Fold(r SyncResult) {
	s.SourcesChecked++
	switch r.Status {
	case SyncStatusUpdated:
		s.SourcesUpdated++
		s.ChunksAdded += r.NewChunks
	case SyncStatusSkipped:
		s.SourcesSkipped++
	case SyncStatusFailed:
		s.SourcesFailed++
		s.Failures = append(s.Failures, SourceFailure{
			SourceID: r.SourceID,
			Message:  r.Error,
		})
	}
}
