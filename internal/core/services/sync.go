package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/knowara/kbsync/internal/core/domain"
	"github.com/knowara/kbsync/internal/core/ports/driven"
	"github.com/knowara/kbsync/internal/core/ports/driving"
	"github.com/knowara/kbsync/internal/runtime"
)

// Verify interface compliance
var _ driving.Syncer = (*Syncer)(nil)

// Syncer keeps one source's chunk set synchronized with the vector index.
// It dispatches over the source kind:
//   - single page: digest compare, then full replacement only on change
//   - domain/sitemap: per-page prefix delete + re-chunk, then orphan sweep
//
// Any error inside a strategy is caught here, recorded on the source, and
// reported in the result; it never propagates to the caller.
type Syncer struct {
	sources    driven.SourceStore
	fetcher    driven.Fetcher
	chunker    driven.Chunker
	reconciler *Reconciler
	services   *runtime.Services
	logger     *slog.Logger

	chunkOpts          driven.ChunkOptions
	maxChunksPerSource int
	maxPages           int
}

// SyncerConfig holds dependencies for Syncer.
type SyncerConfig struct {
	Sources    driven.SourceStore
	Fetcher    driven.Fetcher
	Chunker    driven.Chunker
	Reconciler *Reconciler
	Services   *runtime.Services
	Logger     *slog.Logger

	ChunkOptions       driven.ChunkOptions
	MaxChunksPerSource int
	MaxPages           int
}

// DefaultMaxChunksPerSource bounds the chunks one sync may contribute.
const DefaultMaxChunksPerSource = 200

// DefaultMaxPages bounds a domain or sitemap crawl.
const DefaultMaxPages = 50

// NewSyncer creates a new Syncer.
func NewSyncer(cfg SyncerConfig) *Syncer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := cfg.ChunkOptions
	if opts.MaxSize == 0 {
		opts = driven.DefaultChunkOptions()
	}

	maxChunks := cfg.MaxChunksPerSource
	if maxChunks <= 0 {
		maxChunks = DefaultMaxChunksPerSource
	}

	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	return &Syncer{
		sources:            cfg.Sources,
		fetcher:            cfg.Fetcher,
		chunker:            cfg.Chunker,
		reconciler:         cfg.Reconciler,
		services:           cfg.Services,
		logger:             logger,
		chunkOpts:          opts,
		maxChunksPerSource: maxChunks,
		maxPages:           maxPages,
	}
}

// Sync runs the strategy for the source's kind and reports the outcome.
func (s *Syncer) Sync(ctx context.Context, source *domain.Source) domain.SyncResult {
	startTime := time.Now()

	s.logger.Info("starting sync", "source_id", source.ID, "kind", source.Kind, "url", source.URL)

	var result domain.SyncResult
	var err error

	switch source.Kind {
	case domain.SourceKindSinglePage:
		result, err = s.syncSinglePage(ctx, source)
	case domain.SourceKindDomain, domain.SourceKindSitemap:
		result, err = s.syncPages(ctx, source)
	default:
		err = fmt.Errorf("%w: %q", domain.ErrUnknownSourceKind, source.Kind)
	}

	result.SourceID = source.ID
	result.Duration = time.Since(startTime).Seconds()

	if err != nil {
		s.logger.Error("sync failed", "source_id", source.ID, "error", err)
		if recErr := s.sources.RecordSyncError(ctx, source.ID, err.Error()); recErr != nil {
			s.logger.Warn("failed to record sync error", "source_id", source.ID, "error", recErr)
		}
		result.Status = domain.SyncStatusFailed
		result.Error = err.Error()
		return result
	}

	s.logger.Info("sync completed",
		"source_id", source.ID,
		"status", result.Status,
		"new_chunks", result.NewChunks,
		"deleted_chunks", result.DeletedChunks,
		"duration_seconds", result.Duration,
	)
	return result
}

// syncSinglePage fetches one page, compares its content digest with the
// previous sync, and rewrites the full chunk set only when the content
// changed. Unchanged content refreshes the timestamp and nothing else.
func (s *Syncer) syncSinglePage(ctx context.Context, source *domain.Source) (domain.SyncResult, error) {
	page, err := s.fetcher.ScrapePage(ctx, source.URL)
	if err != nil {
		return domain.SyncResult{}, fmt.Errorf("fetch page: %w", err)
	}
	if !page.Success {
		return domain.SyncResult{}, fmt.Errorf("fetch page %s: %s", source.URL, page.Error)
	}

	digest := domain.Digest(page.Content)
	if source.LastContentDigest != "" && digest == source.LastContentDigest {
		if err := s.sources.TouchSynced(ctx, source.ID, time.Now()); err != nil {
			return domain.SyncResult{}, fmt.Errorf("refresh sync timestamp: %w", err)
		}
		return domain.SyncResult{Status: domain.SyncStatusSkipped}, nil
	}

	existing, err := s.reconciler.ExistingIDs(ctx, source.ID)
	if err != nil {
		return domain.SyncResult{}, err
	}

	// Full replacement: delete everything first so readers never see
	// duplicate ids.
	if err := s.reconciler.DeleteIDs(ctx, existing); err != nil {
		return domain.SyncResult{}, err
	}

	fragments := s.chunker.Chunk(page.Content, s.chunkOpts)
	if len(fragments) > s.maxChunksPerSource {
		fragments = fragments[:s.maxChunksPerSource]
	}

	registered := time.Now()
	chunks := make([]domain.Chunk, 0, len(fragments))
	for i, fragment := range fragments {
		chunks = append(chunks, domain.Chunk{
			ID:   domain.ChunkID(source.ID, i),
			Text: fragment,
			Metadata: domain.ChunkMetadata{
				SourceID:     source.ID,
				SourceURL:    source.URL,
				Title:        page.Title,
				Tags:         source.Tags,
				RegisteredAt: registered,
			},
		})
	}

	if err := s.reconciler.AddChunks(ctx, chunks); err != nil {
		return domain.SyncResult{}, err
	}

	update := driven.SyncUpdate{
		Title:         page.Title,
		Description:   s.describe(ctx, source, page.Description, page.Content),
		Snapshot:      domain.TruncateSnapshot(page.Content),
		ContentDigest: digest,
		SyncedAt:      time.Now(),
	}
	if err := s.sources.RecordSyncSuccess(ctx, source.ID, update); err != nil {
		return domain.SyncResult{}, fmt.Errorf("record sync success: %w", err)
	}

	return domain.SyncResult{
		Status:        domain.SyncStatusUpdated,
		NewChunks:     len(chunks),
		DeletedChunks: len(existing),
		PagesFetched:  1,
	}, nil
}

// syncPages crawls a domain or sitemap and re-indexes every successfully
// fetched page. There is no per-page change detection: each fetched page
// gets its prior chunks deleted by id prefix and re-chunked under a
// per-page budget. Ids that were not regenerated this run (removed or
// failed pages) are swept at the end.
func (s *Syncer) syncPages(ctx context.Context, source *domain.Source) (domain.SyncResult, error) {
	var crawl *driven.CrawlResult
	var err error
	if source.Kind == domain.SourceKindSitemap {
		crawl, err = s.fetcher.ScrapeSitemap(ctx, source.URL, s.maxPages)
	} else {
		crawl, err = s.fetcher.ScrapeDomain(ctx, source.URL, s.maxPages)
	}
	if err != nil {
		return domain.SyncResult{}, fmt.Errorf("crawl %s: %w", source.URL, err)
	}
	if len(crawl.Pages) == 0 {
		// A crawl that yields nothing is treated as a failed fetch, not
		// as a source that emptied out; deleting the whole chunk set on
		// a flaky crawl would be destructive.
		return domain.SyncResult{}, fmt.Errorf("crawl %s returned no pages", source.URL)
	}

	existing, err := s.reconciler.ExistingIDs(ctx, source.ID)
	if err != nil {
		return domain.SyncResult{}, err
	}

	pageBudget := s.maxChunksPerSource / len(crawl.Pages)

	registered := time.Now()
	var desired []string
	var snapshotParts []string
	deleted := 0
	added := 0
	fetched := 0

	for _, page := range crawl.Pages {
		if !page.FetchSucceeded {
			s.logger.Warn("page fetch failed, keeping it out of the desired set",
				"source_id", source.ID, "page_url", page.URL)
			continue
		}
		fetched++

		baseID := domain.PageBaseID(source.ID, page.URL)

		// Delete before add so readers never see duplicate ids for
		// this page.
		prior := IDsWithPrefix(existing, baseID)
		if err := s.reconciler.DeleteIDs(ctx, prior); err != nil {
			return domain.SyncResult{}, err
		}
		deleted += len(prior)

		fragments := s.chunker.Chunk(page.Content, s.chunkOpts)
		if len(fragments) > pageBudget {
			fragments = fragments[:pageBudget]
		}

		chunks := make([]domain.Chunk, 0, len(fragments))
		for i, fragment := range fragments {
			chunks = append(chunks, domain.Chunk{
				ID:   domain.PageChunkID(baseID, i),
				Text: fragment,
				Metadata: domain.ChunkMetadata{
					SourceID:     source.ID,
					SourceURL:    source.URL,
					PageURL:      page.URL,
					Title:        page.Title,
					Tags:         source.Tags,
					RegisteredAt: registered,
				},
			})
		}

		if err := s.reconciler.AddChunks(ctx, chunks); err != nil {
			return domain.SyncResult{}, err
		}
		added += len(chunks)
		for _, chunk := range chunks {
			desired = append(desired, chunk.ID)
		}

		if page.Title != "" {
			snapshotParts = append(snapshotParts, page.Title+"\n"+page.Content)
		} else {
			snapshotParts = append(snapshotParts, page.Content)
		}
	}

	// Sweep ids that existed before this run but were not regenerated.
	orphaned := Orphaned(existing, desired)
	if err := s.reconciler.DeleteIDs(ctx, orphaned); err != nil {
		return domain.SyncResult{}, err
	}
	deleted += len(orphaned)

	snapshot := domain.TruncateSnapshot(strings.Join(snapshotParts, "\n\n"))

	title := source.Title
	if title == "" {
		if crawl.Domain != "" {
			title = crawl.Domain
		} else {
			title = source.URL
		}
	}

	update := driven.SyncUpdate{
		Title:       title,
		Description: s.describe(ctx, source, source.Description, snapshot),
		Snapshot:    snapshot,
		SyncedAt:    time.Now(),
	}
	if err := s.sources.RecordSyncSuccess(ctx, source.ID, update); err != nil {
		return domain.SyncResult{}, fmt.Errorf("record sync success: %w", err)
	}

	return domain.SyncResult{
		Status:        domain.SyncStatusUpdated,
		NewChunks:     added,
		DeletedChunks: deleted,
		PagesFetched:  fetched,
	}, nil
}

// descriptionSampleChars bounds the content sample sent to the generation
// service.
const descriptionSampleChars = 2000

// describe asks the generation service for a one-line description of the
// new content. Generation is optional and best-effort: when it is not
// configured or fails, the fallback is used and the sync stays successful.
func (s *Syncer) describe(ctx context.Context, source *domain.Source, fallback, content string) string {
	if s.services == nil {
		return fallback
	}
	svc := s.services.GenerationService()
	if svc == nil || content == "" {
		return fallback
	}

	sample := content
	if len(sample) > descriptionSampleChars {
		sample = sample[:descriptionSampleChars]
	}

	result, err := svc.Generate(ctx, driven.GenerationRequest{
		System:    "You summarize web content for a knowledge base catalog.",
		Prompt:    fmt.Sprintf("Write a single concise sentence describing this content:\n\n%s", sample),
		MaxTokens: 120,
	})
	if err != nil {
		s.logger.Warn("description generation failed", "source_id", source.ID, "error", err)
		return fallback
	}

	description := strings.TrimSpace(result.Content)
	if description == "" {
		return fallback
	}
	return description
}
