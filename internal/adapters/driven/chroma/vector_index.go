package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/knowara/kbsync/internal/core/domain"
	"github.com/knowara/kbsync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.VectorIndex = (*VectorIndex)(nil)

// VectorIndex implements driven.VectorIndex against a Chroma server.
type VectorIndex struct {
	baseURL    string
	collection string
	httpClient *http.Client

	mu           sync.Mutex
	collectionID string
}

// Config holds Chroma connection configuration
type Config struct {
	// BaseURL is the Chroma endpoint (e.g., http://localhost:8000)
	BaseURL string

	// Collection is the collection name; created on first use if absent.
	Collection string

	// Timeout for HTTP requests
	Timeout time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig(baseURL, collection string) Config {
	return Config{
		BaseURL:    baseURL,
		Collection: collection,
		Timeout:    30 * time.Second,
	}
}

// NewVectorIndex creates a new Chroma-backed VectorIndex
func NewVectorIndex(cfg Config) *VectorIndex {
	return &VectorIndex{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		collection: cfg.Collection,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type collectionResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// resolveCollection resolves and caches the collection UUID, creating
// the collection if it does not exist yet.
func (v *VectorIndex) resolveCollection(ctx context.Context) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.collectionID != "" {
		return v.collectionID, nil
	}

	reqBody := map[string]any{
		"name":          v.collection,
		"get_or_create": true,
	}

	var coll collectionResponse
	if err := v.post(ctx, "/api/v1/collections", reqBody, &coll); err != nil {
		return "", fmt.Errorf("failed to resolve collection %s: %w", v.collection, err)
	}
	if coll.ID == "" {
		return "", fmt.Errorf("chroma returned empty id for collection %s", v.collection)
	}

	v.collectionID = coll.ID
	return v.collectionID, nil
}

// ListIDs returns the ids of all entries whose metadata matches the filter.
func (v *VectorIndex) ListIDs(ctx context.Context, filter map[string]string) ([]string, error) {
	collID, err := v.resolveCollection(ctx)
	if err != nil {
		return nil, err
	}

	where := make(map[string]any, len(filter))
	for k, val := range filter {
		where[k] = val
	}

	reqBody := map[string]any{
		// Empty include keeps the response to ids only.
		"include": []string{},
	}
	if len(where) > 0 {
		reqBody["where"] = where
	}

	var getResp struct {
		IDs []string `json:"ids"`
	}
	path := fmt.Sprintf("/api/v1/collections/%s/get", collID)
	if err := v.post(ctx, path, reqBody, &getResp); err != nil {
		return nil, fmt.Errorf("chroma get failed: %w", err)
	}

	return getResp.IDs, nil
}

// Delete removes entries by id. Missing ids are ignored by Chroma.
func (v *VectorIndex) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	collID, err := v.resolveCollection(ctx)
	if err != nil {
		return err
	}

	reqBody := map[string]any{"ids": ids}
	path := fmt.Sprintf("/api/v1/collections/%s/delete", collID)
	if err := v.post(ctx, path, reqBody, nil); err != nil {
		return fmt.Errorf("chroma delete failed: %w", err)
	}
	return nil
}

// Add upserts entries into the collection. Using upsert rather than add
// makes a replayed batch overwrite instead of conflict.
func (v *VectorIndex) Add(ctx context.Context, entries []domain.VectorEntry) error {
	if len(entries) == 0 {
		return nil
	}

	collID, err := v.resolveCollection(ctx)
	if err != nil {
		return err
	}

	ids := make([]string, len(entries))
	documents := make([]string, len(entries))
	metadatas := make([]map[string]any, len(entries))
	for i, entry := range entries {
		ids[i] = entry.ID
		documents[i] = entry.Document
		metadatas[i] = entry.Metadata
	}

	reqBody := map[string]any{
		"ids":       ids,
		"documents": documents,
		"metadatas": metadatas,
	}
	path := fmt.Sprintf("/api/v1/collections/%s/upsert", collID)
	if err := v.post(ctx, path, reqBody, nil); err != nil {
		return fmt.Errorf("chroma upsert failed: %w", err)
	}
	return nil
}

// HealthCheck verifies the Chroma server is reachable
func (v *VectorIndex) HealthCheck(ctx context.Context) error {
	url := fmt.Sprintf("%s/api/v1/heartbeat", v.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("chroma health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("chroma unhealthy: %s", resp.Status)
	}

	return nil
}

func (v *VectorIndex) post(ctx context.Context, path string, reqBody any, out any) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}

	url := v.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s - %s", resp.Status, string(respBody))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
