package chroma

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowara/kbsync/internal/core/domain"
)

const testCollectionID = "c0ffee00-0000-0000-0000-000000000000"

// fakeChroma is a minimal in-memory Chroma server for adapter tests.
type fakeChroma struct {
	t *testing.T

	// documents and metadata keyed by entry id
	docs  map[string]string
	metas map[string]map[string]any

	collectionCalls int
}

func newFakeChroma(t *testing.T) (*fakeChroma, *httptest.Server) {
	f := &fakeChroma{
		t:     t,
		docs:  make(map[string]string),
		metas: make(map[string]map[string]any),
	}
	server := httptest.NewServer(f)
	t.Cleanup(server.Close)
	return f, server
}

func (f *fakeChroma) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/heartbeat":
		w.WriteHeader(http.StatusOK)

	case r.URL.Path == "/api/v1/collections":
		f.collectionCalls++
		var req struct {
			Name        string `json:"name"`
			GetOrCreate bool   `json:"get_or_create"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		assert.True(f.t, req.GetOrCreate, "expected get_or_create in collection request")
		json.NewEncoder(w).Encode(map[string]string{"id": testCollectionID, "name": req.Name})

	case strings.HasSuffix(r.URL.Path, "/get"):
		var req struct {
			Where map[string]any `json:"where"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		ids := []string{}
		for id, meta := range f.metas {
			if matches(meta, req.Where) {
				ids = append(ids, id)
			}
		}
		json.NewEncoder(w).Encode(map[string]any{"ids": ids})

	case strings.HasSuffix(r.URL.Path, "/delete"):
		var req struct {
			IDs []string `json:"ids"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		for _, id := range req.IDs {
			delete(f.docs, id)
			delete(f.metas, id)
		}
		w.Write([]byte("[]"))

	case strings.HasSuffix(r.URL.Path, "/upsert"):
		var req struct {
			IDs       []string         `json:"ids"`
			Documents []string         `json:"documents"`
			Metadatas []map[string]any `json:"metadatas"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		require.Len(f.t, req.Documents, len(req.IDs), "misaligned upsert arrays")
		require.Len(f.t, req.Metadatas, len(req.IDs), "misaligned upsert arrays")
		for i, id := range req.IDs {
			f.docs[id] = req.Documents[i]
			f.metas[id] = req.Metadatas[i]
		}
		w.Write([]byte("true"))

	default:
		http.NotFound(w, r)
	}
}

func matches(meta, where map[string]any) bool {
	for k, want := range where {
		if meta[k] != want {
			return false
		}
	}
	return true
}

func TestAddThenListIDs(t *testing.T) {
	_, server := newFakeChroma(t)
	index := NewVectorIndex(DefaultConfig(server.URL, "kb"))
	ctx := context.Background()

	entries := []domain.VectorEntry{
		{ID: "src1_chunk_0", Document: "first", Metadata: map[string]any{"source_id": "src1"}},
		{ID: "src1_chunk_1", Document: "second", Metadata: map[string]any{"source_id": "src1"}},
		{ID: "src2_chunk_0", Document: "other", Metadata: map[string]any{"source_id": "src2"}},
	}
	require.NoError(t, index.Add(ctx, entries))

	ids, err := index.ListIDs(ctx, map[string]string{"source_id": "src1"})
	require.NoError(t, err)
	assert.Len(t, ids, 2)
	for _, id := range ids {
		assert.True(t, strings.HasPrefix(id, "src1_"), "unexpected id in filtered result: %s", id)
	}
}

func TestDeleteRemovesEntries(t *testing.T) {
	fake, server := newFakeChroma(t)
	index := NewVectorIndex(DefaultConfig(server.URL, "kb"))
	ctx := context.Background()

	require.NoError(t, index.Add(ctx, []domain.VectorEntry{
		{ID: "a", Document: "x", Metadata: map[string]any{"source_id": "s"}},
		{ID: "b", Document: "y", Metadata: map[string]any{"source_id": "s"}},
	}))

	require.NoError(t, index.Delete(ctx, []string{"a"}))

	assert.NotContains(t, fake.docs, "a")
	assert.Contains(t, fake.docs, "b")
}

func TestDeleteEmptyIsNoop(t *testing.T) {
	fake, server := newFakeChroma(t)
	index := NewVectorIndex(DefaultConfig(server.URL, "kb"))

	require.NoError(t, index.Delete(context.Background(), nil))
	assert.Equal(t, 0, fake.collectionCalls, "expected no HTTP traffic for empty delete")
}

func TestCollectionResolvedOnce(t *testing.T) {
	fake, server := newFakeChroma(t)
	index := NewVectorIndex(DefaultConfig(server.URL, "kb"))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := index.ListIDs(ctx, map[string]string{"source_id": "s"})
		require.NoError(t, err)
	}

	assert.Equal(t, 1, fake.collectionCalls, "expected collection resolved once")
}

func TestUpsertOverwrites(t *testing.T) {
	fake, server := newFakeChroma(t)
	index := NewVectorIndex(DefaultConfig(server.URL, "kb"))
	ctx := context.Background()

	entry := domain.VectorEntry{ID: "a", Document: "old", Metadata: map[string]any{"source_id": "s"}}
	require.NoError(t, index.Add(ctx, []domain.VectorEntry{entry}))

	entry.Document = "new"
	require.NoError(t, index.Add(ctx, []domain.VectorEntry{entry}))

	assert.Equal(t, "new", fake.docs["a"])
}

func TestServerErrorSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	index := NewVectorIndex(DefaultConfig(server.URL, "kb"))
	_, err := index.ListIDs(context.Background(), nil)
	require.Error(t, err)
}

func TestHealthCheck(t *testing.T) {
	_, server := newFakeChroma(t)
	index := NewVectorIndex(DefaultConfig(server.URL, "kb"))

	assert.NoError(t, index.HealthCheck(context.Background()))
}
