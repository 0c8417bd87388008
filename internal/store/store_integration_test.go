package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonhill90/vibes-sub001/internal/log"
	"github.com/jonhill90/vibes-sub001/internal/store"
	"github.com/jonhill90/vibes-sub001/internal/testutil"
)

func setupStore(t *testing.T) *store.Store {
	t.Helper()
	testutil.SkipIfNoDocker(t)

	db, cleanup := testutil.SetupTestDB(t)
	t.Cleanup(cleanup)
	return store.New(db.Pool, log.NewNop())
}

func createSource(t *testing.T, s *store.Store) *store.Source {
	t.Helper()
	src := &store.Source{
		SourceType:         "website",
		URL:                "https://example.com",
		EnabledCollections: []string{"documents"},
		CollectionNames:    map[string]string{"documents": "example_documents"},
	}
	require.NoError(t, s.CreateSource(context.Background(), src))
	return src
}

func createDocument(t *testing.T, s *store.Store, sourceID string, chunkTexts []string) *store.Document {
	t.Helper()
	doc := &store.Document{
		SourceID:     sourceID,
		Title:        "Test Document",
		DocumentType: "markdown",
		Collection:   "example_documents",
	}
	chunks := make([]store.Chunk, len(chunkTexts))
	for i, text := range chunkTexts {
		chunks[i] = store.Chunk{ChunkIndex: i, Text: text, TokenCount: 5, StartChar: i * 10, EndChar: i*10 + 10}
	}
	require.NoError(t, s.CreateDocumentWithChunks(context.Background(), doc, chunks, nil))
	return doc
}

func TestSourceLifecycle(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	src := createSource(t, s)

	got, err := s.GetSource(ctx, src.ID)
	require.NoError(t, err)
	assert.Equal(t, src.URL, got.URL)
	assert.Equal(t, []string{"documents"}, got.EnabledCollections)

	require.NoError(t, s.UpdateSourceCollections(ctx, src.ID,
		map[string]string{"documents": "renamed_documents"}))
	got, err = s.GetSource(ctx, src.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed_documents", got.CollectionNames["documents"])

	require.NoError(t, s.DeleteSource(ctx, src.ID))
	_, err = s.GetSource(ctx, src.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCascadeDeletes(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	src := createSource(t, s)
	doc := createDocument(t, s, src.ID, []string{"alpha chunk", "beta chunk"})

	job := &store.CrawlJob{SourceID: src.ID, MaxPages: 1}
	require.NoError(t, s.CreateCrawlJob(ctx, job))

	// Deleting the document removes its chunks.
	count, err := s.CountChunks(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	require.NoError(t, s.DeleteDocument(ctx, doc.ID))
	count, err = s.CountChunks(ctx, doc.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	// Deleting the source removes remaining documents, chunks, and jobs.
	doc2 := createDocument(t, s, src.ID, []string{"gamma chunk"})
	require.NoError(t, s.DeleteSource(ctx, src.ID))

	_, err = s.GetDocument(ctx, doc2.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetCrawlJob(ctx, job.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCreateDocumentWithChunks_RollsBackOnHookFailure(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	src := createSource(t, s)
	doc := &store.Document{
		SourceID:     src.ID,
		Title:        "Doomed",
		DocumentType: "markdown",
		Collection:   "example_documents",
	}
	chunks := []store.Chunk{{ChunkIndex: 0, Text: "never visible", TokenCount: 3}}

	hookErr := errors.New("vector store down")
	err := s.CreateDocumentWithChunks(ctx, doc, chunks, func(context.Context) error {
		return hookErr
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, hookErr)

	_, err = s.GetDocument(ctx, doc.ID)
	assert.ErrorIs(t, err, store.ErrNotFound, "failed hook must roll the document back")
}

func TestCrawlJobTransitions(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	src := createSource(t, s)

	t.Run("pending to running to completed", func(t *testing.T) {
		job := &store.CrawlJob{SourceID: src.ID, MaxPages: 3}
		require.NoError(t, s.CreateCrawlJob(ctx, job))
		require.NoError(t, s.StartCrawlJob(ctx, job.ID))
		require.NoError(t, s.CompleteCrawlJob(ctx, job.ID, 3))

		got, err := s.GetCrawlJob(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, store.JobStatusCompleted, got.Status)
		assert.Equal(t, 3, got.PagesCrawled)
		assert.NotNil(t, got.StartedAt)
		assert.NotNil(t, got.CompletedAt)

		// Terminal states are set exactly once.
		assert.ErrorIs(t, s.CompleteCrawlJob(ctx, job.ID, 4), store.ErrInvalidTransition)
		assert.ErrorIs(t, s.FailCrawlJob(ctx, job.ID, "late"), store.ErrInvalidTransition)
	})

	t.Run("fail requires running", func(t *testing.T) {
		job := &store.CrawlJob{SourceID: src.ID, MaxPages: 1}
		require.NoError(t, s.CreateCrawlJob(ctx, job))
		assert.ErrorIs(t, s.FailCrawlJob(ctx, job.ID, "too early"), store.ErrInvalidTransition)

		require.NoError(t, s.StartCrawlJob(ctx, job.ID))
		require.NoError(t, s.FailCrawlJob(ctx, job.ID, "fetch exploded"))

		got, err := s.GetCrawlJob(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, store.JobStatusFailed, got.Status)
		assert.Equal(t, "fetch exploded", got.ErrorMessage)
	})

	t.Run("cancel from pending", func(t *testing.T) {
		job := &store.CrawlJob{SourceID: src.ID, MaxPages: 1}
		require.NoError(t, s.CreateCrawlJob(ctx, job))
		require.NoError(t, s.CancelCrawlJob(ctx, job.ID))
		assert.ErrorIs(t, s.StartCrawlJob(ctx, job.ID), store.ErrInvalidTransition)
	})

	t.Run("list by source", func(t *testing.T) {
		jobs, err := s.ListCrawlJobs(ctx, src.ID)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(jobs), 3)
	})
}

func TestLexicalSearch(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	src := createSource(t, s)
	other := createSource(t, s)
	createDocument(t, s, src.ID, []string{
		"PostgreSQL full text search uses tsvector and tsquery",
		"Qdrant stores embedding vectors for similarity search",
		"completely unrelated cooking recipe with tomatoes",
	})
	createDocument(t, s, other.ID, []string{
		"full text search in the other source",
	})

	hits, err := s.LexicalSearch(ctx, "full text search", "", 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Contains(t, hits[0].Text, "full text search")
	for _, h := range hits {
		assert.Positive(t, h.Rank)
		assert.NotContains(t, h.Text, "tomatoes")
	}

	// Source filter narrows the corpus.
	filtered, err := s.LexicalSearch(ctx, "full text search", src.ID, 10)
	require.NoError(t, err)
	require.NotEmpty(t, filtered)
	assert.Less(t, len(filtered), len(hits))

	// No matches is an empty slice, not an error.
	none, err := s.LexicalSearch(ctx, "zeppelin quantum marmalade", "", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestEmbeddingCache(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	hash := uuid.NewString()
	vec := []float32{0.1, 0.2, 0.3}

	_, found, err := s.CacheLookup(ctx, hash, "gemini-embedding-001")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.CacheSave(ctx, hash, "gemini-embedding-001", vec, "preview text"))

	got, found, err := s.CacheLookup(ctx, hash, "gemini-embedding-001")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, vec, got)

	// Same hash, different model, is a distinct entry.
	_, found, err = s.CacheLookup(ctx, hash, "other-model")
	require.NoError(t, err)
	assert.False(t, found)

	// Duplicate save is a no-op, not an error.
	require.NoError(t, s.CacheSave(ctx, hash, "gemini-embedding-001", []float32{9, 9, 9}, "preview"))
	got, _, err = s.CacheLookup(ctx, hash, "gemini-embedding-001")
	require.NoError(t, err)
	assert.Equal(t, vec, got, "first write wins")
}
