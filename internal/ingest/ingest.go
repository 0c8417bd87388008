// Package ingest orchestrates the parse → chunk → embed → store pipeline.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonhill90/vibes-sub001/internal/chunker"
	"github.com/jonhill90/vibes-sub001/internal/crawler"
	"github.com/jonhill90/vibes-sub001/internal/embedding"
	"github.com/jonhill90/vibes-sub001/internal/parser"
	"github.com/jonhill90/vibes-sub001/internal/store"
	"github.com/jonhill90/vibes-sub001/internal/vectorstore"
)

var (
	// ErrValidation indicates a malformed request, rejected before any
	// side effect.
	ErrValidation = errors.New("validation failed")

	// ErrNoChunks indicates the text produced zero chunks.
	ErrNoChunks = errors.New("no chunks produced")

	// ErrAllEmbeddingsFailed indicates not a single chunk could be
	// embedded; nothing was written.
	ErrAllEmbeddingsFailed = errors.New("all embeddings failed")
)

// Parser extracts text from a file. *parser.Parser satisfies this.
type Parser interface {
	Parse(path string) (string, error)
}

// Chunker splits text into ordered chunks. *chunker.Chunker satisfies this.
type Chunker interface {
	Chunk(text string) ([]chunker.Chunk, error)
}

// Embedder turns chunk texts into vectors. *embedding.Service satisfies this.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) embedding.BatchResult
}

// VectorWriter writes and deletes vector points. *vectorstore.Store
// satisfies this.
type VectorWriter interface {
	Upsert(ctx context.Context, collection string, points []vectorstore.Point) error
	DeleteByDocument(ctx context.Context, collection string, documentID uuid.UUID) error
}

// DocumentStore persists documents and chunks. *store.Store satisfies this.
type DocumentStore interface {
	CreateDocumentWithChunks(ctx context.Context, doc *store.Document, chunks []store.Chunk, beforeCommit func(context.Context) error) error
	GetDocument(ctx context.Context, id string) (*store.Document, error)
	DeleteDocument(ctx context.Context, id string) error
}

// Crawler fetches website content under a crawl job. *crawler.Service
// satisfies this.
type Crawler interface {
	CrawlWebsite(ctx context.Context, sourceID, url string, maxPages int) (bool, crawler.Result)
}

// DocumentRequest describes one document to ingest. Exactly one of
// FilePath or Markdown supplies the content.
type DocumentRequest struct {
	SourceID     string
	Title        string
	FilePath     string // parsed from disk when set
	Markdown     string // pre-fetched content when FilePath is empty
	URL          string
	DocumentType string
	Collection   string // vector collection receiving the chunk points
	Metadata     map[string]string
}

// CrawlRequest describes a website ingestion.
type CrawlRequest struct {
	SourceID   string
	URL        string
	MaxPages   int
	Title      string
	Collection string
	Metadata   map[string]string
}

// Result reports an ingestion outcome. Crawl fields are populated only by
// IngestFromCrawl; CrawlJobID is set even when the crawl failed.
type Result struct {
	DocumentID      string
	ChunksStored    int
	ChunksFailed    int
	TotalChunks     int
	IngestionTimeMs int64
	FailedItems     []embedding.FailedItem
	CrawlJobID      string
	PagesCrawled    int
	CrawlTimeMs     int64
}

// Orchestrator wires the ingestion pipeline. It holds no mutable state, so
// any number of documents may be ingested concurrently.
type Orchestrator struct {
	parser  Parser
	chunker Chunker
	embed   Embedder
	vectors VectorWriter
	docs    DocumentStore
	crawler Crawler
	logger  *slog.Logger
}

// New creates an ingestion orchestrator.
func New(p Parser, c Chunker, e Embedder, v VectorWriter, d DocumentStore, cr Crawler, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		parser:  p,
		chunker: c,
		embed:   e,
		vectors: v,
		docs:    d,
		crawler: cr,
		logger:  logger,
	}
}

// IngestDocument runs the full pipeline for one document. Chunks whose
// embedding failed are dropped permanently from this run; the document and
// its surviving chunks commit only after the vector upsert succeeds, so a
// chunk row is never visible without its vector point.
func (o *Orchestrator) IngestDocument(ctx context.Context, req DocumentRequest) (*Result, error) {
	start := time.Now()

	sourceID, err := uuid.Parse(req.SourceID)
	if err != nil {
		return nil, fmt.Errorf("%w: source id %q: %v", ErrValidation, req.SourceID, err)
	}
	if req.Collection == "" {
		return nil, fmt.Errorf("%w: collection is required", ErrValidation)
	}

	text, err := o.sourceText(req)
	if err != nil {
		return nil, err
	}

	chunks, err := o.chunker.Chunk(text)
	if err != nil {
		return nil, fmt.Errorf("chunk %q: %w", req.Title, err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoChunks, req.Title)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	batch := o.embed.BatchEmbed(ctx, texts)
	if batch.SuccessCount == 0 {
		return &Result{
			TotalChunks:  len(chunks),
			ChunksFailed: batch.FailureCount,
			FailedItems:  batch.Failed,
		}, fmt.Errorf("%w: %d chunks", ErrAllEmbeddingsFailed, batch.FailureCount)
	}

	failed := make(map[int]bool, len(batch.Failed))
	for _, f := range batch.Failed {
		failed[f.Index] = true
	}

	doc := &store.Document{
		ID:           uuid.NewString(),
		SourceID:     req.SourceID,
		Title:        req.Title,
		DocumentType: req.DocumentType,
		URL:          req.URL,
		Collection:   req.Collection,
		Metadata:     req.Metadata,
	}
	documentID := uuid.MustParse(doc.ID)

	// Chunk rows and vector points share IDs so deletion and retrieval
	// line up across both stores.
	rows := make([]store.Chunk, 0, batch.SuccessCount)
	points := make([]vectorstore.Point, 0, batch.SuccessCount)
	vi := 0
	for i, c := range chunks {
		if failed[i] {
			continue
		}
		chunkID := uuid.New()
		rows = append(rows, store.Chunk{
			ID:         chunkID.String(),
			ChunkIndex: c.Index,
			Text:       c.Text,
			TokenCount: c.TokenCount,
			StartChar:  c.StartChar,
			EndChar:    c.EndChar,
		})
		points = append(points, vectorstore.Point{
			ID:         chunkID,
			Vector:     batch.Embeddings[vi],
			DocumentID: documentID,
			SourceID:   sourceID,
			ChunkIndex: c.Index,
			Text:       c.Text,
		})
		vi++
	}

	err = o.docs.CreateDocumentWithChunks(ctx, doc, rows, func(ctx context.Context) error {
		return o.vectors.Upsert(ctx, req.Collection, points)
	})
	if err != nil {
		return nil, fmt.Errorf("store document %q: %w", req.Title, err)
	}

	res := &Result{
		DocumentID:      doc.ID,
		ChunksStored:    len(rows),
		ChunksFailed:    batch.FailureCount,
		TotalChunks:     len(chunks),
		IngestionTimeMs: time.Since(start).Milliseconds(),
		FailedItems:     batch.Failed,
	}
	o.logger.Info("ingested document",
		"document_id", doc.ID,
		"title", req.Title,
		"chunks_stored", res.ChunksStored,
		"chunks_failed", res.ChunksFailed,
		"elapsed_ms", res.IngestionTimeMs)
	return res, nil
}

// IngestFromCrawl crawls a website and ingests the result. On crawl
// failure it returns immediately with the crawl job ID and no writes.
func (o *Orchestrator) IngestFromCrawl(ctx context.Context, req CrawlRequest) (*Result, error) {
	ok, crawlRes := o.crawler.CrawlWebsite(ctx, req.SourceID, req.URL, req.MaxPages)
	if !ok {
		return &Result{CrawlJobID: crawlRes.JobID},
			fmt.Errorf("%w: %s: %s", crawler.ErrCrawlFailed, req.URL, crawlRes.Error)
	}

	metadata := make(map[string]string, len(req.Metadata)+3)
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	metadata["crawl_job_id"] = crawlRes.JobID
	metadata["pages_crawled"] = strconv.Itoa(crawlRes.PagesCrawled)
	metadata["crawl_time_ms"] = strconv.FormatInt(crawlRes.CrawlTimeMs, 10)

	title := req.Title
	if title == "" {
		title = req.URL
	}

	res, err := o.IngestDocument(ctx, DocumentRequest{
		SourceID:     req.SourceID,
		Title:        title,
		Markdown:     crawlRes.Content,
		URL:          req.URL,
		DocumentType: "web",
		Collection:   req.Collection,
		Metadata:     metadata,
	})
	if res != nil {
		res.CrawlJobID = crawlRes.JobID
		res.PagesCrawled = crawlRes.PagesCrawled
		res.CrawlTimeMs = crawlRes.CrawlTimeMs
	}
	return res, err
}

// DeleteDocument removes a document's vectors and rows. Vector deletion
// runs first and is non-fatal; the relational delete (cascading to chunks)
// always proceeds.
func (o *Orchestrator) DeleteDocument(ctx context.Context, documentID string) error {
	docUUID, err := uuid.Parse(documentID)
	if err != nil {
		return fmt.Errorf("%w: document id %q: %v", ErrValidation, documentID, err)
	}

	doc, err := o.docs.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}

	if err := o.vectors.DeleteByDocument(ctx, doc.Collection, docUUID); err != nil {
		o.logger.Warn("vector deletion failed, continuing with relational delete",
			"document_id", documentID,
			"collection", doc.Collection,
			"error", err)
	}

	if err := o.docs.DeleteDocument(ctx, documentID); err != nil {
		return err
	}

	o.logger.Info("deleted document", "document_id", documentID)
	return nil
}

func (o *Orchestrator) sourceText(req DocumentRequest) (string, error) {
	if req.FilePath != "" {
		return o.parser.Parse(req.FilePath)
	}
	if strings.TrimSpace(req.Markdown) == "" {
		return "", fmt.Errorf("%w: request carries no content", parser.ErrEmptyContent)
	}
	return req.Markdown, nil
}
