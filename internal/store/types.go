package store

import "time"

// Source statuses.
const (
	SourceStatusActive   = "active"
	SourceStatusDisabled = "disabled"
)

// Crawl job statuses. Transitions are pending -> running -> one terminal
// state, each terminal state set exactly once.
const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
	JobStatusCancelled = "cancelled"
)

// Source represents a content source that owns documents and crawl jobs.
type Source struct {
	ID                 string
	SourceType         string
	URL                string
	Status             string
	EnabledCollections []string          // content types with vector collections
	CollectionNames    map[string]string // content type -> vector collection name
	Metadata           map[string]string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Document represents an ingested document belonging to a source.
type Document struct {
	ID           string
	SourceID     string
	Title        string
	DocumentType string
	URL          string
	Collection   string // vector collection holding this document's chunks
	Metadata     map[string]string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Chunk is the unit of embedding and retrieval. A chunk row exists iff its
// embedding was stored as a vector point in the document's collection.
type Chunk struct {
	ID         string
	DocumentID string
	ChunkIndex int
	Text       string
	TokenCount int
	StartChar  int
	EndChar    int
	CreatedAt  time.Time
}

// CrawlJob tracks a website crawl for a source.
type CrawlJob struct {
	ID           string
	SourceID     string
	Status       string
	PagesCrawled int
	PagesTotal   int
	MaxPages     int
	MaxDepth     int
	CurrentDepth int
	ErrorMessage string
	ErrorCount   int
	StartedAt    *time.Time
	CompletedAt  *time.Time
	CreatedAt    time.Time
}

// LexicalHit is one full-text search result over the chunk corpus.
// Rank is the raw ts_rank score (unbounded, normalized by the caller).
type LexicalHit struct {
	ChunkID    string
	DocumentID string
	ChunkIndex int
	Text       string
	Rank       float64
}
