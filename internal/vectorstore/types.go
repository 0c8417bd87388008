package vectorstore

import "github.com/google/uuid"

// Payload keys attached to every point.
const (
	payloadDocumentID = "document_id"
	payloadSourceID   = "source_id"
	payloadChunkIndex = "chunk_index"
	payloadText       = "text"
)

// Point is one chunk embedding destined for a collection. The point ID is
// the chunk ID, so relational rows and vectors share identity.
type Point struct {
	ID         uuid.UUID
	Vector     []float32
	DocumentID uuid.UUID
	SourceID   uuid.UUID
	ChunkIndex int
	Text       string
}

// Hit is one scored result from a vector query. Score is cosine similarity
// in [0,1].
type Hit struct {
	ChunkID    uuid.UUID
	DocumentID uuid.UUID
	SourceID   uuid.UUID
	ChunkIndex int
	Text       string
	Score      float32
}

// Filter restricts a query to points matching the set fields. Zero UUIDs
// mean "no restriction".
type Filter struct {
	SourceID   uuid.UUID
	DocumentID uuid.UUID
}
