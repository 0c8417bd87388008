package vectorstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	qdrant "github.com/qdrant/go-client/qdrant"
)

// Store reads and writes points in Qdrant collections.
type Store struct {
	points PointsAPI
	logger *slog.Logger
}

// NewStore creates a point store.
func NewStore(points PointsAPI, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{points: points, logger: logger}
}

// Upsert writes points into collection, waiting for the write to be
// applied so a following query sees them.
func (s *Store) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	wait := true
	pts := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		pts[i] = &qdrant.PointStruct{
			Id: &qdrant.PointId{
				PointIdOptions: &qdrant.PointId_Uuid{Uuid: p.ID.String()},
			},
			Vectors: &qdrant.Vectors{
				VectorsOptions: &qdrant.Vectors_Vector{
					Vector: &qdrant.Vector{Data: p.Vector},
				},
			},
			Payload: map[string]*qdrant.Value{
				payloadDocumentID: {Kind: &qdrant.Value_StringValue{StringValue: p.DocumentID.String()}},
				payloadSourceID:   {Kind: &qdrant.Value_StringValue{StringValue: p.SourceID.String()}},
				payloadChunkIndex: {Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(p.ChunkIndex)}},
				payloadText:       {Kind: &qdrant.Value_StringValue{StringValue: p.Text}},
			},
		}
	}

	_, err := s.points.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Wait:           &wait,
		Points:         pts,
	})
	if err != nil {
		return fmt.Errorf("%w: upsert %d points into %s: %v", ErrVectorStore, len(points), collection, err)
	}

	s.logger.Debug("upserted points", "collection", collection, "count", len(points))
	return nil
}

// Query runs a similarity search over collection and returns scored hits
// in descending score order.
func (s *Store) Query(ctx context.Context, collection string, vector []float32, filter Filter, limit int) ([]Hit, error) {
	req := &qdrant.SearchPoints{
		CollectionName: collection,
		Vector:         vector,
		Limit:          uint64(limit),
		WithPayload: &qdrant.WithPayloadSelector{
			SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true},
		},
	}
	if f := buildFilter(filter); f != nil {
		req.Filter = f
	}

	resp, err := s.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: query %s: %v", ErrVectorStore, collection, err)
	}

	hits := make([]Hit, 0, len(resp.Result))
	for _, sp := range resp.Result {
		hit, err := hitFromPoint(sp)
		if err != nil {
			s.logger.Warn("skipping malformed point", "collection", collection, "error", err)
			continue
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// DeleteByDocument removes every point belonging to a document.
func (s *Store) DeleteByDocument(ctx context.Context, collection string, documentID uuid.UUID) error {
	wait := true
	_, err := s.points.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Wait:           &wait,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: &qdrant.Filter{
					Must: []*qdrant.Condition{fieldMatch(payloadDocumentID, documentID.String())},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: delete points for document %s in %s: %v", ErrVectorStore, documentID, collection, err)
	}

	s.logger.Debug("deleted document points", "collection", collection, "document_id", documentID)
	return nil
}

func buildFilter(f Filter) *qdrant.Filter {
	var must []*qdrant.Condition
	if f.SourceID != uuid.Nil {
		must = append(must, fieldMatch(payloadSourceID, f.SourceID.String()))
	}
	if f.DocumentID != uuid.Nil {
		must = append(must, fieldMatch(payloadDocumentID, f.DocumentID.String()))
	}
	if len(must) == 0 {
		return nil
	}
	return &qdrant.Filter{Must: must}
}

func fieldMatch(key, value string) *qdrant.Condition {
	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{
				Key: key,
				Match: &qdrant.Match{
					MatchValue: &qdrant.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}

func hitFromPoint(sp *qdrant.ScoredPoint) (Hit, error) {
	chunkID, err := uuid.Parse(sp.GetId().GetUuid())
	if err != nil {
		return Hit{}, fmt.Errorf("bad point id: %w", err)
	}

	payload := sp.GetPayload()
	docID, err := uuid.Parse(payload[payloadDocumentID].GetStringValue())
	if err != nil {
		return Hit{}, fmt.Errorf("bad %s payload: %w", payloadDocumentID, err)
	}
	srcID, err := uuid.Parse(payload[payloadSourceID].GetStringValue())
	if err != nil {
		return Hit{}, fmt.Errorf("bad %s payload: %w", payloadSourceID, err)
	}

	return Hit{
		ChunkID:    chunkID,
		DocumentID: docID,
		SourceID:   srcID,
		ChunkIndex: int(payload[payloadChunkIndex].GetIntegerValue()),
		Text:       payload[payloadText].GetStringValue(),
		Score:      sp.GetScore(),
	}, nil
}
