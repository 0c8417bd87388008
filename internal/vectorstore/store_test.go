package vectorstore

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	qdrant "github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonhill90/vibes-sub001/internal/log"
)

func scoredPoint(chunkID, docID, srcID uuid.UUID, index int, text string, score float32) *qdrant.ScoredPoint {
	return &qdrant.ScoredPoint{
		Id:    &qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{Uuid: chunkID.String()}},
		Score: score,
		Payload: map[string]*qdrant.Value{
			payloadDocumentID: {Kind: &qdrant.Value_StringValue{StringValue: docID.String()}},
			payloadSourceID:   {Kind: &qdrant.Value_StringValue{StringValue: srcID.String()}},
			payloadChunkIndex: {Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(index)}},
			payloadText:       {Kind: &qdrant.Value_StringValue{StringValue: text}},
		},
	}
}

func TestUpsert_BuildsPointsWithPayload(t *testing.T) {
	points := &fakePoints{}
	s := NewStore(points, log.NewNop())

	chunkID := uuid.New()
	docID := uuid.New()
	srcID := uuid.New()
	err := s.Upsert(context.Background(), "wiki_documents", []Point{{
		ID:         chunkID,
		Vector:     []float32{0.1, 0.2},
		DocumentID: docID,
		SourceID:   srcID,
		ChunkIndex: 3,
		Text:       "chunk text",
	}})
	require.NoError(t, err)

	require.Len(t, points.upserts, 1)
	req := points.upserts[0]
	assert.Equal(t, "wiki_documents", req.CollectionName)
	require.NotNil(t, req.Wait)
	assert.True(t, *req.Wait)

	require.Len(t, req.Points, 1)
	p := req.Points[0]
	assert.Equal(t, chunkID.String(), p.Id.GetUuid())
	assert.Equal(t, []float32{0.1, 0.2}, p.Vectors.GetVector().Data)
	assert.Equal(t, docID.String(), p.Payload[payloadDocumentID].GetStringValue())
	assert.Equal(t, srcID.String(), p.Payload[payloadSourceID].GetStringValue())
	assert.Equal(t, int64(3), p.Payload[payloadChunkIndex].GetIntegerValue())
	assert.Equal(t, "chunk text", p.Payload[payloadText].GetStringValue())
}

func TestUpsert_EmptyIsNoop(t *testing.T) {
	points := &fakePoints{upsertErr: errors.New("should not be called")}
	s := NewStore(points, log.NewNop())

	require.NoError(t, s.Upsert(context.Background(), "wiki_documents", nil))
}

func TestUpsert_WrapsProviderError(t *testing.T) {
	points := &fakePoints{upsertErr: errors.New("deadline exceeded")}
	s := NewStore(points, log.NewNop())

	err := s.Upsert(context.Background(), "wiki_documents", []Point{{ID: uuid.New()}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVectorStore)
}

func TestQuery_ParsesHitsAndFilter(t *testing.T) {
	chunkID := uuid.New()
	docID := uuid.New()
	srcID := uuid.New()

	points := &fakePoints{
		searchResp: &qdrant.SearchResponse{
			Result: []*qdrant.ScoredPoint{
				scoredPoint(chunkID, docID, srcID, 0, "first", 0.91),
			},
		},
	}
	s := NewStore(points, log.NewNop())

	hits, err := s.Query(context.Background(), "wiki_documents", []float32{0.5}, Filter{SourceID: srcID}, 10)
	require.NoError(t, err)

	require.Len(t, hits, 1)
	assert.Equal(t, Hit{
		ChunkID:    chunkID,
		DocumentID: docID,
		SourceID:   srcID,
		ChunkIndex: 0,
		Text:       "first",
		Score:      0.91,
	}, hits[0])

	req := points.searchReq
	require.NotNil(t, req)
	assert.Equal(t, uint64(10), req.Limit)
	require.NotNil(t, req.Filter)
	require.Len(t, req.Filter.Must, 1)
	cond := req.Filter.Must[0].GetField()
	require.NotNil(t, cond)
	assert.Equal(t, payloadSourceID, cond.Key)
	assert.Equal(t, srcID.String(), cond.Match.GetKeyword())
}

func TestQuery_NoFilterOmitsFilter(t *testing.T) {
	points := &fakePoints{}
	s := NewStore(points, log.NewNop())

	_, err := s.Query(context.Background(), "wiki_documents", []float32{0.5}, Filter{}, 5)
	require.NoError(t, err)
	assert.Nil(t, points.searchReq.Filter)
}

func TestQuery_SkipsMalformedPoints(t *testing.T) {
	good := scoredPoint(uuid.New(), uuid.New(), uuid.New(), 1, "good", 0.5)
	bad := &qdrant.ScoredPoint{
		Id: &qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{Uuid: "not-a-uuid"}},
	}

	points := &fakePoints{searchResp: &qdrant.SearchResponse{Result: []*qdrant.ScoredPoint{bad, good}}}
	s := NewStore(points, log.NewNop())

	hits, err := s.Query(context.Background(), "wiki_documents", []float32{0.5}, Filter{}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "good", hits[0].Text)
}

func TestDeleteByDocument_FiltersOnDocumentID(t *testing.T) {
	points := &fakePoints{}
	s := NewStore(points, log.NewNop())

	docID := uuid.New()
	require.NoError(t, s.DeleteByDocument(context.Background(), "wiki_documents", docID))

	require.Len(t, points.deletes, 1)
	req := points.deletes[0]
	assert.Equal(t, "wiki_documents", req.CollectionName)

	filter := req.Points.GetFilter()
	require.NotNil(t, filter)
	require.Len(t, filter.Must, 1)
	cond := filter.Must[0].GetField()
	assert.Equal(t, payloadDocumentID, cond.Key)
	assert.Equal(t, docID.String(), cond.Match.GetKeyword())
}
