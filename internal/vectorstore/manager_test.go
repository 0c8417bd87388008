package vectorstore

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	qdrant "github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"github.com/jonhill90/vibes-sub001/internal/log"
)

// fakeCollections records collection operations.
type fakeCollections struct {
	mu        sync.Mutex
	created   []*qdrant.CreateCollection
	deleted   []string
	createErr error
	deleteErr map[string]error
}

func (f *fakeCollections) Create(_ context.Context, in *qdrant.CreateCollection, _ ...grpc.CallOption) (*qdrant.CollectionOperationResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, in)
	return &qdrant.CollectionOperationResponse{Result: true}, nil
}

func (f *fakeCollections) Delete(_ context.Context, in *qdrant.DeleteCollection, _ ...grpc.CallOption) (*qdrant.CollectionOperationResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.deleteErr[in.CollectionName]; err != nil {
		return nil, err
	}
	f.deleted = append(f.deleted, in.CollectionName)
	return &qdrant.CollectionOperationResponse{Result: true}, nil
}

// fakePoints records point operations and serves canned search results.
type fakePoints struct {
	mu         sync.Mutex
	upserts    []*qdrant.UpsertPoints
	deletes    []*qdrant.DeletePoints
	indexes    []*qdrant.CreateFieldIndexCollection
	searchReq  *qdrant.SearchPoints
	searchResp *qdrant.SearchResponse
	searchErr  error
	upsertErr  error
}

func (f *fakePoints) Upsert(_ context.Context, in *qdrant.UpsertPoints, _ ...grpc.CallOption) (*qdrant.PointsOperationResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	f.upserts = append(f.upserts, in)
	return &qdrant.PointsOperationResponse{}, nil
}

func (f *fakePoints) Search(_ context.Context, in *qdrant.SearchPoints, _ ...grpc.CallOption) (*qdrant.SearchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchReq = in
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if f.searchResp != nil {
		return f.searchResp, nil
	}
	return &qdrant.SearchResponse{}, nil
}

func (f *fakePoints) Delete(_ context.Context, in *qdrant.DeletePoints, _ ...grpc.CallOption) (*qdrant.PointsOperationResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, in)
	return &qdrant.PointsOperationResponse{}, nil
}

func (f *fakePoints) CreateFieldIndex(_ context.Context, in *qdrant.CreateFieldIndexCollection, _ ...grpc.CallOption) (*qdrant.PointsOperationResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexes = append(f.indexes, in)
	return &qdrant.PointsOperationResponse{}, nil
}

func TestCreateForSource_RecognizedTypes(t *testing.T) {
	collections := &fakeCollections{}
	points := &fakePoints{}
	m := NewManager(collections, points, log.NewNop())

	names, err := m.CreateForSource(context.Background(), uuid.New(), "My Wiki",
		[]string{"documents", "code", "media"})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"documents": "My_Wiki_documents",
		"code":      "My_Wiki_code",
		"media":     "My_Wiki_media",
	}, names)

	require.Len(t, collections.created, 3)
	dims := map[string]uint64{}
	for _, c := range collections.created {
		params := c.VectorsConfig.GetParams()
		require.NotNil(t, params)
		assert.Equal(t, qdrant.Distance_Cosine, params.Distance)
		dims[c.CollectionName] = params.Size
	}
	assert.Equal(t, uint64(1536), dims["My_Wiki_documents"])
	assert.Equal(t, uint64(3072), dims["My_Wiki_code"])
	assert.Equal(t, uint64(512), dims["My_Wiki_media"])

	// One keyword index on source_id per collection.
	require.Len(t, points.indexes, 3)
	for _, idx := range points.indexes {
		assert.Equal(t, "source_id", idx.FieldName)
		require.NotNil(t, idx.FieldType)
		assert.Equal(t, qdrant.FieldType_FieldTypeKeyword, *idx.FieldType)
	}
}

func TestCreateForSource_SkipsUnrecognizedTypes(t *testing.T) {
	collections := &fakeCollections{}
	m := NewManager(collections, &fakePoints{}, log.NewNop())

	names, err := m.CreateForSource(context.Background(), uuid.New(), "Wiki",
		[]string{"documents", "audio", "holograms"})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"documents": "Wiki_documents"}, names)
	assert.Len(t, collections.created, 1)
}

func TestCreateForSource_ErrorPropagates(t *testing.T) {
	collections := &fakeCollections{createErr: errors.New("connection refused")}
	m := NewManager(collections, &fakePoints{}, log.NewNop())

	_, err := m.CreateForSource(context.Background(), uuid.New(), "Wiki", []string{"documents"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVectorStore)
}

func TestDeleteCollections_BestEffort(t *testing.T) {
	collections := &fakeCollections{
		deleteErr: map[string]error{"b_documents": errors.New("not found")},
	}
	m := NewManager(collections, &fakePoints{}, log.NewNop())

	// Must not panic or stop at the failing name.
	m.DeleteCollections(context.Background(), []string{"a_documents", "b_documents", "c_documents"})

	assert.Equal(t, []string{"a_documents", "c_documents"}, collections.deleted)
}
