package vectorstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	qdrant "github.com/qdrant/go-client/qdrant"
)

// collectionDims maps recognized content types to their vector dimension.
var collectionDims = map[string]uint64{
	"documents": 1536,
	"code":      3072,
	"media":     512,
}

// Manager handles per-source collection lifecycle.
type Manager struct {
	collections CollectionsAPI
	points      PointsAPI
	logger      *slog.Logger
}

// NewManager creates a collection manager.
func NewManager(collections CollectionsAPI, points PointsAPI, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{collections: collections, points: points, logger: logger}
}

// CreateForSource creates one cosine-distance collection per recognized
// content type in enabledTypes, each with a keyword payload index on
// source_id. Unrecognized types are skipped. Returns a type→name map.
// Any provider error aborts and propagates: ingestion must not run against
// a partially provisioned source.
func (m *Manager) CreateForSource(ctx context.Context, sourceID uuid.UUID, title string, enabledTypes []string) (map[string]string, error) {
	created := make(map[string]string)
	for _, ct := range enabledTypes {
		dim, ok := collectionDims[ct]
		if !ok {
			m.logger.Debug("skipping unrecognized collection type",
				"type", ct,
				"source_id", sourceID)
			continue
		}

		name := SanitizeCollectionName(title, ct)
		_, err := m.collections.Create(ctx, &qdrant.CreateCollection{
			CollectionName: name,
			VectorsConfig: &qdrant.VectorsConfig{
				Config: &qdrant.VectorsConfig_Params{
					Params: &qdrant.VectorParams{
						Size:     dim,
						Distance: qdrant.Distance_Cosine,
					},
				},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("%w: create collection %s: %v", ErrVectorStore, name, err)
		}

		// Keyword index so source-filtered queries stay fast.
		fieldType := qdrant.FieldType_FieldTypeKeyword
		_, err = m.points.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: name,
			FieldName:      payloadSourceID,
			FieldType:      &fieldType,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: index %s on %s: %v", ErrVectorStore, payloadSourceID, name, err)
		}

		created[ct] = name
		m.logger.Info("created collection",
			"name", name,
			"type", ct,
			"dimension", dim,
			"source_id", sourceID)
	}
	return created, nil
}

// DeleteCollections attempts to delete every named collection. Each
// deletion is independent; failures are logged and the remaining names are
// still attempted. Never returns an error.
func (m *Manager) DeleteCollections(ctx context.Context, names []string) {
	for _, name := range names {
		if _, err := m.collections.Delete(ctx, &qdrant.DeleteCollection{CollectionName: name}); err != nil {
			m.logger.Warn("failed to delete collection", "name", name, "error", err)
			continue
		}
		m.logger.Info("deleted collection", "name", name)
	}
}
