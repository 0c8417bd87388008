// Package vectorstore wraps the Qdrant gRPC API for collection lifecycle
// management and point storage/retrieval.
package vectorstore

import (
	"context"
	"errors"
	"fmt"

	qdrant "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// ErrVectorStore indicates a failed vector store operation.
var ErrVectorStore = errors.New("vector store error")

// CollectionsAPI is the subset of the Qdrant collections client we use.
// qdrant.CollectionsClient satisfies this.
type CollectionsAPI interface {
	Create(ctx context.Context, in *qdrant.CreateCollection, opts ...grpc.CallOption) (*qdrant.CollectionOperationResponse, error)
	Delete(ctx context.Context, in *qdrant.DeleteCollection, opts ...grpc.CallOption) (*qdrant.CollectionOperationResponse, error)
}

// PointsAPI is the subset of the Qdrant points client we use.
// qdrant.PointsClient satisfies this.
type PointsAPI interface {
	Upsert(ctx context.Context, in *qdrant.UpsertPoints, opts ...grpc.CallOption) (*qdrant.PointsOperationResponse, error)
	Search(ctx context.Context, in *qdrant.SearchPoints, opts ...grpc.CallOption) (*qdrant.SearchResponse, error)
	Delete(ctx context.Context, in *qdrant.DeletePoints, opts ...grpc.CallOption) (*qdrant.PointsOperationResponse, error)
	CreateFieldIndex(ctx context.Context, in *qdrant.CreateFieldIndexCollection, opts ...grpc.CallOption) (*qdrant.PointsOperationResponse, error)
}

// Dial opens a gRPC connection to a Qdrant server at addr (host:port).
// The caller owns the connection and should close it on shutdown.
func Dial(addr string) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("%w: connect %s: %v", ErrVectorStore, addr, err)
	}
	return conn, nil
}
