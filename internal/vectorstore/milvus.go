package vectorstore

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/zilliztech/milvus-docsync/internal/retry"
)

// MilvusStore implements CollectionManager over the Milvus Go SDK.
type MilvusStore struct {
	client client.Client
}

// Connect dials the Milvus deployment described by params.
func Connect(ctx context.Context, params ConnectionParams) (CollectionManager, error) {
	c, err := client.NewClient(ctx, client.Config{
		Address: params.URI,
		APIKey:  params.Token,
		DBName:  params.DBName,
	})
	if err != nil {
		return nil, retry.Tag(kindFromError(err), fmt.Errorf("connect milvus: %w", err))
	}
	return &MilvusStore{client: c}, nil
}

// HasCollection reports whether the named collection exists.
func (s *MilvusStore) HasCollection(ctx context.Context, name string) (bool, error) {
	ok, err := s.client.HasCollection(ctx, name)
	if err != nil {
		return false, retry.Tag(kindFromError(err), fmt.Errorf("has collection %s: %w", name, err))
	}
	return ok, nil
}

// DropCollection removes the named collection.
func (s *MilvusStore) DropCollection(ctx context.Context, name string) error {
	if err := s.client.DropCollection(ctx, name); err != nil {
		return retry.Tag(kindFromError(err), fmt.Errorf("drop collection %s: %w", name, err))
	}
	return nil
}

// Close releases the underlying gRPC connection.
func (s *MilvusStore) Close() error {
	return s.client.Close()
}

// kindFromError maps a Milvus gRPC failure onto a retry kind so the
// backoff primitive can tell transient backend hiccups from permanent
// credential or argument problems.
func kindFromError(err error) retry.Kind {
	switch status.Code(err) {
	case codes.Unavailable, codes.Aborted:
		return retry.KindUnavailable
	case codes.DeadlineExceeded:
		return retry.KindTimeout
	case codes.ResourceExhausted:
		return retry.KindRateLimited
	case codes.InvalidArgument:
		return retry.KindInvalidArgument
	case codes.Unauthenticated, codes.PermissionDenied:
		return retry.KindUnauthenticated
	default:
		return retry.KindUnknown
	}
}
