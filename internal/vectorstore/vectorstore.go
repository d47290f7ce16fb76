// Package vectorstore defines the boundaries to the vector database
// and the document-ingestion tool consumed by the refresh pipeline.
package vectorstore

import (
	"context"
	"errors"
)

// Common errors
var (
	ErrNoCommand    = errors.New("no ingest command configured")
	ErrNoSourcePath = errors.New("ingest request has no source path")
)

// ConnectionParams identifies one Milvus deployment.
type ConnectionParams struct {
	URI    string
	Token  string
	DBName string
}

// CollectionManager is the subset of vector-database operations the
// refresh pipeline needs. Query and insert semantics stay behind the
// ingestion boundary.
type CollectionManager interface {
	// HasCollection reports whether the named collection exists.
	HasCollection(ctx context.Context, name string) (bool, error)

	// DropCollection removes the named collection.
	DropCollection(ctx context.Context, name string) error

	// Close releases the underlying connection.
	Close() error
}

// ConnectFunc opens a CollectionManager for the given deployment.
type ConnectFunc func(ctx context.Context, params ConnectionParams) (CollectionManager, error)

// IngestRequest describes one opaque ingestion run: embed the
// documents under SourcePath into Collection, writing the intermediate
// artifact file along the way.
type IngestRequest struct {
	SourcePath   string
	Collection   string
	ArtifactFile string
	Connection   ConnectionParams
}

// Ingestor loads one documentation subset into its target collection.
// The pipeline treats the call as a black box returning success or
// failure.
type Ingestor interface {
	Ingest(ctx context.Context, req IngestRequest) error
}
