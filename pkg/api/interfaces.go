// Package api provides interfaces for dependency injection
package api

import (
	"context"
	"io"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"

	"github.com/asakusafw/asakusafw-sub019/pkg/schema"
	"github.com/asakusafw/asakusafw-sub019/pkg/storage"
)

// DatasetStore defines the dataset operations the API serves.
// *storage.DatasetStore implements it.
type DatasetStore interface {
	Create(name string, s *schema.Schema) (*storage.Dataset, error)
	Get(id string) (*storage.Dataset, error)
	List() ([]*storage.Dataset, error)
	Import(id string, r io.Reader, charset encoding.Encoding) (int64, error)
	Export(id string, w io.Writer, charset encoding.Encoding) (int64, error)
	Delete(id string) error
	Close() error
}

// StoreFactory opens dataset stores
type StoreFactory interface {
	// OpenStore opens the dataset store under dataDir
	OpenStore(dataDir string, logger *zap.Logger) (DatasetStore, error)
}

// ServerStarter defines the interface for starting the API server
type ServerStarter interface {
	// StartServer serves until ctx is cancelled or the listener fails
	StartServer(ctx context.Context, store DatasetStore, registry *schema.Registry, config ServerConfig, logger *zap.Logger) error
}

// ServerFactory creates server instances
type ServerFactory interface {
	// CreateServerStarter creates a server starter
	CreateServerStarter() ServerStarter
}
