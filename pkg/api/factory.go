// Package api provides factory implementations for dependency injection
package api

import (
	"context"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/asakusafw/asakusafw-sub019/pkg/schema"
	"github.com/asakusafw/asakusafw-sub019/pkg/storage"
)

// DefaultStoreFactory opens pebble-backed dataset stores
type DefaultStoreFactory struct{}

// NewStoreFactory creates a new store factory
func NewStoreFactory() StoreFactory {
	return &DefaultStoreFactory{}
}

// OpenStore opens the dataset store in the "datasets" directory under dataDir
func (f *DefaultStoreFactory) OpenStore(dataDir string, logger *zap.Logger) (DatasetStore, error) {
	return storage.Open(storage.Config{
		Path:   filepath.Join(dataDir, "datasets"),
		Logger: logger,
	})
}

// DefaultServerFactory is the default implementation of ServerFactory
type DefaultServerFactory struct{}

// NewServerFactory creates a new server factory
func NewServerFactory() ServerFactory {
	return &DefaultServerFactory{}
}

// CreateServerStarter creates a server starter
func (f *DefaultServerFactory) CreateServerStarter() ServerStarter {
	return &DefaultServerStarter{}
}

// DefaultServerStarter is the default implementation of ServerStarter
type DefaultServerStarter struct{}

// StartServer starts the API server with the given configuration
func (s *DefaultServerStarter) StartServer(
	ctx context.Context,
	store DatasetStore,
	registry *schema.Registry,
	config ServerConfig,
	logger *zap.Logger,
) error {
	return StartServer(ctx, store, registry, config, logger)
}
