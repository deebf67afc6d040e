package storage

import (
	"context"
	"fmt"
	"io"

	apperrors "github.com/matchdayhq/media-service/pkg/errors"

	"github.com/matchdayhq/media-service/internal/domain"
)

// ObjectStore is the contract every binary-object backend implements. The
// coordinator treats implementations as interchangeable and never branches on
// backend identity outside the Router.
type ObjectStore interface {
	// Put stores an object and returns its key and public URL.
	Put(ctx context.Context, input *PutInput) (*PutResult, error)

	// Delete removes an object by its key.
	Delete(ctx context.Context, key string) error

	// URL returns the public URL for the given key.
	URL(ctx context.Context, key string) (string, error)

	// Provider identifies which backend this store is.
	Provider() domain.StorageProvider
}

// PutInput holds the parameters for storing an object.
type PutInput struct {
	Key         string
	ContentType string
	Size        int64
	Data        io.Reader
}

// PutResult holds the result of a successful put.
type PutResult struct {
	Key string
	URL string
}

// Router resolves the object store for a media type (write side) or a
// storage provider (delete side).
type Router struct {
	stores map[domain.StorageProvider]ObjectStore
}

// NewRouter builds a router over the given stores, keyed by their provider.
func NewRouter(stores ...ObjectStore) *Router {
	m := make(map[domain.StorageProvider]ObjectStore, len(stores))
	for _, s := range stores {
		m[s.Provider()] = s
	}
	return &Router{stores: m}
}

// ForMediaType returns the store selected by the static routing policy.
func (r *Router) ForMediaType(mt domain.MediaType) (ObjectStore, error) {
	return r.ByProvider(domain.ProviderForMediaType(mt))
}

// ByProvider returns the store registered for the given provider.
func (r *Router) ByProvider(p domain.StorageProvider) (ObjectStore, error) {
	s, ok := r.stores[p]
	if !ok {
		return nil, apperrors.Internal(fmt.Errorf("no object store registered for provider %s", p))
	}
	return s, nil
}
