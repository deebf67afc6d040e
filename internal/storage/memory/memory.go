// Package memory provides an in-process object store holding real bytes.
// It backs tests and local development where no S3-compatible service runs.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/matchdayhq/media-service/internal/domain"
	"github.com/matchdayhq/media-service/internal/storage"
)

type object struct {
	contentType string
	data        []byte
	url         string
}

// Store implements storage.ObjectStore backed by an in-memory map. The
// provider identity is configurable so one package can stand in for either
// backend.
type Store struct {
	mu       sync.RWMutex
	objects  map[string]*object
	baseURL  string
	provider domain.StorageProvider
}

// New creates an in-memory store reporting the given provider identity.
func New(provider domain.StorageProvider, baseURL string) *Store {
	return &Store{
		objects:  make(map[string]*object),
		baseURL:  baseURL,
		provider: provider,
	}
}

// Put reads and retains the full object bytes.
func (s *Store) Put(_ context.Context, input *storage.PutInput) (*storage.PutResult, error) {
	data, err := io.ReadAll(input.Data)
	if err != nil {
		return nil, fmt.Errorf("read object data: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	url := fmt.Sprintf("%s/%s", s.baseURL, input.Key)
	s.objects[input.Key] = &object{
		contentType: input.ContentType,
		data:        data,
		url:         url,
	}

	return &storage.PutResult{Key: input.Key, URL: url}, nil
}

// Delete removes the object, failing if the key is unknown.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.objects[key]; !exists {
		return fmt.Errorf("object not found: %s", key)
	}

	delete(s.objects, key)
	return nil
}

// URL returns the URL for the given key.
func (s *Store) URL(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, exists := s.objects[key]
	if !exists {
		return "", fmt.Errorf("object not found: %s", key)
	}
	return obj.url, nil
}

// Provider reports the configured backend identity.
func (s *Store) Provider() domain.StorageProvider {
	return s.provider
}

// Get returns a reader over the stored bytes. Test helper.
func (s *Store) Get(key string) (io.Reader, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, exists := s.objects[key]
	if !exists {
		return nil, false
	}
	return bytes.NewReader(obj.data), true
}

// Len reports the number of stored objects. Test helper.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
