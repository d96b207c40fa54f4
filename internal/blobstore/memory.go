package blobstore

import (
	"context"
	"fmt"
	"sync"
)

type memoryBlob struct {
	data        []byte
	contentType string
}

// MemoryStore is an in-process Store
type MemoryStore struct {
	mu      sync.RWMutex
	baseURL string
	blobs   map[string]memoryBlob
}

// NewMemoryStore creates an empty store serving URLs under baseURL
func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{
		baseURL: baseURL,
		blobs:   make(map[string]memoryBlob),
	}
}

// Put stores a copy of data at path
func (s *MemoryStore) Put(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if path == "" {
		return "", fmt.Errorf("blob path is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.blobs[path] = memoryBlob{data: append([]byte(nil), data...), contentType: contentType}
	return publicURL(s.baseURL, path), nil
}

// Get returns the blob and its content type
func (s *MemoryStore) Get(ctx context.Context, path string) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	blob, ok := s.blobs[path]
	if !ok {
		return nil, "", ErrNotFound
	}
	return append([]byte(nil), blob.data...), blob.contentType, nil
}
