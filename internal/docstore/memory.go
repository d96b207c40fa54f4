package docstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// MemoryStore is an in-process Store
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]map[string]memoryDoc
	now  func() time.Time
}

type memoryDoc struct {
	fields    map[string]json.RawMessage
	updatedAt time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]map[string]memoryDoc),
		now:  time.Now,
	}
}

// Get returns a copy of the document or ErrNotFound
func (s *MemoryStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateKey(collection, id); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return doc.document(id)
}

// Set merges or overwrites the document
func (s *MemoryStore) Set(ctx context.Context, collection, id string, data any, opts ...SetOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateKey(collection, id); err != nil {
		return err
	}
	fields, err := encodeObject(data)
	if err != nil {
		return err
	}
	o := applyOptions(opts)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, field := range o.serverTimestamps {
		stamp, _ := json.Marshal(now.UTC())
		fields[field] = stamp
	}

	coll, ok := s.docs[collection]
	if !ok {
		coll = make(map[string]memoryDoc)
		s.docs[collection] = coll
	}

	existing, ok := coll[id]
	if ok && !o.overwrite {
		for k, v := range fields {
			existing.fields[k] = v
		}
		existing.updatedAt = now
		coll[id] = existing
		return nil
	}

	coll[id] = memoryDoc{fields: fields, updatedAt: now}
	return nil
}

// Delete removes the document; deleting a missing document is not an error
func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateKey(collection, id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.docs[collection], id)
	return nil
}

// List returns every document in the collection ordered by id
func (s *MemoryStore) List(ctx context.Context, collection string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	coll := s.docs[collection]
	ids := make([]string, 0, len(coll))
	for id := range coll {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	docs := make([]Document, 0, len(ids))
	for _, id := range ids {
		doc, err := coll[id].document(id)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, nil
}

// Add stores data under a new random id
func (s *MemoryStore) Add(ctx context.Context, collection string, data any) (string, error) {
	id := uuid.NewString()
	if err := s.Set(ctx, collection, id, data, Overwrite()); err != nil {
		return "", err
	}
	return id, nil
}

func (d memoryDoc) document(id string) (*Document, error) {
	raw, err := json.Marshal(d.fields)
	if err != nil {
		return nil, err
	}
	return &Document{ID: id, Data: raw, UpdatedAt: d.updatedAt}, nil
}
