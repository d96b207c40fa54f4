// Package docstore is the remote document store used for per-user data.
//
// Documents are JSON objects addressed by a collection path and an id, e.g.
// collection "users/42/movies" and id "550". Writes merge top-level keys into
// the existing document unless Overwrite is given.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// ErrNotFound is returned by Get when the document does not exist
var ErrNotFound = errors.New("document not found")

// Store is the document store contract
type Store interface {
	Get(ctx context.Context, collection, id string) (*Document, error)
	Set(ctx context.Context, collection, id string, data any, opts ...SetOption) error
	Delete(ctx context.Context, collection, id string) error
	List(ctx context.Context, collection string) ([]Document, error)
	Add(ctx context.Context, collection string, data any) (string, error)
}

// Document is a stored JSON object
type Document struct {
	ID        string
	Data      []byte
	UpdatedAt time.Time
}

// Decode unmarshals the document body into v
func (d *Document) Decode(v any) error {
	if err := json.Unmarshal(d.Data, v); err != nil {
		return fmt.Errorf("failed to decode document %s: %w", d.ID, err)
	}
	return nil
}

type setOptions struct {
	overwrite        bool
	serverTimestamps []string
}

// SetOption configures a Set call
type SetOption func(*setOptions)

// Overwrite replaces the whole document instead of merging
func Overwrite() SetOption {
	return func(o *setOptions) {
		o.overwrite = true
	}
}

// WithServerTimestamp sets field to the store's current time on write
func WithServerTimestamp(field string) SetOption {
	return func(o *setOptions) {
		o.serverTimestamps = append(o.serverTimestamps, field)
	}
}

func applyOptions(opts []SetOption) setOptions {
	var o setOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Path joins path segments into a collection path
func Path(segments ...string) string {
	return strings.Join(segments, "/")
}

// encodeObject marshals data and checks that it is a JSON object
func encodeObject(data any) (map[string]json.RawMessage, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("document must be a JSON object: %w", err)
	}
	if fields == nil {
		fields = map[string]json.RawMessage{}
	}
	return fields, nil
}

func validateKey(collection, id string) error {
	if collection == "" || id == "" {
		return fmt.Errorf("collection and id are required")
	}
	if strings.Contains(id, "/") {
		return fmt.Errorf("invalid document id %q", id)
	}
	return nil
}
