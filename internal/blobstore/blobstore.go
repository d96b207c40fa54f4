// Package blobstore stores binary objects such as profile images and hands
// back a URL they can be downloaded from.
package blobstore

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned when no blob exists at a path
var ErrNotFound = errors.New("blob not found")

// Store is the blob store contract
type Store interface {
	Put(ctx context.Context, path string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, path string) ([]byte, string, error)
}

// publicURL joins the public base URL and a blob path
func publicURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
