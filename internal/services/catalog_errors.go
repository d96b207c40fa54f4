package services

import (
	"errors"
	"fmt"
)

// ErrNoData is returned for blank input or an empty response
var ErrNoData = errors.New("no data")

// ErrorKind classifies catalog failures
type ErrorKind int

const (
	KindBadRequest ErrorKind = iota + 1
	KindTransport
	KindServer
	KindNoData
	KindDecode
)

// String returns the metric label for the kind
func (k ErrorKind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindTransport:
		return "transport"
	case KindServer:
		return "server"
	case KindNoData:
		return "no_data"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// CatalogError is returned by every CatalogService operation
type CatalogError struct {
	Op         string
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *CatalogError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("catalog %s: %s error (status %d): %v", e.Op, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("catalog %s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *CatalogError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the request may succeed if repeated
func (e *CatalogError) Retryable() bool {
	switch e.Kind {
	case KindTransport, KindServer, KindDecode:
		return true
	default:
		return false
	}
}
