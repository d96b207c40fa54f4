package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/liamwears/movielist/internal/blobstore"
)

// BlobHandler serves stored blobs at their public URLs
type BlobHandler struct {
	store  blobstore.Store
	logger zerolog.Logger
}

// NewBlobHandler creates a new blob handler
func NewBlobHandler(store blobstore.Store, logger zerolog.Logger) *BlobHandler {
	return &BlobHandler{
		store:  store,
		logger: logger,
	}
}

// Get handles GET /blobs/{path...}
func (h *BlobHandler) Get(w http.ResponseWriter, r *http.Request) {
	path := r.PathValue("path")
	if path == "" {
		http.Error(w, `{"error":"Blob path is required"}`, http.StatusBadRequest)
		return
	}

	data, contentType, err := h.store.Get(r.Context(), path)
	if errors.Is(err, blobstore.ErrNotFound) {
		http.Error(w, `{"error":"Blob not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("path", path).Msg("failed to read blob")
		http.Error(w, `{"error":"Failed to read blob"}`, http.StatusInternalServerError)
		return
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(data)
}
