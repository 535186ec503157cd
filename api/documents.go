package api

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/lyceum-ai/lyceum/internal/index"
	"github.com/lyceum-ai/lyceum/internal/ingest"
	"github.com/lyceum-ai/lyceum/internal/loader"
	"github.com/lyceum-ai/lyceum/internal/log"
)

type documentHandler struct {
	ingestor  Ingestor
	deleter   Deleter
	maxUpload int64
	logger    log.Logger
}

// uploadResponse is the POST /api/v1/admin/documents response body.
type uploadResponse struct {
	DocumentID   string `json:"document_id"`
	Filename     string `json:"filename"`
	AccessTarget string `json:"access_target"`
}

// deleteResponse is the DELETE /api/v1/admin/documents/{id} response body.
type deleteResponse struct {
	DocumentID    string `json:"document_id"`
	ChunksDeleted int64  `json:"chunks_deleted"`
}

// upload handles POST /api/v1/admin/documents.
//
// Expects a multipart form with a "file" part and an optional "access_target"
// field. A missing access target defaults to admin_only so a forgotten field
// can never widen visibility.
func (h *documentHandler) upload(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_upload", "expected multipart form with a file field")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "missing_file", "file field is required")
		return
	}
	defer func() {
		_ = file.Close()
	}()

	content, err := io.ReadAll(file)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "unreadable_file", "failed to read uploaded file")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(header.Filename))
	}

	accessTarget := r.FormValue("access_target")
	if accessTarget == "" {
		accessTarget = "admin_only"
	}

	docID, err := h.ingestor.Ingest(r.Context(), content, contentType, header.Filename, accessTarget)
	switch {
	case errors.Is(err, ingest.ErrInvalidAccessTarget):
		WriteError(w, http.StatusBadRequest, "invalid_access_target", err.Error())
		return
	case errors.Is(err, ingest.ErrEmptyFile):
		WriteError(w, http.StatusBadRequest, "empty_file", "uploaded file is empty")
		return
	case errors.Is(err, loader.ErrUnsupportedType):
		WriteError(w, http.StatusUnsupportedMediaType, "unsupported_type", err.Error())
		return
	case errors.Is(err, ingest.ErrNoContent):
		WriteError(w, http.StatusUnprocessableEntity, "no_content", "no extractable text in uploaded file")
		return
	case errors.Is(err, ingest.ErrUnavailable), errors.Is(err, index.ErrUnavailable):
		WriteError(w, http.StatusServiceUnavailable, "unavailable", "document indexing is not available")
		return
	case err != nil:
		h.logger.Error("ingesting document", "error", err, "filename", header.Filename)
		WriteError(w, http.StatusInternalServerError, "internal_error", "failed to process document")
		return
	}

	WriteJSON(w, http.StatusCreated, uploadResponse{
		DocumentID:   docID,
		Filename:     header.Filename,
		AccessTarget: accessTarget,
	})
}

// remove handles DELETE /api/v1/admin/documents/{id}.
func (h *documentHandler) remove(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	docID := r.PathValue("id")
	if docID == "" {
		WriteError(w, http.StatusBadRequest, "missing_id", "document id is required")
		return
	}

	deleted, err := h.deleter.DeleteDocument(r.Context(), docID)
	switch {
	case errors.Is(err, index.ErrUnavailable):
		WriteError(w, http.StatusServiceUnavailable, "unavailable", "document index is not available")
		return
	case err != nil:
		h.logger.Error("deleting document", "error", err, "document_id", docID)
		WriteError(w, http.StatusInternalServerError, "internal_error", "failed to delete document")
		return
	}

	if deleted == 0 {
		WriteError(w, http.StatusNotFound, "not_found", "document not found")
		return
	}

	WriteJSON(w, http.StatusOK, deleteResponse{
		DocumentID:    docID,
		ChunksDeleted: deleted,
	})
}
