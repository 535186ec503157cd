package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lyceum-ai/lyceum/internal/index"
	"github.com/lyceum-ai/lyceum/internal/log"
	"github.com/lyceum-ai/lyceum/internal/rag"
)

// maxQueryBytes caps the query request body.
const maxQueryBytes = 64 << 10

type queryHandler struct {
	answerer Answerer
	logger   log.Logger
}

// queryRequest is the POST /api/v1/query request body.
type queryRequest struct {
	Question string `json:"question"`
}

// answer handles POST /api/v1/query.
// Any caller may query; access filtering happens inside the pipeline based
// on the resolved identity.
func (h *queryHandler) answer(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxQueryBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_json", "request body must be JSON with a question field")
		return
	}

	id := identityFromContext(r.Context())

	ans, err := h.answerer.AnswerQuery(r.Context(), req.Question, id)
	switch {
	case errors.Is(err, rag.ErrEmptyQuery):
		WriteError(w, http.StatusBadRequest, "empty_question", "question must not be empty")
		return
	case errors.Is(err, rag.ErrUnavailable), errors.Is(err, index.ErrUnavailable):
		WriteError(w, http.StatusServiceUnavailable, "unavailable", "question answering is not available")
		return
	case err != nil:
		h.logger.Error("answering query", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "failed to answer question")
		return
	}

	// Sources is always a JSON array, never null.
	if ans.Sources == nil {
		ans.Sources = []rag.Source{}
	}
	WriteJSON(w, http.StatusOK, ans)
}
