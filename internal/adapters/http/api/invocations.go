// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/sluice/internal/adapters/blob"
	"github.com/okian/sluice/internal/adapters/sink"
	"github.com/okian/sluice/internal/domain/decode"
	"github.com/okian/sluice/internal/ingest"
)

// InvocationsHandler handles ingestion trigger requests.
type InvocationsHandler struct {
	deps Dependencies
}

// NewInvocationsHandler creates a new invocations handler.
func NewInvocationsHandler(deps Dependencies) *InvocationsHandler {
	return &InvocationsHandler{deps: deps}
}

// invocationRequest references exactly one newly created blob.
type invocationRequest struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

func (r invocationRequest) validate() error {
	switch {
	case strings.TrimSpace(r.Bucket) == "":
		return errors.New("missing bucket")
	case strings.TrimSpace(r.Key) == "":
		return errors.New("missing key")
	}
	return nil
}

// invocationResponse wraps the invocation result with a summary message.
type invocationResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	ingest.Result
}

// HandlePostInvocation handles POST /invocations requests.
//
// Any completed invocation returns 200, including ones with invalid or
// failed records; callers inspect counts and reasons to detect partial
// failure. Only whole-invocation failures (blob unreadable, malformed blob,
// sink unreachable) return 500.
func (h *InvocationsHandler) HandlePostInvocation(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_invocation"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req invocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	result, err := h.deps.Process(r.Context(), req.Bucket, req.Key)
	if err != nil {
		writeError(w, http.StatusInternalServerError, errorCode(err), err)
		return
	}
	writeJSON(w, http.StatusOK, invocationResponse{
		Status:  "completed",
		Message: result.Summary(),
		Result:  result,
	})
}

// errorCode maps whole-invocation failures onto stable response codes.
func errorCode(err error) string {
	switch {
	case errors.Is(err, decode.ErrMalformedInput):
		return "malformed_input"
	case errors.Is(err, blob.ErrNotFound):
		return "blob_not_found"
	case errors.Is(err, blob.ErrAccessDenied):
		return "blob_access_denied"
	case errors.Is(err, sink.ErrUnavailable):
		return "sink_unavailable"
	default:
		return "internal"
	}
}
