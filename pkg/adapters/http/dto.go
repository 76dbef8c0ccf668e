package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/caseflow/playbook/pkg/domain"
)

// StartSessionRequest is the body for POST /sessions.
type StartSessionRequest struct {
	CaseID     string `json:"caseId"`
	PlaybookID string `json:"playbookId"`
}

// SubmitDecisionRequest is the body for POST /sessions/{id}/decisions.
// ExpectedVersion carries the version the client last observed; the engine
// rejects the write when the stored session has moved past it.
type SubmitDecisionRequest struct {
	SelectedOption  string  `json:"selectedOption"`
	Rationale       string  `json:"rationale"`
	Confidence      float64 `json:"confidence"`
	ExpectedVersion int64   `json:"expectedVersion,omitempty"`
}

// PlaybookListResponse is the body for GET /playbooks.
type PlaybookListResponse struct {
	Playbooks []string `json:"playbooks"`
}

// ErrorBody is the error envelope carried by every non-2xx JSON response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps ErrorBody under the "error" key.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// mapError resolves a domain error to an HTTP status and a stable error
// code. Typed errors are matched before sentinels so wrapped context is
// preserved in the message.
func mapError(err error) (int, string) {
	var (
		validationErr *domain.ValidationError
		notFoundErr   *domain.SessionNotFoundError
		duplicateErr  *domain.DuplicateActiveSessionError
		staleErr      *domain.StaleSessionError
		optionErr     *domain.InvalidOptionError
		notActiveErr  *domain.SessionNotActiveError
		integrityErr  *domain.GraphIntegrityError
	)
	switch {
	case errors.As(err, &validationErr):
		return http.StatusUnprocessableEntity, "validation_error"
	case errors.As(err, &duplicateErr) || errors.Is(err, domain.ErrDuplicateActiveSession):
		return http.StatusConflict, "duplicate_active_session"
	case errors.As(err, &staleErr) || errors.Is(err, domain.ErrVersionMismatch):
		return http.StatusConflict, "stale_version"
	case errors.As(err, &optionErr):
		return http.StatusConflict, "invalid_option"
	case errors.As(err, &notActiveErr):
		return http.StatusConflict, "session_not_active"
	case errors.As(err, &notFoundErr) || errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, domain.ErrPlaybookNotFound):
		return http.StatusNotFound, "playbook_not_found"
	case errors.As(err, &integrityErr):
		return http.StatusInternalServerError, "graph_integrity"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Response encode failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status, code := mapError(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", "code", code, "error", err)
	} else {
		logger.Warn("Request rejected", "code", code, "error", err)
	}
	writeJSON(w, logger, status, ErrorResponse{Error: ErrorBody{
		Code:    code,
		Message: err.Error(),
	}})
}

func writeBadRequest(w http.ResponseWriter, logger *slog.Logger, message string) {
	writeJSON(w, logger, http.StatusBadRequest, ErrorResponse{Error: ErrorBody{
		Code:    "bad_request",
		Message: message,
	}})
}
