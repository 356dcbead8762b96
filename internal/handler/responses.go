package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/osse101/BrandishDuels_Go/internal/domain"
	"github.com/osse101/BrandishDuels_Go/internal/logger"
)

// SuccessResponse represents a simple successful operation message
type SuccessResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// DataResponse represents a response with data payload
type DataResponse struct {
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data"`
}

// respondJSON sends a JSON response with the given status code and payload
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	buf := getBuffer()
	defer putBuffer(buf)

	// Encode first so an encoding failure can still produce a 500
	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		slog.Error(LogMsgEncodeFailed, "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"` + ErrMsgGenericServerError + `"}` + "\n"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Error(LogMsgWriteFailed, "error", err)
	}
}

// respondError sends a JSON error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// respondServiceError logs a service failure and writes the mapped status and message
func respondServiceError(w http.ResponseWriter, r *http.Request, action string, err error) {
	status, msg := mapServiceErrorToUserMessage(err)
	log := logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error(LogMsgServiceError, "action", action, "error", err)
	} else {
		log.Debug(LogMsgServiceError, "action", action, "error", err, "status", status)
	}
	respondError(w, status, msg)
}

// mapServiceErrorToUserMessage converts domain errors to HTTP status codes and user-facing messages
func mapServiceErrorToUserMessage(err error) (int, string) {
	if err == nil {
		return http.StatusInternalServerError, ErrMsgUnknownError
	}

	switch {
	case errors.Is(err, domain.ErrAlreadyEngaged):
		return http.StatusConflict, ErrMsgAlreadyEngagedError
	case errors.Is(err, domain.ErrSelfChallenge):
		return http.StatusBadRequest, ErrMsgSelfChallengeError
	case errors.Is(err, domain.ErrNotParticipant):
		return http.StatusForbidden, ErrMsgNotParticipantError
	case errors.Is(err, domain.ErrBuildNotFound):
		// checked before ErrInvalidBuild: accept wraps both
		return http.StatusUnprocessableEntity, ErrMsgBuildNotFoundError
	case errors.Is(err, domain.ErrInvalidBuild):
		return http.StatusUnprocessableEntity, ErrMsgInvalidBuildError
	case errors.Is(err, domain.ErrChallengeNotFound):
		return http.StatusNotFound, ErrMsgChallengeNotFoundError
	case errors.Is(err, domain.ErrChallengeExpired):
		return http.StatusGone, ErrMsgChallengeExpiredError
	case errors.Is(err, domain.ErrMatchNotFound):
		return http.StatusNotFound, ErrMsgMatchNotFoundError
	case errors.Is(err, domain.ErrIllegalAction):
		return http.StatusConflict, illegalActionMessage(err)
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, ErrMsgInvalidInputError
	case errors.Is(err, domain.ErrDatabase):
		return http.StatusInternalServerError, ErrMsgGenericServerError
	}

	return http.StatusInternalServerError, ErrMsgGenericServerError
}

// illegalActionMessage surfaces the specific rule the action broke
func illegalActionMessage(err error) string {
	for _, reason := range []string{
		domain.ErrMsgNotYourTurn,
		domain.ErrMsgMatchFinished,
		domain.ErrMsgDuplicateID,
		domain.ErrMsgSkillCooldown,
		domain.ErrMsgSkillLocked,
		domain.ErrMsgSkillNotActive,
	} {
		if strings.Contains(err.Error(), reason) {
			return ErrMsgIllegalActionError + ": " + reason
		}
	}
	return ErrMsgIllegalActionError
}
