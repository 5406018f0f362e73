package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hszk-dev/vidshelf/internal/api/middleware"
	"github.com/hszk-dev/vidshelf/internal/domain/model"
	"github.com/hszk-dev/vidshelf/internal/domain/repository"
	"github.com/hszk-dev/vidshelf/internal/domain/schema"
	"github.com/hszk-dev/vidshelf/internal/usecase"
)

func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			http.Error(w, "failed to encode response", http.StatusInternalServerError)
		}
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func Error(w http.ResponseWriter, status int, err string, message string) {
	JSON(w, status, ErrorResponse{
		Error:   err,
		Message: message,
	})
}

// decodeJSON reads a JSON request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

var errorMappings = []errorMapping{
	{repository.ErrVideoNotFound, http.StatusNotFound, "video_not_found", "Video not found"},
	{repository.ErrCommentNotFound, http.StatusNotFound, "comment_not_found", "Comment not found"},
	{repository.ErrProfileNotFound, http.StatusNotFound, "profile_not_found", "Profile not found"},
	{repository.ErrQualityNotFound, http.StatusNotFound, "quality_not_found", "Requested quality is not available"},
	{repository.ErrObjectNotFound, http.StatusNotFound, "object_not_found", "Object not found"},
	{repository.ErrJobNotFound, http.StatusNotFound, "job_not_found", "No quality job recorded for this video"},
	{model.ErrEmptyUser, http.StatusBadRequest, "invalid_user", "User handle cannot be empty"},
	{model.ErrTitleTooLong, http.StatusBadRequest, "invalid_title", "Title exceeds maximum length"},
	{model.ErrEmptyAuthor, http.StatusBadRequest, "invalid_author", "Author is required"},
	{model.ErrEmptyComment, http.StatusBadRequest, "invalid_text", "Text is required"},
	{model.ErrCommentTooLong, http.StatusBadRequest, "invalid_text", "Text exceeds maximum length"},
	{usecase.ErrInvalidReaction, http.StatusBadRequest, "invalid_reaction", "Reaction must be like or dislike"},
	{schema.ErrInvalidDocument, http.StatusConflict, "unreadable_document", "Stored document is unreadable and was left unchanged"},
}

// handleServiceError maps usecase errors onto HTTP responses. Unknown errors are
// logged and reported as 500 without leaking details.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			Error(w, m.status, m.code, m.message)
			return
		}
	}

	middleware.LoggerFrom(r.Context()).Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
	Error(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
}
