package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hszk-dev/vidshelf/internal/usecase"
)

type CommentRequest struct {
	Author      string `json:"author"`
	Text        string `json:"text"`
	DisplayName string `json:"display_name,omitempty"`
}

// CommentHandler handles comment threads.
type CommentHandler struct {
	store usecase.RecordStore
}

// NewCommentHandler creates a new CommentHandler.
func NewCommentHandler(store usecase.RecordStore) *CommentHandler {
	return &CommentHandler{store: store}
}

// Routes registers the comment endpoints on a router already scoped to one
// video (see VideoHandler.Routes).
func (h *CommentHandler) Routes(r chi.Router) {
	r.Get("/comments", h.List)
	r.Post("/comments", h.Create)
	r.Post("/comments/{cid}/replies", h.Reply)
}

// List handles GET /v1/users/{user}/videos/{id}/comments
func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := userParam(w, r)
	if !ok {
		return
	}

	thread, err := h.store.GetComments(r.Context(), user, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	JSON(w, http.StatusOK, thread)
}

// Create handles POST /v1/users/{user}/videos/{id}/comments
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := userParam(w, r)
	if !ok {
		return
	}

	var req CommentRequest
	if err := decodeJSON(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	comment, err := h.store.AddComment(r.Context(), user, chi.URLParam(r, "id"), usecase.CommentInput(req))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	JSON(w, http.StatusCreated, comment)
}

// Reply handles POST /v1/users/{user}/videos/{id}/comments/{cid}/replies
func (h *CommentHandler) Reply(w http.ResponseWriter, r *http.Request) {
	user, ok := userParam(w, r)
	if !ok {
		return
	}

	var req CommentRequest
	if err := decodeJSON(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	reply, err := h.store.AddReply(r.Context(), user, chi.URLParam(r, "id"), chi.URLParam(r, "cid"), usecase.CommentInput(req))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	JSON(w, http.StatusCreated, reply)
}
