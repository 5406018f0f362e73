package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hszk-dev/vidshelf/internal/api/middleware"
	"github.com/hszk-dev/vidshelf/internal/domain/model"
	"github.com/hszk-dev/vidshelf/internal/usecase"
)

// Request/Response types

type UploadVideoResponse struct {
	VideoID      string `json:"video_id"`
	QualityJobID string `json:"quality_job_id,omitempty"`
}

type VideoListResponse struct {
	Videos []*model.VideoRecord `json:"videos"`
	Total  int                  `json:"total"`
}

type URLResponse struct {
	URL string `json:"url"`
}

type ReactionRequest struct {
	Reaction string `json:"reaction"`
}

type CountersResponse struct {
	VideoID  string `json:"video_id"`
	Views    int64  `json:"views"`
	Likes    int64  `json:"likes"`
	Dislikes int64  `json:"dislikes"`
}

type JobResponse struct {
	ID        string `json:"id"`
	VideoID   string `json:"video_id"`
	Status    string `json:"status"`
	Attempts  int    `json:"attempts"`
	LastError string `json:"last_error,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// URLSigner issues time-limited read URLs.
type URLSigner interface {
	Sign(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// VideoHandlerConfig holds configuration for VideoHandler.
type VideoHandlerConfig struct {
	UploadDir      string
	MaxUploadBytes int64
	MediaURLTTL    time.Duration
	// EnqueueQualities publishes a quality job after every successful upload.
	EnqueueQualities bool
}

// VideoHandler handles video-related HTTP requests.
type VideoHandler struct {
	store      usecase.RecordStore
	registry   usecase.QualityRegistry
	dispatcher usecase.QualityDispatcher
	signer     URLSigner
	cfg        VideoHandlerConfig
}

// NewVideoHandler creates a new VideoHandler. dispatcher may be nil.
func NewVideoHandler(
	store usecase.RecordStore,
	registry usecase.QualityRegistry,
	dispatcher usecase.QualityDispatcher,
	signer URLSigner,
	cfg VideoHandlerConfig,
) *VideoHandler {
	if cfg.MediaURLTTL <= 0 {
		cfg.MediaURLTTL = usecase.DefaultMediaURLTTL
	}
	return &VideoHandler{
		store:      store,
		registry:   registry,
		dispatcher: dispatcher,
		signer:     signer,
		cfg:        cfg,
	}
}

// Routes registers the video endpoints on r. perVideo registrars are mounted
// under /users/{user}/videos/{id}.
func (h *VideoHandler) Routes(r chi.Router, perVideo ...func(chi.Router)) {
	r.Route("/users/{user}/videos", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Upload)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Delete("/", h.Delete)
			r.Post("/thumbnail", h.AttachThumbnail)
			r.Get("/url", h.PlaybackURL)
			r.Get("/thumbnail-url", h.ThumbnailURL)
			r.Post("/views", h.RecordView)
			r.Post("/reactions", h.React)
			r.Get("/qualities/job", h.QualityJob)
			for _, register := range perVideo {
				register(r)
			}
		})
	})
}

// List handles GET /v1/users/{user}/videos
func (h *VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := userParam(w, r)
	if !ok {
		return
	}

	videos, err := h.store.ListVideos(r.Context(), user)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	JSON(w, http.StatusOK, VideoListResponse{Videos: videos, Total: len(videos)})
}

// Upload handles POST /v1/users/{user}/videos (multipart: file, title, description)
func (h *VideoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	user, ok := userParam(w, r)
	if !ok {
		return
	}

	if err := parseMultipart(w, r, h.cfg.MaxUploadBytes); err != nil {
		badUpload(w, err)
		return
	}

	upload, err := saveFormFile(r, "file", h.cfg.UploadDir)
	if err != nil {
		saveError(w, r, err)
		return
	}
	defer upload.Remove()

	title, _ := formValue(r, "title")
	description, _ := formValue(r, "description")

	videoID, err := h.store.PutVideo(r.Context(), usecase.PutVideoInput{
		User:        user,
		LocalPath:   upload.Path,
		FileName:    upload.FileName,
		Title:       title,
		Description: description,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := UploadVideoResponse{VideoID: videoID}
	if h.cfg.EnqueueQualities && h.dispatcher != nil {
		job, err := h.dispatcher.Enqueue(r.Context(), user, videoID, false)
		if err != nil {
			// The upload itself succeeded; variants can be backfilled later.
			middleware.LoggerFrom(r.Context()).Warn("failed to enqueue quality job", "user_id", user, "video_id", videoID, "error", err)
		} else {
			resp.QualityJobID = job.ID.String()
		}
	}

	JSON(w, http.StatusCreated, resp)
}

// Get handles GET /v1/users/{user}/videos/{id}
func (h *VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := userParam(w, r)
	if !ok {
		return
	}

	record, err := h.store.GetVideo(r.Context(), user, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	JSON(w, http.StatusOK, record)
}

// Delete handles DELETE /v1/users/{user}/videos/{id}
func (h *VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := userParam(w, r)
	if !ok {
		return
	}

	if err := h.store.DeleteVideo(r.Context(), user, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AttachThumbnail handles POST /v1/users/{user}/videos/{id}/thumbnail (multipart: file)
func (h *VideoHandler) AttachThumbnail(w http.ResponseWriter, r *http.Request) {
	user, ok := userParam(w, r)
	if !ok {
		return
	}

	if err := parseMultipart(w, r, h.cfg.MaxUploadBytes); err != nil {
		badUpload(w, err)
		return
	}

	upload, err := saveFormFile(r, "file", h.cfg.UploadDir)
	if err != nil {
		saveError(w, r, err)
		return
	}
	defer upload.Remove()

	record, err := h.store.AttachThumbnail(r.Context(), user, chi.URLParam(r, "id"), upload.Path)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	JSON(w, http.StatusOK, record)
}

// PlaybackURL handles GET /v1/users/{user}/videos/{id}/url?quality=
func (h *VideoHandler) PlaybackURL(w http.ResponseWriter, r *http.Request) {
	user, ok := userParam(w, r)
	if !ok {
		return
	}

	result, err := h.registry.ListQualities(r.Context(), user, chi.URLParam(r, "id"), r.URL.Query().Get("quality"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	JSON(w, http.StatusOK, result)
}

// ThumbnailURL handles GET /v1/users/{user}/videos/{id}/thumbnail-url
func (h *VideoHandler) ThumbnailURL(w http.ResponseWriter, r *http.Request) {
	user, ok := userParam(w, r)
	if !ok {
		return
	}

	record, err := h.store.GetVideo(r.Context(), user, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if !record.HasThumbnail() {
		Error(w, http.StatusNotFound, "thumbnail_not_found", "Video has no thumbnail")
		return
	}

	url, err := h.signer.Sign(r.Context(), record.ThumbnailPath, h.cfg.MediaURLTTL)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	JSON(w, http.StatusOK, URLResponse{URL: url})
}

// RecordView handles POST /v1/users/{user}/videos/{id}/views
func (h *VideoHandler) RecordView(w http.ResponseWriter, r *http.Request) {
	user, ok := userParam(w, r)
	if !ok {
		return
	}

	record, err := h.store.RecordView(r.Context(), user, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	JSON(w, http.StatusOK, toCountersResponse(record))
}

// React handles POST /v1/users/{user}/videos/{id}/reactions
func (h *VideoHandler) React(w http.ResponseWriter, r *http.Request) {
	user, ok := userParam(w, r)
	if !ok {
		return
	}

	var req ReactionRequest
	if err := decodeJSON(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	record, err := h.store.RecordReaction(r.Context(), user, chi.URLParam(r, "id"), usecase.Reaction(req.Reaction))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	JSON(w, http.StatusOK, toCountersResponse(record))
}

// QualityJob handles GET /v1/users/{user}/videos/{id}/qualities/job
func (h *VideoHandler) QualityJob(w http.ResponseWriter, r *http.Request) {
	user, ok := userParam(w, r)
	if !ok {
		return
	}

	job, err := h.registry.JobStatus(r.Context(), user, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	JSON(w, http.StatusOK, toJobResponse(job))
}

func toCountersResponse(v *model.VideoRecord) CountersResponse {
	return CountersResponse{
		VideoID:  v.VideoID,
		Views:    v.Views,
		Likes:    v.Likes,
		Dislikes: v.Dislikes,
	}
}

func toJobResponse(j *model.QualityJob) JobResponse {
	return JobResponse{
		ID:        j.ID.String(),
		VideoID:   j.VideoID,
		Status:    j.Status.String(),
		Attempts:  j.Attempts,
		LastError: j.LastError,
		CreatedAt: j.CreatedAt.Format(time.RFC3339),
		UpdatedAt: j.UpdatedAt.Format(time.RFC3339),
	}
}
