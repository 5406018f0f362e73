package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hszk-dev/vidshelf/internal/domain/blobkey"
	"github.com/hszk-dev/vidshelf/internal/usecase"
)

type CreateNamespaceResponse struct {
	UserID string `json:"user_id"`
}

// UpdateProfileRequest is the JSON form of PATCH /profile. Absent fields are left alone.
type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name"`
	Bio         *string `json:"bio"`
	ResetAvatar bool    `json:"reset_avatar"`
}

// UserHandler handles namespace and profile requests.
type UserHandler struct {
	store             usecase.RecordStore
	uploadDir         string
	maxUploadBytes    int64
	defaultAvatarPath string
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(store usecase.RecordStore, uploadDir string, maxUploadBytes int64, defaultAvatarPath string) *UserHandler {
	return &UserHandler{
		store:             store,
		uploadDir:         uploadDir,
		maxUploadBytes:    maxUploadBytes,
		defaultAvatarPath: defaultAvatarPath,
	}
}

// Routes registers the user endpoints on r.
func (h *UserHandler) Routes(r chi.Router) {
	r.Post("/users/{user}", h.CreateNamespace)
	r.Get("/users/{user}/profile", h.GetProfile)
	r.Patch("/users/{user}/profile", h.UpdateProfile)
}

// userParam extracts and validates the {user} path parameter.
func userParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	user := chi.URLParam(r, "user")
	if !strings.HasPrefix(user, blobkey.UserPrefixMarker) || len(user) < 2 || strings.ContainsAny(user, "/\\") {
		Error(w, http.StatusBadRequest, "invalid_user", "User handle must start with @")
		return "", false
	}
	return user, true
}

// CreateNamespace handles POST /v1/users/{user}
func (h *UserHandler) CreateNamespace(w http.ResponseWriter, r *http.Request) {
	user, ok := userParam(w, r)
	if !ok {
		return
	}

	if err := h.store.CreateUserNamespace(r.Context(), user); err != nil {
		handleServiceError(w, r, err)
		return
	}

	JSON(w, http.StatusCreated, CreateNamespaceResponse{UserID: user})
}

// GetProfile handles GET /v1/users/{user}/profile
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := userParam(w, r)
	if !ok {
		return
	}

	profile, err := h.store.GetUserProfile(r.Context(), user)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	JSON(w, http.StatusOK, profile)
}

// UpdateProfile handles PATCH /v1/users/{user}/profile. It accepts JSON, or a
// multipart form whose "avatar" file replaces the current avatar.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := userParam(w, r)
	if !ok {
		return
	}

	var update usecase.ProfileUpdate
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := parseMultipart(w, r, h.maxUploadBytes); err != nil {
			badUpload(w, err)
			return
		}
		if v, ok := formValue(r, "display_name"); ok {
			update.DisplayName = &v
		}
		if v, ok := formValue(r, "bio"); ok {
			update.Bio = &v
		}

		upload, err := saveFormFile(r, "avatar", h.uploadDir)
		switch {
		case err == nil:
			defer upload.Remove()
			update.AvatarPath = upload.Path
		case !errors.Is(err, errMissingFile):
			saveError(w, r, err)
			return
		}
		if v, _ := formValue(r, "reset_avatar"); v == "true" && update.AvatarPath == "" {
			update.AvatarPath = h.defaultAvatarPath
		}
	} else {
		var req UpdateProfileRequest
		if err := decodeJSON(r, &req); err != nil {
			Error(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
			return
		}
		update.DisplayName = req.DisplayName
		update.Bio = req.Bio
		if req.ResetAvatar {
			update.AvatarPath = h.defaultAvatarPath
		}
	}

	profile, err := h.store.UpdateUserProfile(r.Context(), user, update)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	JSON(w, http.StatusOK, profile)
}
