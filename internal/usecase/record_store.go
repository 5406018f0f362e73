package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hszk-dev/vidshelf/internal/domain/blobkey"
	"github.com/hszk-dev/vidshelf/internal/domain/model"
	"github.com/hszk-dev/vidshelf/internal/domain/repository"
	"github.com/hszk-dev/vidshelf/internal/domain/schema"
	"github.com/hszk-dev/vidshelf/internal/transcoder"
)

var (
	// ErrInvalidReaction is returned for reactions other than like and dislike.
	ErrInvalidReaction = errors.New("reaction must be like or dislike")
)

const defaultAvatarName = "default_avatar"

// Reaction is a viewer's vote on a video.
type Reaction string

const (
	ReactionLike    Reaction = "like"
	ReactionDislike Reaction = "dislike"
)

// PutVideoInput contains the input parameters for storing an uploaded video.
type PutVideoInput struct {
	User      string
	LocalPath string
	// FileName is the name the client uploaded; it defaults to the base of LocalPath.
	FileName    string
	Title       string
	Description string
}

// CommentInput carries the author and text of a comment or reply.
type CommentInput struct {
	Author      string
	Text        string
	DisplayName string
}

// ProfileUpdate lists the profile fields to change. Nil fields are left alone.
type ProfileUpdate struct {
	DisplayName *string
	Bio         *string
	// AvatarPath is a local image. Passing the configured default avatar asset
	// resets the profile to the default avatar.
	AvatarPath string
}

// CatalogInvalidator is notified when a write makes the catalog snapshot stale.
type CatalogInvalidator interface {
	Invalidate(ctx context.Context) error
}

// RecordStore defines CRUD over the JSON documents kept in each user namespace.
type RecordStore interface {
	// CreateUserNamespace materialises the sub-namespaces and default documents for user.
	// Documents that already exist are kept, so an established profile survives.
	// Sub-step failures are logged and skipped; only a failed profile read or write is returned.
	CreateUserNamespace(ctx context.Context, user string) error

	// ListUsers returns every user handle that owns a namespace.
	ListUsers(ctx context.Context) ([]string, error)

	// PutVideo stores the media file and its record and returns the derived video ID.
	PutVideo(ctx context.Context, input PutVideoInput) (string, error)

	// AttachThumbnail uploads a preview image and links it from the record.
	AttachThumbnail(ctx context.Context, user, videoID, localImagePath string) (*model.VideoRecord, error)

	// GetVideo returns repository.ErrVideoNotFound if the record is absent.
	GetVideo(ctx context.Context, user, videoID string) (*model.VideoRecord, error)

	// ListVideos returns the user's records, newest first. A missing namespace yields an empty slice.
	ListVideos(ctx context.Context, user string) ([]*model.VideoRecord, error)

	// SaveVideo overwrites a record.
	SaveVideo(ctx context.Context, record *model.VideoRecord) error

	// DeleteVideo removes every object belonging to a video. Missing objects are skipped.
	DeleteVideo(ctx context.Context, user, videoID string) error

	AddComment(ctx context.Context, user, videoID string, input CommentInput) (*model.Comment, error)

	// AddReply returns repository.ErrCommentNotFound and leaves the thread untouched
	// when commentID does not exist.
	AddReply(ctx context.Context, user, videoID, commentID string, input CommentInput) (*model.Reply, error)

	// GetComments never returns a not-found error; absent threads are empty.
	GetComments(ctx context.Context, user, videoID string) (*model.CommentThread, error)

	// RecomputeUserStats rewrites only the stats block of the profile.
	RecomputeUserStats(ctx context.Context, user string) (*model.UserStats, error)

	UpdateUserProfile(ctx context.Context, user string, update ProfileUpdate) (*model.UserProfile, error)

	// GetUserProfile returns the profile with inline bio text and a signed avatar URL.
	GetUserProfile(ctx context.Context, user string) (*model.ProfileView, error)

	RecordView(ctx context.Context, user, videoID string) (*model.VideoRecord, error)

	RecordReaction(ctx context.Context, user, videoID string, reaction Reaction) (*model.VideoRecord, error)
}

// RecordStoreConfig holds configuration for RecordStore.
type RecordStoreConfig struct {
	// DefaultAvatarPath is the local asset copied into every new namespace.
	DefaultAvatarPath string
	// AvatarURLTTL is the lifetime of signed avatar URLs.
	AvatarURLTTL time.Duration
	// StatsTimeout bounds the background stats recompute after an upload.
	StatsTimeout time.Duration
}

// DefaultRecordStoreConfig returns the default configuration.
func DefaultRecordStoreConfig() RecordStoreConfig {
	return RecordStoreConfig{
		DefaultAvatarPath: "assets/default_avatar.png",
		AvatarURLTTL:      DefaultAvatarURLTTL,
		StatsTimeout:      30 * time.Second,
	}
}

type recordStore struct {
	storage     repository.ObjectStorage
	prober      transcoder.Prober
	signer      *Signer
	invalidator CatalogInvalidator
	validator   *schema.Validator

	defaultAvatarPath string
	avatarURLTTL      time.Duration
	statsTimeout      time.Duration

	now                 func() time.Time
	placeholderDuration func() string
	runAsync            func(fn func())
}

// NewRecordStore creates a new RecordStore instance.
// prober and invalidator may be nil.
func NewRecordStore(
	storage repository.ObjectStorage,
	prober transcoder.Prober,
	signer *Signer,
	invalidator CatalogInvalidator,
	validator *schema.Validator,
	cfg RecordStoreConfig,
) RecordStore {
	return newRecordStore(storage, prober, signer, invalidator, validator, cfg)
}

func newRecordStore(
	storage repository.ObjectStorage,
	prober transcoder.Prober,
	signer *Signer,
	invalidator CatalogInvalidator,
	validator *schema.Validator,
	cfg RecordStoreConfig,
) *recordStore {
	return &recordStore{
		storage:             storage,
		prober:              prober,
		signer:              signer,
		invalidator:         invalidator,
		validator:           validator,
		defaultAvatarPath:   cfg.DefaultAvatarPath,
		avatarURLTTL:        cfg.AvatarURLTTL,
		statsTimeout:        cfg.StatsTimeout,
		now:                 time.Now,
		placeholderDuration: randomDuration,
		runAsync:            func(fn func()) { go fn() },
	}
}

// randomDuration stands in for a duration the prober could not read.
func randomDuration() string {
	return fmt.Sprintf("%02d:%02d", 3+rand.IntN(13), rand.IntN(60))
}

func (s *recordStore) CreateUserNamespace(ctx context.Context, user string) error {
	if user == "" {
		return model.ErrEmptyUser
	}

	failures := s.ensureNamespace(ctx, user)

	if err := s.ensureWelcome(ctx, user); err != nil {
		slog.Warn("failed to write welcome text", "user_id", user, "error", err)
		failures = append(failures, err)
	}

	profile, err := s.loadProfile(ctx, user)
	switch {
	case err == nil:
		slog.Debug("namespace already has a profile", "user_id", user)
	case errors.Is(err, repository.ErrProfileNotFound):
		profile = model.NewUserProfile(user, s.defaultAvatarKey(user), s.now())
		if err := s.writeProfile(ctx, profile); err != nil {
			return errors.Join(append(failures, err)...)
		}
	default:
		return errors.Join(append(failures, err)...)
	}

	if profile.IsDefaultAvatar {
		if err := s.ensureDefaultAvatar(ctx, profile.AvatarPath); err != nil {
			slog.Warn("failed to copy default avatar", "user_id", user, "error", err)
			failures = append(failures, err)
		}
	}

	if len(failures) > 0 {
		slog.Warn("namespace created with failures", "user_id", user, "failures", len(failures))
	} else {
		slog.Info("namespace created", "user_id", user)
	}

	return nil
}

func (s *recordStore) ensureWelcome(ctx context.Context, user string) error {
	key := blobkey.Welcome(user)
	exists, err := s.storage.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check welcome text: %w", err)
	}
	if exists {
		return nil
	}
	welcome := fmt.Sprintf("Welcome to vidshelf, %s! This is your personal storage space.", user)
	return writeText(ctx, s.storage, key, welcome)
}

func (s *recordStore) ensureDefaultAvatar(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	exists, err := s.storage.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check avatar: %w", err)
	}
	if exists {
		return nil
	}
	return s.copyDefaultAvatar(ctx, key)
}

func (s *recordStore) defaultAvatarKey(user string) string {
	ext := strings.ToLower(filepath.Ext(s.defaultAvatarPath))
	if ext == "" {
		ext = ".png"
	}
	return blobkey.For(user, blobkey.KindAvatar, defaultAvatarName, ext)
}

func (s *recordStore) copyDefaultAvatar(ctx context.Context, key string) error {
	if s.defaultAvatarPath == "" {
		return errors.New("no default avatar configured")
	}
	_, err := uploadFile(ctx, s.storage, s.defaultAvatarPath, key, imageContentType(s.defaultAvatarPath))
	return err
}

func (s *recordStore) isDefaultAvatar(path string) bool {
	if s.defaultAvatarPath == "" {
		return false
	}
	return filepath.Clean(path) == filepath.Clean(s.defaultAvatarPath)
}

func (s *recordStore) ListUsers(ctx context.Context) ([]string, error) {
	prefixes, err := s.storage.ListPrefixes(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list namespaces: %w", err)
	}

	users := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		if blobkey.IsUserPrefix(p) {
			users = append(users, blobkey.UserFromPrefix(p))
		}
	}
	return users, nil
}

// ensureNamespace creates only the markers that are missing.
func (s *recordStore) ensureNamespace(ctx context.Context, user string) []error {
	var failures []error
	for _, folder := range blobkey.Folders {
		key := blobkey.Marker(user, folder)
		exists, err := s.storage.Exists(ctx, key)
		if err != nil {
			slog.Warn("failed to check namespace marker", "user_id", user, "key", key, "error", err)
			failures = append(failures, err)
			continue
		}
		if exists {
			continue
		}
		if err := s.storage.Upload(ctx, key, bytes.NewReader(nil), contentTypeMarker); err != nil {
			slog.Warn("failed to create namespace marker", "user_id", user, "key", key, "error", err)
			failures = append(failures, err)
		}
	}
	return failures
}

func (s *recordStore) PutVideo(ctx context.Context, input PutVideoInput) (string, error) {
	if input.User == "" {
		return "", model.ErrEmptyUser
	}

	info, err := os.Stat(input.LocalPath)
	if err != nil {
		return "", fmt.Errorf("stat upload: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("upload path is a directory: %s", input.LocalPath)
	}

	fileName := input.FileName
	if fileName == "" {
		fileName = filepath.Base(input.LocalPath)
	}

	s.ensureNamespace(ctx, input.User)

	uploadedAt := s.now()
	videoID := blobkey.VideoID(uploadedAt, fileName)
	ext := strings.ToLower(filepath.Ext(fileName))

	record, err := model.NewVideoRecord(input.User, videoID, input.Title, input.Description, uploadedAt)
	if err != nil {
		return "", err
	}

	metadataKey := blobkey.For(input.User, blobkey.KindMetadata, videoID, "")
	if exists, err := s.storage.Exists(ctx, metadataKey); err == nil && exists {
		slog.Warn("video id collision, overwriting existing record",
			"user_id", input.User,
			"video_id", videoID,
		)
	}

	record.MimeType = videoContentType(fileName)
	record.FilePath = blobkey.For(input.User, blobkey.KindVideo, videoID, ext)
	record.Duration = s.probeDuration(ctx, input.LocalPath)

	size, err := uploadFile(ctx, s.storage, input.LocalPath, record.FilePath, record.MimeType)
	if err != nil {
		return "", fmt.Errorf("upload media: %w", err)
	}
	record.FileSize = size

	if err := writeJSON(ctx, s.storage, metadataKey, record); err != nil {
		return "", fmt.Errorf("write record: %w", err)
	}

	commentsKey := blobkey.For(input.User, blobkey.KindComments, videoID, "")
	if err := writeJSON(ctx, s.storage, commentsKey, model.NewCommentThread(videoID)); err != nil {
		return "", fmt.Errorf("write comment thread: %w", err)
	}

	s.invalidate(ctx)
	s.recomputeStatsAsync(input.User)

	slog.Info("video stored",
		"user_id", input.User,
		"video_id", videoID,
		"file_size", size,
		"duration", record.Duration,
	)

	return videoID, nil
}

func (s *recordStore) probeDuration(ctx context.Context, localPath string) string {
	if s.prober == nil {
		return s.placeholderDuration()
	}

	info, err := s.prober.Probe(ctx, localPath)
	if err != nil || info.Duration <= 0 {
		slog.Warn("duration probe failed, using placeholder", "path", localPath, "error", err)
		return s.placeholderDuration()
	}

	return transcoder.FormatDuration(info.Duration)
}

func (s *recordStore) recomputeStatsAsync(user string) {
	s.runAsync(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.statsTimeout)
		defer cancel()

		if _, err := s.RecomputeUserStats(ctx, user); err != nil {
			slog.Warn("background stats recompute failed", "user_id", user, "error", err)
		}
	})
}

func (s *recordStore) invalidate(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx); err != nil {
		slog.Warn("failed to invalidate catalog", "error", err)
	}
}

func (s *recordStore) AttachThumbnail(ctx context.Context, user, videoID, localImagePath string) (*model.VideoRecord, error) {
	record, err := s.GetVideo(ctx, user, videoID)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(localImagePath))
	key := blobkey.For(user, blobkey.KindPreview, videoID, ext)
	contentType := imageContentType(localImagePath)

	if _, err := uploadFile(ctx, s.storage, localImagePath, key, contentType); err != nil {
		return nil, fmt.Errorf("upload thumbnail: %w", err)
	}

	record.ThumbnailPath = key
	record.ThumbnailMimeType = contentType

	if err := s.SaveVideo(ctx, record); err != nil {
		return nil, err
	}

	return record, nil
}

func (s *recordStore) GetVideo(ctx context.Context, user, videoID string) (*model.VideoRecord, error) {
	var record model.VideoRecord
	err := readJSON(ctx, s.storage, blobkey.For(user, blobkey.KindMetadata, videoID, ""), &record)
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			return nil, repository.ErrVideoNotFound
		}
		return nil, fmt.Errorf("read video record: %w", err)
	}
	return &record, nil
}

func (s *recordStore) ListVideos(ctx context.Context, user string) ([]*model.VideoRecord, error) {
	objects, err := s.storage.List(ctx, blobkey.Prefix(user, blobkey.FolderMetadata), false)
	if err != nil {
		return nil, fmt.Errorf("list video records: %w", err)
	}

	records := make([]*model.VideoRecord, 0, len(objects))
	for _, obj := range objects {
		if !blobkey.IsMetadataKey(obj.Key) {
			continue
		}

		var record model.VideoRecord
		if err := readJSON(ctx, s.storage, obj.Key, &record); err != nil {
			slog.Warn("skipping unreadable video record", "key", obj.Key, "error", err)
			continue
		}
		records = append(records, &record)
	}

	model.SortByUploadDateDesc(records)
	return records, nil
}

func (s *recordStore) SaveVideo(ctx context.Context, record *model.VideoRecord) error {
	key := blobkey.For(record.UserID, blobkey.KindMetadata, record.VideoID, "")
	if err := writeJSON(ctx, s.storage, key, record); err != nil {
		return fmt.Errorf("write video record: %w", err)
	}
	s.invalidate(ctx)
	return nil
}

func (s *recordStore) DeleteVideo(ctx context.Context, user, videoID string) error {
	record, err := s.GetVideo(ctx, user, videoID)
	if err != nil {
		return err
	}

	keys := []string{
		record.FilePath,
		record.ThumbnailPath,
		blobkey.For(user, blobkey.KindMetadata, videoID, ""),
		blobkey.For(user, blobkey.KindComments, videoID, ""),
	}
	for _, label := range model.SortedQualities(record.QualityVariants) {
		keys = append(keys, record.QualityVariants[label].Path)
	}

	for _, key := range keys {
		if key == "" {
			continue
		}
		s.deleteIfExists(ctx, key)
	}

	s.invalidate(ctx)

	if _, err := s.RecomputeUserStats(ctx, user); err != nil {
		slog.Warn("stats recompute after delete failed", "user_id", user, "error", err)
	}

	slog.Info("video deleted", "user_id", user, "video_id", videoID)
	return nil
}

func (s *recordStore) deleteIfExists(ctx context.Context, key string) {
	exists, err := s.storage.Exists(ctx, key)
	if err != nil {
		slog.Warn("failed to check object before delete", "key", key, "error", err)
		return
	}
	if !exists {
		return
	}
	if err := s.storage.Delete(ctx, key); err != nil {
		slog.Warn("failed to delete object", "key", key, "error", err)
	}
}

func (s *recordStore) AddComment(ctx context.Context, user, videoID string, input CommentInput) (*model.Comment, error) {
	if err := s.requireVideo(ctx, user, videoID); err != nil {
		return nil, err
	}

	comment, err := model.NewComment(input.Author, input.Text, input.DisplayName, s.now())
	if err != nil {
		return nil, err
	}

	thread, err := s.loadThread(ctx, user, videoID)
	if err != nil {
		return nil, err
	}
	thread.Append(*comment)

	if err := s.writeThread(ctx, user, thread); err != nil {
		return nil, err
	}

	return comment, nil
}

func (s *recordStore) AddReply(ctx context.Context, user, videoID, commentID string, input CommentInput) (*model.Reply, error) {
	reply, err := model.NewReply(input.Author, input.Text, input.DisplayName, s.now())
	if err != nil {
		return nil, err
	}

	thread, err := s.loadThread(ctx, user, videoID)
	if err != nil {
		return nil, err
	}

	if !thread.AppendReply(commentID, *reply) {
		return nil, repository.ErrCommentNotFound
	}

	if err := s.writeThread(ctx, user, thread); err != nil {
		return nil, err
	}

	return reply, nil
}

func (s *recordStore) requireVideo(ctx context.Context, user, videoID string) error {
	exists, err := s.storage.Exists(ctx, blobkey.For(user, blobkey.KindMetadata, videoID, ""))
	if err != nil {
		return fmt.Errorf("check video record: %w", err)
	}
	if !exists {
		return repository.ErrVideoNotFound
	}
	return nil
}

func (s *recordStore) writeThread(ctx context.Context, user string, thread *model.CommentThread) error {
	key := blobkey.For(user, blobkey.KindComments, thread.VideoID, "")
	if err := writeJSON(ctx, s.storage, key, thread); err != nil {
		return fmt.Errorf("write comment thread: %w", err)
	}
	return nil
}

func (s *recordStore) GetComments(ctx context.Context, user, videoID string) (*model.CommentThread, error) {
	thread, err := s.loadThread(ctx, user, videoID)
	if errors.Is(err, schema.ErrInvalidDocument) {
		slog.Warn("serving empty thread for unreadable comments", "user_id", user, "video_id", videoID, "error", err)
		return model.NewCommentThread(videoID), nil
	}
	return thread, err
}

// loadThread reads a stored thread. A missing thread is empty; one that fails
// validation or decoding is reported as schema.ErrInvalidDocument so writers
// never replace comments they could not read.
func (s *recordStore) loadThread(ctx context.Context, user, videoID string) (*model.CommentThread, error) {
	key := blobkey.For(user, blobkey.KindComments, videoID, "")

	data, err := readBytes(ctx, s.storage, key)
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			return model.NewCommentThread(videoID), nil
		}
		return nil, fmt.Errorf("read comment thread: %w", err)
	}

	if s.validator != nil {
		if err := s.validator.Validate(schema.CommentThread, data); err != nil {
			if !errors.Is(err, schema.ErrInvalidDocument) {
				err = fmt.Errorf("%w: %v", schema.ErrInvalidDocument, err)
			}
			return nil, fmt.Errorf("comment thread %s: %w", key, err)
		}
	}

	var thread model.CommentThread
	if err := json.Unmarshal(data, &thread); err != nil {
		return nil, fmt.Errorf("comment thread %s: %w: %v", key, schema.ErrInvalidDocument, err)
	}
	if thread.VideoID == "" {
		thread.VideoID = videoID
	}
	thread.Normalize()

	return &thread, nil
}

func (s *recordStore) loadProfile(ctx context.Context, user string) (*model.UserProfile, error) {
	var profile model.UserProfile
	err := readJSON(ctx, s.storage, blobkey.For(user, blobkey.KindProfile, "", ""), &profile)
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			return nil, repository.ErrProfileNotFound
		}
		return nil, fmt.Errorf("read profile: %w", err)
	}
	return &profile, nil
}

func (s *recordStore) writeProfile(ctx context.Context, profile *model.UserProfile) error {
	if err := writeJSON(ctx, s.storage, blobkey.For(profile.UserID, blobkey.KindProfile, "", ""), profile); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}
	return nil
}

func (s *recordStore) RecomputeUserStats(ctx context.Context, user string) (*model.UserStats, error) {
	videos, err := s.ListVideos(ctx, user)
	if err != nil {
		return nil, err
	}

	stats := model.UserStats{VideosCount: len(videos)}
	for _, v := range videos {
		stats.TotalViews += v.Views
	}

	profile, err := s.loadProfile(ctx, user)
	if err != nil {
		if !errors.Is(err, repository.ErrProfileNotFound) {
			return nil, err
		}
		profile = model.NewUserProfile(user, s.defaultAvatarKey(user), s.now())
	}

	profile.Stats = stats
	if err := s.writeProfile(ctx, profile); err != nil {
		return nil, err
	}

	return &stats, nil
}

func (s *recordStore) UpdateUserProfile(ctx context.Context, user string, update ProfileUpdate) (*model.UserProfile, error) {
	profile, err := s.loadProfile(ctx, user)
	if err != nil {
		return nil, err
	}

	nameChanged := false
	if update.DisplayName != nil && *update.DisplayName != profile.DisplayName {
		profile.DisplayName = *update.DisplayName
		nameChanged = true
	}

	if update.Bio != nil {
		bioKey := blobkey.For(user, blobkey.KindBio, "", "")
		if *update.Bio == "" {
			s.deleteIfExists(ctx, bioKey)
			profile.HasBio = false
		} else {
			if err := writeText(ctx, s.storage, bioKey, *update.Bio); err != nil {
				return nil, fmt.Errorf("write bio: %w", err)
			}
			profile.HasBio = true
		}
	}

	if update.AvatarPath != "" {
		if err := s.replaceAvatar(ctx, profile, update.AvatarPath); err != nil {
			return nil, err
		}
	}

	profile.Touch(s.now())
	if err := s.writeProfile(ctx, profile); err != nil {
		return nil, err
	}

	if nameChanged {
		s.invalidate(ctx)
	}

	return profile, nil
}

// replaceAvatar uploads the new avatar and removes a previous custom one.
func (s *recordStore) replaceAvatar(ctx context.Context, profile *model.UserProfile, localPath string) error {
	user := profile.UserID

	var key string
	isDefault := s.isDefaultAvatar(localPath)
	if isDefault {
		key = s.defaultAvatarKey(user)
	} else {
		key = blobkey.For(user, blobkey.KindAvatar, "avatar", strings.ToLower(filepath.Ext(localPath)))
	}

	if _, err := uploadFile(ctx, s.storage, localPath, key, imageContentType(localPath)); err != nil {
		return fmt.Errorf("upload avatar: %w", err)
	}

	// The previous object goes only once the new one is stored.
	if !profile.IsDefaultAvatar && profile.AvatarPath != "" && profile.AvatarPath != key {
		s.deleteIfExists(ctx, profile.AvatarPath)
	}

	profile.AvatarPath = key
	profile.IsDefaultAvatar = isDefault
	return nil
}

func (s *recordStore) GetUserProfile(ctx context.Context, user string) (*model.ProfileView, error) {
	profile, err := s.loadProfile(ctx, user)
	if err != nil {
		return nil, err
	}

	view := &model.ProfileView{UserProfile: *profile}

	bio, err := readText(ctx, s.storage, blobkey.For(user, blobkey.KindBio, "", ""))
	if err != nil && !errors.Is(err, repository.ErrObjectNotFound) {
		slog.Warn("failed to read bio", "user_id", user, "error", err)
	}
	view.Bio = bio

	if profile.AvatarPath != "" && s.signer != nil {
		url, err := s.signer.Sign(ctx, profile.AvatarPath, s.avatarURLTTL)
		if err != nil {
			slog.Warn("failed to sign avatar url", "user_id", user, "key", profile.AvatarPath, "error", err)
		}
		view.AvatarURL = url
	}

	return view, nil
}

func (s *recordStore) RecordView(ctx context.Context, user, videoID string) (*model.VideoRecord, error) {
	record, err := s.GetVideo(ctx, user, videoID)
	if err != nil {
		return nil, err
	}

	record.Views++
	if err := s.writeRecord(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *recordStore) RecordReaction(ctx context.Context, user, videoID string, reaction Reaction) (*model.VideoRecord, error) {
	if reaction != ReactionLike && reaction != ReactionDislike {
		return nil, ErrInvalidReaction
	}

	record, err := s.GetVideo(ctx, user, videoID)
	if err != nil {
		return nil, err
	}

	if reaction == ReactionLike {
		record.Likes++
	} else {
		record.Dislikes++
	}

	if err := s.writeRecord(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// writeRecord persists counter updates without invalidating the catalog.
func (s *recordStore) writeRecord(ctx context.Context, record *model.VideoRecord) error {
	key := blobkey.For(record.UserID, blobkey.KindMetadata, record.VideoID, "")
	if err := writeJSON(ctx, s.storage, key, record); err != nil {
		return fmt.Errorf("write video record: %w", err)
	}
	return nil
}

var videoContentTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
}

var imageContentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

func videoContentType(name string) string {
	return contentTypeFor(name, videoContentTypes, "video/", model.DefaultVideoMimeType)
}

func imageContentType(name string) string {
	return contentTypeFor(name, imageContentTypes, "image/", model.DefaultImageMimeType)
}

// contentTypeFor consults the known table first, then the system MIME database.
func contentTypeFor(name string, known map[string]string, family, fallback string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ct, ok := known[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); strings.HasPrefix(ct, family) {
		return ct
	}
	return fallback
}
