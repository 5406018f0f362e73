package handler

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hszk-dev/vidshelf/internal/domain/model"
	"github.com/hszk-dev/vidshelf/internal/usecase"
)

// Mock RecordStore. Methods without a func field panic through the nil embed.

type mockRecordStore struct {
	usecase.RecordStore

	createUserNamespaceFn func(ctx context.Context, user string) error
	putVideoFn            func(ctx context.Context, input usecase.PutVideoInput) (string, error)
	attachThumbnailFn     func(ctx context.Context, user, videoID, localImagePath string) (*model.VideoRecord, error)
	getVideoFn            func(ctx context.Context, user, videoID string) (*model.VideoRecord, error)
	listVideosFn          func(ctx context.Context, user string) ([]*model.VideoRecord, error)
	deleteVideoFn         func(ctx context.Context, user, videoID string) error
	addCommentFn          func(ctx context.Context, user, videoID string, input usecase.CommentInput) (*model.Comment, error)
	addReplyFn            func(ctx context.Context, user, videoID, commentID string, input usecase.CommentInput) (*model.Reply, error)
	getCommentsFn         func(ctx context.Context, user, videoID string) (*model.CommentThread, error)
	updateUserProfileFn   func(ctx context.Context, user string, update usecase.ProfileUpdate) (*model.UserProfile, error)
	getUserProfileFn      func(ctx context.Context, user string) (*model.ProfileView, error)
	recordViewFn          func(ctx context.Context, user, videoID string) (*model.VideoRecord, error)
	recordReactionFn      func(ctx context.Context, user, videoID string, reaction usecase.Reaction) (*model.VideoRecord, error)
}

func (m *mockRecordStore) CreateUserNamespace(ctx context.Context, user string) error {
	return m.createUserNamespaceFn(ctx, user)
}

func (m *mockRecordStore) PutVideo(ctx context.Context, input usecase.PutVideoInput) (string, error) {
	return m.putVideoFn(ctx, input)
}

func (m *mockRecordStore) AttachThumbnail(ctx context.Context, user, videoID, localImagePath string) (*model.VideoRecord, error) {
	return m.attachThumbnailFn(ctx, user, videoID, localImagePath)
}

func (m *mockRecordStore) GetVideo(ctx context.Context, user, videoID string) (*model.VideoRecord, error) {
	return m.getVideoFn(ctx, user, videoID)
}

func (m *mockRecordStore) ListVideos(ctx context.Context, user string) ([]*model.VideoRecord, error) {
	return m.listVideosFn(ctx, user)
}

func (m *mockRecordStore) DeleteVideo(ctx context.Context, user, videoID string) error {
	return m.deleteVideoFn(ctx, user, videoID)
}

func (m *mockRecordStore) AddComment(ctx context.Context, user, videoID string, input usecase.CommentInput) (*model.Comment, error) {
	return m.addCommentFn(ctx, user, videoID, input)
}

func (m *mockRecordStore) AddReply(ctx context.Context, user, videoID, commentID string, input usecase.CommentInput) (*model.Reply, error) {
	return m.addReplyFn(ctx, user, videoID, commentID, input)
}

func (m *mockRecordStore) GetComments(ctx context.Context, user, videoID string) (*model.CommentThread, error) {
	return m.getCommentsFn(ctx, user, videoID)
}

func (m *mockRecordStore) UpdateUserProfile(ctx context.Context, user string, update usecase.ProfileUpdate) (*model.UserProfile, error) {
	return m.updateUserProfileFn(ctx, user, update)
}

func (m *mockRecordStore) GetUserProfile(ctx context.Context, user string) (*model.ProfileView, error) {
	return m.getUserProfileFn(ctx, user)
}

func (m *mockRecordStore) RecordView(ctx context.Context, user, videoID string) (*model.VideoRecord, error) {
	return m.recordViewFn(ctx, user, videoID)
}

func (m *mockRecordStore) RecordReaction(ctx context.Context, user, videoID string, reaction usecase.Reaction) (*model.VideoRecord, error) {
	return m.recordReactionFn(ctx, user, videoID, reaction)
}

// Mock QualityRegistry

type mockQualityRegistry struct {
	usecase.QualityRegistry

	listQualitiesFn func(ctx context.Context, user, videoID, preferred string) (*usecase.QualityURL, error)
	jobStatusFn     func(ctx context.Context, user, videoID string) (*model.QualityJob, error)
}

func (m *mockQualityRegistry) ListQualities(ctx context.Context, user, videoID, preferred string) (*usecase.QualityURL, error) {
	return m.listQualitiesFn(ctx, user, videoID, preferred)
}

func (m *mockQualityRegistry) JobStatus(ctx context.Context, user, videoID string) (*model.QualityJob, error) {
	return m.jobStatusFn(ctx, user, videoID)
}

// Mock QualityDispatcher

type mockQualityDispatcher struct {
	enqueueFn func(ctx context.Context, user, videoID string, force bool) (*model.QualityJob, error)
	calls     int
}

func (m *mockQualityDispatcher) Enqueue(ctx context.Context, user, videoID string, force bool) (*model.QualityJob, error) {
	m.calls++
	return m.enqueueFn(ctx, user, videoID, force)
}

// Mock CatalogCache

type mockCatalogCache struct {
	usecase.CatalogCache

	rebuildFn func(ctx context.Context) ([]model.CatalogEntry, error)
	readFn    func(ctx context.Context, opts usecase.ReadOptions) (*usecase.CatalogPage, error)
	searchFn  func(ctx context.Context, query string, opts usecase.ReadOptions) (*usecase.CatalogPage, error)
}

func (m *mockCatalogCache) Rebuild(ctx context.Context) ([]model.CatalogEntry, error) {
	return m.rebuildFn(ctx)
}

func (m *mockCatalogCache) Read(ctx context.Context, opts usecase.ReadOptions) (*usecase.CatalogPage, error) {
	return m.readFn(ctx, opts)
}

func (m *mockCatalogCache) Search(ctx context.Context, query string, opts usecase.ReadOptions) (*usecase.CatalogPage, error) {
	return m.searchFn(ctx, query, opts)
}

// Mock URLSigner

type mockSigner struct {
	signFn func(ctx context.Context, key string, ttl time.Duration) (string, error)
}

func (m *mockSigner) Sign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if m.signFn != nil {
		return m.signFn(ctx, key, ttl)
	}
	return "https://signed.example/" + key, nil
}

// multipartBody builds a multipart form. files maps field name to file name and
// content.
func multipartBody(t *testing.T, fields map[string]string, files map[string][2]string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			t.Fatalf("WriteField() error = %v", err)
		}
	}
	for field, file := range files {
		fw, err := mw.CreateFormFile(field, file[0])
		if err != nil {
			t.Fatalf("CreateFormFile() error = %v", err)
		}
		if _, err := fw.Write([]byte(file[1])); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func serve(r chi.Router, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}
