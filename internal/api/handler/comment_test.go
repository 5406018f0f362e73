package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hszk-dev/vidshelf/internal/domain/model"
	"github.com/hszk-dev/vidshelf/internal/domain/repository"
	"github.com/hszk-dev/vidshelf/internal/usecase"
)

func newCommentRouter(store *mockRecordStore) chi.Router {
	videos := NewVideoHandler(store, &mockQualityRegistry{}, nil, &mockSigner{}, VideoHandlerConfig{})
	comments := NewCommentHandler(store)
	r := chi.NewRouter()
	videos.Routes(r, comments.Routes)
	return r
}

func TestCommentHandler_List(t *testing.T) {
	store := &mockRecordStore{
		getCommentsFn: func(ctx context.Context, user, videoID string) (*model.CommentThread, error) {
			if videoID == "missing" {
				return nil, repository.ErrVideoNotFound
			}
			thread := model.NewCommentThread(videoID)
			thread.Append(model.Comment{ID: "c1", UserID: "@bob", Text: "nice", Replies: []model.Reply{}})
			return thread, nil
		},
	}
	r := newCommentRouter(store)

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/users/@alice/videos/intro/comments", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var thread model.CommentThread
	if err := json.NewDecoder(rec.Body).Decode(&thread); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if thread.VideoID != "intro" || len(thread.Comments) != 1 || thread.Comments[0].ID != "c1" {
		t.Errorf("got %+v", thread)
	}

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/users/@alice/videos/missing/comments", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestCommentHandler_Create(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		addErr         error
		wantStatusCode int
		wantInput      usecase.CommentInput
	}{
		{
			name:           "created",
			body:           `{"author":"@bob","text":"nice","display_name":"Bob"}`,
			wantStatusCode: http.StatusCreated,
			wantInput:      usecase.CommentInput{Author: "@bob", Text: "nice", DisplayName: "Bob"},
		},
		{
			name:           "empty text",
			body:           `{"author":"@bob","text":""}`,
			addErr:         model.ErrEmptyComment,
			wantStatusCode: http.StatusBadRequest,
			wantInput:      usecase.CommentInput{Author: "@bob"},
		},
		{
			name:           "video missing",
			body:           `{"author":"@bob","text":"hi"}`,
			addErr:         repository.ErrVideoNotFound,
			wantStatusCode: http.StatusNotFound,
			wantInput:      usecase.CommentInput{Author: "@bob", Text: "hi"},
		},
		{
			name:           "invalid JSON",
			body:           `not json`,
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got usecase.CommentInput
			store := &mockRecordStore{
				addCommentFn: func(ctx context.Context, user, videoID string, input usecase.CommentInput) (*model.Comment, error) {
					got = input
					if tt.addErr != nil {
						return nil, tt.addErr
					}
					return &model.Comment{
						ID:          "c-new",
						UserID:      input.Author,
						DisplayName: input.DisplayName,
						Text:        input.Text,
						Date:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
						Replies:     []model.Reply{},
					}, nil
				},
			}
			r := newCommentRouter(store)

			req := httptest.NewRequest(http.MethodPost, "/users/@alice/videos/intro/comments", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := serve(r, req)

			if rec.Code != tt.wantStatusCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatusCode)
			}
			if got != tt.wantInput {
				t.Errorf("input = %+v, want %+v", got, tt.wantInput)
			}
			if tt.wantStatusCode == http.StatusCreated {
				var c model.Comment
				if err := json.NewDecoder(rec.Body).Decode(&c); err != nil {
					t.Fatalf("failed to decode response: %v", err)
				}
				if c.ID != "c-new" || c.Text != "nice" {
					t.Errorf("got %+v", c)
				}
			}
		})
	}
}

func TestCommentHandler_Reply(t *testing.T) {
	tests := []struct {
		name           string
		commentID      string
		wantStatusCode int
	}{
		{name: "reply added", commentID: "c1", wantStatusCode: http.StatusCreated},
		{name: "unknown comment", commentID: "nope", wantStatusCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockRecordStore{
				addReplyFn: func(ctx context.Context, user, videoID, commentID string, input usecase.CommentInput) (*model.Reply, error) {
					if commentID != "c1" {
						return nil, repository.ErrCommentNotFound
					}
					return &model.Reply{ID: "r1", UserID: input.Author, Text: input.Text}, nil
				},
			}
			r := newCommentRouter(store)

			req := httptest.NewRequest(http.MethodPost,
				"/users/@alice/videos/intro/comments/"+tt.commentID+"/replies",
				bytes.NewBufferString(`{"author":"@carol","text":"agreed"}`))
			req.Header.Set("Content-Type", "application/json")
			rec := serve(r, req)

			if rec.Code != tt.wantStatusCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatusCode)
			}
			if tt.wantStatusCode == http.StatusCreated {
				var reply model.Reply
				if err := json.NewDecoder(rec.Body).Decode(&reply); err != nil {
					t.Fatalf("failed to decode response: %v", err)
				}
				if reply.ID != "r1" || reply.UserID != "@carol" {
					t.Errorf("got %+v", reply)
				}
			}
		})
	}
}
