package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hszk-dev/vidshelf/internal/domain/repository"
)

func TestSigner_Sign(t *testing.T) {
	storage := newMemStorage()
	storage.put("@alice/videos/a.mp4", []byte("x"))
	signer := NewSigner(storage)

	tests := []struct {
		name    string
		key     string
		want    string
		wantErr error
	}{
		{
			name: "existing object",
			key:  "@alice/videos/a.mp4",
			want: "https://signed.example/@alice/videos/a.mp4?expires=1h0m0s",
		},
		{
			name:    "missing object",
			key:     "@alice/videos/b.mp4",
			wantErr: repository.ErrObjectNotFound,
		},
		{
			name:    "empty key",
			key:     "",
			wantErr: repository.ErrObjectNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := signer.Sign(context.Background(), tt.key, time.Hour)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Sign() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Sign() = %s, want %s", got, tt.want)
			}
		})
	}
}
