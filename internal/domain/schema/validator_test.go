package schema

import (
	"errors"
	"testing"
)

func TestNewValidator(t *testing.T) {
	v, err := NewValidator()
	if err != nil {
		t.Fatalf("NewValidator() error = %v", err)
	}
	for _, doc := range []Document{VideoRecord, CommentThread} {
		if _, ok := v.schemas[doc]; !ok {
			t.Errorf("schema %s not compiled", doc)
		}
	}
}

func TestValidator_Validate_VideoRecord(t *testing.T) {
	v := MustNewValidator()

	tests := []struct {
		name        string
		doc         string
		wantErr     bool
		wantInvalid bool
	}{
		{
			name: "complete record",
			doc: `{"video_id":"2024-01-01_intro","user_id":"@alice","title":"Intro","description":"",
				"upload_date":"2024-01-01T09:30:00Z","file_path":"@alice/videos/2024-01-01_intro.mp4",
				"file_size":2048,"mime_type":"video/mp4","views":3,"likes":0,"dislikes":0,
				"duration":"03:15","status":"published",
				"quality_variants":{"720p":{"path":"@alice/videos/2024-01-01_intro_720p.mp4","resolution":"1280x720","bitrate":"3000k"}},
				"highest_quality":"720p"}`,
		},
		{
			name: "minimal record",
			doc:  `{"video_id":"v1","user_id":"@alice","title":"t","upload_date":"2024-01-01T00:00:00Z","file_path":"@alice/videos/v1.mp4"}`,
		},
		{
			name:        "missing video_id",
			doc:         `{"user_id":"@alice","title":"t","upload_date":"2024-01-01T00:00:00Z","file_path":"k"}`,
			wantErr:     true,
			wantInvalid: true,
		},
		{
			name:        "negative views",
			doc:         `{"video_id":"v1","user_id":"@alice","title":"t","upload_date":"2024-01-01T00:00:00Z","file_path":"k","views":-1}`,
			wantErr:     true,
			wantInvalid: true,
		},
		{
			name:        "views as string",
			doc:         `{"video_id":"v1","user_id":"@alice","title":"t","upload_date":"2024-01-01T00:00:00Z","file_path":"k","views":"12"}`,
			wantErr:     true,
			wantInvalid: true,
		},
		{
			name:        "bad quality label",
			doc:         `{"video_id":"v1","user_id":"@alice","title":"t","upload_date":"2024-01-01T00:00:00Z","file_path":"k","quality_variants":{"hd":{"path":"k"}}}`,
			wantErr:     true,
			wantInvalid: true,
		},
		{
			name:    "malformed json",
			doc:     `{"video_id":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(VideoRecord, []byte(tt.doc))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantInvalid && !errors.Is(err, ErrInvalidDocument) {
				t.Errorf("Validate() error = %v, want ErrInvalidDocument", err)
			}
		})
	}
}

func TestValidator_Validate_CommentThread(t *testing.T) {
	v := MustNewValidator()

	valid := `{"video_id":"v1","comments":[{"id":"c1","user_id":"@bob","display_name":"bob","text":"hi",
		"date":"2024-01-01T00:00:00Z","likes":0,"replies":[{"id":"r1","user_id":"@alice","text":"hey"}]}]}`
	if err := v.Validate(CommentThread, []byte(valid)); err != nil {
		t.Errorf("Validate() valid thread error = %v", err)
	}

	empty := `{"video_id":"v1","comments":[]}`
	if err := v.Validate(CommentThread, []byte(empty)); err != nil {
		t.Errorf("Validate() empty thread error = %v", err)
	}

	invalid := `{"video_id":"v1","comments":[{"id":"c1"}]}`
	if err := v.Validate(CommentThread, []byte(invalid)); !errors.Is(err, ErrInvalidDocument) {
		t.Errorf("Validate() error = %v, want ErrInvalidDocument", err)
	}
}

func TestValidator_Validate_UnknownDocument(t *testing.T) {
	v := MustNewValidator()
	if err := v.Validate(Document("nope"), []byte(`{}`)); err == nil {
		t.Error("expected error for unknown document type")
	}
}
