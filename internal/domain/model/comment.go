package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyComment   = errors.New("comment text cannot be empty")
	ErrEmptyAuthor    = errors.New("comment author cannot be empty")
	ErrCommentTooLong = errors.New("comment exceeds maximum length of 5000 characters")
)

const maxCommentLength = 5000

// CommentThread is the document stored at {user}/comments/{video_id}_comments.json.
type CommentThread struct {
	VideoID  string    `json:"video_id"`
	Comments []Comment `json:"comments"`
}

// Comment is a top-level entry in a thread.
type Comment struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Text        string    `json:"text"`
	Date        time.Time `json:"date"`
	Likes       int64     `json:"likes"`
	Replies     []Reply   `json:"replies"`
}

// Reply answers a Comment. Replies cannot be nested.
type Reply struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Text        string    `json:"text"`
	Date        time.Time `json:"date"`
	Likes       int64     `json:"likes"`
}

// NewCommentThread returns an empty thread for a video.
func NewCommentThread(videoID string) *CommentThread {
	return &CommentThread{
		VideoID:  videoID,
		Comments: []Comment{},
	}
}

// NewComment creates a comment with a fresh ID. displayName defaults to author.
func NewComment(author, text, displayName string, now time.Time) (*Comment, error) {
	if err := validateEntry(author, text); err != nil {
		return nil, err
	}
	if displayName == "" {
		displayName = author
	}
	return &Comment{
		ID:          uuid.NewString(),
		UserID:      author,
		DisplayName: displayName,
		Text:        text,
		Date:        now,
		Replies:     []Reply{},
	}, nil
}

// NewReply creates a reply with a fresh ID. displayName defaults to author.
func NewReply(author, text, displayName string, now time.Time) (*Reply, error) {
	if err := validateEntry(author, text); err != nil {
		return nil, err
	}
	if displayName == "" {
		displayName = author
	}
	return &Reply{
		ID:          uuid.NewString(),
		UserID:      author,
		DisplayName: displayName,
		Text:        text,
		Date:        now,
	}, nil
}

// naiveLayouts are accepted for dates written without a zone offset, which older
// threads carry. Such dates are read as UTC.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// entryTime decodes RFC 3339 dates as well as the zone-less layouts above.
type entryTime time.Time

func (e *entryTime) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("comment date: %w", err)
	}
	if raw == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		*e = entryTime(t)
		return nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			*e = entryTime(t)
			return nil
		}
	}
	return fmt.Errorf("comment date %q: unrecognised format", raw)
}

func (c *Comment) UnmarshalJSON(data []byte) error {
	type plain Comment
	aux := struct {
		*plain
		Date entryTime `json:"date"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c.Date = time.Time(aux.Date)
	return nil
}

func (r *Reply) UnmarshalJSON(data []byte) error {
	type plain Reply
	aux := struct {
		*plain
		Date entryTime `json:"date"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.Date = time.Time(aux.Date)
	return nil
}

func validateEntry(author, text string) error {
	if author == "" {
		return ErrEmptyAuthor
	}
	if text == "" {
		return ErrEmptyComment
	}
	if len(text) > maxCommentLength {
		return ErrCommentTooLong
	}
	return nil
}

// Append adds a comment to the end of the thread.
func (t *CommentThread) Append(c Comment) {
	if c.Replies == nil {
		c.Replies = []Reply{}
	}
	t.Comments = append(t.Comments, c)
}

// AppendReply adds r under the comment with the given ID.
// It reports false and leaves the thread untouched when no such comment exists.
func (t *CommentThread) AppendReply(commentID string, r Reply) bool {
	for i := range t.Comments {
		if t.Comments[i].ID == commentID {
			t.Comments[i].Replies = append(t.Comments[i].Replies, r)
			return true
		}
	}
	return false
}

// Normalize replaces nil slices so the thread always serialises with arrays.
func (t *CommentThread) Normalize() {
	if t.Comments == nil {
		t.Comments = []Comment{}
	}
	for i := range t.Comments {
		if t.Comments[i].Replies == nil {
			t.Comments[i].Replies = []Reply{}
		}
	}
}
