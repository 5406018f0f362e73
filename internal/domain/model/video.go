package model

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"
)

// StatusPublished is the only status a stored video record carries.
const StatusPublished = "published"

// DefaultVideoMimeType is used when the upload's extension is not recognised.
const DefaultVideoMimeType = "video/mp4"

// DefaultImageMimeType is used for thumbnails with an unknown extension.
const DefaultImageMimeType = "image/jpeg"

var (
	ErrEmptyUser      = errors.New("user handle cannot be empty")
	ErrEmptyVideoID   = errors.New("video ID cannot be empty")
	ErrTitleTooLong   = errors.New("title exceeds maximum length of 255 characters")
	ErrEmptyVariants  = errors.New("at least one quality variant is required")
	ErrInvalidQuality = errors.New("invalid quality label")
)

const maxTitleLength = 255

// QualityVariant describes one transcoded rendition of a video.
type QualityVariant struct {
	Path       string `json:"path"`
	Resolution string `json:"resolution"`
	Bitrate    string `json:"bitrate"`
}

// VideoRecord is the metadata document stored at {user}/metadata/{video_id}.json.
type VideoRecord struct {
	VideoID           string                    `json:"video_id"`
	UserID            string                    `json:"user_id"`
	Title             string                    `json:"title"`
	Description       string                    `json:"description"`
	UploadDate        time.Time                 `json:"upload_date"`
	FilePath          string                    `json:"file_path"`
	FileSize          int64                     `json:"file_size"`
	MimeType          string                    `json:"mime_type"`
	Views             int64                     `json:"views"`
	Likes             int64                     `json:"likes"`
	Dislikes          int64                     `json:"dislikes"`
	Duration          string                    `json:"duration"`
	Status            string                    `json:"status"`
	ThumbnailPath     string                    `json:"thumbnail_path,omitempty"`
	ThumbnailMimeType string                    `json:"thumbnail_mime_type,omitempty"`
	QualityVariants   map[string]QualityVariant `json:"quality_variants,omitempty"`
	HighestQuality    string                    `json:"highest_quality,omitempty"`
}

// NewVideoRecord creates a published record with zeroed counters.
// An empty title falls back to the video ID's file-name stem.
func NewVideoRecord(user, videoID, title, description string, uploadedAt time.Time) (*VideoRecord, error) {
	if user == "" {
		return nil, ErrEmptyUser
	}
	if videoID == "" {
		return nil, ErrEmptyVideoID
	}
	if title == "" {
		title = stemFromVideoID(videoID)
	}
	if len(title) > maxTitleLength {
		return nil, ErrTitleTooLong
	}

	return &VideoRecord{
		VideoID:     videoID,
		UserID:      user,
		Title:       title,
		Description: description,
		UploadDate:  uploadedAt,
		MimeType:    DefaultVideoMimeType,
		Status:      StatusPublished,
	}, nil
}

// stemFromVideoID strips the "YYYY-MM-DD_" prefix.
func stemFromVideoID(videoID string) string {
	if len(videoID) > 11 && videoID[10] == '_' {
		return videoID[11:]
	}
	return videoID
}

// HasThumbnail reports whether a thumbnail has been attached.
func (v *VideoRecord) HasThumbnail() bool {
	return v.ThumbnailPath != ""
}

// HasVariants reports whether any transcoded rendition is registered.
func (v *VideoRecord) HasVariants() bool {
	return len(v.QualityVariants) > 0
}

// MergeVariants folds variants into the record. Existing labels are overwritten
// and HighestQuality is recomputed from the merged set.
func (v *VideoRecord) MergeVariants(variants map[string]QualityVariant) error {
	if len(variants) == 0 {
		return ErrEmptyVariants
	}
	for label := range variants {
		if _, ok := QualityHeight(label); !ok {
			return ErrInvalidQuality
		}
	}

	if v.QualityVariants == nil {
		v.QualityVariants = make(map[string]QualityVariant, len(variants))
	}
	for label, variant := range variants {
		v.QualityVariants[label] = variant
	}
	v.HighestQuality = HighestQuality(v.QualityVariants)
	return nil
}

// QualityHeight parses the numeric part of a label such as "720p".
func QualityHeight(label string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSuffix(label, "p"))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// SortedQualities returns the variant labels ordered by numeric height, ascending.
func SortedQualities(variants map[string]QualityVariant) []string {
	labels := make([]string, 0, len(variants))
	for label := range variants {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		hi, _ := QualityHeight(labels[i])
		hj, _ := QualityHeight(labels[j])
		if hi != hj {
			return hi < hj
		}
		return labels[i] < labels[j]
	})
	return labels
}

// HighestQuality returns the numerically greatest label, or "" for no variants.
func HighestQuality(variants map[string]QualityVariant) string {
	labels := SortedQualities(variants)
	if len(labels) == 0 {
		return ""
	}
	return labels[len(labels)-1]
}

// SortByUploadDateDesc orders records newest first.
func SortByUploadDateDesc(records []*VideoRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].UploadDate.After(records[j].UploadDate)
	})
}
