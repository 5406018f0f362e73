package model

import (
	"strings"
	"time"
)

// UserStats holds aggregates recomputed from a user's video records.
type UserStats struct {
	VideosCount int   `json:"videos_count"`
	TotalViews  int64 `json:"total_views"`
}

// UserProfile is the document stored at {user}/bio/user_meta.json.
type UserProfile struct {
	UserID          string     `json:"user_id"`
	CreatedAt       time.Time  `json:"created_at"`
	DisplayName     string     `json:"display_name"`
	HasBio          bool       `json:"has_bio"`
	AvatarPath      string     `json:"avatar_path"`
	IsDefaultAvatar bool       `json:"is_default_avatar"`
	LastUpdated     *time.Time `json:"last_updated,omitempty"`
	Stats           UserStats  `json:"stats"`
}

// ProfileView is a profile enriched for reading.
type ProfileView struct {
	UserProfile
	Bio       string `json:"bio"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// NewUserProfile returns the profile written on namespace creation.
func NewUserProfile(user, defaultAvatarKey string, now time.Time) *UserProfile {
	return &UserProfile{
		UserID:          user,
		CreatedAt:       now,
		AvatarPath:      defaultAvatarKey,
		IsDefaultAvatar: true,
	}
}

// ResolvedDisplayName falls back to the handle without its "@" prefix.
func (p *UserProfile) ResolvedDisplayName() string {
	if p != nil && p.DisplayName != "" {
		return p.DisplayName
	}
	if p == nil {
		return ""
	}
	return HandleDisplayName(p.UserID)
}

// HandleDisplayName renders a user handle without its "@" prefix.
func HandleDisplayName(user string) string {
	return strings.TrimPrefix(user, "@")
}

// Touch records a profile modification.
func (p *UserProfile) Touch(now time.Time) {
	p.LastUpdated = &now
}
