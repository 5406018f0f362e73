// Package blobkey maps users, videos and asset kinds onto object storage keys.
//
// Folders do not exist in the object store; a user's "folder" is the set of keys
// sharing the "{user}/" prefix, optionally materialised by an empty ".keep" marker.
package blobkey

import (
	"path/filepath"
	"strings"
	"time"
)

// Kind identifies the asset family a key belongs to.
type Kind string

const (
	KindVideo    Kind = "video"
	KindPreview  Kind = "preview"
	KindMetadata Kind = "metadata"
	KindComments Kind = "comments"
	KindProfile  Kind = "profile"
	KindBio      Kind = "bio"
	KindAvatar   Kind = "avatar"
	KindVariant  Kind = "variant"
)

// Sub-namespace folder names under a user prefix.
const (
	FolderVideos   = "videos"
	FolderPreviews = "previews"
	FolderMetadata = "metadata"
	FolderComments = "comments"
	FolderBio      = "bio"
)

// Folders lists every sub-namespace created for a new user, in creation order.
var Folders = []string{FolderVideos, FolderPreviews, FolderMetadata, FolderComments, FolderBio}

const (
	// SystemPrefix holds catalog-wide objects and is never treated as a user.
	SystemPrefix = "system/"
	// CatalogSnapshot is the flat catalog cache blob.
	CatalogSnapshot = "system/cache/videos_metadata_cache.json"

	markerName        = ".keep"
	profileName       = "user_meta.json"
	bioName           = "bio.txt"
	welcomeName       = "welcome.txt"
	commentsSuffix    = "_comments.json"
	metadataExtension = ".json"

	// UserPrefixMarker is the conventional leading character of a user handle.
	UserPrefixMarker = "@"
)

// For returns the canonical key for the given user, asset kind and identifier.
// ext includes the leading dot. For KindAvatar, id is the avatar file name stem
// (for example "avatar" or "default_avatar"). For KindVariant, ext carries the
// quality label and the key always ends in ".mp4".
func For(user string, kind Kind, id, ext string) string {
	switch kind {
	case KindVideo:
		return user + "/" + FolderVideos + "/" + id + ext
	case KindPreview:
		return user + "/" + FolderPreviews + "/" + id + ext
	case KindMetadata:
		return user + "/" + FolderMetadata + "/" + id + metadataExtension
	case KindComments:
		return user + "/" + FolderComments + "/" + id + commentsSuffix
	case KindProfile:
		return user + "/" + FolderBio + "/" + profileName
	case KindBio:
		return user + "/" + FolderBio + "/" + bioName
	case KindAvatar:
		return user + "/" + FolderBio + "/" + id + ext
	case KindVariant:
		return Variant(user, id, ext)
	default:
		return user + "/" + id + ext
	}
}

// Marker returns the placeholder key that materialises a sub-namespace.
func Marker(user, folder string) string {
	return user + "/" + folder + "/" + markerName
}

// SystemMarker returns the placeholder key for a folder under system/.
func SystemMarker(folder string) string {
	if folder == "" {
		return SystemPrefix + markerName
	}
	return SystemPrefix + folder + "/" + markerName
}

// Welcome returns the key of the welcome text written on namespace creation.
func Welcome(user string) string {
	return user + "/" + FolderBio + "/" + welcomeName
}

// Variant returns the key of a transcoded rendition.
func Variant(user, videoID, quality string) string {
	return user + "/" + FolderVideos + "/" + videoID + "_" + quality + ".mp4"
}

// Prefix returns the listing prefix of a user's sub-namespace.
func Prefix(user, folder string) string {
	return user + "/" + folder + "/"
}

// VideoID derives the deterministic video identifier "{YYYY-MM-DD}_{stem}".
// Two uploads of the same file name on the same day map to the same id.
func VideoID(uploadedAt time.Time, filename string) string {
	base := filepath.Base(filename)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return uploadedAt.Format("2006-01-02") + "_" + stem
}

// IsUserPrefix reports whether a top-level listing prefix denotes a user namespace.
func IsUserPrefix(prefix string) bool {
	if strings.HasPrefix(prefix, SystemPrefix) {
		return false
	}
	return strings.HasPrefix(prefix, UserPrefixMarker)
}

// UserFromPrefix strips the trailing delimiter from a top-level prefix.
func UserFromPrefix(prefix string) string {
	return strings.TrimSuffix(prefix, "/")
}

// IsMetadataKey reports whether key is a video record under a metadata folder.
func IsMetadataKey(key string) bool {
	return strings.HasSuffix(key, metadataExtension) && !strings.HasSuffix(key, "/"+markerName)
}

// IsMarker reports whether key is a folder placeholder.
func IsMarker(key string) bool {
	return strings.HasSuffix(key, "/"+markerName)
}
