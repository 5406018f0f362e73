package model

import "fmt"

// CatalogEntry is a denormalized video record held in the catalog snapshot.
type CatalogEntry struct {
	VideoRecord
	DisplayName         string `json:"display_name"`
	HasThumbnailFlag    bool   `json:"has_thumbnail"`
	ViewsFormatted      string `json:"views_formatted"`
	UploadDateFormatted string `json:"upload_date_formatted"`
}

// NewCatalogEntry enriches a record with its owner's display name and display strings.
func NewCatalogEntry(record VideoRecord, displayName string) CatalogEntry {
	return CatalogEntry{
		VideoRecord:         record,
		DisplayName:         displayName,
		HasThumbnailFlag:    record.HasThumbnail(),
		ViewsFormatted:      FormatViews(record.Views),
		UploadDateFormatted: FormatUploadDate(record),
	}
}

// FormatViews renders a view count such as "999 views" or "12K views".
func FormatViews(views int64) string {
	if views >= 1000 {
		return fmt.Sprintf("%dK views", views/1000)
	}
	return fmt.Sprintf("%d views", views)
}

// FormatUploadDate renders the upload date as dd.mm.yyyy.
func FormatUploadDate(record VideoRecord) string {
	if record.UploadDate.IsZero() {
		return ""
	}
	return record.UploadDate.Format("02.01.2006")
}
