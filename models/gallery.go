package models

import "time"

// GalleryImage belongs to an article, or is temporary (ArticleID nil) and
// keyed by SessionKey until it is linked or swept.
type GalleryImage struct {
	ID           uint      `json:"id" gorm:"primarykey"`
	ArticleID    *uint     `json:"article_id" gorm:"index:idx_gallery_article_primary"`
	Filename     string    `json:"filename" gorm:"size:255;not null"`
	OriginalName string    `json:"original_name" gorm:"size:255"`
	Path         string    `json:"path" gorm:"size:500"`
	URL          string    `json:"url" gorm:"size:500"`
	MimeType     string    `json:"mime_type" gorm:"size:100"`
	Size         int64     `json:"size"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	AltText      string    `json:"alt_text" gorm:"size:255"`
	Caption      string    `json:"caption" gorm:"size:500"`
	IsPrimary    bool      `json:"is_primary" gorm:"default:false;index:idx_gallery_article_primary"`
	SortOrder    int       `json:"sort_order" gorm:"default:0"`
	UploadedBy   *uint     `json:"uploaded_by"`
	SessionKey   *string   `json:"session_key,omitempty" gorm:"size:64;index"`
	IsTemporary  bool      `json:"is_temporary" gorm:"default:false;index"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PendingBlobRelease records a storage path whose row is already gone but
// whose file still has to be removed. Rows are deleted once the blob is.
type PendingBlobRelease struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	Path      string    `json:"path" gorm:"size:500;not null"`
	Attempts  int       `json:"attempts" gorm:"default:0"`
	LastError string    `json:"last_error" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
