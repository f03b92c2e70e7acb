package models

import "time"

// View is one counted read of an article. IdentityKey is "user:<id>" for
// authenticated readers and "ip:<addr>" otherwise; ViewedOn is the server
// local calendar date, so the unique index allows one row per day.
type View struct {
	ID          uint      `json:"id" gorm:"primarykey"`
	ArticleID   uint      `json:"article_id" gorm:"not null;uniqueIndex:idx_view_article_identity_day"`
	IdentityKey string    `json:"-" gorm:"size:100;not null;uniqueIndex:idx_view_article_identity_day"`
	ViewedOn    string    `json:"viewed_on" gorm:"size:10;not null;uniqueIndex:idx_view_article_identity_day"`
	UserID      *uint     `json:"user_id" gorm:"index"`
	IPAddress   string    `json:"ip_address" gorm:"size:64"`
	ViewedAt    time.Time `json:"viewed_at" gorm:"index"`
}
