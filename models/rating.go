package models

import "time"

type Rating struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	ArticleID uint      `json:"article_id" gorm:"not null;uniqueIndex:idx_rating_article_user"`
	UserID    uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_rating_article_user;index"`
	User      *User     `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Stars     int       `json:"rating" gorm:"not null"`
	Comment   *string   `json:"comment" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RatingStats is the per-article breakdown shown next to the average.
type RatingStats struct {
	Distribution map[int]int64   `json:"distribution"`
	Total        int64           `json:"total"`
	Average      float64         `json:"average"`
	Percentages  map[int]float64 `json:"percentages"`
}
