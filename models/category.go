package models

import (
	"time"

	"gorm.io/gorm"
)

type Category struct {
	ID           uint           `json:"id" gorm:"primarykey"`
	Name         string         `json:"name" gorm:"size:255;uniqueIndex;not null"`
	Slug         string         `json:"slug" gorm:"size:255;uniqueIndex;not null"`
	Description  string         `json:"description" gorm:"size:500"`
	Icon         string         `json:"icon" gorm:"size:100"`
	ArticleCount int64          `json:"article_count" gorm:"->;-:migration"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}
