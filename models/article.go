package models

import (
	"time"

	"gorm.io/gorm"
)

type ArticleStatus string

const (
	StatusDraft     ArticleStatus = "draft"
	StatusPublished ArticleStatus = "published"
)

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

type ArticleType string

const (
	TypeSOP    ArticleType = "SOP"
	TypePolicy ArticleType = "Kebijakan"
	TypeGuide  ArticleType = "Panduan"
)

// Table names referenced by raw SQL in the visibility filter.
const (
	ArticlesTable           = "articles"
	ArticleDivisionsTable   = "article_divisions"
	ArticleDepartmentsTable = "article_departments"
)

type Article struct {
	ID             uint           `json:"id" gorm:"primarykey"`
	Title          string         `json:"title" gorm:"size:255;not null"`
	Slug           string         `json:"slug" gorm:"size:255;uniqueIndex;not null"`
	Description    string         `json:"description" gorm:"type:text"`
	Content        string         `json:"content,omitempty" gorm:"type:text"`
	Type           ArticleType    `json:"type" gorm:"size:32;index;not null"`
	DocumentType   string         `json:"document_type,omitempty" gorm:"size:100"`
	Status         ArticleStatus  `json:"status" gorm:"size:16;index;default:'draft'"`
	Visibility     Visibility     `json:"visibility" gorm:"size:16;index;default:'public'"`
	CategoryID     uint           `json:"category_id" gorm:"index;not null"`
	Category       *Category      `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	AuthorID       uint           `json:"author_id" gorm:"index;not null"`
	Author         *User          `json:"author,omitempty" gorm:"foreignKey:AuthorID"`
	ViewCount      int64          `json:"view_count" gorm:"default:0;not null"`
	Rating         float64        `json:"rating" gorm:"type:numeric(2,1);default:0;not null"`
	RatingCount    int64          `json:"rating_count" gorm:"default:0;not null"`
	GalleryCount   int64          `json:"gallery_count" gorm:"default:0;not null"`
	AttachmentPath string         `json:"attachment_path,omitempty" gorm:"size:500"`
	AttachmentName string         `json:"attachment_name,omitempty" gorm:"size:255"`
	AttachmentSize int64          `json:"attachment_size,omitempty"`
	Divisions      []OrgUnit      `json:"divisions,omitempty" gorm:"many2many:article_divisions;joinForeignKey:ArticleID;joinReferences:OrgUnitID"`
	Departments    []OrgUnit      `json:"departments,omitempty" gorm:"many2many:article_departments;joinForeignKey:ArticleID;joinReferences:OrgUnitID"`
	Gallery        []GalleryImage `json:"gallery,omitempty" gorm:"foreignKey:ArticleID"`
	Ratings        []Rating       `json:"ratings,omitempty" gorm:"foreignKey:ArticleID"`
	PublishedAt    *time.Time     `json:"published_at"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`
}

// ApplyStatus moves the article to status, keeping published_at consistent:
// set on the first transition to published, cleared on draft.
func (a *Article) ApplyStatus(status ArticleStatus, now time.Time) {
	a.Status = status
	switch status {
	case StatusPublished:
		if a.PublishedAt == nil {
			t := now.UTC()
			a.PublishedAt = &t
		}
	case StatusDraft:
		a.PublishedAt = nil
	}
}

// Attachment describes the stored document, or the zero value for none.
func (a *Article) Attachment() Attachment {
	return Attachment{Path: a.AttachmentPath, Name: a.AttachmentName, Size: a.AttachmentSize}
}

func (a *Article) IsPublishedAt(now time.Time) bool {
	return a.Status == StatusPublished && a.PublishedAt != nil && !a.PublishedAt.After(now)
}

// Excerpt is the listing teaser: the description when present, otherwise the
// start of the content.
func (a *Article) Excerpt() string {
	if a.Description != "" {
		return truncate(a.Description, 150)
	}
	return truncate(a.Content, 200)
}

// Attachment is a downloadable document kept with an article.
type Attachment struct {
	Path string
	Name string
	Size int64
}

func (a Attachment) Empty() bool { return a.Path == "" }

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func ValidArticleType(t ArticleType) bool {
	switch t {
	case TypeSOP, TypePolicy, TypeGuide:
		return true
	}
	return false
}
