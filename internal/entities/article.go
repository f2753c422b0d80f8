package entities

import (
	"time"

	"github.com/google/uuid"
)

// ArticleObjectType names articles in item target references.
const ArticleObjectType = "article"

type ArticleAuthor struct {
	Name  string `gorm:"size:255" json:"name" form:"name" label:"Author name"`
	Email string `gorm:"size:255" json:"email,omitempty" form:"email" label:"Author email" validate:"omitempty,email"`
}

// Article is the object produced by the article importer.
type Article struct {
	ID          string        `gorm:"primaryKey;size:36" json:"id"`
	Title       string        `gorm:"size:512" json:"title" form:"title" label:"Title" validate:"required,max=512"`
	Link        string        `gorm:"index;size:2048" json:"link" form:"link" label:"Link" validate:"omitempty,url"`
	Summary     string        `gorm:"type:text" json:"summary,omitempty" form:"summary" label:"Summary"`
	Content     string        `gorm:"type:text" json:"content,omitempty" form:"content" label:"Content"`
	Category    string        `gorm:"size:255" json:"category,omitempty" form:"category" label:"Category"`
	ImageURL    string        `gorm:"size:2048" json:"image_url,omitempty" form:"image_url" label:"Image" validate:"omitempty,url"`
	Rating      float64       `json:"rating" form:"rating" label:"Rating" validate:"gte=0,lte=5"`
	Featured    bool          `json:"featured" form:"featured" label:"Featured"`
	Author      ArticleAuthor `gorm:"embedded;embeddedPrefix:author_" json:"author" form:"author" label:"Author"`
	PublishedAt *time.Time    `json:"published_at,omitempty" form:"published_at" label:"Published at"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func (Article) TableName() string {
	return "articles"
}

// NewArticle returns an unsaved article with a fresh id.
func NewArticle() *Article {
	return &Article{ID: uuid.NewString()}
}

func (a *Article) ObjectID() string {
	return a.ID
}

func (a *Article) ObjectType() string {
	return ArticleObjectType
}

// IsNew reports whether the article was never written to the database.
func (a *Article) IsNew() bool {
	return a.CreatedAt.IsZero()
}
