package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// File is an uploaded file. Name is the storage name on disk or in the bucket,
// OriginalName is what the user sees.
type File struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Name         string    `gorm:"not null;size:255" json:"name"`
	OriginalName string    `gorm:"not null;size:255;index" json:"originalName"`
	Size         int64     `gorm:"not null" json:"size"`
	MimeType     string    `gorm:"not null;size:255" json:"mimeType"`
	Path         string    `gorm:"not null;size:1024" json:"path"`
	FolderID     *string   `gorm:"size:36;index" json:"folderId"`
	Description  string    `gorm:"type:text" json:"description"`
	UserID       string    `gorm:"not null;size:255;index" json:"userId"`
	CreatedAt    time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	Tags []Tag `gorm:"-" json:"tags"`
}

func (f *File) BeforeCreate(*gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}

// TagNames returns the names of the loaded tags in order.
func (f *File) TagNames() []string {
	names := make([]string, 0, len(f.Tags))
	for _, t := range f.Tags {
		names = append(names, t.Name)
	}
	return names
}

// FileType classifies the file as "image", "pdf" or "text" for the organizer service.
func (f *File) FileType() string {
	switch {
	case strings.HasPrefix(f.MimeType, "image/"):
		return "image"
	case f.MimeType == "application/pdf" || strings.HasSuffix(strings.ToLower(f.OriginalName), ".pdf"):
		return "pdf"
	default:
		return "text"
	}
}

// Folder is a node in the folder tree. Path is the "/"-joined chain of ancestor
// names including its own, e.g. "Invoices/2024".
type Folder struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"not null;size:255;index" json:"name"`
	ParentID  *string   `gorm:"size:36;index" json:"parentId"`
	Path      string    `gorm:"not null;size:1024" json:"path"`
	UserID    string    `gorm:"not null;size:255;index" json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (f *Folder) BeforeCreate(*gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}

// Tag names are unique across the store.
type Tag struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null;size:191" json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

func (t *Tag) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// FileTag links a file to a tag. The pair is the primary key.
type FileTag struct {
	FileID string `gorm:"primaryKey;size:36"`
	TagID  string `gorm:"primaryKey;size:36;index"`
}

func (FileTag) TableName() string {
	return "file_tags"
}

// All lists every model for AutoMigrate.
func All() []interface{} {
	return []interface{}{&Folder{}, &File{}, &Tag{}, &FileTag{}}
}
