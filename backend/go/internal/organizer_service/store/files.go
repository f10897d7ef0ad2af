package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"file-organizer/backend/go/internal/models"
	"file-organizer/backend/go/internal/organizer_service/apperr"

	"gorm.io/gorm"
)

// FileFilter holds the list predicates. Zero values mean "no constraint".
type FileFilter struct {
	// FolderID scopes the listing; a pointer to "" selects files without a folder.
	FolderID    *string
	Search      string
	Description string
	// Type is one of image, text, pdf, other or all.
	Type     string
	DateFrom *time.Time
	DateTo   *time.Time
	SizeMin  *int64
	SizeMax  *int64
	// Tags matches files carrying any of the tags, by id or by name.
	Tags      []string
	SortBy    string
	SortOrder string
}

var sortColumns = map[string]string{
	"":             "created_at",
	"createdAt":    "created_at",
	"size":         "size",
	"originalName": "original_name",
	"name":         "original_name",
}

// FileUpdate is a partial update. Nil fields are left alone.
type FileUpdate struct {
	// FolderID moves the file; "" moves it to the root.
	FolderID *string
	// FolderPath resolves or creates the folder chain and wins over FolderID.
	FolderPath   *string
	Tags         *[]string
	OriginalName *string
	Description  *string
}

// CreateFile inserts a new file record.
func (s *Store) CreateFile(ctx context.Context, f *models.File) error {
	if f.FolderID != nil {
		if err := s.db.WithContext(ctx).Select("id").First(&models.Folder{}, "id = ?", *f.FolderID).Error; err != nil {
			return notFoundOr(err, "folder %s not found", *f.FolderID)
		}
	}
	if err := s.db.WithContext(ctx).Create(f).Error; err != nil {
		return apperr.Persistence("failed to create file", err)
	}
	f.Tags = []models.Tag{}
	return nil
}

// GetFile returns one file with its tags.
func (s *Store) GetFile(ctx context.Context, id string) (*models.File, error) {
	return getFile(s.db.WithContext(ctx), id)
}

func getFile(db *gorm.DB, id string) (*models.File, error) {
	var f models.File
	if err := db.First(&f, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "file %s not found", id)
	}
	byFile, err := loadTags(db, []string{f.ID})
	if err != nil {
		return nil, err
	}
	f.Tags = byFile[f.ID]
	return &f, nil
}

// ListFiles returns the files matching filter, with tags.
func (s *Store) ListFiles(ctx context.Context, filter FileFilter) ([]models.File, error) {
	db := s.db.WithContext(ctx)
	q := db.Model(&models.File{})

	if filter.FolderID != nil {
		if *filter.FolderID == "" {
			q = q.Where("folder_id IS NULL")
		} else {
			q = q.Where("folder_id = ?", *filter.FolderID)
		}
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		q = q.Where("LOWER(original_name) LIKE ? OR LOWER(name) LIKE ?", like, like)
	}
	if filter.Description != "" {
		q = q.Where("LOWER(description) LIKE ?", "%"+strings.ToLower(filter.Description)+"%")
	}
	switch filter.Type {
	case "", "all":
	case "image":
		q = q.Where("mime_type LIKE ?", "image/%")
	case "text":
		q = q.Where("mime_type LIKE ?", "text/%")
	case "pdf":
		q = q.Where("mime_type = ?", "application/pdf")
	case "other":
		q = q.Where("mime_type NOT LIKE ? AND mime_type NOT LIKE ? AND mime_type <> ?", "image/%", "text/%", "application/pdf")
	default:
		return nil, apperr.Validation("unknown type filter %q", filter.Type)
	}
	if filter.DateFrom != nil {
		q = q.Where("created_at >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		q = q.Where("created_at <= ?", *filter.DateTo)
	}
	if filter.SizeMin != nil {
		q = q.Where("size >= ?", *filter.SizeMin)
	}
	if filter.SizeMax != nil {
		q = q.Where("size <= ?", *filter.SizeMax)
	}
	if len(filter.Tags) > 0 {
		sub := db.Table("file_tags").
			Select("file_tags.file_id").
			Joins("JOIN tags ON tags.id = file_tags.tag_id").
			Where("tags.id IN ? OR tags.name IN ?", filter.Tags, filter.Tags)
		q = q.Where("id IN (?)", sub)
	}

	column, ok := sortColumns[filter.SortBy]
	if !ok {
		return nil, apperr.Validation("unknown sortBy %q", filter.SortBy)
	}
	order := strings.ToLower(filter.SortOrder)
	switch order {
	case "":
		order = "desc"
	case "asc", "desc":
	default:
		return nil, apperr.Validation("unknown sortOrder %q", filter.SortOrder)
	}
	q = q.Order(fmt.Sprintf("%s %s", column, order)).Order("id")

	var files []models.File
	if err := q.Find(&files).Error; err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	if err := attachTags(db, files); err != nil {
		return nil, err
	}
	return files, nil
}

// FilesInFolder returns the files directly inside folderID, oldest first.
func (s *Store) FilesInFolder(ctx context.Context, folderID string) ([]models.File, error) {
	db := s.db.WithContext(ctx)
	var files []models.File
	if err := db.Where("folder_id = ?", folderID).Order("created_at").Order("id").Find(&files).Error; err != nil {
		return nil, fmt.Errorf("failed to list files of folder %s: %w", folderID, err)
	}
	if err := attachTags(db, files); err != nil {
		return nil, err
	}
	return files, nil
}

// UpdateFile applies a partial update and returns the updated record.
func (s *Store) UpdateFile(ctx context.Context, id string, upd FileUpdate, userID string) (*models.File, error) {
	var out *models.File
	err := s.transaction(ctx, "update file", func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&models.File{}, "id = ?", id).Error; err != nil {
			return notFoundOr(err, "file %s not found", id)
		}

		changes := map[string]interface{}{}
		switch {
		case upd.FolderPath != nil:
			folder, err := resolveFolderPath(tx, *upd.FolderPath, userID)
			if err != nil {
				return err
			}
			changes["folder_id"] = folderIDOrNil(folder)
		case upd.FolderID != nil:
			if *upd.FolderID == "" {
				changes["folder_id"] = nil
			} else {
				if err := tx.Select("id").First(&models.Folder{}, "id = ?", *upd.FolderID).Error; err != nil {
					return notFoundOr(err, "folder %s not found", *upd.FolderID)
				}
				changes["folder_id"] = *upd.FolderID
			}
		}
		if upd.OriginalName != nil {
			name := strings.TrimSpace(*upd.OriginalName)
			if name == "" {
				return apperr.Validation("originalName must not be empty")
			}
			changes["original_name"] = name
		}
		if upd.Description != nil {
			changes["description"] = *upd.Description
		}
		if len(changes) > 0 {
			if err := tx.Model(&models.File{}).Where("id = ?", id).Updates(changes).Error; err != nil {
				return err
			}
		}
		if upd.Tags != nil {
			if err := replaceFileTags(tx, id, *upd.Tags); err != nil {
				return err
			}
		}

		f, err := getFile(tx, id)
		out = f
		return err
	})
	return out, err
}

// DeleteFile removes the file and its tag links and returns the deleted record.
func (s *Store) DeleteFile(ctx context.Context, id string) (*models.File, error) {
	var deleted models.File
	err := s.transaction(ctx, "delete file", func(tx *gorm.DB) error {
		if err := tx.First(&deleted, "id = ?", id).Error; err != nil {
			return notFoundOr(err, "file %s not found", id)
		}
		if err := tx.Where("file_id = ?", id).Delete(&models.FileTag{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.File{}, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &deleted, nil
}

func folderIDOrNil(f *models.Folder) interface{} {
	if f == nil {
		return nil
	}
	return f.ID
}
