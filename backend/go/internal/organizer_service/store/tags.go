package store

import (
	"context"
	"fmt"
	"time"

	"file-organizer/backend/go/internal/models"
	"file-organizer/backend/go/internal/organizer_service/apperr"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ListTags returns every tag ordered by name.
func (s *Store) ListTags(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	if err := s.db.WithContext(ctx).Order("name").Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return tags, nil
}

// FileTags returns the tags of one file.
func (s *Store) FileTags(ctx context.Context, fileID string) ([]models.Tag, error) {
	db := s.db.WithContext(ctx)
	if err := db.Select("id").First(&models.File{}, "id = ?", fileID).Error; err != nil {
		return nil, notFoundOr(err, "file %s not found", fileID)
	}
	byFile, err := loadTags(db, []string{fileID})
	if err != nil {
		return nil, err
	}
	return byFile[fileID], nil
}

// AddFileTag links the named tag to the file, creating the tag if needed.
// created is false when the link already existed.
func (s *Store) AddFileTag(ctx context.Context, fileID, tagName string) (tag *models.Tag, created bool, err error) {
	names := NormalizeTagNames([]string{tagName})
	if len(names) == 0 {
		return nil, false, apperr.Validation("tag name is required")
	}

	err = s.transaction(ctx, "add tag", func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&models.File{}, "id = ?", fileID).Error; err != nil {
			return notFoundOr(err, "file %s not found", fileID)
		}
		t, err := findOrCreateTag(tx, names[0])
		if err != nil {
			return err
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.FileTag{FileID: fileID, TagID: t.ID})
		if res.Error != nil {
			return fmt.Errorf("failed to link tag: %w", res.Error)
		}
		tag, created = t, res.RowsAffected > 0
		return nil
	})
	return tag, created, err
}

// RemoveFileTag unlinks a tag from a file. The tag itself is kept.
func (s *Store) RemoveFileTag(ctx context.Context, fileID, tagID string) error {
	res := s.db.WithContext(ctx).Where("file_id = ? AND tag_id = ?", fileID, tagID).Delete(&models.FileTag{})
	if res.Error != nil {
		return apperr.Persistence("failed to remove tag", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("tag %s is not linked to file %s", tagID, fileID)
	}
	return nil
}

// findOrCreateTag inserts the tag if missing. A concurrent insert of the same
// name hits the unique index and is treated as success.
func findOrCreateTag(tx *gorm.DB, name string) (*models.Tag, error) {
	candidate := models.Tag{Name: name}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&candidate).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create tag %q: %w", name, err)
	}

	var tag models.Tag
	if err := tx.Where("name = ?", name).First(&tag).Error; err != nil {
		return nil, fmt.Errorf("failed to load tag %q: %w", name, err)
	}
	return &tag, nil
}

// replaceFileTags deletes every link of the file and links the given names instead.
func replaceFileTags(tx *gorm.DB, fileID string, names []string) error {
	if err := tx.Where("file_id = ?", fileID).Delete(&models.FileTag{}).Error; err != nil {
		return fmt.Errorf("failed to clear tags of file %s: %w", fileID, err)
	}
	for _, name := range NormalizeTagNames(names) {
		tag, err := findOrCreateTag(tx, name)
		if err != nil {
			return err
		}
		link := models.FileTag{FileID: fileID, TagID: tag.ID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error; err != nil {
			return fmt.Errorf("failed to link tag %q: %w", name, err)
		}
	}
	return nil
}

type fileTagRow struct {
	FileID    string
	ID        string
	Name      string
	CreatedAt time.Time
}

// loadTags returns the tags of each file, ordered by name. Every requested id
// gets a non-nil slice.
func loadTags(db *gorm.DB, fileIDs []string) (map[string][]models.Tag, error) {
	out := make(map[string][]models.Tag, len(fileIDs))
	for _, id := range fileIDs {
		out[id] = []models.Tag{}
	}
	if len(fileIDs) == 0 {
		return out, nil
	}

	var rows []fileTagRow
	err := db.Table("file_tags").
		Select("file_tags.file_id, tags.id, tags.name, tags.created_at").
		Joins("JOIN tags ON tags.id = file_tags.tag_id").
		Where("file_tags.file_id IN ?", fileIDs).
		Order("tags.name").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load tags: %w", err)
	}
	for _, r := range rows {
		out[r.FileID] = append(out[r.FileID], models.Tag{ID: r.ID, Name: r.Name, CreatedAt: r.CreatedAt})
	}
	return out, nil
}

func attachTags(db *gorm.DB, files []models.File) error {
	ids := make([]string, len(files))
	for i := range files {
		ids[i] = files[i].ID
	}
	byFile, err := loadTags(db, ids)
	if err != nil {
		return err
	}
	for i := range files {
		files[i].Tags = byFile[files[i].ID]
	}
	return nil
}
