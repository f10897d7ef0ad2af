package store

import (
	"context"

	"file-organizer/backend/go/internal/models"
	"file-organizer/backend/go/internal/organizer_service/apperr"

	"gorm.io/gorm"
)

// GroupApply describes a folder-level suggestion being applied. When FolderID
// is set that folder is renamed to FolderName; otherwise a root folder named
// FolderName is found or created. Files defaults to the files directly inside
// FolderID.
type GroupApply struct {
	FolderID   string
	FileIDs    []string
	FolderName string
	Tags       []string
	UserID     string
}

// ApplyToFile moves the file into the folder chain named by path (created as
// needed) and replaces its tag set.
func (s *Store) ApplyToFile(ctx context.Context, fileID, path string, tags []string, userID string) (*models.File, error) {
	var out *models.File
	err := s.transaction(ctx, "apply suggestion", func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&models.File{}, "id = ?", fileID).Error; err != nil {
			return notFoundOr(err, "file %s not found", fileID)
		}
		folder, err := resolveFolderPath(tx, path, userID)
		if err != nil {
			return err
		}
		if err := replaceFileTags(tx, fileID, tags); err != nil {
			return err
		}
		if err := tx.Model(&models.File{}).Where("id = ?", fileID).Update("folder_id", folderIDOrNil(folder)).Error; err != nil {
			return err
		}
		f, err := getFile(tx, fileID)
		out = f
		return err
	})
	return out, err
}

// ApplyToGroup applies one folder name and tag set to a group of files.
func (s *Store) ApplyToGroup(ctx context.Context, req GroupApply) (*models.Folder, []models.File, error) {
	if req.FolderID == "" && len(req.FileIDs) == 0 {
		return nil, nil, apperr.Validation("folderId or fileIds is required")
	}
	name, err := validFolderName(req.FolderName)
	if err != nil {
		return nil, nil, err
	}

	var (
		folder *models.Folder
		files  []models.File
	)
	err = s.transaction(ctx, "apply folder suggestion", func(tx *gorm.DB) error {
		fileIDs := req.FileIDs
		if req.FolderID != "" {
			f, err := updateFolder(tx, req.FolderID, FolderUpdate{Name: &name})
			if err != nil {
				return err
			}
			folder = f
			if len(fileIDs) == 0 {
				if err := tx.Model(&models.File{}).Where("folder_id = ?", folder.ID).Order("created_at").Pluck("id", &fileIDs).Error; err != nil {
					return err
				}
			}
		} else {
			f, err := resolveFolderPath(tx, name, req.UserID)
			if err != nil {
				return err
			}
			folder = f
		}

		files = make([]models.File, 0, len(fileIDs))
		for _, id := range fileIDs {
			if err := tx.Select("id").First(&models.File{}, "id = ?", id).Error; err != nil {
				return notFoundOr(err, "file %s not found", id)
			}
			if err := replaceFileTags(tx, id, req.Tags); err != nil {
				return err
			}
			if err := tx.Model(&models.File{}).Where("id = ?", id).Update("folder_id", folder.ID).Error; err != nil {
				return err
			}
			f, err := getFile(tx, id)
			if err != nil {
				return err
			}
			files = append(files, *f)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return folder, files, nil
}
