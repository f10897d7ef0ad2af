package store

import (
	"context"
	"fmt"
	"strings"

	"file-organizer/backend/go/internal/models"
	"file-organizer/backend/go/internal/organizer_service/apperr"

	"gorm.io/gorm"
)

// FolderUpdate renames and/or moves a folder. MoveTo is only honoured when Move
// is set; a nil MoveTo moves the folder to the root.
type FolderUpdate struct {
	Name   *string
	Move   bool
	MoveTo *string
}

// FolderDetail is a folder with its direct children and files.
type FolderDetail struct {
	models.Folder
	Children []models.Folder `json:"children"`
	Files    []models.File   `json:"files"`
}

// CreateFolder creates a folder under parentID (nil for the root).
func (s *Store) CreateFolder(ctx context.Context, name string, parentID *string, userID string) (*models.Folder, error) {
	name, err := validFolderName(name)
	if err != nil {
		return nil, err
	}

	var out *models.Folder
	err = s.transaction(ctx, "create folder", func(tx *gorm.DB) error {
		path := name
		if parentID != nil {
			var parent models.Folder
			if err := tx.First(&parent, "id = ?", *parentID).Error; err != nil {
				return notFoundOr(err, "parent folder %s not found", *parentID)
			}
			path = parent.Path + "/" + name
		}
		folder := &models.Folder{Name: name, ParentID: parentID, Path: path, UserID: userID}
		if err := tx.Create(folder).Error; err != nil {
			return err
		}
		out = folder
		return nil
	})
	return out, err
}

// GetFolder returns one folder.
func (s *Store) GetFolder(ctx context.Context, id string) (*models.Folder, error) {
	var f models.Folder
	if err := s.db.WithContext(ctx).First(&f, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "folder %s not found", id)
	}
	return &f, nil
}

// FolderDetail returns a folder with its direct children and files.
func (s *Store) FolderDetail(ctx context.Context, id string) (*FolderDetail, error) {
	folder, err := s.GetFolder(ctx, id)
	if err != nil {
		return nil, err
	}
	var children []models.Folder
	if err := s.db.WithContext(ctx).Where("parent_id = ?", id).Order("name").Find(&children).Error; err != nil {
		return nil, fmt.Errorf("failed to list children of folder %s: %w", id, err)
	}
	files, err := s.FilesInFolder(ctx, id)
	if err != nil {
		return nil, err
	}
	return &FolderDetail{Folder: *folder, Children: children, Files: files}, nil
}

// ListFolders returns every folder ordered by path.
func (s *Store) ListFolders(ctx context.Context) ([]models.Folder, error) {
	var folders []models.Folder
	if err := s.db.WithContext(ctx).Order("path").Find(&folders).Error; err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	return folders, nil
}

// ResolveFolderPath finds or creates every segment of path and returns the
// last one. An empty path resolves to the root (nil).
func (s *Store) ResolveFolderPath(ctx context.Context, path, userID string) (*models.Folder, error) {
	var out *models.Folder
	err := s.transaction(ctx, "resolve folder path", func(tx *gorm.DB) error {
		f, err := resolveFolderPath(tx, path, userID)
		out = f
		return err
	})
	return out, err
}

func resolveFolderPath(tx *gorm.DB, path, userID string) (*models.Folder, error) {
	var parent *models.Folder
	for _, name := range SplitPath(path) {
		q := tx.Where("name = ?", name)
		if parent == nil {
			q = q.Where("parent_id IS NULL")
		} else {
			q = q.Where("parent_id = ?", parent.ID)
		}

		var existing []models.Folder
		if err := q.Order("created_at").Limit(1).Find(&existing).Error; err != nil {
			return nil, fmt.Errorf("failed to look up folder %q: %w", name, err)
		}
		if len(existing) == 1 {
			parent = &existing[0]
			continue
		}

		folder := &models.Folder{Name: name, Path: name, UserID: userID}
		if parent != nil {
			folder.ParentID = &parent.ID
			folder.Path = parent.Path + "/" + name
		}
		if err := tx.Create(folder).Error; err != nil {
			return nil, fmt.Errorf("failed to create folder %q: %w", folder.Path, err)
		}
		parent = folder
	}
	return parent, nil
}

// UpdateFolder renames and/or moves a folder and recomputes the materialized
// path of every descendant in the same transaction.
func (s *Store) UpdateFolder(ctx context.Context, id string, upd FolderUpdate) (*models.Folder, error) {
	var out *models.Folder
	err := s.transaction(ctx, "update folder", func(tx *gorm.DB) error {
		f, err := updateFolder(tx, id, upd)
		out = f
		return err
	})
	return out, err
}

func updateFolder(tx *gorm.DB, id string, upd FolderUpdate) (*models.Folder, error) {
	var folder models.Folder
	if err := tx.First(&folder, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "folder %s not found", id)
	}

	if upd.Name != nil {
		name, err := validFolderName(*upd.Name)
		if err != nil {
			return nil, err
		}
		folder.Name = name
	}

	parentPath := ""
	if upd.Move {
		folder.ParentID = upd.MoveTo
	}
	if folder.ParentID != nil {
		parent, err := checkedParent(tx, id, *folder.ParentID)
		if err != nil {
			return nil, err
		}
		parentPath = parent.Path
	}

	folder.Path = folder.Name
	if parentPath != "" {
		folder.Path = parentPath + "/" + folder.Name
	}
	err := tx.Model(&models.Folder{}).Where("id = ?", id).Updates(map[string]interface{}{
		"name":      folder.Name,
		"parent_id": folder.ParentID,
		"path":      folder.Path,
	}).Error
	if err != nil {
		return nil, err
	}

	if err := recomputeDescendantPaths(tx, &folder); err != nil {
		return nil, err
	}
	return &folder, nil
}

// checkedParent loads the prospective parent and rejects moving a folder into
// itself or one of its descendants.
func checkedParent(tx *gorm.DB, folderID, parentID string) (*models.Folder, error) {
	var parent models.Folder
	if err := tx.First(&parent, "id = ?", parentID).Error; err != nil {
		return nil, notFoundOr(err, "parent folder %s not found", parentID)
	}

	cur := &parent
	for {
		if cur.ID == folderID {
			return nil, apperr.Validation("cannot move folder %s into itself or a descendant", folderID)
		}
		if cur.ParentID == nil {
			break
		}
		var next models.Folder
		if err := tx.First(&next, "id = ?", *cur.ParentID).Error; err != nil {
			return nil, fmt.Errorf("failed to walk ancestors of %s: %w", parentID, err)
		}
		cur = &next
	}
	return &parent, nil
}

// recomputeDescendantPaths walks the subtree breadth-first with an explicit queue.
func recomputeDescendantPaths(tx *gorm.DB, root *models.Folder) error {
	queue := []models.Folder{*root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		var children []models.Folder
		if err := tx.Where("parent_id = ?", cur.ID).Find(&children).Error; err != nil {
			return fmt.Errorf("failed to list children of %s: %w", cur.ID, err)
		}
		for _, child := range children {
			child.Path = cur.Path + "/" + child.Name
			if err := tx.Model(&models.Folder{}).Where("id = ?", child.ID).Update("path", child.Path).Error; err != nil {
				return fmt.Errorf("failed to update path of %s: %w", child.ID, err)
			}
			queue = append(queue, child)
		}
	}
	return nil
}

// DeleteFolderTree deletes the folder, every descendant folder and every file
// inside them. Tag links go first, then files, then folders bottom-up. The
// deleted files are returned so their stored bytes can be removed.
func (s *Store) DeleteFolderTree(ctx context.Context, id string) ([]models.File, error) {
	var deletedFiles []models.File
	err := s.transaction(ctx, "delete folder", func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&models.Folder{}, "id = ?", id).Error; err != nil {
			return notFoundOr(err, "folder %s not found", id)
		}

		// Breadth-first order, so reversing it yields children before parents.
		order := []string{id}
		for i := 0; i < len(order); i++ {
			var childIDs []string
			if err := tx.Model(&models.Folder{}).Where("parent_id = ?", order[i]).Pluck("id", &childIDs).Error; err != nil {
				return err
			}
			order = append(order, childIDs...)
		}

		if err := tx.Where("folder_id IN ?", order).Find(&deletedFiles).Error; err != nil {
			return err
		}
		if len(deletedFiles) > 0 {
			fileIDs := make([]string, len(deletedFiles))
			for i, f := range deletedFiles {
				fileIDs[i] = f.ID
			}
			if err := tx.Where("file_id IN ?", fileIDs).Delete(&models.FileTag{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", fileIDs).Delete(&models.File{}).Error; err != nil {
				return err
			}
		}

		for i := len(order) - 1; i >= 0; i-- {
			if err := tx.Delete(&models.Folder{}, "id = ?", order[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return deletedFiles, err
}

func validFolderName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperr.Validation("folder name is required")
	}
	if strings.Contains(name, "/") {
		return "", apperr.Validation("folder name must not contain '/'")
	}
	return name, nil
}
