package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"file-organizer/backend/go/internal/models"
	"file-organizer/backend/go/internal/organizer_service/apperr"
	"file-organizer/backend/go/internal/organizer_service/events"
	"file-organizer/backend/go/internal/organizer_service/store"
	"file-organizer/backend/go/internal/organizer_service/suggestions"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// sniffLen 是 MIME 嗅探读取的字节数，与 mimetype 默认的读取上限一致。
const sniffLen = 3072

// UploadInput 描述一次上传。
type UploadInput struct {
	Content      io.Reader
	Size         int64
	OriginalName string
	MimeType     string
	FolderID     *string
	Description  string
}

// --- Files ---

// Upload 保存文件内容并创建文件记录。
func (s *Service) Upload(ctx context.Context, in UploadInput) (*models.File, error) {
	name := strings.TrimSpace(filepath.Base(in.OriginalName))
	if in.Content == nil || name == "" || name == "." || name == "/" {
		return nil, apperr.Validation("no file uploaded")
	}
	if s.opts.MaxUploadBytes > 0 && in.Size > s.opts.MaxUploadBytes {
		return nil, apperr.Validation("file exceeds the %d byte upload limit", s.opts.MaxUploadBytes)
	}

	content, mimeType, err := sniffMimeType(in.Content, in.MimeType)
	if err != nil {
		return nil, apperr.Validation("could not read upload: %v", err)
	}

	storageName := uuid.NewString() + strings.ToLower(filepath.Ext(name))
	if err := s.blobs.Save(ctx, storageName, content, in.Size, mimeType); err != nil {
		return nil, apperr.Persistence("failed to store upload", err)
	}

	f := &models.File{
		Name:         storageName,
		OriginalName: name,
		Size:         in.Size,
		MimeType:     mimeType,
		Path:         s.opts.PathPrefix + storageName,
		FolderID:     in.FolderID,
		Description:  in.Description,
		UserID:       s.opts.DefaultUser,
	}
	if err := s.store.CreateFile(ctx, f); err != nil {
		if delErr := s.blobs.Delete(ctx, storageName); delErr != nil {
			s.log.WithError(delErr).WithField("file", storageName).Warn("清理孤立的上传内容失败")
		}
		return nil, err
	}

	s.log.WithFields(map[string]interface{}{"file_id": f.ID, "mime_type": f.MimeType, "size": f.Size}).Info("文件已上传")
	s.publish(ctx, events.FileUploaded, f.ID, map[string]interface{}{"originalName": f.OriginalName, "mimeType": f.MimeType})
	return f, nil
}

// sniffMimeType 在声明的类型缺失或为 application/octet-stream 时根据内容推断类型。
// 返回的 reader 仍包含全部内容。
func sniffMimeType(r io.Reader, declared string) (io.Reader, string, error) {
	declared = strings.TrimSpace(strings.Split(declared, ";")[0])
	if declared != "" && declared != "application/octet-stream" {
		return r, declared, nil
	}
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, "", err
	}
	head = head[:n]
	detected := mimetype.Detect(head).String()
	detected = strings.TrimSpace(strings.Split(detected, ";")[0])
	return io.MultiReader(bytes.NewReader(head), r), detected, nil
}

// ListFiles 按过滤条件列出文件。
func (s *Service) ListFiles(ctx context.Context, filter store.FileFilter) ([]models.File, error) {
	return s.store.ListFiles(ctx, filter)
}

// GetFile 返回一个带标签的文件。
func (s *Service) GetFile(ctx context.Context, id string) (*models.File, error) {
	return s.store.GetFile(ctx, id)
}

// UpdateFile 部分更新文件。
func (s *Service) UpdateFile(ctx context.Context, id string, upd store.FileUpdate) (*models.File, error) {
	return s.store.UpdateFile(ctx, id, upd, s.opts.DefaultUser)
}

// OpenFile 返回文件记录和内容，调用方负责关闭内容。
func (s *Service) OpenFile(ctx context.Context, id string) (*models.File, io.ReadCloser, error) {
	f, err := s.store.GetFile(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.blobs.Open(ctx, f.Name)
	if err != nil {
		return nil, nil, apperr.NotFound("content of file %s is missing: %v", id, err)
	}
	return f, rc, nil
}

// DeleteFile 删除文件记录、标签关联和存储的内容。
func (s *Service) DeleteFile(ctx context.Context, id string) error {
	f, err := s.store.DeleteFile(ctx, id)
	if err != nil {
		return err
	}
	s.removeContent(ctx, *f)
	s.publish(ctx, events.FileDeleted, f.ID, map[string]interface{}{"originalName": f.OriginalName})
	return nil
}

// removeContent 删除已删除记录对应的内容和未应用的建议。失败只记录日志。
func (s *Service) removeContent(ctx context.Context, f models.File) {
	if err := s.blobs.Delete(ctx, f.Name); err != nil {
		s.log.WithError(err).WithField("file_id", f.ID).Warn("删除文件内容失败")
	}
	if _, err := s.suggestions.Delete(ctx, suggestions.TargetFile, f.ID); err != nil {
		s.log.WithError(err).WithField("file_id", f.ID).Warn("删除建议记录失败")
	}
}

// --- Tags ---

// ListTags 返回全部标签。
func (s *Service) ListTags(ctx context.Context) ([]models.Tag, error) {
	return s.store.ListTags(ctx)
}

// FileTags 返回文件的标签。
func (s *Service) FileTags(ctx context.Context, fileID string) ([]models.Tag, error) {
	return s.store.FileTags(ctx, fileID)
}

// AddFileTag 为文件添加标签；created 为 false 表示关联已存在。
func (s *Service) AddFileTag(ctx context.Context, fileID, tagName string) (*models.Tag, bool, error) {
	return s.store.AddFileTag(ctx, fileID, tagName)
}

// RemoveFileTag 解除文件与标签的关联。
func (s *Service) RemoveFileTag(ctx context.Context, fileID, tagID string) error {
	return s.store.RemoveFileTag(ctx, fileID, tagID)
}

// --- Folders ---

// CreateFolder 在 parentID 下创建文件夹，parentID 为 nil 表示根目录。
func (s *Service) CreateFolder(ctx context.Context, name string, parentID *string) (*models.Folder, error) {
	return s.store.CreateFolder(ctx, name, parentID, s.opts.DefaultUser)
}

// ListFolders 返回全部文件夹。
func (s *Service) ListFolders(ctx context.Context) ([]models.Folder, error) {
	return s.store.ListFolders(ctx)
}

// FolderDetail 返回文件夹及其直接子文件夹和文件。
func (s *Service) FolderDetail(ctx context.Context, id string) (*store.FolderDetail, error) {
	return s.store.FolderDetail(ctx, id)
}

// UpdateFolder 重命名或移动文件夹。
func (s *Service) UpdateFolder(ctx context.Context, id string, upd store.FolderUpdate) (*models.Folder, error) {
	return s.store.UpdateFolder(ctx, id, upd)
}

// DeleteFolder 删除文件夹子树及其中所有文件，返回被删除的文件数。
func (s *Service) DeleteFolder(ctx context.Context, id string) (int, error) {
	deleted, err := s.store.DeleteFolderTree(ctx, id)
	if err != nil {
		return 0, err
	}
	for _, f := range deleted {
		s.removeContent(ctx, f)
		s.publish(ctx, events.FileDeleted, f.ID, map[string]interface{}{"originalName": f.OriginalName, "folderId": id})
	}
	if _, err := s.suggestions.Delete(ctx, suggestions.TargetFolder, id); err != nil {
		s.log.WithError(err).WithField("folder_id", id).Warn("删除建议记录失败")
	}
	s.log.Info(fmt.Sprintf("已删除文件夹 %s 及 %d 个文件", id, len(deleted)))
	return len(deleted), nil
}
