package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"file-organizer/backend/go/internal/models"
	"file-organizer/backend/go/internal/organizer_service/apperr"
	"file-organizer/backend/go/internal/organizer_service/events"
	"file-organizer/backend/go/internal/organizer_service/rag/pipeline"
	"file-organizer/backend/go/internal/organizer_service/store"
	"file-organizer/backend/go/internal/organizer_service/suggestions"
)

// ApplyFileInput 是对单个文件应用的建议 (原样或经用户修改)。
type ApplyFileInput struct {
	FileID        string
	SuggestedPath string
	Tags          []string
}

// ApplyFolderInput 是对一组文件应用的文件夹级建议。
type ApplyFolderInput struct {
	FolderID   string
	FileIDs    []string
	FolderName string
	Tags       []string
}

// FolderApplyResult 是文件夹级建议应用后的结果。
type FolderApplyResult struct {
	Folder *models.Folder `json:"folder"`
	Files  []models.File  `json:"files"`
}

// --- Suggestions ---

// SuggestFile 为单个文件生成建议并记录下来。
func (s *Service) SuggestFile(ctx context.Context, fileID string, userContext map[string]interface{}) (*pipeline.FileSuggestion, error) {
	res, err := s.suggester.SuggestFile(ctx, fileID, userContext)
	if err != nil {
		return nil, err
	}
	s.remember(ctx, suggestions.Record{Target: suggestions.TargetFile, ID: res.FileID, Suggestion: res.Suggestion})
	return res, nil
}

// SuggestBatch 为一批文件生成建议，每个结果分别记录。
func (s *Service) SuggestBatch(ctx context.Context, fileIDs []string, userContext map[string]interface{}) (*pipeline.BatchSuggestion, error) {
	res, err := s.suggester.SuggestBatch(ctx, fileIDs, userContext)
	if err != nil {
		return nil, err
	}
	for i, id := range res.FileIDs {
		s.remember(ctx, suggestions.Record{Target: suggestions.TargetFile, ID: id, Suggestion: res.Results[i]})
	}
	return res, nil
}

// SuggestFolder 为整个文件夹生成一个建议。
func (s *Service) SuggestFolder(ctx context.Context, folderID string, userContext map[string]interface{}) (*pipeline.FolderSuggestion, error) {
	res, err := s.suggester.SuggestFolder(ctx, folderID, userContext)
	if err != nil {
		return nil, err
	}
	s.remember(ctx, suggestions.Record{
		Target:     suggestions.TargetFolder,
		ID:         res.FolderID,
		FileIDs:    res.FileIDs,
		Suggestion: res.Suggestion,
	})
	return res, nil
}

// remember 记录建议并发布事件。记录失败不影响请求结果。
func (s *Service) remember(ctx context.Context, rec suggestions.Record) {
	rec.CreatedAt = time.Now().UTC()
	if err := s.suggestions.Put(ctx, rec); err != nil {
		s.log.WithError(err).WithField("target", rec.Target).Warn("记录建议失败")
	}
	s.publish(ctx, events.SuggestionGenerated, rec.ID, map[string]interface{}{"target": string(rec.Target)})
}

// GetSuggestion 返回最近一次为目标生成且尚未应用的建议。
func (s *Service) GetSuggestion(ctx context.Context, target suggestions.Target, id string) (*suggestions.Record, error) {
	rec, err := s.suggestions.Get(ctx, target, id)
	if errors.Is(err, suggestions.ErrNotFound) {
		return nil, apperr.NotFound("no pending suggestion for %s %s", target, id)
	}
	return rec, err
}

// DiscardSuggestion 丢弃一条建议。
func (s *Service) DiscardSuggestion(ctx context.Context, target suggestions.Target, id string) error {
	ok, err := s.suggestions.Delete(ctx, target, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("no pending suggestion for %s %s", target, id)
	}
	return nil
}

// --- Apply ---

// ApplyFile 把文件移动到建议的路径 (按需创建文件夹) 并替换其标签。
func (s *Service) ApplyFile(ctx context.Context, in ApplyFileInput) (*models.File, error) {
	if strings.TrimSpace(in.FileID) == "" {
		return nil, apperr.Validation("fileId is required")
	}
	if strings.TrimSpace(in.SuggestedPath) == "" {
		return nil, apperr.Validation("suggestedPath is required")
	}
	tags := store.NormalizeTagNames(in.Tags)

	f, err := s.store.ApplyToFile(ctx, in.FileID, in.SuggestedPath, tags, s.opts.DefaultUser)
	if err != nil {
		return nil, err
	}
	if _, err := s.suggestions.Delete(ctx, suggestions.TargetFile, f.ID); err != nil {
		s.log.WithError(err).WithField("file_id", f.ID).Warn("删除建议记录失败")
	}
	s.publish(ctx, events.SuggestionApplied, f.ID, map[string]interface{}{
		"target": string(suggestions.TargetFile),
		"path":   in.SuggestedPath,
		"tags":   tags,
	})
	return f, nil
}

// ApplyFolder 创建或重命名文件夹，并把同一组标签应用到组内所有文件。
func (s *Service) ApplyFolder(ctx context.Context, in ApplyFolderInput) (*FolderApplyResult, error) {
	if strings.TrimSpace(in.FolderName) == "" {
		return nil, apperr.Validation("folderName is required")
	}
	tags := store.NormalizeTagNames(in.Tags)

	folder, files, err := s.store.ApplyToGroup(ctx, store.GroupApply{
		FolderID:   in.FolderID,
		FileIDs:    in.FileIDs,
		FolderName: in.FolderName,
		Tags:       tags,
		UserID:     s.opts.DefaultUser,
	})
	if err != nil {
		return nil, err
	}

	if in.FolderID != "" {
		if _, err := s.suggestions.Delete(ctx, suggestions.TargetFolder, in.FolderID); err != nil {
			s.log.WithError(err).WithField("folder_id", in.FolderID).Warn("删除建议记录失败")
		}
	}
	s.publish(ctx, events.SuggestionApplied, folder.ID, map[string]interface{}{
		"target": string(suggestions.TargetFolder),
		"folder": folder.Path,
		"files":  len(files),
		"tags":   tags,
	})
	return &FolderApplyResult{Folder: folder, Files: files}, nil
}
