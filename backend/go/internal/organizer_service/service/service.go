// Package service 实现文件整理服务的用例：文件与文件夹管理、生成整理建议以及应用建议。
package service

import (
	"context"

	"file-organizer/backend/go/internal/models"
	"file-organizer/backend/go/internal/organizer_service/blob"
	"file-organizer/backend/go/internal/organizer_service/events"
	"file-organizer/backend/go/internal/organizer_service/rag/pipeline"
	"file-organizer/backend/go/internal/organizer_service/store"
	"file-organizer/backend/go/internal/organizer_service/suggestions"
	"file-organizer/backend/go/pkg/logger"
)

// Suggester 是建议流水线对外暴露的操作。
type Suggester interface {
	SuggestFile(ctx context.Context, fileID string, userContext map[string]interface{}) (*pipeline.FileSuggestion, error)
	SuggestBatch(ctx context.Context, fileIDs []string, userContext map[string]interface{}) (*pipeline.BatchSuggestion, error)
	SuggestFolder(ctx context.Context, folderID string, userContext map[string]interface{}) (*pipeline.FolderSuggestion, error)
	Index(ctx context.Context, f *models.File) error
}

// Options 是与请求无关的服务参数。
type Options struct {
	DefaultUser    string
	MaxUploadBytes int64
	// PathPrefix 拼在存储名前面作为记录中的 path，例如 "/uploads/"。
	PathPrefix string
}

// Service 封装了业务逻辑。
type Service struct {
	store       *store.Store
	blobs       blob.Storage
	suggester   Suggester
	suggestions suggestions.Store
	events      events.Publisher
	opts        Options
	log         *logger.Logger
}

// NewService 创建一个新的 Service 实例。events 为 nil 时不发布事件。
func NewService(
	st *store.Store,
	blobs blob.Storage,
	suggester Suggester,
	sugg suggestions.Store,
	pub events.Publisher,
	opts Options,
	log *logger.Logger,
) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	if opts.PathPrefix == "" {
		opts.PathPrefix = "/uploads/"
	}
	return &Service{
		store:       st,
		blobs:       blobs,
		suggester:   suggester,
		suggestions: sugg,
		events:      pub,
		opts:        opts,
		log:         log,
	}
}

// publish 发布事件；失败只记录日志。
func (s *Service) publish(ctx context.Context, eventType, subject string, data map[string]interface{}) {
	if err := s.events.Publish(ctx, events.New(eventType, subject, data)); err != nil {
		s.log.WithError(err).WithField("event", eventType).Warn("事件发布失败")
	}
}
