package service

import (
	"context"
	"fmt"

	"file-organizer/backend/go/internal/organizer_service/store"
)

// ReindexReport 汇总一次重建索引的结果。
type ReindexReport struct {
	Total   int `json:"total"`
	Indexed int `json:"indexed"`
	Failed  int `json:"failed"`
}

// Reindex 把所有文件重新写入向量索引。单个文件失败只计数，不中断。
func (s *Service) Reindex(ctx context.Context) (*ReindexReport, error) {
	files, err := s.store.ListFiles(ctx, store.FileFilter{SortBy: "createdAt", SortOrder: "asc"})
	if err != nil {
		return nil, err
	}

	report := &ReindexReport{Total: len(files)}
	for i := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := s.suggester.Index(ctx, &files[i]); err != nil {
			report.Failed++
			s.log.WithError(err).WithField("file_id", files[i].ID).Warn("重建索引失败")
			continue
		}
		report.Indexed++
	}
	s.log.Info(fmt.Sprintf("重建索引完成: 共 %d 个文件，成功 %d，失败 %d", report.Total, report.Indexed, report.Failed))
	return report, nil
}
