// Package api 把整理服务暴露为 HTTP 接口。
package api

import (
	"file-organizer/backend/go/internal/organizer_service/service"
	"file-organizer/backend/go/pkg/logger"
)

// Handler 封装了所有 API endpoint 的处理函数。
type Handler struct {
	service *service.Service
	log     *logger.Logger
}

// NewHandler 创建一个新的 Handler 实例。
func NewHandler(s *service.Service, log *logger.Logger) *Handler {
	return &Handler{service: s, log: log}
}
