package api

import (
	"net/http"

	"file-organizer/backend/go/internal/organizer_service/apperr"
	"file-organizer/backend/go/internal/organizer_service/service"
	"file-organizer/backend/go/internal/organizer_service/suggestions"

	"github.com/gin-gonic/gin"
)

// --- Suggestions ---

// SuggestRequest 是单文件和文件夹建议的可选请求体。
type SuggestRequest struct {
	UserContext map[string]interface{} `json:"userContext"`
}

// SuggestBatchRequest 是批量建议的请求体。
type SuggestBatchRequest struct {
	FileIDs     []string               `json:"fileIds"`
	UserContext map[string]interface{} `json:"userContext"`
}

// SuggestFile 为单个文件生成整理建议。
func (h *Handler) SuggestFile(c *gin.Context) {
	var req SuggestRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondError(c, err, "Error suggesting organization")
		return
	}
	res, err := h.service.SuggestFile(c.Request.Context(), c.Param("fileId"), req.UserContext)
	if err != nil {
		respondError(c, err, "Error suggesting organization")
		return
	}
	respondOK(c, http.StatusOK, res, "Organization suggestion generated")
}

// SuggestBatch 一次调用为多个文件生成建议。
func (h *Handler) SuggestBatch(c *gin.Context) {
	var req SuggestBatchRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondError(c, err, "Error suggesting organization")
		return
	}
	res, err := h.service.SuggestBatch(c.Request.Context(), req.FileIDs, req.UserContext)
	if err != nil {
		respondError(c, err, "Error suggesting organization")
		return
	}
	respondOK(c, http.StatusOK, res, "Batch organization suggestions generated")
}

// SuggestFolder 为整个文件夹生成一个建议。
func (h *Handler) SuggestFolder(c *gin.Context) {
	var req SuggestRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondError(c, err, "Error suggesting organization")
		return
	}
	res, err := h.service.SuggestFolder(c.Request.Context(), c.Param("folderId"), req.UserContext)
	if err != nil {
		respondError(c, err, "Error suggesting organization")
		return
	}
	respondOK(c, http.StatusOK, res, "Folder organization suggestion generated")
}

// GetSuggestion 返回最近一次尚未应用的建议。target 由路由决定。
func (h *Handler) GetSuggestion(target suggestions.Target) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := h.service.GetSuggestion(c.Request.Context(), target, c.Param("id"))
		if err != nil {
			respondError(c, err, "Error retrieving suggestion")
			return
		}
		respondOK(c, http.StatusOK, rec, "Suggestion retrieved")
	}
}

// DiscardSuggestion 丢弃一条尚未应用的建议。
func (h *Handler) DiscardSuggestion(target suggestions.Target) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.service.DiscardSuggestion(c.Request.Context(), target, c.Param("id")); err != nil {
			respondError(c, err, "Error discarding suggestion")
			return
		}
		respondOK(c, http.StatusOK, nil, "Suggestion discarded")
	}
}

// --- Apply ---

// ApplyFileRequest 是对单个文件应用建议的请求体。
type ApplyFileRequest struct {
	FileID        string   `json:"fileId"`
	SuggestedPath string   `json:"suggestedPath"`
	Tags          []string `json:"tags"`
}

// ApplyFile 把文件移动到选定的路径并替换标签。
func (h *Handler) ApplyFile(c *gin.Context) {
	var req ApplyFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("invalid request body: %v", err), "Error applying organization")
		return
	}
	f, err := h.service.ApplyFile(c.Request.Context(), service.ApplyFileInput{
		FileID:        req.FileID,
		SuggestedPath: req.SuggestedPath,
		Tags:          req.Tags,
	})
	if err != nil {
		respondError(c, err, "Error applying organization")
		return
	}
	respondOK(c, http.StatusOK, f, "Organization applied")
}

// ApplyFolderRequest 是应用文件夹级建议的请求体。
type ApplyFolderRequest struct {
	FolderID   string   `json:"folderId"`
	FileIDs    []string `json:"fileIds"`
	FolderName string   `json:"folderName"`
	Tags       []string `json:"tags"`
}

// ApplyFolder 创建或重命名文件夹并为组内文件统一打标签。
func (h *Handler) ApplyFolder(c *gin.Context) {
	var req ApplyFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("invalid request body: %v", err), "Error applying organization")
		return
	}
	res, err := h.service.ApplyFolder(c.Request.Context(), service.ApplyFolderInput{
		FolderID:   req.FolderID,
		FileIDs:    req.FileIDs,
		FolderName: req.FolderName,
		Tags:       req.Tags,
	})
	if err != nil {
		respondError(c, err, "Error applying organization")
		return
	}
	res.Files = orEmpty(res.Files)
	respondOK(c, http.StatusOK, res, "Folder organization applied")
}
