package api

import (
	"fmt"
	"net/http"

	"file-organizer/backend/go/internal/organizer_service/apperr"
	"file-organizer/backend/go/internal/organizer_service/store"

	"github.com/gin-gonic/gin"
)

// --- Folders ---

// CreateFolderRequest 定义了创建文件夹的请求体。路径由服务端根据父文件夹计算。
type CreateFolderRequest struct {
	Name     string  `json:"name"`
	ParentID *string `json:"parentId"`
}

// CreateFolder 创建文件夹，成功返回 201。
func (h *Handler) CreateFolder(c *gin.Context) {
	var req CreateFolderRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondError(c, err, "Error creating folder")
		return
	}
	if req.ParentID != nil && *req.ParentID == "" {
		req.ParentID = nil
	}

	folder, err := h.service.CreateFolder(c.Request.Context(), req.Name, req.ParentID)
	if err != nil {
		respondError(c, err, "Error creating folder")
		return
	}
	respondOK(c, http.StatusCreated, folder, "Folder created")
}

// ListFolders 按路径顺序列出全部文件夹。
func (h *Handler) ListFolders(c *gin.Context) {
	folders, err := h.service.ListFolders(c.Request.Context())
	if err != nil {
		respondError(c, err, "Error fetching folders")
		return
	}
	respondOK(c, http.StatusOK, orEmpty(folders), "Folders listed")
}

// GetFolder 返回文件夹及其直接子文件夹和文件。
func (h *Handler) GetFolder(c *gin.Context) {
	id := c.Param("id")
	detail, err := h.service.FolderDetail(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Error fetching folder")
		return
	}
	detail.Children = orEmpty(detail.Children)
	detail.Files = orEmpty(detail.Files)
	respondOK(c, http.StatusOK, detail, fmt.Sprintf("Folder with ID %s retrieved", id))
}

// UpdateFolderRequest 是 PATCH /folders/:id 的请求体。parentId 为 null 表示移到根目录。
type UpdateFolderRequest struct {
	Name     *string        `json:"name"`
	ParentID optionalString `json:"parentId"`
}

// UpdateFolder 重命名或移动文件夹。
func (h *Handler) UpdateFolder(c *gin.Context) {
	var req UpdateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("invalid request body: %v", err), "Error updating folder")
		return
	}
	if req.Name == nil && !req.ParentID.Set {
		respondError(c, apperr.Validation("name or parentId is required"), "Error updating folder")
		return
	}

	upd := store.FolderUpdate{Name: req.Name}
	if req.ParentID.Set {
		upd.Move = true
		if req.ParentID.Value != nil && *req.ParentID.Value != "" {
			upd.MoveTo = req.ParentID.Value
		}
	}

	folder, err := h.service.UpdateFolder(c.Request.Context(), c.Param("id"), upd)
	if err != nil {
		respondError(c, err, "Error updating folder")
		return
	}
	respondOK(c, http.StatusOK, folder, "Folder updated")
}

// DeleteFolder 删除文件夹、所有子文件夹及其中的文件。
func (h *Handler) DeleteFolder(c *gin.Context) {
	id := c.Param("id")
	n, err := h.service.DeleteFolder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Error deleting folder")
		return
	}
	respondOK(c, http.StatusOK, gin.H{"deletedFiles": n}, fmt.Sprintf("Folder with ID %s and its children deleted", id))
}
