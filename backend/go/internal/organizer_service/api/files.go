package api

import (
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"file-organizer/backend/go/internal/organizer_service/apperr"
	"file-organizer/backend/go/internal/organizer_service/service"
	"file-organizer/backend/go/internal/organizer_service/store"

	"github.com/gin-gonic/gin"
)

// --- Files ---

// UploadFile 处理 multipart 上传，文件字段名为 file。
func (h *Handler) UploadFile(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		respondError(c, apperr.Validation("No file uploaded"), "No file uploaded")
		return
	}
	content, err := fh.Open()
	if err != nil {
		respondError(c, apperr.Validation("could not open upload: %v", err), "Error uploading file")
		return
	}
	defer content.Close()

	in := service.UploadInput{
		Content:      content,
		Size:         fh.Size,
		OriginalName: fh.Filename,
		MimeType:     fh.Header.Get("Content-Type"),
		Description:  c.PostForm("description"),
	}
	if folderID := strings.TrimSpace(c.PostForm("folderId")); folderID != "" && folderID != "root" {
		in.FolderID = &folderID
	}

	f, err := h.service.Upload(c.Request.Context(), in)
	if err != nil {
		respondError(c, err, "Error uploading file")
		return
	}
	respondOK(c, http.StatusOK, f, "File uploaded successfully")
}

// ListFiles 按查询参数过滤并排序文件。
func (h *Handler) ListFiles(c *gin.Context) {
	filter, err := parseFileFilter(c)
	if err != nil {
		respondError(c, err, "Error retrieving files")
		return
	}
	files, err := h.service.ListFiles(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "Error retrieving files")
		return
	}
	respondOK(c, http.StatusOK, orEmpty(files), "File list retrieved successfully")
}

// GetFile 返回单个文件及其标签。
func (h *Handler) GetFile(c *gin.Context) {
	id := c.Param("id")
	f, err := h.service.GetFile(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Error retrieving file")
		return
	}
	respondOK(c, http.StatusOK, f, fmt.Sprintf("File with ID %s retrieved successfully", id))
}

// DownloadFile 以附件形式返回文件内容。
func (h *Handler) DownloadFile(c *gin.Context) {
	f, rc, err := h.service.OpenFile(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Error downloading file")
		return
	}
	defer rc.Close()

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": f.OriginalName})
	c.DataFromReader(http.StatusOK, f.Size, f.MimeType, rc, map[string]string{
		"Content-Disposition": disposition,
	})
}

// UpdateFileRequest 是 PATCH /files/:id 的请求体，缺失的字段保持不变。
type UpdateFileRequest struct {
	FolderID     optionalString `json:"folderId"`
	FolderPath   *string        `json:"folderPath"`
	Tags         *[]string      `json:"tags"`
	OriginalName *string        `json:"originalName"`
	Description  *string        `json:"description"`
}

// UpdateFile 部分更新文件：移动、改名、描述或替换标签。
func (h *Handler) UpdateFile(c *gin.Context) {
	var req UpdateFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("invalid request body: %v", err), "Error updating file")
		return
	}

	upd := store.FileUpdate{
		FolderPath:   req.FolderPath,
		Tags:         req.Tags,
		OriginalName: req.OriginalName,
		Description:  req.Description,
	}
	if req.FolderID.Set {
		root := ""
		upd.FolderID = &root
		if req.FolderID.Value != nil {
			upd.FolderID = req.FolderID.Value
		}
	}

	f, err := h.service.UpdateFile(c.Request.Context(), c.Param("id"), upd)
	if err != nil {
		respondError(c, err, "Error updating file")
		return
	}
	respondOK(c, http.StatusOK, f, "File updated")
}

// DeleteFile 删除文件记录及其内容。
func (h *Handler) DeleteFile(c *gin.Context) {
	id := c.Param("id")
	if err := h.service.DeleteFile(c.Request.Context(), id); err != nil {
		respondError(c, err, "Error deleting file")
		return
	}
	respondOK(c, http.StatusOK, nil, fmt.Sprintf("File with ID %s deleted successfully", id))
}

// --- Tags ---

// ListTags 返回全部标签。
func (h *Handler) ListTags(c *gin.Context) {
	tags, err := h.service.ListTags(c.Request.Context())
	if err != nil {
		respondError(c, err, "Error retrieving tags")
		return
	}
	respondOK(c, http.StatusOK, orEmpty(tags), "Tags listed")
}

// FileTags 返回文件的标签。
func (h *Handler) FileTags(c *gin.Context) {
	tags, err := h.service.FileTags(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Error retrieving tags")
		return
	}
	respondOK(c, http.StatusOK, orEmpty(tags), "Tags retrieved")
}

// AddTagRequest 是为文件添加标签的请求体。
type AddTagRequest struct {
	TagName string `json:"tagName"`
}

// AddFileTag 为文件添加标签，标签不存在时创建。
func (h *Handler) AddFileTag(c *gin.Context) {
	var req AddTagRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondError(c, err, "Error adding tag")
		return
	}
	if strings.TrimSpace(req.TagName) == "" {
		respondError(c, apperr.Validation("tagName is required"), "tagName is required")
		return
	}

	tag, created, err := h.service.AddFileTag(c.Request.Context(), c.Param("id"), req.TagName)
	if err != nil {
		respondError(c, err, "Error adding tag")
		return
	}
	if !created {
		respondOK(c, http.StatusOK, tag, "Tag already exists for file")
		return
	}
	respondOK(c, http.StatusOK, tag, "Tag added to file")
}

// RemoveFileTag 解除文件与标签的关联。
func (h *Handler) RemoveFileTag(c *gin.Context) {
	if err := h.service.RemoveFileTag(c.Request.Context(), c.Param("id"), c.Param("tagId")); err != nil {
		respondError(c, err, "Error removing tag")
		return
	}
	respondOK(c, http.StatusOK, nil, "Tag removed from file")
}

// --- Query parsing ---

func parseFileFilter(c *gin.Context) (store.FileFilter, error) {
	filter := store.FileFilter{
		Search:      c.Query("search"),
		Description: c.Query("description"),
		Type:        c.Query("type"),
		SortBy:      c.Query("sortBy"),
		SortOrder:   c.Query("sortOrder"),
	}

	if folderID, ok := c.GetQuery("folderId"); ok && folderID != "" {
		if folderID == "root" {
			folderID = ""
		}
		filter.FolderID = &folderID
	}

	var err error
	if filter.DateFrom, err = parseDate(c.Query("dateFrom"), false); err != nil {
		return filter, err
	}
	if filter.DateTo, err = parseDate(c.Query("dateTo"), true); err != nil {
		return filter, err
	}
	if filter.SizeMin, err = parseSize("sizeMin", c.Query("sizeMin")); err != nil {
		return filter, err
	}
	if filter.SizeMax, err = parseSize("sizeMax", c.Query("sizeMax")); err != nil {
		return filter, err
	}

	var tags []string
	if tag := strings.TrimSpace(c.Query("tag")); tag != "" {
		tags = append(tags, tag)
	}
	for _, raw := range c.QueryArray("tags") {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}
	filter.Tags = tags
	return filter, nil
}

// parseDate 接受 RFC3339 或 YYYY-MM-DD。仅有日期的 dateTo 包含当天全天。
func parseDate(raw string, endOfDay bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, apperr.Validation("invalid date %q", raw)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func parseSize(name, raw string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return nil, apperr.Validation("invalid %s %q", name, raw)
	}
	return &n, nil
}
