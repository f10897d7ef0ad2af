package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"file-organizer/backend/go/internal/organizer_service/apperr"

	"github.com/gin-gonic/gin"
)

// envelope 是所有响应的统一结构。
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func respondOK(c *gin.Context, status int, data interface{}, message string) {
	c.JSON(status, envelope{Success: true, Data: data, Message: message})
}

// respondError 按错误类别选择状态码。
func respondError(c *gin.Context, err error, message string) {
	c.JSON(statusOf(err), envelope{Success: false, Message: message, Error: err.Error()})
}

func statusOf(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// bindOptionalJSON 绑定可选的请求体，空请求体视为 {}。
func bindOptionalJSON(c *gin.Context, out interface{}) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	// 分块传输的空请求体没有 ContentLength，解码时才返回 io.EOF
	if err := c.ShouldBindJSON(out); err != nil && !errors.Is(err, io.EOF) {
		return apperr.Validation("invalid request body: %v", err)
	}
	return nil
}

// optionalString 区分 JSON 中缺失的字段、null 和字符串值。
type optionalString struct {
	Set   bool
	Value *string
}

func (o *optionalString) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
