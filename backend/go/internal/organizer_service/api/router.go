package api

import (
	"net/http"

	"file-organizer/backend/go/internal/organizer_service/suggestions"
	"file-organizer/backend/go/pkg/httpmiddleware"
	"file-organizer/backend/go/pkg/logger"
	"file-organizer/backend/go/pkg/ratelimiter"

	"github.com/gin-gonic/gin"
)

// SetupRouter 配置和返回一个 Gin 引擎实例。limiter 为 nil 时不限流。
func SetupRouter(h *Handler, log *logger.Logger, limiter ratelimiter.KeyedRateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(httpmiddleware.RequestLogger(log), httpmiddleware.Recovery(log))
	if limiter != nil {
		r.Use(httpmiddleware.RateLimit(limiter))
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, envelope{Success: false, Message: "Route not found", Error: c.Request.URL.Path})
	})

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/health", func(c *gin.Context) {
			respondOK(c, http.StatusOK, gin.H{"status": "ok"}, "")
		})

		files := apiGroup.Group("/files")
		{
			files.POST("/upload", h.UploadFile)
			files.GET("", h.ListFiles)
			files.GET("/:id", h.GetFile)
			files.GET("/:id/download", h.DownloadFile)
			files.PATCH("/:id", h.UpdateFile)
			files.DELETE("/:id", h.DeleteFile)
			files.GET("/:id/tags", h.FileTags)
			files.POST("/:id/tags", h.AddFileTag)
			files.DELETE("/:id/tags/:tagId", h.RemoveFileTag)
		}

		folders := apiGroup.Group("/folders")
		{
			folders.POST("", h.CreateFolder)
			folders.GET("", h.ListFolders)
			folders.GET("/:id", h.GetFolder)
			folders.PATCH("/:id", h.UpdateFolder)
			folders.DELETE("/:id", h.DeleteFolder)
		}

		apiGroup.GET("/tags", h.ListTags)

		org := apiGroup.Group("/organization")
		{
			org.POST("/suggest/file/:fileId", h.SuggestFile)
			org.POST("/suggest/batch", h.SuggestBatch)
			org.POST("/suggest/folder/:folderId", h.SuggestFolder)
			org.POST("/apply", h.ApplyFile)
			org.POST("/apply/folder", h.ApplyFolder)
			org.GET("/suggestions/file/:id", h.GetSuggestion(suggestions.TargetFile))
			org.DELETE("/suggestions/file/:id", h.DiscardSuggestion(suggestions.TargetFile))
			org.GET("/suggestions/folder/:id", h.GetSuggestion(suggestions.TargetFolder))
			org.DELETE("/suggestions/folder/:id", h.DiscardSuggestion(suggestions.TargetFolder))
		}
	}

	return r
}
