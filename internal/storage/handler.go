package storage

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"helpdesk/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler serves stored files by key for stores without their own public URL.
type Handler struct {
	files FileStore
	log   *zap.Logger
}

func NewHandler(files FileStore, log *zap.Logger) *Handler {
	return &Handler{files: files, log: log}
}

// RegisterRoutes mounts the file route under prefix, e.g. "/files".
func (h *Handler) RegisterRoutes(router gin.IRouter, prefix string) {
	router.GET(strings.TrimRight(prefix, "/")+"/*key", h.GetFile)
}

func (h *Handler) GetFile(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" {
		response.Fail(c, http.StatusNotFound, "File not found", nil)
		return
	}

	f, contentType, err := h.files.Open(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.Fail(c, http.StatusNotFound, "File not found", nil)
			return
		}
		response.Fail(c, http.StatusBadRequest, "Invalid file key", err)
		return
	}
	defer f.Close()

	c.Header("Content-Type", contentType)
	c.Header("Cache-Control", "private, max-age=3600")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, f); err != nil {
		h.log.Warn("Unable to stream file", zap.String("key", key), zap.Error(err))
	}
}
