package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"jobPilot/internal/storage"
)

// DocumentHandler 负责下载生成目录里的文档。
// 任务结果里携带的文档链接都指向这个端点。
type DocumentHandler struct {
	outputs *storage.Client
	log     *slog.Logger
}

// NewDocumentHandler 返回 DocumentHandler 实例。
func NewDocumentHandler(outputs *storage.Client, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{outputs: outputs, log: logger}
}

// Download 校验对象键并流式返回文件内容。
func (h *DocumentHandler) Download(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		BadRequest(c, "missing key")
		return
	}
	if !storage.ValidKey(key) {
		BadRequest(c, "invalid key")
		return
	}

	f, err := h.outputs.Open(key)
	if err != nil {
		if storage.IsNotExist(err) {
			NotFound(c, "document not found")
			return
		}
		h.log.Error("open document failed",
			slog.String("key", key),
			slog.Any("error", err),
		)
		Internal(c, "failed to open document")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		Internal(c, "failed to stat document")
		return
	}

	name := path.Base(key)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.DataFromReader(http.StatusOK, info.Size(), contentTypeFor(name), f, nil)
}

func contentTypeFor(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".md", ".markdown":
		return "text/markdown; charset=utf-8"
	case ".txt":
		return "text/plain; charset=utf-8"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
