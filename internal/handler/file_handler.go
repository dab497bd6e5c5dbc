package handler

import (
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lectern-ai/lectern/internal/filestore"
	"github.com/lectern-ai/lectern/internal/pkg/response"
)

// FileHandler serves uploaded documents (through the filestore) and
// synthesized audio (from the audio directory).
type FileHandler struct {
	store    filestore.Store
	audioDir string
}

func NewFileHandler(store filestore.Store, audioDir string) *FileHandler {
	return &FileHandler{store: store, audioDir: audioDir}
}

// File serves GET /files/*filepath. Uploads live under
// {workspace_id}/{filename} keys.
func (h *FileHandler) File(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("filepath"), "/")
	if key == "" || strings.Contains(key, "..") {
		response.Error(c, http.StatusBadRequest, "invalid file path")
		return
	}
	reader, err := h.store.Open(c.Request.Context(), key)
	if err != nil {
		response.Error(c, http.StatusNotFound, "file not found")
		return
	}
	defer reader.Close()
	contentType := mime.TypeByExtension(filepath.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, reader)
}

// Audio serves GET /audio/{filename}.
func (h *FileHandler) Audio(c *gin.Context) {
	filename := c.Param("filename")
	if filename == "" || strings.ContainsAny(filename, "/\\") || strings.Contains(filename, "..") {
		response.Error(c, http.StatusBadRequest, "invalid file name")
		return
	}
	c.File(filepath.Join(h.audioDir, filename))
}
