package handler

import (
	"io"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/Tushar2380/docuAi/internal/app"
	"github.com/Tushar2380/docuAi/internal/transport/http/middleware"
	"github.com/Tushar2380/docuAi/internal/transport/http/response"
)

type FileHandler struct {
	docs *app.DocumentService
}

func NewFileHandler(docs *app.DocumentService) *FileHandler {
	return &FileHandler{docs: docs}
}

type uploadResult struct {
	Filename   string `json:"filename"`
	Status     string `json:"status"`
	FileID     uint   `json:"file_id,omitempty"`
	ChunkCount int    `json:"chunk_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Upload accepts one or many files under the "files" multipart field and
// reports a per-file outcome; one bad file never fails the batch.
func (h *FileHandler) Upload(c *gin.Context) {
	userID := middleware.UserID(c)

	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "multipart form required")
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		headers = form.File["file"]
	}
	if len(headers) == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "no files in upload")
		return
	}

	items := make([]app.UploadItem, 0, len(headers))
	for _, fh := range headers {
		src, err := fh.Open()
		if err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "read upload failed")
			return
		}
		data, err := io.ReadAll(src)
		_ = src.Close()
		if err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "read upload failed")
			return
		}
		items = append(items, app.UploadItem{
			Filename: filepath.Base(fh.Filename),
			Data:     data,
		})
	}

	outcomes := h.docs.IngestBatch(c.Request.Context(), userID, items)
	results := make([]uploadResult, 0, len(outcomes))
	for _, o := range outcomes {
		r := uploadResult{Filename: o.Filename}
		if o.Err != nil {
			_, _, message := errorStatus(o.Err)
			r.Status = "failed"
			r.Error = message
		} else {
			r.Status = o.File.Status
			r.FileID = o.File.ID
			r.ChunkCount = o.File.ChunkCount
		}
		results = append(results, r)
	}
	response.OK(c, gin.H{"results": results})
}

func (h *FileHandler) List(c *gin.Context) {
	files, err := h.docs.ListFiles(middleware.UserID(c))
	if err != nil {
		renderError(c, err)
		return
	}
	response.OK(c, gin.H{"files": files, "total": len(files)})
}

func (h *FileHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.docs.DeleteFile(c.Request.Context(), middleware.UserID(c), id); err != nil {
		renderError(c, err)
		return
	}
	response.OK(c, nil)
}

func (h *FileHandler) Clear(c *gin.Context) {
	if err := h.docs.ClearTenant(c.Request.Context(), middleware.UserID(c)); err != nil {
		renderError(c, err)
		return
	}
	response.OK(c, nil)
}
