package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Tushar2380/docuAi/internal/app"
	"github.com/Tushar2380/docuAi/internal/transport/http/response"
)

// errorStatus maps a service error to HTTP status, envelope code and a client
// message. Forbidden renders as NotFound so resource existence is never
// revealed across tenants.
func errorStatus(err error) (int, int, string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		return http.StatusBadRequest, response.CodeBadRequest, "invalid request"
	case errors.Is(err, app.ErrUnsupportedFormat):
		return http.StatusBadRequest, response.CodeUnsupportedFormat, "unsupported file format"
	case errors.Is(err, app.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, response.CodeFileTooLarge, "file too large"
	case errors.Is(err, app.ErrExtractionFailed):
		return http.StatusUnprocessableEntity, response.CodeExtractionFailed, "text extraction failed"
	case errors.Is(err, app.ErrEmptyDocument):
		return http.StatusUnprocessableEntity, response.CodeEmptyDocument, "document has no extractable text"
	case errors.Is(err, app.ErrNotFound), errors.Is(err, app.ErrForbidden):
		return http.StatusNotFound, response.CodeNotFound, "resource not found"
	case errors.Is(err, app.ErrBackendUnavailable), errors.Is(err, app.ErrIndexFailure):
		return http.StatusServiceUnavailable, response.CodeUnavailable, "service temporarily unavailable"
	case errors.Is(err, app.ErrGeneration):
		return http.StatusInternalServerError, response.CodeGenerationFailed, "answer generation failed"
	default:
		return http.StatusInternalServerError, response.CodeInternal, "internal error"
	}
}

func renderError(c *gin.Context, err error) {
	status, code, message := errorStatus(err)
	response.Error(c, status, code, message)
}

func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid id")
		return 0, false
	}
	return uint(id), true
}
