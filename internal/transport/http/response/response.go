package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Stable envelope codes. Clients branch on these, not on HTTP status alone.
const (
	CodeOK = 0

	CodeBadRequest        = 40000
	CodeUnsupportedFormat = 40010
	CodeFileTooLarge      = 40011
	CodeExtractionFailed  = 40012
	CodeEmptyDocument     = 40013
	CodeUnauthorized      = 40100
	CodeNotFound          = 40400

	CodeInternal         = 50000
	CodeGenerationFailed = 50001
	CodeUnavailable      = 50300
)

type Body struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{Code: CodeOK, Message: "ok", Data: data})
}

func Error(c *gin.Context, status, code int, message string) {
	c.AbortWithStatusJSON(status, Body{Code: code, Message: message})
}
