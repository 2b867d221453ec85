package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Tushar2380/docuAi/internal/app"
	"github.com/Tushar2380/docuAi/internal/transport/http/middleware"
	"github.com/Tushar2380/docuAi/internal/transport/http/response"
)

type AskHandler struct {
	chat *app.ChatService
}

func NewAskHandler(chat *app.ChatService) *AskHandler {
	return &AskHandler{chat: chat}
}

type askRequest struct {
	Question  string `json:"question" binding:"required"`
	SessionID uint   `json:"session_id"`
}

func (h *AskHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "question is required")
		return
	}

	result, err := h.chat.Ask(c.Request.Context(), app.AskInput{
		UserID:    middleware.UserID(c),
		SessionID: req.SessionID,
		Question:  req.Question,
	})
	if err != nil {
		renderError(c, err)
		return
	}
	response.OK(c, result)
}
