package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Tushar2380/docuAi/internal/app"
	"github.com/Tushar2380/docuAi/internal/model"
	"github.com/Tushar2380/docuAi/internal/transport/http/middleware"
	"github.com/Tushar2380/docuAi/internal/transport/http/response"
)

type SessionHandler struct {
	chat *app.ChatService
}

func NewSessionHandler(chat *app.ChatService) *SessionHandler {
	return &SessionHandler{chat: chat}
}

type messageView struct {
	ID        uint      `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Sources   []string  `json:"sources,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toMessageViews(messages []model.Message) []messageView {
	views := make([]messageView, 0, len(messages))
	for i := range messages {
		views = append(views, messageView{
			ID:        messages[i].ID,
			Role:      messages[i].Role,
			Content:   messages[i].Content,
			Sources:   messages[i].SourceList(),
			CreatedAt: messages[i].CreatedAt,
		})
	}
	return views
}

func (h *SessionHandler) Create(c *gin.Context) {
	sess, err := h.chat.CreateSession(middleware.UserID(c))
	if err != nil {
		renderError(c, err)
		return
	}
	response.OK(c, sess)
}

func (h *SessionHandler) List(c *gin.Context) {
	sessions, err := h.chat.ListSessions(middleware.UserID(c))
	if err != nil {
		renderError(c, err)
		return
	}
	response.OK(c, gin.H{"sessions": sessions, "total": len(sessions)})
}

func (h *SessionHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	sess, messages, err := h.chat.GetSession(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		renderError(c, err)
		return
	}
	response.OK(c, gin.H{"session": sess, "messages": toMessageViews(messages)})
}

func (h *SessionHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.chat.DeleteSession(c.Request.Context(), middleware.UserID(c), id); err != nil {
		renderError(c, err)
		return
	}
	response.OK(c, nil)
}

func (h *SessionHandler) ClearMessages(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.chat.ClearMessages(c.Request.Context(), middleware.UserID(c), id); err != nil {
		renderError(c, err)
		return
	}
	response.OK(c, nil)
}
