package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/lectern-ai/lectern/internal/pkg/response"
	"github.com/lectern-ai/lectern/internal/service"
)

type ChatHandler struct {
	chat *service.ChatService
}

func NewChatHandler(chat *service.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type chatRequest struct {
	WorkspaceID int64  `json:"workspace_id" binding:"required"`
	Message     string `json:"message" binding:"required"`
}

func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, 400, "workspace_id and message are required")
		return
	}
	answer, err := h.chat.Chat(c.Request.Context(), req.WorkspaceID, req.Message)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"answer": answer})
}

func (h *ChatHandler) History(c *gin.Context) {
	workspaceID, ok := pathID(c, "workspace_id")
	if !ok {
		return
	}
	history, err := h.chat.History(c.Request.Context(), workspaceID)
	if err != nil {
		handleError(c, err)
		return
	}
	out := make([]gin.H, 0, len(history))
	for _, m := range history {
		out = append(out, gin.H{"role": m.Role, "content": m.Content})
	}
	response.Success(c, out)
}
