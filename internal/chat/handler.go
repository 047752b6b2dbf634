package chat

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Sujay149/intervue-task/pkg/response"
)

const defaultHistoryLimit = 100

// Handler serves chat history for a poll room.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a chat handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

// History handles GET /polls/:id/chat: recent messages, oldest first.
func (h *Handler) History(c *gin.Context) {
	messages, err := h.repo.ListRecent(c.Request.Context(), c.Param("id"), defaultHistoryLimit)
	if err != nil {
		h.logger.Error("list chat history", zap.Error(err))
		response.Internal(c, "failed to load chat history")
		return
	}
	response.OK(c, messages)
}
