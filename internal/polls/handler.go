package polls

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Sujay149/intervue-task/pkg/response"
)

// Handler serves the poll history REST endpoint used by the teacher view.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a polls handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

// History handles GET /polls/history: closed polls with final tallies.
func (h *Handler) History(c *gin.Context) {
	polls, err := h.repo.ListHistory(c.Request.Context())
	if err != nil {
		h.logger.Error("list poll history", zap.Error(err))
		response.Internal(c, "failed to load poll history")
		return
	}
	response.OK(c, polls)
}
