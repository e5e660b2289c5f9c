package usage

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-voyage/internal/app/common"
	"github.com/FACorreiaa/go-voyage/internal/app/models"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// GetStatus reports how many anonymous generations the caller has left.
// Signed-in callers are not metered and get -1 for remaining and limit.
func (h *Handler) GetStatus(c *gin.Context) {
	caller := common.Caller(c)
	if !caller.Anonymous() {
		c.JSON(http.StatusOK, models.LimitStatus{Allowed: true, Remaining: -1, Limit: -1})
		return
	}
	c.JSON(http.StatusOK, h.service.CheckLimit(c.Request.Context(), caller.IP))
}
