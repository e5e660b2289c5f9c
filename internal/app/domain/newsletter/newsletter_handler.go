package newsletter

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

var outcomeMessages = map[models.SubscribeOutcome]string{
	models.SubscribeCreated:     "Subscribed successfully!",
	models.SubscribeReactivated: "Welcome back! Your subscription is active again.",
	models.SubscribeExisting:    "Already subscribed!",
}

// Subscribe handles POST /api/newsletter/subscribe.
func (h *Handler) Subscribe(c *gin.Context) {
	var req models.SubscribeRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondError(c, h.logger, err)
		return
	}

	outcome, err := h.service.Subscribe(c.Request.Context(), req.Email)
	if err != nil {
		common.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": outcome, "message": outcomeMessages[outcome]})
}
