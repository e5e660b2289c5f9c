package trips

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
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

// Generate handles POST /api/trips/generate.
func (h *Handler) Generate(c *gin.Context) {
	var req models.TripRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondError(c, h.logger, err)
		return
	}

	result, err := h.service.GenerateTrip(c.Request.Context(), common.Caller(c), req)
	if err != nil {
		common.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// LinkAnonymous handles POST /api/trips/link-anonymous.
func (h *Handler) LinkAnonymous(c *gin.Context) {
	caller := common.Caller(c)
	if caller.Anonymous() {
		common.RespondError(c, h.logger, models.ErrUnauthenticated)
		return
	}

	n, err := h.service.LinkAnonymousTrips(c.Request.Context(), *caller.UserID, caller.IP)
	if err != nil {
		common.RespondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"linkedTrips": n,
		"message":     LinkMessage(n),
	})
}

// LinkMessage is the human readable outcome of a link call.
func LinkMessage(n int64) string {
	switch n {
	case 0:
		return "No anonymous trips to link"
	case 1:
		return "Linked 1 trip to your account"
	default:
		return fmt.Sprintf("Linked %d trips to your account", n)
	}
}

// Get handles GET /api/trips/:id. Trips are readable by anyone holding the id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := h.tripID(c)
	if !ok {
		return
	}
	trip, err := h.service.GetTrip(c.Request.Context(), id)
	if err != nil {
		common.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, trip)
}

// Delete handles DELETE /api/trips/:id.
func (h *Handler) Delete(c *gin.Context) {
	caller := common.Caller(c)
	if caller.Anonymous() {
		common.RespondError(c, h.logger, models.ErrUnauthenticated)
		return
	}
	id, ok := h.tripID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteTrip(c.Request.Context(), id, *caller.UserID, caller.IsAdmin); err != nil {
		common.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListMine handles GET /api/trips.
func (h *Handler) ListMine(c *gin.Context) {
	caller := common.Caller(c)
	if caller.Anonymous() {
		common.RespondError(c, h.logger, models.ErrUnauthenticated)
		return
	}
	limit, _ := strconv.ParseUint(c.Query("limit"), 10, 64)

	trips, err := h.service.ListUserTrips(c.Request.Context(), *caller.UserID, limit)
	if err != nil {
		common.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trips": trips})
}

// ListAll handles GET /api/admin/trips with optional filters.
func (h *Handler) ListAll(c *gin.Context) {
	limit, _ := strconv.ParseUint(c.Query("limit"), 10, 64)
	offset, _ := strconv.ParseUint(c.Query("offset"), 10, 64)
	filter := models.TripFilter{
		Destination:   c.Query("destination"),
		Budget:        models.BudgetTier(c.Query("budget")),
		TravelType:    models.TravelType(c.Query("travelType")),
		AnonymousOnly: c.Query("anonymous") == "true",
		Limit:         limit,
		Offset:        offset,
	}
	if filter.Budget != "" && !filter.Budget.Valid() {
		common.RespondError(c, h.logger, fmt.Errorf("unknown budget %q: %w", filter.Budget, models.ErrBadRequest))
		return
	}
	if filter.TravelType != "" && !filter.TravelType.Valid() {
		common.RespondError(c, h.logger, fmt.Errorf("unknown travel type %q: %w", filter.TravelType, models.ErrBadRequest))
		return
	}

	trips, err := h.service.ListTrips(c.Request.Context(), filter)
	if err != nil {
		common.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trips": trips})
}

func (h *Handler) tripID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.RespondError(c, h.logger, fmt.Errorf("invalid trip id: %w", models.ErrBadRequest))
		return uuid.Nil, false
	}
	return id, true
}
