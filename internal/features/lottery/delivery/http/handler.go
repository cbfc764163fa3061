package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"lottery-bot-backend/internal/common/middleware"
	"lottery-bot-backend/internal/features/lottery/models"
	"lottery-bot-backend/internal/features/lottery/repository"
	"lottery-bot-backend/internal/features/lottery/service"
)

type LotteryHandler struct {
	service service.LotteryService
}

func NewLotteryHandler(service service.LotteryService) *LotteryHandler {
	return &LotteryHandler{service: service}
}

func (h *LotteryHandler) RegisterRoutes(router *gin.RouterGroup) {
	lotteries := router.Group("/lotteries")
	{
		lotteries.POST("", h.create)
		lotteries.GET("/me", h.getMine)
		lotteries.GET("/:id", h.getByID)
		lotteries.POST("/:id/publish", h.publish)
		lotteries.POST("/:id/cancel", h.cancel)

		lotteries.POST("/:id/tiers", h.addTier)
		lotteries.PUT("/:id/tiers/:tierId", h.updateTier)
		lotteries.DELETE("/:id/tiers/:tierId", h.removeTier)

		lotteries.POST("/:id/events", h.recordEvent)
		lotteries.GET("/:id/participants", h.getParticipants)
		lotteries.GET("/:id/result", h.getResult)
	}
}

// @Summary Create a lottery
// @Description Creates a lottery in draft status, optionally with prize tiers
// @Tags lotteries
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param input body models.LotteryCreate true "Lottery parameters"
// @Success 201 {object} models.LotteryResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /lotteries [post]
func (h *LotteryHandler) create(c *gin.Context) {
	var input models.LotteryCreate
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.service.Create(c.Request.Context(), middleware.UserID(c), &input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// @Summary Get lottery by ID
// @Tags lotteries
// @Produce json
// @Security TelegramInitData
// @Param id path string true "Lottery ID"
// @Success 200 {object} models.LotteryResponse
// @Failure 404 {object} map[string]string "Not found"
// @Router /lotteries/{id} [get]
func (h *LotteryHandler) getByID(c *gin.Context) {
	resp, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary List my lotteries
// @Tags lotteries
// @Produce json
// @Security TelegramInitData
// @Success 200 {array} models.LotteryResponse
// @Router /lotteries/me [get]
func (h *LotteryHandler) getMine(c *gin.Context) {
	resp, err := h.service.GetByCreator(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Publish a draft lottery
// @Description Opens the lottery for participation and arms its draw trigger
// @Tags lotteries
// @Security TelegramInitData
// @Param id path string true "Lottery ID"
// @Success 204
// @Failure 404 {object} map[string]string "Not found"
// @Failure 409 {object} map[string]string "Lifecycle conflict"
// @Router /lotteries/{id}/publish [post]
func (h *LotteryHandler) publish(c *gin.Context) {
	if err := h.service.Publish(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary Cancel a lottery
// @Description Cancels a draft or open lottery. Refused once drawing has started.
// @Tags lotteries
// @Security TelegramInitData
// @Param id path string true "Lottery ID"
// @Success 204
// @Failure 404 {object} map[string]string "Not found"
// @Failure 409 {object} map[string]string "Too late to cancel"
// @Router /lotteries/{id}/cancel [post]
func (h *LotteryHandler) cancel(c *gin.Context) {
	if err := h.service.Cancel(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary Add a prize tier
// @Tags lotteries
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param id path string true "Lottery ID"
// @Param input body models.PrizeTierCreate true "Tier parameters"
// @Success 201 {object} models.PrizeTier
// @Failure 409 {object} map[string]string "Tiers frozen"
// @Router /lotteries/{id}/tiers [post]
func (h *LotteryHandler) addTier(c *gin.Context) {
	var input models.PrizeTierCreate
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tier, err := h.service.AddTier(c.Request.Context(), middleware.UserID(c), c.Param("id"), &input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tier)
}

// @Summary Update a prize tier
// @Tags lotteries
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param id path string true "Lottery ID"
// @Param tierId path string true "Tier ID"
// @Param input body models.PrizeTierCreate true "Tier parameters"
// @Success 200 {object} models.PrizeTier
// @Router /lotteries/{id}/tiers/{tierId} [put]
func (h *LotteryHandler) updateTier(c *gin.Context) {
	var input models.PrizeTierCreate
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tier, err := h.service.UpdateTier(c.Request.Context(), middleware.UserID(c), c.Param("id"), c.Param("tierId"), &input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tier)
}

// @Summary Remove a prize tier
// @Tags lotteries
// @Security TelegramInitData
// @Param id path string true "Lottery ID"
// @Param tierId path string true "Tier ID"
// @Success 204
// @Router /lotteries/{id}/tiers/{tierId} [delete]
func (h *LotteryHandler) removeTier(c *gin.Context) {
	if err := h.service.RemoveTier(c.Request.Context(), middleware.UserID(c), c.Param("id"), c.Param("tierId")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary Ingest a join event
// @Description Feeds one raw platform event to the eligibility evaluator. Events for closed lotteries are accepted and dropped.
// @Tags lotteries
// @Accept json
// @Security TelegramInitData
// @Param id path string true "Lottery ID"
// @Param input body models.JoinEvent true "Join event"
// @Success 202
// @Failure 404 {object} map[string]string "Not found"
// @Router /lotteries/{id}/events [post]
func (h *LotteryHandler) recordEvent(c *gin.Context) {
	var event models.JoinEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.RecordJoinEvent(c.Request.Context(), c.Param("id"), &event); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// @Summary List participants
// @Tags lotteries
// @Produce json
// @Security TelegramInitData
// @Param id path string true "Lottery ID"
// @Param eligible query bool false "Filter by eligibility"
// @Param q query string false "Free text filter"
// @Param page query int false "Page number, 1-based"
// @Param page_size query int false "Page size"
// @Success 200 {object} models.ParticipantPage
// @Router /lotteries/{id}/participants [get]
func (h *LotteryHandler) getParticipants(c *gin.Context) {
	var filter models.ParticipantFilter
	if raw, ok := c.GetQuery("eligible"); ok {
		eligible, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "eligible must be a boolean"})
			return
		}
		filter.Eligible = &eligible
	}
	filter.Keyword = c.Query("q")

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))

	result, err := h.service.GetParticipants(c.Request.Context(), c.Param("id"), filter, page, pageSize)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// @Summary Get the draw result
// @Tags lotteries
// @Produce json
// @Security TelegramInitData
// @Param id path string true "Lottery ID"
// @Success 200 {object} models.DrawResult
// @Failure 404 {object} map[string]string "Not found"
// @Failure 409 {object} map[string]string "Not yet drawn"
// @Router /lotteries/{id}/result [get]
func (h *LotteryHandler) getResult(c *gin.Context) {
	result, err := h.service.GetDrawResult(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *LotteryHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound),
		errors.Is(err, repository.ErrTierNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrAlreadyDrawn),
		errors.Is(err, service.ErrLotteryCancelled),
		errors.Is(err, service.ErrTooLateToCancel),
		errors.Is(err, service.ErrLotteryNotOpen),
		errors.Is(err, service.ErrNotYetDrawn),
		errors.Is(err, service.ErrTiersFrozen):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrInvalidJoinConfig),
		errors.Is(err, models.ErrInvalidDrawConfig),
		errors.Is(err, models.ErrInvalidThreshold),
		errors.Is(err, models.ErrDeadlineNotInFuture),
		errors.Is(err, models.ErrNoRequiredGroups),
		errors.Is(err, models.ErrNoPrizeTiers),
		errors.Is(err, models.ErrDuplicateTierName),
		errors.Is(err, models.ErrInvalidTierCount):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
