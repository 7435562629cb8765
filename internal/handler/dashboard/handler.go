package dashboard

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nibsworks/tms-scheduler/internal/handler"
	"github.com/nibsworks/tms-scheduler/internal/model"
	"github.com/nibsworks/tms-scheduler/internal/repository"
	"github.com/nibsworks/tms-scheduler/internal/service/holiday"
)

type Handler struct {
	slots         repository.SlotRepository
	maxDailySlots int
}

func NewHandler(slots repository.SlotRepository, maxDailySlots int) *Handler {
	return &Handler{slots: slots, maxDailySlots: maxDailySlots}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/dashboard", h.DailyDashboard)
	rg.PUT("/dashboard/staff", h.AssignStaff)
}

// DailyDashboard returns the joined schedule plus capacity and status
// breakdowns for a date (default today).
func (h *Handler) DailyDashboard(c *gin.Context) {
	date := holiday.Normalize(time.Now())
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse(model.DateOnly, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid date"))
			return
		}
		date = holiday.Normalize(parsed)
	}

	ctx := c.Request.Context()

	schedule, err := h.slots.DailySchedule(ctx, date)
	if err != nil {
		handler.Error(c, err)
		return
	}

	count, err := h.slots.CountByDate(ctx, date)
	if err != nil {
		handler.Error(c, err)
		return
	}

	statusCounts, err := h.slots.StatusCountsByDate(ctx, date)
	if err != nil {
		handler.Error(c, err)
		return
	}

	summary := model.DailySummary{
		Date:          date.Format(model.DateOnly),
		MaxDailySlots: h.maxDailySlots,
		Scheduled:     count,
		StatusCounts:  statusCounts,
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"summary":  summary,
		"schedule": schedule,
	}))
}

// AssignStaff sets the staff names on every slot of the given date.
func (h *Handler) AssignStaff(c *gin.Context) {
	var req model.AssignStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	date, err := time.Parse(model.DateOnly, req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid date"))
		return
	}

	if err := h.slots.AssignStaff(c.Request.Context(), holiday.Normalize(date), req.SRName, req.JR1Name, req.JR2Name); err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"date": req.Date}))
}
