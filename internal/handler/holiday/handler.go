package holiday

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nibsworks/tms-scheduler/internal/handler"
	"github.com/nibsworks/tms-scheduler/internal/model"
	"github.com/nibsworks/tms-scheduler/internal/service/holiday"
)

type Handler struct {
	service *holiday.Service
}

func NewHandler(service *holiday.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/holidays", h.CreateHoliday)
	rg.GET("/holidays", h.ListHolidays)
	rg.DELETE("/holidays/:id", h.DeleteHoliday)
}

func (h *Handler) CreateHoliday(c *gin.Context) {
	var req model.CreateHolidayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	created, err := h.service.CreateHoliday(c.Request.Context(), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(created))
}

func (h *Handler) ListHolidays(c *gin.Context) {
	holidays, err := h.service.ListHolidays(c.Request.Context())
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(holidays))
}

func (h *Handler) DeleteHoliday(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid holiday ID"))
		return
	}

	if err := h.service.DeleteHoliday(c.Request.Context(), id); err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"deleted": id}))
}
