package scheduling

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nibsworks/tms-scheduler/internal/handler"
	"github.com/nibsworks/tms-scheduler/internal/model"
	"github.com/nibsworks/tms-scheduler/internal/service/scheduling"
)

type Handler struct {
	service *scheduling.Service
}

func NewHandler(service *scheduling.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/schedule/allocate", h.Allocate)
}

// Allocate creates a batch of session slots. A partially created batch is
// reported with 207 so the operator sees both the created slots and the
// failure.
func (h *Handler) Allocate(c *gin.Context) {
	var req model.AllocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	created, err := h.service.Allocate(c.Request.Context(), &req)
	if err != nil {
		if len(created) > 0 {
			c.JSON(http.StatusMultiStatus, &handler.Response{
				Status:  "partial",
				Message: err.Error(),
				Data:    gin.H{"created": created, "requested": req.Count},
			})
			return
		}
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(gin.H{
		"created": created,
		"count":   len(created),
	}))
}
