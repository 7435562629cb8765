package session

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nibsworks/tms-scheduler/internal/handler"
	"github.com/nibsworks/tms-scheduler/internal/model"
	"github.com/nibsworks/tms-scheduler/internal/service/session"
)

type Handler struct {
	service *session.Service
}

func NewHandler(service *session.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/sessions", h.ListSessions)
	rg.GET("/sessions/:id", h.GetSession)
	rg.POST("/sessions/:id/complete", h.CompleteSession)
	rg.DELETE("/sessions/:id", h.DeleteSession)
	rg.GET("/patients/:id/parameter-defaults", h.ParameterDefaults)
}

func (h *Handler) ListSessions(c *gin.Context) {
	filters := &model.SessionFilters{}

	if id := c.Query("patient_id"); id != "" {
		patientID, err := uuid.Parse(id)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient ID"))
			return
		}
		filters.PatientID = patientID
	}

	if date := c.Query("date"); date != "" {
		parsed, err := time.Parse(model.DateOnly, date)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid date"))
			return
		}
		filters.Date = &parsed
	}

	if status := c.Query("status"); status != "" {
		filters.Status = model.SessionStatus(status)
	}

	sessions, err := h.service.ListSessions(c.Request.Context(), filters)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(sessions))
}

func (h *Handler) GetSession(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid session ID"))
		return
	}

	found, err := h.service.GetSession(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(found))
}

func (h *Handler) CompleteSession(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid session ID"))
		return
	}

	var req model.CompleteSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	completed, err := h.service.Complete(c.Request.Context(), id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(completed))
}

func (h *Handler) DeleteSession(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid session ID"))
		return
	}

	if err := h.service.DeleteSession(c.Request.Context(), id); err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"deleted": id}))
}

func (h *Handler) ParameterDefaults(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient ID"))
		return
	}

	defaults, err := h.service.ParameterDefaults(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(defaults))
}
