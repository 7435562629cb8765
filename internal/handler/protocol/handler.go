package protocol

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nibsworks/tms-scheduler/internal/handler"
	"github.com/nibsworks/tms-scheduler/internal/model"
	"github.com/nibsworks/tms-scheduler/internal/service/protocol"
)

type Handler struct {
	service *protocol.Service
}

func NewHandler(service *protocol.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/protocols", h.CreateProtocol)
	rg.GET("/protocols", h.ListProtocols)
	rg.GET("/protocols/:id", h.GetProtocol)
	rg.DELETE("/protocols/:id", h.DeleteProtocol)
}

func (h *Handler) CreateProtocol(c *gin.Context) {
	var req model.CreateProtocolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	created, err := h.service.CreateProtocol(c.Request.Context(), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(created))
}

func (h *Handler) GetProtocol(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid protocol ID"))
		return
	}

	found, err := h.service.GetProtocol(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(found))
}

func (h *Handler) ListProtocols(c *gin.Context) {
	protocols, err := h.service.ListProtocols(c.Request.Context())
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(protocols))
}

func (h *Handler) DeleteProtocol(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid protocol ID"))
		return
	}

	if err := h.service.DeleteProtocol(c.Request.Context(), id); err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"deleted": id}))
}
