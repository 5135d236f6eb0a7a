package dashboard

import (
	"net/http"

	"helpdesk/pkg/response"
	"helpdesk/pkg/roles"
	"helpdesk/pkg/security"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/dashboard", security.Authorize(roles.Technician), h.GetSummary)
}

func (h *Handler) GetSummary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, "Failed to build dashboard", err)
		return
	}

	response.OK(c, http.StatusOK, summary)
}
