package auditlog

import (
	"net/http"
	"strconv"

	"helpdesk/pkg/response"
	"helpdesk/pkg/roles"
	"helpdesk/pkg/security"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	auditlog *Auditlog
}

func NewHandler(a *Auditlog) *Handler {
	return &Handler{auditlog: a}
}

func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/audit-logs", security.Authorize(roles.Admin), h.GetResourceLog)
}

func (h *Handler) GetResourceLog(c *gin.Context) {
	resourceType := c.Query("resource_type")
	resourceID, err := strconv.Atoi(c.Query("resource_id"))
	if err != nil || resourceType == "" {
		response.Fail(c, http.StatusBadRequest, "resource_type and numeric resource_id are required", err)
		return
	}

	entries, err := h.auditlog.ResourceLog(c.Request.Context(), resourceID, resourceType)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, "Failed to retrieve audit log", err)
		return
	}

	response.OK(c, http.StatusOK, entries)
}
