package requests

import (
	"errors"
	"net/http"

	"helpdesk/internal/reports"
	"helpdesk/internal/repository"
	"helpdesk/pkg/request"
	"helpdesk/pkg/response"
	"helpdesk/pkg/roles"
	"helpdesk/pkg/security"

	"github.com/gin-gonic/gin"
)

var errorStatus = map[error]int{
	ErrNotFound:        http.StatusNotFound,
	ErrNotEditable:     http.StatusConflict,
	ErrForbidden:       http.StatusForbidden,
	ErrStale:           http.StatusConflict,
	ErrInvalidLine:     http.StatusBadRequest,
	ErrDuplicateItem:   http.StatusBadRequest,
	ErrInvalidApproval: http.StatusBadRequest,
	ErrUnknownLine:     http.StatusBadRequest,
}

func statusFor(err error) int {
	var te *TransitionError
	if errors.As(err, &te) {
		return http.StatusConflict
	}
	return response.StatusFor(err, errorStatus)
}

type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	r := router.Group("/atk/requests")
	{
		r.GET("", security.Authorize(roles.Staff), h.GetRequests)
		r.GET("/:id", security.Authorize(roles.Staff), h.GetRequest)
		r.GET("/:id/document", security.Authorize(roles.Staff), h.ExportDocument)
		r.POST("", security.Authorize(roles.Staff), h.CreateRequest)
		r.PUT("/:id", security.Authorize(roles.Staff), h.UpdateRequest)
		r.DELETE("/:id", security.Authorize(roles.Staff), h.DeleteRequest)
		r.POST("/:id/approve", security.Authorize(roles.Technician), h.Approve)
		r.POST("/:id/reject", security.Authorize(roles.Technician), h.Reject)
		r.POST("/:id/fulfil", security.Authorize(roles.Technician), h.Fulfil)
	}
}

// GetRequests shows staff only their own requests.
func (h *Handler) GetRequests(c *gin.Context) {
	limit, offset := request.Page(c)
	filter := RequestFilter{
		Status:      c.Query("status"),
		RequesterID: request.QueryInt(c, "requester_id"),
		Page:        repository.NewPagination(limit, offset),
	}
	if !security.IsAllowed(c, roles.Technician) {
		userID, err := security.GetUserID(c)
		if err != nil {
			response.Fail(c, http.StatusUnauthorized, "Unauthorized", err)
			return
		}
		filter.RequesterID = userID
	}

	list, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, "Failed to retrieve requests", err)
		return
	}

	response.List(c, list, response.Meta{Total: total, Limit: filter.Page.Limit, Offset: filter.Page.Offset})
}

func (h *Handler) visible(c *gin.Context) (*Request, bool) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request ID", err)
		return nil, false
	}

	req, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, statusFor(err), "Failed to retrieve request", err)
		return nil, false
	}

	actorID, _ := security.GetUserID(c)
	if req.RequesterID != actorID && !security.IsAllowed(c, roles.Technician) {
		response.Fail(c, http.StatusForbidden, "Forbidden", nil)
		return nil, false
	}
	return req, true
}

func (h *Handler) GetRequest(c *gin.Context) {
	if req, ok := h.visible(c); ok {
		response.OK(c, http.StatusOK, req)
	}
}

func (h *Handler) ExportDocument(c *gin.Context) {
	req, ok := h.visible(c)
	if !ok {
		return
	}

	doc, filename, err := h.service.Document(c.Request.Context(), req.ID)
	if err != nil {
		response.Fail(c, statusFor(err), "Failed to build SPB document", err)
		return
	}

	reports.Serve(c, filename, doc)
}

func (h *Handler) CreateRequest(c *gin.Context) {
	var body RequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	actorID, err := security.GetUserID(c)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	req, err := h.service.Create(c.Request.Context(), body, actorID)
	if err != nil {
		response.Fail(c, statusFor(err), "Failed to create request", err)
		return
	}

	response.OK(c, http.StatusCreated, req)
}

func (h *Handler) UpdateRequest(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request ID", err)
		return
	}

	var body RequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	actorID, _ := security.GetUserID(c)
	req, err := h.service.Update(c.Request.Context(), id, body, actorID, security.IsAllowed(c, roles.Technician))
	if err != nil {
		response.Fail(c, statusFor(err), "Failed to update request", err)
		return
	}

	response.OK(c, http.StatusOK, req)
}

func (h *Handler) DeleteRequest(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request ID", err)
		return
	}

	actorID, _ := security.GetUserID(c)
	if err := h.service.Delete(c.Request.Context(), id, actorID, security.IsAllowed(c, roles.Technician)); err != nil {
		response.Fail(c, statusFor(err), "Failed to delete request", err)
		return
	}

	response.Message(c, http.StatusOK, "Request deleted")
}

func (h *Handler) Approve(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request ID", err)
		return
	}

	var body ApproveBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			response.Fail(c, http.StatusBadRequest, "Invalid request payload", err)
			return
		}
	}

	actorID, _ := security.GetUserID(c)
	req, err := h.service.Approve(c.Request.Context(), id, body, actorID)
	if err != nil {
		response.Fail(c, statusFor(err), "Failed to approve request", err)
		return
	}

	response.OK(c, http.StatusOK, req)
}

func (h *Handler) Reject(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request ID", err)
		return
	}

	var body RejectBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			response.Fail(c, http.StatusBadRequest, "Invalid request payload", err)
			return
		}
	}

	actorID, _ := security.GetUserID(c)
	req, err := h.service.Reject(c.Request.Context(), id, body.Reason, actorID)
	if err != nil {
		response.Fail(c, statusFor(err), "Failed to reject request", err)
		return
	}

	response.OK(c, http.StatusOK, req)
}

func (h *Handler) Fulfil(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request ID", err)
		return
	}

	actorID, _ := security.GetUserID(c)
	req, history, err := h.service.Fulfil(c.Request.Context(), id, actorID)
	if err != nil {
		response.Fail(c, statusFor(err), "Failed to fulfil request", err)
		return
	}

	response.OK(c, http.StatusOK, gin.H{"request": req, "stock": history})
}
