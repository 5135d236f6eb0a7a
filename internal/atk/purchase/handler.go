package purchase

import (
	"context"
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
	ErrNotFound:     http.StatusNotFound,
	ErrNotEditable:  http.StatusConflict,
	ErrStale:        http.StatusConflict,
	ErrInvalidLine:  http.StatusBadRequest,
	ErrDuplicateRow: http.StatusBadRequest,
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
	pr := router.Group("/atk/purchase-requests")
	{
		pr.GET("", security.Authorize(roles.Technician), h.GetPurchaseRequests)
		pr.GET("/:id", security.Authorize(roles.Technician), h.GetPurchaseRequest)
		pr.GET("/:id/document", security.Authorize(roles.Technician), h.ExportDocument)
		pr.POST("", security.Authorize(roles.Technician), h.CreatePurchaseRequest)
		pr.PUT("/:id", security.Authorize(roles.Technician), h.UpdatePurchaseRequest)
		pr.DELETE("/:id", security.Authorize(roles.Technician), h.DeletePurchaseRequest)
		pr.POST("/:id/submit", security.Authorize(roles.Technician), h.Submit)
		pr.POST("/:id/complete", security.Authorize(roles.Admin), h.Complete)
	}
}

func (h *Handler) GetPurchaseRequests(c *gin.Context) {
	limit, offset := request.Page(c)
	filter := PurchaseFilter{
		Status:      c.Query("status"),
		RequestedBy: request.QueryInt(c, "requested_by"),
		Page:        repository.NewPagination(limit, offset),
	}

	requests, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, "Failed to retrieve purchase requests", err)
		return
	}

	response.List(c, requests, response.Meta{Total: total, Limit: filter.Page.Limit, Offset: filter.Page.Offset})
}

func (h *Handler) GetPurchaseRequest(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid purchase request ID", err)
		return
	}

	pr, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, statusFor(err), "Failed to retrieve purchase request", err)
		return
	}

	response.OK(c, http.StatusOK, pr)
}

func (h *Handler) CreatePurchaseRequest(c *gin.Context) {
	var body PurchaseRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	actorID, _ := security.GetUserID(c)
	pr, err := h.service.Create(c.Request.Context(), body, actorID)
	if err != nil {
		response.Fail(c, statusFor(err), "Failed to create purchase request", err)
		return
	}

	response.OK(c, http.StatusCreated, pr)
}

func (h *Handler) UpdatePurchaseRequest(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid purchase request ID", err)
		return
	}

	var body PurchaseRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	actorID, _ := security.GetUserID(c)
	pr, err := h.service.Update(c.Request.Context(), id, body, actorID)
	if err != nil {
		response.Fail(c, statusFor(err), "Failed to update purchase request", err)
		return
	}

	response.OK(c, http.StatusOK, pr)
}

func (h *Handler) DeletePurchaseRequest(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid purchase request ID", err)
		return
	}

	actorID, _ := security.GetUserID(c)
	if err := h.service.Delete(c.Request.Context(), id, actorID); err != nil {
		response.Fail(c, statusFor(err), "Failed to delete purchase request", err)
		return
	}

	response.Message(c, http.StatusOK, "Purchase request deleted")
}

func (h *Handler) Submit(c *gin.Context) {
	h.transition(c, "Failed to submit purchase request", h.service.Submit)
}

func (h *Handler) Complete(c *gin.Context) {
	h.transition(c, "Failed to complete purchase request", h.service.Complete)
}

func (h *Handler) transition(c *gin.Context, failure string, fn func(ctx context.Context, id, actorID int) (*PurchaseRequest, error)) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid purchase request ID", err)
		return
	}

	actorID, _ := security.GetUserID(c)
	pr, err := fn(c.Request.Context(), id, actorID)
	if err != nil {
		response.Fail(c, statusFor(err), failure, err)
		return
	}

	response.OK(c, http.StatusOK, pr)
}

func (h *Handler) ExportDocument(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid purchase request ID", err)
		return
	}

	doc, filename, err := h.service.Document(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, statusFor(err), "Failed to build purchase request document", err)
		return
	}

	reports.Serve(c, filename, doc)
}
