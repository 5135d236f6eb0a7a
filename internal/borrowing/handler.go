package borrowing

import (
	"errors"
	"net/http"

	"helpdesk/internal/assets"
	"helpdesk/internal/repository"
	"helpdesk/pkg/metadata"
	"helpdesk/pkg/request"
	"helpdesk/pkg/response"
	"helpdesk/pkg/roles"
	"helpdesk/pkg/security"

	"github.com/gin-gonic/gin"
)

var errorStatus = map[error]int{
	ErrNotFound:         http.StatusNotFound,
	assets.ErrNotFound:  http.StatusNotFound,
	ErrActiveBorrowing:  http.StatusConflict,
	ErrAssetUnavailable: http.StatusConflict,
	ErrStale:            http.StatusConflict,
	ErrInvalidPeriod:    http.StatusBadRequest,
	ErrNotDeletable:     http.StatusConflict,
	ErrForbidden:        http.StatusForbidden,
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
	b := router.Group("/borrowings")
	{
		b.GET("", security.Authorize(roles.Staff), h.GetBorrowings)
		b.GET("/overdue", security.Authorize(roles.Technician), h.GetOverdue)
		b.POST("/overdue/remind", security.Authorize(roles.Technician), h.RemindOverdue)
		b.GET("/:id", security.Authorize(roles.Staff), h.GetBorrowing)
		b.POST("", security.Authorize(roles.Staff), h.CreateBorrowing)
		b.POST("/:id/approve", security.Authorize(roles.Technician), h.Approve)
		b.POST("/:id/reject", security.Authorize(roles.Technician), h.Reject)
		b.POST("/:id/handover", security.Authorize(roles.Technician), h.HandOver)
		b.POST("/:id/return", security.Authorize(roles.Technician), h.Return)
		b.DELETE("/:id", security.Authorize(roles.Staff), h.DeleteBorrowing)
	}
}

// GetBorrowings shows staff only their own records.
func (h *Handler) GetBorrowings(c *gin.Context) {
	limit, offset := request.Page(c)
	filter := BorrowingFilter{
		Status:     c.Query("status"),
		AssetID:    request.QueryInt(c, "asset_id"),
		BorrowerID: request.QueryInt(c, "borrower_id"),
		Page:       repository.NewPagination(limit, offset),
	}
	if !security.IsAllowed(c, roles.Technician) {
		userID, err := security.GetUserID(c)
		if err != nil {
			response.Fail(c, http.StatusUnauthorized, "Unauthorized", err)
			return
		}
		filter.BorrowerID = userID
	}

	borrowings, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, "Failed to retrieve borrowings", err)
		return
	}

	response.List(c, borrowings, response.Meta{Total: total, Limit: filter.Page.Limit, Offset: filter.Page.Offset})
}

func (h *Handler) GetBorrowing(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid borrowing ID", err)
		return
	}

	b, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, statusFor(err), "Failed to retrieve borrowing", err)
		return
	}

	actorID, _ := security.GetUserID(c)
	if b.BorrowerID != actorID && !security.IsAllowed(c, roles.Technician) {
		response.Fail(c, http.StatusForbidden, "Forbidden", nil)
		return
	}

	response.OK(c, http.StatusOK, b)
}

func (h *Handler) CreateBorrowing(c *gin.Context) {
	var req CreateBorrowingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	actorID, err := security.GetUserID(c)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	borrowerID := actorID
	if req.BorrowerID != 0 && security.IsAllowed(c, roles.Technician) {
		borrowerID = req.BorrowerID
	}

	b, err := h.service.Create(c.Request.Context(), req, borrowerID, actorID)
	if err != nil {
		response.Fail(c, statusFor(err), "Failed to create borrowing", err)
		return
	}

	response.OK(c, http.StatusCreated, b)
}

func (h *Handler) Approve(c *gin.Context) {
	h.act(c, "Failed to approve borrowing", func(id, actorID int) (*Borrowing, error) {
		return h.service.Approve(c.Request.Context(), id, actorID)
	})
}

func (h *Handler) Reject(c *gin.Context) {
	var req RejectRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Fail(c, http.StatusBadRequest, "Invalid request payload", err)
			return
		}
	}

	h.act(c, "Failed to reject borrowing", func(id, actorID int) (*Borrowing, error) {
		return h.service.Reject(c.Request.Context(), id, req.Reason, actorID)
	})
}

func (h *Handler) HandOver(c *gin.Context) {
	h.act(c, "Failed to hand over asset", func(id, actorID int) (*Borrowing, error) {
		return h.service.HandOver(c.Request.Context(), id, actorID)
	})
}

func (h *Handler) Return(c *gin.Context) {
	var req ReturnRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Fail(c, http.StatusBadRequest, "Invalid request payload", err)
			return
		}
	}

	if _, err := metadata.NewCondition(req.Condition); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid condition", err)
		return
	}

	h.act(c, "Failed to record return", func(id, actorID int) (*Borrowing, error) {
		return h.service.Return(c.Request.Context(), id, req, actorID)
	})
}

func (h *Handler) act(c *gin.Context, failure string, fn func(id, actorID int) (*Borrowing, error)) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid borrowing ID", err)
		return
	}

	actorID, _ := security.GetUserID(c)
	b, err := fn(id, actorID)
	if err != nil {
		response.Fail(c, statusFor(err), failure, err)
		return
	}

	response.OK(c, http.StatusOK, b)
}

func (h *Handler) DeleteBorrowing(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid borrowing ID", err)
		return
	}

	actorID, _ := security.GetUserID(c)
	if err := h.service.Delete(c.Request.Context(), id, actorID, security.IsAllowed(c, roles.Technician)); err != nil {
		response.Fail(c, statusFor(err), "Failed to delete borrowing", err)
		return
	}

	response.Message(c, http.StatusOK, "Borrowing deleted")
}

func (h *Handler) GetOverdue(c *gin.Context) {
	overdue, err := h.service.Overdue(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, "Failed to retrieve overdue borrowings", err)
		return
	}

	response.OK(c, http.StatusOK, overdue)
}

func (h *Handler) RemindOverdue(c *gin.Context) {
	sent, err := h.service.RemindOverdue(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, "Failed to send reminders", err)
		return
	}

	response.OK(c, http.StatusOK, gin.H{"queued": sent})
}
