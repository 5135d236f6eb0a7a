package tickets

import (
	"errors"
	"net/http"

	"helpdesk/internal/repository"
	"helpdesk/internal/storage"
	"helpdesk/pkg/request"
	"helpdesk/pkg/response"
	"helpdesk/pkg/roles"
	"helpdesk/pkg/security"

	"github.com/gin-gonic/gin"
)

var errorStatus = map[error]int{
	ErrNotFound:                http.StatusNotFound,
	ErrInvalidPriority:         http.StatusBadRequest,
	ErrInvalidCategory:         http.StatusBadRequest,
	ErrInvalidStatus:           http.StatusBadRequest,
	ErrNotTechnician:           http.StatusBadRequest,
	ErrEmptyComment:            http.StatusBadRequest,
	ErrForbidden:               http.StatusForbidden,
	ErrClosed:                  http.StatusConflict,
	ErrStale:                   http.StatusConflict,
	storage.ErrUnsupportedType: http.StatusUnsupportedMediaType,
	storage.ErrTooLarge:        http.StatusRequestEntityTooLarge,
}

func statusFor(err error) int {
	var te *TransitionError
	if errors.As(err, &te) {
		return http.StatusConflict
	}
	return response.StatusFor(err, errorStatus)
}

type Handler struct {
	service        *Service
	uploadMaxBytes int64
}

func NewHandler(s *Service, uploadMaxBytes int64) *Handler {
	return &Handler{service: s, uploadMaxBytes: uploadMaxBytes}
}

func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	t := router.Group("/tickets")
	{
		t.GET("/categories", security.Authorize(roles.Staff), h.GetCategories)
		t.GET("/workload", security.Authorize(roles.Technician), h.GetWorkload)
		t.GET("", security.Authorize(roles.Staff), h.GetTickets)
		t.GET("/:id", security.Authorize(roles.Staff), h.GetTicket)
		t.POST("", security.Authorize(roles.Staff), h.CreateTicket)
		t.PUT("/:id", security.Authorize(roles.Staff), h.UpdateTicket)
		t.DELETE("/:id", security.Authorize(roles.Admin), h.DeleteTicket)
		t.PATCH("/:id/assign", security.Authorize(roles.Technician), h.Assign)
		t.PATCH("/:id/status", security.Authorize(roles.Technician), h.ChangeStatus)
		t.GET("/:id/comments", security.Authorize(roles.Staff), h.GetComments)
		t.POST("/:id/comments", security.Authorize(roles.Staff), h.AddComment)
		t.POST("/:id/attachment", security.Authorize(roles.Staff), h.UploadAttachment)
	}
}

func (h *Handler) GetCategories(c *gin.Context) {
	response.OK(c, http.StatusOK, Categories)
}

func (h *Handler) GetWorkload(c *gin.Context) {
	load, err := h.service.Workload(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, "Failed to retrieve workload", err)
		return
	}

	response.OK(c, http.StatusOK, load)
}

// GetTickets shows staff only the tickets they reported.
func (h *Handler) GetTickets(c *gin.Context) {
	limit, offset := request.Page(c)
	filter := TicketFilter{
		Status:     c.Query("status"),
		Priority:   c.Query("priority"),
		Category:   c.Query("category"),
		AssigneeID: request.QueryInt(c, "assignee_id"),
		ReporterID: request.QueryInt(c, "reporter_id"),
		Search:     c.Query("search"),
		Page:       repository.NewPagination(limit, offset),
	}
	if !security.IsAllowed(c, roles.Technician) {
		userID, err := security.GetUserID(c)
		if err != nil {
			response.Fail(c, http.StatusUnauthorized, "Unauthorized", err)
			return
		}
		filter.ReporterID = userID
	}

	tickets, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, "Failed to retrieve tickets", err)
		return
	}

	response.List(c, tickets, response.Meta{Total: total, Limit: filter.Page.Limit, Offset: filter.Page.Offset})
}

func (h *Handler) GetTicket(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid ticket ID", err)
		return
	}

	actorID, _ := security.GetUserID(c)
	t, err := h.service.Visible(c.Request.Context(), id, actorID, security.IsAllowed(c, roles.Technician))
	if err != nil {
		response.Fail(c, statusFor(err), "Failed to retrieve ticket", err)
		return
	}

	response.OK(c, http.StatusOK, t)
}

func (h *Handler) CreateTicket(c *gin.Context) {
	var req CreateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	actorID, err := security.GetUserID(c)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	reporterID := actorID
	if security.IsAllowed(c, roles.Technician) {
		if req.ReporterID != 0 {
			reporterID = req.ReporterID
		}
	} else {
		req.AssigneeID = nil
	}

	t, err := h.service.Create(c.Request.Context(), req, reporterID, actorID)
	if err != nil {
		response.Fail(c, statusFor(err), "Failed to create ticket", err)
		return
	}

	response.OK(c, http.StatusCreated, t)
}

func (h *Handler) UpdateTicket(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid ticket ID", err)
		return
	}

	var req UpdateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	actorID, _ := security.GetUserID(c)
	t, err := h.service.Update(c.Request.Context(), id, req, actorID, security.IsAllowed(c, roles.Technician))
	if err != nil {
		response.Fail(c, statusFor(err), "Failed to update ticket", err)
		return
	}

	response.OK(c, http.StatusOK, t)
}

func (h *Handler) Assign(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid ticket ID", err)
		return
	}

	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	actorID, _ := security.GetUserID(c)
	t, err := h.service.Assign(c.Request.Context(), id, req.AssigneeID, actorID)
	if err != nil {
		response.Fail(c, statusFor(err), "Failed to assign ticket", err)
		return
	}

	response.OK(c, http.StatusOK, t)
}

func (h *Handler) ChangeStatus(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid ticket ID", err)
		return
	}

	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	actorID, _ := security.GetUserID(c)
	t, err := h.service.ChangeStatus(c.Request.Context(), id, req.Status, actorID)
	if err != nil {
		response.Fail(c, statusFor(err), "Failed to change ticket status", err)
		return
	}

	response.OK(c, http.StatusOK, t)
}

func (h *Handler) GetComments(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid ticket ID", err)
		return
	}

	actorID, _ := security.GetUserID(c)
	comments, err := h.service.Comments(c.Request.Context(), id, actorID, security.IsAllowed(c, roles.Technician))
	if err != nil {
		response.Fail(c, statusFor(err), "Failed to retrieve comments", err)
		return
	}

	response.OK(c, http.StatusOK, comments)
}

func (h *Handler) AddComment(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid ticket ID", err)
		return
	}

	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	actorID, _ := security.GetUserID(c)
	comment, err := h.service.AddComment(c.Request.Context(), id, req.Content, actorID, security.IsAllowed(c, roles.Technician))
	if err != nil {
		response.Fail(c, statusFor(err), "Failed to add comment", err)
		return
	}

	response.OK(c, http.StatusCreated, comment)
}

func (h *Handler) UploadAttachment(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid ticket ID", err)
		return
	}

	fh, err := c.FormFile("attachment")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Attachment file is required", err)
		return
	}

	upload, err := storage.ReadUpload(fh, h.uploadMaxBytes)
	if err != nil {
		response.Fail(c, statusFor(err), "Invalid attachment", err)
		return
	}

	actorID, _ := security.GetUserID(c)
	t, err := h.service.UploadAttachment(c.Request.Context(), id, upload, actorID, security.IsAllowed(c, roles.Technician))
	if err != nil {
		response.Fail(c, statusFor(err), "Failed to upload attachment", err)
		return
	}

	response.OK(c, http.StatusOK, t)
}

func (h *Handler) DeleteTicket(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid ticket ID", err)
		return
	}

	actorID, _ := security.GetUserID(c)
	if err := h.service.Delete(c.Request.Context(), id, actorID); err != nil {
		response.Fail(c, statusFor(err), "Failed to delete ticket", err)
		return
	}

	response.Message(c, http.StatusOK, "Ticket deleted")
}
