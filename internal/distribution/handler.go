package distribution

import (
	"errors"
	"net/http"

	"helpdesk/internal/assets"
	"helpdesk/internal/reports"
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
	assets.ErrNotFound:         http.StatusNotFound,
	ErrNotEditable:             http.StatusConflict,
	ErrAssetUnavailable:        http.StatusConflict,
	ErrDuplicateAsset:          http.StatusBadRequest,
	ErrStale:                   http.StatusConflict,
	storage.ErrTooLarge:        http.StatusRequestEntityTooLarge,
	storage.ErrUnsupportedType: http.StatusUnsupportedMediaType,
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
	d := router.Group("/distributions", security.Authorize(roles.Technician))
	{
		d.GET("", h.GetDistributions)
		d.GET("/:id", h.GetDistribution)
		d.GET("/:id/document", h.ExportDocument)
		d.POST("", h.CreateDistribution)
		d.PUT("/:id", h.UpdateDistribution)
		d.DELETE("/:id", h.DeleteDistribution)
		d.POST("/:id/submit", h.Submit)
		d.POST("/:id/complete", h.Complete)
	}
}

func (h *Handler) GetDistributions(c *gin.Context) {
	limit, offset := request.Page(c)
	filter := DistributionFilter{
		Status:       c.Query("status"),
		ToLocationID: request.QueryInt(c, "to_location_id"),
		Search:       c.Query("search"),
		Page:         repository.NewPagination(limit, offset),
	}

	distributions, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, "Failed to retrieve distributions", err)
		return
	}

	response.List(c, distributions, response.Meta{Total: total, Limit: filter.Page.Limit, Offset: filter.Page.Offset})
}

func (h *Handler) GetDistribution(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid distribution ID", err)
		return
	}

	d, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, statusFor(err), "Failed to retrieve distribution", err)
		return
	}

	response.OK(c, http.StatusOK, d)
}

func (h *Handler) CreateDistribution(c *gin.Context) {
	var req DistributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	actorID, _ := security.GetUserID(c)
	d, err := h.service.Create(c.Request.Context(), req, actorID)
	if err != nil {
		response.Fail(c, statusFor(err), "Failed to create distribution", err)
		return
	}

	response.OK(c, http.StatusCreated, d)
}

func (h *Handler) UpdateDistribution(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid distribution ID", err)
		return
	}

	var req DistributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	actorID, _ := security.GetUserID(c)
	d, err := h.service.Update(c.Request.Context(), id, req, actorID)
	if err != nil {
		response.Fail(c, statusFor(err), "Failed to update distribution", err)
		return
	}

	response.OK(c, http.StatusOK, d)
}

func (h *Handler) DeleteDistribution(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid distribution ID", err)
		return
	}

	actorID, _ := security.GetUserID(c)
	if err := h.service.Delete(c.Request.Context(), id, actorID); err != nil {
		response.Fail(c, statusFor(err), "Failed to delete distribution", err)
		return
	}

	response.Message(c, http.StatusOK, "Distribution deleted")
}

func (h *Handler) Submit(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid distribution ID", err)
		return
	}

	actorID, _ := security.GetUserID(c)
	d, err := h.service.Submit(c.Request.Context(), id, actorID)
	if err != nil {
		response.Fail(c, statusFor(err), "Failed to submit distribution", err)
		return
	}

	response.OK(c, http.StatusOK, d)
}

// Complete accepts an optional multipart "document" file with the signed
// handover photo.
func (h *Handler) Complete(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid distribution ID", err)
		return
	}

	var upload *storage.Upload
	if fh, err := c.FormFile("document"); err == nil {
		upload, err = storage.ReadUpload(fh, h.uploadMaxBytes)
		if err != nil {
			response.Fail(c, statusFor(err), "Invalid handover document", err)
			return
		}
	}

	actorID, _ := security.GetUserID(c)
	d, err := h.service.Complete(c.Request.Context(), id, upload, actorID)
	if err != nil {
		response.Fail(c, statusFor(err), "Failed to complete distribution", err)
		return
	}

	response.OK(c, http.StatusOK, d)
}

func (h *Handler) ExportDocument(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid distribution ID", err)
		return
	}

	doc, filename, err := h.service.Document(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, statusFor(err), "Failed to build SBBK document", err)
		return
	}

	reports.Serve(c, filename, doc)
}
