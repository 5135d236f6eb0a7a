package items

import (
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
	ErrInvalidCategory:         http.StatusBadRequest,
	ErrInvalidQuantity:         http.StatusBadRequest,
	ErrInvalidMovement:         http.StatusBadRequest,
	ErrNegativeMinStock:        http.StatusBadRequest,
	ErrNegativePrice:           http.StatusBadRequest,
	storage.ErrTooLarge:        http.StatusRequestEntityTooLarge,
	storage.ErrUnsupportedType: http.StatusUnsupportedMediaType,
}

type Handler struct {
	service        *Service
	uploadMaxBytes int64
}

func NewHandler(s *Service, uploadMaxBytes int64) *Handler {
	return &Handler{service: s, uploadMaxBytes: uploadMaxBytes}
}

func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	items := router.Group("/atk/items")
	{
		items.GET("", security.Authorize(roles.Staff), h.GetItems)
		items.GET("/low-stock", security.Authorize(roles.Technician), h.GetLowStock)
		items.GET("/:id", security.Authorize(roles.Staff), h.GetItem)
		items.GET("/:id/history", security.Authorize(roles.Technician), h.GetHistory)
		items.POST("", security.Authorize(roles.Technician), h.CreateItem)
		items.PUT("/:id", security.Authorize(roles.Technician), h.UpdateItem)
		items.DELETE("/:id", security.Authorize(roles.Admin), h.DeleteItem)
		items.POST("/:id/adjust", security.Authorize(roles.Technician), h.AdjustStock)
		items.POST("/:id/image", security.Authorize(roles.Technician), h.UploadImage)
	}
}

func (h *Handler) GetItems(c *gin.Context) {
	limit, offset := request.Page(c)
	filter := ItemFilter{
		Category: c.Query("category"),
		Search:   c.Query("search"),
		LowStock: c.Query("low_stock") == "true",
		Page:     repository.NewPagination(limit, offset),
	}

	items, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, "Failed to retrieve items", err)
		return
	}

	response.List(c, items, response.Meta{Total: total, Limit: filter.Page.Limit, Offset: filter.Page.Offset})
}

func (h *Handler) GetLowStock(c *gin.Context) {
	items, err := h.service.LowStock(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, "Failed to retrieve low stock items", err)
		return
	}

	response.OK(c, http.StatusOK, items)
}

func (h *Handler) GetItem(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid item ID", err)
		return
	}

	item, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, response.StatusFor(err, errorStatus), "Failed to retrieve item", err)
		return
	}

	response.OK(c, http.StatusOK, item)
}

func (h *Handler) GetHistory(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid item ID", err)
		return
	}

	limit, offset := request.Page(c)
	page := repository.NewPagination(limit, offset)
	history, total, err := h.service.History(c.Request.Context(), id, page)
	if err != nil {
		response.Fail(c, response.StatusFor(err, errorStatus), "Failed to retrieve stock history", err)
		return
	}

	response.List(c, history, response.Meta{Total: total, Limit: page.Limit, Offset: page.Offset})
}

func (h *Handler) CreateItem(c *gin.Context) {
	var req ItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	actorID, _ := security.GetUserID(c)
	item, err := h.service.Create(c.Request.Context(), req, actorID)
	if err != nil {
		response.Fail(c, response.StatusFor(err, errorStatus), "Failed to create item", err)
		return
	}

	response.OK(c, http.StatusCreated, item)
}

func (h *Handler) UpdateItem(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid item ID", err)
		return
	}

	var req ItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	actorID, _ := security.GetUserID(c)
	item, err := h.service.Update(c.Request.Context(), id, req, actorID)
	if err != nil {
		response.Fail(c, response.StatusFor(err, errorStatus), "Failed to update item", err)
		return
	}

	response.OK(c, http.StatusOK, item)
}

func (h *Handler) DeleteItem(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid item ID", err)
		return
	}

	actorID, _ := security.GetUserID(c)
	if err := h.service.Delete(c.Request.Context(), id, actorID); err != nil {
		response.Fail(c, response.StatusFor(err, errorStatus), "Failed to delete item", err)
		return
	}

	response.Message(c, http.StatusOK, "Item deleted")
}

func (h *Handler) AdjustStock(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid item ID", err)
		return
	}

	var req AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	actorID, _ := security.GetUserID(c)
	history, err := h.service.Adjust(c.Request.Context(), id, req, actorID)
	if err != nil {
		response.Fail(c, response.StatusFor(err, errorStatus), "Failed to adjust stock", err)
		return
	}

	response.OK(c, http.StatusOK, history)
}

func (h *Handler) UploadImage(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid item ID", err)
		return
	}

	fh, err := c.FormFile("image")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Missing image file", err)
		return
	}

	upload, err := storage.ReadUpload(fh, h.uploadMaxBytes)
	if err != nil {
		response.Fail(c, response.StatusFor(err, errorStatus), "Invalid image", err)
		return
	}

	actorID, _ := security.GetUserID(c)
	item, err := h.service.UploadImage(c.Request.Context(), id, upload, actorID)
	if err != nil {
		response.Fail(c, response.StatusFor(err, errorStatus), "Failed to upload image", err)
		return
	}

	response.OK(c, http.StatusOK, item)
}
