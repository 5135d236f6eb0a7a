package assets

import (
	"errors"
	"net/http"
	"time"

	"helpdesk/internal/reports"
	"helpdesk/internal/repository"
	"helpdesk/internal/storage"
	"helpdesk/pkg/metadata"
	"helpdesk/pkg/request"
	"helpdesk/pkg/response"
	"helpdesk/pkg/roles"
	"helpdesk/pkg/security"

	"github.com/gin-gonic/gin"
)

var errorStatus = map[error]int{
	ErrNotFound:                http.StatusNotFound,
	ErrCategoryNotFound:        http.StatusNotFound,
	ErrAssetInUse:              http.StatusConflict,
	ErrManagedStatus:           http.StatusBadRequest,
	ErrNoPurchaseDate:          http.StatusUnprocessableEntity,
	storage.ErrTooLarge:        http.StatusRequestEntityTooLarge,
	storage.ErrUnsupportedType: http.StatusUnsupportedMediaType,
	reports.ErrSheetsDisabled:  http.StatusServiceUnavailable,
}

type AssetHandler struct {
	service        *AssetService
	sheets         SheetPusher
	uploadMaxBytes int64
}

func NewAssetHandler(s *AssetService, sheets SheetPusher, uploadMaxBytes int64) *AssetHandler {
	return &AssetHandler{service: s, sheets: sheets, uploadMaxBytes: uploadMaxBytes}
}

func (h *AssetHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/assets", security.Authorize(roles.Staff), h.GetAssets)
	router.GET("/assets/:id", security.Authorize(roles.Staff), h.GetAsset)
	router.GET("/assets/:id/depreciation", security.Authorize(roles.Technician), h.GetDepreciation)
	router.GET("/assets/:id/depreciation/schedule", security.Authorize(roles.Technician), h.GetDepreciationSchedule)
	router.POST("/assets", security.Authorize(roles.Technician), h.CreateAsset)
	router.PUT("/assets/:id", security.Authorize(roles.Technician), h.UpdateAsset)
	router.PATCH("/assets/:id/status", security.Authorize(roles.Technician), h.ChangeStatus)
	router.POST("/assets/:id/image", security.Authorize(roles.Technician), h.UploadImage)
	router.DELETE("/assets/:id", security.Authorize(roles.Admin), h.DeleteAsset)

	router.GET("/asset-categories", security.Authorize(roles.Staff), h.GetCategories)
	router.POST("/asset-categories", security.Authorize(roles.Admin), h.CreateCategory)
	router.PUT("/asset-categories/:id", security.Authorize(roles.Admin), h.UpdateCategory)
	router.DELETE("/asset-categories/:id", security.Authorize(roles.Admin), h.DeleteCategory)

	router.GET("/reports/assets/register", security.Authorize(roles.Technician), h.ExportRegister)
	router.GET("/reports/assets/depreciation", security.Authorize(roles.Technician), h.ExportDepreciation)
	router.POST("/reports/assets/sync", security.Authorize(roles.Admin), h.SyncRegister)
}

func filterFromQuery(c *gin.Context) AssetFilter {
	limit, offset := request.Page(c)
	return AssetFilter{
		Status:     c.Query("status"),
		CategoryID: request.QueryInt(c, "category_id"),
		LocationID: request.QueryInt(c, "location_id"),
		Search:     c.Query("search"),
		Page:       repository.NewPagination(limit, offset),
	}
}

func asOfFromQuery(c *gin.Context) (time.Time, error) {
	raw := c.Query("as_of")
	if raw == "" {
		return time.Now(), nil
	}
	return time.Parse(dateLayout, raw)
}

func (h *AssetHandler) GetAssets(c *gin.Context) {
	filter := filterFromQuery(c)
	assets, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, "Failed to retrieve assets", err)
		return
	}

	response.List(c, assets, response.Meta{Total: total, Limit: filter.Page.Limit, Offset: filter.Page.Offset})
}

func (h *AssetHandler) GetAsset(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid asset ID", err)
		return
	}

	asset, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, response.StatusFor(err, errorStatus), "Failed to retrieve asset", err)
		return
	}

	response.OK(c, http.StatusOK, asset)
}

func (h *AssetHandler) CreateAsset(c *gin.Context) {
	var req AssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}
	if err := req.Validate(); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	actorID, _ := security.GetUserID(c)
	asset, err := h.service.Create(c.Request.Context(), req, actorID)
	if err != nil {
		response.Fail(c, response.StatusFor(err, errorStatus), "Failed to create asset", err)
		return
	}

	response.OK(c, http.StatusCreated, asset)
}

func (h *AssetHandler) UpdateAsset(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid asset ID", err)
		return
	}

	var req AssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}
	if err := req.Validate(); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	actorID, _ := security.GetUserID(c)
	asset, err := h.service.Update(c.Request.Context(), id, req, actorID)
	if err != nil {
		response.Fail(c, response.StatusFor(err, errorStatus), "Failed to update asset", err)
		return
	}

	response.OK(c, http.StatusOK, asset)
}

func (h *AssetHandler) ChangeStatus(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid asset ID", err)
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	status, err := metadata.NewStatus(req.Status)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid status", err)
		return
	}

	actorID, _ := security.GetUserID(c)
	if err := h.service.ChangeStatus(c.Request.Context(), id, status, actorID); err != nil {
		response.Fail(c, response.StatusFor(err, errorStatus), "Failed to change status", err)
		return
	}

	response.Message(c, http.StatusOK, "Status changed")
}

func (h *AssetHandler) UploadImage(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid asset ID", err)
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
	asset, err := h.service.UploadImage(c.Request.Context(), id, upload, actorID)
	if err != nil {
		response.Fail(c, response.StatusFor(err, errorStatus), "Failed to upload image", err)
		return
	}

	response.OK(c, http.StatusOK, asset)
}

func (h *AssetHandler) DeleteAsset(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid asset ID", err)
		return
	}

	actorID, _ := security.GetUserID(c)
	if err := h.service.Delete(c.Request.Context(), id, actorID); err != nil {
		response.Fail(c, response.StatusFor(err, errorStatus), "Failed to delete asset", err)
		return
	}

	response.Message(c, http.StatusOK, "Asset deleted")
}

func (h *AssetHandler) GetDepreciation(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid asset ID", err)
		return
	}

	asOf, err := asOfFromQuery(c)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "as_of must be YYYY-MM-DD", err)
		return
	}

	d, err := h.service.Depreciation(c.Request.Context(), id, asOf)
	if err != nil {
		response.Fail(c, response.StatusFor(err, errorStatus), "Failed to calculate depreciation", err)
		return
	}

	response.OK(c, http.StatusOK, d)
}

func (h *AssetHandler) GetDepreciationSchedule(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid asset ID", err)
		return
	}

	rows, err := h.service.DepreciationSchedule(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, response.StatusFor(err, errorStatus), "Failed to build schedule", err)
		return
	}

	response.OK(c, http.StatusOK, rows)
}

func (h *AssetHandler) GetCategories(c *gin.Context) {
	categories, err := h.service.Categories(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, "Failed to retrieve categories", err)
		return
	}

	response.OK(c, http.StatusOK, categories)
}

func (h *AssetHandler) CreateCategory(c *gin.Context) {
	var category Category
	if err := c.ShouldBindJSON(&category); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	actorID, _ := security.GetUserID(c)
	if err := h.service.CreateCategory(c.Request.Context(), &category, actorID); err != nil {
		response.Fail(c, response.StatusFor(err, errorStatus), "Failed to create category", err)
		return
	}

	response.OK(c, http.StatusCreated, category)
}

func (h *AssetHandler) UpdateCategory(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid category ID", err)
		return
	}

	var category Category
	if err := c.ShouldBindJSON(&category); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}
	category.ID = id

	actorID, _ := security.GetUserID(c)
	if err := h.service.UpdateCategory(c.Request.Context(), &category, actorID); err != nil {
		response.Fail(c, response.StatusFor(err, errorStatus), "Failed to update category", err)
		return
	}

	response.OK(c, http.StatusOK, category)
}

func (h *AssetHandler) DeleteCategory(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid category ID", err)
		return
	}

	actorID, _ := security.GetUserID(c)
	if err := h.service.DeleteCategory(c.Request.Context(), id, actorID); err != nil {
		response.Fail(c, response.StatusFor(err, errorStatus), "Failed to delete category", err)
		return
	}

	response.Message(c, http.StatusOK, "Category deleted")
}

func (h *AssetHandler) ExportRegister(c *gin.Context) {
	doc, err := h.service.RegisterDocument(c.Request.Context(), filterFromQuery(c))
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, "Failed to build asset register", err)
		return
	}

	reports.Serve(c, "asset-register-"+time.Now().Format("20060102")+".xlsx", doc)
}

func (h *AssetHandler) ExportDepreciation(c *gin.Context) {
	asOf, err := asOfFromQuery(c)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "as_of must be YYYY-MM-DD", err)
		return
	}

	doc, err := h.service.DepreciationDocument(c.Request.Context(), filterFromQuery(c), asOf)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, "Failed to build depreciation report", err)
		return
	}

	reports.Serve(c, "depreciation-"+asOf.Format("20060102")+".xlsx", doc)
}

func (h *AssetHandler) SyncRegister(c *gin.Context) {
	rows, err := h.service.SyncRegister(c.Request.Context(), h.sheets)
	if errors.Is(err, reports.ErrSheetsDisabled) {
		response.Fail(c, http.StatusServiceUnavailable, "Google Sheets sync is not configured", err)
		return
	}
	if err != nil {
		response.Fail(c, http.StatusBadGateway, "Failed to sync asset register", err)
		return
	}

	response.OK(c, http.StatusOK, gin.H{"rows": rows})
}
