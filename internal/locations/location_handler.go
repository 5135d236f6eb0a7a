package locations

import (
	"context"
	"net/http"

	"helpdesk/internal/auditlog"
	"helpdesk/internal/cache"
	"helpdesk/pkg/request"
	"helpdesk/pkg/response"
	"helpdesk/pkg/roles"
	"helpdesk/pkg/security"

	"github.com/gin-gonic/gin"
)

type LocationStore interface {
	GetLocations(ctx context.Context) ([]Location, error)
	GetLocation(ctx context.Context, id int) (*Location, error)
	PersistLocation(ctx context.Context, location *Location) error
	UpdateLocation(ctx context.Context, location *Location) error
	RemoveLocation(ctx context.Context, id int) error
	GetLocationAssets(ctx context.Context, id int) ([]LocatedAsset, error)
}

var errorStatus = map[error]int{ErrNotFound: http.StatusNotFound}

type LocationHandler struct {
	Repository LocationStore
	audit      auditlog.Recorder
	cache      cache.Revalidator
}

func NewLocationHandler(r LocationStore, audit auditlog.Recorder, revalidator cache.Revalidator) *LocationHandler {
	return &LocationHandler{Repository: r, audit: audit, cache: revalidator}
}

func (h *LocationHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/locations", security.Authorize(roles.Staff), h.GetLocations)
	router.GET("/locations/:id", security.Authorize(roles.Staff), h.GetLocation)
	router.GET("/locations/:id/assets", security.Authorize(roles.Staff), h.GetLocationAssets)
	router.POST("/locations", security.Authorize(roles.Admin), h.CreateLocation)
	router.PUT("/locations/:id", security.Authorize(roles.Admin), h.UpdateLocation)
	router.DELETE("/locations/:id", security.Authorize(roles.Admin), h.RemoveLocation)
}

func (h *LocationHandler) GetLocations(c *gin.Context) {
	locations, err := h.Repository.GetLocations(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, "Could not list locations", err)
		return
	}

	response.OK(c, http.StatusOK, locations)
}

func (h *LocationHandler) GetLocation(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid location ID", err)
		return
	}

	location, err := h.Repository.GetLocation(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, response.StatusFor(err, errorStatus), "Could not get location", err)
		return
	}

	response.OK(c, http.StatusOK, location)
}

func (h *LocationHandler) CreateLocation(c *gin.Context) {
	var location Location
	if err := c.ShouldBindJSON(&location); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	if err := h.Repository.PersistLocation(c.Request.Context(), &location); err != nil {
		response.Fail(c, response.StatusFor(err, errorStatus), "Could not insert location", err)
		return
	}

	actorID, _ := security.GetUserID(c)
	h.audit.Log("create", actorID, location, &location)
	h.cache.Revalidate(c.Request.Context())
	response.OK(c, http.StatusCreated, location)
}

func (h *LocationHandler) UpdateLocation(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid location ID", err)
		return
	}

	var location Location
	if err := c.ShouldBindJSON(&location); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}
	location.ID = id

	if err := h.Repository.UpdateLocation(c.Request.Context(), &location); err != nil {
		response.Fail(c, response.StatusFor(err, errorStatus), "Could not update location", err)
		return
	}

	actorID, _ := security.GetUserID(c)
	h.audit.Log("update", actorID, location, &location)
	h.cache.Revalidate(c.Request.Context())
	response.OK(c, http.StatusOK, location)
}

func (h *LocationHandler) GetLocationAssets(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid location ID", err)
		return
	}

	assets, err := h.Repository.GetLocationAssets(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, "Could not get location assets", err)
		return
	}

	response.OK(c, http.StatusOK, assets)
}

func (h *LocationHandler) RemoveLocation(c *gin.Context) {
	id, err := request.ParamID(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid location ID", err)
		return
	}

	if err := h.Repository.RemoveLocation(c.Request.Context(), id); err != nil {
		response.Fail(c, response.StatusFor(err, errorStatus), "Could not delete location", err)
		return
	}

	actorID, _ := security.GetUserID(c)
	h.audit.Log("delete", actorID, nil, &Location{ID: id})
	h.cache.Revalidate(c.Request.Context())
	response.Message(c, http.StatusOK, "Location deleted successfully")
}
