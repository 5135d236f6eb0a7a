package users

import (
	"net/http"

	"helpdesk/pkg/request"
	"helpdesk/pkg/response"
	"helpdesk/pkg/roles"
	"helpdesk/pkg/security"

	"github.com/gin-gonic/gin"
)

var errorStatus = map[error]int{
	ErrNotFound:      http.StatusNotFound,
	ErrInvalidRole:   http.StatusBadRequest,
	ErrWeakPassword:  http.StatusBadRequest,
	ErrWrongPassword: http.StatusBadRequest,
	ErrSelfDelete:    http.StatusBadRequest,
}

type UsersHandler struct {
	service *Service
}

func NewHandler(s *Service) *UsersHandler {
	return &UsersHandler{service: s}
}

func (h *UsersHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/users", security.Authorize(roles.Technician), h.GetUserList)
	router.GET("/users/technicians", security.Authorize(roles.Staff), h.GetTechnicians)
	router.GET("/users/me", security.Authorize(roles.Staff), h.GetMe)
	router.PUT("/users/me/password", security.Authorize(roles.Staff), h.ChangePassword)
	router.GET("/users/:id", security.Authorize(roles.Staff), h.GetUser)
	router.POST("/users", security.Authorize(roles.Admin), h.RegisterUser)
	router.PATCH("/users/:id", security.Authorize(roles.Admin), h.UpdateUser)
	router.DELETE("/users/:id", security.Authorize(roles.Admin), h.DeleteUser)
}

func (h *UsersHandler) RegisterUser(c *gin.Context) {
	var req CreateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	actorID, _ := security.GetUserID(c)
	profile, err := h.service.Create(c.Request.Context(), req, actorID)
	if err != nil {
		response.Fail(c, response.StatusFor(err, errorStatus), "Failed to create user", err)
		return
	}

	response.OK(c, http.StatusCreated, profile)
}

func (h *UsersHandler) UpdateUser(c *gin.Context) {
	userID, err := request.ParamID(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid user ID", err)
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	actorID, _ := security.GetUserID(c)
	profile, err := h.service.Update(c.Request.Context(), userID, req, actorID)
	if err != nil {
		response.Fail(c, response.StatusFor(err, errorStatus), "Failed to update user", err)
		return
	}

	response.OK(c, http.StatusOK, profile)
}

func (h *UsersHandler) GetUser(c *gin.Context) {
	userID, err := request.ParamID(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid user ID", err)
		return
	}

	if !h.isAllowed(c, userID, roles.Technician) {
		response.Fail(c, http.StatusForbidden, "Forbidden", nil)
		return
	}

	profile, err := h.service.Get(c.Request.Context(), userID)
	if err != nil {
		response.Fail(c, response.StatusFor(err, errorStatus), "Unable to find user", err)
		return
	}

	response.OK(c, http.StatusOK, profile)
}

func (h *UsersHandler) GetMe(c *gin.Context) {
	userID, err := security.GetUserID(c)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	profile, err := h.service.Get(c.Request.Context(), userID)
	if err != nil {
		response.Fail(c, response.StatusFor(err, errorStatus), "Unable to find user", err)
		return
	}

	response.OK(c, http.StatusOK, profile)
}

func (h *UsersHandler) GetUserList(c *gin.Context) {
	filter := ProfileFilter{
		Role:   c.Query("role"),
		Active: request.QueryBool(c, "active"),
		Search: c.Query("search"),
	}

	profiles, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, "Could not obtain list of users", err)
		return
	}

	response.OK(c, http.StatusOK, profiles)
}

func (h *UsersHandler) GetTechnicians(c *gin.Context) {
	profiles, err := h.service.Technicians(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, "Could not obtain list of technicians", err)
		return
	}

	response.OK(c, http.StatusOK, profiles)
}

func (h *UsersHandler) ChangePassword(c *gin.Context) {
	userID, err := security.GetUserID(c)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	if err := h.service.ChangePassword(c.Request.Context(), userID, req); err != nil {
		response.Fail(c, response.StatusFor(err, errorStatus), "Failed to change password", err)
		return
	}

	response.Message(c, http.StatusOK, "Password changed")
}

func (h *UsersHandler) DeleteUser(c *gin.Context) {
	userID, err := request.ParamID(c, "id")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid user ID", err)
		return
	}

	actorID, _ := security.GetUserID(c)
	deactivated, err := h.service.Delete(c.Request.Context(), userID, actorID)
	if err != nil {
		response.Fail(c, response.StatusFor(err, errorStatus), "Failed to delete user", err)
		return
	}

	if deactivated {
		response.Message(c, http.StatusOK, "User is referenced by other records and was deactivated")
		return
	}
	response.Message(c, http.StatusOK, "User deleted")
}

// isAllowed lets a profile read itself, and requiredRole read anyone.
func (h *UsersHandler) isAllowed(c *gin.Context, userID int, requiredRole roles.Role) bool {
	authID, err := security.GetUserID(c)
	if err != nil {
		return false
	}

	return authID == userID || security.IsAllowed(c, requiredRole)
}
