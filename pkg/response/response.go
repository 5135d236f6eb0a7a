package response

import (
	"errors"
	"net/http"

	custom_error "helpdesk/pkg/errors"

	"github.com/gin-gonic/gin"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
	Details string      `json:"details,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

type Meta struct {
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

func OK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Envelope{Success: true, Data: data})
}

func List(c *gin.Context, data interface{}, meta Meta) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data, Meta: &meta})
}

func Message(c *gin.Context, status int, msg string) {
	c.JSON(status, Envelope{Success: true, Message: msg})
}

func Fail(c *gin.Context, status int, msg string, err error) {
	body := Envelope{Success: false, Error: msg}
	if err != nil {
		body.Details = err.Error()
	}
	c.AbortWithStatusJSON(status, body)
}

// StatusFor resolves an HTTP status for err, consulting the domain
// mapping first and falling back to database error types.
func StatusFor(err error, domain map[error]int) int {
	for target, status := range domain {
		if errors.Is(err, target) {
			return status
		}
	}

	switch {
	case custom_error.IsUniqueViolation(err), custom_error.IsForeignKeyViolation(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
