package request

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ParamID parses a positive integer path parameter.
func ParamID(c *gin.Context, name string) (int, error) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, c.Param(name))
	}
	return id, nil
}

// QueryInt returns 0 when the parameter is missing or malformed.
func QueryInt(c *gin.Context, name string) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return v
}

// Page reads limit/offset query parameters. Clamping is left to
// repository.NewPagination.
func Page(c *gin.Context) (limit int, offset int) {
	return QueryInt(c, "limit"), QueryInt(c, "offset")
}

// QueryBool reports nil for a missing parameter.
func QueryBool(c *gin.Context, name string) *bool {
	raw, ok := c.GetQuery(name)
	if !ok {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}
