package request

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newContext(target string, params gin.Params) *gin.Context {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", target, nil)
	c.Params = params
	return c
}

func TestParamID(t *testing.T) {
	id, err := ParamID(newContext("/", gin.Params{{Key: "id", Value: "12"}}), "id")
	assert.NoError(t, err)
	assert.Equal(t, 12, id)

	_, err = ParamID(newContext("/", gin.Params{{Key: "id", Value: "-1"}}), "id")
	assert.Error(t, err)

	_, err = ParamID(newContext("/", nil), "id")
	assert.Error(t, err)
}

func TestPageAndBool(t *testing.T) {
	c := newContext("/?limit=5&offset=x&active=false", nil)

	limit, offset := Page(c)
	assert.Equal(t, 5, limit)
	assert.Equal(t, 0, offset)

	active := QueryBool(c, "active")
	if assert.NotNil(t, active) {
		assert.False(t, *active)
	}
	assert.Nil(t, QueryBool(c, "missing"))
}
