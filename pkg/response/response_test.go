package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	custom_error "helpdesk/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errMissing = errors.New("missing")

func TestStatusFor(t *testing.T) {
	domain := map[error]int{errMissing: http.StatusNotFound}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"domain error", errMissing, http.StatusNotFound},
		{"wrapped domain error", fmt.Errorf("asset 3: %w", errMissing), http.StatusNotFound},
		{"unique violation", custom_error.WrapDBError("insert", &pq.Error{Code: "23505"}), http.StatusConflict},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err, domain))
		})
	}
}

func TestFailAborts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Fail(c, http.StatusBadRequest, "Invalid request payload", errors.New("title is required"))

	assert.True(t, c.IsAborted())
	var body Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "Invalid request payload", body.Error)
	assert.Equal(t, "title is required", body.Details)
}

func TestListCarriesMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	List(c, []int{1, 2}, Meta{Total: 12, Limit: 2, Offset: 4})

	var body Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	require.NotNil(t, body.Meta)
	assert.Equal(t, int64(12), body.Meta.Total)
}
