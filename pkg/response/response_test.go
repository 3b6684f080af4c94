package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-wellness-api/pkg/errors"
)

func TestErrorHidesInternalDetail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	Error(c, appErrors.Internal(errors.New("pq: relation missing"), "failed to load alert"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "pq:")
	assert.NotContains(t, rec.Body.String(), "failed to load alert")
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	require.Len(t, c.Errors, 1)
}

func TestErrorKeepsClientMessage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	Error(c, appErrors.Clone(appErrors.ErrNotFound, "conversation not found"))

	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
	assert.Equal(t, "conversation not found", env.Error.Message)
}

func TestJSONOmitsEmptyMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	JSON(c, http.StatusOK, gin.H{"ok": true}, nil, map[string]interface{}{})
	assert.JSONEq(t, `{"data":{"ok":true}}`, rec.Body.String())
}

func TestAbortStopsChain(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	reached := false
	router.GET("/", func(c *gin.Context) {
		Abort(c, appErrors.Clone(appErrors.ErrForbidden, "counselor access required"))
	}, func(c *gin.Context) {
		reached = true
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, reached)
}

func TestErrorIncludesValidationFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	err := appErrors.Clone(appErrors.ErrValidation, "invalid mood payload")
	err.Fields = map[string]string{"mood_score": "max=5"}
	Error(c, err)

	assert.JSONEq(t, `{"error":{"code":"VALIDATION_ERROR","message":"invalid mood payload","status":400,"fields":{"mood_score":"max=5"}}}`, rec.Body.String())
}
