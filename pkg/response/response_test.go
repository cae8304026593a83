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

	"github.com/roads-authority/roadworks-api/internal/models"
	appErrors "github.com/roads-authority/roadworks-api/pkg/errors"
)

func TestJSONWithPaginationAndWarnings(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	JSON(c, http.StatusOK, []string{"B1"}, &models.Pagination{Total: 1, Page: 1, TotalPages: 1, Limit: 20}, Warnings([]string{"check region"}))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(20), body["pagination"].(map[string]interface{})["limit"])
	assert.Equal(t, []interface{}{"check region"}, body["meta"].(map[string]interface{})["warnings"])
}

func TestWarningsEmpty(t *testing.T) {
	assert.Nil(t, Warnings(nil))
}

func TestErrorHidesCause(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, appErrors.OperationFailed(errors.New("pq: connection refused"), "failed to create roadwork"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
	assert.Contains(t, w.Body.String(), "DB_OPERATION_FAILED")
}

func TestErrorValidationDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, appErrors.NewValidation("Title is required", "Road is required"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body struct {
		Error appErrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"Title is required", "Road is required"}, body.Error.Details)
}
