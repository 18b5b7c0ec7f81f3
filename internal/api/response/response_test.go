package response_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kiranshivaraju/keyserver/internal/api/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	response.JSON(w, http.StatusOK, map[string]string{"link": "https://example.com"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "https://example.com", body["link"])
}

func TestJSON_Array(t *testing.T) {
	w := httptest.NewRecorder()
	response.JSON(w, http.StatusOK, []int{1, 2, 3})

	var body []int
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []int{1, 2, 3}, body)
}

func TestText(t *testing.T) {
	w := httptest.NewRecorder()
	response.Text(w, http.StatusCreated, "Activation key added")

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "Activation key added", w.Body.String())
}

func TestError(t *testing.T) {
	w := httptest.NewRecorder()
	response.Error(w, http.StatusForbidden, "Unauthorized")

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Unauthorized", w.Body.String())
}

func TestNoContent(t *testing.T) {
	w := httptest.NewRecorder()
	response.NoContent(w)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}
