package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// APIResponse mirrors the response envelope
type APIResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		Retryable bool   `json:"retryable,omitempty"`
	} `json:"error,omitempty"`
}

// PerformJSON sends a request with an optional JSON body through the engine
func PerformJSON(t *testing.T, engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			data, err := json.Marshal(body)
			require.NoError(t, err, "Failed to marshal request body")
			reader = bytes.NewReader(data)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

// DecodeResponse parses the envelope and, on success, the data into out
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder, out any) APIResponse {
	t.Helper()

	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "Failed to parse response: %s", w.Body.String())
	if out != nil && resp.Success && len(resp.Data) > 0 {
		require.NoError(t, json.Unmarshal(resp.Data, out), "Failed to parse response data")
	}
	return resp
}

// AssertError asserts an error envelope with the given status and code
func AssertError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) APIResponse {
	t.Helper()

	assert.Equal(t, status, w.Code, "body: %s", w.Body.String())
	resp := DecodeResponse(t, w, nil)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, code, resp.Error.Code)
	return resp
}

// AssertOK asserts a 200 success envelope and decodes the data into out
func AssertOK(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	AssertSuccess(t, w, http.StatusOK, out)
}

// AssertSuccess asserts a success envelope with the given status
func AssertSuccess(t *testing.T, w *httptest.ResponseRecorder, status int, out any) {
	t.Helper()

	require.Equal(t, status, w.Code, "body: %s", w.Body.String())
	resp := DecodeResponse(t, w, out)
	assert.True(t, resp.Success)
}
