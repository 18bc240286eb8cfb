package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dealerops/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPinger struct {
	mock.Mock
}

func (m *MockPinger) Ping() error {
	return m.Called().Error(0)
}

func TestSystemHandler_Health(t *testing.T) {
	tests := []struct {
		name     string
		pingErr  error
		status   int
		state    string
		database string
	}{
		{"database reachable", nil, http.StatusOK, "healthy", "ok"},
		{"database down", errors.New("dial tcp: connection refused"), http.StatusServiceUnavailable, "unhealthy", "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := new(MockPinger)
			db.On("Ping").Return(tt.pingErr).Once()
			h := NewSystemHandler("dealerops", "test", db)

			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)
			h.Health(c)

			assert.Equal(t, tt.status, w.Code)
			var resp HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.state, resp.Status)
			assert.Equal(t, tt.database, resp.Database)
			assert.NotEmpty(t, resp.Time)
			db.AssertExpectations(t)
		})
	}
}

func TestSystemHandler_GetSystemInfo(t *testing.T) {
	h := NewSystemHandler("dealerops", "1.2.3", nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/system/info", nil)
	h.GetSystemInfo(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "dealerops", data["name"])
	assert.Equal(t, "1.2.3", data["version"])
	assert.NotEmpty(t, data["go_version"])
	assert.NotEmpty(t, data["uptime"])
}
