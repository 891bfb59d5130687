package websocket

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"taskloop-sync/internal/hub"
	"taskloop-sync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestHandleConnection_RejectsBeforeUpgrade(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := hub.NewHub(func(string, service.Navigator) *service.SessionSync {
		t.Fatal("no controller should be created")
		return nil
	}, hub.Options{})
	handler := NewWebSocketHandler(h, "")

	r := gin.New()
	r.GET("/ws/rooms/:uuid", handler.HandleConnection)

	tests := []struct {
		name string
		path string
	}{
		{"Bad uuid", "/ws/rooms/not-a-uuid"},
		{"Bad order", "/ws/rooms/0b9e3c1e-7d4c-4f59-9d43-5f0f3c3b5a11?order=sideways"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestHandleConnection_PlainRequestIsNotUpgraded(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := hub.NewHub(func(string, service.Navigator) *service.SessionSync {
		t.Fatal("no controller should be created")
		return nil
	}, hub.Options{})
	r := gin.New()
	r.GET("/ws/rooms/:uuid", NewWebSocketHandler(h, "").HandleConnection)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws/rooms/0b9e3c1e-7d4c-4f59-9d43-5f0f3c3b5a11", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckOrigin(t *testing.T) {
	h := hub.NewHub(func(string, service.Navigator) *service.SessionSync { return nil }, hub.Options{})
	handler := NewWebSocketHandler(h, "http://localhost:5173")

	req := httptest.NewRequest(http.MethodGet, "/ws/rooms/x", nil)
	assert.True(t, handler.upgrader.CheckOrigin(req))
	req.Header.Set("Origin", "http://localhost:5173")
	assert.True(t, handler.upgrader.CheckOrigin(req))
	req.Header.Set("Origin", "http://evil.test")
	assert.False(t, handler.upgrader.CheckOrigin(req))
}
