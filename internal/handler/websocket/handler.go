package websocket

import (
	"net/http"

	"taskloop-sync/internal/domain"
	"taskloop-sync/internal/hub"
	"taskloop-sync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// WebSocketHandler upgrades room watch requests and registers the client
// with the hub.
type WebSocketHandler struct {
	upgrader websocket.Upgrader
	hub      *hub.Hub
}

// NewWebSocketHandler creates the handler. allowedOrigin "" or "*" accepts
// any origin.
func NewWebSocketHandler(h *hub.Hub, allowedOrigin string) *WebSocketHandler {
	if h == nil {
		panic("Hub cannot be nil for WebSocketHandler")
	}
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return allowedOrigin == "" || allowedOrigin == "*" || origin == "" || origin == allowedOrigin
		},
	}
	return &WebSocketHandler{upgrader: upgrader, hub: h}
}

// HandleConnection serves GET /ws/rooms/:uuid?order=newest|oldest.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	roomUUID := c.Param("uuid")
	logCtx := logrus.WithField("room_uuid", roomUUID)

	// 1. validate before upgrading, errors are still plain HTTP here
	if err := service.ValidateRoomUUID(roomUUID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid room id"})
		return
	}
	order, err := domain.ParseTaskOrder(c.Query("order"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 2. upgrade
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		logCtx.WithError(err).Warn("WS Handler: Failed to upgrade connection")
		return
	}

	// 3. register, then start the pumps
	client := hub.NewClient(h.hub, conn, roomUUID, order)
	if !h.hub.QueueMessage(hub.HubMessage{Type: "register", Client: client}) {
		logCtx.Error("WS Handler: Failed to register client")
		client.CloseConn()
		return
	}
	client.Run()
	logCtx.Info("WS Handler: Client connected")
}
