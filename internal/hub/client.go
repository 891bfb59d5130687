package hub

import (
	"sync"
	"time"

	"taskloop-sync/internal/domain"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Client is one websocket connection watching a room.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	roomUUID string
	send     chan []byte

	mu     sync.Mutex
	order  domain.TaskOrder
	closed bool
}

// NewClient creates a client. Run starts its pumps.
func NewClient(hub *Hub, conn *websocket.Conn, roomUUID string, order domain.TaskOrder) *Client {
	if order == "" {
		order = domain.OrderNewest
	}
	return &Client{
		hub:      hub,
		conn:     conn,
		roomUUID: roomUUID,
		order:    order,
		send:     make(chan []byte, 64),
	}
}

// Run starts the read and write pumps.
func (c *Client) Run() {
	go c.WritePump()
	go c.ReadPump()
}

func (c *Client) RoomUUID() string { return c.roomUUID }

func (c *Client) Order() domain.TaskOrder {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order
}

func (c *Client) setOrder(order domain.TaskOrder) {
	c.mu.Lock()
	c.order = order
	c.mu.Unlock()
}

// enqueue queues a message without blocking. Slow clients miss messages;
// the next board replaces what they missed.
func (c *Client) enqueue(message []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- message:
	default:
		logrus.WithField("room_uuid", c.roomUUID).Warn("Client send channel full, message dropped")
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) logCtx() *logrus.Entry {
	return logrus.WithFields(logrus.Fields{"room_uuid": c.roomUUID, "remote": c.conn.RemoteAddr().String()})
}

// ReadPump forwards client commands to the hub. It unregisters the client
// when the connection ends.
func (c *Client) ReadPump() {
	defer func() {
		if !c.hub.QueueMessage(HubMessage{Type: "unregister", Client: c}) {
			c.closeSend()
		}
		c.conn.Close()
		c.logCtx().Debug("readPump exited")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logCtx().WithError(err).Warn("WebSocket read error (unexpected close)")
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		c.hub.QueueMessage(HubMessage{Type: "command", Client: c, RawData: message})
	}
}

// WritePump writes queued messages and pings to the connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logCtx().WithError(err).Warn("Failed to write message to websocket")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logCtx().WithError(err).Debug("Failed to send ping message")
				return
			}
		}
	}
}

// CloseConn closes the underlying connection.
func (c *Client) CloseConn() { c.conn.Close() }
