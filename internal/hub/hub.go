package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"taskloop-sync/internal/domain"
	"taskloop-sync/internal/repository"
	"taskloop-sync/internal/service"

	"github.com/sirupsen/logrus"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1024
)

// Message types sent to websocket clients.
const (
	TypeBoard    = "board"
	TypeRedirect = "redirect"
	TypeError    = "error"
)

// HubMessage is an event from a client to the hub loop.
type HubMessage struct {
	Type    string // "register", "unregister", "command"
	Client  *Client
	RawData []byte
}

// Command is a message sent by a websocket client.
type Command struct {
	Type  string `json:"type"` // "refresh" or "order"
	Order string `json:"order,omitempty"`
}

// Outbound is a message sent to websocket clients.
type Outbound struct {
	Type    string `json:"type"`
	Board   *View  `json:"board,omitempty"`
	Route   string `json:"route,omitempty"`
	Message string `json:"message,omitempty"`
}

// SyncFactory builds a controller for a room. The hub starts and closes it.
type SyncFactory func(roomUUID string, nav service.Navigator) *service.SessionSync

type Options struct {
	// Boards caches the last board per room. Optional.
	Boards   repository.BoardCache
	BoardTTL time.Duration
	// OnLogin runs when a room controller is rejected by the API.
	OnLogin func(from string)
}

// roomWatch is the live controller of one room and everything holding it open.
type roomWatch struct {
	uuid    string
	sync    *service.SessionSync
	clients map[*Client]bool
	leases  int
	done    chan struct{} // closed when the forwarder exits

	cacheMu sync.Mutex
	// gone is set once the user left or deleted the room; its board is no
	// longer cached.
	gone bool
}

func (w *roomWatch) idle() bool {
	return len(w.clients) == 0 && w.leases == 0
}

// Hub keeps one SessionSync per watched room and fans its state out to the
// websocket clients of that room. A room's controller lives while a client
// is connected or a request holds a lease on it.
type Hub struct {
	messageChan chan HubMessage

	rooms   map[string]*roomWatch
	roomsMu sync.RWMutex

	newSync SyncFactory
	opts    Options

	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub creates a hub. Run must be called to process client events.
func NewHub(newSync SyncFactory, opts Options) *Hub {
	if newSync == nil {
		panic("SyncFactory cannot be nil for Hub")
	}
	if opts.BoardTTL <= 0 {
		opts.BoardTTL = 10 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		messageChan: make(chan HubMessage, 512),
		rooms:       make(map[string]*roomWatch),
		newSync:     newSync,
		opts:        opts,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Run processes client events until Shutdown.
func (h *Hub) Run() {
	log := logrus.WithField("component", "hub")
	log.Info("Hub is running...")
	for {
		select {
		case <-h.ctx.Done():
			log.Info("Hub is shutting down...")
			return
		case msg := <-h.messageChan:
			switch msg.Type {
			case "register":
				h.registerClient(msg.Client)
			case "unregister":
				h.unregisterClient(msg.Client)
			case "command":
				h.handleCommand(msg)
			default:
				log.Warnf("Hub: Received unknown message type: %s", msg.Type)
			}
		}
	}
}

// QueueMessage hands an event to the hub loop without blocking. It returns
// false when the queue is full or the hub is stopped.
func (h *Hub) QueueMessage(msg HubMessage) bool {
	if h.ctx.Err() != nil {
		return false
	}
	select {
	case h.messageChan <- msg:
		return true
	default:
		logrus.WithField("message_type", msg.Type).Warn("Hub message channel full, dropping message")
		return false
	}
}

// Lease returns the live controller of roomUUID, starting one if the room is
// not watched yet. release must be called exactly once.
func (h *Hub) Lease(roomUUID string) (*service.SessionSync, func(), error) {
	if h.ctx.Err() != nil {
		return nil, nil, service.ErrClosed
	}
	h.roomsMu.Lock()
	w := h.watchLocked(roomUUID)
	w.leases++
	h.roomsMu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			h.roomsMu.Lock()
			w.leases--
			stale := h.dropIfIdleLocked(w)
			h.roomsMu.Unlock()
			if stale {
				h.closeWatch(w)
			}
		})
	}
	return w.sync, release, nil
}

// WatchedRooms lists the rooms with a live controller.
func (h *Hub) WatchedRooms() []string {
	h.roomsMu.RLock()
	defer h.roomsMu.RUnlock()
	out := make([]string, 0, len(h.rooms))
	for id := range h.rooms {
		out = append(out, id)
	}
	return out
}

// Shutdown closes every controller and disconnects every client.
func (h *Hub) Shutdown() {
	h.cancel()

	h.roomsMu.Lock()
	watches := make([]*roomWatch, 0, len(h.rooms))
	for id, w := range h.rooms {
		for c := range w.clients {
			c.closeSend()
		}
		watches = append(watches, w)
		delete(h.rooms, id)
	}
	h.roomsMu.Unlock()

	for _, w := range watches {
		h.closeWatch(w)
	}
	logrus.WithField("rooms", len(watches)).Info("Hub stopped all room controllers")
}

// watchLocked returns the watch of roomUUID, creating and starting it if
// needed. Requires roomsMu.
func (h *Hub) watchLocked(roomUUID string) *roomWatch {
	if w, ok := h.rooms[roomUUID]; ok {
		return w
	}
	w := &roomWatch{
		uuid:    roomUUID,
		clients: make(map[*Client]bool),
		done:    make(chan struct{}),
	}
	w.sync = h.newSync(roomUUID, &roomNavigator{hub: h, watch: w, onLogin: h.opts.OnLogin})
	h.rooms[roomUUID] = w
	w.sync.Start(h.ctx)
	go h.forward(w)
	logrus.WithField("room_uuid", roomUUID).Info("Room controller started")
	return w
}

// dropIfIdleLocked removes w from the hub when nothing holds it open. The
// caller must close it after releasing roomsMu, because closing waits for
// in-flight fetches that may need the lock to broadcast.
func (h *Hub) dropIfIdleLocked(w *roomWatch) bool {
	if !w.idle() || h.rooms[w.uuid] != w {
		return false
	}
	delete(h.rooms, w.uuid)
	return true
}

func (h *Hub) closeWatch(w *roomWatch) {
	w.sync.Close()
	<-w.done
	logrus.WithField("room_uuid", w.uuid).Info("Room controller stopped")
}

func (h *Hub) registerClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: Attempted to register a nil client")
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{"room_uuid": client.RoomUUID(), "action": "registerClient"})

	h.roomsMu.Lock()
	w := h.watchLocked(client.RoomUUID())
	w.clients[client] = true
	h.roomsMu.Unlock()
	logCtx.Info("Client registered to Hub")

	go h.sendInitialBoard(client, w)
}

func (h *Hub) unregisterClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: Attempted to unregister a nil client")
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{"room_uuid": client.RoomUUID(), "action": "unregisterClient"})

	h.roomsMu.Lock()
	w, ok := h.rooms[client.RoomUUID()]
	if !ok || !w.clients[client] {
		h.roomsMu.Unlock()
		logCtx.Debug("Client not found during unregister")
		return
	}
	delete(w.clients, client)
	client.closeSend()
	stale := h.dropIfIdleLocked(w)
	h.roomsMu.Unlock()
	logCtx.Info("Client unregistered from Hub")

	if stale {
		go h.closeWatch(w)
	}
}

func (h *Hub) handleCommand(msg HubMessage) {
	client := msg.Client
	if client == nil {
		return
	}
	var cmd Command
	if err := json.Unmarshal(msg.RawData, &cmd); err != nil {
		client.enqueue(mustMarshal(Outbound{Type: TypeError, Message: "invalid command"}))
		return
	}

	h.roomsMu.RLock()
	w, ok := h.rooms[client.RoomUUID()]
	h.roomsMu.RUnlock()
	if !ok {
		return
	}

	switch cmd.Type {
	case "refresh":
		w.sync.Refresh()
	case "order":
		order, err := domain.ParseTaskOrder(cmd.Order)
		if err != nil {
			client.enqueue(mustMarshal(Outbound{Type: TypeError, Message: err.Error()}))
			return
		}
		client.setOrder(order)
		view := NewView(w.sync.Snapshot(), order)
		client.enqueue(mustMarshal(Outbound{Type: TypeBoard, Board: &view}))
	default:
		client.enqueue(mustMarshal(Outbound{Type: TypeError, Message: "unknown command " + cmd.Type}))
	}
}

// sendInitialBoard sends the current state to a new client. Before the first
// room fetch completes a cached board is used when one exists.
func (h *Hub) sendInitialBoard(client *Client, w *roomWatch) {
	st := w.sync.Snapshot()
	view := NewView(st, client.Order())
	if st.Room == nil && h.opts.Boards != nil {
		cached, err := h.opts.Boards.GetBoard(h.ctx, w.uuid)
		switch {
		case err == nil:
			view.Board = *cached
			view.Stale = true
		case !errors.Is(err, repository.ErrNotFound):
			logrus.WithError(err).WithField("room_uuid", w.uuid).Warn("Failed to read cached board")
		}
	}
	client.enqueue(mustMarshal(Outbound{Type: TypeBoard, Board: &view}))
}

// forward turns controller change signals into board messages until the
// controller is closed.
func (h *Hub) forward(w *roomWatch) {
	defer close(w.done)
	for {
		select {
		case <-w.sync.Done():
			return
		case <-w.sync.Changes():
			h.publish(w)
		}
	}
}

func (h *Hub) publish(w *roomWatch) {
	st := w.sync.Snapshot()
	h.cacheBoard(w, st)

	h.roomsMu.RLock()
	clients := make([]*Client, 0, len(w.clients))
	for c := range w.clients {
		clients = append(clients, c)
	}
	h.roomsMu.RUnlock()
	if len(clients) == 0 {
		return
	}

	// one encoding per order in use
	encoded := make(map[domain.TaskOrder][]byte, 2)
	for _, c := range clients {
		order := c.Order()
		msg, ok := encoded[order]
		if !ok {
			view := NewView(st, order)
			msg = mustMarshal(Outbound{Type: TypeBoard, Board: &view})
			encoded[order] = msg
		}
		c.enqueue(msg)
	}
	logrus.WithFields(logrus.Fields{"room_uuid": w.uuid, "recipient_count": len(clients)}).Debug("Board broadcast")
}

// cacheBoard stores the latest board of a loaded room. A room that failed to
// load with not-found loses its cached board.
func (h *Hub) cacheBoard(w *roomWatch, st service.SyncState) {
	if h.opts.Boards == nil {
		return
	}
	w.cacheMu.Lock()
	defer w.cacheMu.Unlock()
	logCtx := logrus.WithField("room_uuid", w.uuid)
	switch {
	case w.gone:
	case st.Room != nil:
		if err := h.opts.Boards.SetBoard(h.ctx, w.uuid, st.Board(domain.OrderNewest), h.opts.BoardTTL); err != nil {
			logCtx.WithError(err).Warn("Failed to cache board")
		}
	case st.ErrorKind == service.KindNotFound:
		if err := h.opts.Boards.DropBoard(h.ctx, w.uuid); err != nil {
			logCtx.WithError(err).Warn("Failed to drop cached board")
		}
	}
}

// forgetBoard drops the cached board of a room the user left or deleted and
// stops caching it for the rest of the controller's life.
func (h *Hub) forgetBoard(w *roomWatch) {
	w.cacheMu.Lock()
	defer w.cacheMu.Unlock()
	w.gone = true
	if h.opts.Boards == nil {
		return
	}
	if err := h.opts.Boards.DropBoard(h.ctx, w.uuid); err != nil {
		logrus.WithError(err).WithField("room_uuid", w.uuid).Warn("Failed to drop cached board")
	}
}

// broadcast sends message to every client of a room.
func (h *Hub) broadcast(roomUUID string, message []byte) {
	h.roomsMu.RLock()
	w, ok := h.rooms[roomUUID]
	clients := make([]*Client, 0)
	if ok {
		for c := range w.clients {
			clients = append(clients, c)
		}
	}
	h.roomsMu.RUnlock()

	for _, c := range clients {
		c.enqueue(message)
	}
}

func mustMarshal(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		// only plain structs are marshalled here
		panic(err)
	}
	return b
}

// roomNavigator turns controller navigation into redirect messages.
type roomNavigator struct {
	hub     *Hub
	watch   *roomWatch
	onLogin func(from string)
}

// Home runs after the user left or deleted the room.
func (n *roomNavigator) Home() {
	n.hub.forgetBoard(n.watch)
	n.hub.broadcast(n.watch.uuid, mustMarshal(Outbound{Type: TypeRedirect, Route: service.RouteHome}))
}

func (n *roomNavigator) Login(from string) {
	if n.onLogin != nil {
		n.onLogin(from)
	}
	n.hub.broadcast(n.watch.uuid, mustMarshal(Outbound{Type: TypeRedirect, Route: service.RouteLogin}))
}
