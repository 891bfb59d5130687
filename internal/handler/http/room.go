package http

import (
	"net/http"

	"taskloop-sync/internal/domain"
	"taskloop-sync/internal/hub"
	"taskloop-sync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SessionLeaser hands out the live controller of a room.
type SessionLeaser interface {
	Lease(roomUUID string) (*service.SessionSync, func(), error)
}

// leaseSession validates the :uuid parameter, leases its controller and
// waits for the initial load. On false a response has been written.
func leaseSession(c *gin.Context, sessions SessionLeaser) (*service.SessionSync, func(), bool) {
	roomUUID := c.Param("uuid")
	if err := service.ValidateRoomUUID(roomUUID); err != nil {
		HandleServiceError(c, err)
		return nil, nil, false
	}
	s, release, err := sessions.Lease(roomUUID)
	if err != nil {
		HandleServiceError(c, err)
		return nil, nil, false
	}
	if err := s.WaitLoaded(c.Request.Context()); err != nil {
		release()
		HandleServiceError(c, err)
		return nil, nil, false
	}

	st := s.Snapshot()
	if st.Room != nil {
		return s, release, true
	}
	release()
	switch st.ErrorKind {
	case service.KindForbidden:
		ErrorResponse(c, http.StatusForbidden, st.Error)
	case service.KindNotFound:
		ErrorResponse(c, http.StatusNotFound, st.Error)
	case service.KindUnauthorized:
		RedirectResponse(c, http.StatusUnauthorized, "Login required", service.RouteLogin)
	default:
		ErrorResponse(c, http.StatusBadGateway, service.MsgLoadFailed)
	}
	return nil, nil, false
}

// RoomHandler serves the room list, room settings and the room board.
type RoomHandler struct {
	roomService *service.RoomService
	sessions    SessionLeaser
}

func NewRoomHandler(roomService *service.RoomService, sessions SessionLeaser) *RoomHandler {
	if roomService == nil {
		panic("RoomService cannot be nil for RoomHandler")
	}
	if sessions == nil {
		panic("SessionLeaser cannot be nil for RoomHandler")
	}
	return &RoomHandler{roomService: roomService, sessions: sessions}
}

func (h *RoomHandler) ListRooms(c *gin.Context) {
	rooms, err := h.roomService.List(c.Request.Context())
	if err != nil {
		handleOpError(c, err, "Failed to load study rooms")
		return
	}
	if rooms == nil {
		rooms = []domain.Room{}
	}
	SuccessResponse(c, http.StatusOK, rooms)
}

// CreateRoomRequest is the body of POST /api/rooms. With Wait set the
// response is delayed until the new room can be read.
type CreateRoomRequest struct {
	Name string `json:"name" binding:"required"`
	Wait bool   `json:"wait"`
}

type CreateRoomResponse struct {
	Message string       `json:"message"`
	UUID    string       `json:"uuid"`
	Name    string       `json:"name"`
	Room    *domain.Room `json:"room,omitempty"`
}

func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: name is required")
		return
	}

	ref, err := h.roomService.Create(c.Request.Context(), req.Name)
	if err != nil {
		handleOpError(c, err, "Failed to create study room. Please try again.")
		return
	}
	resp := CreateRoomResponse{Message: "Room created successfully", UUID: ref.UUID, Name: ref.Name}
	if req.Wait {
		room, err := h.roomService.WaitUntilReadable(c.Request.Context(), ref.UUID)
		if err != nil {
			HandleServiceError(c, err)
			return
		}
		resp.Room = room
	}
	logrus.WithField("room_uuid", ref.UUID).Info("Handler.CreateRoom: Room created")
	SuccessResponse(c, http.StatusCreated, resp)
}

// Board renders the room screen. Query: order=newest|oldest.
func (h *RoomHandler) Board(c *gin.Context) {
	order, err := domain.ParseTaskOrder(c.Query("order"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	s, release, ok := leaseSession(c, h.sessions)
	if !ok {
		return
	}
	defer release()
	SuccessResponse(c, http.StatusOK, hub.NewView(s.Snapshot(), order))
}

type RenameRoomRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *RoomHandler) RenameRoom(c *gin.Context) {
	var req RenameRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: name is required")
		return
	}
	s, release, ok := leaseSession(c, h.sessions)
	if !ok {
		return
	}
	defer release()

	room, err := s.RenameRoom(c.Request.Context(), req.Name)
	if err != nil {
		handleOpError(c, err, service.MsgRenameFailed)
		return
	}
	SuccessResponse(c, http.StatusOK, room)
}

func (h *RoomHandler) LeaveRoom(c *gin.Context) {
	s, release, ok := leaseSession(c, h.sessions)
	if !ok {
		return
	}
	defer release()

	if err := s.LeaveSession(c.Request.Context()); err != nil {
		handleOpError(c, err, service.MsgLeaveFailed)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Left study room", "redirect": service.RouteHome})
}

func (h *RoomHandler) DeleteRoom(c *gin.Context) {
	s, release, ok := leaseSession(c, h.sessions)
	if !ok {
		return
	}
	defer release()

	if err := s.DeleteSession(c.Request.Context()); err != nil {
		handleOpError(c, err, service.MsgDeleteRoomFailed)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Study room deleted", "redirect": service.RouteHome})
}

// ShareRoom returns the invitation links of a room.
func (h *RoomHandler) ShareRoom(c *gin.Context) {
	roomUUID := c.Param("uuid")
	if err := service.ValidateRoomUUID(roomUUID); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{
		"link":     h.roomService.ShareLink(roomUUID),
		"whatsapp": h.roomService.WhatsAppLink(roomUUID),
	})
}
