// Package fakeapi is an in-memory study-room API for tests. It speaks the
// same REST contract as the real backend: token auth, sessions, tasks and the
// /sessions/task/{uuid}/delete/{id} delete route.
package fakeapi

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"taskloop-sync/internal/domain"
	"taskloop-sync/internal/dto"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const ctxUserID = "user_id"

var secret = []byte("fakeapi-secret")

type user struct {
	domain.User
	hash []byte
}

type room struct {
	domain.Room
}

type fault struct {
	method string
	prefix string
	status int
}

// Server is an API instance listening on a local port.
type Server struct {
	*httptest.Server

	mu     sync.Mutex
	users  map[int64]*user
	names  map[string]int64
	rooms  map[string]*room
	tasks  map[string][]domain.Task
	nextID int64
	clock  time.Time
	faults []fault
	log    []string

	autoJoin bool
}

// New starts a server on a random local port. Callers must Close it.
func New() *Server {
	gin.SetMode(gin.TestMode)
	s := &Server{
		users:    make(map[int64]*user),
		names:    make(map[string]int64),
		rooms:    make(map[string]*room),
		tasks:    make(map[string][]domain.Task),
		clock:    time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		autoJoin: true,
	}
	s.Server = httptest.NewServer(s.router())
	return s
}

func (s *Server) router() *gin.Engine {
	r := gin.New()
	r.Use(s.record(), s.inject())

	r.POST("/auth/login", s.login)
	r.POST("/auth/register", s.register)

	authed := r.Group("", s.authenticate())
	authed.GET("/auth/me", s.me)
	authed.GET("/sessions/", s.listSessions)
	authed.POST("/sessions/create", s.createSession)
	authed.GET("/sessions/:uuid", s.getSession)
	authed.PUT("/sessions/:uuid/manage", s.renameSession)
	authed.DELETE("/sessions/:uuid/manage", s.deleteSession)
	authed.POST("/sessions/:uuid/leave", s.leaveSession)
	authed.GET("/sessions/:uuid/tasks", s.listTasks)
	authed.POST("/sessions/:uuid/tasks/add", s.addTask)
	authed.PUT("/sessions/:uuid/tasks/:id", s.updateTask)
	authed.DELETE("/sessions/task/:uuid/delete/:id", s.deleteTask)
	return r
}

// --- seeding and inspection ---

func (s *Server) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Server) tick() time.Time {
	s.clock = s.clock.Add(time.Minute)
	return s.clock
}

// AddUser registers an account and returns it.
func (s *Server) AddUser(username, email, password string) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.addUserLocked(username, email, password)
	if err != nil {
		panic(err)
	}
	return u.User
}

func (s *Server) addUserLocked(username, email, password string) (*user, error) {
	if _, taken := s.names[username]; taken {
		return nil, fmt.Errorf("username %q already exists", username)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}
	u := &user{User: domain.User{ID: s.id(), Username: username, Email: email}, hash: hash}
	s.users[u.ID] = u
	s.names[username] = u.ID
	return u, nil
}

// TokenFor mints a valid token for userID.
func (s *Server) TokenFor(userID int64) string {
	tok, err := issueToken(userID)
	if err != nil {
		panic(err)
	}
	return tok
}

// AddRoom creates a room owned by creatorID with the given extra members.
func (s *Server) AddRoom(name string, creatorID int64, members ...int64) domain.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.addRoomLocked(name, creatorID)
	for _, id := range members {
		s.joinLocked(r, id)
	}
	return *r.Clone()
}

func (s *Server) addRoomLocked(name string, creatorID int64) *room {
	r := &room{Room: domain.Room{
		ID:        s.id(),
		UUID:      uuid.NewString(),
		Name:      name,
		Creator:   creatorID,
		CreatedAt: s.tick(),
	}}
	if u, ok := s.users[creatorID]; ok {
		r.CreatorUsername = u.Username
	}
	s.joinLocked(r, creatorID)
	s.rooms[r.UUID] = r
	return r
}

func (s *Server) joinLocked(r *room, userID int64) {
	if r.HasParticipant(userID) {
		return
	}
	p := domain.Participant{ID: userID}
	if u, ok := s.users[userID]; ok {
		p.Username = u.Username
	}
	r.Participants = append(r.Participants, p)
}

// AddTask creates a task directly, bypassing ownership checks.
func (s *Server) AddTask(roomUUID string, userID int64, text string, done bool) domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomUUID]
	if !ok {
		panic("fakeapi: unknown room " + roomUUID)
	}
	return s.addTaskLocked(r, userID, text, done)
}

func (s *Server) addTaskLocked(r *room, userID int64, text string, done bool) domain.Task {
	now := s.tick()
	t := domain.Task{
		ID:          s.id(),
		Session:     r.ID,
		SessionUUID: r.UUID,
		User:        userID,
		Text:        text,
		IsDone:      done,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if u, ok := s.users[userID]; ok {
		t.CreatorUsername = u.Username
	}
	s.tasks[r.UUID] = append(s.tasks[r.UUID], t)
	return t
}

// Room returns the current state of a room.
func (s *Server) Room(roomUUID string) (domain.Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomUUID]
	if !ok {
		return domain.Room{}, false
	}
	return *r.Clone(), true
}

// Tasks returns the tasks of a room in creation order.
func (s *Server) Tasks(roomUUID string) []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Task(nil), s.tasks[roomUUID]...)
}

// SetAutoJoin controls whether opening a room adds the user to it, like
// following a share link. With it off, non-participants get 403.
func (s *Server) SetAutoJoin(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoJoin = on
}

// FailNext makes the next request whose method matches and whose path
// starts with prefix answer with status.
func (s *Server) FailNext(method, prefix string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = append(s.faults, fault{method: method, prefix: prefix, status: status})
}

// Requests lists "METHOD /path" for every request received so far.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.log...)
}

// Count returns how many requests matched method and path exactly.
func (s *Server) Count(method, path string) int {
	n := 0
	for _, r := range s.Requests() {
		if r == method+" "+path {
			n++
		}
	}
	return n
}

// --- middleware ---

func (s *Server) record() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		s.log = append(s.log, c.Request.Method+" "+c.Request.URL.Path)
		s.mu.Unlock()
		c.Next()
	}
}

func (s *Server) inject() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		for i, f := range s.faults {
			if f.method == c.Request.Method && strings.HasPrefix(c.Request.URL.Path, f.prefix) {
				s.faults = append(s.faults[:i], s.faults[i+1:]...)
				s.mu.Unlock()
				c.AbortWithStatusJSON(f.status, dto.ErrorBody{Detail: http.StatusText(f.status)})
				return
			}
		}
		s.mu.Unlock()
		c.Next()
	}
}

func issueToken(userID int64) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		ctxUserID: userID,
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
	})
	return token.SignedString(secret)
}

func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Token ")
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorBody{Detail: "Authentication credentials were not provided."})
			return
		}
		token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorBody{Detail: "Invalid token."})
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		id, _ := claims[ctxUserID].(float64)
		s.mu.Lock()
		_, known := s.users[int64(id)]
		s.mu.Unlock()
		if !ok || !known {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorBody{Detail: "Invalid token."})
			return
		}
		c.Set(ctxUserID, int64(id))
		c.Next()
	}
}

func currentUser(c *gin.Context) int64 {
	return c.GetInt64(ctxUserID)
}

// --- auth ---

func (s *Server) login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorBody{Detail: "Invalid input"})
		return
	}
	s.mu.Lock()
	id, ok := s.names[req.Username]
	var hash []byte
	if ok {
		hash = s.users[id].hash
	}
	s.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(hash, []byte(req.Password)) != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorBody{Detail: "Invalid credentials"})
		return
	}
	s.respondToken(c, http.StatusOK, id)
}

func (s *Server) register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorBody{Detail: "Invalid input"})
		return
	}
	s.mu.Lock()
	u, err := s.addUserLocked(req.Username, req.Email, req.Password)
	s.mu.Unlock()
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorBody{Detail: err.Error()})
		return
	}
	s.respondToken(c, http.StatusCreated, u.ID)
}

func (s *Server) respondToken(c *gin.Context, status int, userID int64) {
	tok, err := issueToken(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorBody{Detail: "Could not issue token"})
		return
	}
	c.JSON(status, dto.TokenResponse{Token: tok})
}

func (s *Server) me(c *gin.Context) {
	s.mu.Lock()
	u := s.users[currentUser(c)].User
	s.mu.Unlock()
	c.JSON(http.StatusOK, dto.FromUser(u))
}

// --- sessions ---

var errNoAccess = errors.New("not a participant")

// roomForLocked resolves :uuid for the current user, writing 404/403 on failure.
// The caller must hold s.mu.
func (s *Server) roomForLocked(c *gin.Context, join bool) (*room, bool) {
	r, ok := s.rooms[c.Param("uuid")]
	if !ok {
		c.JSON(http.StatusNotFound, dto.ErrorBody{Detail: "Not found."})
		return nil, false
	}
	uid := currentUser(c)
	if !r.HasParticipant(uid) {
		if !join {
			c.JSON(http.StatusForbidden, dto.ErrorBody{Detail: errNoAccess.Error()})
			return nil, false
		}
		s.joinLocked(r, uid)
	}
	return r, true
}

func (s *Server) listSessions(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	uid := currentUser(c)
	out := []dto.SessionPayload{}
	for _, r := range s.rooms {
		if r.HasParticipant(uid) {
			out = append(out, dto.FromRoom(r.Room))
		}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createSession(c *gin.Context) {
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorBody{Detail: "name is required"})
		return
	}
	s.mu.Lock()
	r := s.addRoomLocked(req.Name, currentUser(c))
	s.mu.Unlock()
	c.JSON(http.StatusCreated, dto.CreateSessionResponse{UUID: r.UUID, Name: r.Name})
}

func (s *Server) getSession(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.roomForLocked(c, s.autoJoin)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dto.FromRoom(r.Room))
}

func (s *Server) renameSession(c *gin.Context) {
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorBody{Detail: "name is required"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.roomForLocked(c, false)
	if !ok {
		return
	}
	if r.Creator != currentUser(c) {
		c.JSON(http.StatusForbidden, dto.ErrorBody{Detail: "Only the creator can manage this session."})
		return
	}
	r.Name = req.Name
	c.JSON(http.StatusOK, dto.FromRoom(r.Room))
}

func (s *Server) deleteSession(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.roomForLocked(c, false)
	if !ok {
		return
	}
	if r.Creator != currentUser(c) {
		c.JSON(http.StatusForbidden, dto.ErrorBody{Detail: "Only the creator can manage this session."})
		return
	}
	delete(s.rooms, r.UUID)
	delete(s.tasks, r.UUID)
	c.Status(http.StatusNoContent)
}

func (s *Server) leaveSession(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.roomForLocked(c, false)
	if !ok {
		return
	}
	uid := currentUser(c)
	kept := r.Participants[:0]
	for _, p := range r.Participants {
		if p.ID != uid {
			kept = append(kept, p)
		}
	}
	r.Participants = kept
	c.JSON(http.StatusOK, gin.H{"detail": "left"})
}

// --- tasks ---

func (s *Server) listTasks(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.roomForLocked(c, false)
	if !ok {
		return
	}
	out := make([]dto.TaskPayload, 0, len(s.tasks[r.UUID]))
	for _, t := range s.tasks[r.UUID] {
		out = append(out, dto.FromTask(t))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) addTask(c *gin.Context) {
	var req dto.AddTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil || dto.Validate(req) != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorBody{Detail: "Invalid task"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.roomForLocked(c, false)
	if !ok {
		return
	}
	if req.UserID != currentUser(c) {
		c.JSON(http.StatusForbidden, dto.ErrorBody{Detail: "Cannot add tasks for another user."})
		return
	}
	c.JSON(http.StatusCreated, dto.FromTask(s.addTaskLocked(r, req.UserID, req.Text, false)))
}

// taskLocked finds :id in the room and checks ownership.
func (s *Server) taskLocked(c *gin.Context, r *room) (int, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, dto.ErrorBody{Detail: "Not found."})
		return 0, false
	}
	for i, t := range s.tasks[r.UUID] {
		if t.ID != id {
			continue
		}
		if t.User != currentUser(c) {
			c.JSON(http.StatusForbidden, dto.ErrorBody{Detail: "You do not own this task."})
			return 0, false
		}
		return i, true
	}
	c.JSON(http.StatusNotFound, dto.ErrorBody{Detail: "Not found."})
	return 0, false
}

type taskUpdate struct {
	Text   *string `json:"text"`
	IsDone *bool   `json:"is_done"`
}

func (s *Server) updateTask(c *gin.Context) {
	var req taskUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorBody{Detail: "Invalid input"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.roomForLocked(c, false)
	if !ok {
		return
	}
	i, ok := s.taskLocked(c, r)
	if !ok {
		return
	}
	t := &s.tasks[r.UUID][i]
	if req.Text != nil {
		t.Text = *req.Text
	}
	if req.IsDone != nil {
		t.IsDone = *req.IsDone
	}
	t.UpdatedAt = s.tick()
	c.JSON(http.StatusOK, dto.FromTask(*t))
}

func (s *Server) deleteTask(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.roomForLocked(c, false)
	if !ok {
		return
	}
	i, ok := s.taskLocked(c, r)
	if !ok {
		return
	}
	list := s.tasks[r.UUID]
	s.tasks[r.UUID] = append(list[:i:i], list[i+1:]...)
	c.Status(http.StatusNoContent)
}
