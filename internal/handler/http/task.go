package http

import (
	"net/http"
	"strconv"

	"taskloop-sync/internal/service"

	"github.com/gin-gonic/gin"
)

// TaskHandler runs task operations through the room's controller, so every
// watcher of the room sees the result immediately.
type TaskHandler struct {
	sessions SessionLeaser
}

func NewTaskHandler(sessions SessionLeaser) *TaskHandler {
	if sessions == nil {
		panic("SessionLeaser cannot be nil for TaskHandler")
	}
	return &TaskHandler{sessions: sessions}
}

type TaskTextRequest struct {
	Text string `json:"text" binding:"required"`
}

func taskID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("taskId"), 10, 64)
	if err != nil || id <= 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid task id")
		return 0, false
	}
	return id, true
}

func (h *TaskHandler) AddTask(c *gin.Context) {
	var req TaskTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: text is required")
		return
	}
	s, release, ok := leaseSession(c, h.sessions)
	if !ok {
		return
	}
	defer release()

	task, err := s.AddTask(c.Request.Context(), req.Text)
	if err != nil {
		handleOpError(c, err, service.MsgAddFailed)
		return
	}
	SuccessResponse(c, http.StatusCreated, task)
}

func (h *TaskHandler) ToggleTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	s, release, ok := leaseSession(c, h.sessions)
	if !ok {
		return
	}
	defer release()

	task, err := s.ToggleTask(c.Request.Context(), id)
	if err != nil {
		handleOpError(c, err, service.MsgToggleFailed)
		return
	}
	SuccessResponse(c, http.StatusOK, task)
}

func (h *TaskHandler) EditTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	var req TaskTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: text is required")
		return
	}
	s, release, ok := leaseSession(c, h.sessions)
	if !ok {
		return
	}
	defer release()

	task, err := s.EditTask(c.Request.Context(), id, req.Text)
	if err != nil {
		handleOpError(c, err, service.MsgEditFailed)
		return
	}
	SuccessResponse(c, http.StatusOK, task)
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	s, release, ok := leaseSession(c, h.sessions)
	if !ok {
		return
	}
	defer release()

	if err := s.DeleteTask(c.Request.Context(), id); err != nil {
		handleOpError(c, err, service.MsgDeleteFailed)
		return
	}
	c.Status(http.StatusNoContent)
}
