package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"taskloop-sync/internal/domain"
	"taskloop-sync/internal/repository"

	"github.com/sirupsen/logrus"
)

// DefaultPollInterval is the refresh period of the room and task streams.
const DefaultPollInterval = 5 * time.Second

// OpKind names a mutating operation. Each kind has its own busy/error state.
type OpKind string

const (
	OpAddTask    OpKind = "add_task"
	OpToggleTask OpKind = "toggle_task"
	OpEditTask   OpKind = "edit_task"
	OpDeleteTask OpKind = "delete_task"
	OpRenameRoom OpKind = "rename_room"
	OpLeaveRoom  OpKind = "leave_room"
	OpDeleteRoom OpKind = "delete_room"
)

// OpState is the status of one operation kind as shown to the user.
type OpState struct {
	Busy bool   `json:"busy"`
	Err  string `json:"error,omitempty"`
}

type opState struct {
	inflight int
	err      string
}

// SyncDeps are the collaborators of a SessionSync. Navigator may be nil.
type SyncDeps struct {
	Auth      repository.AuthGateway
	Rooms     repository.RoomRepository
	Tasks     repository.TaskRepository
	Navigator Navigator
}

type SyncOptions struct {
	PollInterval time.Duration
}

// SyncState is a point-in-time copy of a SessionSync.
type SyncState struct {
	RoomUUID     string             `json:"roomUuid"`
	Room         *domain.Room       `json:"room"`
	Tasks        []domain.Task      `json:"tasks"`
	User         *domain.User       `json:"user"`
	LoadingRoom  bool               `json:"loadingRoom"`
	LoadingTasks bool               `json:"loadingTasks"`
	LoadingUser  bool               `json:"loadingUser"`
	Error        string             `json:"error,omitempty"`
	ErrorKind    ErrorKind          `json:"-"`
	Ops          map[OpKind]OpState `json:"ops"`
	Toggling     []int64            `json:"toggling"`
	Closed       bool               `json:"closed"`
}

// IsParticipant reports whether the loaded user appears in the loaded room.
func (s SyncState) IsParticipant() bool {
	return s.User != nil && s.Room.HasParticipant(s.User.ID)
}

// CurrentParticipant is the room entry of the loaded user.
func (s SyncState) CurrentParticipant() (domain.Participant, bool) {
	if s.User == nil {
		return domain.Participant{}, false
	}
	return s.Room.Participant(s.User.ID)
}

func (s SyncState) IsCreator() bool {
	return s.User != nil && s.Room.IsCreator(s.User.ID)
}

func (s SyncState) IsToggling(taskID int64) bool {
	for _, id := range s.Toggling {
		if id == taskID {
			return true
		}
	}
	return false
}

func (s SyncState) SortedTasks(order domain.TaskOrder) []domain.Task {
	return SortTasks(s.Tasks, order)
}

func (s SyncState) SortedParticipants() []domain.ParticipantStats {
	if s.Room == nil {
		return nil
	}
	return RankParticipants(s.Room.Participants, s.Tasks)
}

func (s SyncState) Board(order domain.TaskOrder) domain.Board {
	var userID int64
	if s.User != nil {
		userID = s.User.ID
	}
	return BuildBoard(s.Room, s.Tasks, userID, order)
}

// SessionSync keeps one room, its tasks and the current user fresh while a
// view is open, and runs the task and room mutations of that view.
//
// The room and the task list are two independent polling streams. Every fetch
// is sequenced, and a confirmed mutation invalidates fetches issued before it,
// so a slow poll can never resurrect a deleted task or undo a toggle.
type SessionSync struct {
	roomUUID string
	auth     repository.AuthGateway
	rooms    repository.RoomRepository
	tasks    repository.TaskRepository
	nav      Navigator
	interval time.Duration
	log      *logrus.Entry

	changes chan struct{}
	loaded  chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup

	mu           sync.Mutex
	ctx          context.Context
	cancel       context.CancelFunc
	started      bool
	closed       bool
	room         *domain.Room
	taskList     []domain.Task
	user         *domain.User
	loadingRoom  bool
	loadingTasks bool
	loadingUser  bool
	pending      int
	loadErr      error
	ops          map[OpKind]*opState
	busy         map[int64]OpKind
	roomGen      generation
	taskGen      generation
	redirected   bool
	// reported and listed participant counts of the last accepted room
	countsSeen [2]int
}

// NewSessionSync creates a controller for roomUUID. Nothing is fetched until Start.
func NewSessionSync(roomUUID string, deps SyncDeps, opts SyncOptions) *SessionSync {
	if deps.Auth == nil {
		panic("AuthGateway cannot be nil for SessionSync")
	}
	if deps.Rooms == nil {
		panic("RoomRepository cannot be nil for SessionSync")
	}
	if deps.Tasks == nil {
		panic("TaskRepository cannot be nil for SessionSync")
	}
	if deps.Navigator == nil {
		deps.Navigator = NopNavigator{}
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	return &SessionSync{
		roomUUID:     roomUUID,
		auth:         deps.Auth,
		rooms:        deps.Rooms,
		tasks:        deps.Tasks,
		nav:          deps.Navigator,
		interval:     opts.PollInterval,
		log:          logrus.WithFields(logrus.Fields{"component": "session_sync", "room_uuid": roomUUID}),
		changes:      make(chan struct{}, 1),
		loaded:       make(chan struct{}),
		done:         make(chan struct{}),
		loadingRoom:  true,
		loadingTasks: true,
		loadingUser:  true,
		pending:      3,
		ops:          make(map[OpKind]*opState),
		busy:         make(map[int64]OpKind),
	}
}

func (s *SessionSync) RoomUUID() string { return s.roomUUID }

// Start issues the initial user, room and task fetches and starts polling.
// Cancelling ctx has the same effect on polling as Close. Start is a no-op
// on a started or closed controller.
func (s *SessionSync) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.closed {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(3)
	s.mu.Unlock()

	s.log.WithField("interval", s.interval).Debug("Starting session sync")
	go s.loadUser()
	go s.stream(s.fetchRoom)
	go s.stream(s.fetchTasks)
}

// Close stops both polling streams and waits for every in-flight fetch to
// return. No fetch is issued once Close has returned.
func (s *SessionSync) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	close(s.done)
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Debug("Session sync closed")
	s.notify()
}

// Changes delivers a signal after state changes. Signals are coalesced: a
// reader that falls behind sees one pending signal, not one per change.
func (s *SessionSync) Changes() <-chan struct{} { return s.changes }

// Done is closed by Close.
func (s *SessionSync) Done() <-chan struct{} { return s.done }

// WaitLoaded blocks until the initial user, room and task fetches have all
// completed, successfully or not.
func (s *SessionSync) WaitLoaded(ctx context.Context) error {
	select {
	case <-s.loaded:
		return nil
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Refresh issues an immediate fetch of both streams, as a manual retry. It
// does not touch the loading flags.
func (s *SessionSync) Refresh() {
	s.mu.Lock()
	if !s.started || s.closed {
		s.mu.Unlock()
		return
	}
	s.wg.Add(2)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.fetchRoom(false)
	}()
	go func() {
		defer s.wg.Done()
		s.fetchTasks(false)
	}()
}

// Snapshot returns a deep copy of the current state.
func (s *SessionSync) Snapshot() SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := SyncState{
		RoomUUID:     s.roomUUID,
		Room:         s.room.Clone(),
		Tasks:        append([]domain.Task{}, s.taskList...),
		LoadingRoom:  s.loadingRoom,
		LoadingTasks: s.loadingTasks,
		LoadingUser:  s.loadingUser,
		Ops:          make(map[OpKind]OpState, len(s.ops)),
		Toggling:     []int64{},
		Closed:       s.closed,
	}
	if s.user != nil {
		u := *s.user
		st.User = &u
	}
	if s.loadErr != nil {
		st.Error = LoadErrorMessage(s.loadErr)
		st.ErrorKind = Classify(s.loadErr)
	}
	for kind, op := range s.ops {
		st.Ops[kind] = OpState{Busy: op.inflight > 0, Err: op.err}
	}
	for id, kind := range s.busy {
		if kind == OpToggleTask {
			st.Toggling = append(st.Toggling, id)
		}
	}
	sort.Slice(st.Toggling, func(i, j int) bool { return st.Toggling[i] < st.Toggling[j] })
	return st
}

// --- polling ---

func (s *SessionSync) stream(fetch func(initial bool)) {
	defer s.wg.Done()

	fetch(true)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if s.ctx.Err() != nil {
				return
			}
			// polls are not serialized: a slow fetch may overlap the next one
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				fetch(false)
			}()
		}
	}
}

// abandonInitial ends an initial fetch that was never sent because the
// controller was already shutting down, so WaitLoaded still returns.
func (s *SessionSync) abandonInitial(loading *bool) {
	s.mu.Lock()
	*loading = false
	s.initialDoneLocked()
	s.mu.Unlock()
	s.notify()
}

func (s *SessionSync) loadUser() {
	defer s.wg.Done()

	user, err := s.auth.Me(s.ctx)

	s.mu.Lock()
	s.loadingUser = false
	if err == nil {
		s.user = user
	}
	s.initialDoneLocked()
	redirect := s.unauthorizedLocked(err)
	s.mu.Unlock()

	if err != nil && s.ctx.Err() == nil {
		s.log.WithError(err).Warn("Failed to load current user")
	}
	if redirect {
		s.nav.Login(SessionRoute(s.roomUUID))
	}
	s.notify()
}

func (s *SessionSync) fetchRoom(initial bool) {
	if s.ctx.Err() != nil {
		if initial {
			s.abandonInitial(&s.loadingRoom)
		}
		return
	}
	s.mu.Lock()
	seq := s.roomGen.next()
	s.mu.Unlock()

	room, err := s.rooms.FindByUUID(s.ctx, s.roomUUID)
	logCtx := s.log.WithFields(logrus.Fields{"stream": "room", "seq": seq})

	s.mu.Lock()
	changed, mismatch := initial, false
	if initial {
		s.loadingRoom = false
	}
	switch {
	case err != nil:
		if initial && s.ctx.Err() == nil {
			s.loadErr = err
		}
	case s.roomGen.accept(seq):
		s.room = room
		s.loadErr = nil
		changed = true
		counts := [2]int{room.ReportedParticipants, room.ParticipantCount()}
		if counts != s.countsSeen {
			s.countsSeen = counts
			mismatch = counts[0] != counts[1]
		}
	default:
		logCtx.Debug("Dropping stale room response")
	}
	if initial {
		s.initialDoneLocked()
	}
	redirect := s.unauthorizedLocked(err)
	s.mu.Unlock()

	if err != nil && s.ctx.Err() == nil {
		// background failures are logged, never surfaced
		logCtx.WithError(err).Warn("Failed to fetch room")
	}
	if mismatch {
		logCtx.WithFields(logrus.Fields{
			"reported": room.ReportedParticipants,
			"listed":   room.ParticipantCount(),
		}).Debug("Server participant count disagrees with participant list")
	}
	if redirect {
		s.nav.Login(SessionRoute(s.roomUUID))
	}
	if changed {
		s.notify()
	}
}

func (s *SessionSync) fetchTasks(initial bool) {
	if s.ctx.Err() != nil {
		if initial {
			s.abandonInitial(&s.loadingTasks)
		}
		return
	}
	s.mu.Lock()
	seq := s.taskGen.next()
	s.mu.Unlock()

	tasks, err := s.tasks.List(s.ctx, s.roomUUID)
	logCtx := s.log.WithFields(logrus.Fields{"stream": "tasks", "seq": seq})

	s.mu.Lock()
	changed := initial
	if initial {
		s.loadingTasks = false
	}
	switch {
	case err != nil:
	case s.taskGen.accept(seq):
		s.taskList = append([]domain.Task{}, tasks...)
		changed = true
	default:
		logCtx.Debug("Dropping stale task list response")
	}
	if initial {
		s.initialDoneLocked()
	}
	redirect := s.unauthorizedLocked(err)
	s.mu.Unlock()

	if err != nil && s.ctx.Err() == nil {
		logCtx.WithError(err).Warn("Failed to fetch tasks")
	}
	if redirect {
		s.nav.Login(SessionRoute(s.roomUUID))
	}
	if changed {
		s.notify()
	}
}

func (s *SessionSync) initialDoneLocked() {
	s.pending--
	if s.pending == 0 {
		close(s.loaded)
	}
}

// unauthorizedLocked reports whether err should trigger the login redirect.
// The redirect fires at most once per controller.
func (s *SessionSync) unauthorizedLocked(err error) bool {
	if err == nil || !errors.Is(err, repository.ErrUnauthorized) || s.redirected {
		return false
	}
	s.redirected = true
	return true
}

func (s *SessionSync) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

// --- mutations ---

// AddTask creates a task for the current user. The task appears locally
// only once the server has returned it.
func (s *SessionSync) AddTask(ctx context.Context, text string) (*domain.Task, error) {
	text = strings.TrimSpace(text)

	s.mu.Lock()
	user, err := s.participantLocked()
	if err == nil {
		err = validateTaskText(text)
	}
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.beginLocked(OpAddTask)
	s.mu.Unlock()
	s.notify()

	task, err := s.tasks.Add(ctx, s.roomUUID, text, user.ID)
	if err != nil {
		s.fail(OpAddTask, MsgAddFailed, err)
		return nil, fmt.Errorf("add task: %w", err)
	}

	s.mu.Lock()
	s.taskGen.barrier()
	s.upsertLocked(*task)
	s.endLocked(OpAddTask, "")
	s.mu.Unlock()
	s.notify()

	s.log.WithFields(logrus.Fields{"op": OpAddTask, "task_id": task.ID}).Debug("Task added")
	out := *task
	return &out, nil
}

// ToggleTask flips isDone of one of the user's tasks. There is no optimistic
// flip: the task is marked as toggling until the server answers.
func (s *SessionSync) ToggleTask(ctx context.Context, taskID int64) (*domain.Task, error) {
	s.mu.Lock()
	task, err := s.ownedTaskLocked(taskID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.busy[taskID] = OpToggleTask
	s.beginLocked(OpToggleTask)
	s.mu.Unlock()
	s.notify()

	flipped := task
	flipped.IsDone = !task.IsDone
	updated, err := s.tasks.Save(ctx, s.roomUUID, flipped)
	if err != nil {
		s.fail(OpToggleTask, MsgToggleFailed, err, taskID)
		return nil, fmt.Errorf("toggle task %d: %w", taskID, err)
	}

	s.mu.Lock()
	delete(s.busy, taskID)
	s.taskGen.barrier()
	s.upsertLocked(*updated)
	s.endLocked(OpToggleTask, "")
	s.mu.Unlock()
	s.notify()

	out := *updated
	return &out, nil
}

// DeleteTask removes one of the user's tasks once the server confirms.
// Failures are logged and returned but not shown as an operation error.
func (s *SessionSync) DeleteTask(ctx context.Context, taskID int64) error {
	s.mu.Lock()
	_, err := s.ownedTaskLocked(taskID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.busy[taskID] = OpDeleteTask
	s.beginLocked(OpDeleteTask)
	s.mu.Unlock()
	s.notify()

	if err := s.tasks.Delete(ctx, s.roomUUID, taskID); err != nil {
		s.fail(OpDeleteTask, "", err, taskID)
		return fmt.Errorf("delete task %d: %w", taskID, err)
	}

	s.mu.Lock()
	delete(s.busy, taskID)
	s.taskGen.barrier()
	s.removeLocked(taskID)
	s.endLocked(OpDeleteTask, "")
	s.mu.Unlock()
	s.notify()

	s.log.WithFields(logrus.Fields{"op": OpDeleteTask, "task_id": taskID}).Debug("Task deleted")
	return nil
}

// EditTask replaces the text of one of the user's tasks with the server's
// returned entity. Unchanged text returns the current task without a call.
func (s *SessionSync) EditTask(ctx context.Context, taskID int64, newText string) (*domain.Task, error) {
	newText = strings.TrimSpace(newText)
	if err := validateTaskText(newText); err != nil {
		return nil, err
	}

	s.mu.Lock()
	task, err := s.ownedTaskLocked(taskID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if task.Text == newText {
		s.mu.Unlock()
		return &task, nil
	}
	s.busy[taskID] = OpEditTask
	s.beginLocked(OpEditTask)
	s.mu.Unlock()
	s.notify()

	updated, err := s.tasks.UpdateText(ctx, s.roomUUID, taskID, newText)
	if err != nil {
		s.fail(OpEditTask, MsgEditFailed, err, taskID)
		return nil, fmt.Errorf("edit task %d: %w", taskID, err)
	}

	s.mu.Lock()
	delete(s.busy, taskID)
	s.taskGen.barrier()
	s.upsertLocked(*updated)
	s.endLocked(OpEditTask, "")
	s.mu.Unlock()
	s.notify()

	out := *updated
	return &out, nil
}

// RenameRoom changes the room name. Creator only.
func (s *SessionSync) RenameRoom(ctx context.Context, name string) (*domain.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: room name is empty", ErrInvalidInput)
	}

	s.mu.Lock()
	if err := s.creatorLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if s.room.Name == name {
		room := s.room.Clone()
		s.mu.Unlock()
		return room, nil
	}
	s.beginLocked(OpRenameRoom)
	s.mu.Unlock()
	s.notify()

	room, err := s.rooms.Rename(ctx, s.roomUUID, name)
	if err != nil {
		s.fail(OpRenameRoom, MsgRenameFailed, err)
		return nil, fmt.Errorf("rename room: %w", err)
	}

	s.mu.Lock()
	s.roomGen.barrier()
	s.room = room
	s.endLocked(OpRenameRoom, "")
	s.mu.Unlock()
	s.notify()
	return room.Clone(), nil
}

// LeaveSession leaves the room and navigates home on success.
func (s *SessionSync) LeaveSession(ctx context.Context) error {
	s.mu.Lock()
	if err := s.roomLoadedLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.beginLocked(OpLeaveRoom)
	s.mu.Unlock()
	s.notify()

	if err := s.rooms.Leave(ctx, s.roomUUID); err != nil {
		s.fail(OpLeaveRoom, MsgLeaveFailed, err)
		return fmt.Errorf("leave room: %w", err)
	}
	s.succeed(OpLeaveRoom)
	s.log.Info("Left study room")
	s.nav.Home()
	return nil
}

// DeleteSession deletes the room and navigates home on success. Creator only.
func (s *SessionSync) DeleteSession(ctx context.Context) error {
	s.mu.Lock()
	if err := s.creatorLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.beginLocked(OpDeleteRoom)
	s.mu.Unlock()
	s.notify()

	if err := s.rooms.Delete(ctx, s.roomUUID); err != nil {
		s.fail(OpDeleteRoom, MsgDeleteRoomFailed, err)
		return fmt.Errorf("delete room: %w", err)
	}
	s.succeed(OpDeleteRoom)
	s.log.Info("Deleted study room")
	s.nav.Home()
	return nil
}

// --- mutation helpers, all *Locked methods require s.mu ---

func (s *SessionSync) roomLoadedLocked() error {
	if s.closed {
		return ErrClosed
	}
	if s.room == nil {
		return ErrRoomNotLoaded
	}
	return nil
}

func (s *SessionSync) participantLocked() (*domain.User, error) {
	if err := s.roomLoadedLocked(); err != nil {
		return nil, err
	}
	if s.user == nil || !s.room.HasParticipant(s.user.ID) {
		return nil, ErrNotParticipant
	}
	return s.user, nil
}

func (s *SessionSync) creatorLocked() error {
	if err := s.roomLoadedLocked(); err != nil {
		return err
	}
	if s.user == nil || !s.room.IsCreator(s.user.ID) {
		return ErrNotCreator
	}
	return nil
}

func (s *SessionSync) ownedTaskLocked(taskID int64) (domain.Task, error) {
	user, err := s.participantLocked()
	if err != nil {
		return domain.Task{}, err
	}
	i := s.indexLocked(taskID)
	if i < 0 {
		return domain.Task{}, ErrTaskNotFound
	}
	task := s.taskList[i]
	if !task.OwnedBy(user.ID) {
		return domain.Task{}, ErrNotTaskOwner
	}
	if _, busy := s.busy[taskID]; busy {
		return domain.Task{}, ErrTaskBusy
	}
	return task, nil
}

func (s *SessionSync) indexLocked(taskID int64) int {
	for i := range s.taskList {
		if s.taskList[i].ID == taskID {
			return i
		}
	}
	return -1
}

func (s *SessionSync) upsertLocked(task domain.Task) {
	if i := s.indexLocked(task.ID); i >= 0 {
		s.taskList[i] = task
		return
	}
	s.taskList = append(s.taskList, task)
}

func (s *SessionSync) removeLocked(taskID int64) {
	if i := s.indexLocked(taskID); i >= 0 {
		s.taskList = append(s.taskList[:i:i], s.taskList[i+1:]...)
	}
}

func (s *SessionSync) beginLocked(kind OpKind) {
	op, ok := s.ops[kind]
	if !ok {
		op = &opState{}
		s.ops[kind] = op
	}
	op.inflight++
	op.err = ""
}

func (s *SessionSync) endLocked(kind OpKind, msg string) {
	op := s.ops[kind]
	if op.inflight > 0 {
		op.inflight--
	}
	op.err = msg
}

func (s *SessionSync) succeed(kind OpKind) {
	s.mu.Lock()
	s.endLocked(kind, "")
	s.mu.Unlock()
	s.notify()
}

// fail records a failed mutation. msg is the user-facing error, empty for
// operations whose failures are only logged.
func (s *SessionSync) fail(kind OpKind, msg string, err error, taskIDs ...int64) {
	s.mu.Lock()
	for _, id := range taskIDs {
		delete(s.busy, id)
	}
	s.endLocked(kind, msg)
	redirect := s.unauthorizedLocked(err)
	s.mu.Unlock()

	logCtx := s.log.WithField("op", kind)
	if len(taskIDs) > 0 {
		logCtx = logCtx.WithField("task_id", taskIDs[0])
	}
	logCtx.WithError(err).Warn("Operation failed")
	if redirect {
		s.nav.Login(SessionRoute(s.roomUUID))
	}
	s.notify()
}

func validateTaskText(text string) error {
	if text == "" {
		return fmt.Errorf("%w: task text is empty", ErrInvalidInput)
	}
	if n := utf8.RuneCountInString(text); n > domain.MaxTaskTextLength {
		return fmt.Errorf("%w: task text has %d characters, limit is %d", ErrInvalidInput, n, domain.MaxTaskTextLength)
	}
	return nil
}
