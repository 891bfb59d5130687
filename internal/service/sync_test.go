package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"taskloop-sync/internal/domain"
	"taskloop-sync/internal/repository"
	"taskloop-sync/internal/repository/mocks"
	"taskloop-sync/internal/service"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const noPolling = time.Hour

var (
	alice = &domain.User{ID: 1, Username: "alice"}
	bob   = &domain.User{ID: 2, Username: "bob"}
	carol = &domain.User{ID: 3, Username: "carol"}
)

func testRoom() *domain.Room {
	return &domain.Room{
		ID:                   10,
		UUID:                 roomID,
		Name:                 "Exam prep",
		Creator:              alice.ID,
		CreatorUsername:      alice.Username,
		Participants:         []domain.Participant{{ID: 1, Username: "alice"}, {ID: 2, Username: "bob"}},
		ReportedParticipants: 2,
		CreatedAt:            t0,
	}
}

type recordingNav struct {
	mu     sync.Mutex
	homes  int
	logins []string
}

func (n *recordingNav) Home() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.homes++
}

func (n *recordingNav) Login(from string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.logins = append(n.logins, from)
}

func (n *recordingNav) counts() (int, []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.homes, append([]string(nil), n.logins...)
}

type syncFixture struct {
	auth  *mocks.AuthGateway
	rooms *mocks.RoomRepository
	tasks *mocks.TaskRepository
	nav   *recordingNav
	sync  *service.SessionSync
}

func newFixture(interval time.Duration) *syncFixture {
	f := &syncFixture{
		auth:  new(mocks.AuthGateway),
		rooms: new(mocks.RoomRepository),
		tasks: new(mocks.TaskRepository),
		nav:   &recordingNav{},
	}
	f.sync = service.NewSessionSync(roomID, service.SyncDeps{
		Auth:      f.auth,
		Rooms:     f.rooms,
		Tasks:     f.tasks,
		Navigator: f.nav,
	}, service.SyncOptions{PollInterval: interval})
	return f
}

// start runs the controller and waits for the initial load.
func (f *syncFixture) start(t *testing.T) {
	t.Helper()
	t.Cleanup(f.sync.Close)
	f.sync.Start(context.Background())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, f.sync.WaitLoaded(ctx))
}

// loaded builds a started controller seeing user, testRoom and tasks.
func loaded(t *testing.T, user *domain.User, tasks ...domain.Task) *syncFixture {
	t.Helper()
	f := newFixture(noPolling)
	f.auth.On("Me", mock.Anything).Return(user, nil)
	f.rooms.On("FindByUUID", mock.Anything, roomID).Return(testRoom(), nil)
	f.tasks.On("List", mock.Anything, roomID).Return(tasks, nil).Once()
	f.start(t)
	return f
}

func aliceTask(id int64, done bool) domain.Task {
	tk := task(id, alice.ID, done, time.Duration(id)*time.Minute)
	tk.SessionUUID = roomID
	tk.Text = "read chapter"
	return tk
}

// --- loading ---

func TestSessionSync_InitialLoad(t *testing.T) {
	f := loaded(t, alice, aliceTask(1, false), task(2, bob.ID, true, 0))

	st := f.sync.Snapshot()

	assert.False(t, st.LoadingRoom)
	assert.False(t, st.LoadingTasks)
	assert.False(t, st.LoadingUser)
	assert.Empty(t, st.Error)
	require.NotNil(t, st.Room)
	assert.Equal(t, "Exam prep", st.Room.Name)
	assert.Len(t, st.Tasks, 2)
	assert.True(t, st.IsParticipant())
	assert.True(t, st.IsCreator())
	p, ok := st.CurrentParticipant()
	assert.True(t, ok)
	assert.Equal(t, "alice", p.Username)
}

func TestSessionSync_InitialRoomFailure(t *testing.T) {
	cases := []struct {
		name string
		err  error
		msg  string
		kind service.ErrorKind
	}{
		{"forbidden", &repository.APIError{Status: 403, Kind: repository.ErrForbidden}, service.MsgNotParticipant, service.KindForbidden},
		{"not found", &repository.APIError{Status: 404, Kind: repository.ErrNotFound}, service.MsgRoomNotFound, service.KindNotFound},
		{"server error", &repository.APIError{Status: 500, Kind: repository.ErrUnavailable}, service.MsgLoadFailed, service.KindNetwork},
		{"bad payload", &repository.DecodeError{Endpoint: "GET /sessions/x", Err: errors.New("boom")}, service.MsgLoadFailed, service.KindDecode},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(noPolling)
			f.auth.On("Me", mock.Anything).Return(alice, nil)
			f.rooms.On("FindByUUID", mock.Anything, roomID).Return(nil, tc.err)
			f.tasks.On("List", mock.Anything, roomID).Return([]domain.Task{}, nil)
			f.start(t)

			st := f.sync.Snapshot()

			assert.False(t, st.LoadingRoom)
			assert.Nil(t, st.Room)
			assert.Equal(t, tc.msg, st.Error)
			assert.Equal(t, tc.kind, st.ErrorKind)
		})
	}
}

func TestSessionSync_RefreshClearsLoadError(t *testing.T) {
	f := newFixture(noPolling)
	f.auth.On("Me", mock.Anything).Return(alice, nil)
	f.rooms.On("FindByUUID", mock.Anything, roomID).Return(nil, repository.ErrUnavailable).Once()
	f.rooms.On("FindByUUID", mock.Anything, roomID).Return(testRoom(), nil)
	f.tasks.On("List", mock.Anything, roomID).Return([]domain.Task{}, nil)
	f.start(t)
	require.Equal(t, service.MsgLoadFailed, f.sync.Snapshot().Error)

	f.sync.Refresh()

	assert.Eventually(t, func() bool {
		st := f.sync.Snapshot()
		return st.Error == "" && st.Room != nil
	}, time.Second, 5*time.Millisecond)
}

func TestSessionSync_UserFailureLeavesUserNil(t *testing.T) {
	f := newFixture(noPolling)
	f.auth.On("Me", mock.Anything).Return(nil, repository.ErrUnavailable)
	f.rooms.On("FindByUUID", mock.Anything, roomID).Return(testRoom(), nil)
	f.tasks.On("List", mock.Anything, roomID).Return([]domain.Task{aliceTask(1, false)}, nil)
	f.start(t)

	st := f.sync.Snapshot()
	assert.Nil(t, st.User)
	assert.False(t, st.IsParticipant())
	assert.Empty(t, st.Error, "user failures are not surfaced")

	_, err := f.sync.AddTask(context.Background(), "x")
	assert.ErrorIs(t, err, service.ErrNotParticipant)
}

// --- polling ---

func TestSessionSync_PollsAndSwallowsErrors(t *testing.T) {
	var listCalls int32
	f := newFixture(10 * time.Millisecond)
	f.auth.On("Me", mock.Anything).Return(alice, nil)
	f.rooms.On("FindByUUID", mock.Anything, roomID).Return(testRoom(), nil)
	f.tasks.On("List", mock.Anything, roomID).Return([]domain.Task{aliceTask(1, false)}, nil).Once()
	f.tasks.On("List", mock.Anything, roomID).
		Run(func(mock.Arguments) { atomic.AddInt32(&listCalls, 1) }).
		Return(nil, repository.ErrUnavailable)
	f.start(t)

	require.Eventually(t, func() bool { return atomic.LoadInt32(&listCalls) >= 3 }, 2*time.Second, 5*time.Millisecond)

	st := f.sync.Snapshot()
	assert.Empty(t, st.Error)
	assert.False(t, st.LoadingTasks)
	assert.Len(t, st.Tasks, 1, "failed polls keep the last good list")
}

func TestSessionSync_PollPicksUpRemoteChanges(t *testing.T) {
	f := newFixture(10 * time.Millisecond)
	f.auth.On("Me", mock.Anything).Return(alice, nil)
	f.rooms.On("FindByUUID", mock.Anything, roomID).Return(testRoom(), nil)
	f.tasks.On("List", mock.Anything, roomID).Return([]domain.Task{}, nil).Once()
	f.tasks.On("List", mock.Anything, roomID).Return([]domain.Task{task(7, bob.ID, false, 0)}, nil)
	f.start(t)

	assert.Eventually(t, func() bool { return len(f.sync.Snapshot().Tasks) == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestSessionSync_CloseStopsFetching(t *testing.T) {
	var calls int32
	count := func(mock.Arguments) { atomic.AddInt32(&calls, 1) }
	f := newFixture(5 * time.Millisecond)
	f.auth.On("Me", mock.Anything).Return(alice, nil)
	f.rooms.On("FindByUUID", mock.Anything, roomID).Run(count).Return(testRoom(), nil)
	f.tasks.On("List", mock.Anything, roomID).Run(count).Return([]domain.Task{}, nil)
	f.start(t)
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) > 4 }, 2*time.Second, time.Millisecond)

	f.sync.Close()
	after := atomic.LoadInt32(&calls)
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, after, atomic.LoadInt32(&calls))
	assert.True(t, f.sync.Snapshot().Closed)

	_, err := f.sync.AddTask(context.Background(), "late")
	assert.ErrorIs(t, err, service.ErrClosed)
	f.sync.Close() // idempotent
}

func TestSessionSync_WaitLoadedAfterClose(t *testing.T) {
	f := newFixture(noPolling)
	f.sync.Close()

	err := f.sync.WaitLoaded(context.Background())

	assert.ErrorIs(t, err, service.ErrClosed)
}

func TestSessionSync_StartWithCancelledContextStillLoads(t *testing.T) {
	f := newFixture(noPolling)
	f.auth.On("Me", mock.Anything).Return(nil, context.Canceled)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	t.Cleanup(f.sync.Close)

	f.sync.Start(ctx)
	waitCtx, waitCancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer waitCancel()

	require.NoError(t, f.sync.WaitLoaded(waitCtx))
	st := f.sync.Snapshot()
	assert.False(t, st.LoadingRoom)
	assert.False(t, st.LoadingTasks)
	assert.False(t, st.LoadingUser)
	assert.Empty(t, st.Error)
	f.rooms.AssertNotCalled(t, "FindByUUID", mock.Anything, mock.Anything)
	f.tasks.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestSessionSync_CountMismatchLoggedOncePerChange(t *testing.T) {
	hook := new(logtest.Hook)
	std := logrus.StandardLogger()
	oldHooks := std.ReplaceHooks(logrus.LevelHooks{})
	oldLevel := std.GetLevel()
	std.AddHook(hook)
	std.SetLevel(logrus.DebugLevel)
	t.Cleanup(func() {
		std.ReplaceHooks(oldHooks)
		std.SetLevel(oldLevel)
	})

	var fetches int32
	room := testRoom()
	room.ReportedParticipants = 3
	f := newFixture(noPolling)
	f.auth.On("Me", mock.Anything).Return(alice, nil)
	f.rooms.On("FindByUUID", mock.Anything, roomID).
		Run(func(mock.Arguments) { atomic.AddInt32(&fetches, 1) }).
		Return(room, nil)
	f.tasks.On("List", mock.Anything, roomID).Return([]domain.Task{}, nil)
	f.start(t)

	f.sync.Refresh()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&fetches) >= 2 }, 2*time.Second, time.Millisecond)
	f.sync.Refresh()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&fetches) >= 3 }, 2*time.Second, time.Millisecond)
	f.sync.Close()

	mismatches := 0
	for _, e := range hook.AllEntries() {
		if e.Message == "Server participant count disagrees with participant list" {
			mismatches++
		}
	}
	assert.Equal(t, 1, mismatches)
}

func TestSessionSync_UnauthorizedRedirectsOnce(t *testing.T) {
	f := newFixture(10 * time.Millisecond)
	unauthorized := &repository.APIError{Status: 401, Kind: repository.ErrUnauthorized}
	f.auth.On("Me", mock.Anything).Return(nil, unauthorized)
	f.rooms.On("FindByUUID", mock.Anything, roomID).Return(nil, unauthorized)
	f.tasks.On("List", mock.Anything, roomID).Return(nil, unauthorized)
	f.start(t)
	time.Sleep(40 * time.Millisecond)

	_, logins := f.nav.counts()
	assert.Equal(t, []string{"/session/" + roomID}, logins)
}

// --- gating ---

func TestSessionSync_NonParticipantMakesNoCalls(t *testing.T) {
	f := loaded(t, carol, aliceTask(1, false))
	ctx := context.Background()

	_, err := f.sync.AddTask(ctx, "sneaky")
	assert.ErrorIs(t, err, service.ErrNotParticipant)
	_, err = f.sync.ToggleTask(ctx, 1)
	assert.ErrorIs(t, err, service.ErrNotParticipant)
	_, err = f.sync.EditTask(ctx, 1, "changed")
	assert.ErrorIs(t, err, service.ErrNotParticipant)
	assert.ErrorIs(t, f.sync.DeleteTask(ctx, 1), service.ErrNotParticipant)

	f.tasks.AssertNotCalled(t, "Add", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.tasks.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
	f.tasks.AssertNotCalled(t, "UpdateText", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.tasks.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
}

func TestSessionSync_OtherParticipantsTasksAreReadOnly(t *testing.T) {
	f := loaded(t, bob, aliceTask(1, false))
	ctx := context.Background()

	_, err := f.sync.ToggleTask(ctx, 1)
	assert.ErrorIs(t, err, service.ErrNotTaskOwner)
	assert.ErrorIs(t, f.sync.DeleteTask(ctx, 1), service.ErrNotTaskOwner)
	_, err = f.sync.ToggleTask(ctx, 404)
	assert.ErrorIs(t, err, service.ErrTaskNotFound)
	f.tasks.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
}

func TestSessionSync_AddTaskValidatesText(t *testing.T) {
	f := loaded(t, alice)
	long := make([]rune, domain.MaxTaskTextLength+1)
	for i := range long {
		long[i] = 'é'
	}

	_, err := f.sync.AddTask(context.Background(), "   ")
	assert.ErrorIs(t, err, service.ErrInvalidInput)
	_, err = f.sync.AddTask(context.Background(), string(long))
	assert.ErrorIs(t, err, service.ErrInvalidInput)
	f.tasks.AssertNotCalled(t, "Add", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// --- mutations ---

func TestSessionSync_AddTask(t *testing.T) {
	f := loaded(t, alice)
	created := aliceTask(5, false)
	f.tasks.On("Add", mock.Anything, roomID, "read chapter", alice.ID).Return(&created, nil).Once()

	got, err := f.sync.AddTask(context.Background(), " read chapter ")

	require.NoError(t, err)
	assert.Equal(t, int64(5), got.ID)
	st := f.sync.Snapshot()
	assert.Equal(t, []int64{5}, ids(st.Tasks))
	assert.Equal(t, service.OpState{}, st.Ops[service.OpAddTask])
}

func TestSessionSync_AddTaskThenPollHasNoDuplicate(t *testing.T) {
	f := loaded(t, alice)
	created := aliceTask(5, false)
	f.tasks.On("Add", mock.Anything, roomID, "read chapter", alice.ID).Return(&created, nil).Once()
	f.tasks.On("List", mock.Anything, roomID).Return([]domain.Task{created}, nil)

	_, err := f.sync.AddTask(context.Background(), "read chapter")
	require.NoError(t, err)
	f.sync.Refresh()
	f.sync.Close()

	assert.Equal(t, []int64{5}, ids(f.sync.Snapshot().Tasks))
}

func TestSessionSync_AddTaskFailure(t *testing.T) {
	f := loaded(t, alice)
	f.tasks.On("Add", mock.Anything, roomID, "x", alice.ID).Return(nil, repository.ErrUnavailable).Once()

	_, err := f.sync.AddTask(context.Background(), "x")

	assert.ErrorIs(t, err, repository.ErrUnavailable)
	st := f.sync.Snapshot()
	assert.Empty(t, st.Tasks)
	assert.Equal(t, service.OpState{Err: service.MsgAddFailed}, st.Ops[service.OpAddTask])
}

func TestSessionSync_ToggleTwiceRestoresState(t *testing.T) {
	original := aliceTask(1, false)
	f := loaded(t, alice, original)
	flipped := original
	flipped.IsDone = true
	f.tasks.On("Save", mock.Anything, roomID, flipped).Return(&flipped, nil).Once()
	f.tasks.On("Save", mock.Anything, roomID, original).Return(&original, nil).Once()
	ctx := context.Background()

	_, err := f.sync.ToggleTask(ctx, 1)
	require.NoError(t, err)
	assert.True(t, f.sync.Snapshot().Tasks[0].IsDone)

	_, err = f.sync.ToggleTask(ctx, 1)
	require.NoError(t, err)

	st := f.sync.Snapshot()
	require.Len(t, st.Tasks, 1)
	assert.Equal(t, original, st.Tasks[0])
	assert.Empty(t, st.Toggling)
	f.tasks.AssertExpectations(t)
}

func TestSessionSync_ToggleBusyGuard(t *testing.T) {
	original := aliceTask(1, false)
	f := loaded(t, alice, original)
	flipped := original
	flipped.IsDone = true
	started := make(chan struct{})
	release := make(chan struct{})
	f.tasks.On("Save", mock.Anything, roomID, flipped).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(&flipped, nil).Once()

	done := make(chan error, 1)
	go func() {
		_, err := f.sync.ToggleTask(context.Background(), 1)
		done <- err
	}()
	<-started

	st := f.sync.Snapshot()
	assert.True(t, st.IsToggling(1))
	assert.True(t, st.Ops[service.OpToggleTask].Busy)
	assert.False(t, st.Tasks[0].IsDone, "no optimistic flip")
	_, err := f.sync.ToggleTask(context.Background(), 1)
	assert.ErrorIs(t, err, service.ErrTaskBusy)
	assert.ErrorIs(t, f.sync.DeleteTask(context.Background(), 1), service.ErrTaskBusy)

	close(release)
	require.NoError(t, <-done)
	st = f.sync.Snapshot()
	assert.False(t, st.IsToggling(1))
	assert.True(t, st.Tasks[0].IsDone)
	f.tasks.AssertNumberOfCalls(t, "Save", 1)
}

func TestSessionSync_ToggleFailureKeepsTask(t *testing.T) {
	original := aliceTask(1, false)
	f := loaded(t, alice, original)
	f.tasks.On("Save", mock.Anything, roomID, mock.Anything).Return(nil, repository.ErrUnavailable).Once()

	_, err := f.sync.ToggleTask(context.Background(), 1)

	require.Error(t, err)
	st := f.sync.Snapshot()
	assert.Equal(t, original, st.Tasks[0])
	assert.False(t, st.IsToggling(1))
	assert.Equal(t, service.MsgToggleFailed, st.Ops[service.OpToggleTask].Err)
}

func TestSessionSync_DeleteTask(t *testing.T) {
	f := loaded(t, alice, aliceTask(1, false), aliceTask(2, true))
	f.tasks.On("Delete", mock.Anything, roomID, int64(1)).Return(nil).Once()

	require.NoError(t, f.sync.DeleteTask(context.Background(), 1))

	assert.Equal(t, []int64{2}, ids(f.sync.Snapshot().Tasks))
}

func TestSessionSync_DeleteTaskFailureIsSilent(t *testing.T) {
	f := loaded(t, alice, aliceTask(1, false))
	f.tasks.On("Delete", mock.Anything, roomID, int64(1)).Return(repository.ErrUnavailable).Once()

	err := f.sync.DeleteTask(context.Background(), 1)

	assert.ErrorIs(t, err, repository.ErrUnavailable)
	st := f.sync.Snapshot()
	assert.Equal(t, []int64{1}, ids(st.Tasks))
	assert.Empty(t, st.Ops[service.OpDeleteTask].Err)
}

func TestSessionSync_StalePollDoesNotResurrectDeletedTask(t *testing.T) {
	doomed := aliceTask(1, false)
	f := loaded(t, alice, doomed)
	started := make(chan struct{})
	release := make(chan struct{})
	// a poll issued before the delete answers with the old list afterwards
	f.tasks.On("List", mock.Anything, roomID).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return([]domain.Task{doomed}, nil).Once()
	f.tasks.On("Delete", mock.Anything, roomID, int64(1)).Return(nil).Once()

	f.sync.Refresh()
	<-started
	require.NoError(t, f.sync.DeleteTask(context.Background(), 1))
	close(release)
	f.sync.Close()

	assert.Empty(t, f.sync.Snapshot().Tasks)
}

func TestSessionSync_StalePollDoesNotUndoToggle(t *testing.T) {
	original := aliceTask(1, false)
	f := loaded(t, alice, original)
	flipped := original
	flipped.IsDone = true
	started := make(chan struct{})
	release := make(chan struct{})
	f.tasks.On("List", mock.Anything, roomID).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return([]domain.Task{original}, nil).Once()
	f.tasks.On("Save", mock.Anything, roomID, flipped).Return(&flipped, nil).Once()

	f.sync.Refresh()
	<-started
	_, err := f.sync.ToggleTask(context.Background(), 1)
	require.NoError(t, err)
	close(release)
	f.sync.Close()

	assert.True(t, f.sync.Snapshot().Tasks[0].IsDone)
}

func TestSessionSync_EditTask(t *testing.T) {
	original := aliceTask(1, false)
	f := loaded(t, alice, original)
	edited := original
	edited.Text = "read two chapters"
	f.tasks.On("UpdateText", mock.Anything, roomID, int64(1), "read two chapters").Return(&edited, nil).Once()
	ctx := context.Background()

	same, err := f.sync.EditTask(ctx, 1, " read chapter ")
	require.NoError(t, err)
	assert.Equal(t, original, *same)
	f.tasks.AssertNotCalled(t, "UpdateText", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	got, err := f.sync.EditTask(ctx, 1, "read two chapters")
	require.NoError(t, err)
	assert.Equal(t, "read two chapters", got.Text)
	assert.Equal(t, "read two chapters", f.sync.Snapshot().Tasks[0].Text)
}

func TestSessionSync_EditTaskFailure(t *testing.T) {
	f := loaded(t, alice, aliceTask(1, false))
	f.tasks.On("UpdateText", mock.Anything, roomID, int64(1), "new").Return(nil, repository.ErrForbidden).Once()

	_, err := f.sync.EditTask(context.Background(), 1, "new")

	assert.ErrorIs(t, err, repository.ErrForbidden)
	assert.Equal(t, service.MsgEditFailed, f.sync.Snapshot().Ops[service.OpEditTask].Err)
}

// --- room operations ---

func TestSessionSync_RenameRoom(t *testing.T) {
	f := loaded(t, alice)
	renamed := testRoom()
	renamed.Name = "Finals"
	f.rooms.On("Rename", mock.Anything, roomID, "Finals").Return(renamed, nil).Once()

	room, err := f.sync.RenameRoom(context.Background(), "Finals")

	require.NoError(t, err)
	assert.Equal(t, "Finals", room.Name)
	assert.Equal(t, "Finals", f.sync.Snapshot().Room.Name)
}

func TestSessionSync_CreatorOnlyOperations(t *testing.T) {
	f := loaded(t, bob)
	ctx := context.Background()

	_, err := f.sync.RenameRoom(ctx, "mine now")
	assert.ErrorIs(t, err, service.ErrNotCreator)
	assert.ErrorIs(t, f.sync.DeleteSession(ctx), service.ErrNotCreator)
	f.rooms.AssertNotCalled(t, "Rename", mock.Anything, mock.Anything, mock.Anything)
	f.rooms.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestSessionSync_LeaveSession(t *testing.T) {
	f := loaded(t, bob)
	f.rooms.On("Leave", mock.Anything, roomID).Return(nil).Once()

	require.NoError(t, f.sync.LeaveSession(context.Background()))

	homes, _ := f.nav.counts()
	assert.Equal(t, 1, homes)
}

func TestSessionSync_LeaveSessionFailure(t *testing.T) {
	f := loaded(t, bob)
	f.rooms.On("Leave", mock.Anything, roomID).Return(repository.ErrUnavailable).Once()

	require.Error(t, f.sync.LeaveSession(context.Background()))

	homes, _ := f.nav.counts()
	assert.Zero(t, homes)
	assert.Equal(t, service.MsgLeaveFailed, f.sync.Snapshot().Ops[service.OpLeaveRoom].Err)
}

func TestSessionSync_DeleteSession(t *testing.T) {
	f := loaded(t, alice)
	f.rooms.On("Delete", mock.Anything, roomID).Return(nil).Once()

	require.NoError(t, f.sync.DeleteSession(context.Background()))

	homes, _ := f.nav.counts()
	assert.Equal(t, 1, homes)
}

// --- notifications ---

func TestSessionSync_ChangesAreSignalled(t *testing.T) {
	f := loaded(t, alice)
	created := aliceTask(3, false)
	f.tasks.On("Add", mock.Anything, roomID, "read chapter", alice.ID).Return(&created, nil).Once()
	// drain whatever the initial load left behind
	select {
	case <-f.sync.Changes():
	default:
	}

	_, err := f.sync.AddTask(context.Background(), "read chapter")
	require.NoError(t, err)

	select {
	case <-f.sync.Changes():
	case <-time.After(time.Second):
		t.Fatal("no change signalled")
	}
}

func TestSessionSync_SnapshotIsACopy(t *testing.T) {
	f := loaded(t, alice, aliceTask(1, false))

	st := f.sync.Snapshot()
	st.Tasks[0].Text = "mutated"
	st.Room.Participants[0].Username = "mallory"
	st.User.Username = "mallory"

	fresh := f.sync.Snapshot()
	assert.Equal(t, "read chapter", fresh.Tasks[0].Text)
	assert.Equal(t, "alice", fresh.Room.Participants[0].Username)
	assert.Equal(t, "alice", fresh.User.Username)
}
