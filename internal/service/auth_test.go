package service_test

import (
	"context"
	"errors"
	"testing"

	"taskloop-sync/internal/domain"
	"taskloop-sync/internal/repository"
	"taskloop-sync/internal/repository/mocks"
	"taskloop-sync/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newAuthService() (*service.AuthService, *mocks.AuthGateway, *mocks.DeviceStore) {
	gw := new(mocks.AuthGateway)
	store := new(mocks.DeviceStore)
	return service.NewAuthService(gw, store), gw, store
}

// --- Login ---

func TestAuthService_Login_Success(t *testing.T) {
	// Arrange
	svc, gw, store := newAuthService()
	ctx := context.Background()
	gw.On("Login", ctx, "alice", "secret1").Return("tok-1", nil).Once()
	store.On("Set", ctx, repository.KeyToken, "tok-1").Return(nil).Once()

	// Act
	token, err := svc.Login(ctx, "  alice ", "secret1")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)
	gw.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestAuthService_Login_InvalidInput(t *testing.T) {
	svc, gw, store := newAuthService()

	_, err := svc.Login(context.Background(), "", "secret1")

	assert.ErrorIs(t, err, service.ErrInvalidInput)
	gw.AssertNotCalled(t, "Login", mock.Anything, mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthService_Login_WrongCredentials(t *testing.T) {
	svc, gw, store := newAuthService()
	ctx := context.Background()
	rejected := &repository.APIError{Method: "POST", Path: "/auth/login", Status: 400, Kind: repository.ErrRejected}
	gw.On("Login", ctx, "alice", "wrong").Return("", rejected).Once()

	_, err := svc.Login(ctx, "alice", "wrong")

	assert.ErrorIs(t, err, service.ErrAuthenticationFailed)
	store.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthService_Login_NetworkError(t *testing.T) {
	svc, gw, _ := newAuthService()
	ctx := context.Background()
	gw.On("Login", ctx, "alice", "secret1").Return("", repository.ErrUnavailable).Once()

	_, err := svc.Login(ctx, "alice", "secret1")

	assert.ErrorIs(t, err, repository.ErrUnavailable)
	assert.NotErrorIs(t, err, service.ErrAuthenticationFailed)
}

// --- Register ---

func TestAuthService_Register_Success(t *testing.T) {
	svc, gw, store := newAuthService()
	ctx := context.Background()
	gw.On("Register", ctx, "bob", "bob@example.com", "secret1").Return("tok-2", nil).Once()
	store.On("Set", ctx, repository.KeyToken, "tok-2").Return(nil).Once()

	token, err := svc.Register(ctx, "bob", "bob@example.com", "secret1")

	require.NoError(t, err)
	assert.Equal(t, "tok-2", token)
	store.AssertExpectations(t)
}

func TestAuthService_Register_BadEmail(t *testing.T) {
	svc, gw, _ := newAuthService()

	_, err := svc.Register(context.Background(), "bob", "not-an-email", "secret1")

	assert.ErrorIs(t, err, service.ErrInvalidInput)
	gw.AssertNotCalled(t, "Register", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthService_Register_Taken(t *testing.T) {
	svc, gw, _ := newAuthService()
	ctx := context.Background()
	gw.On("Register", ctx, "bob", "bob@example.com", "secret1").
		Return("", &repository.APIError{Status: 400, Kind: repository.ErrRejected}).Once()

	_, err := svc.Register(ctx, "bob", "bob@example.com", "secret1")

	assert.ErrorIs(t, err, service.ErrRegistrationFailed)
}

// --- token state ---

func TestAuthService_CurrentUser_NoToken(t *testing.T) {
	svc, gw, store := newAuthService()
	ctx := context.Background()
	store.On("Get", ctx, repository.KeyToken).Return("", repository.ErrKeyNotFound)

	_, err := svc.CurrentUser(ctx)

	assert.ErrorIs(t, err, service.ErrNotAuthenticated)
	gw.AssertNotCalled(t, "Me", mock.Anything)
}

func TestAuthService_CurrentUser_Success(t *testing.T) {
	svc, gw, store := newAuthService()
	ctx := context.Background()
	store.On("Get", ctx, repository.KeyToken).Return("tok", nil)
	gw.On("Me", ctx).Return(&domain.User{ID: 7, Username: "alice"}, nil).Once()

	user, err := svc.CurrentUser(ctx)

	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
}

func TestAuthService_Logout(t *testing.T) {
	svc, _, store := newAuthService()
	ctx := context.Background()
	store.On("Delete", ctx, repository.KeyToken).Return(nil).Once()

	require.NoError(t, svc.Logout(ctx))
	store.AssertExpectations(t)
}

func TestAuthService_IsAuthenticated_StoreError(t *testing.T) {
	svc, _, store := newAuthService()
	ctx := context.Background()
	store.On("Get", ctx, repository.KeyToken).Return("", errors.New("disk on fire"))

	ok, err := svc.IsAuthenticated(ctx)

	assert.Error(t, err)
	assert.False(t, ok)
}

// --- guard / redirect ---

func TestAuthService_Guard(t *testing.T) {
	ctx := context.Background()
	room := service.SessionRoute("0b9e3c1e-7d4c-4f59-9d43-5f0f3c3b5a11")

	t.Run("public routes always pass", func(t *testing.T) {
		svc, _, store := newAuthService()
		for _, route := range []string{service.RouteLogin, service.RouteRegister} {
			ok, err := svc.Guard(ctx, route)
			require.NoError(t, err)
			assert.True(t, ok, route)
		}
		store.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})

	t.Run("token present", func(t *testing.T) {
		svc, _, store := newAuthService()
		store.On("Get", ctx, repository.KeyToken).Return("tok", nil)

		ok, err := svc.Guard(ctx, room)

		require.NoError(t, err)
		assert.True(t, ok)
		store.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("room route is remembered", func(t *testing.T) {
		svc, _, store := newAuthService()
		store.On("Get", ctx, repository.KeyToken).Return("", repository.ErrKeyNotFound)
		store.On("Set", ctx, repository.KeyAuthRedirect, room).Return(nil).Once()

		ok, err := svc.Guard(ctx, room)

		require.NoError(t, err)
		assert.False(t, ok)
		store.AssertExpectations(t)
	})

	t.Run("other routes are not remembered", func(t *testing.T) {
		svc, _, store := newAuthService()
		store.On("Get", ctx, repository.KeyToken).Return("", repository.ErrKeyNotFound)

		ok, err := svc.Guard(ctx, service.RouteHome)

		require.NoError(t, err)
		assert.False(t, ok)
		store.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestAuthService_ConsumeRedirect(t *testing.T) {
	ctx := context.Background()

	t.Run("stored route is returned once", func(t *testing.T) {
		svc, _, store := newAuthService()
		store.On("Get", ctx, repository.KeyAuthRedirect).Return("/session/abc", nil).Once()
		store.On("Delete", ctx, repository.KeyAuthRedirect).Return(nil).Once()

		route, err := svc.ConsumeRedirect(ctx)

		require.NoError(t, err)
		assert.Equal(t, "/session/abc", route)
		store.AssertExpectations(t)
	})

	t.Run("defaults to home", func(t *testing.T) {
		svc, _, store := newAuthService()
		store.On("Get", ctx, repository.KeyAuthRedirect).Return("", repository.ErrKeyNotFound).Once()

		route, err := svc.ConsumeRedirect(ctx)

		require.NoError(t, err)
		assert.Equal(t, service.RouteHome, route)
		store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}
