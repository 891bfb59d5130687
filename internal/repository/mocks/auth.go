package mocks

import (
	"context"

	"taskloop-sync/internal/domain"

	"github.com/stretchr/testify/mock"
)

// AuthGateway is a testify mock of repository.AuthGateway.
type AuthGateway struct {
	mock.Mock
}

func (m *AuthGateway) Me(ctx context.Context) (*domain.User, error) {
	args := m.Called(ctx)
	var user *domain.User
	if v := args.Get(0); v != nil {
		user = v.(*domain.User)
	}
	return user, args.Error(1)
}

func (m *AuthGateway) Login(ctx context.Context, username, password string) (string, error) {
	args := m.Called(ctx, username, password)
	return args.String(0), args.Error(1)
}

func (m *AuthGateway) Register(ctx context.Context, username, email, password string) (string, error) {
	args := m.Called(ctx, username, email, password)
	return args.String(0), args.Error(1)
}

// DeviceStore is a testify mock of repository.DeviceStore.
type DeviceStore struct {
	mock.Mock
}

func (m *DeviceStore) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *DeviceStore) Set(ctx context.Context, key, value string) error {
	return m.Called(ctx, key, value).Error(0)
}

func (m *DeviceStore) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}
