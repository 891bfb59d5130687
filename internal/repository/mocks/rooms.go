package mocks

import (
	"context"

	"taskloop-sync/internal/domain"

	"github.com/stretchr/testify/mock"
)

// RoomRepository is a testify mock of repository.RoomRepository.
type RoomRepository struct {
	mock.Mock
}

func (m *RoomRepository) List(ctx context.Context) ([]domain.Room, error) {
	args := m.Called(ctx)
	var rooms []domain.Room
	if v := args.Get(0); v != nil {
		rooms = v.([]domain.Room)
	}
	return rooms, args.Error(1)
}

func (m *RoomRepository) Create(ctx context.Context, name string) (*domain.RoomRef, error) {
	args := m.Called(ctx, name)
	var ref *domain.RoomRef
	if v := args.Get(0); v != nil {
		ref = v.(*domain.RoomRef)
	}
	return ref, args.Error(1)
}

func (m *RoomRepository) FindByUUID(ctx context.Context, uuid string) (*domain.Room, error) {
	args := m.Called(ctx, uuid)
	var room *domain.Room
	if v := args.Get(0); v != nil {
		room = v.(*domain.Room)
	}
	return room, args.Error(1)
}

func (m *RoomRepository) Rename(ctx context.Context, uuid, name string) (*domain.Room, error) {
	args := m.Called(ctx, uuid, name)
	var room *domain.Room
	if v := args.Get(0); v != nil {
		room = v.(*domain.Room)
	}
	return room, args.Error(1)
}

func (m *RoomRepository) Delete(ctx context.Context, uuid string) error {
	return m.Called(ctx, uuid).Error(0)
}

func (m *RoomRepository) Leave(ctx context.Context, uuid string) error {
	return m.Called(ctx, uuid).Error(0)
}
