package repository

import (
	"context"

	"taskloop-sync/internal/domain"
)

// RoomRepository covers the study-room endpoints of the remote API.
type RoomRepository interface {
	// List returns every room the current user belongs to.
	List(ctx context.Context) ([]domain.Room, error)

	// Create makes a new room owned by the current user.
	Create(ctx context.Context, name string) (*domain.RoomRef, error)

	// FindByUUID loads one room. Missing rooms return ErrRoomNotFound,
	// rooms the user cannot see return ErrForbidden.
	FindByUUID(ctx context.Context, uuid string) (*domain.Room, error)

	// Rename changes the room name (creator only) and returns the updated room.
	Rename(ctx context.Context, uuid, name string) (*domain.Room, error)

	// Delete removes the room (creator only).
	Delete(ctx context.Context, uuid string) error

	// Leave removes the current user from the room.
	Leave(ctx context.Context, uuid string) error
}
