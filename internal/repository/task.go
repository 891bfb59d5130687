package repository

import (
	"context"

	"taskloop-sync/internal/domain"
)

// TaskRepository covers the per-room task endpoints.
type TaskRepository interface {
	// List returns every task of the room.
	List(ctx context.Context, roomUUID string) ([]domain.Task, error)

	// Add creates a task for userID and returns the server entity.
	Add(ctx context.Context, roomUUID, text string, userID int64) (*domain.Task, error)

	// Save sends the full task payload and returns the server entity.
	Save(ctx context.Context, roomUUID string, task domain.Task) (*domain.Task, error)

	// UpdateText sends a partial update carrying only the text.
	UpdateText(ctx context.Context, roomUUID string, taskID int64, text string) (*domain.Task, error)

	// Delete removes the task.
	Delete(ctx context.Context, roomUUID string, taskID int64) error
}
