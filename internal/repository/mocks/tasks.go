package mocks

import (
	"context"

	"taskloop-sync/internal/domain"

	"github.com/stretchr/testify/mock"
)

// TaskRepository is a testify mock of repository.TaskRepository.
type TaskRepository struct {
	mock.Mock
}

func (m *TaskRepository) List(ctx context.Context, roomUUID string) ([]domain.Task, error) {
	args := m.Called(ctx, roomUUID)
	var tasks []domain.Task
	if v := args.Get(0); v != nil {
		tasks = v.([]domain.Task)
	}
	return tasks, args.Error(1)
}

func (m *TaskRepository) Add(ctx context.Context, roomUUID, text string, userID int64) (*domain.Task, error) {
	args := m.Called(ctx, roomUUID, text, userID)
	return taskArg(args, 0), args.Error(1)
}

func (m *TaskRepository) Save(ctx context.Context, roomUUID string, task domain.Task) (*domain.Task, error) {
	args := m.Called(ctx, roomUUID, task)
	return taskArg(args, 0), args.Error(1)
}

func (m *TaskRepository) UpdateText(ctx context.Context, roomUUID string, taskID int64, text string) (*domain.Task, error) {
	args := m.Called(ctx, roomUUID, taskID, text)
	return taskArg(args, 0), args.Error(1)
}

func (m *TaskRepository) Delete(ctx context.Context, roomUUID string, taskID int64) error {
	return m.Called(ctx, roomUUID, taskID).Error(0)
}

func taskArg(args mock.Arguments, i int) *domain.Task {
	if v := args.Get(i); v != nil {
		return v.(*domain.Task)
	}
	return nil
}
