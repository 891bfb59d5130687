package remote

import (
	"context"
	"net/http"

	"taskloop-sync/internal/domain"
	"taskloop-sync/internal/dto"
)

// TaskAPI implements repository.TaskRepository.
type TaskAPI struct {
	client *Client
}

func NewTaskAPI(client *Client) *TaskAPI {
	return &TaskAPI{client: client}
}

func (t *TaskAPI) List(ctx context.Context, roomUUID string) ([]domain.Task, error) {
	path := tasksPath(roomUUID)
	var payloads []dto.TaskPayload
	if err := t.client.do(ctx, http.MethodGet, path, nil, &payloads); err != nil {
		return nil, err
	}
	tasks := make([]domain.Task, 0, len(payloads))
	for _, p := range payloads {
		task, err := p.ToDomain()
		if err != nil {
			return nil, decodeError(http.MethodGet, path, err)
		}
		tasks = append(tasks, *task)
	}
	return tasks, nil
}

func (t *TaskAPI) Add(ctx context.Context, roomUUID, text string, userID int64) (*domain.Task, error) {
	return t.task(ctx, http.MethodPost, addTaskPath(roomUUID), dto.AddTaskRequest{Text: text, UserID: userID})
}

func (t *TaskAPI) Save(ctx context.Context, roomUUID string, task domain.Task) (*domain.Task, error) {
	return t.task(ctx, http.MethodPut, taskPath(roomUUID, task.ID), dto.FromTask(task))
}

func (t *TaskAPI) UpdateText(ctx context.Context, roomUUID string, taskID int64, text string) (*domain.Task, error) {
	return t.task(ctx, http.MethodPut, taskPath(roomUUID, taskID), dto.UpdateTaskRequest{Text: &text})
}

func (t *TaskAPI) Delete(ctx context.Context, roomUUID string, taskID int64) error {
	return t.client.do(ctx, http.MethodDelete, deleteTaskPath(roomUUID, taskID), nil, nil)
}

func (t *TaskAPI) task(ctx context.Context, method, path string, body interface{}) (*domain.Task, error) {
	var p dto.TaskPayload
	if err := t.client.do(ctx, method, path, body, &p); err != nil {
		return nil, err
	}
	task, err := p.ToDomain()
	if err != nil {
		return nil, decodeError(method, path, err)
	}
	return task, nil
}
