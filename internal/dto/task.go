package dto

import "taskloop-sync/internal/domain"

// TaskPayload is the task representation used by every task endpoint.
type TaskPayload struct {
	ID              int64  `json:"id" validate:"gt=0"`
	Session         int64  `json:"session" validate:"gte=0"`
	SessionUUID     string `json:"session_uuid"`
	User            int64  `json:"user" validate:"gt=0"`
	CreatorUsername string `json:"creator_username"`
	Text            string `json:"text"`
	IsDone          bool   `json:"is_done"`
	CreatedAt       string `json:"created_at" validate:"required"`
	UpdatedAt       string `json:"updated_at"`
}

// ToDomain validates the payload and converts it.
func (p TaskPayload) ToDomain() (*domain.Task, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}
	createdAt, err := parseTimestamp("created_at", p.CreatedAt)
	if err != nil {
		return nil, err
	}
	updatedAt := createdAt
	if p.UpdatedAt != "" {
		if updatedAt, err = parseTimestamp("updated_at", p.UpdatedAt); err != nil {
			return nil, err
		}
	}
	return &domain.Task{
		ID:              p.ID,
		Session:         p.Session,
		SessionUUID:     p.SessionUUID,
		User:            p.User,
		CreatorUsername: p.CreatorUsername,
		Text:            p.Text,
		IsDone:          p.IsDone,
		CreatedAt:       createdAt,
		UpdatedAt:       updatedAt,
	}, nil
}

// FromTask builds the full payload sent by a toggle.
func FromTask(t domain.Task) TaskPayload {
	return TaskPayload{
		ID:              t.ID,
		Session:         t.Session,
		SessionUUID:     t.SessionUUID,
		User:            t.User,
		CreatorUsername: t.CreatorUsername,
		Text:            t.Text,
		IsDone:          t.IsDone,
		CreatedAt:       formatTimestamp(t.CreatedAt),
		UpdatedAt:       formatTimestamp(t.UpdatedAt),
	}
}

// AddTaskRequest is the body of POST /sessions/{uuid}/tasks/add.
type AddTaskRequest struct {
	Text   string `json:"text" validate:"required,max=300"`
	UserID int64  `json:"user_id" validate:"gt=0"`
}

// UpdateTaskRequest is the partial body of PUT /sessions/{uuid}/tasks/{id}.
type UpdateTaskRequest struct {
	Text   *string `json:"text,omitempty"`
	IsDone *bool   `json:"is_done,omitempty"`
}
