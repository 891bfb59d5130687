package domain

import (
	"fmt"
	"strings"
	"time"
)

// MaxTaskTextLength is the longest task text accepted, counted in characters.
const MaxTaskTextLength = 300

// Task is a single to-do item owned by exactly one participant.
type Task struct {
	ID              int64     `json:"id"`
	Session         int64     `json:"session"` // owning room id
	SessionUUID     string    `json:"sessionUuid"`
	User            int64     `json:"user"` // owning participant id
	CreatorUsername string    `json:"creatorUsername"`
	Text            string    `json:"text"`
	IsDone          bool      `json:"isDone"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// OwnedBy reports whether the task belongs to userID.
func (t Task) OwnedBy(userID int64) bool {
	return userID != 0 && t.User == userID
}

// TaskOrder selects the createdAt direction used when listing tasks.
type TaskOrder string

const (
	OrderNewest TaskOrder = "newest"
	OrderOldest TaskOrder = "oldest"
)

// ParseTaskOrder accepts "newest", "oldest" or an empty string (newest).
func ParseTaskOrder(s string) (TaskOrder, error) {
	switch TaskOrder(strings.ToLower(strings.TrimSpace(s))) {
	case "", OrderNewest:
		return OrderNewest, nil
	case OrderOldest:
		return OrderOldest, nil
	default:
		return "", fmt.Errorf("unknown task order %q", s)
	}
}
