// Package domain defines the study-room data structures shared by every layer.
package domain

// User is the authenticated account behind the current device.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Participant is a member of a study room as listed by the room itself.
type Participant struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}
