package domain

// ParticipantStats is the derived completion summary of one participant.
// It is recomputed from the room and task list and never persisted.
type ParticipantStats struct {
	ID                   int64   `json:"id"`
	Username             string  `json:"username"`
	TotalTasks           int     `json:"totalTasks"`
	CompletedTasks       int     `json:"completedTasks"`
	CompletionPercentage float64 `json:"completionPercentage"`
	Position             int     `json:"position"`
}

// Column is one participant's lane on the room board.
type Column struct {
	Participant   ParticipantStats `json:"participant"`
	Label         string           `json:"label"`
	IsCurrentUser bool             `json:"isCurrentUser"`
	Tasks         []Task           `json:"tasks"`
}

// Board is the full room view: the current user's column first, then the
// remaining participants in ranking order.
type Board struct {
	RoomUUID string             `json:"roomUuid"`
	RoomName string             `json:"roomName"`
	Order    TaskOrder          `json:"order"`
	Rankings []ParticipantStats `json:"rankings"`
	Columns  []Column           `json:"columns"`
}
