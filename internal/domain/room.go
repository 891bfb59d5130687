package domain

import "time"

// Room is a shared task-list container ("session" on the wire).
// It is owned by the server and only cached locally while a view is open.
type Room struct {
	ID              int64         `json:"id"`
	UUID            string        `json:"uuid"` // stable identifier used in routes and share links
	Name            string        `json:"name"`
	Creator         int64         `json:"creator"`
	CreatorUsername string        `json:"creatorUsername"`
	Participants    []Participant `json:"participants"`
	// ReportedParticipants is the server's participants_count. It is kept for
	// diagnostics only; ParticipantCount is the value the client trusts.
	ReportedParticipants int       `json:"participantsCount"`
	CreatedAt            time.Time `json:"createdAt"`
}

// RoomRef is the short form returned when a room is created.
type RoomRef struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
}

// HasParticipant reports whether userID appears in the participant list.
func (r *Room) HasParticipant(userID int64) bool {
	_, ok := r.Participant(userID)
	return ok
}

// Participant returns the participant entry for userID.
func (r *Room) Participant(userID int64) (Participant, bool) {
	if r == nil {
		return Participant{}, false
	}
	for _, p := range r.Participants {
		if p.ID == userID {
			return p, true
		}
	}
	return Participant{}, false
}

// IsCreator reports whether userID created the room.
func (r *Room) IsCreator(userID int64) bool {
	return r != nil && userID != 0 && r.Creator == userID
}

// ParticipantCount is derived from the participant list, never from the
// server-reported counter.
func (r *Room) ParticipantCount() int {
	if r == nil {
		return 0
	}
	return len(r.Participants)
}

// Clone returns a deep copy so callers cannot mutate cached state.
func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}
	c := *r
	c.Participants = append([]Participant(nil), r.Participants...)
	return &c
}
