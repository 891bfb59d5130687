package dto

import "taskloop-sync/internal/domain"

// ParticipantPayload is one entry of a session's participants list.
type ParticipantPayload struct {
	ID       int64  `json:"id" validate:"gt=0"`
	Username string `json:"username" validate:"required"`
}

// SessionPayload is returned by GET /sessions/{uuid}, GET /sessions/ and
// PUT /sessions/{uuid}/manage.
type SessionPayload struct {
	ID                int64                `json:"id" validate:"gt=0"`
	UUID              string               `json:"uuid" validate:"required"`
	Name              string               `json:"name"`
	Creator           int64                `json:"creator" validate:"gt=0"`
	CreatorUsername   string               `json:"creator_username"`
	Participants      []ParticipantPayload `json:"participants" validate:"dive"`
	ParticipantsCount int                  `json:"participants_count" validate:"gte=0"`
	CreatedAt         string               `json:"created_at" validate:"required"`
}

// ToDomain validates the payload and converts it.
func (p SessionPayload) ToDomain() (*domain.Room, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}
	createdAt, err := parseTimestamp("created_at", p.CreatedAt)
	if err != nil {
		return nil, err
	}
	room := &domain.Room{
		ID:                   p.ID,
		UUID:                 p.UUID,
		Name:                 p.Name,
		Creator:              p.Creator,
		CreatorUsername:      p.CreatorUsername,
		Participants:         make([]domain.Participant, 0, len(p.Participants)),
		ReportedParticipants: p.ParticipantsCount,
		CreatedAt:            createdAt,
	}
	seen := make(map[int64]bool, len(p.Participants))
	for _, pp := range p.Participants {
		// participants are unique by id
		if seen[pp.ID] {
			continue
		}
		seen[pp.ID] = true
		room.Participants = append(room.Participants, domain.Participant{ID: pp.ID, Username: pp.Username})
	}
	return room, nil
}

// FromRoom is the inverse of ToDomain, used by test servers.
func FromRoom(r domain.Room) SessionPayload {
	p := SessionPayload{
		ID:                r.ID,
		UUID:              r.UUID,
		Name:              r.Name,
		Creator:           r.Creator,
		CreatorUsername:   r.CreatorUsername,
		Participants:      make([]ParticipantPayload, 0, len(r.Participants)),
		ParticipantsCount: r.ParticipantCount(),
		CreatedAt:         formatTimestamp(r.CreatedAt),
	}
	for _, pp := range r.Participants {
		p.Participants = append(p.Participants, ParticipantPayload{ID: pp.ID, Username: pp.Username})
	}
	return p
}

// CreateSessionRequest is the body of POST /sessions/create and PUT /sessions/{uuid}/manage.
type CreateSessionRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// CreateSessionResponse is returned by POST /sessions/create.
type CreateSessionResponse struct {
	UUID string `json:"uuid" validate:"required"`
	Name string `json:"name"`
}

func (r CreateSessionResponse) ToDomain() (*domain.RoomRef, error) {
	if err := Validate(r); err != nil {
		return nil, err
	}
	return &domain.RoomRef{UUID: r.UUID, Name: r.Name}, nil
}
