package remote

import (
	"context"
	"net/http"

	"taskloop-sync/internal/domain"
	"taskloop-sync/internal/dto"
)

// RoomAPI implements repository.RoomRepository.
type RoomAPI struct {
	client *Client
}

func NewRoomAPI(client *Client) *RoomAPI {
	return &RoomAPI{client: client}
}

func (r *RoomAPI) List(ctx context.Context) ([]domain.Room, error) {
	var payloads []dto.SessionPayload
	if err := r.client.do(ctx, http.MethodGet, pathSessions, nil, &payloads); err != nil {
		return nil, err
	}
	rooms := make([]domain.Room, 0, len(payloads))
	for _, p := range payloads {
		room, err := p.ToDomain()
		if err != nil {
			return nil, decodeError(http.MethodGet, pathSessions, err)
		}
		rooms = append(rooms, *room)
	}
	return rooms, nil
}

func (r *RoomAPI) Create(ctx context.Context, name string) (*domain.RoomRef, error) {
	var resp dto.CreateSessionResponse
	if err := r.client.do(ctx, http.MethodPost, pathCreateSession, dto.CreateSessionRequest{Name: name}, &resp); err != nil {
		return nil, err
	}
	ref, err := resp.ToDomain()
	if err != nil {
		return nil, decodeError(http.MethodPost, pathCreateSession, err)
	}
	return ref, nil
}

func (r *RoomAPI) FindByUUID(ctx context.Context, uuid string) (*domain.Room, error) {
	return r.session(ctx, http.MethodGet, sessionPath(uuid), nil)
}

func (r *RoomAPI) Rename(ctx context.Context, uuid, name string) (*domain.Room, error) {
	return r.session(ctx, http.MethodPut, managePath(uuid), dto.CreateSessionRequest{Name: name})
}

func (r *RoomAPI) Delete(ctx context.Context, uuid string) error {
	return r.client.do(ctx, http.MethodDelete, managePath(uuid), nil, nil)
}

func (r *RoomAPI) Leave(ctx context.Context, uuid string) error {
	return r.client.do(ctx, http.MethodPost, leavePath(uuid), nil, nil)
}

func (r *RoomAPI) session(ctx context.Context, method, path string, body interface{}) (*domain.Room, error) {
	var p dto.SessionPayload
	if err := r.client.do(ctx, method, path, body, &p); err != nil {
		return nil, err
	}
	room, err := p.ToDomain()
	if err != nil {
		return nil, decodeError(method, path, err)
	}
	return room, nil
}
