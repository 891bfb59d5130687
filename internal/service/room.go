package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"taskloop-sync/internal/domain"
	"taskloop-sync/internal/dto"
	"taskloop-sync/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	DefaultShareBaseURL        = "https://tasklooop.vercel.app"
	DefaultCreateCheckInterval = time.Second
)

// RoomService covers the room operations that happen outside an open room:
// the room list, creation and sharing. Everything done inside a room goes
// through its SessionSync.
type RoomService struct {
	rooms         repository.RoomRepository
	shareBase     string
	checkInterval time.Duration
}

// NewRoomService creates a RoomService. An empty shareBase uses
// DefaultShareBaseURL, a non-positive checkInterval DefaultCreateCheckInterval.
func NewRoomService(rooms repository.RoomRepository, shareBase string, checkInterval time.Duration) *RoomService {
	if rooms == nil {
		panic("RoomRepository cannot be nil for RoomService")
	}
	if shareBase == "" {
		shareBase = DefaultShareBaseURL
	}
	if checkInterval <= 0 {
		checkInterval = DefaultCreateCheckInterval
	}
	return &RoomService{
		rooms:         rooms,
		shareBase:     strings.TrimRight(shareBase, "/"),
		checkInterval: checkInterval,
	}
}

// ValidateRoomUUID rejects identifiers that cannot name a room.
func ValidateRoomUUID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: room id %q is not a uuid", ErrInvalidInput, id)
	}
	return nil
}

func (s *RoomService) List(ctx context.Context) ([]domain.Room, error) {
	rooms, err := s.rooms.List(ctx)
	if err != nil {
		logrus.WithError(err).Warn("Failed to list rooms")
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

// Create makes a new room owned by the current user.
func (s *RoomService) Create(ctx context.Context, name string) (*domain.RoomRef, error) {
	req := dto.CreateSessionRequest{Name: strings.TrimSpace(name)}
	if err := dto.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	logCtx := logrus.WithField("room_name", req.Name)

	ref, err := s.rooms.Create(ctx, req.Name)
	if err != nil {
		logCtx.WithError(err).Error("Failed to create room")
		return nil, fmt.Errorf("create room: %w", err)
	}
	logCtx.WithField("room_uuid", ref.UUID).Info("Room created successfully")
	return ref, nil
}

// WaitUntilReadable re-reads a freshly created room until the API serves it.
// Not-found answers are retried; any other error ends the wait.
func (s *RoomService) WaitUntilReadable(ctx context.Context, roomUUID string) (*domain.Room, error) {
	if err := ValidateRoomUUID(roomUUID); err != nil {
		return nil, err
	}
	logCtx := logrus.WithField("room_uuid", roomUUID)

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()
	for attempt := 1; ; attempt++ {
		room, err := s.rooms.FindByUUID(ctx, roomUUID)
		if err == nil {
			logCtx.Debugf("Room readable after %d attempt(s)", attempt)
			return room, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("wait for room: %w", err)
		}
		logCtx.Debugf("Room not readable yet (attempt %d)", attempt)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// ShareLink is the web link that opens the room.
func (s *RoomService) ShareLink(roomUUID string) string {
	return s.shareBase + SessionRoute(roomUUID)
}

// WhatsAppLink opens WhatsApp with an invitation to the room.
func (s *RoomService) WhatsAppLink(roomUUID string) string {
	return "whatsapp://send?text=" + url.QueryEscape("Join my study room: "+s.ShareLink(roomUUID))
}
