package repository

import (
	"context"
	"time"

	"taskloop-sync/internal/domain"
)

// BoardCache keeps the last computed board per room so a newly connected
// viewer gets something to render before the first fetch completes.
type BoardCache interface {
	// GetBoard returns ErrNotFound on a cache miss.
	GetBoard(ctx context.Context, roomUUID string) (*domain.Board, error)
	SetBoard(ctx context.Context, roomUUID string, board domain.Board, ttl time.Duration) error
	DropBoard(ctx context.Context, roomUUID string) error
}
