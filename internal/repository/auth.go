package repository

import (
	"context"

	"taskloop-sync/internal/domain"
)

// AuthGateway resolves and creates authenticated sessions on the remote API.
type AuthGateway interface {
	// Me returns the user behind the stored token.
	Me(ctx context.Context) (*domain.User, error)

	// Login exchanges credentials for a token.
	Login(ctx context.Context, username, password string) (string, error)

	// Register creates an account and returns its token.
	Register(ctx context.Context, username, email, password string) (string, error)
}
