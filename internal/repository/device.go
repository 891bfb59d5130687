package repository

import "context"

// Keys used in the device store.
const (
	KeyToken        = "token"
	KeyAuthRedirect = "authRedirect"
)

// DeviceStore is the small key/value storage that survives restarts.
type DeviceStore interface {
	// Get returns ErrKeyNotFound when the key is absent.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// Delete is a no-op for missing keys.
	Delete(ctx context.Context, key string) error
}
