package repository

import "context"

// Keys held in client storage.
const (
	KeySessionID = "session_id"
	KeyToken     = "token"
	// KeyAuthToken is read when KeyToken is absent.
	KeyAuthToken = "auth_token"
)

// KeyValueStore is durable client-side storage for identity values.
type KeyValueStore interface {
	// Get returns the value stored under key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
