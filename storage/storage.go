package storage

import (
	"context"
	"errors"
)

// ErrUnavailable wraps backend failures (I/O, Redis) so callers can tell them apart
// from an absent record.
var ErrUnavailable = errors.New("token storage unavailable")

// TokenStorage is durable client-side persistence for the api token.
type TokenStorage interface {
	Save(ctx context.Context, token string) error
	// Get returns ok=false when no token is stored.
	Get(ctx context.Context) (token string, ok bool, err error)
	Destroy(ctx context.Context) error
}

// UserStorage persists the encoded user record next to the token.
type UserStorage interface {
	SaveUser(ctx context.Context, record []byte) error
	LoadUser(ctx context.Context) (record []byte, ok bool, err error)
	DestroyUser(ctx context.Context) error
}

// StateStorage persists named client-side store records (screen filters and the like).
// They live beside the session but survive its purge.
type StateStorage interface {
	SaveState(ctx context.Context, name string, record []byte) error
	LoadState(ctx context.Context, name string) (record []byte, ok bool, err error)
	DestroyState(ctx context.Context, name string) error
}
