package goGate

import "errors"

var (
	// ErrLoginFailed wraps every failed Login; the cause stays reachable through errors.As.
	ErrLoginFailed = errors.New("login failed")
	// ErrVerificationFailed is returned by Session.Verify when the token was rejected.
	ErrVerificationFailed = errors.New("token verification failed")
	// ErrTokenExpired marks a token whose exp claim is already in the past.
	ErrTokenExpired = errors.New("token expired")
	// ErrNoToken is returned by Session.Verify when no credential is held.
	ErrNoToken = errors.New("no token")
	// ErrSessionClosed is returned by operations on a closed session.
	ErrSessionClosed = errors.New("session closed")
	// ErrEngineNotReady is returned by methods called on a nil or unbuilt engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrBuilderUsed is returned by a second Build on the same builder.
	ErrBuilderUsed = errors.New("builder already used")
	// ErrAuthAPIRequired is returned when no Auth API was configured.
	ErrAuthAPIRequired = errors.New("auth api required")
	// ErrInvalidConfig wraps configuration validation failures.
	ErrInvalidConfig = errors.New("invalid config")
)
