package rate

import "errors"

var (
	// ErrRateLimited reports that the login budget of the window is spent.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps counter reads and writes that failed.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
