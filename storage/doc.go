// Package storage persists the api token (and optionally the authenticated user record)
// so a client session survives a restart.
//
// # Backends
//
//   - [Memory] keeps everything in-process; used by tests and short-lived tools.
//   - [File] writes a 0600 JSON record into a directory with atomic renames.
//   - [Redis] keeps the record under a key prefix so several terminals can share one login.
//
// All backends implement both [TokenStorage] and [UserStorage].
package storage
