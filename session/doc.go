// Package session holds the data model of an authenticated warehouse client session:
// the [User] record returned by the Auth API, immutable [State] snapshots, the derived
// [Phase], and the persisted user-record encoding.
//
// # Persisted encoding
//
// User records are persisted as a versioned JSON envelope. Decode migrates older
// layouts forward on read: a record without a version is the bare user object written
// by earlier clients, version 2 adds the envelope and a saved-at timestamp.
//
// # Architecture boundaries
//
// This package owns data types only. It does NOT talk to the Auth API, touch token
// storage, or make navigation decisions.
//
// # What this package must NOT do
//
//   - Import goGate, api, storage, or router (no upward imports).
//   - Store passwords in [User] or [State].
package session
