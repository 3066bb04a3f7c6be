// Package fakeapi is an in-memory stand-in for the warehouse Auth API and the warehouse
// endpoints the client stores call. It issues signed JWT api tokens, keeps Argon2id
// password hashes and revokes tokens on logout.
//
// It backs cmd/fake-authapi and the end-to-end tests.
//
// # What this package must NOT do
//
//   - Persist anything.
//   - Serve outside of development and tests.
package fakeapi
