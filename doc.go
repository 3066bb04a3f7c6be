// Package goGate is the client-side session core of the warehouse front end.
//
// It owns one explicit [Session] that proxies login, token verification and logout to the
// remote Auth API, a [Guard] that decides every route transition from the current session
// snapshot, and an [Engine] that wires both to a token storage backend, a router
// navigator, metrics and audit events.
//
// Engines are assembled with [Builder]:
//
//	engine, err := goGate.New().
//		WithConfig(cfg).
//		WithAuthAPI(client).
//		WithTokenStorage(storage.NewFile(dir)).
//		Build()
//
// # Concurrency
//
// Session operations may overlap. Every mutation of the shared session record happens
// inside one critical section and the last response to resolve wins; there is no request
// de-duplication. Readers only ever see whole [session.State] snapshots.
//
// # What this package must NOT do
//
//   - Keep session state in package-level variables.
//   - Surface Auth API failures as panics or unlogged drops. They are normalized into the
//     session's field errors.
//   - Import any sub-package that re-imports goGate (no import cycles).
package goGate
