// Package permission evaluates the capability strings attached to an authenticated user.
//
// # Matching
//
// Permissions are dot-separated segments such as "view.rfid.monitoring". A grant ending in
// ".*" covers every permission that shares its prefix, so "view.rfid.*" grants both
// "view.rfid" and "view.rfid.monitoring". The special requirement "*" is satisfied by
// every user.
//
// # Architecture boundaries
//
// This package is a pure in-memory data structure with no I/O.
//
// # What this package must NOT do
//
//   - Access storage or the network.
//   - Import goGate, router, or api.
//   - Decide navigation outcomes (the Guard owns that).
package permission
