// Package api is the HTTP client for the warehouse REST API.
//
// # Endpoints
//
// The Auth API is three POST endpoints: /login, /logout and /verify_token. Warehouse
// stores use [Client.Post] and [Client.Get] against the same base URL.
//
// # Errors
//
// Every failure is one of two types: [*NetworkError] when the request never produced a
// response, and [*APIError] when the server answered with a non-2xx status. Both
// normalize into field errors through [FieldErrorsOf], which is what stores record
// for display.
//
// # What this package must NOT do
//
//   - Hold session state (the caller passes the token it wants sent).
//   - Retry requests; retries would race the session store.
package api
