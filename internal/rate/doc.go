// Package rate throttles failed logins with Redis fixed-window counters.
//
// # Window semantics
//
// INCR + conditional EXPIRE on the first hit of a window. Key layout, under the
// configured prefix:
//   - login:<email> failed logins per account
//   - login-ip:<ip> failed logins per client address
package rate
