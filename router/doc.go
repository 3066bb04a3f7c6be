// Package router resolves locations against a nested route table and applies the
// navigation decisions produced by before-each hooks.
//
// # Route table
//
// Records nest: a child path is joined to its parent unless it starts with "/", and a
// child inherits its parent's [Meta] with its own non-empty fields taking precedence.
// Path patterns support static segments, ":param", optional ":param?" and the catch-all
// ":pathMatch(.*)*". When several patterns match, static segments outrank parameters
// and parameters outrank the catch-all.
//
// # Navigation
//
// [Navigator.Push] runs every hook for the target; the first hook that does not
// proceed decides. A redirect restarts the pipeline for the new target with the same
// origin, up to a fixed number of hops. A block leaves the current route unchanged.
//
// # What this package must NOT do
//
//   - Import goGate or session (guards are plugged in as hooks).
//   - Render anything; titles and scrolling go through [Viewport].
package router
