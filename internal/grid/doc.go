// Package grid reconciles a server-paged list of group members with the
// edits an operator has staged locally but the server has not confirmed yet.
//
// The package is split into an explicit state transition, State.Apply, and a
// pure projection, Materialize. Grid bundles both and recomputes the View after
// every event or props change. Nothing in this package performs I/O: remote
// page loads and mutations leave as Effect values for the host to execute.
package grid
