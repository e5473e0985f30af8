// Package sandbox decides which windows belong to the sandboxed world and
// keeps that decision stable.
//
// The Manager owns the marker table: a side table from real window identity
// to its Client. Presence in the table is the single source of truth for
// "is this window one of ours". Marking happens construct-then-publish, so
// no caller ever sees a half-initialized client.
//
// Window references reach script through two paths with deliberately
// different behavior:
//
//   - Creation path (results of an intercepted open): an unmarked window is
//     adopted on the spot. A client is constructed, its hooks installed,
//     and the window marked before the proxy is handed out.
//   - Observation path (opener, frameElement): an unmarked window is
//     foreign. The read degrades to nil and nothing is constructed.
//
// The asymmetry is the security boundary: opening is an act of the sandbox
// and extends it, observing only reveals what is already inside.
//
// Nothing in this package returns an error. Every branch degrades to
// absent or foreign instead.
package sandbox
