// Package intercept provides hook slots around member access on host
// objects. A Registry holds before/after hooks keyed by (object, member)
// pair, and call sites route calls, reads, and writes through it.
//
// Hooks run on the caller's goroutine with no registry lock held, so a hook
// may re-enter the registry (install, dispatch, release) freely.
package intercept
