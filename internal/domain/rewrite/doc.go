// Package rewrite turns outbound URLs into proxied URLs.
//
// Rewriting is a total function: anything that cannot be rewritten (an
// unparsable URL, a non-fetchable scheme, a bypassed host, an already
// proxied URL) comes back unchanged. The proxied form is the session's
// prefix followed by the codec-encoded absolute URL.
package rewrite
