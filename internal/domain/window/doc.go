// Package window models the host browsing contexts the sandbox runs against.
//
// A Browser owns a graph of Window, Document, and Element values. These are
// opaque host objects: identity is pointer identity, and nothing in this
// package ever copies a live window. The package also implements the real
// open capability (target resolution, named-window reuse, popup policy) that
// higher layers interpose on.
//
// The package has no knowledge of sandboxing. It is the substrate the
// sandbox package marks and wraps.
package window
