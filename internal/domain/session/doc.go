// Package session tracks sandbox sessions and their metadata.
//
// A session ties a top-level window to the metadata every client under it
// shares: the synthetic frame names used for target rewriting and the URL
// rewriting settings. Derived metadata for popups and subframes is computed
// here so the sandbox never invents names on its own.
//
// Sessions are in-memory only. Window identity does not survive a reload,
// so persisting the mapping would be meaningless.
package session
