// Package page turns raw markup into window documents.
//
// The loader detects the payload type and encoding, parses the markup, and
// populates the target window's document: title, effective base URL, raw
// bytes, and one frame element plus content window per iframe or frame tag.
// Frame sources are resolved against the document's base so the sandbox
// sees the same URLs a browser would.
//
// The package also indexes local directories of HTML files for fixture
// sites and produces sanitized previews of loaded documents.
package page
