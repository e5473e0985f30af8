package session

import "github.com/bearcattt/scramjet/internal/shared/id"

// Meta is the per-client session metadata the sandbox consults when
// intercepting capabilities: synthetic frame names for target rewriting and
// the settings the URL rewriter needs.
type Meta struct {
	SessionID id.SessionID `json:"session_id"`
	Origin    string       `json:"origin"`
	BaseURL   string       `json:"base_url"`

	// TopFrameName and ParentFrameName replace the _top and _parent
	// keywords in intercepted open calls. For a top-level window both
	// carry the window's own name.
	TopFrameName    string `json:"top_frame_name"`
	ParentFrameName string `json:"parent_frame_name"`

	// URL rewriting settings, inherited by derived metadata.
	Prefix string   `json:"prefix"`
	Codec  string   `json:"codec"`
	Bypass []string `json:"bypass,omitempty"`
}

// Derive produces metadata for a window adopted through an intercepted open.
// A popup is its own top-level browsing context, so the given window name
// becomes both its top and parent frame name; everything else is inherited.
func (m *Meta) Derive(name string) *Meta {
	d := m.clone()
	d.TopFrameName = name
	d.ParentFrameName = name
	return d
}

// Child produces metadata for a subframe of a window carrying this metadata.
// The top frame name is inherited; the parent frame name is the embedding
// window's name.
func (m *Meta) Child(parentName string) *Meta {
	c := m.clone()
	c.ParentFrameName = parentName
	return c
}

func (m *Meta) clone() *Meta {
	c := *m
	if m.Bypass != nil {
		c.Bypass = append([]string(nil), m.Bypass...)
	}
	return &c
}
