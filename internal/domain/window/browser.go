package window

import (
	"strings"
	"sync"
)

// PopupPolicy decides whether an open call that would create a new window is
// refused. Returning true blocks the popup and makes Open yield nil.
type PopupPolicy func(rawURL, target string) bool

// Browser owns a set of browsing contexts and implements the host side of
// window management: creation, named-target resolution, navigation, closing.
type Browser struct {
	mu         sync.RWMutex
	windows    []*Window
	blockPopup PopupPolicy
}

// New creates an empty browser.
func New() *Browser {
	return &Browser{}
}

// WithPopupPolicy installs a popup policy on the browser.
func (b *Browser) WithPopupPolicy(p PopupPolicy) *Browser {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blockPopup = p
	return b
}

// NewWindow creates a top-level window with an empty document.
func (b *Browser) NewWindow(name, rawURL string) *Window {
	b.mu.Lock()
	defer b.mu.Unlock()
	w := &Window{browser: b, name: name, url: rawURL}
	w.document = newDocument(w, rawURL)
	b.windows = append(b.windows, w)
	return w
}

// NewFrame attaches a frame element to the parent window's document and
// creates its content window. The name and src attributes seed the content
// window's name and URL.
func (b *Browser) NewFrame(parent *Window, tag string, attrs map[string]string) (*Element, *Window) {
	b.mu.Lock()
	defer b.mu.Unlock()

	copied := make(map[string]string, len(attrs))
	for k, v := range attrs {
		copied[k] = v
	}

	el := &Element{tag: strings.ToLower(tag), attrs: copied, owner: parent.document}
	content := &Window{
		browser:      b,
		name:         copied["name"],
		url:          copied["src"],
		parent:       parent,
		frameElement: el,
	}
	content.document = newDocument(content, copied["src"])
	el.content = content

	parent.document.frames = append(parent.document.frames, el)
	b.windows = append(b.windows, content)
	return el, content
}

// Open implements host open semantics for a call made from the given window:
//
//	""/_blank      create a popup with the opener set
//	_self          navigate the calling window
//	_parent        navigate the parent browsing context
//	_top           navigate the top browsing context
//	other _names   treated as _blank (unknown keyword)
//	anything else  reuse a live window with that name, else create a popup
//
// Creation is subject to the popup policy; a blocked popup returns nil.
// Reuse and keyword navigation are never blocked.
func (b *Browser) Open(from *Window, rawURL, target string) *Window {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case target == "_self":
		b.navigateExistingLocked(from, rawURL)
		return from
	case target == "_parent":
		p := from.parent
		if p == nil {
			p = from
		}
		b.navigateExistingLocked(p, rawURL)
		return p
	case target == "_top":
		t := from.topLocked()
		b.navigateExistingLocked(t, rawURL)
		return t
	case target == "" || target == "_blank" || strings.HasPrefix(target, "_"):
		return b.popupLocked(from, rawURL, "")
	}

	if existing := b.findByNameLocked(target); existing != nil {
		b.navigateExistingLocked(existing, rawURL)
		return existing
	}
	return b.popupLocked(from, rawURL, target)
}

// FindByName returns the first live window with the given name, or nil.
func (b *Browser) FindByName(name string) *Window {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.findByNameLocked(name)
}

// Windows returns a snapshot of all live windows in creation order.
func (b *Browser) Windows() []*Window {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*Window, 0, len(b.windows))
	for _, w := range b.windows {
		if !w.closed {
			out = append(out, w)
		}
	}
	return out
}

func (b *Browser) findByNameLocked(name string) *Window {
	if name == "" {
		return nil
	}
	for _, w := range b.windows {
		if !w.closed && w.name == name {
			return w
		}
	}
	return nil
}

func (b *Browser) popupLocked(from *Window, rawURL, name string) *Window {
	if b.blockPopup != nil && b.blockPopup(rawURL, name) {
		return nil
	}
	w := &Window{browser: b, name: name, url: rawURL, opener: from}
	w.document = newDocument(w, rawURL)
	b.windows = append(b.windows, w)
	return w
}

// navigateExistingLocked navigates an existing browsing context. An empty
// URL leaves the context untouched, so open("", name) hands back a window
// without reloading it.
func (b *Browser) navigateExistingLocked(w *Window, rawURL string) {
	if rawURL == "" {
		return
	}
	b.navigateLocked(w, rawURL)
}

func (b *Browser) navigateLocked(w *Window, rawURL string) {
	if w.closed {
		return
	}
	// The old document's subframes are torn down with it.
	for _, f := range w.document.frames {
		b.closeLocked(f.content)
	}
	w.url = rawURL
	w.document = newDocument(w, rawURL)
}

func (b *Browser) closeLocked(w *Window) {
	if w == nil || w.closed {
		return
	}
	for _, f := range w.document.frames {
		b.closeLocked(f.content)
	}
	w.closed = true
	for i, cand := range b.windows {
		if cand == w {
			b.windows = append(b.windows[:i], b.windows[i+1:]...)
			break
		}
	}
}
