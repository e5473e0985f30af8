package window

// Window is a live browsing context. Windows are created by a Browser and
// compared by pointer; all fields are guarded by the owning browser's lock.
type Window struct {
	browser      *Browser
	name         string
	url          string
	opener       *Window
	parent       *Window  // nil for top-level windows
	frameElement *Element // nil for top-level windows
	document     *Document
	closed       bool
}

// Browser returns the browser that owns this window.
func (w *Window) Browser() *Browser { return w.browser }

// Name returns the window's browsing context name.
func (w *Window) Name() string {
	w.browser.mu.RLock()
	defer w.browser.mu.RUnlock()
	return w.name
}

// SetName renames the browsing context.
func (w *Window) SetName(name string) {
	w.browser.mu.Lock()
	defer w.browser.mu.Unlock()
	w.name = name
}

// URL returns the window's current URL.
func (w *Window) URL() string {
	w.browser.mu.RLock()
	defer w.browser.mu.RUnlock()
	return w.url
}

// Opener returns the window that opened this one, or nil.
func (w *Window) Opener() *Window {
	w.browser.mu.RLock()
	defer w.browser.mu.RUnlock()
	return w.opener
}

// SetOpener rewires the opener relationship.
func (w *Window) SetOpener(o *Window) {
	w.browser.mu.Lock()
	defer w.browser.mu.Unlock()
	w.opener = o
}

// Parent returns the parent browsing context. Top-level windows are their
// own parent, matching host semantics.
func (w *Window) Parent() *Window {
	w.browser.mu.RLock()
	defer w.browser.mu.RUnlock()
	if w.parent == nil {
		return w
	}
	return w.parent
}

// Top returns the top-level window of this window's frame tree.
func (w *Window) Top() *Window {
	w.browser.mu.RLock()
	defer w.browser.mu.RUnlock()
	return w.topLocked()
}

func (w *Window) topLocked() *Window {
	t := w
	for t.parent != nil {
		t = t.parent
	}
	return t
}

// FrameElement returns the element embedding this window, or nil for
// top-level windows.
func (w *Window) FrameElement() *Element {
	w.browser.mu.RLock()
	defer w.browser.mu.RUnlock()
	return w.frameElement
}

// Document returns the window's current document.
func (w *Window) Document() *Document {
	w.browser.mu.RLock()
	defer w.browser.mu.RUnlock()
	return w.document
}

// Closed reports whether the window has been closed.
func (w *Window) Closed() bool {
	w.browser.mu.RLock()
	defer w.browser.mu.RUnlock()
	return w.closed
}

// Navigate loads a new URL into the window, replacing its document and
// tearing down any subframes of the old document.
func (w *Window) Navigate(rawURL string) {
	w.browser.mu.Lock()
	defer w.browser.mu.Unlock()
	w.browser.navigateLocked(w, rawURL)
}

// Close closes the window and every window framed by its document.
func (w *Window) Close() {
	w.browser.mu.Lock()
	defer w.browser.mu.Unlock()
	w.browser.closeLocked(w)
}

// Open is the real open capability exposed by this window. It resolves the
// target name, reuses or creates a browsing context, and navigates it. A nil
// return means the host refused to create a window (popup policy).
func (w *Window) Open(rawURL, target string) *Window {
	return w.browser.Open(w, rawURL, target)
}

// Document is the content loaded into a window. A navigation replaces the
// whole document, so holding a *Document pins one generation of content.
type Document struct {
	window  *Window
	baseURL string
	title   string
	raw     []byte
	frames  []*Element
}

func newDocument(w *Window, baseURL string) *Document {
	return &Document{window: w, baseURL: baseURL}
}

// Window returns the window presenting this document.
func (d *Document) Window() *Window { return d.window }

// BaseURL returns the document's base URL.
func (d *Document) BaseURL() string {
	d.window.browser.mu.RLock()
	defer d.window.browser.mu.RUnlock()
	return d.baseURL
}

// SetBaseURL overrides the document's base URL.
func (d *Document) SetBaseURL(u string) {
	d.window.browser.mu.Lock()
	defer d.window.browser.mu.Unlock()
	d.baseURL = u
}

// Title returns the document title.
func (d *Document) Title() string {
	d.window.browser.mu.RLock()
	defer d.window.browser.mu.RUnlock()
	return d.title
}

// SetTitle sets the document title.
func (d *Document) SetTitle(t string) {
	d.window.browser.mu.Lock()
	defer d.window.browser.mu.Unlock()
	d.title = t
}

// Raw returns the original markup the document was loaded from, if any.
func (d *Document) Raw() []byte {
	d.window.browser.mu.RLock()
	defer d.window.browser.mu.RUnlock()
	return d.raw
}

// SetRaw stores the original markup for later inspection.
func (d *Document) SetRaw(b []byte) {
	d.window.browser.mu.Lock()
	defer d.window.browser.mu.Unlock()
	d.raw = b
}

// Frames returns the document's frame-owning elements in document order.
func (d *Document) Frames() []*Element {
	d.window.browser.mu.RLock()
	defer d.window.browser.mu.RUnlock()
	out := make([]*Element, len(d.frames))
	copy(out, d.frames)
	return out
}

// Element is a frame-owning element (iframe or frame). It belongs to exactly
// one document and embeds exactly one content window.
type Element struct {
	tag     string
	attrs   map[string]string
	owner   *Document
	content *Window
}

// Tag returns the element's tag name in lower case.
func (e *Element) Tag() string { return e.tag }

// Attr returns the named attribute and whether it is present.
func (e *Element) Attr(name string) (string, bool) {
	e.owner.window.browser.mu.RLock()
	defer e.owner.window.browser.mu.RUnlock()
	v, ok := e.attrs[name]
	return v, ok
}

// AttrOr returns the named attribute or a default when absent.
func (e *Element) AttrOr(name, def string) string {
	if v, ok := e.Attr(name); ok {
		return v
	}
	return def
}

// SetAttr sets an attribute on the element.
func (e *Element) SetAttr(name, value string) {
	e.owner.window.browser.mu.Lock()
	defer e.owner.window.browser.mu.Unlock()
	e.attrs[name] = value
}

// OwnerDocument returns the document containing this element.
func (e *Element) OwnerDocument() *Document { return e.owner }

// ContentWindow returns the window embedded by this element.
func (e *Element) ContentWindow() *Window {
	e.owner.window.browser.mu.RLock()
	defer e.owner.window.browser.mu.RUnlock()
	return e.content
}
