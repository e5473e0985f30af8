package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bearcattt/scramjet/internal/domain/page"
	"github.com/bearcattt/scramjet/internal/domain/rewrite"
	"github.com/bearcattt/scramjet/internal/domain/sandbox"
	"github.com/bearcattt/scramjet/internal/domain/session"
	"github.com/bearcattt/scramjet/internal/domain/window"
	"github.com/bearcattt/scramjet/internal/infrastructure/config"
	"github.com/bearcattt/scramjet/internal/providers/engine"
	"github.com/bearcattt/scramjet/internal/providers/fetch"
	"github.com/bearcattt/scramjet/internal/shared/id"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	browser  *window.Browser
	sandbox  *sandbox.Manager
	sessions *session.Manager
	loader   *page.Loader
	fetcher  *fetch.Client
	pool     *engine.Pool
	rewriter *rewrite.Proxy
	rewrite  config.RewriteConfig
}

// NewHandlers creates a new handler set
func NewHandlers(
	browser *window.Browser,
	sandboxMgr *sandbox.Manager,
	sessions *session.Manager,
	loader *page.Loader,
	fetcher *fetch.Client,
	pool *engine.Pool,
	rewriter *rewrite.Proxy,
	rewriteCfg config.RewriteConfig,
) *Handlers {
	return &Handlers{
		browser:  browser,
		sandbox:  sandboxMgr,
		sessions: sessions,
		loader:   loader,
		fetcher:  fetcher,
		pool:     pool,
		rewriter: rewriter,
		rewrite:  rewriteCfg,
	}
}

// Root handles health check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "scramjet",
		"version": "1.0.0",
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"sandbox":  h.sandbox.Stats(),
		"sessions": gin.H{"active": h.sessions.Count()},
		"engine":   h.pool.Stats(),
	})
}

// CreateSession loads a page into a fresh top-level window and places it
// under sandbox supervision. The page comes from one of three sources: a
// remote URL, inline markup, or a scanned local site directory.
func (h *Handlers) CreateSession(c *gin.Context) {
	var req struct {
		URL     string `json:"url"`
		HTML    string `json:"html"`
		BaseURL string `json:"base_url"`
		SiteDir string `json:"site_dir"`
		Entry   string `json:"entry"`
		Name    string `json:"name"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sources := 0
	for _, s := range []string{req.URL, req.HTML, req.SiteDir} {
		if s != "" {
			sources++
		}
	}
	if sources != 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "exactly one of url, html, or site_dir is required"})
		return
	}

	var (
		top *window.Window
		doc *window.Document
		err error
	)
	switch {
	case req.URL != "":
		top, doc, err = h.loadRemote(c, req.Name, req.URL)
	case req.HTML != "":
		top, doc, err = h.loadInline(req.Name, req.BaseURL, []byte(req.HTML))
	default:
		top, doc, err = h.loadSite(req.Name, req.SiteDir, req.Entry)
	}
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errUpstream) {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	s := h.sessions.Create(top, session.CreateOptions{
		Origin:  originOf(top.URL()),
		BaseURL: doc.BaseURL(),
		Prefix:  h.rewrite.Prefix,
		Codec:   h.rewrite.Codec,
		Bypass:  h.rewrite.Bypass,
	})
	h.sandbox.AdoptTree(top, s.Meta)

	c.JSON(http.StatusOK, gin.H{
		"session_id": s.ID,
		"window":     top.Name(),
		"title":      doc.Title(),
		"base_url":   doc.BaseURL(),
		"frames":     len(doc.Frames()),
		"created_at": s.CreatedAt,
	})
}

// errUpstream marks failures of the origin fetch so they surface as 502
// instead of a caller error.
var errUpstream = errors.New("upstream fetch failed")

func (h *Handlers) loadRemote(c *gin.Context, name, rawURL string) (*window.Window, *window.Document, error) {
	res, err := h.fetcher.Get(c.Request.Context(), rawURL)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errUpstream, err)
	}
	if !res.OK() {
		return nil, nil, fmt.Errorf("%w: status %d", errUpstream, res.Status)
	}

	// Load against the post-redirect URL so relative references resolve
	// the way the origin intended.
	top := h.browser.NewWindow(name, res.URL)
	doc, err := h.loader.Load(top, res.URL, res.Body)
	if err != nil {
		top.Close()
		return nil, nil, err
	}
	return top, doc, nil
}

func (h *Handlers) loadInline(name, baseURL string, raw []byte) (*window.Window, *window.Document, error) {
	top := h.browser.NewWindow(name, baseURL)
	doc, err := h.loader.Load(top, baseURL, raw)
	if err != nil {
		top.Close()
		return nil, nil, err
	}
	return top, doc, nil
}

func (h *Handlers) loadSite(name, dir, entry string) (*window.Window, *window.Document, error) {
	site, err := page.ScanSite(dir)
	if err != nil {
		return nil, nil, err
	}
	if entry == "" {
		entry = "index.html"
	}

	top := h.browser.NewWindow(name, page.SiteURL(entry))
	doc, err := h.loader.LoadSiteTree(top, site, entry)
	if err != nil {
		top.Close()
		return nil, nil, err
	}
	return top, doc, nil
}

// ListSessions lists all live sessions
func (h *Handlers) ListSessions(c *gin.Context) {
	sessions := h.sessions.List()
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].ID < sessions[j].ID })

	out := make([]gin.H, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, gin.H{
			"session_id": s.ID,
			"origin":     s.Meta.Origin,
			"window":     s.Top.Name(),
			"created_at": s.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"sessions": out,
		"count":    len(out),
	})
}

// GetSession gets details of a specific session
func (h *Handlers) GetSession(c *gin.Context) {
	s, ok := h.sessions.Get(id.SessionID(c.Param("id")))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id": s.ID,
		"origin":     s.Meta.Origin,
		"base_url":   s.Meta.BaseURL,
		"prefix":     s.Meta.Prefix,
		"codec":      s.Meta.Codec,
		"bypass":     s.Meta.Bypass,
		"window":     s.Top.Name(),
		"clients":    len(h.sandbox.ClientsOfSession(s.ID)),
		"created_at": s.CreatedAt,
	})
}

// DeleteSession tears a session down: every window marked for it is closed
// and released from the sandbox, popups included.
func (h *Handlers) DeleteSession(c *gin.Context) {
	sid := id.SessionID(c.Param("id"))

	s, ok := h.sessions.Delete(sid)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	released := 0
	for _, cl := range h.sandbox.ClientsOfSession(s.ID) {
		cl.Window().Close()
		h.sandbox.Release(cl.Window())
		released++
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"session_id": sid,
		"released":   released,
	})
}

// ExecuteScript runs a script against a session window. Scripts see the
// sandboxed window surface, so opens come back as proxies and foreign
// references read as null.
func (h *Handlers) ExecuteScript(c *gin.Context) {
	var req struct {
		Script string `json:"script" binding:"required"`
		Window string `json:"window"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s, ok := h.sessions.Get(id.SessionID(c.Param("id")))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	target := s.Top
	if req.Window != "" {
		target = h.windowInSession(s.ID, req.Window)
	}
	client, ok := h.clientInSession(target, s.ID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "window not found in session"})
		return
	}

	result, err := h.pool.Execute(c.Request.Context(), req.Script, client)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, engine.ErrPoolClosed), errors.Is(err, engine.ErrTimeout):
			status = http.StatusServiceUnavailable
		case engine.IsInterrupt(err):
			status = http.StatusGatewayTimeout
		}
		payload := gin.H{"error": err.Error()}
		if result != nil {
			payload["console"] = consoleJSON(result.Console)
		}
		c.JSON(status, payload)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"value":       result.Value,
		"console":     consoleJSON(result.Console),
		"duration_ms": result.Duration.Milliseconds(),
	})
}

// windowInSession resolves a browsing context name against the session's
// own clients. Names are only unique per session, so the global browser
// index is never consulted here.
func (h *Handlers) windowInSession(sid id.SessionID, name string) *window.Window {
	for _, cl := range h.sandbox.ClientsOfSession(sid) {
		if cl.Window().Name() == name {
			return cl.Window()
		}
	}
	return nil
}

// clientInSession resolves a window to its client, requiring membership in
// the given session. A window marked for another session stays invisible.
func (h *Handlers) clientInSession(win *window.Window, sid id.SessionID) (*sandbox.Client, bool) {
	if win == nil {
		return nil, false
	}
	client, ok := h.sandbox.ClientOf(win)
	if !ok || client.Meta().SessionID != sid {
		return nil, false
	}
	return client, true
}

func consoleJSON(entries []engine.LogEntry) []gin.H {
	out := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		out = append(out, gin.H{"level": e.Level, "message": e.Message})
	}
	return out
}

// WindowTree returns the session's window hierarchy plus every client
// marked for it, so popups outside the frame tree are visible too.
func (h *Handlers) WindowTree(c *gin.Context) {
	s, ok := h.sessions.Get(id.SessionID(c.Param("id")))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	clients := h.sandbox.ClientsOfSession(s.ID)
	list := make([]gin.H, 0, len(clients))
	for _, cl := range clients {
		list = append(list, gin.H{
			"client": cl.ID(),
			"window": cl.Window().Name(),
			"url":    cl.Window().URL(),
			"closed": cl.Window().Closed(),
		})
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i]["window"].(string) < list[j]["window"].(string)
	})

	c.JSON(http.StatusOK, gin.H{
		"tree":    h.windowNode(s.Top),
		"clients": list,
	})
}

func (h *Handlers) windowNode(w *window.Window) gin.H {
	_, sandboxed := h.sandbox.ClientOf(w)
	node := gin.H{
		"name":      w.Name(),
		"url":       w.URL(),
		"closed":    w.Closed(),
		"sandboxed": sandboxed,
	}
	if title := w.Document().Title(); title != "" {
		node["title"] = title
	}

	frames := w.Document().Frames()
	if len(frames) == 0 {
		return node
	}
	list := make([]gin.H, 0, len(frames))
	for _, el := range frames {
		f := gin.H{"tag": el.Tag()}
		if src, ok := el.Attr("src"); ok {
			f["src"] = src
		}
		if cw := el.ContentWindow(); cw != nil {
			f["window"] = h.windowNode(cw)
		}
		list = append(list, f)
	}
	node["frames"] = list
	return node
}

// PagePreview returns a plain-text snippet of the session's top document
func (h *Handlers) PagePreview(c *gin.Context) {
	s, ok := h.sessions.Get(id.SessionID(c.Param("id")))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	n := 280
	if raw := c.Query("chars"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "chars must be a positive integer"})
			return
		}
		n = parsed
	}

	doc := s.Top.Document()
	c.JSON(http.StatusOK, gin.H{
		"title":    doc.Title(),
		"base_url": doc.BaseURL(),
		"preview":  page.TextPreview(doc.Raw(), n),
		"frames":   len(doc.Frames()),
		"bytes":    len(doc.Raw()),
	})
}

// ProxiedFetch serves a rewritten URL: the encoded path is restored with the
// session's codec and fetched upstream. This is the consuming end of the
// URLs the sandbox rewrites into open calls.
func (h *Handlers) ProxiedFetch(c *gin.Context) {
	sid := c.Query("session")
	if sid == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session query parameter is required"})
		return
	}
	s, ok := h.sessions.Get(id.SessionID(sid))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	// The escaped path keeps percent-encoded payloads intact for the codec.
	original, err := h.rewriter.Restore(c.Request.URL.EscapedPath(), s.Meta)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.fetcher.Get(c.Request.Context(), original)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	contentType := res.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Data(res.Status, contentType, res.Body)
}

// originOf reduces a URL to its scheme and host. Non-hierarchical URLs
// reduce to the scheme alone.
func originOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" {
		return ""
	}
	if u.Host == "" {
		return u.Scheme + "://"
	}
	return u.Scheme + "://" + u.Host
}
