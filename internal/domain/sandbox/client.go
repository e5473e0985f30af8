package sandbox

import (
	"github.com/bearcattt/scramjet/internal/domain/intercept"
	"github.com/bearcattt/scramjet/internal/domain/session"
	"github.com/bearcattt/scramjet/internal/domain/window"
	"github.com/bearcattt/scramjet/internal/shared/id"
)

// Client binds a marked window to its stable proxy and session metadata.
// Clients are fully initialized before the manager publishes them.
type Client struct {
	id      id.ClientID
	manager *Manager
	window  *window.Window
	meta    *session.Meta
	proxy   *GlobalProxy
}

func newClient(m *Manager, win *window.Window, meta *session.Meta) *Client {
	c := &Client{
		id:      id.NewClientID(),
		manager: m,
		window:  win,
		meta:    meta,
	}
	c.proxy = &GlobalProxy{client: c}
	return c
}

// ID returns the client's identifier.
func (c *Client) ID() id.ClientID { return c.id }

// Window returns the real window this client is bound to.
func (c *Client) Window() *window.Window { return c.window }

// Meta returns the client's session metadata. Metadata is immutable after
// adoption.
func (c *Client) Meta() *session.Meta { return c.meta }

// Proxy returns the client's global proxy. The same proxy is returned for
// the client's whole lifetime.
func (c *Client) Proxy() *GlobalProxy { return c.proxy }

// Manager returns the manager that marked this client's window.
func (c *Client) Manager() *Manager { return c.manager }

// Hook installs the client's capability interceptions: open, opener, and
// frameElement on the bound window. Installation replaces existing slots,
// so calling Hook again is harmless.
func (c *Client) Hook() {
	reg := c.manager.registry
	reg.InstallApply(c.window, "open", intercept.ApplyHooks{
		Before: c.beforeOpen,
		After:  c.afterOpen,
	})
	reg.InstallTrap(c.window, "opener", intercept.TrapHooks{
		AfterGet: c.getOpener,
	})
	reg.InstallTrap(c.window, "frameElement", intercept.TrapHooks{
		AfterGet: c.getFrameElement,
	})
}

// beforeOpen rewrites an open call's URL and target before delegation. The
// URL goes through the session rewriter; the target keywords that name
// frames the page cannot see (_top, _unfencedTop, _parent) are replaced
// with the synthetic frame names from session metadata. Everything else,
// including _self and _blank, passes through untouched.
func (c *Client) beforeOpen(inv *intercept.Invocation) {
	if len(inv.Args) > 0 {
		if raw, ok := inv.Args[0].(string); ok && raw != "" {
			if rw := c.manager.rewriter; rw != nil {
				rewritten := rw.Rewrite(raw, c.meta)
				inv.Args[0] = rewritten
				outcome := "passthrough"
				if rewritten != raw {
					outcome = "rewritten"
				}
				if m := c.manager.metrics; m != nil {
					m.IncURLRewritten(outcome)
				}
			}
		}
	}
	if len(inv.Args) > 1 {
		if target, ok := inv.Args[1].(string); ok {
			switch target {
			case "_top", "_unfencedTop":
				inv.Args[1] = c.meta.TopFrameName
			case "_parent":
				inv.Args[1] = c.meta.ParentFrameName
			}
		}
	}
}

// afterOpen resolves the delegate's raw result through the creation path.
// The caller receives a proxy or nil, never the raw window.
func (c *Client) afterOpen(inv *intercept.Invocation) {
	raw, _ := inv.Result().(*window.Window)

	outcome := "adopted"
	switch {
	case raw == nil:
		outcome = "blocked"
	case c.manager.resolveObserve(raw) != nil:
		outcome = "reused"
	}

	proxy := c.manager.resolveCreate(raw, c)
	if m := c.manager.metrics; m != nil {
		m.IncOpenIntercepted(outcome)
	}
	c.manager.emit("open.intercepted", map[string]any{
		"client":  c.id.String(),
		"session": c.meta.SessionID.String(),
		"outcome": outcome,
	})

	if proxy == nil {
		inv.Return(nil)
		return
	}
	inv.Return(proxy)
}

// getOpener resolves an opener read through the observation path: marked
// windows surface as their proxy, foreign ones degrade to absent.
func (c *Client) getOpener(acc *intercept.Access) {
	raw, _ := acc.Value.(*window.Window)
	proxy := c.manager.resolveObserve(raw)
	if proxy == nil {
		if raw != nil {
			c.refused("opener")
		}
		acc.Value = nil
		return
	}
	acc.Value = proxy
}

// getFrameElement applies the trust boundary for frame element reads. The
// marker check runs against the window of the document that owns the
// element: the embedding context decides visibility, not the frame itself.
// Marked embedders expose the real element; foreign ones degrade to absent.
func (c *Client) getFrameElement(acc *intercept.Access) {
	el, _ := acc.Value.(*window.Element)
	if el == nil {
		acc.Value = nil
		return
	}
	owner := el.OwnerDocument()
	if owner == nil || owner.Window() == nil {
		acc.Value = nil
		return
	}
	if _, ok := c.manager.lookup(owner.Window()); !ok {
		c.refused("frameElement")
		acc.Value = nil
		return
	}
	acc.Value = el
}

func (c *Client) refused(member string) {
	if m := c.manager.metrics; m != nil {
		m.IncForeignRefused(member)
	}
	c.manager.emit("foreign.refused", map[string]any{
		"client":  c.id.String(),
		"session": c.meta.SessionID.String(),
		"member":  member,
	})
}
