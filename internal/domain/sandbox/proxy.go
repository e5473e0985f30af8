package sandbox

import "github.com/bearcattt/scramjet/internal/domain/window"

// GlobalProxy is the window surface handed to script. Every dispatch runs
// through the interception registry, so the raw window never crosses this
// boundary: window-valued results come back as proxies or nil.
type GlobalProxy struct {
	client *Client
}

// Client returns the proxy's owning client.
func (p *GlobalProxy) Client() *Client { return p.client }

// Open intercepts the open capability. Arguments follow the host signature
// (url, target, features...); extra arguments are delegated uninterpreted.
func (p *GlobalProxy) Open(args ...any) *GlobalProxy {
	c := p.client
	res := c.manager.registry.Apply(c.window, "open", func(a []any) any {
		rawURL := stringArg(a, 0)
		target := stringArg(a, 1)
		if w := c.window.Open(rawURL, target); w != nil {
			return w
		}
		return nil
	}, args...)

	if gp, ok := res.(*GlobalProxy); ok {
		return gp
	}
	return nil
}

// Opener intercepts opener reads. Foreign openers read as nil.
func (p *GlobalProxy) Opener() *GlobalProxy {
	c := p.client
	v := c.manager.registry.Get(c.window, "opener", func() any {
		if o := c.window.Opener(); o != nil {
			return o
		}
		return nil
	})

	if gp, ok := v.(*GlobalProxy); ok {
		return gp
	}
	return nil
}

// FrameElement intercepts frame element reads. It returns the real element
// when the embedding document's window is marked, nil otherwise.
func (p *GlobalProxy) FrameElement() *window.Element {
	c := p.client
	v := c.manager.registry.Get(c.window, "frameElement", func() any {
		if el := c.window.FrameElement(); el != nil {
			return el
		}
		return nil
	})

	if el, ok := v.(*window.Element); ok {
		return el
	}
	return nil
}

// Name reads the window's browsing context name.
func (p *GlobalProxy) Name() string { return p.client.window.Name() }

// Closed reports whether the underlying window has been closed.
func (p *GlobalProxy) Closed() bool { return p.client.window.Closed() }

// URL reads the window's current URL.
func (p *GlobalProxy) URL() string { return p.client.window.URL() }

func stringArg(args []any, i int) string {
	if i >= len(args) {
		return ""
	}
	s, _ := args[i].(string)
	return s
}
