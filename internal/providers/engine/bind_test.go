package engine

import (
	"context"
	"testing"

	"github.com/bearcattt/scramjet/internal/domain/sandbox"
	"github.com/bearcattt/scramjet/internal/domain/session"
	"github.com/bearcattt/scramjet/internal/domain/window"
)

type prefixRewriter struct{}

func (prefixRewriter) Rewrite(rawURL string, meta *session.Meta) string {
	return "proxied:" + rawURL
}

func newBoundClient(t *testing.T) (*window.Browser, *sandbox.Client) {
	t.Helper()

	browser := window.New()
	win := browser.NewWindow("main", "https://example.com/")
	manager := sandbox.NewManager(prefixRewriter{})
	client := manager.Adopt(win, &session.Meta{
		TopFrameName:    "main",
		ParentFrameName: "main",
	})
	if client == nil {
		t.Fatal("Failed to adopt window")
	}
	return browser, client
}

func runScript(t *testing.T, client *sandbox.Client, script string) interface{} {
	t.Helper()

	runtime, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}
	defer runtime.Close()

	result, err := runtime.Execute(context.Background(), script, client)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	return result.Value
}

func asObject(t *testing.T, v interface{}) map[string]interface{} {
	t.Helper()
	m, ok := v.(map[string]interface{})
	if !ok {
		t.Fatalf("Expected object result, got %T", v)
	}
	return m
}

func TestWindowBindingIdentity(t *testing.T) {
	_, client := newBoundClient(t)

	v := runScript(t, client,
		`window.open('https://a.example/x', 'w') === window.open('', 'w')`)
	if v != true {
		t.Errorf("Repeated opens of the same target bound to distinct objects: %v", v)
	}
}

func TestWindowOpenResult(t *testing.T) {
	_, client := newBoundClient(t)

	script := `
		var w = window.open('https://site.test/page', 'popup');
		({
			opener: w.opener === window,
			href: w.location.href,
			name: w.name
		})
	`
	m := asObject(t, runScript(t, client, script))

	if m["opener"] != true {
		t.Error("Popup opener should read back as the opening window")
	}
	if m["href"] != "proxied:https://site.test/page" {
		t.Errorf("Popup href = %v, want proxied:https://site.test/page", m["href"])
	}
	if name, _ := m["name"].(string); name == "" {
		t.Error("Popup should carry a minted name")
	}
}

func TestWindowOpenBlockedIsNull(t *testing.T) {
	browser := window.New().WithPopupPolicy(func(rawURL, target string) bool { return true })
	win := browser.NewWindow("main", "https://example.com/")
	manager := sandbox.NewManager(prefixRewriter{})
	client := manager.Adopt(win, &session.Meta{TopFrameName: "main", ParentFrameName: "main"})

	v := runScript(t, client, `window.open('https://blocked.test/', 'popup') === null`)
	if v != true {
		t.Errorf("Blocked popup should read as null: %v", v)
	}
}

func TestWindowOpenerForeignReadsNull(t *testing.T) {
	browser, client := newBoundClient(t)

	foreign := browser.NewWindow("outsider", "https://foreign.test/")
	client.Window().SetOpener(foreign)

	v := runScript(t, client, `window.opener === null`)
	if v != true {
		t.Errorf("Foreign opener should read as null: %v", v)
	}
}

func TestBareOpenAlias(t *testing.T) {
	_, client := newBoundClient(t)

	v := runScript(t, client,
		`open('https://a.example/', 'alias') === window.open('', 'alias')`)
	if v != true {
		t.Errorf("Bare open should route through the window binding: %v", v)
	}
}

func TestWindowAccessors(t *testing.T) {
	_, client := newBoundClient(t)

	script := `
		({
			name: window.name,
			closed: window.closed,
			self: self === window
		})
	`
	m := asObject(t, runScript(t, client, script))

	if m["name"] != "main" {
		t.Errorf("window.name = %v, want main", m["name"])
	}
	if m["closed"] != false {
		t.Errorf("window.closed = %v, want false", m["closed"])
	}
	if m["self"] != true {
		t.Error("self should alias window")
	}
}

func TestWindowCloseMarksClosed(t *testing.T) {
	_, client := newBoundClient(t)

	v := runScript(t, client, `window.close(); window.closed`)
	if v != true {
		t.Errorf("window.closed after close = %v, want true", v)
	}
}

func TestFrameElementTopLevelIsNull(t *testing.T) {
	_, client := newBoundClient(t)

	v := runScript(t, client, `window.frameElement === null`)
	if v != true {
		t.Errorf("Top-level frameElement should read as null: %v", v)
	}
}

func TestFrameElementBinding(t *testing.T) {
	browser := window.New()
	top := browser.NewWindow("top", "https://example.com/")
	_, frameWin := browser.NewFrame(top, "iframe", map[string]string{
		"src": "https://example.com/embed",
	})

	manager := sandbox.NewManager(prefixRewriter{})
	manager.AdoptTree(top, &session.Meta{TopFrameName: "top", ParentFrameName: "top"})

	frameClient, ok := manager.ClientOf(frameWin)
	if !ok {
		t.Fatal("Frame window was not adopted")
	}

	script := `
		({
			tag: window.frameElement.tagName,
			src: window.frameElement.getAttribute('src'),
			missing: window.frameElement.getAttribute('nope') === null,
			mine: window.frameElement.contentWindow === window
		})
	`
	m := asObject(t, runScript(t, frameClient, script))

	if m["tag"] != "IFRAME" {
		t.Errorf("frameElement.tagName = %v, want IFRAME", m["tag"])
	}
	if m["src"] != "https://example.com/embed" {
		t.Errorf("frameElement src = %v, want https://example.com/embed", m["src"])
	}
	if m["missing"] != true {
		t.Error("Missing attribute should read as null")
	}
	if m["mine"] != true {
		t.Error("frameElement.contentWindow should bind back to the window itself")
	}
}

func TestFrameElementForeignEmbedderReadsNull(t *testing.T) {
	browser := window.New()
	host := browser.NewWindow("host", "https://foreign.test/")
	_, embedded := browser.NewFrame(host, "iframe", nil)

	manager := sandbox.NewManager(prefixRewriter{})
	client := manager.Adopt(embedded, &session.Meta{TopFrameName: "embedded", ParentFrameName: "embedded"})

	v := runScript(t, client, `window.frameElement === null`)
	if v != true {
		t.Errorf("frameElement owned by a foreign window should read as null: %v", v)
	}
}
