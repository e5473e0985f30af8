package window

import "testing"

func TestOpenTargets(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		wantNew bool
	}{
		{name: "blank creates popup", target: "_blank", wantNew: true},
		{name: "empty creates popup", target: "", wantNew: true},
		{name: "unknown keyword treated as blank", target: "_unfencedTop", wantNew: true},
		{name: "self reuses caller", target: "_self", wantNew: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New()
			from := b.NewWindow("main", "https://example.com/")

			got := from.Open("https://example.com/next", tt.target)
			if got == nil {
				t.Fatal("Open returned nil without a popup policy")
			}
			isNew := got != from
			if isNew != tt.wantNew {
				t.Errorf("Open(%q) new window = %v, want %v", tt.target, isNew, tt.wantNew)
			}
			if tt.wantNew && got.Opener() != from {
				t.Error("popup opener not set to calling window")
			}
		})
	}
}

func TestOpenParentAndTop(t *testing.T) {
	b := New()
	top := b.NewWindow("top", "https://example.com/")
	_, mid := b.NewFrame(top, "iframe", map[string]string{"name": "mid", "src": "https://example.com/mid"})
	_, leaf := b.NewFrame(mid, "iframe", map[string]string{"name": "leaf", "src": "https://example.com/leaf"})

	if got := leaf.Open("https://example.com/p", "_parent"); got != mid {
		t.Errorf("_parent resolved to %v, want mid frame", got)
	}
	if got := leaf.Open("https://example.com/t", "_top"); got != top {
		t.Errorf("_top resolved to %v, want top window", got)
	}
	if top.Parent() != top {
		t.Error("top-level window should be its own parent")
	}
	if leaf.Top() != top {
		t.Error("leaf.Top() should walk to the top window")
	}
}

func TestOpenNamedReuse(t *testing.T) {
	b := New()
	from := b.NewWindow("main", "https://example.com/")

	first := from.Open("https://example.com/a", "chat")
	if first == nil || first.Name() != "chat" {
		t.Fatalf("expected named popup, got %+v", first)
	}

	second := from.Open("https://example.com/b", "chat")
	if second != first {
		t.Error("named target should reuse the existing window")
	}
	if second.URL() != "https://example.com/b" {
		t.Errorf("reused window URL = %q, want navigated URL", second.URL())
	}

	// Empty URL hands back the window without navigating.
	third := from.Open("", "chat")
	if third != first {
		t.Error("open with empty URL should still resolve the named window")
	}
	if third.URL() != "https://example.com/b" {
		t.Errorf("empty-URL open navigated the window to %q", third.URL())
	}
}

func TestPopupPolicyBlocks(t *testing.T) {
	b := New().WithPopupPolicy(func(rawURL, target string) bool { return true })
	from := b.NewWindow("main", "https://example.com/")

	if got := from.Open("https://example.com/x", "_blank"); got != nil {
		t.Error("popup policy should block _blank")
	}
	if got := from.Open("https://example.com/x", "newname"); got != nil {
		t.Error("popup policy should block creation for unknown names")
	}
	// Navigation of existing contexts is never a popup.
	if got := from.Open("https://example.com/x", "_self"); got != from {
		t.Error("popup policy must not block _self navigation")
	}
}

func TestFrameWiring(t *testing.T) {
	b := New()
	top := b.NewWindow("top", "https://example.com/")
	el, content := b.NewFrame(top, "IFRAME", map[string]string{"name": "inner", "src": "https://example.com/inner"})

	if el.Tag() != "iframe" {
		t.Errorf("tag = %q, want lowercase iframe", el.Tag())
	}
	if el.OwnerDocument() != top.Document() {
		t.Error("frame element owner should be the embedding document")
	}
	if el.ContentWindow() != content {
		t.Error("content window mismatch")
	}
	if content.FrameElement() != el {
		t.Error("frame element backref mismatch")
	}
	if content.Parent() != top {
		t.Error("frame parent should be the embedding window")
	}
	if top.FrameElement() != nil {
		t.Error("top-level windows have no frame element")
	}
	if got := top.Document().Frames(); len(got) != 1 || got[0] != el {
		t.Errorf("document frames = %v, want the single frame element", got)
	}
}

func TestNavigateReplacesDocument(t *testing.T) {
	b := New()
	top := b.NewWindow("top", "https://example.com/")
	oldDoc := top.Document()
	_, inner := b.NewFrame(top, "iframe", map[string]string{"src": "https://example.com/inner"})

	top.Navigate("https://example.com/two")

	if top.Document() == oldDoc {
		t.Error("navigation should replace the document")
	}
	if top.URL() != "https://example.com/two" {
		t.Errorf("URL = %q after navigation", top.URL())
	}
	if !inner.Closed() {
		t.Error("subframes of the old document should be closed by navigation")
	}
}

func TestCloseRemovesFromBrowser(t *testing.T) {
	b := New()
	w := b.NewWindow("main", "https://example.com/")
	_, inner := b.NewFrame(w, "iframe", map[string]string{"name": "inner"})

	w.Close()

	if !w.Closed() || !inner.Closed() {
		t.Error("close should cascade to framed windows")
	}
	if b.FindByName("inner") != nil {
		t.Error("closed windows must not resolve by name")
	}
	if len(b.Windows()) != 0 {
		t.Errorf("browser still lists %d windows", len(b.Windows()))
	}
}
