package engine

import (
	"strings"

	"github.com/dop251/goja"

	"github.com/bearcattt/scramjet/internal/domain/sandbox"
	"github.com/bearcattt/scramjet/internal/domain/window"
)

// binder maps sandbox capabilities to script objects. Each capability binds
// to exactly one object per binder, so reference equality in scripts mirrors
// proxy identity: window.open('u','w') === window.open('','w').
type binder struct {
	vm       *goja.Runtime
	manager  *sandbox.Manager
	proxies  map[*sandbox.GlobalProxy]*goja.Object
	elements map[*window.Element]*goja.Object
}

func newBinder(vm *goja.Runtime, manager *sandbox.Manager) *binder {
	return &binder{
		vm:       vm,
		manager:  manager,
		proxies:  make(map[*sandbox.GlobalProxy]*goja.Object),
		elements: make(map[*window.Element]*goja.Object),
	}
}

// bindProxy returns the script object for a proxy, creating it on first
// sight. A nil proxy binds to null, which is how refusals surface in script.
func (b *binder) bindProxy(p *sandbox.GlobalProxy) goja.Value {
	if p == nil {
		return goja.Null()
	}
	if obj, ok := b.proxies[p]; ok {
		return obj
	}

	obj := b.vm.NewObject()
	// Publish before wiring members so opener cycles terminate.
	b.proxies[p] = obj

	obj.Set("open", func(call goja.FunctionCall) goja.Value {
		args := make([]any, len(call.Arguments))
		for i, arg := range call.Arguments {
			args[i] = exportArg(arg)
		}
		return b.bindProxy(p.Open(args...))
	})
	obj.Set("close", func(call goja.FunctionCall) goja.Value {
		p.Client().Window().Close()
		return goja.Undefined()
	})

	b.defineAccessor(obj, "opener", func() goja.Value {
		return b.bindProxy(p.Opener())
	})
	b.defineAccessor(obj, "frameElement", func() goja.Value {
		return b.bindElement(p.FrameElement())
	})
	b.defineAccessor(obj, "name", func() goja.Value {
		return b.vm.ToValue(p.Name())
	})
	b.defineAccessor(obj, "closed", func() goja.Value {
		return b.vm.ToValue(p.Closed())
	})
	b.defineAccessor(obj, "location", func() goja.Value {
		loc := b.vm.NewObject()
		loc.Set("href", p.URL())
		return loc
	})

	return obj
}

// bindElement returns the script object for a frame element. The element's
// contentWindow resolves through the marker table: marked content windows
// bind to their proxy, everything else reads null.
func (b *binder) bindElement(el *window.Element) goja.Value {
	if el == nil {
		return goja.Null()
	}
	if obj, ok := b.elements[el]; ok {
		return obj
	}

	obj := b.vm.NewObject()
	b.elements[el] = obj

	obj.Set("tagName", strings.ToUpper(el.Tag()))
	obj.Set("getAttribute", func(name string) goja.Value {
		if v, ok := el.Attr(name); ok {
			return b.vm.ToValue(v)
		}
		return goja.Null()
	})
	obj.Set("setAttribute", func(name, value string) {
		el.SetAttr(name, value)
	})

	b.defineAccessor(obj, "contentWindow", func() goja.Value {
		if c, ok := b.manager.ClientOf(el.ContentWindow()); ok {
			return b.bindProxy(c.Proxy())
		}
		return goja.Null()
	})

	return obj
}

func (b *binder) defineAccessor(obj *goja.Object, name string, get func() goja.Value) {
	getter := b.vm.ToValue(func(call goja.FunctionCall) goja.Value {
		return get()
	})
	_ = obj.DefineAccessorProperty(name, getter, nil, goja.FLAG_FALSE, goja.FLAG_TRUE)
}

// exportArg converts a script argument the way the DOM API would: absent
// values stay absent, everything else stringifies.
func exportArg(v goja.Value) any {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	return v.String()
}
