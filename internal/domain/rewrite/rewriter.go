package rewrite

import (
	"errors"
	"net/url"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/bearcattt/scramjet/internal/domain/session"
)

// DefaultPrefix is used when session metadata does not name one.
const DefaultPrefix = "/scramjet/"

// ErrNotProxied is returned by Restore for URLs outside the proxy prefix.
var ErrNotProxied = errors.New("rewrite: url is not proxied")

// Schemes the proxy never touches.
var skippedSchemes = map[string]bool{
	"about":      true,
	"blob":       true,
	"data":       true,
	"javascript": true,
	"mailto":     true,
}

// Proxy rewrites URLs into their proxied form using per-session settings.
// The codec is chosen by the session's Codec name; unknown names fall back
// to plain.
type Proxy struct {
	codecs map[string]Codec
}

// NewProxy creates a rewriter with the given codecs registered. Plain is
// always available.
func NewProxy(codecs ...Codec) *Proxy {
	m := map[string]Codec{"plain": Plain()}
	for _, c := range codecs {
		m[c.Name()] = c
	}
	return &Proxy{codecs: m}
}

// Rewrite transforms rawURL into its proxied form using the session's
// settings. It is total: anything not rewritable comes back unchanged.
func (p *Proxy) Rewrite(rawURL string, meta *session.Meta) string {
	if meta == nil {
		return rawURL
	}
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return rawURL
	}

	prefix := normalizePrefix(meta.Prefix)
	if strings.HasPrefix(trimmed, prefix) {
		return rawURL
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return rawURL
	}
	if skippedSchemes[strings.ToLower(u.Scheme)] {
		return rawURL
	}

	abs := u
	if !u.IsAbs() {
		base, err := url.Parse(meta.BaseURL)
		if err != nil || !base.IsAbs() {
			return rawURL
		}
		abs = base.ResolveReference(u)
	}
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return rawURL
	}
	if strings.HasPrefix(abs.Path, prefix) {
		return rawURL
	}
	if p.bypassed(abs, meta.Bypass) {
		return rawURL
	}

	return prefix + p.codec(meta.Codec).Encode(abs.String())
}

// Restore recovers the original URL from its proxied form.
func (p *Proxy) Restore(proxied string, meta *session.Meta) (string, error) {
	if meta == nil {
		return "", ErrNotProxied
	}
	prefix := normalizePrefix(meta.Prefix)

	rest, ok := strings.CutPrefix(proxied, prefix)
	if !ok {
		// Absolute proxied URLs carry the prefix in their path.
		if u, err := url.Parse(proxied); err == nil {
			rest, ok = strings.CutPrefix(u.Path, prefix)
		}
		if !ok {
			return "", ErrNotProxied
		}
	}
	return p.codec(meta.Codec).Decode(rest)
}

func (p *Proxy) codec(name string) Codec {
	if c, ok := p.codecs[name]; ok {
		return c
	}
	return p.codecs["plain"]
}

// bypassed matches host/path against the session's bypass globs.
func (p *Proxy) bypassed(u *url.URL, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}
	target := u.Host + u.Path
	for _, pat := range patterns {
		ok, err := doublestar.Match(pat, target)
		if err != nil {
			continue
		}
		if ok {
			return true
		}
	}
	return false
}

func normalizePrefix(prefix string) string {
	if prefix == "" {
		return DefaultPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix
}
