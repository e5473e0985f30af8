package rewrite

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bearcattt/scramjet/internal/domain/session"
)

func testMeta(codec string) *session.Meta {
	return &session.Meta{
		SessionID: "sess_test",
		Origin:    "https://example.com",
		BaseURL:   "https://example.com/app/",
		Prefix:    "/sj/",
		Codec:     codec,
	}
}

func TestCodecsRoundTrip(t *testing.T) {
	sealed, err := Sealed(make([]byte, 32))
	require.NoError(t, err)

	codecs := []Codec{Plain(), Base64(), Percent(), sealed}
	const target = "https://example.com/path?q=a b&x=1#frag"

	for _, c := range codecs {
		t.Run(c.Name(), func(t *testing.T) {
			encoded := c.Encode(target)
			decoded, err := c.Decode(encoded)
			require.NoError(t, err)
			assert.Equal(t, target, decoded)
		})
	}
}

func TestSealedRejectsBadKey(t *testing.T) {
	_, err := Sealed([]byte("short"))
	assert.ErrorIs(t, err, ErrBadKey)
}

func TestSealedHidesTarget(t *testing.T) {
	sealed, err := Sealed(make([]byte, 32))
	require.NoError(t, err)

	encoded := sealed.Encode("https://secret.example.com/account")
	assert.NotContains(t, encoded, "secret")
	assert.NotContains(t, encoded, "account")
}

func TestRewriteAbsolutizes(t *testing.T) {
	p := NewProxy(Base64())
	meta := testMeta("base64")

	got := p.Rewrite("../img/logo.png", meta)
	require.True(t, strings.HasPrefix(got, "/sj/"), "rewritten URL should carry the prefix, got %q", got)

	restored, err := p.Restore(got, meta)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/img/logo.png", restored)
}

func TestRewriteUnchangedCases(t *testing.T) {
	p := NewProxy(Base64())
	meta := testMeta("base64")
	meta.Bypass = []string{"cdn.example.com/**"}

	tests := []struct {
		name string
		in   string
	}{
		{name: "empty", in: ""},
		{name: "whitespace", in: "   "},
		{name: "javascript scheme", in: "javascript:void(0)"},
		{name: "data scheme", in: "data:text/plain,hi"},
		{name: "about blank", in: "about:blank"},
		{name: "blob", in: "blob:https://example.com/uuid"},
		{name: "already proxied", in: "/sj/aHR0cHM6Ly9leGFtcGxlLmNvbS8"},
		{name: "bypassed host", in: "https://cdn.example.com/lib.js"},
		{name: "unparsable", in: "http://bad url with spaces\x7f"},
		{name: "non http scheme", in: "ftp://example.com/file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.in, p.Rewrite(tt.in, meta))
		})
	}
}

func TestRewriteAbsoluteProxiedURL(t *testing.T) {
	p := NewProxy(Base64())
	meta := testMeta("base64")

	// A proxied URL that became absolute must still be recognized.
	in := "https://proxy.example.com/sj/aHR0cHM6Ly9leGFtcGxlLmNvbS8"
	assert.Equal(t, in, p.Rewrite(in, meta))
}

func TestRewriteUsesSessionCodec(t *testing.T) {
	p := NewProxy(Base64(), Percent())

	b64 := p.Rewrite("https://example.com/x", testMeta("base64"))
	pct := p.Rewrite("https://example.com/x", testMeta("percent"))

	assert.NotEqual(t, b64, pct)
	assert.Contains(t, pct, "https%3A%2F%2F")

	// Unknown codec names fall back to plain.
	plain := p.Rewrite("https://example.com/x", testMeta("nope"))
	assert.Equal(t, "/sj/https://example.com/x", plain)
}

func TestRestoreErrors(t *testing.T) {
	p := NewProxy(Base64())
	meta := testMeta("base64")

	_, err := p.Restore("https://example.com/outside", meta)
	assert.ErrorIs(t, err, ErrNotProxied)

	_, err = p.Restore("/sj/!!!not-base64!!!", meta)
	assert.Error(t, err)
}

func TestDefaultPrefix(t *testing.T) {
	p := NewProxy()
	meta := testMeta("plain")
	meta.Prefix = ""

	got := p.Rewrite("https://example.com/x", meta)
	assert.True(t, strings.HasPrefix(got, DefaultPrefix), "got %q", got)
}
