package page

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextPreview(t *testing.T) {
	raw := []byte(`<html><head><title>Hidden Title</title>
<style>p { color: red }</style>
<script>alert("boom")</script></head>
<body>
  <h1>Status</h1>
  <p>All   systems  &amp; services are <b>fine</b>.</p>
</body></html>`)

	got := TextPreview(raw, 0)

	assert.Equal(t, "Status All systems & services are fine.", got)
	assert.NotContains(t, got, "alert")
	assert.NotContains(t, got, "color")
	assert.NotContains(t, got, "Hidden Title")
}

func TestTextPreviewTruncates(t *testing.T) {
	raw := []byte("<p>" + strings.Repeat("word ", 50) + "</p>")

	got := TextPreview(raw, 20)

	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, len([]rune(got)), 23)
}

func TestTextPreviewShortInputUntouched(t *testing.T) {
	got := TextPreview([]byte("<p>tiny</p>"), 100)
	assert.Equal(t, "tiny", got)
}

func TestSafeHTML(t *testing.T) {
	raw := []byte(`<p onclick="evil()">Hello <b>world</b><script>alert(1)</script></p>`)

	got := string(SafeHTML(raw))

	assert.Contains(t, got, "<b>world</b>")
	assert.NotContains(t, got, "onclick")
	assert.NotContains(t, got, "alert")
	assert.NotContains(t, got, "script")
}
