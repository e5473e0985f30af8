package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bearcattt/scramjet/internal/infrastructure/config"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	srv, err := NewServer(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })
	return srv
}

func postJSON(t *testing.T, srv *Server, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := sonic.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func TestServerRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	// Root answers and carries a request ID.
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	// Create a session over inline markup.
	w = postJSON(t, srv, "/sessions", map[string]any{
		"html":     `<!DOCTYPE html><html><head><title>Smoke</title></head><body>up</body></html>`,
		"base_url": "https://example.com/",
		"name":     "main",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var created map[string]any
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &created))
	sid := created["session_id"].(string)

	// Scripts run against the sandboxed window surface.
	w = postJSON(t, srv, "/sessions/"+sid+"/exec", map[string]any{
		"script": "window.open('https://a.example/', 'w') === window.open('', 'w')",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var exec map[string]any
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &exec))
	assert.Equal(t, true, exec["value"])

	// Teardown.
	req := httptest.NewRequest("DELETE", "/sessions/"+sid, nil)
	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServerMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "scramjet_")
}

func TestServerSealedCodecRequiresKey(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.Rewrite.Codec = "sealed"
	cfg.Rewrite.SealKey = "not-hex"

	_, err := NewServer(cfg)
	assert.Error(t, err)
}

func TestProxiedRoute(t *testing.T) {
	assert.Equal(t, "/scramjet/*encoded", proxiedRoute("/scramjet/"))
	assert.Equal(t, "/proxy/*encoded", proxiedRoute("/proxy"))
	assert.Equal(t, "/scramjet/*encoded", proxiedRoute(""))
}
