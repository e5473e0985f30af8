// Package main is the entry point for the scramjet sandbox server.
//
// The server hosts sandboxed browsing sessions: pages are loaded into
// host-side windows, their open, opener, and frameElement capabilities are
// intercepted, and scripts run against the sandboxed surface in pooled
// JavaScript runtimes. Windows outside a session's marker table are foreign
// and read as absent.
//
// The server provides:
//   - REST API for session and window management
//   - Script execution against sandboxed window surfaces
//   - Proxied fetch for rewritten URLs
//   - WebSocket streaming of sandbox activity
//   - Rate limiting, CORS, and Prometheus metrics
//
// Configuration:
//   - Environment variables (12-factor, SCRAMJET_ prefix)
//   - Optional config file (yaml, toml, or json)
//   - CLI flags (override both)
//
// Usage:
//
//	# Production mode
//	./server -port 8000
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
//	# File-based deployment
//	./server -config deploy.yaml
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
