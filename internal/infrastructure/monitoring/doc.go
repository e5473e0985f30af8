/*
Package monitoring provides performance monitoring and metrics collection.

# Overview

This package implements Prometheus-based metrics collection for the proxy
service, tracking HTTP requests, sandbox activity, script execution, and
system metrics. Every collector owns a private registry, so independently
constructed instances never collide.

# Features

- HTTP request metrics (latency, throughput, size)
- Sandbox metrics (marked windows, intercepted opens, refused reads)
- URL rewrite decision counters
- Session lifecycle metrics
- Script execution metrics (duration, status)
- WebSocket connection metrics
- System metrics (uptime)

# Usage

	// Create metrics collector
	metrics := monitoring.NewMetrics()

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))

	// Record custom metrics
	metrics.SetClientsActive(5)
	metrics.IncOpenIntercepted("adopted")

	// Time operations
	timer := monitoring.NewTimer(metrics, "page", "load")
	// ... perform operation ...
	timer.Stop("success")

# Metrics Endpoint

Expose metrics via the collector's own handler:

	router.GET("/metrics", gin.WrapH(metrics.Handler()))
*/
package monitoring
