/*
Package monitoring provides performance monitoring and metrics collection.

# Overview

This package implements Prometheus-based metrics collection for the view
host, tracking HTTP requests, view lifecycle, bridge traffic, resource gate
decisions, and system metrics.

# Features

- HTTP request metrics (latency, throughput, size)
- View lifecycle metrics (creation, transitions, content updates)
- Bridge metrics (posted, delivered, dropped, delivery latency)
- Resource gate decisions (allowed, denied)
- Sandbox runtime metrics (live runtimes, script executions)
- Workspace save/restore counters
- WebSocket connection metrics
- System metrics (uptime)

# Usage

	// Create metrics collector
	metrics := monitoring.NewMetrics()

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))

	// Record custom metrics
	metrics.SetViewsActive(5)
	metrics.IncViewsTotal()

	// Time operations
	timer := monitoring.NewTimer(metrics, "workspace", "save")
	// ... perform operation ...
	timer.Stop("success")

# Metrics Endpoint

Expose metrics via the standard Prometheus endpoint:

	import "github.com/prometheus/client_golang/prometheus/promhttp"
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
*/
package monitoring
