// Package config provides 12-factor configuration management for the view host.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables for development flexibility.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Views: Registry capacity and script runtime limits
//   - Bridge: Message queue sizing
//   - Storage: Persistence root and snapshot compression
//   - Fetch: Outbound HTTP client behavior
//   - Auth: Embedder token verification
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST, MAX_VIEWS, SCRIPT_TIMEOUT
//   - BRIDGE_QUEUE_SIZE, STORAGE_ROOT
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST
package config
