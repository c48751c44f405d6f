// Package api provides an HTTP API for searching the curlens catalog.
package api

import "net/http"

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8082")
	ListenAddr string

	// WindowDays is the default recency window of /v1/search.
	WindowDays int

	// TopK is the default number of /v1/search results.
	TopK int

	// MCPHandler, when set, is mounted at /mcp.
	MCPHandler http.Handler
}
