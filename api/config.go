// Package api serves the query engine over HTTP.
package api

import "github.com/papercomputeco/ragline/pkg/vector"

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	// Documents backs GET /v1/documents. When nil the endpoint reports 501.
	Documents vector.Lister

	// DisableMCP leaves /mcp unmounted.
	DisableMCP bool
}
