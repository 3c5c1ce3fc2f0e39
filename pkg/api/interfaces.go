// Package api provides interfaces for dependency injection
package api

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// ServerStarter defines the interface for starting the API server
type ServerStarter interface {
	// StartServer serves the API over store until ctx is cancelled
	StartServer(ctx context.Context, store IRecordStore, config ServerConfig, gatherer prometheus.Gatherer) error
}

// ServerFactory creates server instances
type ServerFactory interface {
	// CreateServerStarter creates a server starter
	CreateServerStarter() ServerStarter
}
