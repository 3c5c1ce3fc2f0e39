// Package api provides factory implementations for dependency injection
package api

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultServerFactory is the default implementation of ServerFactory
type DefaultServerFactory struct{}

// NewServerFactory creates a new server factory
func NewServerFactory() ServerFactory {
	return &DefaultServerFactory{}
}

// CreateServerStarter creates a server starter
func (f *DefaultServerFactory) CreateServerStarter() ServerStarter {
	return &DefaultServerStarter{}
}

// DefaultServerStarter is the default implementation of ServerStarter
type DefaultServerStarter struct{}

// StartServer serves the API over store until ctx is cancelled
func (s *DefaultServerStarter) StartServer(
	ctx context.Context,
	store IRecordStore,
	config ServerConfig,
	gatherer prometheus.Gatherer,
) error {
	return StartServer(ctx, store, config, gatherer)
}
