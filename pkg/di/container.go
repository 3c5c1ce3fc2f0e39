// Package di provides dependency injection container
package di

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ssargent/dynattr/pkg/api" //nolint:depguard
	"github.com/ssargent/dynattr/pkg/metrics"
	"github.com/ssargent/dynattr/pkg/storage"
)

// StoreFactory opens the row store backing the CLI and the server
type StoreFactory func(dataDir string, schema storage.Schema, opts ...storage.Option) (*storage.RowStore, error)

// Container holds all the dependencies for the application
type Container struct {
	storeFactory  StoreFactory
	serverFactory api.ServerFactory
	registry      *prometheus.Registry
	metrics       *metrics.Metrics
}

// NewContainer creates a new dependency injection container
func NewContainer() *Container {
	reg := prometheus.NewRegistry()
	return &Container{
		storeFactory:  storage.Open,
		serverFactory: api.NewServerFactory(),
		registry:      reg,
		metrics:       metrics.New(reg),
	}
}

// GetStoreFactory returns the store factory
func (c *Container) GetStoreFactory() StoreFactory {
	return c.storeFactory
}

// GetServerFactory returns the server factory
func (c *Container) GetServerFactory() api.ServerFactory {
	return c.serverFactory
}

// GetRegistry returns the registry shared by every metrics consumer
func (c *Container) GetRegistry() *prometheus.Registry {
	return c.registry
}

// GetMetrics returns the collectors registered on the container's registry
func (c *Container) GetMetrics() *metrics.Metrics {
	return c.metrics
}

// SetStoreFactory allows overriding the store factory (for testing)
func (c *Container) SetStoreFactory(factory StoreFactory) {
	c.storeFactory = factory
}

// SetServerFactory allows overriding the server factory (for testing)
func (c *Container) SetServerFactory(factory api.ServerFactory) {
	c.serverFactory = factory
}
