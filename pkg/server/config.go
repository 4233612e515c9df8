package server

import (
	"context"
	"log/slog"

	"github.com/vango-dev/vango-stream/pkg/render"
)

// Config holds configuration for a Renderer.
type Config struct {
	// DispatchQueue is the size of the dispatcher's work queue.
	// Dispatch blocks while the queue is full.
	// Default: 256.
	DispatchQueue int

	// Materialize configures how handles serialize components.
	Materialize render.Options

	// BaseContext is passed to component Load calls. It is not cancelled
	// by Close, so in-flight loads run to completion.
	// Default: context.Background().
	BaseContext context.Context

	// Logger receives renderer diagnostics.
	// Default: slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DispatchQueue: 256,
		BaseContext:   context.Background(),
		Logger:        slog.Default(),
	}
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// withDefaults fills zero fields from DefaultConfig.
func (c *Config) withDefaults() *Config {
	cfg := c.Clone()
	if cfg == nil {
		return DefaultConfig()
	}
	def := DefaultConfig()
	if cfg.DispatchQueue <= 0 {
		cfg.DispatchQueue = def.DispatchQueue
	}
	if cfg.BaseContext == nil {
		cfg.BaseContext = def.BaseContext
	}
	if cfg.Logger == nil {
		cfg.Logger = def.Logger
	}
	return cfg
}
