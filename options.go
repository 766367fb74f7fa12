// Copyright (c) 2025 Arcentrix
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0

package ringex

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// config collects the settings a RingBuffer is constructed with. Uses
// the functional-options idiom (NewSingleProducer/NewMultiProducer take
// opts ...Option, built by With* constructors)
// rather than a struct literal, so defaults stay in one place and new
// knobs don't break existing callers.
type config struct {
	id             uuid.UUID
	logger         *zap.Logger
	metricsEnabled bool
}

func defaultConfig() config {
	return config{
		id:             uuid.New(),
		logger:         zap.NewNop(),
		metricsEnabled: false,
	}
}

// Option configures a RingBuffer at construction time.
type Option func(*config)

// WithLogger attaches a *zap.Logger that administrative and error paths
// will log through. Passing nil is equivalent to not calling WithLogger.
// The hot path (Next/Publish/Get) never logs, so this never adds latency
// to a claim or publish.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetricsEnabled turns on the Prometheus collectors returned by
// RingBuffer.Collectors. Disabled by default so constructing a RingBuffer
// never has an observability dependency unless the caller opts in.
func WithMetricsEnabled(enabled bool) Option {
	return func(c *config) {
		c.metricsEnabled = enabled
	}
}

// WithID overrides the generated instance identifier used to label logs
// and metrics for this ring. Useful for tests and for processes that run
// many named rings side by side.
func WithID(id uuid.UUID) Option {
	return func(c *config) {
		c.id = id
	}
}
