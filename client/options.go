package client

import (
	"crypto/tls"
	"time"

	"go.uber.org/zap"
)

const defaultEventBuffer = 256

type config struct {
	log            *zap.SugaredLogger
	requestTimeout time.Duration
	eventBuffer    int
	tlsConfig      *tls.Config
	readLimit      int64
}

type Option func(c *config)

func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		c.log = l.Sugar()
	}
}

// WithRequestTimeout sets the default timeout for Invoke when the caller's context has no earlier deadline.
// Defaults to ConnectionParameters.Timeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *config) {
		c.requestTimeout = d
	}
}

// WithEventBuffer sets how many received events may wait for the dispatcher before a warning is logged.
// The queue itself is unbounded and zero disables the warning.
func WithEventBuffer(n int) Option {
	return func(c *config) {
		c.eventBuffer = n
	}
}

// WithTLSConfig sets the TLS config used for wss:// connections.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(c *config) {
		c.tlsConfig = cfg
	}
}

// WithReadLimit sets the maximum size of a single incoming message.
func WithReadLimit(n int64) Option {
	return func(c *config) {
		c.readLimit = n
	}
}

func newConfig(params ConnectionParameters, opts []Option) *config {
	c := &config{
		log:            zap.NewNop().Sugar(),
		requestTimeout: params.Timeout,
		eventBuffer:    defaultEventBuffer,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.requestTimeout <= 0 {
		c.requestTimeout = params.Timeout
	}
	if c.eventBuffer < 0 {
		c.eventBuffer = 0
	}
	return c
}
