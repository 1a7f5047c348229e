package eavesdrop

import "go.uber.org/zap"

// config holds registry construction settings.
type config struct {
	logger       *zap.Logger
	panicHandler PanicHandler
}

func defaultConfig() config {
	return config{logger: zap.NewNop()}
}

// Option configures a Registry.
type Option func(*config)

// WithLogger sets the logger used for registration and dispatch traces.
// The registry logs at debug level only; the default is a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// PanicHandler is called when a callback panics, before the panic is
// returned from Publish as an error.
type PanicHandler func(evt Event, value any, stack []byte)

// WithPanicHandler installs a hook invoked whenever a callback panics.
func WithPanicHandler(h PanicHandler) Option {
	return func(c *config) {
		c.panicHandler = h
	}
}
