package internal

import "time"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config           *Config
	progressThrottle time.Duration
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithProgressThrottle overrides the minimum interval between SSE
// run.progress events. Zero keeps the default.
func WithProgressThrottle(d time.Duration) Option {
	return func(a *application) {
		a.progressThrottle = d
	}
}
