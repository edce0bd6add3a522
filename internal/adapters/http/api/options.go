package api

import "github.com/okian/qbduel/pkg/logger"

type options struct {
	secureCookies bool
	logger        logger.Logger
}

// Option configures the API server.
type Option func(*options)

// WithSecureCookies marks the session cookie Secure.
func WithSecureCookies(secure bool) Option {
	return func(o *options) {
		o.secureCookies = secure
	}
}

// WithLogger sets the logger used by handlers.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
