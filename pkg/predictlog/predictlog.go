// Package predictlog holds the common configuration of the prediction log
// stores. The implementations live in impl and register with the factory.
package predictlog

import "time"

type (
	Config struct {
		// entries older than this may be dropped by the store
		Validity time.Duration
	}
	Option func(*Config)
)

func WithValidity(d time.Duration) Option {
	return func(c *Config) {
		c.Validity = d
	}
}

func NewConfig(opts ...Option) *Config {
	ret := &Config{Validity: 14 * 24 * time.Hour}
	for _, o := range opts {
		o(ret)
	}
	return ret
}
