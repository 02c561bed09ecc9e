package bridge

import (
	"time"

	"github.com/danmuck/hostlink/internal/identity"
	"github.com/danmuck/hostlink/internal/logging"
	"github.com/danmuck/hostlink/internal/wire"
)

// Config defines bridge behavior and its collaborators.
type Config struct {
	// SafelyTime is the safe-timeout delay for requests that do not set their own.
	SafelyTime time.Duration
	IDs        identity.IDGenerator
	Log        logging.Sink
}

func DefaultConfig() Config {
	return Config{
		SafelyTime: wire.DefaultSafelyTime,
		IDs:        identity.UUIDGenerator{},
		Log:        logging.Default(),
	}
}

// WithDefaults fills unset fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.SafelyTime <= 0 {
		c.SafelyTime = def.SafelyTime
	}
	if c.IDs == nil {
		c.IDs = def.IDs
	}
	if c.Log == nil {
		c.Log = def.Log
	}
	return c
}
