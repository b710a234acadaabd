package foreman

import (
	"runtime"

	"github.com/rs/zerolog"
)

// Config holds global configuration read when worlds and executors are built.
var Config config = config{
	InitialEntityCapacity:    1024,
	InitialArchetypeCapacity: 128,
	Workers:                  runtime.GOMAXPROCS(0),
	logger:                   zerolog.Nop(),
}

type config struct {
	// InitialEntityCapacity sizes the entity directory up front.
	InitialEntityCapacity int

	// InitialArchetypeCapacity sizes each new archetype's columns up front.
	InitialArchetypeCapacity int

	// MaxEntities caps the entity directory; zero means unbounded.
	MaxEntities int

	// Workers bounds the parallel executor's pool and parallel query fan-out.
	Workers int

	logger zerolog.Logger
}

// SetLogger routes world and executor logging to the given logger. The
// default discards everything.
func (c *config) SetLogger(l zerolog.Logger) {
	c.logger = l
}

// Logger returns the configured logger.
func (c *config) Logger() zerolog.Logger {
	return c.logger
}
