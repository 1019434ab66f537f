package transport

import (
	"time"

	"go.uber.org/zap"
)

// Options configures Dial and FixtureServer.
type Options struct {
	// Host to connect to (Dial) or listen on (FixtureServer).
	Host string

	// Port to connect to (Dial) or listen on (FixtureServer).
	Port int

	// DialTimeout bounds how long Dial waits for the TCP handshake. Zero
	// means DefaultDialTimeout.
	DialTimeout time.Duration

	Log *zap.Logger
}

// DefaultDialTimeout is used when Options.DialTimeout is zero.
const DefaultDialTimeout = 10 * time.Second
