package transport

import (
	"context"
	"net"
	"strconv"
)

// Dial opens a TCP connection to an Rserve-compatible QAP1 server. It does
// not speak the handshake itself — callers hand the resulting net.Conn to
// protocol.ReceiveHandshake, mirroring the split between transport and
// wire codec used throughout this repository.
func Dial(ctx context.Context, opts Options) (net.Conn, error) {
	timeout := opts.DialTimeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}

	d := net.Dialer{Timeout: timeout}
	return d.DialContext(ctx, "tcp", addr(opts))
}

func addr(opts Options) string {
	return net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port))
}
