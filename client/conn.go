package client

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/luma/rconn/internal/cache"
	"github.com/luma/rconn/protocol"
)

// Conn drives a single QAP1 connection: one handshake, then a
// synchronous request/reply loop per call. There is no request-ID
// multiplexing or update fan-in — QAP1 allows exactly one outstanding
// request per connection and the server never pushes unsolicited data,
// so there is nothing to fan in.
type Conn struct {
	conn net.Conn
	log  *zap.Logger

	mu     sync.Mutex
	closed bool
	cache  *cache.Cache
}

// Option configures a Conn at construction time.
type Option func(*Conn)

// WithCache attaches a result cache: every successful Eval stores its
// protocol.DebugJSON rendering keyed by the expression string.
func WithCache(c *cache.Cache) Option {
	return func(conn *Conn) {
		conn.cache = c
	}
}

// New constructs a Conn around log, applying any Options. Call Open
// before issuing any requests.
func New(log *zap.Logger, opts ...Option) *Conn {
	c := &Conn{log: log}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open dials addr (host:port) and performs the QAP1 handshake.
func (c *Conn) Open(ctx context.Context, addr string) error {
	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}

	if err := c.withDeadline(ctx, conn, func() error {
		return protocol.ReceiveHandshake(conn)
	}); err != nil {
		conn.Close()
		return err
	}

	c.conn = conn
	return nil
}

// Eval sends CMD_EVAL, blocks for exactly one reply, and returns the
// decoded value or a *protocol.ServerError.
func (c *Conn) Eval(ctx context.Context, expr string) (protocol.Sexp, error) {
	var reply protocol.Sexp
	err := c.withDeadline(ctx, c.conn, func() error {
		if err := protocol.EncodeEval(c.conn, expr); err != nil {
			return err
		}
		r, err := protocol.ReceiveReply(c.conn)
		if err != nil {
			return err
		}
		reply = r
		return nil
	})
	if err != nil {
		return protocol.Sexp{}, err
	}

	c.rememberResult(expr, reply)
	return reply, nil
}

// EvalVoid sends CMD_VOID_EVAL and discards a successful body.
func (c *Conn) EvalVoid(ctx context.Context, expr string) error {
	return c.withDeadline(ctx, c.conn, func() error {
		if err := protocol.EncodeEvalVoid(c.conn, expr); err != nil {
			return err
		}
		_, err := protocol.ReceiveReply(c.conn)
		return err
	})
}

// SetVariable encodes value under tag and sends CMD_SET_SEXP. tag
// selects which array shape value is wrapped into; value must match the
// Go type sexpFromTag expects for that tag (see sexpFromTag).
func (c *Conn) SetVariable(ctx context.Context, name string, tag protocol.SexpTag, value interface{}) error {
	sexp, err := sexpFromTag(tag, value)
	if err != nil {
		return err
	}

	return c.withDeadline(ctx, c.conn, func() error {
		if err := protocol.EncodeSetVariable(c.conn, name, sexp); err != nil {
			return err
		}
		_, err := protocol.ReceiveReply(c.conn)
		return err
	})
}

// Close closes the socket. If a result cache is attached it is flushed
// first; the flush error and the close error are joined so a caller
// sees both if both fail.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	var flushErr error
	if c.cache != nil {
		flushErr = c.cache.Backup()
	}

	closeErr := c.conn.Close()
	return multierr.Append(flushErr, closeErr)
}

// LastResult returns the cached protocol.DebugJSON rendering of expr's
// last successful Eval, if a cache is attached and holds an entry.
func (c *Conn) LastResult(expr string) (string, bool) {
	if c.cache == nil {
		return "", false
	}
	return c.cache.Get(expr)
}

func (c *Conn) rememberResult(expr string, s protocol.Sexp) {
	if c.cache == nil {
		return
	}
	rendered, err := protocol.DebugJSON(s)
	if err != nil {
		c.log.Warn("failed to render result for cache", zap.String("expr", expr), zap.Error(err))
		return
	}
	c.cache.Set(expr, rendered)
}

// withDeadline runs fn with the connection's deadline armed from ctx: a
// background goroutine races ctx.Done() against fn's completion, and on
// cancellation forces the outstanding read/write to fail by calling
// SetDeadline, since QAP1 has no cancellation frame and no
// resynchronisation path mid-message. After a cancellation this Conn
// must be closed, never reused.
func (c *Conn) withDeadline(ctx context.Context, conn net.Conn, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			_ = conn.SetDeadline(time.Now())
		case <-done:
		}
	}()

	err := fn()
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func sexpFromTag(tag protocol.SexpTag, value interface{}) (protocol.Sexp, error) {
	switch tag {
	case protocol.TagStr:
		v, ok := value.(string)
		if !ok {
			return protocol.Sexp{}, fmt.Errorf("client: TagStr requires a string, got %T", value)
		}
		return protocol.StrVal(v), nil

	case protocol.TagArrayStr:
		v, ok := value.(string)
		if !ok {
			return protocol.Sexp{}, fmt.Errorf("client: TagArrayStr requires a string, got %T", value)
		}
		return protocol.ArrayStrVal([]protocol.StrOrNA{protocol.Str(v)}), nil

	case protocol.TagArrayInt:
		v, ok := value.(int32)
		if !ok {
			return protocol.Sexp{}, fmt.Errorf("client: TagArrayInt requires an int32, got %T", value)
		}
		return protocol.ArrayIntVal([]protocol.IntOrNA{protocol.Int32(v)}), nil

	case protocol.TagArrayDouble:
		v, ok := value.(float64)
		if !ok {
			return protocol.Sexp{}, fmt.Errorf("client: TagArrayDouble requires a float64, got %T", value)
		}
		return protocol.ArrayDoubleVal([]protocol.FloatOrNA{protocol.Float64(v)}), nil

	case protocol.TagArrayBool:
		v, ok := value.(bool)
		if !ok {
			return protocol.Sexp{}, fmt.Errorf("client: TagArrayBool requires a bool, got %T", value)
		}
		return protocol.ArrayBoolVal([]protocol.BoolOrNA{protocol.Bool(v)}), nil

	default:
		return protocol.Sexp{}, fmt.Errorf("client: unsupported SetVariable tag %s", tag)
	}
}
