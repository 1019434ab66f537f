package transport

import (
	"context"
	"errors"
	"net"
	"sync"

	reuseport "github.com/kavu/go_reuseport"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/luma/rconn/protocol"
)

// FixtureServer is a minimal QAP1 test/dev server. It accepts clients,
// serving each connection on its own goroutine, speaks the handshake, and then answers every request —
// CMD_EVAL, CMD_SET_SEXP, and CMD_VOID_EVAL alike — with whatever canned
// Sexp or error was last configured via Respond/RespondErr. Every
// request gets exactly one reply; CMD_VOID_EVAL is distinguished only by
// the client discarding a successful body, not by the wire exchange.
//
// It exists to exercise client.Conn's wire behaviour without a real R
// process. QAP1 has one outstanding request per connection and no
// server-push channel, so a fixture only needs one canned reply at a
// time, replayed to whichever connections are open.
type FixtureServer struct {
	cancel     context.CancelFunc
	stopWaiter sync.WaitGroup

	listener net.Listener
	addr     string

	connMu      sync.Mutex
	activeConns map[net.Conn]struct{}

	replyMu sync.Mutex
	reply   protocol.Sexp
	errCode byte
	errTail []byte
	isErr   bool

	log *zap.Logger
}

// NewFixtureServer binds a listener on opts.Host:opts.Port (port 0 picks
// a free port) using go_reuseport.
func NewFixtureServer(opts Options) (*FixtureServer, error) {
	listener, err := reuseport.Listen("tcp", addr(opts))
	if err != nil {
		return nil, err
	}

	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	return &FixtureServer{
		listener:    listener,
		addr:        listener.Addr().String(),
		activeConns: make(map[net.Conn]struct{}),
		reply:       protocol.Null(),
		log:         log.Named("fixture"),
	}, nil
}

// Addr returns the address the fixture is listening on.
func (f *FixtureServer) Addr() string {
	return f.addr
}

// Respond configures the canned successful reply sent for every
// subsequent CMD_EVAL/CMD_VOID_EVAL/CMD_SET_SEXP request.
func (f *FixtureServer) Respond(s protocol.Sexp) {
	f.replyMu.Lock()
	defer f.replyMu.Unlock()
	f.reply = s
	f.isErr = false
}

// RespondErr configures a canned error reply.
func (f *FixtureServer) RespondErr(code byte, tail []byte) {
	f.replyMu.Lock()
	defer f.replyMu.Unlock()
	f.errCode = code
	f.errTail = tail
	f.isErr = true
}

// Start begins accepting connections in the background. It returns
// immediately; call Close to stop.
func (f *FixtureServer) Start(parentCtx context.Context) {
	ctx, cancel := context.WithCancel(parentCtx)
	f.cancel = cancel

	f.stopWaiter.Add(1)
	go func() {
		defer f.stopWaiter.Done()
		f.acceptLoop(ctx)
	}()
}

func (f *FixtureServer) acceptLoop(ctx context.Context) {
	go func() {
		<-ctx.Done()
		if err := f.listener.Close(); err != nil {
			f.log.Warn("fixture listener did not close cleanly", zap.Error(err))
		}
		if err := f.closeActiveConns(); err != nil {
			f.log.Warn("fixture connections did not close cleanly", zap.Error(err))
		}
	}()

	for {
		conn, err := f.listener.Accept()
		if err != nil {
			var netOpErr *net.OpError
			if errors.As(err, &netOpErr) {
				return
			}
			f.log.Warn("fixture accept failed", zap.Error(err))
			return
		}

		f.addConn(conn)

		f.stopWaiter.Add(1)
		go func() {
			defer f.stopWaiter.Done()
			defer f.removeConn(conn)
			f.serve(conn)
		}()
	}
}

func (f *FixtureServer) serve(conn net.Conn) {
	defer conn.Close()

	if err := protocol.EncodeHandshake(conn); err != nil {
		f.log.Warn("failed to write handshake", zap.Error(err))
		return
	}

	for {
		if _, _, err := protocol.ReceiveRequest(conn); err != nil {
			return
		}

		if err := f.writeCannedReply(conn); err != nil {
			f.log.Warn("failed to write reply", zap.Error(err))
			return
		}
	}
}

func (f *FixtureServer) writeCannedReply(conn net.Conn) error {
	f.replyMu.Lock()
	isErr, code, tail, reply := f.isErr, f.errCode, f.errTail, f.reply
	f.replyMu.Unlock()

	if isErr {
		return protocol.EncodeErrorReply(conn, code, tail)
	}
	return protocol.EncodeReply(conn, reply)
}

func (f *FixtureServer) addConn(conn net.Conn) {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	f.activeConns[conn] = struct{}{}
}

func (f *FixtureServer) removeConn(conn net.Conn) {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	delete(f.activeConns, conn)
}

func (f *FixtureServer) closeActiveConns() (err error) {
	f.connMu.Lock()
	defer f.connMu.Unlock()

	for conn := range f.activeConns {
		if cerr := conn.Close(); cerr != nil {
			err = multierr.Append(err, cerr)
		}
	}
	return err
}

// Close stops accepting new connections, closes any active ones, and
// waits for the accept and per-connection goroutines to exit.
func (f *FixtureServer) Close() error {
	if f.cancel != nil {
		f.cancel()
	}
	f.stopWaiter.Wait()
	return nil
}
