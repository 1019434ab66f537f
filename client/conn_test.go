package client_test

import (
	"context"
	"net"
	"strconv"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/luma/rconn/client"
	"github.com/luma/rconn/internal/cache"
	"github.com/luma/rconn/protocol"
	"github.com/luma/rconn/transport"
)

func startFixture() *transport.FixtureServer {
	srv, err := transport.NewFixtureServer(transport.Options{Host: "127.0.0.1", Port: 0})
	Expect(err).To(Succeed())
	srv.Start(context.Background())
	return srv
}

func fixtureAddr(srv *transport.FixtureServer) string {
	host, portStr, err := net.SplitHostPort(srv.Addr())
	Expect(err).To(Succeed())
	_, err = strconv.Atoi(portStr)
	Expect(err).To(Succeed())
	return net.JoinHostPort(host, portStr)
}

var _ = Describe("Conn", func() {
	It("evaluates an expression and decodes the reply", func() {
		srv := startFixture()
		defer srv.Close()
		srv.Respond(protocol.ArrayDoubleVal([]protocol.FloatOrNA{protocol.Float64(2)}))

		c := client.New(zap.NewNop())
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		Expect(c.Open(ctx, fixtureAddr(srv))).To(Succeed())
		defer c.Close()

		reply, err := c.Eval(ctx, "1+1")
		Expect(err).To(Succeed())
		Expect(reply.Tag()).To(Equal(protocol.TagArrayDouble))
		Expect(reply.ArrayDouble()[0].Value).To(Equal(2.0))
	})

	It("surfaces a ServerError from Eval", func() {
		srv := startFixture()
		defer srv.Close()
		srv.RespondErr(5, []byte("bad expr"))

		c := client.New(zap.NewNop())
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		Expect(c.Open(ctx, fixtureAddr(srv))).To(Succeed())
		defer c.Close()

		_, err := c.Eval(ctx, "stop()")
		var serverErr *protocol.ServerError
		Expect(err).To(BeAssignableToTypeOf(serverErr))
	})

	It("EvalVoid discards a successful body", func() {
		srv := startFixture()
		defer srv.Close()
		srv.Respond(protocol.Null())

		c := client.New(zap.NewNop())
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		Expect(c.Open(ctx, fixtureAddr(srv))).To(Succeed())
		defer c.Close()

		Expect(c.EvalVoid(ctx, "invisible(1)")).To(Succeed())
	})

	It("SetVariable encodes the given tag and value", func() {
		srv := startFixture()
		defer srv.Close()
		srv.Respond(protocol.Null())

		c := client.New(zap.NewNop())
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		Expect(c.Open(ctx, fixtureAddr(srv))).To(Succeed())
		defer c.Close()

		Expect(c.SetVariable(ctx, "x", protocol.TagArrayInt, int32(42))).To(Succeed())
	})

	It("fails a call once ctx is already cancelled", func() {
		srv := startFixture()
		defer srv.Close()

		c := client.New(zap.NewNop())
		openCtx, openCancel := context.WithTimeout(context.Background(), time.Second)
		defer openCancel()
		Expect(c.Open(openCtx, fixtureAddr(srv))).To(Succeed())
		defer c.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := c.Eval(ctx, "1+1")
		Expect(err).To(HaveOccurred())
	})

	Describe("WithCache", func() {
		It("stores and retrieves the last rendered result", func() {
			srv := startFixture()
			defer srv.Close()
			srv.Respond(protocol.StrVal("hi"))

			c := client.New(zap.NewNop(), client.WithCache(cache.New("", 0)))
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			Expect(c.Open(ctx, fixtureAddr(srv))).To(Succeed())
			defer c.Close()

			_, err := c.Eval(ctx, "'hi'")
			Expect(err).To(Succeed())

			v, ok := c.LastResult("'hi'")
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal(`"hi"`))
		})

		It("LastResult misses when no cache is attached", func() {
			c := client.New(zap.NewNop())
			_, ok := c.LastResult("anything")
			Expect(ok).To(BeFalse())
		})
	})

	Describe("Close", func() {
		It("is safe to call twice", func() {
			srv := startFixture()
			defer srv.Close()

			c := client.New(zap.NewNop())
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			Expect(c.Open(ctx, fixtureAddr(srv))).To(Succeed())
			Expect(c.Close()).To(Succeed())
			Expect(c.Close()).To(Succeed())
		})
	})
})
