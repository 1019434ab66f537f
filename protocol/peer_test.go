package protocol_test

import (
	"bytes"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/rconn/protocol"
)

var _ = Describe("EncodeHandshake / ReceiveHandshake", func() {
	It("round-trips a handshake written by one side and read by the other", func() {
		var buf bytes.Buffer
		Expect(protocol.EncodeHandshake(&buf)).To(Succeed())
		Expect(buf.Len()).To(Equal(32))
		Expect(protocol.ReceiveHandshake(&buf)).To(Succeed())
	})
})

var _ = Describe("EncodeReply / EncodeErrorReply / ReceiveReply", func() {
	It("round-trips a successful reply through the peer-side encoder", func() {
		var buf bytes.Buffer
		Expect(protocol.EncodeReply(&buf, protocol.StrVal("hi"))).To(Succeed())

		reply, err := protocol.ReceiveReply(&buf)
		Expect(err).To(Succeed())
		Expect(reply.Tag()).To(Equal(protocol.TagStr))
		Expect(reply.Str()).To(Equal("hi"))
	})

	It("round-trips an error reply through the peer-side encoder", func() {
		var buf bytes.Buffer
		Expect(protocol.EncodeErrorReply(&buf, 5, []byte("boom"))).To(Succeed())

		_, err := protocol.ReceiveReply(&buf)
		var serverErr *protocol.ServerError
		Expect(err).To(BeAssignableToTypeOf(serverErr))
	})
})

var _ = Describe("ReceiveRequest", func() {
	It("reads back a command word and body written by EncodeEval", func() {
		var buf bytes.Buffer
		Expect(protocol.EncodeEval(&buf, "1+1")).To(Succeed())

		cmd, body, err := protocol.ReceiveRequest(&buf)
		Expect(err).To(Succeed())
		Expect(cmd).To(Equal(protocol.CmdEval))
		Expect(len(body)).To(BeNumerically(">", 0))
	})

	It("distinguishes CMD_VOID_EVAL from CMD_EVAL", func() {
		var buf bytes.Buffer
		Expect(protocol.EncodeEvalVoid(&buf, "invisible(1)")).To(Succeed())

		cmd, _, err := protocol.ReceiveRequest(&buf)
		Expect(err).To(Succeed())
		Expect(cmd).To(Equal(protocol.CmdVoidEval))
	})
})
