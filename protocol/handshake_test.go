package protocol_test

import (
	"bytes"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/rconn/protocol"
)

var _ = Describe("ReceiveHandshake", func() {
	It("accepts a well-formed Rsrv banner", func() {
		b := make([]byte, 32)
		copy(b, []byte("Rsrv0103QAP1\r\n"))
		Expect(protocol.ReceiveHandshake(bytes.NewReader(b))).To(Succeed())
	})

	It("rejects a banner missing the Rsrv prefix", func() {
		b := make([]byte, 32)
		copy(b, []byte("Nope"))
		err := protocol.ReceiveHandshake(bytes.NewReader(b))
		Expect(err).To(MatchError(protocol.ErrBadHandshake))
	})

	It("maps a short read to ErrTransportClosed", func() {
		err := protocol.ReceiveHandshake(bytes.NewReader([]byte("Rsrv")))
		Expect(err).To(MatchError(protocol.ErrTransportClosed))
	})
})
