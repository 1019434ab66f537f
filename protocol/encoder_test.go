package protocol_test

import (
	"bytes"
	"encoding/binary"
	"strings"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/rconn/protocol"
)

var _ = Describe("EncodeEval / EncodeEvalVoid", func() {
	It("writes a well-formed message envelope", func() {
		var buf bytes.Buffer
		Expect(protocol.EncodeEval(&buf, "1+1")).To(Succeed())

		b := buf.Bytes()
		Expect(len(b)).To(BeNumerically(">=", 16))

		cmd := binary.LittleEndian.Uint32(b[0:4])
		length := binary.LittleEndian.Uint32(b[4:8])
		offset := binary.LittleEndian.Uint32(b[8:12])
		lengthHi := binary.LittleEndian.Uint32(b[12:16])

		Expect(cmd).To(Equal(uint32(0x003)))
		Expect(offset).To(Equal(uint32(0)))
		Expect(lengthHi).To(Equal(uint32(0)))
		Expect(int(length)).To(Equal(len(b) - 16))
	})

	It("uses a distinct command word for CMD_VOID_EVAL", func() {
		var buf bytes.Buffer
		Expect(protocol.EncodeEvalVoid(&buf, "1+1")).To(Succeed())
		cmd := binary.LittleEndian.Uint32(buf.Bytes()[0:4])
		Expect(cmd).To(Equal(uint32(0x002)))
	})
})

var _ = Describe("EncodeSetVariable", func() {
	It("fails with ErrPayloadTooLarge for a payload beyond the 24-bit length form", func() {
		huge := protocol.ArrayStrVal([]protocol.StrOrNA{
			protocol.Str(strings.Repeat("a", 0x1000005)),
		})
		var buf bytes.Buffer
		err := protocol.EncodeSetVariable(&buf, "x", huge)
		Expect(err).To(MatchError(protocol.ErrPayloadTooLarge))
	})
})
