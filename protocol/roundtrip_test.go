package protocol_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/rconn/protocol"
)

var _ = Describe("encode/decode round trip", func() {
	It("round trips a scalar string", func() {
		in := protocol.StrVal("hello")
		out, err := roundTrip(in)
		Expect(err).To(Succeed())
		Expect(out.Equal(in)).To(BeTrue())
	})

	It("round trips an ArrayInt with an NA element", func() {
		in := protocol.ArrayIntVal([]protocol.IntOrNA{
			protocol.Int32(1),
			protocol.NAInt32(),
			protocol.Int32(-7),
		})
		out, err := roundTrip(in)
		Expect(err).To(Succeed())
		Expect(out.Equal(in)).To(BeTrue())
	})

	It("round trips an ArrayDouble with an NA element", func() {
		in := protocol.ArrayDoubleVal([]protocol.FloatOrNA{
			protocol.Float64(3.5),
			protocol.NAFloat64(),
		})
		out, err := roundTrip(in)
		Expect(err).To(Succeed())
		Expect(out.Equal(in)).To(BeTrue())
	})

	It("round trips an ArrayBool including NA", func() {
		in := protocol.ArrayBoolVal([]protocol.BoolOrNA{
			protocol.Bool(true),
			protocol.Bool(false),
			protocol.NABool(),
		})
		out, err := roundTrip(in)
		Expect(err).To(Succeed())
		Expect(out.Equal(in)).To(BeTrue())
	})

	It("round trips an empty ArrayBool and pads its zero-length payload with three 0x01 bytes", func() {
		in := protocol.ArrayBoolVal(nil)

		item := extractValueItem("x", in)
		// item: DT_SEXP header(4), then inner type(1) length(3 LE) payload...
		Expect(item[4]).To(Equal(byte(36))) // XT_ARRAY_BOOL
		length := int(item[5]) | int(item[6])<<8 | int(item[7])<<16
		Expect(length).To(Equal(7)) // 4-byte count + three 0x01 pad bytes
		payload := item[8 : 8+length]
		Expect(payload[:4]).To(Equal([]byte{0, 0, 0, 0}))
		Expect(payload[4:]).To(Equal([]byte{0x01, 0x01, 0x01}))

		out, err := roundTrip(in)
		Expect(err).To(Succeed())
		Expect(out.Equal(in)).To(BeTrue())
	})

	It("round trips an empty ArrayStr element", func() {
		in := protocol.ArrayStrVal([]protocol.StrOrNA{protocol.Str("")})
		out, err := roundTrip(in)
		Expect(err).To(Succeed())
		Expect(out.Equal(in)).To(BeTrue())
	})

	It("round trips an ArrayStr with an NA element", func() {
		in := protocol.ArrayStrVal([]protocol.StrOrNA{
			protocol.Str("alpha"),
			protocol.NAStr(),
			protocol.Str("beta"),
		})
		out, err := roundTrip(in)
		Expect(err).To(Succeed())
		Expect(out.Equal(in)).To(BeTrue())
	})

	It("round trips a nested Vector", func() {
		in := protocol.VectorVal([]protocol.Sexp{
			protocol.StrVal("a"),
			protocol.ArrayIntVal([]protocol.IntOrNA{protocol.Int32(1), protocol.Int32(2)}),
		})
		out, err := roundTrip(in)
		Expect(err).To(Succeed())
		Expect(out.Equal(in)).To(BeTrue())
	})

	It("round trips a ListTag", func() {
		in := protocol.ListTagVal([]protocol.Pair{
			{Key: protocol.StrVal("a"), Value: protocol.ArrayIntVal([]protocol.IntOrNA{protocol.Int32(1)})},
			{Key: protocol.StrVal("b"), Value: protocol.StrVal("two")},
		})
		out, err := roundTrip(in)
		Expect(err).To(Succeed())
		Expect(out.Equal(in)).To(BeTrue())
	})

	It("round trips a HasAttr-wrapped vector (data frame shape)", func() {
		attrs := protocol.ListTagVal([]protocol.Pair{
			{Key: protocol.StrVal("names"), Value: protocol.ArrayStrVal([]protocol.StrOrNA{protocol.Str("x")})},
		})
		inner := protocol.VectorVal([]protocol.Sexp{
			protocol.ArrayIntVal([]protocol.IntOrNA{protocol.Int32(1), protocol.Int32(2)}),
		})
		in := protocol.HasAttrVal(attrs, inner)

		out, err := roundTrip(in)
		Expect(err).To(Succeed())
		Expect(out.Equal(in)).To(BeTrue())
	})

	It("round trips a data frame built by BuildDataFrame", func() {
		df, err := protocol.BuildDataFrame([]protocol.Column{
			{Name: "id", Tag: protocol.TagArrayInt, Values: []protocol.IntOrNA{protocol.Int32(1), protocol.Int32(2)}},
			{Name: "label", Tag: protocol.TagArrayStr, Values: []protocol.StrOrNA{protocol.Str("a"), protocol.Str("b")}},
		})
		Expect(err).To(Succeed())

		out, err := roundTrip(df)
		Expect(err).To(Succeed())
		Expect(out.Equal(df)).To(BeTrue())
		Expect(out.Tag()).To(Equal(protocol.TagHasAttr))
	})

	It("treats Str and SymName as equal after a round trip", func() {
		in := protocol.SymNameVal("expr")
		out, err := roundTrip(in)
		Expect(err).To(Succeed())
		Expect(out.Equal(in)).To(BeTrue())
		Expect(out.Str()).To(Equal("expr"))
	})
})
