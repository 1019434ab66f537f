package protocol_test

import (
	"math"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/rconn/protocol"
)

var _ = Describe("Sexp.Equal", func() {
	It("treats Str and SymName holding the same text as equal", func() {
		Expect(protocol.StrVal("x").Equal(protocol.SymNameVal("x"))).To(BeTrue())
	})

	It("treats two NaN doubles as equal", func() {
		a := protocol.ArrayDoubleVal([]protocol.FloatOrNA{protocol.Float64(math.NaN())})
		b := protocol.ArrayDoubleVal([]protocol.FloatOrNA{protocol.Float64(math.NaN())})
		Expect(a.Equal(b)).To(BeTrue())
	})

	It("distinguishes NA from NaN", func() {
		a := protocol.ArrayDoubleVal([]protocol.FloatOrNA{protocol.NAFloat64()})
		b := protocol.ArrayDoubleVal([]protocol.FloatOrNA{protocol.Float64(math.NaN())})
		Expect(a.Equal(b)).To(BeFalse())
	})

	It("is false for mismatched tags", func() {
		Expect(protocol.Null().Equal(protocol.StrVal(""))).To(BeFalse())
	})

	It("is false for arrays of differing length", func() {
		a := protocol.ArrayIntVal([]protocol.IntOrNA{protocol.Int32(1)})
		b := protocol.ArrayIntVal([]protocol.IntOrNA{protocol.Int32(1), protocol.Int32(2)})
		Expect(a.Equal(b)).To(BeFalse())
	})
})
