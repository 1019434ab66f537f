package protocol

import "fmt"

// SexpTag names a variant of the Sexp tagged union.
type SexpTag int

const (
	TagNull SexpTag = iota
	TagStr
	TagArrayStr
	TagArrayInt
	TagArrayDouble
	TagArrayBool
	TagVector
	TagListTag
	TagSymName
	TagClosure
	TagUnimplemented
	TagHasAttr
)

func (t SexpTag) String() string {
	switch t {
	case TagNull:
		return "Null"
	case TagStr:
		return "Str"
	case TagArrayStr:
		return "ArrayStr"
	case TagArrayInt:
		return "ArrayInt"
	case TagArrayDouble:
		return "ArrayDouble"
	case TagArrayBool:
		return "ArrayBool"
	case TagVector:
		return "Vector"
	case TagListTag:
		return "ListTag"
	case TagSymName:
		return "SymName"
	case TagClosure:
		return "Closure"
	case TagUnimplemented:
		return "Unimplemented"
	case TagHasAttr:
		return "HasAttr"
	default:
		return fmt.Sprintf("SexpTag(%d)", int(t))
	}
}

// IntOrNA is one element of an ArrayInt. Exactly one of IsNA or Value is
// meaningful.
type IntOrNA struct {
	Value int32
	IsNA  bool
}

// NAInt32 constructs the NA sentinel for an int array element.
func NAInt32() IntOrNA { return IntOrNA{IsNA: true} }

// Int32 constructs a present int array element.
func Int32(v int32) IntOrNA { return IntOrNA{Value: v} }

// FloatOrNA is one element of an ArrayDouble. NaN/+Inf/-Inf are
// distinct from IsNA and are carried directly in Value.
type FloatOrNA struct {
	Value float64
	IsNA  bool
}

// NAFloat64 constructs the NA sentinel for a double array element.
func NAFloat64() FloatOrNA { return FloatOrNA{IsNA: true} }

// Float64 constructs a present double array element.
func Float64(v float64) FloatOrNA { return FloatOrNA{Value: v} }

// BoolOrNA is one element of an ArrayBool.
type BoolOrNA struct {
	Value bool
	IsNA  bool
}

// NABool constructs the NA sentinel for a bool array element.
func NABool() BoolOrNA { return BoolOrNA{IsNA: true} }

// Bool constructs a present bool array element.
func Bool(v bool) BoolOrNA { return BoolOrNA{Value: v} }

// StrOrNA is one element of an ArrayStr.
type StrOrNA struct {
	Value string
	IsNA  bool
}

// NAStr constructs the NA sentinel for a string array element.
func NAStr() StrOrNA { return StrOrNA{IsNA: true} }

// Str constructs a present string array element.
func Str(v string) StrOrNA { return StrOrNA{Value: v} }

// Pair is one (key, value) entry of a ListTag, stored in the order a
// caller thinks of it (key, value); decoder.go and encoder.go handle
// the wire's value-then-key ordering internally.
type Pair struct {
	Key   Sexp
	Value Sexp
}

// Column is one column of a data frame (see BuildDataFrame).
type Column struct {
	Name   string
	Tag    SexpTag
	Values interface{}
}

// Sexp is a typed R value tree, as decoded from or destined for the
// wire. The zero Sexp is a Null.
type Sexp struct {
	tag SexpTag

	str    string
	arrStr []StrOrNA
	arrInt []IntOrNA
	arrDbl []FloatOrNA
	arrBl  []BoolOrNA
	vec    []Sexp
	list   []Pair
	closur []byte

	// Unimplemented payload.
	rawType byte
	rawData []byte

	// HasAttr payload.
	attr  *Sexp
	inner *Sexp
}

// Tag reports which variant this Sexp holds.
func (s Sexp) Tag() SexpTag { return s.tag }

func Null() Sexp { return Sexp{tag: TagNull} }

func StrVal(s string) Sexp { return Sexp{tag: TagStr, str: s} }

func SymNameVal(s string) Sexp { return Sexp{tag: TagSymName, str: s} }

func ArrayStrVal(vs []StrOrNA) Sexp { return Sexp{tag: TagArrayStr, arrStr: vs} }

func ArrayIntVal(vs []IntOrNA) Sexp { return Sexp{tag: TagArrayInt, arrInt: vs} }

func ArrayDoubleVal(vs []FloatOrNA) Sexp { return Sexp{tag: TagArrayDouble, arrDbl: vs} }

func ArrayBoolVal(vs []BoolOrNA) Sexp { return Sexp{tag: TagArrayBool, arrBl: vs} }

func VectorVal(vs []Sexp) Sexp { return Sexp{tag: TagVector, vec: vs} }

func ListTagVal(pairs []Pair) Sexp { return Sexp{tag: TagListTag, list: pairs} }

func ClosureVal(b []byte) Sexp { return Sexp{tag: TagClosure, closur: b} }

func UnimplementedVal(rawType byte, data []byte) Sexp {
	return Sexp{tag: TagUnimplemented, rawType: rawType, rawData: data}
}

func HasAttrVal(attr, inner Sexp) Sexp {
	return Sexp{tag: TagHasAttr, attr: &attr, inner: &inner}
}

// Str returns the string payload of a Str or SymName Sexp.
func (s Sexp) Str() string { return s.str }

// ArrayStr returns the element sequence of an ArrayStr Sexp.
func (s Sexp) ArrayStr() []StrOrNA { return s.arrStr }

// ArrayInt returns the element sequence of an ArrayInt Sexp.
func (s Sexp) ArrayInt() []IntOrNA { return s.arrInt }

// ArrayDouble returns the element sequence of an ArrayDouble Sexp.
func (s Sexp) ArrayDouble() []FloatOrNA { return s.arrDbl }

// ArrayBool returns the element sequence of an ArrayBool Sexp.
func (s Sexp) ArrayBool() []BoolOrNA { return s.arrBl }

// Vector returns the child sequence of a Vector Sexp.
func (s Sexp) Vector() []Sexp { return s.vec }

// ListTagPairs returns the (key, value) pairs of a ListTag Sexp.
func (s Sexp) ListTagPairs() []Pair { return s.list }

// Closure returns the opaque bytes of a Closure Sexp.
func (s Sexp) Closure() []byte { return s.closur }

// Unimplemented returns the raw type byte and bytes of an Unimplemented Sexp.
func (s Sexp) Unimplemented() (byte, []byte) { return s.rawType, s.rawData }

// Attr and Inner decompose a HasAttr Sexp.
func (s Sexp) Attr() Sexp  { return *s.attr }
func (s Sexp) Inner() Sexp { return *s.inner }

// Equal compares two Sexp trees for structural equality, treating NA
// consistently and Str/SymName as interchangeable, per the round-trip
// normalisation rule that a symbol name and a plain string compare equal.
func (s Sexp) Equal(o Sexp) bool {
	sTag, oTag := normalizeTag(s.tag), normalizeTag(o.tag)
	if sTag != oTag {
		return false
	}

	switch sTag {
	case TagNull:
		return true
	case TagStr:
		return s.str == o.str
	case TagArrayStr:
		return equalStrArrays(s.arrStr, o.arrStr)
	case TagArrayInt:
		return equalIntArrays(s.arrInt, o.arrInt)
	case TagArrayDouble:
		return equalDoubleArrays(s.arrDbl, o.arrDbl)
	case TagArrayBool:
		return equalBoolArrays(s.arrBl, o.arrBl)
	case TagVector:
		if len(s.vec) != len(o.vec) {
			return false
		}
		for i := range s.vec {
			if !s.vec[i].Equal(o.vec[i]) {
				return false
			}
		}
		return true
	case TagListTag:
		if len(s.list) != len(o.list) {
			return false
		}
		for i := range s.list {
			if !s.list[i].Key.Equal(o.list[i].Key) || !s.list[i].Value.Equal(o.list[i].Value) {
				return false
			}
		}
		return true
	case TagClosure:
		return string(s.closur) == string(o.closur)
	case TagUnimplemented:
		return s.rawType == o.rawType && string(s.rawData) == string(o.rawData)
	case TagHasAttr:
		return s.attr.Equal(*o.attr) && s.inner.Equal(*o.inner)
	default:
		return false
	}
}

func normalizeTag(t SexpTag) SexpTag {
	if t == TagSymName {
		return TagStr
	}
	return t
}

func equalStrArrays(a, b []StrOrNA) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].IsNA != b[i].IsNA || (!a[i].IsNA && a[i].Value != b[i].Value) {
			return false
		}
	}
	return true
}

func equalIntArrays(a, b []IntOrNA) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].IsNA != b[i].IsNA || (!a[i].IsNA && a[i].Value != b[i].Value) {
			return false
		}
	}
	return true
}

func equalDoubleArrays(a, b []FloatOrNA) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].IsNA != b[i].IsNA {
			return false
		}
		if a[i].IsNA {
			continue
		}
		av, bv := a[i].Value, b[i].Value
		if av != av && bv != bv { // both NaN
			continue
		}
		if av != bv {
			return false
		}
	}
	return true
}

func equalBoolArrays(a, b []BoolOrNA) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].IsNA != b[i].IsNA || (!a[i].IsNA && a[i].Value != b[i].Value) {
			return false
		}
	}
	return true
}
