package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"strconv"
)

// EncodeEval writes a CMD_EVAL message evaluating expr.
func EncodeEval(w frameWriter, expr string) error {
	return encodeMessage(w, cmdEval, stringItem(expr))
}

// EncodeEvalVoid writes a CMD_VOID_EVAL message evaluating expr and
// discarding the result.
func EncodeEvalVoid(w frameWriter, expr string) error {
	return encodeMessage(w, cmdVoidEval, stringItem(expr))
}

// EncodeSetVariable writes a CMD_SET_SEXP message assigning value to
// the R variable named name.
func EncodeSetVariable(w frameWriter, name string, value Sexp) error {
	valueItem, err := encodeSexp(value)
	if err != nil {
		return err
	}

	body := append(stringItem(name), valueItem...)
	return encodeMessage(w, cmdSetSEXP, body)
}

// frameWriter is the minimal transport surface the encoder needs.
type frameWriter interface {
	Write(p []byte) (int, error)
}

// EncodeHandshake writes the fixed 32-byte QAP1 handshake banner. It is
// the peer-side counterpart of ReceiveHandshake, used by
// transport.FixtureServer to speak the server half of the protocol.
func EncodeHandshake(w frameWriter) error {
	buf := make([]byte, 32)
	copy(buf, handshakeBanner[:])
	return writeAll(w, buf)
}

// EncodeReply writes a successful QAP1 reply carrying s as its single
// body item. It is the peer-side counterpart of ReceiveReply.
func EncodeReply(w frameWriter, s Sexp) error {
	item, err := encodeSexp(s)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := writeU32LE(&buf, respOK); err != nil {
		return err
	}
	if err := writeU32LE(&buf, uint32(len(item))); err != nil { // length_lo
		return err
	}
	if err := writeU32LE(&buf, 0); err != nil { // offset
		return err
	}
	if err := writeU32LE(&buf, 0); err != nil { // length_hi
		return err
	}
	buf.Write(item)

	return writeAll(w, buf.Bytes())
}

// EncodeErrorReply writes a QAP1 error reply: the ack word with code in
// its top byte, followed by tail. It is the peer-side counterpart of
// ReceiveReply's error path.
func EncodeErrorReply(w frameWriter, code byte, tail []byte) error {
	ack := []byte{byte(respErr & 0xff), byte((respErr >> 8) & 0xff), byte((respErr >> 16) & 0xff), code}
	if err := writeAll(w, ack); err != nil {
		return err
	}
	return writeAll(w, tail)
}

func encodeMessage(w frameWriter, cmd uint32, body []byte) error {
	var buf bytes.Buffer
	if err := writeU32LE(&buf, cmd); err != nil {
		return err
	}
	if err := writeU32LE(&buf, uint32(len(body))); err != nil {
		return err
	}
	if err := writeU32LE(&buf, 0); err != nil { // offset
		return err
	}
	if err := writeU32LE(&buf, 0); err != nil { // length_hi
		return err
	}
	buf.Write(body)

	return writeAll(w, buf.Bytes())
}

// stringItem builds a DT_STRING item: a NUL-terminated string with no
// 0x01 padding.
func stringItem(s string) []byte {
	payload := append([]byte(s), 0x00)

	var buf bytes.Buffer
	// stringItem never exceeds the 24-bit length form in any realistic
	// expression/variable name; ignore the (impossible in practice) error.
	_ = writeItemHeader(&buf, dtString, uint32(len(payload)))
	buf.Write(payload)
	return buf.Bytes()
}

// encodeSexp serialises v as a full DT_SEXP item: outer header, inner
// header (carrying XT_HAS_ATTR when v is HasAttr), and payload.
func encodeSexp(v Sexp) ([]byte, error) {
	if v.Tag() == TagHasAttr {
		attrItem, err := encodeSexp(v.Attr())
		if err != nil {
			return nil, err
		}
		typ, payload, err := encodePayload(v.Inner())
		if err != nil {
			return nil, err
		}

		combined := make([]byte, 0, len(attrItem)+len(payload))
		combined = append(combined, attrItem...)
		combined = append(combined, payload...)

		return wrapItem(typ|xtHasAttr, combined)
	}

	typ, payload, err := encodePayload(v)
	if err != nil {
		return nil, err
	}
	return wrapItem(typ, payload)
}

func wrapItem(typ byte, payload []byte) ([]byte, error) {
	if len(payload) > 0xFFFFFF {
		return nil, ErrPayloadTooLarge
	}

	var buf bytes.Buffer
	if err := writeItemHeader(&buf, dtSEXP, uint32(4+len(payload))); err != nil {
		return nil, err
	}
	if err := writeItemHeader(&buf, typ, uint32(len(payload))); err != nil {
		return nil, err
	}
	buf.Write(payload)
	return buf.Bytes(), nil
}

func encodePayload(v Sexp) (byte, []byte, error) {
	switch v.Tag() {
	case TagNull:
		return xtNull, nil, nil

	case TagStr, TagSymName:
		// The source maps both Str and SymName to symname on send.
		return xtSymname, append([]byte(v.Str()), 0x00), nil

	case TagArrayStr:
		return xtArrayStr, encodeArrayStrPayload(v.ArrayStr()), nil

	case TagArrayInt:
		return xtArrayInt, encodeArrayIntPayload(v.ArrayInt()), nil

	case TagArrayDouble:
		return xtArrayDbl, encodeArrayDoublePayload(v.ArrayDouble()), nil

	case TagArrayBool:
		return xtArrayBool, encodeArrayBoolPayload(v.ArrayBool()), nil

	case TagVector:
		payload, err := encodeVectorPayload(v.Vector())
		return xtVector, payload, err

	case TagListTag:
		payload, err := encodeListTagPayload(v.ListTagPairs())
		return xtListTag, payload, err

	case TagClosure:
		return xtClos, v.Closure(), nil

	case TagUnimplemented:
		rawType, rawData := v.Unimplemented()
		return rawType, rawData, nil

	default:
		return 0, nil, ErrUnsupportedType
	}
}

func encodeVectorPayload(items []Sexp) ([]byte, error) {
	var buf bytes.Buffer
	for _, item := range items {
		b, err := encodeSexp(item)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	return buf.Bytes(), nil
}

func encodeListTagPayload(pairs []Pair) ([]byte, error) {
	var buf bytes.Buffer
	for _, p := range pairs {
		// On the wire, value precedes key.
		vb, err := encodeSexp(p.Value)
		if err != nil {
			return nil, err
		}
		kb, err := encodeSexp(p.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
		buf.Write(kb)
	}
	return buf.Bytes(), nil
}

func encodeArrayStrPayload(vs []StrOrNA) []byte {
	var buf bytes.Buffer
	for _, v := range vs {
		if v.IsNA {
			buf.WriteByte(naStrByte)
		} else {
			buf.WriteString(v.Value)
		}
		buf.WriteByte(0x00)
	}
	for buf.Len()%4 != 0 {
		buf.WriteByte(strPad)
	}
	return buf.Bytes()
}

func encodeArrayIntPayload(vs []IntOrNA) []byte {
	var buf bytes.Buffer
	for _, v := range vs {
		val := intMin
		if !v.IsNA {
			val = v.Value
		}
		// writeI32LE never fails writing into a bytes.Buffer.
		_ = writeI32LE(&buf, val)
	}
	return buf.Bytes()
}

// naDoubleBits is the fixed bit pattern for R's NA double: exponent
// all-ones, sign 0, mantissa naDoubleMantissa.
var naDoubleBits = uint64(0x7FF)<<52 | naDoubleMantissa

func encodeArrayDoublePayload(vs []FloatOrNA) []byte {
	buf := make([]byte, len(vs)*8)
	for i, v := range vs {
		bits := naDoubleBits
		if !v.IsNA {
			// Plain little-endian on send; only receive reverses.
			bits = math.Float64bits(v.Value)
		}
		binary.LittleEndian.PutUint64(buf[i*8:i*8+8], bits)
	}
	return buf
}

func encodeArrayBoolPayload(vs []BoolOrNA) []byte {
	var buf bytes.Buffer
	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(vs)))
	buf.Write(countBuf[:])

	if len(vs) == 0 {
		// The documented N=0 boundary case pads with three trailing 0x01
		// bytes after the count word even though the bare count is
		// already 4-byte aligned; reproduced literally rather than
		// optimised away.
		buf.Write([]byte{strPad, strPad, strPad})
		return buf.Bytes()
	}

	for _, v := range vs {
		switch {
		case v.IsNA:
			buf.WriteByte(naBoolByte)
		case v.Value:
			buf.WriteByte(1)
		default:
			buf.WriteByte(0)
		}
	}

	for buf.Len()%4 != 0 {
		buf.WriteByte(strPad)
	}
	return buf.Bytes()
}

// Int64OrNA is one element of a to-be-promoted integer sequence; wider
// than IntOrNA because integer promotion must inspect
// values beyond the 32-bit int range before deciding a wire tag.
type Int64OrNA struct {
	Value int64
	IsNA  bool
}

// NAInt64 constructs the NA sentinel for a promotable integer element.
func NAInt64() Int64OrNA { return Int64OrNA{IsNA: true} }

// Int64 constructs a present promotable integer element.
func Int64(v int64) Int64OrNA { return Int64OrNA{Value: v} }

// PromoteIntArray classifies vs into the least-capable of ArrayInt,
// ArrayDouble, or ArrayStr that can represent every element, per
// the Int < Double < Str lattice, and builds the
// corresponding Sexp.
func PromoteIntArray(vs []Int64OrNA) Sexp {
	fitsInt32 := true
	fitsDouble := true

	for _, v := range vs {
		if v.IsNA {
			continue
		}
		if v.Value <= int64(intMin) || v.Value > int64(1<<31-1) {
			fitsInt32 = false
		}
		if v.Value < -(1<<53) || v.Value > (1<<53) {
			fitsDouble = false
		}
	}

	if fitsInt32 {
		out := make([]IntOrNA, len(vs))
		for i, v := range vs {
			if v.IsNA {
				out[i] = NAInt32()
			} else {
				out[i] = Int32(int32(v.Value))
			}
		}
		return ArrayIntVal(out)
	}

	if fitsDouble {
		out := make([]FloatOrNA, len(vs))
		for i, v := range vs {
			if v.IsNA {
				out[i] = NAFloat64()
			} else {
				out[i] = Float64(float64(v.Value))
			}
		}
		return ArrayDoubleVal(out)
	}

	out := make([]StrOrNA, len(vs))
	for i, v := range vs {
		if v.IsNA {
			out[i] = Str("NA")
		} else {
			out[i] = Str(strconv.FormatInt(v.Value, 10))
		}
	}
	return ArrayStrVal(out)
}

// BuildDataFrame assembles a data frame Sexp from ordered columns, per
// HasAttr(attrs, Vector(values)) where attrs is a
// three-entry ListTag of names/row.names/class. Column length equality
// is assumed but unchecked.
func BuildDataFrame(columns []Column) (Sexp, error) {
	if len(columns) == 0 {
		return Sexp{}, errors.New("qap1: data frame requires at least one column")
	}

	n, err := columnLen(columns[0])
	if err != nil {
		return Sexp{}, err
	}

	colNames := make([]StrOrNA, len(columns))
	colValues := make([]Sexp, len(columns))
	for i, c := range columns {
		colNames[i] = Str(c.Name)

		s, err := columnSexp(c)
		if err != nil {
			return Sexp{}, err
		}
		colValues[i] = s
	}

	rowNames := make([]IntOrNA, n)
	for i := range rowNames {
		rowNames[i] = Int32(int32(i + 1))
	}

	attrs := ListTagVal([]Pair{
		{Key: StrVal("names"), Value: ArrayStrVal(colNames)},
		{Key: StrVal("row.names"), Value: ArrayIntVal(rowNames)},
		{Key: StrVal("class"), Value: ArrayStrVal([]StrOrNA{Str("data.frame")})},
	})

	return HasAttrVal(attrs, VectorVal(colValues)), nil
}

func columnLen(c Column) (int, error) {
	switch c.Tag {
	case TagArrayStr:
		vs, ok := c.Values.([]StrOrNA)
		if !ok {
			return 0, errUnexpectedColumnType(c)
		}
		return len(vs), nil
	case TagArrayInt:
		vs, ok := c.Values.([]IntOrNA)
		if !ok {
			return 0, errUnexpectedColumnType(c)
		}
		return len(vs), nil
	case TagArrayDouble:
		vs, ok := c.Values.([]FloatOrNA)
		if !ok {
			return 0, errUnexpectedColumnType(c)
		}
		return len(vs), nil
	case TagArrayBool:
		vs, ok := c.Values.([]BoolOrNA)
		if !ok {
			return 0, errUnexpectedColumnType(c)
		}
		return len(vs), nil
	default:
		return 0, errUnexpectedColumnType(c)
	}
}

func columnSexp(c Column) (Sexp, error) {
	switch c.Tag {
	case TagArrayStr:
		vs, ok := c.Values.([]StrOrNA)
		if !ok {
			return Sexp{}, errUnexpectedColumnType(c)
		}
		return ArrayStrVal(vs), nil
	case TagArrayInt:
		vs, ok := c.Values.([]IntOrNA)
		if !ok {
			return Sexp{}, errUnexpectedColumnType(c)
		}
		return ArrayIntVal(vs), nil
	case TagArrayDouble:
		vs, ok := c.Values.([]FloatOrNA)
		if !ok {
			return Sexp{}, errUnexpectedColumnType(c)
		}
		return ArrayDoubleVal(vs), nil
	case TagArrayBool:
		vs, ok := c.Values.([]BoolOrNA)
		if !ok {
			return Sexp{}, errUnexpectedColumnType(c)
		}
		return ArrayBoolVal(vs), nil
	default:
		return Sexp{}, errUnexpectedColumnType(c)
	}
}

func errUnexpectedColumnType(c Column) error {
	return errors.New("qap1: column " + c.Name + " has a Values type that does not match its Tag")
}
