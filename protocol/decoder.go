package protocol

import (
	"bytes"
	"encoding/binary"
	"math"
)

// ReceiveHandshake reads the fixed 32-byte QAP1 handshake and asserts
// its "Rsrv" banner. The remaining 28 bytes (version, protocol,
// extras) are ignored.
func ReceiveHandshake(r frameReader) error {
	b, err := readExact(r, 32)
	if err != nil {
		return err
	}

	if !bytes.Equal(b[:4], handshakeBanner[:]) {
		return ErrBadHandshake
	}

	return nil
}

// ReceiveRequest reads one client request envelope and returns its
// command word and raw (still-encoded) body, without decoding the body's
// items. It is the peer-side counterpart of EncodeEval/EncodeEvalVoid/
// EncodeSetVariable, used by transport.FixtureServer, which only needs
// to know which command was sent, not the argument SEXPs it carries.
func ReceiveRequest(r frameReader) (cmd uint32, body []byte, err error) {
	hdr, err := readExact(r, 16)
	if err != nil {
		return 0, nil, err
	}

	cmd = binary.LittleEndian.Uint32(hdr[0:4])
	lengthLo := binary.LittleEndian.Uint32(hdr[4:8])
	lengthHi := binary.LittleEndian.Uint32(hdr[12:16])

	// Reproduced verbatim; the shift-by-31 combining length_lo/length_hi
	// does not match the documented 32-bit length form, but is not ours to "fix".
	bodyLen := uint64(lengthLo) + uint64(lengthHi)<<31

	body, err = readExact(r, int(bodyLen))
	if err != nil {
		return 0, nil, err
	}
	return cmd, body, nil
}

// ReceiveReply reads one reply: the 4-byte ack, then either the 12-byte
// secondary header and a decoded body, or the server's error code and
// its drained trailing bytes.
func ReceiveReply(r frameReader) (Sexp, error) {
	ack, err := readExact(r, 4)
	if err != nil {
		return Sexp{}, err
	}

	if binary.LittleEndian.Uint32(ack) != respOK {
		code := ack[3]
		tail := drainAvailable(r)
		return Sexp{}, &ServerError{Kind: errorKindForCode(code), Code: code, Tail: tail}
	}

	hdr, err := readExact(r, 12)
	if err != nil {
		return Sexp{}, err
	}

	lengthLo := binary.LittleEndian.Uint32(hdr[0:4])
	lengthHi := binary.LittleEndian.Uint32(hdr[8:12])

	// Reproduced verbatim; the shift-by-31 combining length_lo/length_hi
	// does not match the documented 32-bit length form, but is not ours to "fix".
	bodyLen := uint64(lengthLo) + uint64(lengthHi)<<31

	body := &limitedReader{r: r, remaining: bodyLen}

	var items []Sexp
	for body.remaining > 0 {
		item, err := decodeTopLevelItem(body)
		if err != nil {
			return Sexp{}, err
		}
		items = append(items, item)
	}

	if len(items) == 1 {
		return items[0], nil
	}
	return VectorVal(items), nil
}

// limitedReader tracks how many bytes of the enclosing item/body remain,
// so callers know when to stop without depending on hitting EOF.
type limitedReader struct {
	r         frameReader
	remaining uint64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if uint64(len(p)) > l.remaining {
		p = p[:l.remaining]
	}
	n, err := l.r.Read(p)
	l.remaining -= uint64(n)
	return n, err
}

// decodeTopLevelItem decodes one outer-header-prefixed item: a DT_SEXP
// wrapping a full SEXP, or (defensively) any other DT_* tag consumed
// opaquely.
func decodeTopLevelItem(r *limitedReader) (Sexp, error) {
	outer, err := readItemHeader(r)
	if err != nil {
		return Sexp{}, err
	}

	if outer.typ != dtSEXP {
		data, err := readExact(r, int(outer.length))
		if err != nil {
			return Sexp{}, err
		}
		return UnimplementedVal(outer.typ, data), nil
	}

	return decodeSexp(r)
}

// decodeSexp decodes the inner SEXP header (type byte plus 24-bit
// length) and its payload, honouring XT_HAS_ATTR and XT_LARGE per
// the standard flag processing order: attributes first, then large-length.
func decodeSexp(r *limitedReader) (Sexp, error) {
	inner, err := readItemHeader(r)
	if err != nil {
		return Sexp{}, err
	}

	typ := inner.typ
	length := uint64(inner.length)

	var attr *Sexp
	if typ&xtHasAttr != 0 {
		before := r.remaining
		attrItem, err := decodeTopLevelItem(r)
		if err != nil {
			return Sexp{}, err
		}
		attr = &attrItem

		consumedByAttr := before - r.remaining
		if consumedByAttr > length {
			return Sexp{}, ErrProtocolDesync
		}
		length -= consumedByAttr
		typ &^= xtHasAttr
	}

	if typ&xtLarge != 0 {
		extra, err := readU32LE(r)
		if err != nil {
			return Sexp{}, err
		}
		// Reproduced verbatim; the shift-by-23 for the large-length extension
		// looks like it should be 24, but is not ours to "fix".
		length = length | (uint64(extra) << 23)
		typ &^= xtLarge
	}

	baseType := typ & xtTypeMask

	before := r.remaining
	value, err := decodePayload(r, baseType, length)
	if err != nil {
		return Sexp{}, err
	}
	if before-r.remaining != length {
		return Sexp{}, ErrProtocolDesync
	}

	if attr != nil {
		return HasAttrVal(*attr, value), nil
	}
	return value, nil
}

func decodePayload(r *limitedReader, typ byte, length uint64) (Sexp, error) {
	switch typ {
	case xtNull:
		if length != 0 {
			return Sexp{}, ErrProtocolDesync
		}
		return Null(), nil

	case xtStr, xtSymname:
		arr, err := decodeStrArrayPayload(r, length)
		if err != nil {
			return Sexp{}, err
		}
		s := ""
		if len(arr) > 0 && !arr[0].IsNA {
			s = arr[0].Value
		}
		// XT_STR and XT_SYMNAME both decode as Str.
		return StrVal(s), nil

	case xtArrayStr:
		arr, err := decodeStrArrayPayload(r, length)
		if err != nil {
			return Sexp{}, err
		}
		return ArrayStrVal(arr), nil

	case xtArrayInt:
		return decodeArrayInt(r, length)

	case xtArrayDbl:
		return decodeArrayDouble(r, length)

	case xtArrayBool:
		return decodeArrayBool(r, length)

	case xtVector, xtVectorExp, xtListNoTag, xtLangNoTag:
		items, err := decodeItemSequence(r, length)
		if err != nil {
			return Sexp{}, err
		}
		return VectorVal(items), nil

	case xtListTag, xtLangTag:
		pairs, err := decodePairSequence(r, length)
		if err != nil {
			return Sexp{}, err
		}
		return ListTagVal(pairs), nil

	case xtClos:
		data, err := readExact(r, int(length))
		if err != nil {
			return Sexp{}, err
		}
		return ClosureVal(data), nil

	default:
		data, err := readExact(r, int(length))
		if err != nil {
			return Sexp{}, err
		}
		return UnimplementedVal(typ, data), nil
	}
}

func decodeStrArrayPayload(r *limitedReader, length uint64) ([]StrOrNA, error) {
	data, err := readExact(r, int(length))
	if err != nil {
		return nil, err
	}

	// Strip trailing 0x01 alignment padding.
	end := len(data)
	for end > 0 && data[end-1] == strPad {
		end--
	}
	data = data[:end]

	if len(data) == 0 {
		return nil, nil
	}

	tokens := bytes.Split(data, []byte{0x00})
	// A trailing NUL produces a final empty token; drop it.
	if len(tokens) > 0 && len(tokens[len(tokens)-1]) == 0 {
		tokens = tokens[:len(tokens)-1]
	}

	out := make([]StrOrNA, 0, len(tokens))
	for _, tok := range tokens {
		// Strip any leading 0x01 padding bytes within a token.
		i := 0
		for i < len(tok) && tok[i] == strPad {
			i++
		}
		tok = tok[i:]

		if len(tok) == 1 && tok[0] == naStrByte {
			out = append(out, NAStr())
			continue
		}
		out = append(out, Str(string(tok)))
	}
	return out, nil
}

func decodeArrayInt(r *limitedReader, length uint64) (Sexp, error) {
	if length%4 != 0 {
		return Sexp{}, ErrProtocolDesync
	}
	data, err := readExact(r, int(length))
	if err != nil {
		return Sexp{}, err
	}

	br := bytes.NewReader(data)
	n := int(length) / 4
	out := make([]IntOrNA, n)
	for i := 0; i < n; i++ {
		v, err := readI32LE(br)
		if err != nil {
			return Sexp{}, err
		}
		if v == intMin {
			out[i] = NAInt32()
		} else {
			out[i] = Int32(v)
		}
	}
	return ArrayIntVal(out), nil
}

func decodeArrayDouble(r *limitedReader, length uint64) (Sexp, error) {
	if length%8 != 0 {
		return Sexp{}, ErrProtocolDesync
	}
	data, err := readExact(r, int(length))
	if err != nil {
		return Sexp{}, err
	}

	n := int(length) / 8
	out := make([]FloatOrNA, n)
	for i := 0; i < n; i++ {
		out[i] = decodeDoubleElement(data[i*8 : i*8+8])
	}
	return ArrayDoubleVal(out), nil
}

func decodeDoubleElement(b []byte) FloatOrNA {
	v := decodeMixedEndianDouble(b)
	bits := math.Float64bits(v)
	_, exponent, mantissa := doubleBitsExponentMantissa(bits)

	if exponent == 0x7FF {
		switch mantissa {
		case 0:
			if bits>>63 == 1 {
				return Float64(math.Inf(-1))
			}
			return Float64(math.Inf(1))
		case naDoubleMantissa:
			return NAFloat64()
		default:
			return Float64(math.NaN())
		}
	}

	return Float64(v)
}

func decodeArrayBool(r *limitedReader, length uint64) (Sexp, error) {
	if length < 4 {
		return Sexp{}, ErrProtocolDesync
	}
	data, err := readExact(r, int(length))
	if err != nil {
		return Sexp{}, err
	}

	count := binary.LittleEndian.Uint32(data[0:4])
	if uint64(count) > length-4 {
		return Sexp{}, ErrProtocolDesync
	}

	br := bytes.NewReader(data[4:])
	out := make([]BoolOrNA, count)
	for i := uint32(0); i < count; i++ {
		b, err := readU8(br)
		if err != nil {
			return Sexp{}, err
		}
		switch b {
		case 0:
			out[i] = Bool(false)
		case 1:
			out[i] = Bool(true)
		case naBoolByte, naBoolAltByte:
			out[i] = NABool()
		default:
			return Sexp{}, ErrProtocolDesync
		}
	}
	// Remaining bytes are alignment padding; already consumed by readExact.
	return ArrayBoolVal(out), nil
}

func decodeItemSequence(r *limitedReader, length uint64) ([]Sexp, error) {
	sub := &limitedReader{r: r, remaining: length}
	var items []Sexp
	for sub.remaining > 0 {
		item, err := decodeTopLevelItem(sub)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if sub.remaining != 0 {
		return nil, ErrProtocolDesync
	}
	return items, nil
}

func decodePairSequence(r *limitedReader, length uint64) ([]Pair, error) {
	sub := &limitedReader{r: r, remaining: length}
	var pairs []Pair
	for sub.remaining > 0 {
		// On the wire, value precedes key.
		value, err := decodeTopLevelItem(sub)
		if err != nil {
			return nil, err
		}
		key, err := decodeTopLevelItem(sub)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, Pair{Key: key, Value: value})
	}
	if sub.remaining != 0 {
		return nil, ErrProtocolDesync
	}
	return pairs, nil
}
