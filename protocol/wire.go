package protocol

// QAP1 wire constants, as spoken by the R compute server. The numeric
// values are the protocol's, not ours to choose.

// Outbound command identifiers (message envelope's cmd word).
const (
	cmdEval     uint32 = 0x003
	cmdVoidEval uint32 = 0x002
	cmdSetSEXP  uint32 = 0x020
)

// Exported mirrors of the command words, for callers outside this
// package that need to recognise a request's command without decoding
// its body — transport.FixtureServer in particular.
const (
	CmdEval     = cmdEval
	CmdVoidEval = cmdVoidEval
	CmdSetSEXP  = cmdSetSEXP
)

// Ack words. A non-OK ack ORs the error code into the top byte of
// respErr, giving the on-wire shape "0x02 0x00 0x01 errcode".
const (
	respOK  uint32 = 0x010001
	respErr uint32 = 0x010002
)

// Outer, message-body item type tags (DT_*).
const (
	dtInt    byte = 1
	dtChar   byte = 2
	dtDouble byte = 3
	dtString byte = 4
	dtSEXP   byte = 10
	dtArray  byte = 11
	dtLarge  byte = 64
)

// Inner SEXP type tags (XT_*) and their modifier bits. These are the
// canonical Rserve QAP1 values, not a locally-chosen numbering.
const (
	xtNull      byte = 0
	xtInt       byte = 1
	xtDouble    byte = 2
	xtStr       byte = 3
	xtLangNoTag byte = 22
	xtVector    byte = 16
	xtClos      byte = 18
	xtSymname   byte = 19
	xtListNoTag byte = 20
	xtListTag   byte = 21
	xtLangTag   byte = 23
	xtVectorExp byte = 26

	xtArrayInt  byte = 32
	xtArrayDbl  byte = 33
	xtArrayStr  byte = 34
	xtArrayBool byte = 36

	xtLarge   byte = 64
	xtHasAttr byte = 128

	// xtTypeMask strips xtLarge/xtHasAttr to recover the base type.
	xtTypeMask byte = 0x3F
)

// NA sentinels.
const (
	naStrByte     byte = 0xFF
	naBoolByte    byte = 2
	naBoolAltByte byte = 3 // accepted on receive only

	strPad byte = 0x01

	// naDoubleMantissa is the mantissa of the canonical R NA double: an
	// exponent of all-ones, this mantissa, and a zero sign bit.
	naDoubleMantissa uint64 = 0x7A2
)

const intMin int32 = -1 << 31

// handshakeBanner is the fixed ASCII prefix of the 32-byte handshake.
var handshakeBanner = [4]byte{'R', 's', 'r', 'v'}

// Server error codes (single byte, the top byte of a non-OK ack word).
// errInvCmd is pinned to 2 by the documented error-path test scenario
// (ack bytes 0x02 0x00 0x01 0x02 must map to InvalidCommand); see
// DESIGN.md for why that diverges from a real Rserve server's byte
// values, which this codec does not otherwise claim to match.
const (
	errAuthFailed     byte = 1
	errInvCmd         byte = 2
	errConnBroken     byte = 3
	errInvPar         byte = 4
	errRError         byte = 5
	errIOError        byte = 6
	errNotOpen        byte = 7
	errAccessDenied   byte = 8
	errUnsupportedCmd byte = 9
	errUnknownCmd     byte = 10
	errDataOverflow   byte = 11
	errObjectTooBig   byte = 12
	errOutOfMem       byte = 13
	errCtrlClosed     byte = 14
	errSessionBusy    byte = 15
	errDetachFailed   byte = 16
)
