// Package protocol implements QAP1, the binary wire protocol used to
// talk to an Rserve-compatible R compute server.
//
// A QAP1 exchange is a fixed 32-byte handshake, then a sequence of
// client-initiated request/reply pairs. Every request and every
// successful reply starts with a 16-byte envelope (command or ack word,
// length, offset, high length word) and is followed by zero or more
// length-prefixed items. An error reply is only the ack word, carrying
// the error code, followed by the server's trailing message.
//
// The interesting complexity lives inside the items: each one carries
// a type byte and a 24-bit length, optionally extended to 32 bits via
// an XT_LARGE flag, and optionally preceded by an attribute SEXP via an
// XT_HAS_ATTR flag. Values are represented in this package as a Sexp,
// a tagged union covering scalars, typed arrays, vectors, tagged
// lists, closures (opaque), and the has-attribute wrapper used to
// carry names, factors, and data frames.
//
// wire.go holds the command words, tag bytes, and NA sentinels.
// frame.go is header/length wire I/O with no SEXP awareness. sexp.go
// defines the Sexp value type. decoder.go and encoder.go convert
// between wire bytes and Sexp. errors.go maps the server's single
// error byte to a named ErrorKind. unwrap.go turns a Sexp into an
// ordinary Go value or a JSON string for logging and the CLI.
//
// Two wire quirks are preserved even though they read like bugs: the
// message-level high length word is shifted by 31 bits rather than 32,
// and the SEXP-level large-length extension is shifted by 23 rather
// than 24. Neither affects a length whose high word or extension word
// is zero.
package protocol
