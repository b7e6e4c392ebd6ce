// Package bytestream presents a sliding, over-readable byte window over a
// file or standard input, the shared input abstraction for the RINEX parser
// and the SRNX reader.
package bytestream

import "errors"

// Padding is the minimum number of zero-filled bytes guaranteed to be
// readable past the logical end of every window, so that fixed-width field
// scanners and the bit-matrix block reader never need a bounds check for
// their worst-case over-read.
const Padding = 31

// ErrInvalidArgument is returned when step exceeds the current window size,
// or when a requested size cannot be represented safely.
var ErrInvalidArgument = errors.New("bytestream: invalid argument")

// Stream presents a contiguous window over an input source. Bytes returns a
// slice whose length is at least the size requested by the most recent
// Advance call, if the source had that many bytes remaining, plus Padding
// zero bytes of safe over-read.
type Stream interface {
	// Advance discards step bytes from the front of the window and
	// attempts to grow the window so that at least reqSize bytes are
	// available. It returns ErrInvalidArgument if step exceeds the
	// current window size.
	Advance(reqSize, step int) error

	// Bytes returns the current window.
	Bytes() []byte

	// Close releases all resources held by the stream.
	Close() error
}
