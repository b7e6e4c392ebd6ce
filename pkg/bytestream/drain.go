package bytestream

import "fmt"

// Drain fully materializes a Stream's logical content into memory by
// repeatedly growing the requested window until it stops growing. Used by
// consumers (the RINEX parser, the SRNX reader) that need the whole file
// rather than an incremental window.
func Drain(s Stream) ([]byte, error) {
	need := 4096
	prevLen := -1
	for i := 0; i < 40; i++ {
		if err := s.Advance(need, 0); err != nil {
			return nil, err
		}
		b := s.Bytes()
		logical := len(b) - Padding
		if logical < 0 {
			logical = 0
		}
		if logical == prevLen {
			return append([]byte(nil), b[:logical]...), nil
		}
		prevLen = logical
		need *= 2
	}
	return nil, fmt.Errorf("bytestream: stream did not converge to a stable size")
}
