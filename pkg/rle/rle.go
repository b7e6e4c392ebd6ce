// Package rle implements the single-byte run-length codec used to compress
// the LLI and SSI indicator arrays within a SOCD chunk.
package rle

import "github.com/de-bkg/gosrnx/pkg/leb128"

// Encode greedily merges adjacent identical bytes into (byte, uLEB128(count-1))
// pairs.
func Encode(data []byte) []byte {
	out := make([]byte, 0, len(data)/2+2)
	for i := 0; i < len(data); {
		b := data[i]
		j := i + 1
		for j < len(data) && data[j] == b {
			j++
		}
		run := j - i
		out = append(out, b)
		out = leb128.EncodeUint(out, uint64(run-1))
		i = j
	}
	return out
}

// Decode expands encoded (byte, uLEB128(count-1)) pairs into a slice of
// exactly outLen bytes. Any capacity beyond the encoded entries is filled
// with the space character (0x20), reflecting the convention that absent
// indicators are spaces.
func Decode(encoded []byte, outLen int) []byte {
	out := make([]byte, 0, outLen)
	i := 0
	for i < len(encoded) && len(out) < outLen {
		b := encoded[i]
		i++
		count, n := leb128.DecodeUint(encoded[i:])
		i += n
		run := int(count) + 1
		if len(out)+run > outLen {
			run = outLen - len(out)
		}
		for k := 0; k < run; k++ {
			out = append(out, b)
		}
	}
	for len(out) < outLen {
		out = append(out, ' ')
	}
	return out
}
