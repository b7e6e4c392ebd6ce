// Package bitmatrix implements the transposed bit-matrix codec used by the
// SRNX compression engine: packing N small signed integers into k bits each,
// one bit per byte-column, so each byte holds bits from eight distinct values.
package bitmatrix

import "os"

// selected records which implementation TRANSPOSE_FORCE asked for. Only
// "generic" (or unset, which also resolves to "generic") is meaningful in
// this portable Go port — there is no SIMD dispatch to select between, but
// the environment variable is still honored for compatibility with the
// reference implementation's contract.
var selected = resolveSelection()

func resolveSelection() string {
	v := os.Getenv("TRANSPOSE_FORCE")
	if v == "" {
		return "generic"
	}
	return v
}

// Selected returns the implementation name TRANSPOSE_FORCE selected (or
// "generic" if unset).
func Selected() string {
	return selected
}

// Transpose decodes a transposed N-by-k bit matrix: in holds k rows,
// row-major, each row packed into n/8 bytes with bit 0 of the row as its
// most-significant bit. Transpose writes n values to out, where out[j] is
// the k-bit value formed by taking bit j from each of the k rows (row 0
// contributing the most-significant bit of the k-bit value), sign-extended
// to 64 bits.
//
// n must be one of 8, 16, 32, 64; k must be in [1, 32]. len(out) must be at
// least n, and len(in) must be at least k*(n/8).
func Transpose(out []int64, in []byte, k, n int) {
	rowBytes := n / 8
	for j := 0; j < n; j++ {
		byteIdx := j / 8
		bitShift := uint(7 - j%8)

		var val uint64
		for r := 0; r < k; r++ {
			b := in[r*rowBytes+byteIdx]
			bit := (b >> bitShift) & 1
			val = val<<1 | uint64(bit)
		}

		if k < 64 && val&(uint64(1)<<uint(k-1)) != 0 {
			val |= ^uint64(0) << uint(k)
		}
		out[j] = int64(val)
	}
}

// PackTranspose is the compression engine's inverse of Transpose: given n
// signed values each representable in k bits, it produces the row-major
// packed byte matrix that Transpose would decode back into those values. It
// exists only on the writer side; the reference decoder ships no encoder to
// ground this against, so it is derived directly from Transpose's contract
// by construction rather than adapted from existing C.
//
// n and k carry the same constraints as Transpose. Callers must ensure
// every value in in[0:n] fits in k signed bits.
func PackTranspose(in []int64, k, n int) []byte {
	rowBytes := n / 8
	out := make([]byte, k*rowBytes)
	for j := 0; j < n; j++ {
		byteIdx := j / 8
		bitShift := uint(7 - j%8)
		uval := uint64(in[j])
		for r := 0; r < k; r++ {
			bit := (uval >> uint(k-1-r)) & 1
			out[r*rowBytes+byteIdx] |= byte(bit << bitShift)
		}
	}
	return out
}

// BitsNeeded returns the smallest k in [1, 32] such that v fits in a signed
// k-bit two's-complement field.
func BitsNeeded(v int64) int {
	k := 1
	for {
		min := -(int64(1) << uint(k-1))
		max := int64(1)<<uint(k-1) - 1
		if v >= min && v <= max {
			return k
		}
		k++
		if k > 32 {
			return 32
		}
	}
}
