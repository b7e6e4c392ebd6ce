package bitmatrix

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// truth reproduces the fixed truth matrix from
// _examples/original_source/transpose_test.c verbatim.
var truth = [32]uint32{
	0x55555555, 0x33333333, 0x0f0f0f0f, 0x00ff00ff,
	0x0000ffff, 0xaaaaaaaa, 0xcccccccc, 0xf0f0f0f0,
	0xff00ff00, 0xffff0000, 0x0000ffff, 0x00ffff00,
	0x0ff00ff0, 0x3c3c3c3c, 0x66666666, 0xffffffff,
	0x12345678, 0x31415927, 0xcafebabe, 0xcafed00d,
	0x47494638, 0x89504e47, 0x4d546864, 0x2321202f,
	0x7f454c46, 0x25504446, 0x19540119, 0x4a6f7921,
	0x49492a00, 0x4d4d002a, 0x57414433, 0xd0cf11e0,
}

func buildRows(truth32 [32]uint32) [32]uint32 {
	var rows [32]uint32
	for ii := 0; ii < 32; ii++ {
		var xx uint32
		for jj := 0; jj < 32; jj++ {
			bit := (truth32[jj] >> uint(31-ii)) & 1
			xx |= bit << uint(31-jj)
		}
		rows[ii] = xx
	}
	return rows
}

func TestTransposeTruthTable(t *testing.T) {
	rows := buildRows(truth)

	input8 := make([]byte, 32)
	input16 := make([]byte, 64)
	input32 := make([]byte, 128)
	for ii := 0; ii < 32; ii++ {
		xx := rows[ii]
		input8[ii] = byte(xx >> 24)
		input16[2*ii+0] = byte(xx >> 24)
		input16[2*ii+1] = byte(xx >> 16)
		input32[4*ii+0] = byte(xx >> 24)
		input32[4*ii+1] = byte(xx >> 16)
		input32[4*ii+2] = byte(xx >> 8)
		input32[4*ii+3] = byte(xx)
	}

	cases := []struct {
		n     int
		input []byte
	}{
		{8, input8},
		{16, input16},
		{32, input32},
	}

	out := make([]int64, 32)
	for _, c := range cases {
		for k := 1; k <= 32; k++ {
			Transpose(out[:c.n], c.input[:k*(c.n/8)], k, c.n)
			for j := 0; j < c.n; j++ {
				expect := int64(int32(truth[j])) >> uint(32-k)
				assert.Equalf(t, expect, out[j], "n=%d k=%d j=%d", c.n, k, j)
			}
		}
	}
}

func TestTransposeScenario4(t *testing.T) {
	rows := buildRows(truth)

	input32 := make([]byte, 128)
	for ii := 0; ii < 32; ii++ {
		xx := rows[ii]
		input32[4*ii+0] = byte(xx >> 24)
		input32[4*ii+1] = byte(xx >> 16)
		input32[4*ii+2] = byte(xx >> 8)
		input32[4*ii+3] = byte(xx)
	}

	out := make([]int64, 32)
	Transpose(out, input32[:4*4], 4, 32)
	assert.Equal(t, int64(0x5), out[0])
	assert.Equal(t, int64(0x3), out[1])
	assert.Equal(t, int64(0x0), out[2])
	assert.Equal(t, int64(0x0), out[3])
}

func TestPackTransposeRoundTrip(t *testing.T) {
	cases := []struct {
		n int
		k int
	}{{8, 3}, {16, 5}, {32, 1}, {32, 32}, {64, 9}}
	for _, c := range cases {
		in := make([]int64, c.n)
		lo := -(int64(1) << uint(c.k-1))
		hi := int64(1)<<uint(c.k-1) - 1
		for j := range in {
			span := hi - lo + 1
			in[j] = lo + int64(j*7919)%span
			if in[j] < lo {
				in[j] += span
			}
		}
		packed := PackTranspose(in, c.k, c.n)
		out := make([]int64, c.n)
		Transpose(out, packed, c.k, c.n)
		assert.Equal(t, in, out, "n=%d k=%d", c.n, c.k)
	}
}

func TestBitsNeeded(t *testing.T) {
	assert.Equal(t, 1, BitsNeeded(0))
	assert.Equal(t, 1, BitsNeeded(-1))
	assert.Equal(t, 2, BitsNeeded(1))
	assert.Equal(t, 3, BitsNeeded(-4))
	assert.Equal(t, 9, BitsNeeded(255))
}
