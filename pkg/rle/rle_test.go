package rle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundTrip(t *testing.T) {
	tests := [][]byte{
		[]byte(""),
		[]byte("0"),
		[]byte("0000"),
		[]byte("00118"),
		[]byte("   8 8 8"),
	}
	for _, data := range tests {
		enc := Encode(data)
		got := Decode(enc, len(data))
		assert.Equal(t, data, got)
	}
}

func TestDecodePadsWithSpace(t *testing.T) {
	enc := Encode([]byte("AA"))
	got := Decode(enc, 5)
	assert.Equal(t, []byte("AA   "), got)
}

func TestDecodeTruncates(t *testing.T) {
	enc := Encode([]byte("AAAAAA"))
	got := Decode(enc, 3)
	assert.Equal(t, []byte("AAA"), got)
}
