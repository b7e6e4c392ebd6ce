// Package srnx implements the Succinct RINEX container format: a random
// access reader over pre-compressed RINEX observation data, and a writer
// that re-encodes a parsed RINEX file into that container.
package srnx

import (
	"fmt"

	"github.com/de-bkg/gosrnx/pkg/leb128"
)

// Tag identifies a chunk's four-byte ASCII type.
type Tag string

// Chunk tags defined by the container format.
const (
	TagSRNX Tag = "SRNX"
	TagRHDR Tag = "RHDR"
	TagSDIR Tag = "SDIR"
	TagEPOC Tag = "EPOC"
	TagEVTF Tag = "EVTF"
	TagSATE Tag = "SATE"
	TagSOCD Tag = "SOCD"
)

// chunk is a decoded chunk header plus a view of its payload.
type chunk struct {
	Tag     Tag
	Payload []byte
	// End is the file offset immediately following this chunk (payload
	// only; no digest is modeled in this version).
	End int
}

// readChunk decodes one chunk starting at offset within buf.
func readChunk(buf []byte, offset int) (chunk, error) {
	if offset < 0 || offset+4 > len(buf) {
		return chunk{}, newErr(CodeCorrupt, fmt.Errorf("chunk tag out of range at offset %d", offset))
	}
	tag := Tag(buf[offset : offset+4])

	length, n := leb128.DecodeUint(buf[offset+4:])
	if n == 0 {
		return chunk{}, newErr(CodeCorrupt, fmt.Errorf("bad chunk length at offset %d", offset))
	}
	payloadStart := offset + 4 + n
	payloadEnd := payloadStart + int(length)
	if payloadEnd < payloadStart || payloadEnd > len(buf) {
		return chunk{}, newErr(CodeBadFormat, fmt.Errorf("chunk payload exceeds mapped region at offset %d", offset))
	}

	return chunk{
		Tag:     tag,
		Payload: buf[payloadStart:payloadEnd],
		End:     payloadEnd,
	}, nil
}

// appendChunk appends a complete chunk (tag, uLEB128 length, payload) to
// dst and returns the result.
func appendChunk(dst []byte, tag Tag, payload []byte) []byte {
	dst = append(dst, tag[:4]...)
	dst = leb128.EncodeUint(dst, uint64(len(payload)))
	dst = append(dst, payload...)
	return dst
}
