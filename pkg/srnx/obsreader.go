package srnx

import (
	"fmt"

	"github.com/de-bkg/gosrnx/pkg/bitmatrix"
	"github.com/de-bkg/gosrnx/pkg/leb128"
	"github.com/de-bkg/gosrnx/pkg/rle"
)

// block-tag encoding, per SOCD body layout.
const (
	tagZeroRun byte = 0xFE
	tagRawRun  byte = 0xFF
)

// ObsReader streams decoded observation values, LLIs, and SSIs for a single
// (satellite, code) signal out of a SOCD chunk payload.
type ObsReader struct {
	values []int64
	lli    []byte
	ssi    []byte
	pos    int
}

// OpenObsByName opens an ObsReader for (name, code).
func (r *Reader) OpenObsByName(name SatelliteName, code string) (*ObsReader, error) {
	payload, err := r.FindSOCD(name, code)
	if err != nil {
		return nil, err
	}
	return newObsReader(payload)
}

// OpenObsByIndex opens an ObsReader for the code at the given index in the
// system's canonical code table.
func (r *Reader) OpenObsByIndex(name SatelliteName, codeIdx int) (*ObsReader, error) {
	codes := r.header.Codes.Codes(name[0])
	if codeIdx < 0 || codeIdx >= len(codes) {
		return nil, newErr(CodeUnknownCode, fmt.Errorf("index %d out of range", codeIdx))
	}
	return r.OpenObsByName(name, codes[codeIdx].Code)
}

func newObsReader(payload []byte) (*ObsReader, error) {
	if len(payload) < 7 {
		return nil, newErr(CodeBadFormat, fmt.Errorf("short SOCD payload"))
	}
	off := 7 // name[3] + code[4]

	nMinus1, n := leb128.DecodeUint(payload[off:])
	if n == 0 {
		return nil, newErr(CodeBadFormat, fmt.Errorf("missing SOCD count"))
	}
	off += n
	count := int(nMinus1) + 1

	lliLen, n := leb128.DecodeUint(payload[off:])
	if n == 0 {
		return nil, newErr(CodeBadFormat, fmt.Errorf("missing LLI block length"))
	}
	off += n
	if off+int(lliLen) > len(payload) {
		return nil, newErr(CodeBadFormat, fmt.Errorf("LLI block exceeds payload"))
	}
	lli := rle.Decode(payload[off:off+int(lliLen)], count)
	off += int(lliLen)

	ssiLen, n := leb128.DecodeUint(payload[off:])
	if n == 0 {
		return nil, newErr(CodeBadFormat, fmt.Errorf("missing SSI block length"))
	}
	off += n
	if off+int(ssiLen) > len(payload) {
		return nil, newErr(CodeBadFormat, fmt.Errorf("SSI block exceeds payload"))
	}
	ssi := rle.Decode(payload[off:off+int(ssiLen)], count)
	off += int(ssiLen)

	bodyLen, n := leb128.DecodeUint(payload[off:])
	if n == 0 {
		return nil, newErr(CodeBadFormat, fmt.Errorf("missing body length"))
	}
	off += n
	if off+int(bodyLen) > len(payload) {
		return nil, newErr(CodeBadFormat, fmt.Errorf("body block exceeds payload"))
	}
	body := payload[off : off+int(bodyLen)]

	values, err := decodeBody(body, count)
	if err != nil {
		return nil, err
	}

	return &ObsReader{values: values, lli: lli, ssi: ssi}, nil
}

func decodeBody(body []byte, count int) ([]int64, error) {
	values := make([]int64, 0, count)
	off := 0
	for len(values) < count {
		if off >= len(body) {
			return nil, newErr(CodeBadFormat, fmt.Errorf("body ends before %d values decoded", count))
		}
		tag := body[off]
		off++
		switch tag {
		case tagZeroRun:
			run, n := leb128.DecodeUint(body[off:])
			if n == 0 {
				return nil, newErr(CodeBadFormat, fmt.Errorf("bad zero-run count"))
			}
			off += n
			if len(values)+int(run) > count {
				return nil, newErr(CodeBadFormat, fmt.Errorf("zero-run exceeds declared count"))
			}
			for i := uint64(0); i < run; i++ {
				values = append(values, 0)
			}
		case tagRawRun:
			run, n := leb128.DecodeUint(body[off:])
			if n == 0 {
				return nil, newErr(CodeBadFormat, fmt.Errorf("bad raw-run count"))
			}
			off += n
			if len(values)+int(run) > count {
				return nil, newErr(CodeBadFormat, fmt.Errorf("raw-run exceeds declared count"))
			}
			for i := uint64(0); i < run; i++ {
				v, n := leb128.DecodeInt(body[off:])
				if n == 0 {
					return nil, newErr(CodeBadFormat, fmt.Errorf("truncated raw-run value"))
				}
				off += n
				values = append(values, v)
			}
		default:
			widthSel := tag >> 5
			if widthSel > 3 {
				return nil, newErr(CodeBadFormat, fmt.Errorf("bad block width selector %d", widthSel))
			}
			nBits := 8 << widthSel
			k := int(tag&0x1f) + 1
			rowBytes := nBits / 8
			need := k * rowBytes
			if off+need > len(body) {
				return nil, newErr(CodeBadFormat, fmt.Errorf("transposed block exceeds body"))
			}
			out := make([]int64, nBits)
			bitmatrix.Transpose(out, body[off:off+need], k, nBits)
			off += need
			take := nBits
			if len(values)+take > count {
				take = count - len(values)
			}
			values = append(values, out[:take]...)
		}
	}
	return values, nil
}

// ReadObsValue returns the next decoded observation value (scaled by 1000,
// matching parse_obs), or CodeEndOfData when exhausted.
func (r *ObsReader) ReadObsValue() (int64, error) {
	if r.pos >= len(r.values) {
		return 0, newErr(CodeEndOfData, nil)
	}
	v := r.values[r.pos]
	r.pos++
	return v, nil
}

// ReadObsSSILLI returns the LLI and SSI bytes for the value last returned
// by ReadObsValue.
func (r *ObsReader) ReadObsSSILLI() (lli, ssi byte) {
	i := r.pos - 1
	if i < 0 || i >= len(r.lli) {
		return ' ', ' '
	}
	return r.lli[i], r.ssi[i]
}

// Values returns the full (value, LLI, SSI) triple for this signal, as
// decoded when the reader was opened. It does not move the position that
// ReadObsValue reads from.
func (r *ObsReader) Values() (values []int64, lli, ssi []byte) {
	return r.values, r.lli, r.ssi
}
