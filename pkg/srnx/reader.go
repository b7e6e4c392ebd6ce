package srnx

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"strings"

	"github.com/de-bkg/gosrnx/pkg/bytestream"
	"github.com/de-bkg/gosrnx/pkg/leb128"
	"github.com/de-bkg/gosrnx/pkg/rinex"
	"github.com/sirupsen/logrus"
)

// SatelliteName is a satellite name's 3-character form ("G01").
type SatelliteName [3]byte

func (n SatelliteName) String() string {
	return string(n[:])
}

// Event is a special-event record: the epoch index it replaces, its
// original RINEX epoch-flag byte ('2'..'5'), and its raw text payload.
type Event struct {
	EpochIndex uint64
	Flag       byte
	Text       string
}

// Reader is a random-access reader over a memory-mapped SRNX file. It owns
// the memory map and the parsed header; slices it hands out are valid until
// the Reader is closed.
type Reader struct {
	stream bytestream.Stream
	raw    []byte
	log    logrus.FieldLogger

	major, minor                uint64
	chunkDigestID, fileDigestID uint64

	// end is the offset of the trailing file-level digest, i.e. the end of
	// the chunk stream; scans must stop here rather than at len(raw).
	end int

	rhdrPayload []byte
	header      *rinex.ObsHeader

	sdirOffset int // -1 if unknown
	epocOffset int
	sateScanAt int // offset to resume linear SATE scans from

	satellites []SatelliteName
}

// ReaderOption configures a Reader at construction time.
type ReaderOption func(*Reader)

// WithLogger sets the logger used for non-fatal diagnostics. The default
// is logrus.StandardLogger().
func WithLogger(log logrus.FieldLogger) ReaderOption {
	return func(r *Reader) { r.log = log }
}

// Open memory-maps path and returns a Reader over it.
func Open(path string, opts ...ReaderOption) (*Reader, error) {
	stream, err := bytestream.OpenMmap(path)
	if err != nil {
		return nil, newErr(CodeSystemError, err)
	}
	return OpenStream(stream, opts...)
}

// OpenStream wraps an already-open byte stream (of any backend) as a
// Reader, so the reader composes with the same three byte-stream backends
// as the RINEX parser.
func OpenStream(stream bytestream.Stream, opts ...ReaderOption) (*Reader, error) {
	raw, err := bytestream.Drain(stream)
	if err != nil {
		return nil, newErr(CodeSystemError, err)
	}

	r := &Reader{
		stream:     stream,
		raw:        raw,
		log:        logrus.StandardLogger(),
		sdirOffset: -1,
		epocOffset: -1,
	}
	for _, o := range opts {
		o(r)
	}

	prelude, err := readChunk(raw, 0)
	if err != nil {
		return nil, err
	}
	if prelude.Tag != TagSRNX {
		return nil, newErr(CodeBadFormat, fmt.Errorf("first chunk is %q, want SRNX", prelude.Tag))
	}
	if err := r.parsePrelude(prelude.Payload); err != nil {
		return nil, err
	}
	r.end = len(raw) - digestLen(r.fileDigestID)
	if r.end < prelude.End {
		return nil, newErr(CodeCorrupt, fmt.Errorf("file shorter than its trailing digest"))
	}
	if r.fileDigestID == 2 {
		want := binary.BigEndian.Uint32(raw[r.end:])
		if got := crc32.ChecksumIEEE(raw[:r.end]); got != want {
			return nil, newErr(CodeCorrupt, fmt.Errorf("file digest mismatch: got %08x, want %08x", got, want))
		}
	}

	rhdr, err := readChunk(raw, prelude.End)
	if err != nil {
		return nil, err
	}
	if rhdr.Tag != TagRHDR {
		return nil, newErr(CodeBadFormat, fmt.Errorf("second chunk is %q, want RHDR", rhdr.Tag))
	}
	r.rhdrPayload = rhdr.Payload

	hdr, err := rinex.ParseHeaderBytes(rhdr.Payload)
	if err != nil {
		return nil, newErr(CodeBadFormat, err)
	}
	r.header = hdr
	r.sateScanAt = rhdr.End
	r.log.Debug("SDIR chunk not consulted, satellite/SOCD lookups fall back to linear scan")

	return r, nil
}

func (r *Reader) parsePrelude(payload []byte) error {
	off := 0
	major, n := leb128.DecodeUint(payload[off:])
	if n == 0 {
		return newErr(CodeCorrupt, fmt.Errorf("missing major version"))
	}
	off += n
	if major != 1 {
		return newErr(CodeBadMajor, fmt.Errorf("major version %d", major))
	}
	minor, n := leb128.DecodeUint(payload[off:])
	if n == 0 {
		return newErr(CodeCorrupt, fmt.Errorf("missing minor version"))
	}
	off += n
	chunkDigestID, n := leb128.DecodeUint(payload[off:])
	if n == 0 {
		return newErr(CodeCorrupt, fmt.Errorf("missing chunk-digest id"))
	}
	off += n
	fileDigestID, n := leb128.DecodeUint(payload[off:])
	if n == 0 {
		return newErr(CodeCorrupt, fmt.Errorf("missing file-digest id"))
	}
	r.major, r.minor = major, minor
	r.chunkDigestID, r.fileDigestID = chunkDigestID, fileDigestID
	return nil
}

// Close releases the underlying byte stream.
func (r *Reader) Close() error {
	return r.stream.Close()
}

// GetHeader returns the normalized RINEX header bytes stored in the RHDR
// chunk.
func (r *Reader) GetHeader() []byte {
	return r.rhdrPayload
}

// Header returns the parsed RINEX header.
func (r *Reader) Header() *rinex.ObsHeader {
	return r.header
}

// GetEpochs decodes the EPOC chunk into a flat sequence of epochs: their
// packed date, packed hour-minute-seconds, and clock offset.
func (r *Reader) GetEpochs() ([]rinex.Epoch, error) {
	epoc, err := r.locateEPOC()
	if err != nil {
		return nil, err
	}
	return decodeEpochs(epoc.Payload)
}

func (r *Reader) locateEPOC() (chunk, error) {
	if r.epocOffset >= 0 {
		return readChunk(r.raw, r.epocOffset)
	}
	off := r.sateScanAt
	for off < r.end {
		c, err := readChunk(r.raw, off)
		if err != nil {
			return chunk{}, err
		}
		if c.Tag == TagEPOC {
			r.epocOffset = off
			return c, nil
		}
		off = c.End
	}
	return chunk{}, newErr(CodeCorrupt, fmt.Errorf("no EPOC chunk found"))
}

// NextSpecialEvent scans forward from cursor (a byte offset, start at the
// RHDR end) for the next EVTF chunk, returning the decoded event and the
// byte offset to resume scanning from.
func (r *Reader) NextSpecialEvent(cursor int) (Event, int, error) {
	off := cursor
	if off == 0 {
		off = r.sateScanAt
	}
	for off < r.end {
		c, err := readChunk(r.raw, off)
		if err != nil {
			return Event{}, 0, err
		}
		if c.Tag == TagEVTF {
			if len(c.Payload) < 1 {
				return Event{}, 0, newErr(CodeBadFormat, fmt.Errorf("empty EVTF payload"))
			}
			flag := c.Payload[0]
			idx, n := leb128.DecodeUint(c.Payload[1:])
			if n == 0 {
				return Event{}, 0, newErr(CodeBadFormat, fmt.Errorf("bad EVTF payload"))
			}
			return Event{EpochIndex: idx, Flag: flag, Text: string(c.Payload[1+n:])}, c.End, nil
		}
		off = c.End
	}
	return Event{}, 0, newErr(CodeEndOfData, nil)
}

// GetSatellites returns the satellite inventory, scanning SATE chunks on
// first call and caching the result.
func (r *Reader) GetSatellites() ([]SatelliteName, error) {
	if r.satellites != nil {
		return r.satellites, nil
	}
	off := r.sateScanAt
	var names []SatelliteName
	for off < r.end {
		c, err := readChunk(r.raw, off)
		if err != nil {
			return nil, err
		}
		if c.Tag == TagSATE {
			if len(c.Payload) < 3 {
				return nil, newErr(CodeCorrupt, fmt.Errorf("short SATE payload"))
			}
			var n SatelliteName
			copy(n[:], c.Payload[:3])
			names = append(names, n)
		}
		off = c.End
	}
	r.satellites = names
	return names, nil
}

// FindSOCD locates the SOCD chunk for (name, code), returning its payload
// (including the name+code prefix).
func (r *Reader) FindSOCD(name SatelliteName, code string) ([]byte, error) {
	sate, sateOffset, err := r.locateSATE(name)
	if err != nil {
		return nil, err
	}

	codes := r.header.Codes.Codes(name[0])
	idx := -1
	for i, c := range codes {
		if c.Code == code {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, newErr(CodeUnknownCode, fmt.Errorf("%s: code %q", name, code))
	}

	rest := sate.Payload[3:]
	off := 0
	var target int64
	for i := 0; i <= idx; i++ {
		v, n := leb128.DecodeInt(rest[off:])
		if n == 0 {
			return nil, newErr(CodeCorrupt, fmt.Errorf("short SATE offset table"))
		}
		off += n
		target = v
	}
	if target == 0 {
		return nil, newErr(CodeUnknownCode, fmt.Errorf("%s: code %q not observed", name, code))
	}

	socOffset := sateOffset + int(target)
	soc, err := readChunk(r.raw, socOffset)
	if err != nil {
		return nil, err
	}
	if soc.Tag != TagSOCD {
		return nil, newErr(CodeCorrupt, fmt.Errorf("SOCD offset points at %q", soc.Tag))
	}
	if len(soc.Payload) < 7 || string(soc.Payload[0:3]) != name.String() {
		return nil, newErr(CodeCorrupt, fmt.Errorf("SOCD name mismatch for %s/%s", name, code))
	}
	gotCode := strings.TrimRight(string(soc.Payload[3:7]), "\x00")
	if gotCode != code {
		return nil, newErr(CodeCorrupt, fmt.Errorf("SOCD code mismatch for %s: want %q got %q", name, code, gotCode))
	}
	return soc.Payload, nil
}

func (r *Reader) locateSATE(name SatelliteName) (chunk, int, error) {
	off := r.sateScanAt
	for off < r.end {
		c, err := readChunk(r.raw, off)
		if err != nil {
			return chunk{}, 0, err
		}
		if c.Tag == TagSATE && len(c.Payload) >= 3 && string(c.Payload[:3]) == name.String() {
			return c, off, nil
		}
		off = c.End
	}
	return chunk{}, 0, newErr(CodeUnknownSatellite, fmt.Errorf("%s", name))
}

// decodeEpochs expands the EPOC chunk's timestamp/interval and
// clock-offset spans into a flat epoch sequence, per spec's span
// expansion rule: a span covers `length` consecutive epochs stepping by
// `delta` (a negated whole-second interval, in 1e-7 seconds), carrying
// minute/hour rollover.
func decodeEpochs(payload []byte) ([]rinex.Epoch, error) {
	off := 0
	total, n := leb128.DecodeUint(payload[off:])
	if n == 0 {
		return nil, newErr(CodeCorrupt, fmt.Errorf("missing epoch count"))
	}
	off += n

	epochs := make([]rinex.Epoch, 0, total)
	for uint64(len(epochs)) < total && off < len(payload) {
		delta, n := leb128.DecodeInt(payload[off:])
		if n == 0 {
			break
		}
		off += n
		length, n := leb128.DecodeUint(payload[off:])
		if n == 0 {
			return nil, newErr(CodeCorrupt, fmt.Errorf("missing span length"))
		}
		off += n
		date, n := leb128.DecodeUint(payload[off:])
		if n == 0 {
			return nil, newErr(CodeCorrupt, fmt.Errorf("missing span date"))
		}
		off += n
		packedTime, n := leb128.DecodeUint(payload[off:])
		if n == 0 {
			return nil, newErr(CodeCorrupt, fmt.Errorf("missing span time"))
		}
		off += n

		hhMm := int(packedTime / 1e9)
		secE7 := int64(packedTime % 1e9)
		stepSecE7 := -delta // delta is the negated whole-second interval

		for i := uint64(0); i < length; i++ {
			ep := rinex.Epoch{Date: int(date), HourMin: hhMm, SecE7: secE7, Flag: '0'}
			epochs = append(epochs, ep)

			secE7 += stepSecE7
			for secE7 >= 60*1e7 {
				secE7 -= 60 * 1e7
				mm := hhMm % 100
				hh := hhMm / 100
				mm++
				if mm == 60 {
					mm = 0
					hh++
				}
				hhMm = hh*100 + mm
			}
		}
	}

	// Clock-offset spans: (sLEB128 value, uLEB128 length) assigned in
	// order; remaining epochs default to zero.
	idx := 0
	for off < len(payload) && idx < len(epochs) {
		value, n := leb128.DecodeInt(payload[off:])
		if n == 0 {
			break
		}
		off += n
		length, n := leb128.DecodeUint(payload[off:])
		if n == 0 {
			break
		}
		off += n
		for i := uint64(0); i < length && idx < len(epochs); i++ {
			epochs[idx].ClockOffsetE12 = value
			idx++
		}
	}

	return epochs, nil
}
