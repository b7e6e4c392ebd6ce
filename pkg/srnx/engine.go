package srnx

import (
	"encoding/binary"
	"hash/crc32"
	"io"

	"github.com/de-bkg/gosrnx/pkg/bitmatrix"
	"github.com/de-bkg/gosrnx/pkg/gnss"
	"github.com/de-bkg/gosrnx/pkg/leb128"
	"github.com/de-bkg/gosrnx/pkg/rinex"
	"github.com/de-bkg/gosrnx/pkg/rle"
	"github.com/sirupsen/logrus"
)

// fileDigestID is the file-level digest kind this writer emits: id 2 means
// a 4-byte digest (length 1<<(id&7)), here a CRC-32 (IEEE) checksum of
// every byte preceding it. Per-chunk digests are not emitted
// (chunk-digest-id 0); see DESIGN.md for why.
const fileDigestID = 2

// matrixWidths are the block widths the bit-matrix encoding supports, in
// descending order so the engine prefers the widest block that fits the
// remaining run.
var matrixWidths = []int{64, 32, 16, 8}

type signalKey struct {
	sat  [3]byte
	code string
}

type signalRun struct {
	values []int64
	lli    []byte
	ssi    []byte
}

type epochRec struct {
	date, hourMin  int
	secE7          int64
	flag           byte
	clockOffsetE12 int64
	eventText      string
}

type writeConfig struct {
	log logrus.FieldLogger
}

// WriteOption configures Write at call time.
type WriteOption func(*writeConfig)

// WithWriteLogger sets the logger used for non-fatal diagnostics, such as
// satellites dropped by a system filter. The default is
// logrus.StandardLogger().
func WithWriteLogger(log logrus.FieldLogger) WriteOption {
	return func(c *writeConfig) { c.log = log }
}

// Write drives p to exhaustion and encodes the resulting RINEX file into
// the SRNX container format, returning the complete file bytes. When
// systems is non-empty, only observations from satellites whose system is
// in the list are kept; satellites outside it are dropped as if never
// observed.
//
// Per the current container version the on-disk SOCD layout is delta-free:
// the differential-order selection described for the compression engine
// is deferred to a future version, so each signal's raw values feed the
// block chooser directly.
func Write(p *rinex.Parser, systems gnss.Systems, opts ...WriteOption) ([]byte, error) {
	cfg := &writeConfig{log: logrus.StandardLogger()}
	for _, o := range opts {
		o(cfg)
	}

	var epochs []epochRec
	var allObs [][]rinex.Observation

	for {
		ep, err := p.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		rec := epochRec{date: ep.Date, hourMin: ep.HourMin, secE7: ep.SecE7, flag: ep.Flag, clockOffsetE12: ep.ClockOffsetE12}

		if rinex.IsEventFlag(ep.Flag) {
			text := ""
			for i, l := range ep.EventLines {
				if i > 0 {
					text += "\n"
				}
				text += l
			}
			rec.eventText = text
			epochs = append(epochs, rec)
			allObs = append(allObs, nil)
			continue
		}
		epochs = append(epochs, rec)
		allObs = append(allObs, ep.Observations)
	}

	n := len(epochs)

	// Every signal's (values, LLI, SSI) arrays are sized to the full epoch
	// count and pre-filled absent, so a satellite's or a code's entries
	// align 1:1 with the EPOC chunk's enumerated sequence regardless of
	// when that satellite or code first appears. This keeps the SOCD
	// stream index directly addressable by epoch index on read-back,
	// since neither SATE nor SOCD otherwise carries a per-satellite
	// epoch-membership map.
	var satOrder [][3]byte
	satSeen := map[[3]byte]bool{}
	dropped := map[byte]bool{}
	runs := map[signalKey]*signalRun{}

	newRun := func() *signalRun {
		r := &signalRun{values: make([]int64, n), lli: make([]byte, n), ssi: make([]byte, n)}
		for i := range r.values {
			r.values[i] = rinex.SentinelObs
			r.lli[i] = ' '
			r.ssi[i] = ' '
		}
		return r
	}

	for idx, obsList := range allObs {
		for _, obs := range obsList {
			satName := obs.Signal.Satellite()
			if len(systems) > 0 {
				sys, ok := gnss.SystemByLetter(satName[0])
				if !ok || !systems.Contains(sys) {
					if !dropped[satName[0]] {
						dropped[satName[0]] = true
						cfg.log.WithField("system", string(satName[0])).Debug("dropping satellites outside --sat-sys filter")
					}
					continue
				}
			}
			var sat [3]byte
			copy(sat[:], satName)
			if !satSeen[sat] {
				satSeen[sat] = true
				satOrder = append(satOrder, sat)
			}
			key := signalKey{sat: sat, code: obs.Signal.Code()}
			run := runs[key]
			if run == nil {
				run = newRun()
				runs[key] = run
			}
			run.values[idx] = obs.Value
			run.lli[idx] = obs.LLI
			run.ssi[idx] = obs.SSI
		}
	}

	var out []byte
	out = appendChunk(out, TagSRNX, preludePayload())
	out = appendChunk(out, TagRHDR, p.HeaderText())

	socdOffset := map[signalKey]int{}
	for _, sat := range satOrder {
		codes := p.Header().Codes.Codes(sat[0])
		for _, c := range codes {
			key := signalKey{sat: sat, code: c.Code}
			run := runs[key]
			if run == nil {
				continue
			}
			socdOffset[key] = len(out)
			out = appendChunk(out, TagSOCD, encodeSOCD(sat, c.Code, run))
		}
	}

	for _, sat := range satOrder {
		sateStart := len(out)
		codes := p.Header().Codes.Codes(sat[0])
		payload := make([]byte, 0, 3+4*len(codes))
		payload = append(payload, sat[:]...)
		for _, c := range codes {
			key := signalKey{sat: sat, code: c.Code}
			off, ok := socdOffset[key]
			if !ok {
				payload = leb128.EncodeInt(payload, 0)
				continue
			}
			payload = leb128.EncodeInt(payload, int64(off-sateStart))
		}
		out = appendChunk(out, TagSATE, payload)
	}

	out = appendChunk(out, TagEPOC, encodeEPOC(epochs))

	for i, e := range epochs {
		if !rinex.IsEventFlag(e.flag) {
			continue
		}
		payload := []byte{e.flag}
		payload = leb128.EncodeUint(payload, uint64(i))
		payload = append(payload, []byte(e.eventText)...)
		out = appendChunk(out, TagEVTF, payload)
	}

	sum := crc32.ChecksumIEEE(out)
	var digest [4]byte
	binary.BigEndian.PutUint32(digest[:], sum)
	out = append(out, digest[:]...)

	return out, nil
}

func preludePayload() []byte {
	var p []byte
	p = leb128.EncodeUint(p, 1)            // major
	p = leb128.EncodeUint(p, 0)            // minor
	p = leb128.EncodeUint(p, 0)            // chunk-digest-id: none
	p = leb128.EncodeUint(p, fileDigestID) // file-digest-id: CRC-32
	return p
}

// digestLen returns the digest length in bytes for a chunk- or file-digest
// id, per the container's id→length rule: 0 means no digest, otherwise
// 1<<(id&7).
func digestLen(id uint64) int {
	if id == 0 {
		return 0
	}
	return 1 << (id & 7)
}

func encodeSOCD(sat [3]byte, code string, run *signalRun) []byte {
	payload := make([]byte, 0, len(run.values)*2)
	payload = append(payload, sat[:]...)
	payload = append(payload, padCode(code)...)
	payload = leb128.EncodeUint(payload, uint64(len(run.values)-1))

	lliEnc := rle.Encode(run.lli)
	payload = leb128.EncodeUint(payload, uint64(len(lliEnc)))
	payload = append(payload, lliEnc...)

	ssiEnc := rle.Encode(run.ssi)
	payload = leb128.EncodeUint(payload, uint64(len(ssiEnc)))
	payload = append(payload, ssiEnc...)

	body := encodeBody(run.values)
	payload = leb128.EncodeUint(payload, uint64(len(body)))
	payload = append(payload, body...)

	return payload
}

func padCode(code string) []byte {
	b := make([]byte, 4)
	copy(b, code)
	return b
}

// encodeBody chooses, for each maximal run, the cheapest of empty (all
// zeros), sLEB128 run, or a transposed N×k matrix, per §4.7.
func encodeBody(values []int64) []byte {
	var body []byte
	i, n := 0, len(values)
	for i < n {
		if values[i] == 0 {
			j := i
			for j < n && values[j] == 0 {
				j++
			}
			body = append(body, tagZeroRun)
			body = leb128.EncodeUint(body, uint64(j-i))
			i = j
			continue
		}

		width := bestMatrixWidth(n - i)
		if width == 0 || !fitsInMatrix(values[i:i+width]) {
			run := n - i
			if width != 0 {
				run = width
			}
			body = append(body, tagRawRun)
			body = leb128.EncodeUint(body, uint64(run))
			for _, v := range values[i : i+run] {
				body = leb128.EncodeInt(body, v)
			}
			i += run
			continue
		}

		block := values[i : i+width]
		k := blockBits(block)
		matrixCost := 1 + k*(width/8)
		rawCost := 1 + leb128.SizeUint(uint64(width))
		for _, v := range block {
			rawCost += leb128.SizeInt(v)
		}

		if rawCost <= matrixCost {
			body = append(body, tagRawRun)
			body = leb128.EncodeUint(body, uint64(width))
			for _, v := range block {
				body = leb128.EncodeInt(body, v)
			}
		} else {
			widthSel := widthSelector(width)
			body = append(body, widthSel<<5|byte(k-1))
			body = append(body, bitmatrix.PackTranspose(block, k, width)...)
		}
		i += width
	}
	return body
}

func bestMatrixWidth(remaining int) int {
	for _, w := range matrixWidths {
		if remaining >= w {
			return w
		}
	}
	return 0
}

func widthSelector(width int) byte {
	switch width {
	case 8:
		return 0
	case 16:
		return 1
	case 32:
		return 2
	case 64:
		return 3
	default:
		return 0
	}
}

func blockBits(block []int64) int {
	k := 1
	for _, v := range block {
		if b := bitmatrix.BitsNeeded(v); b > k {
			k = b
		}
	}
	return k
}

// fitsInMatrix reports whether every value in block is representable in a
// signed 32-bit field, the widest k the transposed matrix format supports.
// Values outside that range (e.g. the absent-observation sentinel) must
// fall back to an sLEB128 run instead.
func fitsInMatrix(block []int64) bool {
	const lo, hi = -(int64(1) << 31), int64(1)<<31 - 1
	for _, v := range block {
		if v < lo || v > hi {
			return false
		}
	}
	return true
}

// encodeEPOC builds the EPOC chunk's total-count, timestamp-span, and
// clock-offset-span sequences.
func encodeEPOC(epochs []epochRec) []byte {
	payload := leb128.EncodeUint(nil, uint64(len(epochs)))

	i := 0
	for i < len(epochs) {
		j := i + 1
		var stepSecE7 int64 = -1
		haveStep := false
		for j < len(epochs) {
			step := packedTimeDelta(epochs[j-1], epochs[j])
			if !haveStep {
				stepSecE7 = step
				haveStep = true
			} else if step != stepSecE7 {
				break
			}
			j++
		}
		payload = leb128.EncodeInt(payload, -stepSecE7)
		payload = leb128.EncodeUint(payload, uint64(j-i))
		payload = leb128.EncodeUint(payload, uint64(epochs[i].date))
		payload = leb128.EncodeUint(payload, packTime(epochs[i].hourMin, epochs[i].secE7))
		i = j
	}

	i = 0
	for i < len(epochs) {
		j := i + 1
		for j < len(epochs) && epochs[j].clockOffsetE12 == epochs[i].clockOffsetE12 {
			j++
		}
		payload = leb128.EncodeInt(payload, epochs[i].clockOffsetE12)
		payload = leb128.EncodeUint(payload, uint64(j-i))
		i = j
	}

	return payload
}

func packTime(hourMin int, secE7 int64) uint64 {
	return uint64(hourMin)*1e9 + uint64(secE7)
}

func packedTimeDelta(a, b epochRec) int64 {
	if a.date != b.date {
		return 0
	}
	aMin := a.hourMin/100*60 + a.hourMin%100
	bMin := b.hourMin/100*60 + b.hourMin%100
	return (int64(bMin-aMin))*60*1e7 + (b.secE7 - a.secE7)
}
