package rinex

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/de-bkg/gosrnx/pkg/bytestream"
	"github.com/de-bkg/gosrnx/pkg/leb128"
	"github.com/sirupsen/logrus"
)

// Parser is a streaming pull-parser over a RINEX observation file: one call
// to Read produces one Epoch. Internally it is a tagged variant over the
// RINEX major version (2 or 3), matching the "cast-based downcasting becomes
// a tagged variant" redesign.
type Parser struct {
	stream  bytestream.Stream
	header  *ObsHeader
	version int
	log     logrus.FieldLogger

	lines     []string
	lineIdx   int
	headerRaw string
}

// Option configures a Parser at construction time.
type Option func(*Parser)

// WithLogger sets the logger used for non-fatal diagnostics, such as
// unrecognized header labels. The default is logrus.StandardLogger().
func WithLogger(log logrus.FieldLogger) Option {
	return func(p *Parser) { p.log = log }
}

// Open reads and validates a RINEX observation header from stream and
// returns a Parser positioned at the first epoch record.
func Open(stream bytestream.Stream, opts ...Option) (*Parser, error) {
	// TODO: readEpochV2/readEpochV3 index p.lines directly (padTo, random
	// line lookahead for event/observation bodies), which is what forces
	// this full Drain up front; pulling lines lazily from stream via
	// Advance/Bytes would need those two readers reworked first. See
	// DESIGN.md's streaming-vs-materialization note.
	raw, err := bytestream.Drain(stream)
	if err != nil {
		return nil, newErr(CodeSystemError, 0, err)
	}
	if len(raw) < 80 {
		return nil, newErr(CodeBadFormat, 0, fmt.Errorf("file shorter than 80 bytes"))
	}

	lines := normalizeLines(raw)
	if len(lines) == 0 || !strings.Contains(lines[0], "RINEX VERSION") {
		return nil, newErr(CodeBadFormat, 1, fmt.Errorf("missing RINEX VERSION / TYPE"))
	}

	headerEnd := -1
	for i, l := range lines {
		if len(l) < 61 || len(l) > 80 {
			return nil, newErr(CodeBadFormat, i+1, fmt.Errorf("header line length %d", len(l)))
		}
		if strings.TrimSpace(l[60:]) == "END OF HEADER" {
			headerEnd = i
			break
		}
	}
	if headerEnd == -1 {
		return nil, newErr(CodeBadFormat, 0, fmt.Errorf("missing END OF HEADER"))
	}

	p := &Parser{stream: stream, log: logrus.StandardLogger()}
	for _, o := range opts {
		o(p)
	}

	hdr, err := parseHeader(lines[:headerEnd+1], p.log)
	if err != nil {
		return nil, err
	}

	p.header = hdr
	p.version = hdr.Version
	p.lines = lines
	p.lineIdx = headerEnd + 1
	p.headerRaw = strings.Join(lines[:headerEnd+1], "\n") + "\n"
	return p, nil
}

// Header returns the parsed observation header.
func (p *Parser) Header() *ObsHeader {
	return p.header
}

// HeaderText returns the normalized header text (LF line endings, trailing
// spaces stripped, terminating "END OF HEADER" line included) exactly as
// the SRNX RHDR chunk stores it.
func (p *Parser) HeaderText() []byte {
	return []byte(p.headerRaw)
}

// Close releases the underlying byte stream.
func (p *Parser) Close() error {
	return p.stream.Close()
}

// Read decodes the next epoch record. It returns io.EOF when no further
// records remain. On any other error the returned Epoch is undefined.
func (p *Parser) Read() (Epoch, error) {
	if p.lineIdx >= len(p.lines) {
		return Epoch{}, io.EOF
	}
	if p.version == 3 {
		return p.readEpochV3()
	}
	return p.readEpochV2()
}

func (p *Parser) nextLine() (string, bool) {
	if p.lineIdx >= len(p.lines) {
		return "", false
	}
	l := p.lines[p.lineIdx]
	p.lineIdx++
	return l, true
}

func padTo(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return s + strings.Repeat(" ", n-len(s))
}

func (p *Parser) readEpochV2() (Epoch, error) {
	lineNum := p.lineIdx + 1
	line, ok := p.nextLine()
	if !ok {
		return Epoch{}, io.EOF
	}
	line = padTo(line, 80)

	// The epoch line follows the FORTRAN format
	// (1X,I2,4(1X,I2),F11.7,2X,I1,I3,12(A1,I2)): every numeric field but
	// the satellite list is preceded by its own blank column.
	yy, err := strconv.Atoi(strings.TrimSpace(line[1:3]))
	if err != nil {
		return Epoch{}, newErr(CodeBadFormat, lineNum, err)
	}
	year := yy + 1900
	if yy < 80 {
		year = yy + 2000
	}
	mm, _ := strconv.Atoi(strings.TrimSpace(line[4:6]))
	dd, _ := strconv.Atoi(strings.TrimSpace(line[7:9]))
	hh, _ := strconv.Atoi(strings.TrimSpace(line[10:12]))
	mi, _ := strconv.Atoi(strings.TrimSpace(line[13:15]))
	secE7, err := leb128.ParseFixed([]byte(line[15:26]), 11, 7)
	flag := line[28]

	var ep Epoch
	ep.Date = year*10000 + mm*100 + dd
	ep.HourMin = hh*100 + mi
	ep.Flag = flag
	if err != nil && !IsEventFlag(flag) {
		return Epoch{}, newErr(CodeBadFormat, lineNum, err)
	}
	ep.SecE7 = secE7

	nSats, err := strconv.Atoi(strings.TrimSpace(line[29:32]))
	if err != nil {
		return Epoch{}, newErr(CodeBadFormat, lineNum, err)
	}
	ep.NSats = nSats

	if off, err := leb128.ParseFixed([]byte(line[68:80]), 12, 9); err == nil && strings.TrimSpace(line[68:80]) != "" {
		ep.ClockOffsetE12 = off * 1000
	}

	if IsEventFlag(flag) {
		for i := 0; i < nSats; i++ {
			l, ok := p.nextLine()
			if !ok {
				return Epoch{}, newErr(CodeBadFormat, lineNum, fmt.Errorf("truncated event record"))
			}
			ep.EventLines = append(ep.EventLines, l)
		}
		return ep, nil
	}

	sats := make([]string, 0, nSats)
	pos := 32
	cur := line
	for i := 0; i < nSats; i++ {
		if i > 0 && i%12 == 0 {
			l, ok := p.nextLine()
			if !ok {
				return Epoch{}, newErr(CodeBadFormat, lineNum, fmt.Errorf("truncated satellite list"))
			}
			cur = padTo(l, 68)
			pos = 32
		}
		id := cur[pos : pos+3]
		if id[0] == ' ' {
			id = "G" + id[1:3]
		}
		sats = append(sats, id)
		pos += 3
	}

	for _, sat := range sats {
		sys := sat[0]
		codes := p.header.Codes.Codes(sys)
		nObs := len(codes)
		nLines := (nObs + 4) / 5
		var slots []string
		for l := 0; l < nLines; l++ {
			bodyLine, ok := p.nextLine()
			if !ok {
				return Epoch{}, newErr(CodeBadFormat, lineNum, fmt.Errorf("truncated observation body"))
			}
			bodyLine = padTo(bodyLine, 80)
			for s := 0; s < 5 && l*5+s < nObs; s++ {
				start := s * 16
				slots = append(slots, padTo(bodyLine[start:min(start+16, len(bodyLine))], 16))
			}
		}
		for j, slot := range slots {
			if strings.TrimSpace(slot[:14]) == "" {
				continue
			}
			val := leb128.ParseObs([]byte(slot[0:14]))
			obs := Observation{
				Signal: NewSignalID(sat, codes[j].Code),
				Value:  val,
				LLI:    orSpace(slot[14]),
				SSI:    orSpace(slot[15]),
			}
			ep.Observations = append(ep.Observations, obs)
		}
	}

	return ep, nil
}

// readEpochV3 decodes a v3 epoch line by fixed column, mirroring the
// original parser's layout: '>' at column 0, year at 2-5, month at 7-8, day
// at 10-11, hour at 13-14, minute at 16-17, seconds (F11.7) at 18-28, n_sats
// at 32-34 and an optional clock offset (F15.12) at 44-58 once the line is
// that long. Column 31 is checked for a valid flag digit ('0'-'6'), but the
// flag value itself is read from column 28 — the tail of the seconds
// field, not a distinct column. This reproduces a discrepancy between the
// source parser (column 28) and the RINEX 3.04 spec (column 31); see the v3
// epoch-flag column Open Question in DESIGN.md.
func (p *Parser) readEpochV3() (Epoch, error) {
	lineNum := p.lineIdx + 1
	line, ok := p.nextLine()
	if !ok {
		return Epoch{}, io.EOF
	}
	if len(line) < 35 || line[0] != '>' {
		return Epoch{}, newErr(CodeBadFormat, lineNum, fmt.Errorf("short v3 epoch line"))
	}
	if line[31] < '0' || line[31] > '6' {
		return Epoch{}, newErr(CodeBadFormat, lineNum, fmt.Errorf("bad epoch flag"))
	}

	year, err := strconv.Atoi(strings.TrimSpace(line[2:6]))
	if err != nil {
		return Epoch{}, newErr(CodeBadFormat, lineNum, err)
	}
	mm, _ := strconv.Atoi(strings.TrimSpace(line[7:9]))
	dd, _ := strconv.Atoi(strings.TrimSpace(line[10:12]))
	hh, _ := strconv.Atoi(strings.TrimSpace(line[13:15]))
	mi, _ := strconv.Atoi(strings.TrimSpace(line[16:18]))
	secE7, errSec := leb128.ParseFixed([]byte(line[18:29]), 11, 7)
	flag := line[28]

	var ep Epoch
	ep.Date = year*10000 + mm*100 + dd
	ep.HourMin = hh*100 + mi
	ep.Flag = flag
	if errSec != nil && !IsEventFlag(flag) {
		return Epoch{}, newErr(CodeBadFormat, lineNum, errSec)
	}
	ep.SecE7 = secE7

	nSats, err := strconv.Atoi(strings.TrimSpace(line[32:35]))
	if err != nil {
		return Epoch{}, newErr(CodeBadFormat, lineNum, err)
	}
	ep.NSats = nSats

	if len(line) > 44 {
		padded := padTo(line, 59)
		if off, err := leb128.ParseFixed([]byte(padded[44:59]), 15, 12); err == nil && strings.TrimSpace(padded[44:59]) != "" {
			ep.ClockOffsetE12 = off
		}
	}

	if IsEventFlag(flag) {
		for i := 0; i < nSats; i++ {
			l, ok := p.nextLine()
			if !ok {
				return Epoch{}, newErr(CodeBadFormat, lineNum, fmt.Errorf("truncated event record"))
			}
			ep.EventLines = append(ep.EventLines, l)
		}
		return ep, nil
	}

	for i := 0; i < nSats; i++ {
		bodyLine, ok := p.nextLine()
		if !ok {
			return Epoch{}, newErr(CodeBadFormat, lineNum, fmt.Errorf("truncated observation body"))
		}
		bodyLine = padTo(bodyLine, 3)
		sat := bodyLine[0:3]
		sys := sat[0]
		codes := p.header.Codes.Codes(sys)

		rest := bodyLine[3:]
		for j, code := range codes {
			start := j * 16
			if start >= len(rest) {
				break
			}
			slot := padTo(rest[start:min(start+16, len(rest))], 16)
			if strings.TrimSpace(slot[:14]) == "" {
				continue
			}
			val := leb128.ParseObs([]byte(slot[0:14]))
			obs := Observation{
				Signal: NewSignalID(sat, code.Code),
				Value:  val,
				LLI:    orSpace(slot[14]),
				SSI:    orSpace(slot[15]),
			}
			ep.Observations = append(ep.Observations, obs)
		}
	}

	return ep, nil
}

func orSpace(b byte) byte {
	if b == 0 {
		return ' '
	}
	return b
}

// normalizeLines maps CR, LF, CRLF all to a single line break, trims
// trailing spaces and tabs on each line, and drops lines left empty. It
// expects raw without the stream's zero padding, as Drain returns it.
func normalizeLines(raw []byte) []string {
	s := strings.ReplaceAll(string(raw), "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	parts := strings.Split(s, "\n")
	out := make([]string, 0, len(parts))
	for _, l := range parts {
		l = strings.TrimRight(l, " \t")
		if l == "" {
			continue
		}
		out = append(out, l)
	}
	return out
}

