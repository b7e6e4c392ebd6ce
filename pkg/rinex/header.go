package rinex

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/de-bkg/gosrnx/pkg/gnss"
	"github.com/sirupsen/logrus"
)

const headerDateFormat = "20060102 150405 MST"

// Position is a station's approximate geocentric position, in meters.
type Position struct {
	X, Y, Z float64
}

// AntennaDelta holds the antenna eccentricities relative to the marker, in
// meters.
type AntennaDelta struct {
	Up, E, N float64
}

// ObsHeader is the decoded RINEX observation file header. Only the fields
// needed to define the observation-code table are mandated by the data
// model; the remainder are ambient fields a complete reader also exposes.
type ObsHeader struct {
	Version   int // 2 or 3
	FileType  string
	SatSystem gnss.System

	Pgm      string
	RunBy    string
	Date     time.Time
	Comments []string
	Labels   []string

	MarkerName   string
	MarkerNumber string
	MarkerType   string

	Observer string
	Agency   string

	ReceiverNumber  string
	ReceiverType    string
	ReceiverVersion string

	AntennaNumber string
	AntennaType   string
	Position      Position
	AntennaDelta  AntennaDelta

	SignalStrengthUnit string
	Interval           float64

	TimeOfFirstObs time.Time
	TimeOfLastObs  time.Time

	GloSlots map[string]int

	LeapSeconds int
	NSatellites int

	Codes ObsCodeTable
}

func parseHeaderDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(headerDateFormat, s); err == nil {
		return t, nil
	}
	return time.Parse("02-Jan-2006 15:04", s)
}

// ParseHeaderBytes normalizes and parses a raw RHDR chunk payload (or any
// standalone RINEX header text) into an ObsHeader, without requiring a full
// Parser/byte-stream. Used by the SRNX reader, whose RHDR chunk stores the
// normalized header verbatim.
func ParseHeaderBytes(raw []byte) (*ObsHeader, error) {
	lines := normalizeLines(raw)
	return parseHeader(lines, logrus.StandardLogger())
}

// parseHeader walks normalized header lines (CR/LF collapsed to LF, trailing
// spaces trimmed, each line's length already validated to be within
// [61,80]) and populates an ObsHeader, including the per-system
// observation-code table.
func parseHeader(lines []string, log logrus.FieldLogger) (*ObsHeader, error) {
	hdr := &ObsHeader{GloSlots: map[string]int{}}
	var rememberSys byte

	for lineNum, line := range lines {
		if len(line) < 61 {
			return nil, newErr(CodeBadFormat, lineNum+1, fmt.Errorf("header line too short"))
		}
		val := line[:60]
		key := strings.TrimSpace(line[60:])
		hdr.Labels = append(hdr.Labels, key)

		switch key {
		case "RINEX VERSION / TYPE":
			f, err := strconv.ParseFloat(strings.TrimSpace(val[:9]), 64)
			if err != nil {
				return nil, newErr(CodeBadFormat, lineNum+1, err)
			}
			hdr.Version = int(f)
			if hdr.Version != 2 && hdr.Version != 3 {
				return nil, newErr(CodeUnknownVersion, lineNum+1, nil)
			}
			hdr.FileType = strings.TrimSpace(val[20:21])
			if hdr.FileType != "O" {
				return nil, newErr(CodeNotObservation, lineNum+1, nil)
			}
			sysLetter := strings.TrimSpace(val[40:41])
			if sysLetter == "" {
				hdr.SatSystem = gnss.SysGPS
			} else if sys, ok := gnss.SystemByAbbr(sysLetter); ok {
				hdr.SatSystem = sys
			} else {
				return nil, newErr(CodeBadFormat, lineNum+1, fmt.Errorf("unknown satellite system %q", sysLetter))
			}
		case "PGM / RUN BY / DATE":
			hdr.Pgm = strings.TrimSpace(val[:20])
			hdr.RunBy = strings.TrimSpace(val[20:40])
			if t, err := parseHeaderDate(val[40:]); err == nil {
				hdr.Date = t
			}
		case "COMMENT":
			hdr.Comments = append(hdr.Comments, strings.TrimSpace(val))
		case "MARKER NAME":
			hdr.MarkerName = strings.TrimSpace(val)
		case "MARKER NUMBER":
			hdr.MarkerNumber = strings.TrimSpace(val[:20])
		case "MARKER TYPE":
			hdr.MarkerType = strings.TrimSpace(val[:20])
		case "OBSERVER / AGENCY":
			hdr.Observer = strings.TrimSpace(val[:20])
			hdr.Agency = strings.TrimSpace(val[20:])
		case "REC # / TYPE / VERS":
			hdr.ReceiverNumber = strings.TrimSpace(val[:20])
			hdr.ReceiverType = strings.TrimSpace(val[20:40])
			hdr.ReceiverVersion = strings.TrimSpace(val[40:])
		case "ANT # / TYPE":
			hdr.AntennaNumber = strings.TrimSpace(val[:20])
			hdr.AntennaType = strings.TrimSpace(val[20:40])
		case "APPROX POSITION XYZ":
			pos := strings.Fields(val)
			if len(pos) != 3 {
				return nil, newErr(CodeBadFormat, lineNum+1, fmt.Errorf("approx position"))
			}
			hdr.Position.X, _ = parseFloat(pos[0])
			hdr.Position.Y, _ = parseFloat(pos[1])
			hdr.Position.Z, _ = parseFloat(pos[2])
		case "ANTENNA: DELTA H/E/N":
			ecc := strings.Fields(val)
			if len(ecc) == 3 {
				hdr.AntennaDelta.Up, _ = parseFloat(ecc[0])
				hdr.AntennaDelta.E, _ = parseFloat(ecc[1])
				hdr.AntennaDelta.N, _ = parseFloat(ecc[2])
			}
		case "# / TYPES OF OBSERV": // RINEX-2
			// A mixed-system ('M') header fans its observation types out to
			// all of G/R/S/E rather than registering them under the literal
			// letter 'M' (a blank system letter already resolves to GPS
			// above, so no separate blank case is needed here).
			letters := []byte{hdr.SatSystem.Abbr()[0]}
			if hdr.SatSystem == gnss.SysMIXED {
				letters = []byte{'G', 'R', 'S', 'E'}
			}
			codes := stringsToCodes(strings.Fields(val[6:]))
			first := strings.TrimSpace(val[:6]) != ""
			for _, letter := range letters {
				if first {
					hdr.Codes.Set(letter, nil)
				}
				hdr.Codes.Set(letter, append(hdr.Codes.Codes(letter), codes...))
			}
		case "SYS / # / OBS TYPES": // RINEX-3
			var letter byte
			if val[0] == ' ' {
				letter = rememberSys
			} else {
				letter = val[0]
				rememberSys = letter
				hdr.Codes.Set(letter, nil)
			}
			hdr.Codes.Set(letter, append(hdr.Codes.Codes(letter), stringsToCodes(strings.Fields(val[6:]))...))
		case "SIGNAL STRENGTH UNIT":
			hdr.SignalStrengthUnit = strings.TrimSpace(val[:20])
		case "INTERVAL":
			hdr.Interval, _ = parseFloat(val[:10])
		case "TIME OF FIRST OBS":
			if t, err := time.Parse(epochTimeFormat, strings.TrimSpace(val[:43])); err == nil {
				hdr.TimeOfFirstObs = t
			}
		case "TIME OF LAST OBS":
			if t, err := time.Parse(epochTimeFormat, strings.TrimSpace(val[:43])); err == nil {
				hdr.TimeOfLastObs = t
			}
		case "GLONASS SLOT / FRQ #":
			fields := strings.Fields(val[4:])
			for i := 0; i+1 < len(fields); i += 2 {
				n, err := strconv.Atoi(fields[i+1])
				if err == nil {
					hdr.GloSlots[fields[i]] = n
				}
			}
		case "LEAP SECONDS":
			if n, err := strconv.Atoi(strings.TrimSpace(val[:6])); err == nil {
				hdr.LeapSeconds = n
			}
		case "# OF SATELLITES":
			if n, err := strconv.Atoi(strings.TrimSpace(val[:6])); err == nil {
				hdr.NSatellites = n
			}
		case "END OF HEADER":
			// handled by caller; terminates the walk
		default:
			log.WithField("label", key).Debug("unhandled RINEX header label")
		}
	}

	if hdr.Version == 0 {
		return nil, newErr(CodeBadFormat, 0, fmt.Errorf("missing RINEX VERSION / TYPE"))
	}
	return hdr, nil
}

func stringsToCodes(fields []string) []ObsCode {
	out := make([]ObsCode, 0, len(fields))
	for _, f := range fields {
		out = append(out, ObsCode{Code: f})
	}
	return out
}

const epochTimeFormat = "2006  1  2 15  4  5.0000000"
