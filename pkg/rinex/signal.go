package rinex

// SignalID is an 8-byte packed identifier combining a satellite name (system
// letter + two-digit number, bytes 0-2) and an observation code (type
// letter, frequency digit, optional attribute; bytes 3-6, NUL-padded), byte
// 7 unused. The packed form is the canonical comparison/hash key.
type SignalID [8]byte

// NewSignalID packs a satellite name ("G01") and an observation code
// ("L1C" or "L1") into a SignalID.
func NewSignalID(satName, code string) SignalID {
	var id SignalID
	copy(id[0:3], satName)
	copy(id[3:7], code)
	return id
}

// Satellite returns the 3-character satellite name component.
func (id SignalID) Satellite() string {
	return trimNul(id[0:3])
}

// Code returns the observation-code component.
func (id SignalID) Code() string {
	return trimNul(id[3:7])
}

func trimNul(b []byte) string {
	n := len(b)
	for n > 0 && b[n-1] == 0 {
		n--
	}
	return string(b[:n])
}

// ObsCode is a single observation code entry from a file header's
// observation-code table, as declared for one satellite system.
type ObsCode struct {
	Code string // e.g. "L1", "C1C"
}

// ObsCodeTable holds, per satellite system letter, the ordered list of
// observation codes declared for that system by the header. It is indexed
// by the low five bits of the system letter (32 buckets), per the data
// model's packed-index convention.
type ObsCodeTable [32][]ObsCode

func sysIndex(letter byte) int {
	return int(letter & 0x1f)
}

// Codes returns the observation codes declared for the given system letter.
func (t *ObsCodeTable) Codes(letter byte) []ObsCode {
	return t[sysIndex(letter)]
}

// Set replaces the observation codes declared for the given system letter.
func (t *ObsCodeTable) Set(letter byte, codes []ObsCode) {
	t[sysIndex(letter)] = codes
}

// IndexOf returns the position of code within the system's observation-code
// list, or -1 if absent.
func (t *ObsCodeTable) IndexOf(letter byte, code string) int {
	for i, c := range t[sysIndex(letter)] {
		if c.Code == code {
			return i
		}
	}
	return -1
}
