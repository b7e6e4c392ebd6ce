package rinex

import "math"

// SentinelObs is the value an Observation takes when its source field could
// not be parsed.
const SentinelObs = int64(math.MinInt64)

// Observation is a single decoded measurement: the source F14.3 field
// scaled by 1000 and stored as a signed 64-bit integer, accompanied by its
// loss-of-lock and signal-strength indicator bytes (space, 0x20, when
// absent).
type Observation struct {
	Signal SignalID
	Value  int64 // scaled by 1000; SentinelObs on parse failure
	LLI    byte
	SSI    byte
}

// EventFlags in {'2','3','4','5'} mark special-event epoch records; '0' and
// '1' mark ordinary observation epochs; '6' marks a cycle-slip record.
const (
	FlagOK            byte = '0'
	FlagPowerFail     byte = '1'
	FlagMovingAntenna byte = '2'
	FlagNewSite       byte = '3'
	FlagHeaderInfo    byte = '4'
	FlagExternal      byte = '5'
	FlagCycleSlip     byte = '6'
)

// IsEventFlag reports whether flag marks a special-event record (as opposed
// to a normal observation or cycle-slip record).
func IsEventFlag(flag byte) bool {
	return flag >= '2' && flag <= '5'
}

// Epoch is a time-stamped record boundary.
type Epoch struct {
	// Date is packed as yyyy*10000 + mm*100 + dd.
	Date int
	// HourMin is packed as hh*100 + mm.
	HourMin int
	// SecE7 is seconds of the minute, scaled by 1e7.
	SecE7 int64
	// Flag is the ASCII epoch-type indicator, one of '0'..'6'.
	Flag byte
	// NSats is the count of satellite or event lines that follow.
	NSats int
	// ClockOffsetE12 is the signed fractional receiver clock offset,
	// scaled by 1e12.
	ClockOffsetE12 int64

	// Observations holds one entry per present observation, in file
	// order, when Flag is not an event flag.
	Observations []Observation

	// EventLines holds NSats verbatim text lines when Flag is an event
	// flag.
	EventLines []string
}
