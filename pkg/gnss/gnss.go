// Package gnss contains common constants and type definitions shared by the
// RINEX parser and the SRNX container format.
package gnss

import (
	"fmt"
	"strings"
)

// System is a satellite system.
type System int

// Available satellite systems.
const (
	SysGPS System = iota + 1
	SysGLO
	SysGAL
	SysQZSS
	SysBDS
	SysNavIC
	SysSBAS
	SysMIXED
)

func (sys System) String() string {
	return [...]string{"", "GPS", "GLO", "GAL", "QZSS", "BDS", "NavIC", "SBAS", "MIXED"}[sys]
}

// Abbr returns the system's one-letter abbreviation as used in RINEX
// satellite and observation-code records.
func (sys System) Abbr() string {
	return [...]string{"", "G", "R", "E", "J", "C", "I", "S", "M"}[sys]
}

// MarshalJSON marshals a System as its RINEX abbreviation.
func (sys System) MarshalJSON() ([]byte, error) {
	return []byte(`"` + sys.Abbr() + `"`), nil
}

// sysPerAbbr maps the RINEX system letter to a System.
var sysPerAbbr = map[string]System{
	"G": SysGPS,
	"R": SysGLO,
	"E": SysGAL,
	"J": SysQZSS,
	"C": SysBDS,
	"I": SysNavIC,
	"S": SysSBAS,
	"M": SysMIXED,
}

// SystemByAbbr returns the System named by a single RINEX system letter.
func SystemByAbbr(abbr string) (System, bool) {
	sys, ok := sysPerAbbr[abbr]
	return sys, ok
}

// SystemByLetter resolves the System for a satellite system letter, the
// same letter the observation-code table (§4.3 bucket-by-letter) is keyed by.
func SystemByLetter(letter byte) (System, bool) {
	return SystemByAbbr(string([]byte{letter}))
}

// Systems specifies a list of satellite systems.
type Systems []System

// String returns the contained systems in sitelog manner GPS+GLO+...
func (syss Systems) String() string {
	str := make([]string, 0, len(syss))
	for _, sys := range syss {
		str = append(str, sys.String())
	}
	return strings.Join(str, "+")
}

// Contains reports whether sys is present in syss.
func (syss Systems) Contains(sys System) bool {
	for _, s := range syss {
		if s == sys {
			return true
		}
	}
	return false
}

// ParseSatSystems parses a satellite-system filter given either as
// full names joined by "+" ("GPS+GLO+GAL") or as RINEX single-letter
// abbreviations, optionally comma-separated ("GR", "G,R").
func ParseSatSystems(s string) (Systems, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '+' || r == ',' })
	syss := make(Systems, 0, len(parts))
	for _, part := range parts {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		if sys, ok := systemByName(name); ok {
			syss = append(syss, sys)
			continue
		}
		for i := 0; i < len(name); i++ {
			sys, ok := SystemByAbbr(string(name[i]))
			if !ok {
				return nil, fmt.Errorf("gnss: unknown satellite system %q", name)
			}
			syss = append(syss, sys)
		}
	}
	return syss, nil
}

func systemByName(name string) (System, bool) {
	for sys := SysGPS; sys <= SysMIXED; sys++ {
		if sys.String() == name {
			return sys, true
		}
	}
	return 0, false
}
