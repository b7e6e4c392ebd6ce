package srnx

import (
	"os"
	"strings"
	"testing"

	"github.com/de-bkg/gosrnx/pkg/bytestream"
	"github.com/de-bkg/gosrnx/pkg/rinex"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "srnx-*.dat")
	require.NoError(t, err)
	_, err = f.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return f.Name()
}

func openParser(t *testing.T, content string) *rinex.Parser {
	t.Helper()
	path := writeTempFile(t, content)
	s, err := bytestream.OpenBuffered(path)
	require.NoError(t, err)
	p, err := rinex.Open(s)
	require.NoError(t, err)
	return p
}

func newStream(t *testing.T, raw []byte) bytestream.Stream {
	t.Helper()
	path := writeTempFile(t, string(raw))
	s, err := bytestream.OpenBuffered(path)
	require.NoError(t, err)
	return s
}

func openReader(t *testing.T, raw []byte) *Reader {
	t.Helper()
	r, err := OpenStream(newStream(t, raw))
	require.NoError(t, err)
	return r
}

func padHeaderLine(val, label string) string {
	if len(val) < 60 {
		val = val + strings.Repeat(" ", 60-len(val))
	}
	return val + label + strings.Repeat(" ", 20-len(label))
}

// v2Header builds a minimal RINEX-2 observation header declaring typesLine
// (an already-formatted "# / TYPES OF OBSERV" line) as the GPS code table.
func v2Header(typesLine string) string {
	var b strings.Builder
	b.WriteString(padHeaderLine("     2.11           OBSERVATION DATA    G (GPS)             ", "RINEX VERSION / TYPE") + "\n")
	b.WriteString(typesLine + "\n")
	b.WriteString(padHeaderLine("", "END OF HEADER") + "\n")
	return b.String()
}

// v3Header builds a minimal RINEX-3 observation header declaring
// sysLine (a "SYS / # / OBS TYPES" line) as the GPS code table.
func v3Header(sysLine string) string {
	var b strings.Builder
	b.WriteString(padHeaderLine("     3.04           OBSERVATION DATA    M: MIXED            ", "RINEX VERSION / TYPE") + "\n")
	b.WriteString(sysLine + "\n")
	b.WriteString(padHeaderLine("", "END OF HEADER") + "\n")
	return b.String()
}

func padTo80(s string) string {
	if len(s) >= 80 {
		return s[:80]
	}
	return s + strings.Repeat(" ", 80-len(s))
}
