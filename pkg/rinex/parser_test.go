package rinex

import (
	"fmt"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/de-bkg/gosrnx/pkg/bytestream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openFromString(t *testing.T, content string) *Parser {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "rinex-*.obs")
	require.NoError(t, err)
	_, err = f.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	s, err := bytestream.OpenBuffered(f.Name())
	require.NoError(t, err)

	p, err := Open(s)
	require.NoError(t, err)
	return p
}

func padHeaderLine(val, label string) string {
	if len(val) < 60 {
		val = val + strings.Repeat(" ", 60-len(val))
	}
	return val + label + strings.Repeat(" ", 20-len(label))
}

func v2HeaderWithTypes(typesLine string) string {
	var b strings.Builder
	b.WriteString(padHeaderLine("     2.11           OBSERVATION DATA    G (GPS)             ", "RINEX VERSION / TYPE") + "\n")
	b.WriteString(typesLine + "\n")
	b.WriteString(padHeaderLine("", "END OF HEADER") + "\n")
	return b.String()
}

func v2MixedHeaderWithTypes(typesLine string) string {
	var b strings.Builder
	b.WriteString(padHeaderLine("     2.11           OBSERVATION DATA    M (MIXED)           ", "RINEX VERSION / TYPE") + "\n")
	b.WriteString(typesLine + "\n")
	b.WriteString(padHeaderLine("", "END OF HEADER") + "\n")
	return b.String()
}

// TestParseHeaderObsTypesV2Mixed pins the 'M' mixed-system fan-out: codes
// declared under a single "# / TYPES OF OBSERV" table must end up
// registered for every real system (G/R/S/E), not under the literal
// letter 'M', or readEpochV2's per-satellite code lookup would come up
// empty for every observation in the file.
func TestParseHeaderObsTypesV2Mixed(t *testing.T) {
	typesLine := "     2    L1    C1                                          # / TYPES OF OBSERV"
	p := openFromString(t, v2MixedHeaderWithTypes(typesLine))

	for _, letter := range []byte{'G', 'R', 'S', 'E'} {
		codes := p.Header().Codes.Codes(letter)
		require.Lenf(t, codes, 2, "system %q", string(letter))
		assert.Equal(t, []string{"L1", "C1"}, codesToStrings(codes))
	}
	assert.Empty(t, p.Header().Codes.Codes('M'))
}

func TestParseHeaderObsTypesV2(t *testing.T) {
	typesLine := "     5    L1    L2    C1    P1    P2                        # / TYPES OF OBSERV"
	p := openFromString(t, v2HeaderWithTypes(typesLine))

	codes := p.Header().Codes.Codes('G')
	require.Len(t, codes, 5)
	assert.Equal(t, []string{"L1", "L2", "C1", "P1", "P2"}, codesToStrings(codes))
}

func codesToStrings(codes []ObsCode) []string {
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = c.Code
	}
	return out
}

func TestParseEpochV2(t *testing.T) {
	typesLine := "     1    L1                                                # / TYPES OF OBSERV"
	hdr := v2HeaderWithTypes(typesLine)

	epochLine := " 10  3  1  0  0  0.0000000  0  3G01G02G05" + strings.Repeat(" ", 80-42) + "\n"
	body := strings.Repeat("  23619095.450  "+strings.Repeat(" ", 80-16)+"\n", 3)
	content := hdr + epochLine + body

	p := openFromString(t, content)
	ep, err := p.Read()
	require.NoError(t, err)

	assert.Equal(t, 20100301, ep.Date)
	assert.Equal(t, 0, ep.HourMin)
	assert.Equal(t, int64(0), ep.SecE7)
	assert.Equal(t, byte('0'), ep.Flag)
	assert.Equal(t, 3, ep.NSats)
	require.Len(t, ep.Observations, 3)
	for i, name := range []string{"G01", "G02", "G05"} {
		assert.Equal(t, name, ep.Observations[i].Signal.Satellite())
		assert.Equal(t, int64(23619095450), ep.Observations[i].Value)
	}

	_, err = p.Read()
	assert.ErrorIs(t, err, io.EOF)
}

// TestParseEpochV2ClockOffset pins the v2 clock-offset column slice to
// [68:80): a 12-column field that must include its leading sign/space
// character rather than dropping it.
func TestParseEpochV2ClockOffset(t *testing.T) {
	typesLine := "     1    L1                                                # / TYPES OF OBSERV"
	hdr := v2HeaderWithTypes(typesLine)

	line := []byte(padTo(" 10  3  1  0  0  0.0000000  0  1G01", 80))
	copy(line[68:80], []byte("-0.123456789"))
	epochLine := string(line) + "\n"
	body := "  23619095.450  " + strings.Repeat(" ", 80-16) + "\n"
	content := hdr + epochLine + body

	p := openFromString(t, content)
	ep, err := p.Read()
	require.NoError(t, err)
	assert.Equal(t, int64(-123456789000), ep.ClockOffsetE12)
}

func v3HeaderWithTypes(sysLine string) string {
	var b strings.Builder
	b.WriteString(padHeaderLine("     3.04           OBSERVATION DATA    G (GPS)             ", "RINEX VERSION / TYPE") + "\n")
	b.WriteString(sysLine + "\n")
	b.WriteString(padHeaderLine("", "END OF HEADER") + "\n")
	return b.String()
}

// v3EpochLine builds a fixed-column v3 epoch line: '>' at 0, the date/time
// fields, a seconds field ending (at column 28) in the digit the parser
// reads as the epoch flag, a real flag digit at column 31 (the column the
// parser validity-checks but does not read from), and n_sats at [32:35).
func v3EpochLine(nSats int) string {
	b := []byte(strings.Repeat(" ", 80))
	b[0] = '>'
	copy(b[2:6], "2010")
	copy(b[7:9], "03")
	copy(b[10:12], "01")
	copy(b[13:15], "00")
	copy(b[16:18], "00")
	copy(b[18:29], " 00.0000000")
	b[31] = '0'
	copy(b[32:35], []byte(fmt.Sprintf("%3d", nSats)))
	return string(b)
}

func TestParseEpochV3(t *testing.T) {
	sysLine := padHeaderLine("G    1 C1C", "SYS / # / OBS TYPES")
	hdr := v3HeaderWithTypes(sysLine)

	epochLine := v3EpochLine(1) + "\n"
	body := "G01  23619095.450  " + strings.Repeat(" ", 80-20) + "\n"
	content := hdr + epochLine + body

	p := openFromString(t, content)
	ep, err := p.Read()
	require.NoError(t, err)

	assert.Equal(t, 20100301, ep.Date)
	assert.Equal(t, 0, ep.HourMin)
	assert.Equal(t, byte('0'), ep.Flag)
	assert.Equal(t, 1, ep.NSats)
	require.Len(t, ep.Observations, 1)
	assert.Equal(t, "G01", ep.Observations[0].Signal.Satellite())
	assert.Equal(t, int64(23619095450), ep.Observations[0].Value)

	_, err = p.Read()
	assert.ErrorIs(t, err, io.EOF)
}

// TestParseEpochV3ShortLine exercises readEpochV3's len(line) < 35 guard: a
// v3 epoch line that ends before the n_sats column must report
// CodeBadFormat instead of panicking on an out-of-range slice.
func TestParseEpochV3ShortLine(t *testing.T) {
	sysLine := padHeaderLine("G    1 C1C", "SYS / # / OBS TYPES")
	hdr := v3HeaderWithTypes(sysLine)
	content := hdr + "> 2010 03 01 00 00\n"

	p := openFromString(t, content)
	_, err := p.Read()
	var ce *CodeError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, CodeBadFormat, ce.Code)
}
