package srnx

import (
	"strings"
	"testing"

	"github.com/de-bkg/gosrnx/pkg/leb128"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func minimalHeaderText(t *testing.T) []byte {
	t.Helper()
	hdr := v2Header(padHeaderLine("     1    L1", "# / TYPES OF OBSERV"))
	return []byte(hdr)
}

func buildMinimalSRNX(t *testing.T, major uint64) []byte {
	t.Helper()
	var prelude []byte
	prelude = leb128.EncodeUint(prelude, major)
	prelude = leb128.EncodeUint(prelude, 0)
	prelude = leb128.EncodeUint(prelude, 0)
	prelude = leb128.EncodeUint(prelude, 0)

	var out []byte
	out = appendChunk(out, TagSRNX, prelude)
	out = appendChunk(out, TagRHDR, minimalHeaderText(t))
	out = appendChunk(out, TagEPOC, leb128.EncodeUint(nil, 0))
	return out
}

func TestOpenStreamBadMajor(t *testing.T) {
	raw := buildMinimalSRNX(t, 2)
	r, err := OpenStream(newStream(t, raw))
	assert.Nil(t, r)
	require.Error(t, err)
	ce, ok := err.(*CodeError)
	require.True(t, ok)
	assert.Equal(t, CodeBadMajor, ce.Code)
}

func TestOpenStreamRejectsWrongFirstChunk(t *testing.T) {
	var out []byte
	out = appendChunk(out, TagRHDR, minimalHeaderText(t))
	_, err := OpenStream(newStream(t, out))
	require.Error(t, err)
	ce, ok := err.(*CodeError)
	require.True(t, ok)
	assert.Equal(t, CodeBadFormat, ce.Code)
}

func TestGetSatellitesEmpty(t *testing.T) {
	raw := buildMinimalSRNX(t, 1)
	r := openReader(t, raw)
	sats, err := r.GetSatellites()
	require.NoError(t, err)
	assert.Empty(t, sats)
}

func TestFindSOCDUnknownSatellite(t *testing.T) {
	raw := buildMinimalSRNX(t, 1)
	r := openReader(t, raw)
	var name SatelliteName
	copy(name[:], "G99")
	_, err := r.FindSOCD(name, "L1")
	require.Error(t, err)
	ce, ok := err.(*CodeError)
	require.True(t, ok)
	assert.Equal(t, CodeUnknownSatellite, ce.Code)
}

func TestFindSOCDUnknownCode(t *testing.T) {
	hdr := v2Header(padHeaderLine("     1    L1", "# / TYPES OF OBSERV"))
	var content strings.Builder
	content.WriteString(hdr)
	content.WriteString(epochLineV2(10, 3, 1, 0, 0, 0.0, '0', []string{"G01"}) + "\n")
	content.WriteString(obsLineV2(12345000) + "\n")

	p := openParser(t, content.String())
	encoded, err := Write(p, nil)
	require.NoError(t, err)

	r := openReader(t, encoded)
	var name SatelliteName
	copy(name[:], "G01")
	_, err = r.FindSOCD(name, "C2")
	require.Error(t, err)
	ce, ok := err.(*CodeError)
	require.True(t, ok)
	assert.Equal(t, CodeUnknownCode, ce.Code)
}
