package srnx

import (
	"strings"
	"testing"

	"github.com/de-bkg/gosrnx/pkg/rinex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenObsByIndexSequentialRead(t *testing.T) {
	hdr := v2Header(padHeaderLine("     1    L1", "# / TYPES OF OBSERV"))
	var content strings.Builder
	content.WriteString(hdr)
	content.WriteString(epochLineV2(10, 3, 1, 0, 0, 0.0, '0', []string{"G01"}) + "\n")
	content.WriteString(obsLineV2(1000) + "\n")
	content.WriteString(epochLineV2(10, 3, 1, 0, 0, 30.0, '0', nil) + "\n")
	content.WriteString(epochLineV2(10, 3, 1, 0, 1, 0.0, '0', []string{"G01"}) + "\n")
	content.WriteString(obsLineV2(3000) + "\n")

	p := openParser(t, content.String())
	encoded, err := Write(p, nil)
	require.NoError(t, err)

	r := openReader(t, encoded)
	var name SatelliteName
	copy(name[:], "G01")
	obs, err := r.OpenObsByIndex(name, 0)
	require.NoError(t, err)

	v, err := obs.ReadObsValue()
	require.NoError(t, err)
	assert.Equal(t, int64(1000), v)
	lli, ssi := obs.ReadObsSSILLI()
	assert.Equal(t, byte(' '), lli)
	assert.Equal(t, byte(' '), ssi)

	v, err = obs.ReadObsValue()
	require.NoError(t, err)
	assert.Equal(t, rinex.SentinelObs, v)

	v, err = obs.ReadObsValue()
	require.NoError(t, err)
	assert.Equal(t, int64(3000), v)

	_, err = obs.ReadObsValue()
	require.Error(t, err)
	ce, ok := err.(*CodeError)
	require.True(t, ok)
	assert.Equal(t, CodeEndOfData, ce.Code)
}

func TestOpenObsByIndexOutOfRange(t *testing.T) {
	hdr := v2Header(padHeaderLine("     1    L1", "# / TYPES OF OBSERV"))
	var content strings.Builder
	content.WriteString(hdr)
	content.WriteString(epochLineV2(10, 3, 1, 0, 0, 0.0, '0', []string{"G01"}) + "\n")
	content.WriteString(obsLineV2(1000) + "\n")

	p := openParser(t, content.String())
	encoded, err := Write(p, nil)
	require.NoError(t, err)

	r := openReader(t, encoded)
	var name SatelliteName
	copy(name[:], "G01")
	_, err = r.OpenObsByIndex(name, 5)
	require.Error(t, err)
	ce, ok := err.(*CodeError)
	require.True(t, ok)
	assert.Equal(t, CodeUnknownCode, ce.Code)
}
