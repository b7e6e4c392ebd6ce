// Package rinex provides a streaming parser for RINEX observation files,
// versions 2.xx and 3.xx.
package rinex

import (
	"strconv"
	"strings"
)

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
