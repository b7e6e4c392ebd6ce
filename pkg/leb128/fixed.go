package leb128

import "fmt"

// ParseUint parses a fixed-width unsigned integer field: leading spaces are
// allowed, thereafter only digits; a space following a digit, or any
// non-digit/non-space character, is an error. An all-blank field parses as
// zero.
func ParseUint(field []byte) (int, error) {
	value := 0
	seenDigit := false
	for _, c := range field {
		switch {
		case c == ' ':
			if seenDigit {
				return 0, fmt.Errorf("leb128: space after digit in %q", field)
			}
		case c >= '0' && c <= '9':
			seenDigit = true
			value = value*10 + int(c-'0')
		default:
			return 0, fmt.Errorf("leb128: invalid digit %q in %q", c, field)
		}
	}
	return value, nil
}

// ParseFixed parses an ASCII fixed-point decimal field: width-frac-1 digits
// before a literal '.', frac digits after it, scaled by 10^frac. Leading
// spaces and an optional minus sign before the integer part are allowed;
// trailing spaces or a terminating newline in the fractional part are
// treated as zero digits.
func ParseFixed(field []byte, width, frac int) (int64, error) {
	if len(field) > width {
		field = field[:width]
	}

	idx := 0
	for idx < len(field) && field[idx] == ' ' {
		idx++
	}

	neg := false
	if idx < len(field) && field[idx] == '-' {
		neg = true
		idx++
	}

	var value int64
	for idx < len(field) && field[idx] != '.' {
		c := field[idx]
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("leb128: invalid digit %q in %q", c, field)
		}
		value = value*10 + int64(c-'0')
		idx++
	}

	if idx >= len(field) || field[idx] != '.' {
		return 0, fmt.Errorf("leb128: missing decimal point in %q", field)
	}
	idx++

	fracDigits := 0
	for idx < len(field) && fracDigits < frac {
		c := field[idx]
		if c == ' ' || c == '\n' {
			break
		}
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("leb128: invalid digit %q in %q", c, field)
		}
		value = value*10 + int64(c-'0')
		fracDigits++
		idx++
	}
	for ; fracDigits < frac; fracDigits++ {
		value *= 10
	}

	if neg {
		value = -value
	}
	return value, nil
}

// ParseObs parses a 14.3 fixed-point RINEX observation field, scaled by
// 1000. It returns SentinelObs on any malformed input instead of an error,
// matching the parser's "blank or unparsable observation" convention.
func ParseObs(field []byte) int64 {
	v, err := ParseFixed(field, 14, 3)
	if err != nil {
		return SentinelObs
	}
	return v
}
