package services

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// numberPrefixRegexp matches the leading decimal number of a metric string,
// the same prefix a browser's parseFloat would consume.
var numberPrefixRegexp = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?`)

var suffixMultipliers = map[byte]float64{
	'K': 1e3,
	'M': 1e6,
	'B': 1e9,
}

// ParseShorthand converts a shorthand count such as "12.3K" or "2M" into a number.
// Unparseable input yields 0; the result is never negative.
func ParseShorthand(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}

	factor := 1.0
	if m, ok := suffixMultipliers[upper(s[len(s)-1])]; ok {
		factor = m
	}

	match := numberPrefixRegexp.FindString(strings.ReplaceAll(s, ",", ""))
	if match == "" {
		return 0
	}
	n, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}

	v := n * factor
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - ('a' - 'A')
	}
	return b
}
