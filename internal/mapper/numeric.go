package mapper

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var numberRe = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

// magnitudeWords maps suffix tokens to multipliers, longest-match
// first. Word tokens must be checked before the single letters they
// start with ("bin" before "b", "milyon" before "m").
var magnitudeWords = []struct {
	token string
	mult  float64
}{
	{"milyar", 1e9},
	{"billion", 1e9},
	{"milyon", 1e6},
	{"million", 1e6},
	{"thousand", 1e3},
	{"bin", 1e3},
	{"b", 1e9},
	{"m", 1e6},
	{"k", 1e3},
}

// ExtractNumber pulls the first decimal-capable number out of free
// text, applies a magnitude suffix when one follows it, and floors the
// result at zero. A comma is treated as the decimal separator.
// "15 million" → 15000000, "2.5k" → 2500, "3,2 milyar TL" → 3200000000,
// no digits → 0.
func ExtractNumber(text string) float64 {
	s := Normalize(text)
	loc := numberRe.FindStringIndex(s)
	if loc == nil {
		return 0
	}

	numStr := strings.ReplaceAll(s[loc[0]:loc[1]], ",", ".")
	n, err := strconv.ParseFloat(numStr, 64)
	if err != nil {
		return 0
	}

	n *= magnitudeOf(strings.TrimSpace(s[loc[1]:]))
	if n < 0 {
		return 0
	}
	return math.Floor(n)
}

// magnitudeOf returns the multiplier for the token at the start of
// rest, or 1 when no suffix follows the number.
func magnitudeOf(rest string) float64 {
	for _, m := range magnitudeWords {
		if !strings.HasPrefix(rest, m.token) {
			continue
		}
		// The token must end at a word boundary: "2.5k" and "2 bin TL"
		// carry suffixes, "15 kg boxes" does not declare thousands.
		tail := rest[len(m.token):]
		if tail == "" || !isLetter(tail[0]) {
			return m.mult
		}
	}
	return 1
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}
