// Package timecode converts between "MM:SS" strings and whole seconds.
//
// Parsing is total: anything that is not exactly two ':'-separated
// non-negative integers degrades to 0 instead of failing.
package timecode

import (
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Parse returns minutes*60+seconds for a "MM:SS" string, or 0 when s is malformed.
func Parse(s string) int {
	n, _ := parse(s)
	return n
}

// ParseLogged is Parse, but a malformed non-empty input is reported on logger.
func ParseLogged(s string, logger *zap.Logger) int {
	n, ok := parse(s)
	if !ok && logger != nil && strings.TrimSpace(s) != "" {
		logger.Warn("malformed timecode, using 0", zap.String("timecode", s))
	}
	return n
}

// Valid reports whether s is a well-formed "MM:SS" timecode.
func Valid(s string) bool {
	_, ok := parse(s)
	return ok
}

// Format renders seconds as unpadded minutes and two-digit seconds ("1:05").
// Negative input is clamped to 0.
func Format(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	sec := strconv.Itoa(seconds % 60)
	if len(sec) == 1 {
		sec = "0" + sec
	}
	return strconv.Itoa(seconds/60) + ":" + sec
}

// Normalize returns the canonical form of s.
func Normalize(s string) string {
	return Format(Parse(s))
}

// maxMinutes bounds the minutes field so minutes*60+seconds cannot overflow.
const maxMinutes = math.MaxInt / 60

func parse(s string) (int, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, false
	}
	minutes, ok := nonNegative(parts[0])
	if !ok {
		return 0, false
	}
	seconds, ok := nonNegative(parts[1])
	if !ok || minutes > maxMinutes {
		return 0, false
	}
	total := minutes * 60
	if seconds > math.MaxInt-total {
		return 0, false
	}
	return total + seconds, true
}

func nonNegative(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
