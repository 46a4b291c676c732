// Package timecode parses seek expressions and formats track positions.
package timecode

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrInvalid is returned for an expression that is not a recognised time.
var ErrInvalid = errors.New("invalid time format")

// Seek is a parsed seek target. Relative targets are offsets from the
// current position.
type Seek struct {
	Offset   time.Duration
	Relative bool
}

// Apply returns the absolute target for a track currently at pos.
func (s Seek) Apply(pos time.Duration) time.Duration {
	if s.Relative {
		return pos + s.Offset
	}
	return s.Offset
}

var unitsRe = regexp.MustCompile(`^(?:(\d+)h)?(?:(\d+)m)?(?:(\d+)s)?$`)

// Parse accepts HH:MM:SS, MM:SS, 1h2m3s style units, a bare number of
// seconds, and any of those prefixed by + or - for a relative seek.
func Parse(expr string) (Seek, error) {
	expr = strings.ToLower(strings.TrimSpace(expr))
	if expr == "" {
		return Seek{}, ErrInvalid
	}

	var s Seek
	sign := time.Duration(1)
	switch expr[0] {
	case '+':
		s.Relative = true
		expr = expr[1:]
	case '-':
		s.Relative = true
		sign = -1
		expr = expr[1:]
	}
	if expr == "" {
		return Seek{}, ErrInvalid
	}

	d, err := parseAbsolute(expr)
	if err != nil {
		return Seek{}, fmt.Errorf("%w: %q", ErrInvalid, expr)
	}
	s.Offset = sign * d
	return s, nil
}

func parseAbsolute(expr string) (time.Duration, error) {
	if strings.Contains(expr, ":") {
		return parseClock(expr)
	}
	if n, err := strconv.Atoi(expr); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	m := unitsRe.FindStringSubmatch(expr)
	if m == nil {
		return 0, ErrInvalid
	}
	var d time.Duration
	for i, unit := range []time.Duration{time.Hour, time.Minute, time.Second} {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0, err
		}
		d += time.Duration(n) * unit
	}
	return d, nil
}

func parseClock(expr string) (time.Duration, error) {
	parts := strings.Split(expr, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, ErrInvalid
	}
	var total int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, ErrInvalid
		}
		// minutes and seconds after the leading field must be below 60
		if i > 0 && n >= 60 {
			return 0, ErrInvalid
		}
		total = total*60 + n
	}
	return time.Duration(total) * time.Second, nil
}

// Format renders d as HH:MM:SS.
func Format(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	h, rem := secs/3600, secs%3600
	return fmt.Sprintf("%02d:%02d:%02d", h, rem/60, rem%60)
}

// Clamp limits d to [0, limit].
func Clamp(d, limit time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if d > limit {
		return limit
	}
	return d
}
