package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aarondl/opt/null"
	"github.com/shopspring/decimal"
)

var ErrInvalidLap = errors.New("invalid lap time")

// LapTime is a lap in seconds. The null state means no time was set.
type LapTime = null.Val[float64]

var sixty = decimal.NewFromInt(60)

// ParseLap converts "M:SS.mmm" (or plain "SS.mmm") into seconds.
// An empty input yields the null state. Malformed input yields the null
// state together with ErrInvalidLap.
func ParseLap(s string) (LapTime, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == `\N` {
		return null.Val[float64]{}, nil
	}
	minutes, seconds, found := strings.Cut(s, ":")
	if !found {
		minutes, seconds = "0", s
	}
	m, err := decimal.NewFromString(minutes)
	if err != nil || m.IsNegative() || !m.IsInteger() {
		return null.Val[float64]{}, fmt.Errorf("%w: %q", ErrInvalidLap, s)
	}
	sec, err := decimal.NewFromString(seconds)
	if err != nil || sec.IsNegative() || (found && sec.GreaterThanOrEqual(sixty)) {
		return null.Val[float64]{}, fmt.Errorf("%w: %q", ErrInvalidLap, s)
	}
	return null.From(m.Mul(sixty).Add(sec).InexactFloat64()), nil
}

// MustParseLap is intended for tests and fixtures
func MustParseLap(s string) LapTime {
	l, err := ParseLap(s)
	if err != nil {
		panic(err)
	}
	return l
}

// FormatLap renders seconds as M:SS.mmm. A null lap renders as empty string.
func FormatLap(l LapTime) string {
	v, ok := l.Get()
	if !ok {
		return ""
	}
	d := decimal.NewFromFloat(v).Round(3)
	m := d.Div(sixty).Floor()
	sec := d.Sub(m.Mul(sixty))
	secs := sec.StringFixed(3)
	if sec.LessThan(decimal.NewFromInt(10)) {
		secs = "0" + secs
	}
	return m.String() + ":" + secs
}

// BestLap returns the fastest valid lap of the given session laps.
// Unparsable entries are ignored.
func BestLap(laps ...string) LapTime {
	var best LapTime
	for _, s := range laps {
		l, err := ParseLap(s)
		if err != nil || l.IsNull() {
			continue
		}
		if best.IsNull() || l.MustGet() < best.MustGet() {
			best = l
		}
	}
	return best
}

// FinalLap returns the lap of the last session reached.
// The arguments are expected in session order (q1, q2, q3).
func FinalLap(laps ...string) LapTime {
	for i := len(laps) - 1; i >= 0; i-- {
		l, err := ParseLap(laps[i])
		if err == nil && l.IsValue() {
			return l
		}
	}
	return null.Val[float64]{}
}
