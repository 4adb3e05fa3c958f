package profile

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// maxBest is the largest time that fits the "m:ss.ss" layout.
const maxBest = 9*time.Minute + 59*time.Second + 990*time.Millisecond

// ParseTime reads a stored personal best in the fixed "m:ss.ss" layout and
// returns it in seconds. ok is false for "--" and every malformed value.
func ParseTime(s string) (seconds decimal.Decimal, ok bool) {
	if len(s) != 7 || s[1] != ':' || s[4] != '.' {
		return decimal.Zero, false
	}
	for i := range len(s) {
		if i != 1 && i != 4 && (s[i] < '0' || s[i] > '9') {
			return decimal.Zero, false
		}
	}
	minutes := int64(s[0] - '0')
	secs, err := decimal.NewFromString(s[2:])
	if err != nil || secs.GreaterThanOrEqual(decimal.NewFromInt(60)) {
		return decimal.Zero, false
	}
	return decimal.NewFromInt(minutes * 60).Add(secs), true
}

// FormatTime renders d as "m:ss.ss", rounded to hundredths and capped at
// 9:59.99.
func FormatTime(d time.Duration) string {
	d = min(max(d, 0), maxBest)
	hundredths := d.Round(10*time.Millisecond).Milliseconds() / 10
	return fmt.Sprintf("%d:%02d.%02d", hundredths/6000, (hundredths%6000)/100, hundredths%100)
}

// IsImprovement reports whether elapsed beats the stored best. A missing or
// malformed stored value is beaten by any time.
func IsImprovement(stored string, elapsed time.Duration) bool {
	best, ok := ParseTime(stored)
	if !ok {
		return true
	}
	current, _ := ParseTime(FormatTime(elapsed))
	return current.LessThan(best)
}
