package moderation

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidDuration = errors.New("invalid duration, use forms like 30s, 10m, 2h, 1d or 1h30m")

// MaxDuration bounds a timed mute; longer ones should be permanent.
const MaxDuration = 365 * 24 * time.Hour

var ErrDurationTooLong = errors.New("duration too long, the limit is 365d")

var durationPart = regexp.MustCompile(`(\d+)([smhd])`)

var durationUnits = map[string]time.Duration{
	"s": time.Second,
	"m": time.Minute,
	"h": time.Hour,
	"d": 24 * time.Hour,
}

// ParseDuration sums every <number><unit> group in s, so "1h30m" and
// "1h 30m" are both ninety minutes. Input without any group is rejected,
// as is anything above MaxDuration.
func ParseDuration(s string) (time.Duration, error) {
	matches := durationPart.FindAllStringSubmatch(strings.ToLower(s), -1)
	if len(matches) == 0 {
		return 0, ErrInvalidDuration
	}

	var total time.Duration
	for _, m := range matches {
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return 0, ErrDurationTooLong
		}
		unit := durationUnits[m[2]]
		if n > int64(MaxDuration/unit) {
			return 0, ErrDurationTooLong
		}
		total += time.Duration(n) * unit
		if total > MaxDuration {
			return 0, ErrDurationTooLong
		}
	}
	if total <= 0 {
		return 0, ErrInvalidDuration
	}
	return total, nil
}
