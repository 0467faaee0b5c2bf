package localtime

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

const minutesPerDay = 24 * 60

// ParseHHMM converts "HH:MM" into minutes since midnight.
func ParseHHMM(s string) (int, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, errors.New("expected HH:MM")
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, errors.New("invalid hour")
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, errors.New("invalid minute")
	}
	return h*60 + m, nil
}

// FormatMinutes returns HH:MM for minutes since midnight (00:00..23:59).
func FormatMinutes(mins int) string {
	if mins < 0 {
		mins = 0
	}
	h := mins / 60
	m := mins % 60
	return FormatHHMM(h, m)
}

func FormatHHMM(h, m int) string {
	return pad2(h) + ":" + pad2(m)
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

// CurrentInAt formats the given instant as wall-clock HH:MM in tz.
// Unknown zones fall back to "00:00" so callers always get a
// well-formed time string.
func CurrentInAt(now time.Time, tz string) string {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return "00:00"
	}
	lt := now.In(loc)
	return FormatHHMM(lt.Hour(), lt.Minute())
}

// CurrentIn is CurrentInAt for the current instant.
func CurrentIn(tz string) string {
	return CurrentInAt(time.Now(), tz)
}

// MinutesUntilAt returns how many minutes remain until the target HH:MM
// in tz, treating the target as a recurring daily slot: a target earlier
// in the 24h cycle than the current wall-clock time counts as tomorrow.
// The second return value is false when target does not parse.
func MinutesUntilAt(now time.Time, tz, target string) (int, bool) {
	nowM, err := ParseHHMM(CurrentInAt(now, tz))
	if err != nil {
		return 0, false
	}
	targetM, err := ParseHHMM(target)
	if err != nil {
		return 0, false
	}
	diff := targetM - nowM
	if diff < 0 {
		diff += minutesPerDay
	}
	return diff, true
}

// MinutesUntil is MinutesUntilAt for the current instant.
func MinutesUntil(tz, target string) (int, bool) {
	return MinutesUntilAt(time.Now(), tz, target)
}

// IsAtLeastAheadAt reports whether the target time is at least minAhead
// minutes after the current wall-clock time in tz.
func IsAtLeastAheadAt(now time.Time, tz, target string, minAhead int) bool {
	diff, ok := MinutesUntilAt(now, tz, target)
	return ok && diff >= minAhead
}

// IsAtLeastAhead is IsAtLeastAheadAt for the current instant.
func IsAtLeastAhead(tz, target string, minAhead int) bool {
	return IsAtLeastAheadAt(time.Now(), tz, target, minAhead)
}

// AddMinutesAt adds delta minutes to the current wall-clock time in tz
// and wraps the result back into a single day, so 23:59 plus two
// minutes yields 00:01.
func AddMinutesAt(now time.Time, tz string, delta int) string {
	nowM, err := ParseHHMM(CurrentInAt(now, tz))
	if err != nil {
		nowM = 0
	}
	sum := (nowM + delta) % minutesPerDay
	if sum < 0 {
		sum += minutesPerDay
	}
	return FormatMinutes(sum)
}

// AddMinutes is AddMinutesAt for the current instant.
func AddMinutes(tz string, delta int) string {
	return AddMinutesAt(time.Now(), tz, delta)
}
