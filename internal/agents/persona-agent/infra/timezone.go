package infra

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ResolveTimezoneLocation accepts IANA names, "UTC"/"Local" and fixed
// offsets such as "+09:00", "-0700", "UTC+9" or "GMT+09:00".
func ResolveTimezoneLocation(tz string) (*time.Location, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		tz = DefaultTimezone
	}

	switch strings.ToUpper(tz) {
	case "UTC", "GMT", "Z":
		return time.UTC, nil
	case "LOCAL":
		return time.Local, nil
	}

	if loc, ok, err := parseFixedOffset(tz); err != nil {
		return nil, err
	} else if ok {
		return loc, nil
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q (try \"+09:00\" or \"Asia/Seoul\"): %w", tz, err)
	}
	return loc, nil
}

func parseFixedOffset(raw string) (*time.Location, bool, error) {
	s := strings.TrimSpace(raw)
	u := strings.ToUpper(s)
	if strings.HasPrefix(u, "UTC") || strings.HasPrefix(u, "GMT") {
		s = strings.TrimSpace(s[3:])
	}
	if s == "" {
		return time.UTC, true, nil
	}

	sign := 1
	switch s[0] {
	case '+':
	case '-':
		sign = -1
	default:
		return nil, false, nil
	}
	s = strings.TrimSpace(s[1:])

	bad := fmt.Errorf("invalid timezone offset %q", raw)
	var hh, mm string
	switch {
	case strings.Contains(s, ":"):
		var ok bool
		hh, mm, ok = strings.Cut(s, ":")
		if !ok || len(hh) == 0 || len(hh) > 2 || len(mm) != 2 {
			return nil, false, bad
		}
	case len(s) == 1 || len(s) == 2:
		hh, mm = s, "0"
	case len(s) == 3 || len(s) == 4:
		s = strings.Repeat("0", 4-len(s)) + s
		hh, mm = s[:2], s[2:]
	default:
		return nil, false, bad
	}

	hours, err := strconv.Atoi(hh)
	if err != nil || hours < 0 || hours > 14 {
		return nil, false, bad
	}
	mins, err := strconv.Atoi(mm)
	if err != nil || mins < 0 || mins > 59 {
		return nil, false, bad
	}

	offset := sign * (hours*60*60 + mins*60)
	name := fmt.Sprintf("UTC%+03d:%02d", sign*hours, mins)
	return time.FixedZone(name, offset), true, nil
}
