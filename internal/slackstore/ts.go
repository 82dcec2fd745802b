package slackstore

import (
	"strconv"
	"strings"
	"time"
)

// parseTS converts a "seconds.microseconds" service timestamp into a
// time.Time. Anything unparseable maps to the zero time, never to an
// implicit default.
func parseTS(ts string) time.Time {
	if ts == "" {
		return time.Time{}
	}

	sec, frac, _ := strings.Cut(ts, ".")
	seconds, err := strconv.ParseInt(sec, 10, 64)
	if err != nil || seconds <= 0 {
		return time.Time{}
	}

	var micros int64
	if frac != "" {
		micros, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return time.Time{}
		}
	}

	return time.Unix(seconds, micros*1e3)
}
