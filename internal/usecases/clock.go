package usecases

import "time"

// Clock returns the current instant. Times are kept in UTC at microsecond
// precision so values read back from the database compare equal.
type Clock func() time.Time

func SystemClock() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func clockOrDefault(c Clock) Clock {
	if c == nil {
		return SystemClock
	}
	return c
}
