package utility

import "time"

// ExpiryTimestamp returns the absolute burn timestamp for a record created
// now with the given lifetime, as epoch seconds rounded down.
func ExpiryTimestamp(now time.Time, seconds int) int64 {
	return now.Add(time.Duration(seconds) * time.Second).Unix()
}

// IsExpired reports whether burnAt has passed. The comparison is strict: a
// record burning exactly now is still alive.
func IsExpired(burnAt int64, now time.Time) bool {
	return burnAt < now.Unix()
}
