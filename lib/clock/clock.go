package clock

import "time"

const layout = "2006-01-02T15:04:05Z"

func Now() string {
	return time.Now().UTC().Format(layout)
}

// Expiry returns the expiration horizon for a reward issued at the given
// moment. Days below 1 fall back to the caller-supplied default.
func Expiry(issued time.Time, days, defaultDays int) time.Time {
	if days < 1 {
		days = defaultDays
	}
	return issued.Add(time.Duration(days) * 24 * time.Hour)
}
