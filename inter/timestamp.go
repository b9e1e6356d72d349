package inter

import "time"

// Timestamp is a nanosecond-precision point in time, stored as a uint64.
// It is the native time representation across the ledger: position creation
// times, rule-change audit records and block times all use it so that
// arithmetic (differences, windows) stays in plain integer math.
type Timestamp uint64

// FromTime converts a standard library time.Time into a Timestamp.
func FromTime(t time.Time) Timestamp {
	return Timestamp(t.UnixNano())
}

// Time converts the Timestamp back into a standard library time.Time.
func (t Timestamp) Time() time.Time {
	return time.Unix(0, int64(t))
}

// Unix returns the timestamp truncated to whole seconds since the Unix epoch.
func (t Timestamp) Unix() int64 {
	return int64(t) / int64(time.Second)
}
