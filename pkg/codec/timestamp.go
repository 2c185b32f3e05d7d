package codec

import (
	"encoding/json"
	"fmt"
	"time"
)

// Timestamp is a two-part wall clock reading with microsecond resolution,
// in the same shape as the Redis TIME reply.
type Timestamp struct {
	Sec  int64
	Usec int64
}

// Now captures the local wall clock. It does not consult the store's clock.
func Now() Timestamp {
	return FromTime(time.Now())
}

// FromTime truncates t to microseconds.
func FromTime(t time.Time) Timestamp {
	return Timestamp{Sec: t.Unix(), Usec: int64(t.Nanosecond() / 1000)}
}

// Time converts the timestamp back into a time.Time.
func (t Timestamp) Time() time.Time {
	return time.Unix(t.Sec, t.Usec*1000)
}

// IsZero reports whether t is the zero timestamp.
func (t Timestamp) IsZero() bool {
	return t.Sec == 0 && t.Usec == 0
}

func (t Timestamp) String() string {
	return fmt.Sprintf("%d.%06d", t.Sec, t.Usec)
}

// MarshalJSON encodes the timestamp as a [sec, usec] pair.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int64{t.Sec, t.Usec})
}

// UnmarshalJSON decodes a [sec, usec] pair.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var pair []int64
	if err := json.Unmarshal(b, &pair); err != nil {
		return fmt.Errorf("timestamp must be a [sec, usec] pair: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("timestamp must be a [sec, usec] pair; got %d elements", len(pair))
	}
	if pair[1] < 0 || pair[1] >= 1e6 {
		return fmt.Errorf("timestamp microseconds out of range: %d", pair[1])
	}
	t.Sec, t.Usec = pair[0], pair[1]
	return nil
}
