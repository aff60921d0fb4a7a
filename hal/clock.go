package hal

import (
	"time"

	humanize "github.com/dustin/go-humanize"
)

// Monotonic is a Clock counting from its creation. It relies on Go's
// monotonic clock reading, so wall clock jumps on the Pi (NTP, GPS time set)
// do not disturb conversion timing.
type Monotonic struct {
	start time.Time
}

func NewMonotonic() *Monotonic {
	return &Monotonic{start: time.Now()}
}

func (m *Monotonic) Micros() uint64 {
	return uint64(time.Since(m.start) / time.Microsecond)
}

func (m *Monotonic) Millis() uint64 {
	return uint64(time.Since(m.start) / time.Millisecond)
}

func (m *Monotonic) Delay(d time.Duration) {
	time.Sleep(d)
}

// Since returns the time elapsed since the given Millis() value.
func (m *Monotonic) Since(ms uint64) time.Duration {
	return time.Since(m.start) - time.Duration(ms)*time.Millisecond
}

// HumanizeMillis renders a Millis() value relative to now, e.g. "3 seconds ago".
func (m *Monotonic) HumanizeMillis(ms uint64) string {
	now := time.Now()
	return humanize.RelTime(now.Add(-m.Since(ms)), now, "ago", "from now")
}
