package sink

import "time"

// backoffSchedule produces a capped exponential delay sequence. It is
// advanced on each consecutive failure and reset to the minimum by a
// successful connect or send.
type backoffSchedule struct {
	min time.Duration
	max time.Duration
	cap int
	n   int
}

func newBackoffSchedule(min, max time.Duration, cap int) *backoffSchedule {
	if min <= 0 {
		min = time.Second
	}
	if max < min {
		max = min
	}
	if cap < 1 {
		cap = 16
	}
	return &backoffSchedule{min: min, max: max, cap: cap}
}

// next advances the schedule and returns the delay before the next
// connection attempt.
func (b *backoffSchedule) next() time.Duration {
	if b.n < b.cap {
		b.n++
	}
	d := b.min << (b.n - 1)
	if d <= 0 || d > b.max {
		d = b.max
	}
	return d
}

// attempt returns the number of consecutive failures recorded so far.
func (b *backoffSchedule) attempt() int {
	return b.n
}

func (b *backoffSchedule) reset() {
	b.n = 0
}
