package entity

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidInterval = errors.New("invalid interval: start must be before end")

// TimePrecision is the resolution every stored instant is truncated to.
const TimePrecision = time.Millisecond

// Interval is a half-open time range [start, end). The zero value is not a valid interval;
// use NewInterval.
type Interval struct {
	start time.Time
	end   time.Time
}

// NewInterval normalises both bounds to UTC at TimePrecision and requires start < end
// after normalisation.
func NewInterval(start, end time.Time) (Interval, error) {
	s := normalizeTime(start)
	e := normalizeTime(end)
	if !s.Before(e) {
		return Interval{}, fmt.Errorf("%w: [%s, %s)", ErrInvalidInterval,
			s.Format(time.RFC3339Nano), e.Format(time.RFC3339Nano))
	}
	return Interval{start: s, end: e}, nil
}

func (i Interval) Start() time.Time { return i.start }

func (i Interval) End() time.Time { return i.end }

func (i Interval) Duration() time.Duration { return i.end.Sub(i.start) }

// Overlaps reports whether the two half-open ranges share at least one instant.
// Touching ranges ([10:00,11:00) and [11:00,12:00)) do not overlap.
func (i Interval) Overlaps(other Interval) bool {
	return !(i.end.Compare(other.start) <= 0 || i.start.Compare(other.end) >= 0)
}

func (i Interval) String() string {
	return fmt.Sprintf("[%s, %s)", i.start.Format(time.RFC3339), i.end.Format(time.RFC3339))
}

func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(TimePrecision)
}
