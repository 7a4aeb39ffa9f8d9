package domain

import (
	"fmt"
	"time"

	"volbot/internal/eventclock"
)

// TimeSpan is an event-relative [start, end) window belonging to a task or
// an assignment. It is only ever built through NewTimeSpan, which validates
// both endpoints against the event window and rejects end <= start.
type TimeSpan struct {
	Start eventclock.EventTime
	End   eventclock.EventTime
}

// NewTimeSpan validates start/end against the clock and returns the span.
func NewTimeSpan(clock *eventclock.Clock, start, end eventclock.EventTime) (TimeSpan, error) {
	s, err := clock.Absolute(start)
	if err != nil {
		return TimeSpan{}, fmt.Errorf("span start: %w", err)
	}
	e, err := clock.Absolute(end)
	if err != nil {
		return TimeSpan{}, fmt.Errorf("span end: %w", err)
	}
	if !e.After(s) {
		return TimeSpan{}, fmt.Errorf("span end %s must be after start %s", end, start)
	}
	return TimeSpan{Start: start, End: end}, nil
}

// AbsoluteStart resolves the span start against the clock. The span is
// validated at construction, so this only fails if the event window shrank
// underneath it.
func (s TimeSpan) AbsoluteStart(clock *eventclock.Clock) (time.Time, error) {
	return clock.Absolute(s.Start)
}

func (s TimeSpan) AbsoluteEnd(clock *eventclock.Clock) (time.Time, error) {
	return clock.Absolute(s.End)
}

// String renders the span compactly: the end day is omitted when it matches
// the start day.
func (s TimeSpan) String() string {
	if s.Start.Day == s.End.Day {
		return fmt.Sprintf("Day %d %s - %s", s.Start.Day, s.Start.Time, s.End.Time)
	}
	return fmt.Sprintf("Day %d %s - Day %d %s", s.Start.Day, s.Start.Time, s.End.Day, s.End.Time)
}
