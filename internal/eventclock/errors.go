package eventclock

import (
	"errors"
	"fmt"
	"time"
)

// ErrDebugDisabled is returned by SetDebugTime when the clock was not
// constructed with debug mode enabled. The override is explicit and
// auditable; it can never happen implicitly.
var ErrDebugDisabled = errors.New("eventclock: debug mode disabled")

// InvalidDayError reports an event day outside [1, DaysCount].
type InvalidDayError struct {
	Day  int
	Days int
}

func (e *InvalidDayError) Error() string {
	return fmt.Sprintf("eventclock: day %d out of range [1, %d]", e.Day, e.Days)
}

// OutOfRangeError reports an absolute timestamp outside the event window.
type OutOfRangeError struct {
	At time.Time
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("eventclock: %s is outside the event period", e.At.Format("2006-01-02 15:04"))
}
