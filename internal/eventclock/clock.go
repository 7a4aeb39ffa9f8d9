// Package eventclock converts between event-relative time ("day 2, 14:30")
// and absolute calendar time.
//
// All components that need the current time receive a *Clock and call Now();
// nothing in the codebase reads the system clock directly. That keeps the
// debug override (and fixed clocks in tests) authoritative everywhere.
package eventclock

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// EventTime is an event-relative point: a 1-based event day plus "HH:MM".
type EventTime struct {
	Day  int
	Time string
}

func (et EventTime) String() string {
	return fmt.Sprintf("day %d %s", et.Day, et.Time)
}

// Config is the event window, loaded once at process start.
type Config struct {
	StartDate time.Time // first calendar instant of day 1 (normally midnight)
	DaysCount int
	DebugMode bool
}

// Clock converts event-relative time to absolute time and back, and owns
// "now" for the whole process. One instance per running event.
type Clock struct {
	start time.Time
	days  int
	debug bool

	mu       sync.RWMutex
	debugNow time.Time
}

func New(cfg Config) (*Clock, error) {
	if cfg.StartDate.IsZero() {
		return nil, fmt.Errorf("eventclock: start date is required")
	}
	if cfg.DaysCount < 1 {
		return nil, fmt.Errorf("eventclock: days count must be >= 1, got %d", cfg.DaysCount)
	}
	return &Clock{start: cfg.StartDate, days: cfg.DaysCount, debug: cfg.DebugMode}, nil
}

func (c *Clock) StartDate() time.Time { return c.start }
func (c *Clock) DaysCount() int       { return c.days }
func (c *Clock) DebugMode() bool      { return c.debug }

// Now returns the debug override while debug mode is on and an override has
// been set, else the real current time.
func (c *Clock) Now() time.Time {
	if c.debug {
		c.mu.RLock()
		dn := c.debugNow
		c.mu.RUnlock()
		if !dn.IsZero() {
			return dn
		}
	}
	return time.Now()
}

// SetDebugTime installs the debug "now". It fails with ErrDebugDisabled
// unless the clock was built with DebugMode on.
func (c *Clock) SetDebugTime(t time.Time) error {
	if !c.debug {
		return ErrDebugDisabled
	}
	c.mu.Lock()
	c.debugNow = t
	c.mu.Unlock()
	return nil
}

// Absolute converts an event-relative point to absolute time:
// start_date + (day-1) days + time-of-day.
func (c *Clock) Absolute(et EventTime) (time.Time, error) {
	if et.Day < 1 || et.Day > c.days {
		return time.Time{}, &InvalidDayError{Day: et.Day, Days: c.days}
	}
	h, m, err := ParseHHMM(et.Time)
	if err != nil {
		return time.Time{}, err
	}
	return c.start.AddDate(0, 0, et.Day-1).Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute), nil
}

// ToEventTime is the left inverse of Absolute. It fails with OutOfRangeError
// when t precedes the start date or falls on/after day DaysCount+1.
func (c *Clock) ToEventTime(t time.Time) (EventTime, error) {
	if t.Before(c.start) {
		return EventTime{}, &OutOfRangeError{At: t}
	}
	day := c.dayOf(t)
	if day < 1 || day > c.days {
		return EventTime{}, &OutOfRangeError{At: t}
	}
	return EventTime{Day: day, Time: t.Format("15:04")}, nil
}

// CurrentEventDay returns the 1-based day of Now(), or 0 outside the event
// window.
func (c *Clock) CurrentEventDay() int {
	now := c.Now()
	if now.Before(c.start) {
		return 0
	}
	day := c.dayOf(now)
	if day < 1 || day > c.days {
		return 0
	}
	return day
}

// IsFuture reports whether the event-relative point lies strictly after
// Now(). Invalid points are never in the future.
func (c *Clock) IsFuture(et EventTime) bool {
	abs, err := c.Absolute(et)
	if err != nil {
		return false
	}
	return abs.After(c.Now())
}

// Status renders a one-line, human-readable position of Now() relative to
// the event: "before the event", "Day N HH:MM", or "after the event".
func (c *Clock) Status() string {
	now := c.Now()
	day := c.CurrentEventDay()
	if day == 0 {
		if now.Before(c.start) {
			return "before the event"
		}
		return "after the event"
	}
	return fmt.Sprintf("Day %d %s", day, now.Format("15:04"))
}

// dayOf computes the 1-based event day by calendar-date difference, so a
// timestamp late on day 1 and one early on day 2 land on different days even
// across DST shifts.
func (c *Clock) dayOf(t time.Time) int {
	sy, sm, sd := c.start.Date()
	startMidnight := time.Date(sy, sm, sd, 0, 0, 0, 0, c.start.Location())
	ty, tm, td := t.In(c.start.Location()).Date()
	tMidnight := time.Date(ty, tm, td, 0, 0, 0, 0, c.start.Location())
	return int(tMidnight.Sub(startMidnight).Hours()/24) + 1
}

// ParseHHMM parses a wall-clock "HH:MM" string.
func ParseHHMM(s string) (hour int, minute int, err error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("eventclock: invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("eventclock: invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("eventclock: invalid minute in %q", s)
	}
	return h, m, nil
}
