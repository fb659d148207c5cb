package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const secondsPerDay = 24 * 60 * 60

// TimeOfDay is a wall-clock time stored as seconds since midnight (0..86399).
// GTFS allows times past 24:00:00 for trips running after midnight; those are
// normalized into the 0-23h range on parse, matching how the schedule tables
// are populated.
type TimeOfDay int

// ParseTimeOfDay parses "H:MM:SS", "HH:MM:SS" or "HH:MM", wrapping hours >= 24.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	sec := 0
	if len(parts) > 2 {
		sec, err = strconv.Atoi(parts[2])
		if err != nil {
			return 0, fmt.Errorf("invalid time of day %q", s)
		}
	}
	if h < 0 || m < 0 || m > 59 || sec < 0 || sec > 59 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	h = h % 24
	return TimeOfDay(h*3600 + m*60 + sec), nil
}

// NewTimeOfDay builds a TimeOfDay from clock components, wrapping hours >= 24.
func NewTimeOfDay(hours, minutes, seconds int) TimeOfDay {
	return TimeOfDay(((hours%24)*3600 + minutes*60 + seconds) % secondsPerDay)
}

// TimeOfDayFrom extracts the clock time from an absolute timestamp.
func TimeOfDayFrom(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*3600 + t.Minute()*60 + t.Second())
}

func (t TimeOfDay) Hour() int   { return int(t) / 3600 }
func (t TimeOfDay) Minute() int { return int(t) % 3600 / 60 }
func (t TimeOfDay) Second() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour(), t.Minute(), t.Second())
}

// On combines the clock time with the calendar date of d, in d's location.
func (t TimeOfDay) On(d time.Time) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, t.Hour(), t.Minute(), t.Second(), 0, d.Location())
}

// DiffSeconds returns the absolute difference to another clock time, without
// wrapping around midnight.
func (t TimeOfDay) DiffSeconds(other TimeOfDay) int {
	d := int(t) - int(other)
	if d < 0 {
		d = -d
	}
	return d
}

// SubMinutes subtracts a (possibly fractional) number of minutes, wrapping
// within the day.
func (t TimeOfDay) SubMinutes(minutes float64) TimeOfDay {
	s := int(t) - int(math.Round(minutes*60))
	s %= secondsPerDay
	if s < 0 {
		s += secondsPerDay
	}
	return TimeOfDay(s)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
