package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// TimeOfDay is a wall-clock time expressed as minutes from midnight.
//
// The scheduler does all interval arithmetic in whole minutes; decimal-hour
// inputs are converted once at the boundary so the gap scan never
// accumulates float error.
type TimeOfDay int

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return TimeOfDay(h*60 + m), nil
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// HoursToMinutes converts decimal hours to whole minutes, rounding to the
// nearest minute.
func HoursToMinutes(h float64) int {
	return int(math.Round(h * 60))
}

// MinutesToHours converts whole minutes back to decimal hours.
func MinutesToHours(m int) float64 {
	return float64(m) / 60
}
