package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
)

// ErrInvalidInterval is returned when a time range does not start before it ends.
var ErrInvalidInterval = errors.New("start time must be before end time")

// ClockTime is a wall-clock time of day expressed as minutes since midnight.
type ClockTime int

const minutesPerDay = 24 * 60

// ParseClockTime accepts "HH:MM" or "HH:MM:SS". "24:00" denotes the end of the day.
func ParseClockTime(raw string) (ClockTime, error) {
	raw = strings.TrimSpace(raw)
	parts := strings.Split(raw, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", raw)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 24 {
		return 0, fmt.Errorf("invalid hour in %q", raw)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("invalid minute in %q", raw)
	}
	if len(parts) == 3 {
		// seconds are accepted from TIME columns but truncated
		second, err := strconv.Atoi(parts[2])
		if err != nil || second < 0 || second > 59 || len(parts[2]) != 2 {
			return 0, fmt.Errorf("invalid second in %q", raw)
		}
	}
	total := hour*60 + minute
	if total > minutesPerDay {
		return 0, fmt.Errorf("time %q is past midnight", raw)
	}
	return ClockTime(total), nil
}

// MustClockTime parses raw and panics on failure. Intended for fixtures.
func MustClockTime(raw string) ClockTime {
	t, err := ParseClockTime(raw)
	if err != nil {
		panic(err)
	}
	return t
}

func (t ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// MarshalJSON renders the time as "HH:MM".
func (t ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON parses "HH:MM" or "HH:MM:SS".
func (t *ClockTime) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("time must be a string: %w", err)
	}
	parsed, err := ParseClockTime(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Scan implements sql.Scanner for TIME and text columns.
func (t *ClockTime) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*t = ClockTime(v.Hour()*60 + v.Minute())
		return nil
	case []byte:
		return t.scanString(string(v))
	case string:
		return t.scanString(v)
	case int64:
		if v < 0 || v >= minutesPerDay {
			return fmt.Errorf("clock minutes out of range: %d", v)
		}
		*t = ClockTime(v)
		return nil
	default:
		return fmt.Errorf("cannot scan %T into ClockTime", src)
	}
}

func (t *ClockTime) scanString(raw string) error {
	parsed, err := ParseClockTime(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Value implements driver.Valuer.
func (t ClockTime) Value() (driver.Value, error) {
	return t.String(), nil
}

// Weekday is a school day abbreviation, "Mon" through "Fri".
type Weekday string

const (
	Monday    Weekday = "Mon"
	Tuesday   Weekday = "Tue"
	Wednesday Weekday = "Wed"
	Thursday  Weekday = "Thu"
	Friday    Weekday = "Fri"
)

// SchoolDays lists valid weekdays in calendar order.
var SchoolDays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday}

var weekdayAliases = map[string]Weekday{
	"mon": Monday, "monday": Monday,
	"tue": Tuesday, "tues": Tuesday, "tuesday": Tuesday,
	"wed": Wednesday, "wednesday": Wednesday,
	"thu": Thursday, "thur": Thursday, "thurs": Thursday, "thursday": Thursday,
	"fri": Friday, "friday": Friday,
}

// ParseWeekday normalises day names such as "monday" or "MON" into a Weekday.
func ParseWeekday(raw string) (Weekday, error) {
	day, ok := weekdayAliases[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return "", fmt.Errorf("invalid weekday %q", raw)
	}
	return day, nil
}

func (d Weekday) index() int {
	for i, day := range SchoolDays {
		if day == d {
			return i
		}
	}
	return len(SchoolDays)
}

// Before reports whether d comes earlier in the week than other.
func (d Weekday) Before(other Weekday) bool {
	return d.index() < other.index()
}

// Weekdays is a set of school days stored as a TEXT[] column.
type Weekdays []Weekday

// ParseWeekdays validates, de-duplicates and orders raw day names.
func ParseWeekdays(raw []string) (Weekdays, error) {
	seen := make(map[Weekday]struct{}, len(raw))
	days := make(Weekdays, 0, len(raw))
	for _, item := range raw {
		day, err := ParseWeekday(item)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[day]; dup {
			continue
		}
		seen[day] = struct{}{}
		days = append(days, day)
	}
	days.sort()
	return days, nil
}

func (w Weekdays) sort() {
	sort.Slice(w, func(i, j int) bool { return w[i].index() < w[j].index() })
}

// Contains reports whether day is part of the set.
func (w Weekdays) Contains(day Weekday) bool {
	for _, d := range w {
		if d == day {
			return true
		}
	}
	return false
}

// Strings returns the set as plain strings.
func (w Weekdays) Strings() []string {
	out := make([]string, len(w))
	for i, d := range w {
		out[i] = string(d)
	}
	return out
}

// Scan implements sql.Scanner using the Postgres array decoder.
func (w *Weekdays) Scan(src interface{}) error {
	var arr pq.StringArray
	if err := arr.Scan(src); err != nil {
		return fmt.Errorf("scan weekdays: %w", err)
	}
	days := make(Weekdays, len(arr))
	for i, item := range arr {
		days[i] = Weekday(item)
	}
	*w = days
	return nil
}

// Value implements driver.Valuer.
func (w Weekdays) Value() (driver.Value, error) {
	return pq.StringArray(w.Strings()).Value()
}

// TimeRange is a half-open [Start, End) interval within a single day.
type TimeRange struct {
	Start ClockTime `json:"startTime"`
	End   ClockTime `json:"endTime"`
}

// Validate rejects empty or inverted ranges.
func (r TimeRange) Validate() error {
	if r.Start < 0 || r.End > minutesPerDay || r.Start >= r.End {
		return ErrInvalidInterval
	}
	return nil
}

// Overlaps reports whether two ranges share any minute. Touching endpoints do not overlap.
func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.Start < other.End && other.Start < r.End
}

func (r TimeRange) String() string {
	return r.Start.String() + "-" + r.End.String()
}
