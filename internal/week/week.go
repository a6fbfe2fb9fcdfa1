// Package week converts between calendar dates and ISO-8601 week identifiers
// ("2025-W07") and maps week identifiers onto a linear ordinal so that weeks
// can be compared and subtracted across year boundaries.
//
// Every cross-week comparison in the module goes through Absolute; raw
// (year, week) pairs are never compared directly.
package week

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// ErrInvalidWeekID is returned for identifiers that are not of the form
// YYYY-Wnn or that name a week the year does not have.
var ErrInvalidWeekID = errors.New("invalid week identifier")

// Epoch is the Monday of 2020-W02; Absolute counts whole weeks from it.
var Epoch = time.Date(2020, time.January, 6, 12, 0, 0, 0, time.UTC)

var idPattern = regexp.MustCompile(`^(\d{4})-W(\d{2})$`)

// ID is a canonical ISO week identifier, e.g. "2025-W07".
type ID string

func (id ID) String() string { return string(id) }

// Year returns the ISO year of a valid identifier, 0 otherwise.
func (id ID) Year() int {
	y, _, err := split(string(id))
	if err != nil {
		return 0
	}
	return y
}

// Week returns the ISO week number of a valid identifier, 0 otherwise.
func (id ID) Week() int {
	_, w, err := split(string(id))
	if err != nil {
		return 0
	}
	return w
}

// Parse validates s and returns it as an ID.
func Parse(s string) (ID, error) {
	if _, _, err := split(s); err != nil {
		return "", err
	}
	return ID(s), nil
}

func split(s string) (int, int, error) {
	m := idPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidWeekID, s)
	}
	year, _ := strconv.Atoi(m[1])
	wk, _ := strconv.Atoi(m[2])
	if wk < 1 || wk > WeeksInYear(year) {
		return 0, 0, fmt.Errorf("%w: %q (year %d has %d weeks)", ErrInvalidWeekID, s, year, WeeksInYear(year))
	}
	return year, wk, nil
}

// WeeksInYear reports 52 or 53. December 28th always lies in the last ISO week.
func WeeksInYear(year int) int {
	_, w := time.Date(year, time.December, 28, 12, 0, 0, 0, time.UTC).ISOWeek()
	return w
}

// calendarNoon drops time-of-day and zone so DST shifts cannot move a date
// into a neighbouring day.
func calendarNoon(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

// FromDate returns the ISO week containing the calendar date of t, in t's own
// location. The ISO year is the year of that week's Thursday.
func FromDate(t time.Time) ID {
	d := calendarNoon(t)
	isoDay := int(d.Weekday())
	if isoDay == 0 {
		isoDay = 7
	}
	thursday := d.AddDate(0, 0, 4-isoDay)
	weekNo := (thursday.YearDay()-1)/7 + 1
	return ID(fmt.Sprintf("%04d-W%02d", thursday.Year(), weekNo))
}

// Current is FromDate for the given clock reading.
func Current(now time.Time) ID {
	return FromDate(now)
}

// MondayOf returns the Monday (12:00 UTC) that starts the given week.
func MondayOf(id ID) (time.Time, error) {
	year, wk, err := split(string(id))
	if err != nil {
		return time.Time{}, err
	}
	// January 4th is always in week 1.
	jan4 := time.Date(year, time.January, 4, 12, 0, 0, 0, time.UTC)
	isoDay := int(jan4.Weekday())
	if isoDay == 0 {
		isoDay = 7
	}
	week1Monday := jan4.AddDate(0, 0, 1-isoDay)
	return week1Monday.AddDate(0, 0, (wk-1)*7), nil
}

// Tuesday returns the Tuesday of the week, the usual delivery day.
func Tuesday(id ID) (time.Time, error) {
	monday, err := MondayOf(id)
	if err != nil {
		return time.Time{}, err
	}
	return monday.AddDate(0, 0, 1), nil
}

// Absolute returns the number of whole weeks between Epoch and the Monday of
// id. Weeks before the epoch are negative.
func Absolute(id ID) (int, error) {
	monday, err := MondayOf(id)
	if err != nil {
		return 0, err
	}
	// Unix seconds instead of time.Duration, which overflows past ~292 years.
	days := int((monday.Unix() - Epoch.Unix()) / 86400)
	return floorDiv(days, 7), nil
}

// FromAbsolute is the inverse of Absolute.
func FromAbsolute(abs int) ID {
	return FromDate(Epoch.AddDate(0, 0, abs*7))
}

// Offset moves id by n weeks (n may be negative). Results outside the
// years 0000-9999 are rejected like any other malformed identifier.
func Offset(id ID, n int) (ID, error) {
	abs, err := Absolute(id)
	if err != nil {
		return "", err
	}
	return Parse(string(FromAbsolute(abs + n)))
}

// Between returns Absolute(b) - Absolute(a).
func Between(a, b ID) (int, error) {
	absA, err := Absolute(a)
	if err != nil {
		return 0, err
	}
	absB, err := Absolute(b)
	if err != nil {
		return 0, err
	}
	return absB - absA, nil
}

// InRange reports whether target lies in the inclusive window of
// durationWeeks weeks that begins at start. A non-positive duration is an
// empty window.
func InRange(target, start ID, durationWeeks int) (bool, error) {
	startAbs, err := Absolute(start)
	if err != nil {
		return false, err
	}
	targetAbs, err := Absolute(target)
	if err != nil {
		return false, err
	}
	return targetAbs >= startAbs && targetAbs <= startAbs+durationWeeks-1, nil
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
