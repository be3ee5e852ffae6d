package timezone

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// DefaultName is used when a therapist has no usable timezone configured.
const DefaultName = "Asia/Taipei"

// Converter resolves IANA timezone names and converts between therapist
// local wall-clock time and UTC. Resolution never fails: unknown or empty
// names fall back to the configured default so scheduling paths stay
// total.
type Converter struct {
	fallback *time.Location
	logger   *slog.Logger
}

// NewConverter builds a converter whose fallback zone is resolved from
// defaultName. An unresolvable defaultName degrades to UTC.
func NewConverter(defaultName string, logger *slog.Logger) *Converter {
	if logger == nil {
		logger = slog.Default()
	}

	fallback := time.UTC
	if trimmed := strings.TrimSpace(defaultName); trimmed != "" {
		loc, err := time.LoadLocation(trimmed)
		if err != nil {
			logger.Warn("unknown default timezone, using UTC", "timezone", trimmed, "error", err)
		} else {
			fallback = loc
		}
	}

	return &Converter{fallback: fallback, logger: logger}
}

// Resolve returns the location for the given IANA name, or the fallback
// when the name is empty or unknown.
func (c *Converter) Resolve(name string) *time.Location {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return c.fallback
	}
	loc, err := time.LoadLocation(trimmed)
	if err != nil {
		c.logger.Warn("unknown timezone, using fallback", "timezone", trimmed)
		return c.fallback
	}
	return loc
}

// ToUTC reinterprets the wall-clock fields of t as local time in tzName
// and returns the equivalent UTC instant. Ambiguous or non-existent wall
// clocks around DST transitions resolve to the offsets the time package
// chooses.
func (c *Converter) ToUTC(t time.Time, tzName string) time.Time {
	loc := c.Resolve(tzName)
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc).UTC()
}

// FromUTC converts a UTC instant into the therapist's local time.
func (c *Converter) FromUTC(t time.Time, tzName string) time.Time {
	return t.In(c.Resolve(tzName))
}

// Combine builds the UTC instant for a time of day on a calendar date,
// interpreted in tzName.
func (c *Converter) Combine(date Date, tod TimeOfDay, tzName string) time.Time {
	loc := c.Resolve(tzName)
	return time.Date(date.Year, date.Month, date.Day, tod.Hour, tod.Minute, 0, 0, loc).UTC()
}

// DayBounds returns the UTC instants for local midnight on date and local
// midnight of the following day in tzName.
func (c *Converter) DayBounds(date Date, tzName string) (time.Time, time.Time) {
	loc := c.Resolve(tzName)
	start := time.Date(date.Year, date.Month, date.Day, 0, 0, 0, 0, loc)
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}

// Date is a timezone-free calendar date.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf extracts the calendar date from t in its own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a date in ISO 8601 form (2006-01-02).
func ParseDate(value string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(value))
	if err != nil {
		return Date{}, fmt.Errorf("timezone: invalid date %q: %w", value, err)
	}
	return DateOf(t), nil
}

// String renders the date in ISO 8601 form.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Time returns the date at UTC midnight, useful for arithmetic and ordering.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// AddDays steps the date by the given number of calendar days.
func (d Date) AddDays(days int) Date {
	return DateOf(d.Time().AddDate(0, 0, days))
}

// DaysUntil returns the number of whole days from d to other. Negative
// when other is earlier.
func (d Date) DaysUntil(other Date) int {
	return int(other.Time().Sub(d.Time()) / (24 * time.Hour))
}

// Before reports whether d is earlier than other.
func (d Date) Before(other Date) bool {
	return d.Time().Before(other.Time())
}

// After reports whether d is later than other.
func (d Date) After(other Date) bool {
	return d.Time().After(other.Time())
}

// Weekday returns the day of week with Monday as 0 and Sunday as 6.
func (d Date) Weekday() int {
	return (int(d.Time().Weekday()) + 6) % 7
}

// TimeOfDay is a wall-clock time with minute precision.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses a wall-clock time in HH:MM form.
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("timezone: invalid time of day %q: %w", value, err)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// TimeOfDayFrom extracts the wall-clock time from t in its own location.
func TimeOfDayFrom(t time.Time) TimeOfDay {
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}
}

// String renders the time of day in HH:MM form.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Minutes returns the offset from midnight in minutes.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}
