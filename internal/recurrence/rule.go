package recurrence

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Pattern identifies the recurrence strategy attached to a reminder.
type Pattern int

const (
	// PatternUnspecified indicates no explicit rule; reminders fall back to
	// their fixed day set.
	PatternUnspecified Pattern = iota
	// PatternFixed fires on the reminder's configured weekdays.
	PatternFixed
	// PatternAlternating switches between two day sets on alternate weeks.
	PatternAlternating
	// PatternProgressive ramps the weekly frequency up over time.
	PatternProgressive
	// PatternCyclic alternates active and rest periods measured in days.
	PatternCyclic
	// PatternAdaptive is reserved for engagement-driven adjustment and
	// currently behaves like PatternFixed.
	PatternAdaptive
)

// String returns the wire token for the pattern.
func (p Pattern) String() string {
	switch p {
	case PatternFixed:
		return "fixed"
	case PatternAlternating:
		return "alternating"
	case PatternProgressive:
		return "progressive"
	case PatternCyclic:
		return "cyclic"
	case PatternAdaptive:
		return "adaptive"
	default:
		return "unspecified"
	}
}

// ErrUnknownPattern indicates a pattern token outside the supported set.
var ErrUnknownPattern = errors.New("recurrence: unknown pattern")

// ParsePattern maps a wire token onto a Pattern value.
func ParsePattern(value string) (Pattern, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "fixed":
		return PatternFixed, nil
	case "alternating":
		return PatternAlternating, nil
	case "progressive":
		return PatternProgressive, nil
	case "cyclic":
		return PatternCyclic, nil
	case "adaptive":
		return PatternAdaptive, nil
	case "":
		return PatternUnspecified, nil
	default:
		return PatternUnspecified, fmt.Errorf("%w: %q", ErrUnknownPattern, value)
	}
}

// Intensity is an advisory multiplier consumed by the progressive, cyclic and
// adaptive strategies. The evaluator records it but does not act on it yet.
type Intensity int

const (
	// IntensityUnspecified indicates no preference.
	IntensityUnspecified Intensity = iota
	// IntensityLow requests a gentle cadence.
	IntensityLow
	// IntensityMedium requests the default cadence.
	IntensityMedium
	// IntensityHigh requests an aggressive cadence.
	IntensityHigh
)

// String returns the wire token for the intensity level.
func (i Intensity) String() string {
	switch i {
	case IntensityLow:
		return "low"
	case IntensityMedium:
		return "medium"
	case IntensityHigh:
		return "high"
	default:
		return "unspecified"
	}
}

// ParseIntensity maps a wire token onto an Intensity value. Unknown tokens
// resolve to IntensityUnspecified without an error because the field is
// advisory.
func ParseIntensity(value string) Intensity {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "low":
		return IntensityLow
	case "medium":
		return IntensityMedium
	case "high":
		return IntensityHigh
	default:
		return IntensityUnspecified
	}
}

// AlternatingRule carries the two day sets consumed by PatternAlternating.
// Week parity (counted from the Unix epoch) selects the active set.
type AlternatingRule struct {
	WeekA []time.Weekday
	WeekB []time.Weekday
}

// ProgressiveRule carries the parameters consumed by PatternProgressive.
//
// BaseFrequency is snapshotted when the rule is created so that the weekly
// ramp is anchored to the user's original day count rather than to derived
// state. When zero, the evaluator falls back to the reminder's current day
// count.
type ProgressiveRule struct {
	StartDate     time.Time
	Rate          float64
	BaseFrequency int
}

// CyclicRule carries the active/rest spans consumed by PatternCyclic. Both
// spans are day counts and must be positive for the rule to fire.
type CyclicRule struct {
	ActiveDays int
	RestDays   int
}

// ScheduleRule is the recurrence policy attached to a reminder. Exactly one
// pattern-specific payload is meaningful per value; the evaluator treats any
// other combination as non-firing rather than reporting an error.
type ScheduleRule struct {
	Pattern   Pattern
	Intensity Intensity

	Alternating *AlternatingRule
	Progressive *ProgressiveRule
	Cyclic      *CyclicRule
}

// Reminder is a single recurring notification configuration owned by a user.
type Reminder struct {
	ID      string
	Time    string // wall clock "HH:MM", 24-hour
	Days    []time.Weekday
	Enabled bool
	Message string
	Rule    *ScheduleRule
}

// ErrInvalidClock indicates a malformed "HH:MM" value.
var ErrInvalidClock = errors.New("recurrence: invalid clock value")

// ParseClock converts a 24-hour "HH:MM" value into minutes since midnight.
func ParseClock(value string) (int, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	return hour*60 + minute, nil
}

var weekdayTokens = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// ErrUnknownWeekday indicates a weekday token outside Sun..Sat.
var ErrUnknownWeekday = errors.New("recurrence: unknown weekday")

// ParseWeekday maps a short weekday token (Sun..Sat) onto time.Weekday.
func ParseWeekday(token string) (time.Weekday, error) {
	day, ok := weekdayTokens[strings.ToLower(strings.TrimSpace(token))]
	if !ok {
		return time.Sunday, fmt.Errorf("%w: %q", ErrUnknownWeekday, token)
	}
	return day, nil
}

// FormatWeekday returns the short token (Sun..Sat) for a weekday.
func FormatWeekday(day time.Weekday) string {
	return day.String()[:3]
}

// ParseWeekdays maps a comma-joined weekday list onto a slice of weekdays.
func ParseWeekdays(value string) ([]time.Weekday, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	tokens := strings.Split(trimmed, ",")
	days := make([]time.Weekday, 0, len(tokens))
	for _, token := range tokens {
		day, err := ParseWeekday(token)
		if err != nil {
			return nil, err
		}
		days = append(days, day)
	}
	return days, nil
}

// FormatWeekdays renders weekdays as a comma-joined token list.
func FormatWeekdays(days []time.Weekday) string {
	tokens := make([]string, 0, len(days))
	for _, day := range days {
		tokens = append(tokens, FormatWeekday(day))
	}
	return strings.Join(tokens, ",")
}
