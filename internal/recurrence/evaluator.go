package recurrence

import (
	"math"
	"time"
)

const (
	weekMillis = 7 * 24 * 60 * 60 * 1000
	dayMillis  = 24 * 60 * 60 * 1000
)

// canonicalOrder is the fixed weekday ordering used to derive evenly spaced
// day sets for the progressive strategy.
var canonicalOrder = [7]time.Weekday{
	time.Monday,
	time.Tuesday,
	time.Wednesday,
	time.Thursday,
	time.Friday,
	time.Saturday,
	time.Sunday,
}

// Evaluator decides whether a reminder should fire at a given instant.
//
// Evaluation is pure: no strategy mutates the reminder it inspects, and a
// malformed rule evaluates to non-firing instead of returning an error. The
// surrounding scheduler relies on that fail-safe to keep a broken schedule
// silent rather than letting it crash the polling loop.
type Evaluator struct {
	location *time.Location
}

// NewEvaluator constructs an Evaluator that resolves wall-clock comparisons
// in the provided location. If loc is nil, UTC is used.
func NewEvaluator(loc *time.Location) *Evaluator {
	if loc == nil {
		loc = time.UTC
	}
	return &Evaluator{location: loc}
}

// ShouldFire reports whether now is a fire instant for the reminder.
//
// The fixed check tolerates a one-minute delta between the reminder's
// nominal time and the observed wall clock. That window is what lets a
// 60-second polling cadence observe every nominal fire minute; callers are
// expected to deduplicate the two ticks that can both land inside it.
func (e *Evaluator) ShouldFire(reminder Reminder, now time.Time) bool {
	if !reminder.Enabled {
		return false
	}

	rule := reminder.Rule
	if rule == nil {
		return e.fixedCheck(reminder.Days, reminder.Time, now)
	}

	switch rule.Pattern {
	case PatternUnspecified, PatternFixed:
		return e.fixedCheck(reminder.Days, reminder.Time, now)
	case PatternAlternating:
		return e.alternatingCheck(reminder, rule.Alternating, now)
	case PatternProgressive:
		return e.fixedCheck(progressiveDays(reminder, rule.Progressive, now), reminder.Time, now)
	case PatternCyclic:
		return e.cyclicCheck(reminder, rule.Cyclic, now)
	case PatternAdaptive:
		// Engagement-driven adjustment is not implemented; the fixed check
		// is the documented floor behaviour.
		return e.fixedCheck(reminder.Days, reminder.Time, now)
	default:
		return false
	}
}

// PreviewAdjustedDays returns the day set the reminder would be evaluated
// against at the given instant. For progressive rules this is the derived,
// evenly spaced set; for every other pattern it is a copy of the stored
// days. A non-firing progressive configuration yields nil.
func (e *Evaluator) PreviewAdjustedDays(reminder Reminder, asOf time.Time) []time.Weekday {
	if reminder.Rule != nil && reminder.Rule.Pattern == PatternProgressive {
		return progressiveDays(reminder, reminder.Rule.Progressive, asOf)
	}
	return append([]time.Weekday(nil), reminder.Days...)
}

// fixedCheck implements the base day/time predicate shared by every
// strategy: the local weekday must be in the day set and the wall clock must
// be within one minute of the reminder's nominal time.
func (e *Evaluator) fixedCheck(days []time.Weekday, clock string, now time.Time) bool {
	local := now.In(e.location)

	if !containsWeekday(days, local.Weekday()) {
		return false
	}

	target, err := ParseClock(clock)
	if err != nil {
		return false
	}
	current := local.Hour()*60 + local.Minute()

	delta := target - current
	if delta < 0 {
		delta = -delta
	}
	return delta <= 1
}

// alternatingCheck narrows the fixed check to the week's active day set.
// A missing payload or an empty half never fires.
func (e *Evaluator) alternatingCheck(reminder Reminder, rule *AlternatingRule, now time.Time) bool {
	if rule == nil || len(rule.WeekA) == 0 || len(rule.WeekB) == 0 {
		return false
	}

	active := rule.WeekA
	if weeksSinceEpoch(now)%2 != 0 {
		active = rule.WeekB
	}

	if !containsWeekday(active, now.In(e.location).Weekday()) {
		return false
	}
	return e.fixedCheck(reminder.Days, reminder.Time, now)
}

// cyclicCheck gates the fixed check on the active span of the day cycle.
func (e *Evaluator) cyclicCheck(reminder Reminder, rule *CyclicRule, now time.Time) bool {
	if rule == nil || rule.ActiveDays <= 0 || rule.RestDays <= 0 {
		return false
	}

	total := int64(rule.ActiveDays + rule.RestDays)
	dayInCycle := daysSinceEpoch(now) % total
	if dayInCycle < 0 {
		dayInCycle += total
	}
	if dayInCycle >= int64(rule.ActiveDays) {
		return false
	}
	return e.fixedCheck(reminder.Days, reminder.Time, now)
}

// progressiveDays derives the evenly spaced day set for a progressive rule
// at the given instant. Any non-firing configuration yields nil.
func progressiveDays(reminder Reminder, rule *ProgressiveRule, now time.Time) []time.Weekday {
	if rule == nil || rule.Rate <= 0 || rule.StartDate.IsZero() {
		return nil
	}

	base := rule.BaseFrequency
	if base <= 0 {
		base = len(reminder.Days)
	}
	if base <= 0 {
		return nil
	}

	elapsed := now.UnixMilli() - rule.StartDate.UnixMilli()
	if elapsed < 0 {
		return nil
	}
	weeks := elapsed / weekMillis

	frequency := scaledFrequency(base, rule.Rate, weeks)
	if frequency <= 0 {
		return nil
	}

	spacing := 7 / frequency
	days := make([]time.Weekday, 0, frequency)
	for i := 0; i < frequency; i++ {
		days = append(days, canonicalOrder[i*spacing])
	}
	return days
}

// scaledFrequency grows the base day count by rate^weeks, capped at seven.
// The cap is applied before integer conversion so that very large exponents
// cannot overflow.
func scaledFrequency(base int, rate float64, weeks int64) int {
	scaled := float64(base) * math.Pow(rate, float64(weeks))
	if math.IsNaN(scaled) {
		return 0
	}
	if scaled >= 7 {
		return 7
	}
	return int(math.Floor(scaled))
}

func weeksSinceEpoch(now time.Time) int64 {
	return floorDiv(now.UnixMilli(), weekMillis)
}

func daysSinceEpoch(now time.Time) int64 {
	return floorDiv(now.UnixMilli(), dayMillis)
}

// floorDiv rounds toward negative infinity so pre-epoch instants still land
// in well-defined buckets.
func floorDiv(value, divisor int64) int64 {
	quotient := value / divisor
	if value%divisor < 0 {
		quotient--
	}
	return quotient
}

func containsWeekday(days []time.Weekday, day time.Weekday) bool {
	for _, candidate := range days {
		if candidate == day {
			return true
		}
	}
	return false
}
