package recurrence

import (
	"testing"
	"time"
)

// wednesday 2024-01-03 is the baseline used by the fixed-pattern tests.
func wednesdayAt(hour, minute int) time.Time {
	return time.Date(2024, time.January, 3, hour, minute, 0, 0, time.UTC)
}

func fixedReminder() Reminder {
	return Reminder{
		ID:      "rem-1",
		Time:    "09:00",
		Days:    []time.Weekday{time.Monday, time.Wednesday, time.Friday},
		Enabled: true,
		Message: "breathing exercise",
	}
}

func TestEvaluatorFixedPattern(t *testing.T) {
	evaluator := NewEvaluator(nil)

	t.Run("fires on a configured day within the tolerance window", func(t *testing.T) {
		reminder := fixedReminder()

		if !evaluator.ShouldFire(reminder, wednesdayAt(9, 0)) {
			t.Fatalf("expected fire at the nominal minute")
		}
		if !evaluator.ShouldFire(reminder, wednesdayAt(9, 1)) {
			t.Fatalf("expected fire one minute after the nominal minute")
		}
		if !evaluator.ShouldFire(reminder, wednesdayAt(8, 59)) {
			t.Fatalf("expected fire one minute before the nominal minute")
		}
	})

	t.Run("does not fire outside the tolerance window", func(t *testing.T) {
		reminder := fixedReminder()

		if evaluator.ShouldFire(reminder, wednesdayAt(9, 2)) {
			t.Fatalf("expected no fire two minutes after the nominal minute")
		}
		if evaluator.ShouldFire(reminder, wednesdayAt(8, 58)) {
			t.Fatalf("expected no fire two minutes before the nominal minute")
		}
	})

	t.Run("does not fire on an unconfigured day", func(t *testing.T) {
		reminder := fixedReminder()
		tuesday := time.Date(2024, time.January, 2, 9, 0, 0, 0, time.UTC)

		if evaluator.ShouldFire(reminder, tuesday) {
			t.Fatalf("expected no fire on Tuesday")
		}
	})

	t.Run("does not fire when disabled", func(t *testing.T) {
		reminder := fixedReminder()
		reminder.Enabled = false

		if evaluator.ShouldFire(reminder, wednesdayAt(9, 0)) {
			t.Fatalf("expected no fire for a disabled reminder")
		}
	})

	t.Run("treats a malformed clock value as non-firing", func(t *testing.T) {
		for _, clock := range []string{"", "9", "25:00", "09:60", "nine"} {
			reminder := fixedReminder()
			reminder.Time = clock

			if evaluator.ShouldFire(reminder, wednesdayAt(9, 0)) {
				t.Fatalf("expected no fire for clock %q", clock)
			}
		}
	})

	t.Run("resolves the weekday in the evaluator location", func(t *testing.T) {
		tokyo := time.FixedZone("JST", 9*60*60)
		local := NewEvaluator(tokyo)
		reminder := fixedReminder()
		reminder.Days = []time.Weekday{time.Thursday}

		// Wednesday 16:00 UTC is Thursday 01:00 in JST.
		reminder.Time = "01:00"
		if !local.ShouldFire(reminder, wednesdayAt(16, 0)) {
			t.Fatalf("expected fire resolved against the local weekday")
		}
	})
}

func TestEvaluatorAlternatingPattern(t *testing.T) {
	evaluator := NewEvaluator(nil)

	reminder := func() Reminder {
		r := fixedReminder()
		r.Days = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday}
		r.Rule = &ScheduleRule{
			Pattern: PatternAlternating,
			Alternating: &AlternatingRule{
				WeekA: []time.Weekday{time.Wednesday},
				WeekB: []time.Weekday{time.Tuesday, time.Thursday},
			},
		}
		return r
	}

	t.Run("consecutive weeks select different day sets", func(t *testing.T) {
		thisWeek := wednesdayAt(9, 0)
		nextWeek := thisWeek.AddDate(0, 0, 7)

		first := evaluator.ShouldFire(reminder(), thisWeek)
		second := evaluator.ShouldFire(reminder(), nextWeek)
		if first == second {
			t.Fatalf("expected exactly one of two consecutive Wednesdays to fire, got %v and %v", first, second)
		}

		// Two weeks apart lands back on the same set.
		if third := evaluator.ShouldFire(reminder(), thisWeek.AddDate(0, 0, 14)); third != first {
			t.Fatalf("expected the same result two weeks apart, got %v then %v", first, third)
		}
	})

	t.Run("narrows rather than widens the base day set", func(t *testing.T) {
		r := reminder()
		r.Days = []time.Weekday{time.Monday}

		// Whatever week parity selects, Wednesday is outside the base days.
		if evaluator.ShouldFire(r, wednesdayAt(9, 0)) {
			t.Fatalf("expected no fire when the base day set excludes the weekday")
		}
		if evaluator.ShouldFire(r, wednesdayAt(9, 0).AddDate(0, 0, 7)) {
			t.Fatalf("expected no fire in the alternate week either")
		}
	})

	t.Run("malformed rules never fire", func(t *testing.T) {
		instants := []time.Time{wednesdayAt(9, 0), wednesdayAt(9, 0).AddDate(0, 0, 7)}

		missing := reminder()
		missing.Rule.Alternating = nil

		short := reminder()
		short.Rule.Alternating = &AlternatingRule{WeekA: []time.Weekday{time.Wednesday}}

		for _, now := range instants {
			if evaluator.ShouldFire(missing, now) {
				t.Fatalf("expected no fire for a missing alternating payload at %v", now)
			}
			if evaluator.ShouldFire(short, now) {
				t.Fatalf("expected no fire for a single day set at %v", now)
			}
		}
	})
}

func TestEvaluatorProgressivePattern(t *testing.T) {
	evaluator := NewEvaluator(nil)
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC) // Monday

	reminder := func(rate float64) Reminder {
		r := fixedReminder()
		r.Rule = &ScheduleRule{
			Pattern: PatternProgressive,
			Progressive: &ProgressiveRule{
				StartDate:     start,
				Rate:          rate,
				BaseFrequency: 3,
			},
		}
		return r
	}

	t.Run("week zero keeps the base frequency", func(t *testing.T) {
		days := evaluator.PreviewAdjustedDays(reminder(1.2), wednesdayAt(9, 0))

		want := []time.Weekday{time.Monday, time.Wednesday, time.Friday}
		if len(days) != len(want) {
			t.Fatalf("expected %v, got %v", want, days)
		}
		for i := range want {
			if days[i] != want[i] {
				t.Fatalf("expected %v, got %v", want, days)
			}
		}

		if !evaluator.ShouldFire(reminder(1.2), wednesdayAt(9, 0)) {
			t.Fatalf("expected fire on a derived day at the nominal minute")
		}
	})

	t.Run("frequency is monotone and capped at seven", func(t *testing.T) {
		previous := 0
		for week := 0; week < 30; week++ {
			asOf := start.AddDate(0, 0, week*7)
			days := evaluator.PreviewAdjustedDays(reminder(1.2), asOf)
			if len(days) < previous {
				t.Fatalf("frequency decreased from %d to %d at week %d", previous, len(days), week)
			}
			if len(days) > 7 {
				t.Fatalf("frequency exceeded seven at week %d: %v", week, days)
			}
			previous = len(days)
		}
		if previous != 7 {
			t.Fatalf("expected frequency to reach the ceiling, got %d", previous)
		}
	})

	t.Run("evaluation does not mutate the stored day set", func(t *testing.T) {
		r := reminder(1.5)
		asOf := start.AddDate(0, 0, 70)

		evaluator.ShouldFire(r, asOf)
		evaluator.PreviewAdjustedDays(r, asOf)

		want := []time.Weekday{time.Monday, time.Wednesday, time.Friday}
		for i := range want {
			if r.Days[i] != want[i] {
				t.Fatalf("stored days mutated: %v", r.Days)
			}
		}
	})

	t.Run("non-positive rates never fire", func(t *testing.T) {
		for _, rate := range []float64{0, -1} {
			if evaluator.ShouldFire(reminder(rate), wednesdayAt(9, 0)) {
				t.Fatalf("expected no fire for rate %v", rate)
			}
			if days := evaluator.PreviewAdjustedDays(reminder(rate), wednesdayAt(9, 0)); days != nil {
				t.Fatalf("expected nil preview for rate %v, got %v", rate, days)
			}
		}
	})

	t.Run("a start date in the future never fires", func(t *testing.T) {
		r := reminder(1.2)
		r.Rule.Progressive.StartDate = wednesdayAt(9, 0).AddDate(0, 0, 30)

		if evaluator.ShouldFire(r, wednesdayAt(9, 0)) {
			t.Fatalf("expected no fire before the rule start date")
		}
	})

	t.Run("falls back to the current day count without a snapshot", func(t *testing.T) {
		r := reminder(1.2)
		r.Rule.Progressive.BaseFrequency = 0

		days := evaluator.PreviewAdjustedDays(r, wednesdayAt(9, 0))
		if len(days) != len(r.Days) {
			t.Fatalf("expected fallback frequency %d, got %d", len(r.Days), len(days))
		}
	})
}

func TestEvaluatorCyclicPattern(t *testing.T) {
	evaluator := NewEvaluator(nil)

	allDays := []time.Weekday{time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday}

	reminder := func(active, rest int) Reminder {
		r := fixedReminder()
		r.Days = allDays
		r.Rule = &ScheduleRule{
			Pattern: PatternCyclic,
			Cyclic:  &CyclicRule{ActiveDays: active, RestDays: rest},
		}
		return r
	}

	// cycleStart is an instant whose day index is a multiple of 28, so the
	// 21/7 cycle is at day zero.
	dayIndex := int64(19740)
	if dayIndex%28 != 0 {
		t.Fatalf("test anchor must sit on a cycle boundary")
	}
	cycleStart := time.Unix(dayIndex*24*60*60, 0).UTC().Add(9 * time.Hour)

	t.Run("fires during the active span and rests afterwards", func(t *testing.T) {
		r := reminder(21, 7)

		if !evaluator.ShouldFire(r, cycleStart) {
			t.Fatalf("expected fire on cycle day 0")
		}
		if !evaluator.ShouldFire(r, cycleStart.AddDate(0, 0, 20)) {
			t.Fatalf("expected fire on the final active day")
		}
		if evaluator.ShouldFire(r, cycleStart.AddDate(0, 0, 21)) {
			t.Fatalf("expected rest on cycle day 21")
		}
		if evaluator.ShouldFire(r, cycleStart.AddDate(0, 0, 27)) {
			t.Fatalf("expected rest on the final cycle day")
		}
	})

	t.Run("the boundary recurs with the full cycle length", func(t *testing.T) {
		r := reminder(21, 7)

		if !evaluator.ShouldFire(r, cycleStart.AddDate(0, 0, 28)) {
			t.Fatalf("expected the next cycle to begin 28 days later")
		}
		if evaluator.ShouldFire(r, cycleStart.AddDate(0, 0, 28+21)) {
			t.Fatalf("expected the next rest span 49 days later")
		}
	})

	t.Run("still honours the base day and time check", func(t *testing.T) {
		r := reminder(21, 7)
		r.Days = []time.Weekday{cycleStart.Weekday()}

		if !evaluator.ShouldFire(r, cycleStart) {
			t.Fatalf("expected fire when the weekday matches")
		}
		if evaluator.ShouldFire(r, cycleStart.AddDate(0, 0, 1)) {
			t.Fatalf("expected no fire on a day outside the base set")
		}
		if evaluator.ShouldFire(r, cycleStart.Add(5*time.Minute)) {
			t.Fatalf("expected no fire outside the tolerance window")
		}
	})

	t.Run("non-positive spans never fire", func(t *testing.T) {
		for _, spans := range [][2]int{{0, 7}, {21, 0}, {-3, 7}} {
			if evaluator.ShouldFire(reminder(spans[0], spans[1]), cycleStart) {
				t.Fatalf("expected no fire for spans %v", spans)
			}
		}
	})
}

func TestEvaluatorAdaptivePattern(t *testing.T) {
	evaluator := NewEvaluator(nil)

	reminder := fixedReminder()
	reminder.Rule = &ScheduleRule{Pattern: PatternAdaptive, Intensity: IntensityHigh}

	if !evaluator.ShouldFire(reminder, wednesdayAt(9, 0)) {
		t.Fatalf("expected the adaptive placeholder to fall back to the fixed check")
	}
	if evaluator.ShouldFire(reminder, wednesdayAt(12, 0)) {
		t.Fatalf("expected the fallback to honour the tolerance window")
	}
}

func TestEvaluatorUnknownPatternNeverFires(t *testing.T) {
	evaluator := NewEvaluator(nil)

	reminder := fixedReminder()
	reminder.Rule = &ScheduleRule{Pattern: Pattern(99)}

	if evaluator.ShouldFire(reminder, wednesdayAt(9, 0)) {
		t.Fatalf("expected no fire for an unknown pattern")
	}
}
