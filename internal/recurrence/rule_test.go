package recurrence

import (
	"errors"
	"testing"
	"time"
)

func TestParsePattern(t *testing.T) {
	cases := map[string]Pattern{
		"fixed":       PatternFixed,
		"alternating": PatternAlternating,
		"progressive": PatternProgressive,
		"cyclic":      PatternCyclic,
		"adaptive":    PatternAdaptive,
		"  Fixed  ":   PatternFixed,
		"":            PatternUnspecified,
	}
	for value, want := range cases {
		got, err := ParsePattern(value)
		if err != nil {
			t.Fatalf("ParsePattern(%q) returned %v", value, err)
		}
		if got != want {
			t.Fatalf("ParsePattern(%q) = %v, want %v", value, got, want)
		}
	}

	if _, err := ParsePattern("hourly"); !errors.Is(err, ErrUnknownPattern) {
		t.Fatalf("expected ErrUnknownPattern, got %v", err)
	}
}

func TestPatternRoundTrip(t *testing.T) {
	patterns := []Pattern{PatternFixed, PatternAlternating, PatternProgressive, PatternCyclic, PatternAdaptive}
	for _, pattern := range patterns {
		parsed, err := ParsePattern(pattern.String())
		if err != nil {
			t.Fatalf("round trip of %v failed: %v", pattern, err)
		}
		if parsed != pattern {
			t.Fatalf("round trip of %v yielded %v", pattern, parsed)
		}
	}
}

func TestParseClock(t *testing.T) {
	minutes, err := ParseClock("14:30")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if minutes != 14*60+30 {
		t.Fatalf("expected 870 minutes, got %d", minutes)
	}

	for _, value := range []string{"", "14", "14:30:00", "24:00", "12:60", "ab:cd"} {
		if _, err := ParseClock(value); !errors.Is(err, ErrInvalidClock) {
			t.Fatalf("expected ErrInvalidClock for %q, got %v", value, err)
		}
	}
}

func TestWeekdayTokens(t *testing.T) {
	days, err := ParseWeekdays("Mon,Wed,Fri")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	want := []time.Weekday{time.Monday, time.Wednesday, time.Friday}
	for i := range want {
		if days[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, days)
		}
	}

	if got := FormatWeekdays(want); got != "Mon,Wed,Fri" {
		t.Fatalf("expected canonical tokens, got %q", got)
	}

	if _, err := ParseWeekdays("Mon,Funday"); !errors.Is(err, ErrUnknownWeekday) {
		t.Fatalf("expected ErrUnknownWeekday, got %v", err)
	}

	if days, err := ParseWeekdays("  "); err != nil || days != nil {
		t.Fatalf("expected empty input to yield nil, got %v, %v", days, err)
	}
}
