package application

import (
	"fmt"
	"strings"
	"time"

	"github.com/example/wellness-reminders/internal/notification"
	"github.com/example/wellness-reminders/internal/recurrence"
)

const startDateLayout = "2006-01-02"

// buildReminder validates a reminder submission and converts it into the
// domain representation. Field errors are keyed by the reminder's position so
// issues across a whole aggregate stay distinguishable.
func buildReminder(input ReminderInput, index int, idGenerator func() string) (recurrence.Reminder, *ValidationError) {
	vErr := &ValidationError{}
	field := func(name string) string {
		return fmt.Sprintf("reminders[%d].%s", index, name)
	}

	clock := strings.TrimSpace(input.Time)
	if clock == "" {
		vErr.add(field("time"), "time is required")
	} else if _, err := recurrence.ParseClock(clock); err != nil {
		vErr.add(field("time"), "time must be HH:MM")
	}

	days, dayErr := parseDayTokens(input.Days)
	if dayErr != "" {
		vErr.add(field("days"), dayErr)
	}

	rule, ruleErrs := buildRule(input.Rule, field, len(days))
	vErr.merge(ruleErrs)

	if vErr.HasErrors() {
		return recurrence.Reminder{}, vErr
	}

	id := strings.TrimSpace(input.ID)
	if id == "" {
		id = idGenerator()
	}

	return recurrence.Reminder{
		ID:      id,
		Time:    clock,
		Days:    days,
		Enabled: input.Enabled,
		Message: strings.TrimSpace(input.Message),
		Rule:    rule,
	}, nil
}

// buildRule validates a rule submission. A progressive rule with no explicit
// base frequency snapshots the reminder's weekday count.
func buildRule(input *RuleInput, field func(string) string, dayCount int) (*recurrence.ScheduleRule, *ValidationError) {
	if input == nil {
		return nil, nil
	}

	vErr := &ValidationError{}

	pattern, err := recurrence.ParsePattern(strings.TrimSpace(input.Pattern))
	if err != nil {
		vErr.add(field("rule.pattern"), "unknown schedule pattern")
		return nil, vErr
	}

	rule := &recurrence.ScheduleRule{
		Pattern:   pattern,
		Intensity: recurrence.ParseIntensity(strings.TrimSpace(input.Intensity)),
	}

	switch pattern {
	case recurrence.PatternAlternating:
		weekA, errA := parseDayTokens(input.WeekA)
		if errA != "" {
			vErr.add(field("rule.week_a"), errA)
		} else if len(weekA) == 0 {
			vErr.add(field("rule.week_a"), "week A needs at least one weekday")
		}
		weekB, errB := parseDayTokens(input.WeekB)
		if errB != "" {
			vErr.add(field("rule.week_b"), errB)
		} else if len(weekB) == 0 {
			vErr.add(field("rule.week_b"), "week B needs at least one weekday")
		}
		rule.Alternating = &recurrence.AlternatingRule{WeekA: weekA, WeekB: weekB}
	case recurrence.PatternProgressive:
		if input.Rate <= 0 {
			vErr.add(field("rule.rate"), "rate must be greater than zero")
		}
		progressive := &recurrence.ProgressiveRule{
			Rate:          input.Rate,
			BaseFrequency: input.BaseFrequency,
		}
		if start := strings.TrimSpace(input.StartDate); start != "" {
			parsed, err := time.Parse(startDateLayout, start)
			if err != nil {
				vErr.add(field("rule.start_date"), "start date must be YYYY-MM-DD")
			} else {
				progressive.StartDate = parsed
			}
		}
		if progressive.BaseFrequency <= 0 {
			progressive.BaseFrequency = dayCount
		}
		rule.Progressive = progressive
	case recurrence.PatternCyclic:
		if input.ActiveDays <= 0 {
			vErr.add(field("rule.active_days"), "active days must be greater than zero")
		}
		if input.RestDays <= 0 {
			vErr.add(field("rule.rest_days"), "rest days must be greater than zero")
		}
		rule.Cyclic = &recurrence.CyclicRule{
			ActiveDays: input.ActiveDays,
			RestDays:   input.RestDays,
		}
	}

	if vErr.HasErrors() {
		return nil, vErr
	}
	return rule, nil
}

func parseDayTokens(tokens []string) ([]time.Weekday, string) {
	if len(tokens) == 0 {
		return nil, ""
	}
	days := make([]time.Weekday, 0, len(tokens))
	seen := make(map[time.Weekday]bool)
	for _, token := range tokens {
		day, err := recurrence.ParseWeekday(strings.TrimSpace(token))
		if err != nil {
			return nil, fmt.Sprintf("unknown weekday %q", token)
		}
		if seen[day] {
			continue
		}
		seen[day] = true
		days = append(days, day)
	}
	return days, ""
}

func validateMethod(method string) (notification.Method, string) {
	parsed, err := notification.ParseMethod(strings.TrimSpace(method))
	if err != nil {
		return "", "notification method must be browser, email, or both"
	}
	return parsed, ""
}
