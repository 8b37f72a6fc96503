package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/wellness-reminders/internal/persistence"
	"github.com/example/wellness-reminders/internal/recurrence"
)

// rulePayload is the JSON shape stored in reminders.rule_payload. Only the
// fields belonging to the row's pattern are populated; decoding restores the
// matching variant and drops the rest.
type rulePayload struct {
	Intensity     string  `json:"intensity,omitempty"`
	WeekA         string  `json:"week_a,omitempty"`
	WeekB         string  `json:"week_b,omitempty"`
	StartDate     string  `json:"start_date,omitempty"`
	Rate          float64 `json:"rate,omitempty"`
	BaseFrequency int     `json:"base_frequency,omitempty"`
	ActiveDays    int     `json:"active_days,omitempty"`
	RestDays      int     `json:"rest_days,omitempty"`
}

// encodeRule renders a schedule rule as a pattern tag plus JSON payload.
// A nil rule yields empty strings.
func encodeRule(rule *recurrence.ScheduleRule) (pattern, payload string, err error) {
	if rule == nil {
		return "", "", nil
	}

	encoded := rulePayload{}
	if rule.Intensity != recurrence.IntensityUnspecified {
		encoded.Intensity = rule.Intensity.String()
	}

	switch rule.Pattern {
	case recurrence.PatternAlternating:
		if rule.Alternating != nil {
			encoded.WeekA = recurrence.FormatWeekdays(rule.Alternating.WeekA)
			encoded.WeekB = recurrence.FormatWeekdays(rule.Alternating.WeekB)
		}
	case recurrence.PatternProgressive:
		if rule.Progressive != nil {
			if !rule.Progressive.StartDate.IsZero() {
				encoded.StartDate = rule.Progressive.StartDate.UTC().Format(time.RFC3339)
			}
			encoded.Rate = rule.Progressive.Rate
			encoded.BaseFrequency = rule.Progressive.BaseFrequency
		}
	case recurrence.PatternCyclic:
		if rule.Cyclic != nil {
			encoded.ActiveDays = rule.Cyclic.ActiveDays
			encoded.RestDays = rule.Cyclic.RestDays
		}
	}

	data, err := json.Marshal(encoded)
	if err != nil {
		return "", "", fmt.Errorf("sqlite: encode rule payload: %w", err)
	}
	return rule.Pattern.String(), string(data), nil
}

// decodeRule restores a schedule rule from its stored representation.
func decodeRule(pattern, payload string) (*recurrence.ScheduleRule, error) {
	if pattern == "" {
		return nil, nil
	}

	parsed, err := recurrence.ParsePattern(pattern)
	if err != nil {
		return nil, fmt.Errorf("sqlite: decode rule pattern: %w", err)
	}

	decoded := rulePayload{}
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
			return nil, fmt.Errorf("sqlite: decode rule payload: %w", err)
		}
	}

	rule := &recurrence.ScheduleRule{
		Pattern:   parsed,
		Intensity: recurrence.ParseIntensity(decoded.Intensity),
	}

	switch parsed {
	case recurrence.PatternAlternating:
		weekA, err := recurrence.ParseWeekdays(decoded.WeekA)
		if err != nil {
			return nil, fmt.Errorf("sqlite: decode alternating days: %w", err)
		}
		weekB, err := recurrence.ParseWeekdays(decoded.WeekB)
		if err != nil {
			return nil, fmt.Errorf("sqlite: decode alternating days: %w", err)
		}
		rule.Alternating = &recurrence.AlternatingRule{WeekA: weekA, WeekB: weekB}
	case recurrence.PatternProgressive:
		progressive := &recurrence.ProgressiveRule{
			Rate:          decoded.Rate,
			BaseFrequency: decoded.BaseFrequency,
		}
		if decoded.StartDate != "" {
			start, err := time.Parse(time.RFC3339, decoded.StartDate)
			if err != nil {
				return nil, fmt.Errorf("sqlite: decode progressive start date: %w", err)
			}
			progressive.StartDate = start
		}
		rule.Progressive = progressive
	case recurrence.PatternCyclic:
		rule.Cyclic = &recurrence.CyclicRule{
			ActiveDays: decoded.ActiveDays,
			RestDays:   decoded.RestDays,
		}
	}

	return rule, nil
}

// templateItem is the JSON shape of one prototype inside
// reminder_templates.items.
type templateItem struct {
	Time        string          `json:"time"`
	Days        string          `json:"days"`
	Message     string          `json:"message,omitempty"`
	RulePattern string          `json:"rule_pattern,omitempty"`
	RulePayload json.RawMessage `json:"rule_payload,omitempty"`
}

func encodeTemplateItems(items []persistence.TemplateItem) (string, error) {
	encoded := make([]templateItem, 0, len(items))
	for _, item := range items {
		pattern, payload, err := encodeRule(item.Rule)
		if err != nil {
			return "", err
		}
		entry := templateItem{
			Time:        item.Time,
			Days:        recurrence.FormatWeekdays(item.Days),
			Message:     item.Message,
			RulePattern: pattern,
		}
		if payload != "" {
			entry.RulePayload = json.RawMessage(payload)
		}
		encoded = append(encoded, entry)
	}

	data, err := json.Marshal(encoded)
	if err != nil {
		return "", fmt.Errorf("sqlite: encode template items: %w", err)
	}
	return string(data), nil
}

func decodeTemplateItems(data string) ([]persistence.TemplateItem, error) {
	if data == "" {
		return nil, nil
	}

	var encoded []templateItem
	if err := json.Unmarshal([]byte(data), &encoded); err != nil {
		return nil, fmt.Errorf("sqlite: decode template items: %w", err)
	}

	items := make([]persistence.TemplateItem, 0, len(encoded))
	for _, entry := range encoded {
		days, err := recurrence.ParseWeekdays(entry.Days)
		if err != nil {
			return nil, fmt.Errorf("sqlite: decode template days: %w", err)
		}
		rule, err := decodeRule(entry.RulePattern, string(entry.RulePayload))
		if err != nil {
			return nil, err
		}
		items = append(items, persistence.TemplateItem{
			Time:    entry.Time,
			Days:    days,
			Message: entry.Message,
			Rule:    rule,
		})
	}
	return items, nil
}
