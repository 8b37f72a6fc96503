package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/wellness-reminders/internal/persistence"
	"github.com/example/wellness-reminders/internal/recurrence"
)

// GetSettings loads the reminder settings aggregate for a user, including
// its ordered reminder list.
func (s *Storage) GetSettings(ctx context.Context, userID string) (persistence.ReminderSettings, error) {
	query := `
		SELECT user_id, enabled, notification_method, updated_at
		FROM reminder_settings
		WHERE user_id = ?
	`

	var (
		settings  persistence.ReminderSettings
		enabled   int
		updatedAt string
	)
	row := s.db.QueryRowContext(ctx, query, userID)
	err := row.Scan(&settings.UserID, &enabled, &settings.NotificationMethod, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.ReminderSettings{}, persistence.ErrNotFound
	}
	if err != nil {
		return persistence.ReminderSettings{}, fmt.Errorf("sqlite: load settings for %s: %w", userID, err)
	}

	settings.Enabled = enabled != 0
	settings.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return persistence.ReminderSettings{}, fmt.Errorf("sqlite: parse settings timestamp: %w", err)
	}

	settings.Reminders, err = s.loadReminders(ctx, userID)
	if err != nil {
		return persistence.ReminderSettings{}, err
	}
	return settings, nil
}

func (s *Storage) loadReminders(ctx context.Context, userID string) ([]recurrence.Reminder, error) {
	query := `
		SELECT id, fire_time, days, enabled, message, rule_pattern, rule_payload
		FROM reminders
		WHERE user_id = ?
		ORDER BY position
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: load reminders for %s: %w", userID, err)
	}
	defer rows.Close()

	var reminders []recurrence.Reminder
	for rows.Next() {
		var (
			reminder    recurrence.Reminder
			days        string
			enabled     int
			rulePattern sql.NullString
			rulePayload sql.NullString
		)
		if err := rows.Scan(&reminder.ID, &reminder.Time, &days, &enabled, &reminder.Message, &rulePattern, &rulePayload); err != nil {
			return nil, fmt.Errorf("sqlite: scan reminder: %w", err)
		}
		reminder.Enabled = enabled != 0
		reminder.Days, err = recurrence.ParseWeekdays(days)
		if err != nil {
			return nil, fmt.Errorf("sqlite: decode reminder days: %w", err)
		}
		reminder.Rule, err = decodeRule(rulePattern.String, rulePayload.String)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, reminder)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate reminders: %w", err)
	}
	return reminders, nil
}

// SaveSettings stores the whole aggregate, replacing any previously saved
// reminder list for the user. Last write wins.
func (s *Storage) SaveSettings(ctx context.Context, settings persistence.ReminderSettings) error {
	if settings.UserID == "" {
		return persistence.ErrConstraintViolation
	}
	for _, reminder := range settings.Reminders {
		if reminder.ID == "" {
			return persistence.ErrConstraintViolation
		}
	}

	updatedAt := settings.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin save settings: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	upsert := `
		INSERT INTO reminder_settings (user_id, enabled, notification_method, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			enabled = excluded.enabled,
			notification_method = excluded.notification_method,
			updated_at = excluded.updated_at
	`
	if _, err := tx.ExecContext(ctx, upsert,
		settings.UserID,
		boolToInt(settings.Enabled),
		settings.NotificationMethod,
		updatedAt.UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("sqlite: save settings for %s: %w", settings.UserID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM reminders WHERE user_id = ?`, settings.UserID); err != nil {
		return fmt.Errorf("sqlite: clear reminders for %s: %w", settings.UserID, err)
	}

	insert := `
		INSERT INTO reminders (id, user_id, position, fire_time, days, enabled, message, rule_pattern, rule_payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for position, reminder := range settings.Reminders {
		pattern, payload, err := encodeRule(reminder.Rule)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, insert,
			reminder.ID,
			settings.UserID,
			position,
			reminder.Time,
			recurrence.FormatWeekdays(reminder.Days),
			boolToInt(reminder.Enabled),
			reminder.Message,
			pattern,
			payload,
		); err != nil {
			return fmt.Errorf("sqlite: save reminder %s: %w", reminder.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit save settings: %w", err)
	}
	return nil
}

// DeleteSettings removes a user's settings row. Reminder rows cascade.
func (s *Storage) DeleteSettings(ctx context.Context, userID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM reminder_settings WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("sqlite: delete settings for %s: %w", userID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: delete settings for %s: %w", userID, err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
