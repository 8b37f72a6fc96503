package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/wellness-reminders/internal/persistence"
)

// CreateTemplate inserts a new reminder template.
func (s *Storage) CreateTemplate(ctx context.Context, template persistence.ReminderTemplate) error {
	if template.ID == "" || template.Name == "" {
		return persistence.ErrConstraintViolation
	}

	items, err := encodeTemplateItems(template.Items)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	createdAt := template.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := template.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = now
	}

	query := `
		INSERT INTO reminder_templates (id, name, description, author, public, likes, downloads, items, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query,
		template.ID,
		template.Name,
		template.Description,
		template.Author,
		boolToInt(template.Public),
		template.Likes,
		template.Downloads,
		items,
		createdAt.Format(time.RFC3339),
		updatedAt.Format(time.RFC3339),
	); err != nil {
		if isConstraintError(err) {
			return persistence.ErrConstraintViolation
		}
		return fmt.Errorf("sqlite: create template %s: %w", template.ID, err)
	}
	return nil
}

// GetTemplate loads a single template by ID.
func (s *Storage) GetTemplate(ctx context.Context, id string) (persistence.ReminderTemplate, error) {
	query := `
		SELECT id, name, description, author, public, likes, downloads, items, created_at, updated_at
		FROM reminder_templates
		WHERE id = ?
	`
	template, err := scanTemplate(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.ReminderTemplate{}, persistence.ErrNotFound
	}
	if err != nil {
		return persistence.ReminderTemplate{}, fmt.Errorf("sqlite: load template %s: %w", id, err)
	}
	return template, nil
}

// ListTemplates returns templates matching the filter, newest first.
func (s *Storage) ListTemplates(ctx context.Context, filter persistence.TemplateFilter) ([]persistence.ReminderTemplate, error) {
	query := `
		SELECT id, name, description, author, public, likes, downloads, items, created_at, updated_at
		FROM reminder_templates
	`
	var (
		conditions []string
		args       []any
	)
	if filter.Author != "" {
		conditions = append(conditions, "author = ?")
		args = append(args, filter.Author)
	}
	if filter.PublicOnly {
		conditions = append(conditions, "public = 1")
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list templates: %w", err)
	}
	defer rows.Close()

	var templates []persistence.ReminderTemplate
	for rows.Next() {
		template, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan template: %w", err)
		}
		templates = append(templates, template)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate templates: %w", err)
	}
	return templates, nil
}

// IncrementTemplateLikes bumps the like counter by one.
func (s *Storage) IncrementTemplateLikes(ctx context.Context, id string) error {
	return s.incrementCounter(ctx, id, "likes")
}

// IncrementTemplateDownloads bumps the download counter by one.
func (s *Storage) IncrementTemplateDownloads(ctx context.Context, id string) error {
	return s.incrementCounter(ctx, id, "downloads")
}

func (s *Storage) incrementCounter(ctx context.Context, id, column string) error {
	query := fmt.Sprintf(`UPDATE reminder_templates SET %s = %s + 1 WHERE id = ?`, column, column)
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("sqlite: increment template %s: %w", column, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: increment template %s: %w", column, err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// DeleteTemplate removes a template by ID.
func (s *Storage) DeleteTemplate(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM reminder_templates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete template %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: delete template %s: %w", id, err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (persistence.ReminderTemplate, error) {
	var (
		template  persistence.ReminderTemplate
		public    int
		items     string
		createdAt string
		updatedAt string
	)
	if err := row.Scan(
		&template.ID,
		&template.Name,
		&template.Description,
		&template.Author,
		&public,
		&template.Likes,
		&template.Downloads,
		&items,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.ReminderTemplate{}, err
	}

	template.Public = public != 0

	var err error
	template.Items, err = decodeTemplateItems(items)
	if err != nil {
		return persistence.ReminderTemplate{}, err
	}
	template.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return persistence.ReminderTemplate{}, err
	}
	template.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return persistence.ReminderTemplate{}, err
	}
	return template, nil
}

func isConstraintError(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "constraint")
}
