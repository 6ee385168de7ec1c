package feed

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/mpontes/clinicore/libs/db"
)

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, e *Entry) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO notifications (title, message, type, category)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, e.Title, e.Message, e.Type, e.Category).Scan(&id)
	if err != nil {
		return "", err
	}
	e.ID = id
	return id, nil
}

func (r *Repository) List(ctx context.Context, limit int, unreadOnly bool) ([]Entry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := `
		SELECT id, title, message, type, category, read, created_at
		FROM notifications
	`
	if unreadOnly {
		query += ` WHERE NOT read`
	}
	query += ` ORDER BY created_at DESC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Title, &e.Message, &e.Type, &e.Category, &e.Read, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *Repository) UnreadCount(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE NOT read`).Scan(&count)
	return count, err
}

func (r *Repository) MarkRead(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *Repository) MarkAllRead(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE NOT read`)
	return err
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *Repository) ClearAll(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM notifications`)
	return err
}

// GetSettings returns the clinic-wide settings row, falling back to defaults
// when it has not been written yet.
func (r *Repository) GetSettings(ctx context.Context) (Settings, error) {
	var s Settings
	err := r.pool.QueryRow(ctx, `
		SELECT appointment_reminders, overdue_payments, new_appointments,
		       system_alerts, email_notifications, sound_enabled
		FROM notification_settings
		WHERE id = 1
	`).Scan(&s.AppointmentReminders, &s.OverduePayments, &s.NewAppointments,
		&s.SystemAlerts, &s.EmailNotifications, &s.SoundEnabled)
	if errors.Is(err, pgx.ErrNoRows) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (r *Repository) SaveSettings(ctx context.Context, s Settings) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notification_settings
			(id, appointment_reminders, overdue_payments, new_appointments,
			 system_alerts, email_notifications, sound_enabled)
		VALUES (1, $1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			appointment_reminders = EXCLUDED.appointment_reminders,
			overdue_payments      = EXCLUDED.overdue_payments,
			new_appointments      = EXCLUDED.new_appointments,
			system_alerts         = EXCLUDED.system_alerts,
			email_notifications   = EXCLUDED.email_notifications,
			sound_enabled         = EXCLUDED.sound_enabled
	`, s.AppointmentReminders, s.OverduePayments, s.NewAppointments,
		s.SystemAlerts, s.EmailNotifications, s.SoundEnabled)
	return err
}
