package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/mpontes/clinicore/libs/db"
	"github.com/mpontes/clinicore/services/clinic-service/internal/model"
)

type AppointmentRepository struct {
	pool *db.Pool
}

func NewAppointmentRepository(pool *db.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

func (r *AppointmentRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *AppointmentRepository) Create(ctx context.Context, tx pgx.Tx, appt *model.Appointment) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO appointments (patient_id, doctor_id, service_id, date, time, price, notes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, appt.PatientID, appt.DoctorID, appt.ServiceID, appt.Date, appt.Time, appt.Price, appt.Notes, appt.Status).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

const appointmentColumns = `
	id, patient_id, doctor_id, service_id, date, time, price, COALESCE(notes, ''), status, created_at`

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var appt model.Appointment
	err := row.Scan(
		&appt.ID,
		&appt.PatientID,
		&appt.DoctorID,
		&appt.ServiceID,
		&appt.Date,
		&appt.Time,
		&appt.Price,
		&appt.Notes,
		&appt.Status,
		&appt.CreatedAt,
	)
	return appt, err
}

// GetForUpdate row-locks the appointment for the duration of a status
// transition.
func (r *AppointmentRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (model.Appointment, error) {
	return scanAppointment(tx.QueryRow(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE id = $1
		FOR UPDATE
	`, id))
}

func (r *AppointmentRepository) Get(ctx context.Context, id string) (model.Appointment, error) {
	return scanAppointment(r.pool.QueryRow(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id))
}

type AppointmentFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Status    string
	Limit     int
}

func (r *AppointmentRepository) List(ctx context.Context, f AppointmentFilter) ([]model.Appointment, error) {
	if f.Limit <= 0 {
		f.Limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE ($1::date IS NULL OR date >= $1)
			AND ($2::date IS NULL OR date <= $2)
			AND ($3 = '' OR status = $3)
		ORDER BY date DESC, time DESC
		LIMIT $4
	`, f.StartDate, f.EndDate, f.Status, f.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

func (r *AppointmentRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id, status string) error {
	tag, err := tx.Exec(ctx, `
		UPDATE appointments
		SET status = $2
		WHERE id = $1
	`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// UpdateDetails patches date, time and notes. Price and status are never
// touched here: price is fixed at creation and status changes go through the
// transition flow.
func (r *AppointmentRepository) UpdateDetails(ctx context.Context, id string, date *time.Time, timeOfDay, notes *string) (model.Appointment, error) {
	return scanAppointment(r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET date = COALESCE($2, date),
			time = COALESCE($3, time),
			notes = COALESCE($4, notes)
		WHERE id = $1
		RETURNING`+appointmentColumns+`
	`, id, date, timeOfDay, notes))
}

func (r *AppointmentRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
