package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/mpontes/clinicore/libs/db"
	"github.com/mpontes/clinicore/services/clinic-service/internal/model"
)

// LedgerRepository stores cash register and bank account movements. Entries
// posted by appointment completions carry the appointment id; a partial unique
// index on that column makes a duplicate posting a constraint violation.
type LedgerRepository struct {
	pool *db.Pool
}

func NewLedgerRepository(pool *db.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

func (r *LedgerRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *LedgerRepository) InsertCashMovement(ctx context.Context, tx pgx.Tx, m *model.CashMovement) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO cash_movements (type, description, amount, date, category, payment_method, appointment_id)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7::text, '')::uuid)
		RETURNING id
	`, m.Type, m.Description, m.Amount, m.Date, m.Category, m.PaymentMethod, m.AppointmentID).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *LedgerRepository) InsertBankMovement(ctx context.Context, tx pgx.Tx, m *model.BankMovement) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO bank_movements (account_id, type, description, amount, date, category, appointment_id)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7::text, '')::uuid)
		RETURNING id
	`, m.AccountID, m.Type, m.Description, m.Amount, m.Date, m.Category, m.AppointmentID).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// HasPostingForAppointment reports whether either ledger already holds an
// entry for the appointment. Belt and braces on top of the unique indexes.
func (r *LedgerRepository) HasPostingForAppointment(ctx context.Context, tx pgx.Tx, appointmentID string) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM cash_movements WHERE appointment_id = $1)
			OR EXISTS (SELECT 1 FROM bank_movements WHERE appointment_id = $1)
	`, appointmentID).Scan(&exists)
	return exists, err
}

func (r *LedgerRepository) ListCashMovements(ctx context.Context, start, end *time.Time, limit int) ([]model.CashMovement, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, type, description, amount, date, category, payment_method, COALESCE(appointment_id::text, ''), created_at
		FROM cash_movements
		WHERE ($1::timestamptz IS NULL OR date >= $1)
			AND ($2::timestamptz IS NULL OR date <= $2)
		ORDER BY date DESC
		LIMIT $3
	`, start, end, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movements []model.CashMovement
	for rows.Next() {
		var m model.CashMovement
		if err := rows.Scan(&m.ID, &m.Type, &m.Description, &m.Amount, &m.Date, &m.Category, &m.PaymentMethod, &m.AppointmentID, &m.CreatedAt); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return movements, nil
}

func (r *LedgerRepository) ListBankMovements(ctx context.Context, accountID string, start, end *time.Time, limit int) ([]model.BankMovement, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, account_id, type, description, amount, date, category, COALESCE(appointment_id::text, ''), created_at
		FROM bank_movements
		WHERE ($1 = '' OR account_id::text = $1)
			AND ($2::timestamptz IS NULL OR date >= $2)
			AND ($3::timestamptz IS NULL OR date <= $3)
		ORDER BY date DESC
		LIMIT $4
	`, accountID, start, end, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movements []model.BankMovement
	for rows.Next() {
		var m model.BankMovement
		if err := rows.Scan(&m.ID, &m.AccountID, &m.Type, &m.Description, &m.Amount, &m.Date, &m.Category, &m.AppointmentID, &m.CreatedAt); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return movements, nil
}
