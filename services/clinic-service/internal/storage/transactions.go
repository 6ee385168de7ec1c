package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/mpontes/clinicore/libs/db"
	"github.com/mpontes/clinicore/services/clinic-service/internal/model"
)

// TransactionRepository stores receivables and payables.
type TransactionRepository struct {
	pool *db.Pool
}

func NewTransactionRepository(pool *db.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

func (r *TransactionRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

const transactionColumns = `
	id, type, description, amount, due_date, paid_date, status, category, COALESCE(reference, ''), created_at`

func scanTransaction(row pgx.Row) (model.Transaction, error) {
	var t model.Transaction
	err := row.Scan(&t.ID, &t.Type, &t.Description, &t.Amount, &t.DueDate, &t.PaidDate, &t.Status, &t.Category, &t.Reference, &t.CreatedAt)
	return t, err
}

func (r *TransactionRepository) Create(ctx context.Context, tx pgx.Tx, t *model.Transaction) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO transactions (type, description, amount, due_date, status, category, reference)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, t.Type, t.Description, t.Amount, t.DueDate, t.Status, t.Category, t.Reference).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *TransactionRepository) Get(ctx context.Context, id string) (model.Transaction, error) {
	return scanTransaction(r.pool.QueryRow(ctx, `
		SELECT`+transactionColumns+`
		FROM transactions
		WHERE id = $1
	`, id))
}

func (r *TransactionRepository) List(ctx context.Context, txType, status string, limit int) ([]model.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT`+transactionColumns+`
		FROM transactions
		WHERE ($1 = '' OR type = $1)
			AND ($2 = '' OR status = $2)
		ORDER BY due_date DESC
		LIMIT $3
	`, txType, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return transactions, nil
}

// MarkPaid flips a pending or overdue transaction to paid. Returns the
// updated row; pgx.ErrNoRows when the transaction is not payable.
func (r *TransactionRepository) MarkPaid(ctx context.Context, tx pgx.Tx, id string, paidDate time.Time) (model.Transaction, error) {
	return scanTransaction(tx.QueryRow(ctx, `
		UPDATE transactions
		SET status = 'paid', paid_date = $2
		WHERE id = $1 AND status IN ('pending', 'overdue')
		RETURNING`+transactionColumns+`
	`, id, paidDate))
}

func (r *TransactionRepository) Cancel(ctx context.Context, id string) (model.Transaction, error) {
	return scanTransaction(r.pool.QueryRow(ctx, `
		UPDATE transactions
		SET status = 'cancelled'
		WHERE id = $1 AND status IN ('pending', 'overdue')
		RETURNING`+transactionColumns+`
	`, id))
}

// SweepOverdue marks pending transactions past their due date as overdue and
// returns the affected rows so the caller can emit one event per transaction.
func (r *TransactionRepository) SweepOverdue(ctx context.Context, tx pgx.Tx, asOf time.Time) ([]model.Transaction, error) {
	rows, err := tx.Query(ctx, `
		UPDATE transactions
		SET status = 'overdue'
		WHERE status = 'pending' AND due_date < $1::date
		RETURNING`+transactionColumns+`
	`, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var overdue []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		overdue = append(overdue, t)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return overdue, nil
}
