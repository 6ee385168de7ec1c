package storage

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/mpontes/clinicore/libs/db"
	"github.com/mpontes/clinicore/services/clinic-service/internal/model"
)

type BankAccountRepository struct {
	pool *db.Pool
}

func NewBankAccountRepository(pool *db.Pool) *BankAccountRepository {
	return &BankAccountRepository{pool: pool}
}

const bankAccountColumns = `
	id, name, bank, agency, account, balance, created_at`

func scanBankAccount(row pgx.Row) (model.BankAccount, error) {
	var a model.BankAccount
	err := row.Scan(&a.ID, &a.Name, &a.Bank, &a.Agency, &a.Account, &a.Balance, &a.CreatedAt)
	return a, err
}

func (r *BankAccountRepository) Create(ctx context.Context, a *model.BankAccount) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO bank_accounts (name, bank, agency, account, balance)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, a.Name, a.Bank, a.Agency, a.Account, a.Balance).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *BankAccountRepository) Get(ctx context.Context, id string) (model.BankAccount, error) {
	return scanBankAccount(r.pool.QueryRow(ctx, `
		SELECT`+bankAccountColumns+`
		FROM bank_accounts
		WHERE id = $1
	`, id))
}

// GetTx resolves the account inside a transition transaction, for the posting
// description and the notification label.
func (r *BankAccountRepository) GetTx(ctx context.Context, tx pgx.Tx, id string) (model.BankAccount, error) {
	return scanBankAccount(tx.QueryRow(ctx, `
		SELECT`+bankAccountColumns+`
		FROM bank_accounts
		WHERE id = $1
	`, id))
}

func (r *BankAccountRepository) List(ctx context.Context) ([]model.BankAccount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+bankAccountColumns+`
		FROM bank_accounts
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []model.BankAccount
	for rows.Next() {
		a, err := scanBankAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return accounts, nil
}

func (r *BankAccountRepository) Update(ctx context.Context, a *model.BankAccount) (model.BankAccount, error) {
	return scanBankAccount(r.pool.QueryRow(ctx, `
		UPDATE bank_accounts
		SET name = $2, bank = $3, agency = $4, account = $5, balance = $6
		WHERE id = $1
		RETURNING`+bankAccountColumns+`
	`, a.ID, a.Name, a.Bank, a.Agency, a.Account, a.Balance))
}

func (r *BankAccountRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM bank_accounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
