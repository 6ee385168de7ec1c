package storage

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/mpontes/clinicore/libs/db"
	"github.com/mpontes/clinicore/services/clinic-service/internal/model"
)

type PatientRepository struct {
	pool *db.Pool
}

func NewPatientRepository(pool *db.Pool) *PatientRepository {
	return &PatientRepository{pool: pool}
}

func (r *PatientRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

const patientColumns = `
	id, name, cpf, birth_date, phone, email, COALESCE(address, ''), COALESCE(health_insurance, ''), created_at`

func scanPatient(row pgx.Row) (model.Patient, error) {
	var p model.Patient
	err := row.Scan(&p.ID, &p.Name, &p.CPF, &p.BirthDate, &p.Phone, &p.Email, &p.Address, &p.HealthInsurance, &p.CreatedAt)
	return p, err
}

func (r *PatientRepository) Create(ctx context.Context, tx pgx.Tx, p *model.Patient) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO patients (name, cpf, birth_date, phone, email, address, health_insurance)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, p.Name, p.CPF, p.BirthDate, p.Phone, p.Email, p.Address, p.HealthInsurance).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *PatientRepository) Get(ctx context.Context, id string) (model.Patient, error) {
	return scanPatient(r.pool.QueryRow(ctx, `
		SELECT`+patientColumns+`
		FROM patients
		WHERE id = $1
	`, id))
}

// GetName resolves a patient's display name inside a transition transaction.
func (r *PatientRepository) GetName(ctx context.Context, tx pgx.Tx, id string) (string, error) {
	var name string
	err := tx.QueryRow(ctx, `SELECT name FROM patients WHERE id = $1`, id).Scan(&name)
	return name, err
}

func (r *PatientRepository) List(ctx context.Context, search string, limit int) ([]model.Patient, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT`+patientColumns+`
		FROM patients
		WHERE $1 = '' OR name ILIKE '%' || $1 || '%' OR cpf = $1
		ORDER BY name
		LIMIT $2
	`, search, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var patients []model.Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		patients = append(patients, p)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return patients, nil
}

func (r *PatientRepository) Update(ctx context.Context, p *model.Patient) (model.Patient, error) {
	return scanPatient(r.pool.QueryRow(ctx, `
		UPDATE patients
		SET name = $2, cpf = $3, birth_date = $4, phone = $5, email = $6, address = $7, health_insurance = $8
		WHERE id = $1
		RETURNING`+patientColumns+`
	`, p.ID, p.Name, p.CPF, p.BirthDate, p.Phone, p.Email, p.Address, p.HealthInsurance))
}

func (r *PatientRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
