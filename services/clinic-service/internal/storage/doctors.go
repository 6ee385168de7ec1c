package storage

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/mpontes/clinicore/libs/db"
	"github.com/mpontes/clinicore/services/clinic-service/internal/model"
)

type DoctorRepository struct {
	pool *db.Pool
}

func NewDoctorRepository(pool *db.Pool) *DoctorRepository {
	return &DoctorRepository{pool: pool}
}

func (r *DoctorRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

const doctorColumns = `
	id, name, specialty, crm, phone, email, status, created_at`

func scanDoctor(row pgx.Row) (model.Doctor, error) {
	var d model.Doctor
	err := row.Scan(&d.ID, &d.Name, &d.Specialty, &d.CRM, &d.Phone, &d.Email, &d.Status, &d.CreatedAt)
	return d, err
}

func (r *DoctorRepository) Create(ctx context.Context, tx pgx.Tx, d *model.Doctor) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO doctors (name, specialty, crm, phone, email, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, d.Name, d.Specialty, d.CRM, d.Phone, d.Email, d.Status).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *DoctorRepository) Get(ctx context.Context, id string) (model.Doctor, error) {
	return scanDoctor(r.pool.QueryRow(ctx, `
		SELECT`+doctorColumns+`
		FROM doctors
		WHERE id = $1
	`, id))
}

func (r *DoctorRepository) List(ctx context.Context, onlyActive bool, limit int) ([]model.Doctor, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT`+doctorColumns+`
		FROM doctors
		WHERE NOT $1 OR status = 'active'
		ORDER BY name
		LIMIT $2
	`, onlyActive, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var doctors []model.Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		doctors = append(doctors, d)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return doctors, nil
}

func (r *DoctorRepository) Update(ctx context.Context, d *model.Doctor) (model.Doctor, error) {
	return scanDoctor(r.pool.QueryRow(ctx, `
		UPDATE doctors
		SET name = $2, specialty = $3, crm = $4, phone = $5, email = $6, status = $7
		WHERE id = $1
		RETURNING`+doctorColumns+`
	`, d.ID, d.Name, d.Specialty, d.CRM, d.Phone, d.Email, d.Status))
}

func (r *DoctorRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM doctors WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
