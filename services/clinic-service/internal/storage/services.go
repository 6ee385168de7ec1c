package storage

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/mpontes/clinicore/libs/db"
	"github.com/mpontes/clinicore/services/clinic-service/internal/model"
)

type ServiceRepository struct {
	pool *db.Pool
}

func NewServiceRepository(pool *db.Pool) *ServiceRepository {
	return &ServiceRepository{pool: pool}
}

func (r *ServiceRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

const serviceColumns = `
	id, name, COALESCE(description, ''), price, duration_minutes, category, status, created_at`

func scanService(row pgx.Row) (model.Service, error) {
	var s model.Service
	err := row.Scan(&s.ID, &s.Name, &s.Description, &s.Price, &s.DurationMinutes, &s.Category, &s.Status, &s.CreatedAt)
	return s, err
}

func (r *ServiceRepository) Create(ctx context.Context, tx pgx.Tx, s *model.Service) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO services (name, description, price, duration_minutes, category, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, s.Name, s.Description, s.Price, s.DurationMinutes, s.Category, s.Status).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *ServiceRepository) Get(ctx context.Context, id string) (model.Service, error) {
	return scanService(r.pool.QueryRow(ctx, `
		SELECT`+serviceColumns+`
		FROM services
		WHERE id = $1
	`, id))
}

// GetPriced loads the catalog entry for price snapshotting inside an
// appointment creation transaction. Inactive services cannot be booked.
func (r *ServiceRepository) GetPriced(ctx context.Context, tx pgx.Tx, id string) (model.Service, error) {
	return scanService(tx.QueryRow(ctx, `
		SELECT`+serviceColumns+`
		FROM services
		WHERE id = $1 AND status = 'active'
	`, id))
}

func (r *ServiceRepository) List(ctx context.Context, onlyActive bool, limit int) ([]model.Service, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT`+serviceColumns+`
		FROM services
		WHERE NOT $1 OR status = 'active'
		ORDER BY name
		LIMIT $2
	`, onlyActive, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var services []model.Service
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		services = append(services, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return services, nil
}

func (r *ServiceRepository) Update(ctx context.Context, s *model.Service) (model.Service, error) {
	return scanService(r.pool.QueryRow(ctx, `
		UPDATE services
		SET name = $2, description = $3, price = $4, duration_minutes = $5, category = $6, status = $7
		WHERE id = $1
		RETURNING`+serviceColumns+`
	`, s.ID, s.Name, s.Description, s.Price, s.DurationMinutes, s.Category, s.Status))
}

func (r *ServiceRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
