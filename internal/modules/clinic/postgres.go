package clinic

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type postgresRepo struct{ db *sql.DB }

// NewPostgresRepository creates a new PostgreSQL clinic repository.
func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) Create(ctx context.Context, c *Clinic) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO clinics (id, name, address, city, phone, email, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		c.ID, c.Name, c.Address, c.City, c.Phone, c.Email, c.IsActive)
	if err != nil {
		return fmt.Errorf("insert clinic: %w", err)
	}
	return nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*Clinic, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid id", ErrValidation)
	}
	c := &Clinic{}
	var address, city, phone, email sql.NullString
	err = r.db.QueryRowContext(ctx, `
		SELECT id, name, address, city, phone, email, is_active, created_at, updated_at
		FROM clinics WHERE id=$1`, uid).Scan(
		&c.ID, &c.Name, &address, &city, &phone, &email,
		&c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.Address, c.City, c.Phone, c.Email = address.String, city.String, phone.String, email.String
	return c, nil
}

func (r *postgresRepo) List(ctx context.Context) ([]*Clinic, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, address, city, phone, email, is_active, created_at, updated_at
		FROM clinics ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clinics []*Clinic
	for rows.Next() {
		c := &Clinic{}
		var address, city, phone, email sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &address, &city, &phone, &email,
			&c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		c.Address, c.City, c.Phone, c.Email = address.String, city.String, phone.String, email.String
		clinics = append(clinics, c)
	}
	return clinics, rows.Err()
}

func (r *postgresRepo) Update(ctx context.Context, c *Clinic) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE clinics SET name=$1, address=$2, city=$3, phone=$4, email=$5, updated_at=$6
		WHERE id=$7`,
		c.Name, c.Address, c.City, c.Phone, c.Email, time.Now(), c.ID)
	return err
}

func (r *postgresRepo) SetActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE clinics SET is_active=$1, updated_at=$2 WHERE id=$3`,
		active, time.Now(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
