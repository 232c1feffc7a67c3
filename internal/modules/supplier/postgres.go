package supplier

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type postgresRepo struct{ db *sql.DB }

// NewPostgresRepository creates a new PostgreSQL supplier repository.
func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) Create(ctx context.Context, s *Supplier) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO suppliers (id, name, contact_name, phone, email, address, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		s.ID, s.Name, s.ContactName, s.Phone, s.Email, s.Address, s.IsActive)
	if err != nil {
		return fmt.Errorf("insert supplier: %w", err)
	}
	return nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*Supplier, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid id", ErrValidation)
	}
	s := &Supplier{}
	var contactName, phone, email, address sql.NullString
	err = r.db.QueryRowContext(ctx, `
		SELECT id, name, contact_name, phone, email, address, is_active, created_at, updated_at
		FROM suppliers WHERE id=$1`, uid).Scan(
		&s.ID, &s.Name, &contactName, &phone, &email, &address,
		&s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.ContactName, s.Phone, s.Email, s.Address = contactName.String, phone.String, email.String, address.String
	return s, nil
}

func (r *postgresRepo) List(ctx context.Context) ([]*Supplier, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, contact_name, phone, email, address, is_active, created_at, updated_at
		FROM suppliers ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var suppliers []*Supplier
	for rows.Next() {
		s := &Supplier{}
		var contactName, phone, email, address sql.NullString
		if err := rows.Scan(&s.ID, &s.Name, &contactName, &phone, &email, &address,
			&s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		s.ContactName, s.Phone, s.Email, s.Address = contactName.String, phone.String, email.String, address.String
		suppliers = append(suppliers, s)
	}
	return suppliers, rows.Err()
}

func (r *postgresRepo) Update(ctx context.Context, s *Supplier) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE suppliers SET name=$1, contact_name=$2, phone=$3, email=$4, address=$5, updated_at=$6
		WHERE id=$7`,
		s.Name, s.ContactName, s.Phone, s.Email, s.Address, time.Now(), s.ID)
	return err
}

func (r *postgresRepo) SetActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE suppliers SET is_active=$1, updated_at=$2 WHERE id=$3`,
		active, time.Now(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
