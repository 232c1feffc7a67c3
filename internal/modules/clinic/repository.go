package clinic

import "context"

// Repository defines clinic data storage.
type Repository interface {
	Create(ctx context.Context, c *Clinic) error
	GetByID(ctx context.Context, id string) (*Clinic, error)
	List(ctx context.Context) ([]*Clinic, error)
	Update(ctx context.Context, c *Clinic) error
	SetActive(ctx context.Context, id string, active bool) error
}
