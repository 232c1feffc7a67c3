package supplier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("supplier not found")
	ErrValidation = errors.New("validation failed")
)

// Repository defines supplier data storage.
type Repository interface {
	Create(ctx context.Context, s *Supplier) error
	GetByID(ctx context.Context, id string) (*Supplier, error)
	List(ctx context.Context) ([]*Supplier, error)
	Update(ctx context.Context, s *Supplier) error
	SetActive(ctx context.Context, id string, active bool) error
}

type Service interface {
	CreateSupplier(ctx context.Context, req UpsertRequest) (*Supplier, error)
	GetSupplier(ctx context.Context, id string) (*Supplier, error)
	ListSuppliers(ctx context.Context) ([]*Supplier, error)
	UpdateSupplier(ctx context.Context, id string, req UpsertRequest) (*Supplier, error)
	DeactivateSupplier(ctx context.Context, id string) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) CreateSupplier(ctx context.Context, req UpsertRequest) (*Supplier, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	sup := &Supplier{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(req.Name),
		ContactName: req.ContactName,
		Phone:       req.Phone,
		Email:       req.Email,
		Address:     req.Address,
		IsActive:    true,
	}
	if err := s.repo.Create(ctx, sup); err != nil {
		return nil, err
	}
	return sup, nil
}

func (s *service) GetSupplier(ctx context.Context, id string) (*Supplier, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListSuppliers(ctx context.Context) ([]*Supplier, error) {
	return s.repo.List(ctx)
}

func (s *service) UpdateSupplier(ctx context.Context, id string, req UpsertRequest) (*Supplier, error) {
	sup, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	sup.Name = strings.TrimSpace(req.Name)
	sup.ContactName = req.ContactName
	sup.Phone = req.Phone
	sup.Email = req.Email
	sup.Address = req.Address
	if err := s.repo.Update(ctx, sup); err != nil {
		return nil, err
	}
	return sup, nil
}

func (s *service) DeactivateSupplier(ctx context.Context, id string) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.repo.SetActive(ctx, id, false)
}
