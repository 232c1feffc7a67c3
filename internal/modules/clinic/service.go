package clinic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("clinic not found")
	ErrValidation = errors.New("validation failed")
)

type Service interface {
	CreateClinic(ctx context.Context, req UpsertRequest) (*Clinic, error)
	GetClinic(ctx context.Context, id string) (*Clinic, error)
	ListClinics(ctx context.Context) ([]*Clinic, error)
	UpdateClinic(ctx context.Context, id string, req UpsertRequest) (*Clinic, error)
	DeactivateClinic(ctx context.Context, id string) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) CreateClinic(ctx context.Context, req UpsertRequest) (*Clinic, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	c := &Clinic{
		ID:       uuid.New(),
		Name:     strings.TrimSpace(req.Name),
		Address:  req.Address,
		City:     req.City,
		Phone:    req.Phone,
		Email:    req.Email,
		IsActive: true,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *service) GetClinic(ctx context.Context, id string) (*Clinic, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListClinics(ctx context.Context) ([]*Clinic, error) {
	return s.repo.List(ctx)
}

func (s *service) UpdateClinic(ctx context.Context, id string, req UpsertRequest) (*Clinic, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	c.Name = strings.TrimSpace(req.Name)
	c.Address = req.Address
	c.City = req.City
	c.Phone = req.Phone
	c.Email = req.Email
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *service) DeactivateClinic(ctx context.Context, id string) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.repo.SetActive(ctx, id, false)
}
