package school

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("record not found")

type (
	Repository interface {
		CreateEstablishment(ctx context.Context, e Establishment) (Establishment, error)
		QueryEstablishments(ctx context.Context) ([]Establishment, error)
		GetEstablishment(ctx context.Context, id string) (Establishment, error)
		UpdateEstablishment(ctx context.Context, e Establishment) (Establishment, error)
		DeleteEstablishment(ctx context.Context, id string) error

		CreateClassroom(ctx context.Context, c Classroom) (Classroom, error)
		QueryClassrooms(ctx context.Context, establishmentID string) ([]Classroom, error)
		DeleteClassroom(ctx context.Context, id string) error

		CreateCommission(ctx context.Context, c Commission) (Commission, error)
		// QueryCommissions loads each commission with its admin user attached.
		QueryCommissions(ctx context.Context) ([]Commission, error)
		GetCommission(ctx context.Context, id string) (Commission, error)
		DeleteCommission(ctx context.Context, id string) error
	}

	Service interface {
		CreateEstablishment(ctx context.Context, ne NewEstablishment) (Establishment, error)
		QueryEstablishments(ctx context.Context) ([]Establishment, error)
		GetEstablishment(ctx context.Context, id string) (Establishment, error)
		DeleteEstablishment(ctx context.Context, id string) error

		CreateClassroom(ctx context.Context, nc NewClassroom) (Classroom, error)
		QueryClassrooms(ctx context.Context, establishmentID string) ([]Classroom, error)
		DeleteClassroom(ctx context.Context, id string) error

		CreateCommission(ctx context.Context, nc NewCommission) (Commission, error)
		QueryCommissions(ctx context.Context) ([]Commission, error)
		GetCommission(ctx context.Context, id string) (Commission, error)
		DeleteCommission(ctx context.Context, id string) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) CreateEstablishment(ctx context.Context, ne NewEstablishment) (Establishment, error) {
	now := time.Now().UTC()
	e := Establishment{
		Name:      ne.Name,
		Address:   ne.Address,
		Phone:     ne.Phone,
		Email:     ne.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateEstablishment(ctx, e)
}

func (svc *service) QueryEstablishments(ctx context.Context) ([]Establishment, error) {
	return svc.repo.QueryEstablishments(ctx)
}

func (svc *service) GetEstablishment(ctx context.Context, id string) (Establishment, error) {
	return svc.repo.GetEstablishment(ctx, id)
}

func (svc *service) DeleteEstablishment(ctx context.Context, id string) error {
	return svc.repo.DeleteEstablishment(ctx, id)
}

func (svc *service) CreateClassroom(ctx context.Context, nc NewClassroom) (Classroom, error) {
	if _, err := svc.repo.GetEstablishment(ctx, nc.EstablishmentID); err != nil {
		return Classroom{}, err
	}
	now := time.Now().UTC()
	c := Classroom{
		EstablishmentID: nc.EstablishmentID,
		Name:            nc.Name,
		Level:           nc.Level,
		Capacity:        nc.Capacity,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	return svc.repo.CreateClassroom(ctx, c)
}

func (svc *service) QueryClassrooms(ctx context.Context, establishmentID string) ([]Classroom, error) {
	return svc.repo.QueryClassrooms(ctx, establishmentID)
}

func (svc *service) DeleteClassroom(ctx context.Context, id string) error {
	return svc.repo.DeleteClassroom(ctx, id)
}

func (svc *service) CreateCommission(ctx context.Context, nc NewCommission) (Commission, error) {
	now := time.Now().UTC()
	c := Commission{
		Name:        nc.Name,
		Description: nc.Description,
		AdminID:     nc.AdminID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateCommission(ctx, c)
}

func (svc *service) QueryCommissions(ctx context.Context) ([]Commission, error) {
	return svc.repo.QueryCommissions(ctx)
}

func (svc *service) GetCommission(ctx context.Context, id string) (Commission, error) {
	return svc.repo.GetCommission(ctx, id)
}

func (svc *service) DeleteCommission(ctx context.Context, id string) error {
	return svc.repo.DeleteCommission(ctx, id)
}
