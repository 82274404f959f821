package directory

import (
	"context"

	"github.com/google/uuid"
)

type DoctorRepository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	UpdateAvailability(ctx context.Context, id uuid.UUID, rules []AvailabilityRule) error
	UpdateHolidays(ctx context.Context, id uuid.UUID, holidays []Holiday) error
	List(ctx context.Context, limit, offset int) ([]*Doctor, int, error)
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
}

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
}
