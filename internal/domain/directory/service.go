package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrNotFound = errors.New("not found")

const timeLayout = "15:04"

type Service struct {
	doctors  DoctorRepository
	patients PatientRepository
}

func NewService(doctors DoctorRepository, patients PatientRepository) *Service {
	return &Service{doctors: doctors, patients: patients}
}

// -- Doctor --

func (s *Service) CreateDoctor(ctx context.Context, d *Doctor) error {
	if d.Name == "" {
		return fmt.Errorf("name is required")
	}
	if err := validateRules(d.Availability); err != nil {
		return err
	}
	if d.Availability == nil {
		d.Availability = []AvailabilityRule{}
	}
	if d.Holidays == nil {
		d.Holidays = []Holiday{}
	}
	return s.doctors.Create(ctx, d)
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	d, err := s.doctors.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("doctor %s: %w", id, ErrNotFound)
	}
	return d, err
}

// SetAvailability replaces the doctor's weekly template. Already
// materialized day schedules are not touched; new rules apply from the
// next generation onward.
func (s *Service) SetAvailability(ctx context.Context, id uuid.UUID, rules []AvailabilityRule) error {
	if err := validateRules(rules); err != nil {
		return err
	}
	if _, err := s.GetDoctor(ctx, id); err != nil {
		return err
	}
	return s.doctors.UpdateAvailability(ctx, id, rules)
}

func (s *Service) SetHolidays(ctx context.Context, id uuid.UUID, holidays []Holiday) error {
	for _, h := range holidays {
		if _, err := time.Parse(DateLayout, h.Date); err != nil {
			return fmt.Errorf("invalid holiday date %q", h.Date)
		}
	}
	if _, err := s.GetDoctor(ctx, id); err != nil {
		return err
	}
	return s.doctors.UpdateHolidays(ctx, id, holidays)
}

func (s *Service) ListDoctors(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	return s.doctors.List(ctx, limit, offset)
}

func (s *Service) ListDoctorIDs(ctx context.Context) ([]uuid.UUID, error) {
	return s.doctors.ListIDs(ctx)
}

// -- Patient --

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if p.PhoneNumber == "" {
		return fmt.Errorf("phone_number is required")
	}
	return s.patients.Create(ctx, p)
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("patient %s: %w", id, ErrNotFound)
	}
	return p, err
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, limit, offset)
}

var validDays = map[string]bool{
	"MONDAY": true, "TUESDAY": true, "WEDNESDAY": true, "THURSDAY": true,
	"FRIDAY": true, "SATURDAY": true, "SUNDAY": true,
}

func validateRules(rules []AvailabilityRule) error {
	seen := make(map[string]bool)
	for _, r := range rules {
		if !validDays[r.Day] {
			return fmt.Errorf("invalid day %q", r.Day)
		}
		if seen[r.Day] {
			return fmt.Errorf("duplicate rule for %s", r.Day)
		}
		seen[r.Day] = true

		start, err := time.Parse(timeLayout, r.StartTime)
		if err != nil {
			return fmt.Errorf("%s: invalid start_time %q", r.Day, r.StartTime)
		}
		end, err := time.Parse(timeLayout, r.EndTime)
		if err != nil {
			return fmt.Errorf("%s: invalid end_time %q", r.Day, r.EndTime)
		}
		if !start.Before(end) {
			return fmt.Errorf("%s: start_time must be before end_time", r.Day)
		}
		if r.SlotDuration < 0 {
			return fmt.Errorf("%s: slot_duration must not be negative", r.Day)
		}
		for _, b := range r.Breaks {
			bs, err := time.Parse(timeLayout, b.Start)
			if err != nil {
				return fmt.Errorf("%s: invalid break start %q", r.Day, b.Start)
			}
			be, err := time.Parse(timeLayout, b.End)
			if err != nil {
				return fmt.Errorf("%s: invalid break end %q", r.Day, b.End)
			}
			if !bs.Before(be) {
				return fmt.Errorf("%s: break start must be before its end", r.Day)
			}
		}
	}
	return nil
}
