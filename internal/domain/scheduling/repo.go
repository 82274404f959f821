package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medsched/medsched/internal/domain/directory"
)

type ScheduleRepository interface {
	// Get reads a day schedule without locking it.
	Get(ctx context.Context, doctorID uuid.UUID, date time.Time) (*DaySchedule, error)
	// GetForUpdate reads a day schedule with a row lock. Must run inside
	// a transaction; the lock is held until the transaction ends.
	GetForUpdate(ctx context.Context, doctorID uuid.UUID, date time.Time) (*DaySchedule, error)
	Create(ctx context.Context, ds *DaySchedule) error
	Update(ctx context.Context, ds *DaySchedule) error
}

type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
	// ListActiveByDoctorOnDate returns the doctor's non-canceled
	// appointments for one date, ordered by time.
	ListActiveByDoctorOnDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]*Appointment, error)
	// CountActiveByPhone counts non-canceled appointments held by a phone
	// number on a date, across all doctors. excludeID skips one
	// appointment (uuid.Nil to skip none).
	CountActiveByPhone(ctx context.Context, phone string, date time.Time, excludeID uuid.UUID) (int, error)
}

type WaitlistRepository interface {
	Create(ctx context.Context, w *WaitlistEntry) error
	GetByDoctorAndPatient(ctx context.Context, doctorID, patientID uuid.UUID) (*WaitlistEntry, error)
	// FirstEligible returns the oldest entry for the doctor whose
	// preferred date is on or before the given date.
	FirstEligible(ctx context.Context, doctorID uuid.UUID, date time.Time) (*WaitlistEntry, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*WaitlistEntry, int, error)
}

// DoctorDirectory and PatientDirectory are the lookups the booking engine
// needs from the directory domain.
type DoctorDirectory interface {
	GetDoctor(ctx context.Context, id uuid.UUID) (*directory.Doctor, error)
}

type PatientDirectory interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*directory.Patient, error)
}
