package scheduling

import "errors"

// Errors returned by the booking engine and workflows.
var (
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrDoctorUnavailable covers holidays and days with no availability rule.
	ErrDoctorUnavailable = errors.New("doctor is not available")

	// ErrNoSlotsLeft is returned when the day schedule has no free capacity.
	ErrNoSlotsLeft = errors.New("no available slots for the selected date")

	// ErrSlotUnavailable is returned when the requested time does not match
	// a free slot.
	ErrSlotUnavailable = errors.New("the selected time slot is not available")

	// ErrDuplicateBooking is returned when the phone number already has an
	// active appointment on the requested date, with any doctor.
	ErrDuplicateBooking = errors.New("an appointment already exists for this phone number on this date")

	ErrAlreadyCanceled    = errors.New("appointment is already canceled")
	ErrCancelWindowClosed = errors.New("appointments can only be cancelled at least 24 hours in advance")
	ErrAlreadyWaitlisted  = errors.New("patient is already on this doctor's waitlist")

	// ErrBusy is returned when the per-day lock cannot be acquired before
	// the request context expires.
	ErrBusy = errors.New("schedule is busy, try again")

	// ErrInvalidInput wraps malformed request fields (dates, times).
	ErrInvalidInput = errors.New("invalid input")
)
