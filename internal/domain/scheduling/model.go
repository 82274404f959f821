package scheduling

import (
	"time"

	"github.com/google/uuid"
)

const (
	// DateLayout is the calendar-date wire format.
	DateLayout = "2006-01-02"
	// TimeLayout is the intra-day wall-clock wire format.
	TimeLayout = "15:04"
)

// Appointment statuses.
const (
	StatusScheduled = "scheduled"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCanceled  = "canceled"
	StatusNoShow    = "no_show"
)

// Consultation types.
const (
	ConsultOffline = "offline"
	ConsultOnline  = "online"
)

// DateOf truncates t to a bare calendar date at UTC midnight.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// TimeSlot is one bookable interval inside a day schedule. Slots live in
// the day_schedule row as a JSONB list and are only mutated while the row
// is locked.
type TimeSlot struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Available bool   `json:"available"`
	BookingID string `json:"booking_id,omitempty"`
}

// DaySchedule maps to the day_schedule table: one row per (doctor, date),
// created lazily on first demand.
type DaySchedule struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	DoctorID       uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	Date           time.Time  `db:"date" json:"date"`
	Slots          []TimeSlot `db:"slots" json:"slots"`
	TotalSlots     int        `db:"total_slots" json:"total_slots"`
	AvailableSlots int        `db:"available_slots" json:"available_slots"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// Reserve marks the slot starting at startTime as taken and decrements the
// free-capacity counter. The caller must hold the schedule's lock.
func (ds *DaySchedule) Reserve(startTime, bookingID string) error {
	if ds.AvailableSlots <= 0 {
		return ErrNoSlotsLeft
	}
	for i := range ds.Slots {
		if ds.Slots[i].StartTime == startTime && ds.Slots[i].Available {
			ds.Slots[i].Available = false
			ds.Slots[i].BookingID = bookingID
			ds.AvailableSlots--
			return nil
		}
	}
	return ErrSlotUnavailable
}

// Release frees the slot starting at startTime. Returns false when no
// matching reserved slot exists.
func (ds *DaySchedule) Release(startTime string) bool {
	for i := range ds.Slots {
		if ds.Slots[i].StartTime == startTime && !ds.Slots[i].Available {
			ds.Slots[i].Available = true
			ds.Slots[i].BookingID = ""
			ds.AvailableSlots++
			return true
		}
	}
	return false
}

// FreeSlots returns the still-available slots ordered by start time.
// Generation already emits slots in order, so no re-sort is needed.
func (ds *DaySchedule) FreeSlots() []TimeSlot {
	var free []TimeSlot
	for _, sl := range ds.Slots {
		if sl.Available {
			free = append(free, sl)
		}
	}
	return free
}

// PreviousDate is one reschedule history entry.
type PreviousDate struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

// Appointment maps to the appointment table.
type Appointment struct {
	ID                uuid.UUID      `db:"id" json:"id"`
	DoctorID          uuid.UUID      `db:"doctor_id" json:"doctor_id"`
	PatientID         uuid.UUID      `db:"patient_id" json:"patient_id"`
	Date              time.Time      `db:"date" json:"date"`
	Time              string         `db:"time" json:"time"`
	Duration          int            `db:"duration" json:"duration"`
	Reason            *string        `db:"reason" json:"reason,omitempty"`
	Status            string         `db:"status" json:"status"`
	ConsultationType  string         `db:"consultation_type" json:"consultation_type"`
	PhoneNumber       string         `db:"phone_number" json:"phone_number"`
	BookingID         string         `db:"booking_id" json:"booking_id"`
	IsCanceled        bool           `db:"is_canceled" json:"is_canceled"`
	CancelationReason *string        `db:"cancelation_reason" json:"cancelation_reason,omitempty"`
	RescheduledDate   *time.Time     `db:"rescheduled_date" json:"rescheduled_date,omitempty"`
	PreviousDates     []PreviousDate `db:"previous_dates" json:"previous_dates"`
	ModifiedBy        *string        `db:"modified_by" json:"modified_by,omitempty"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
}

// WaitlistEntry maps to the waitlist table.
type WaitlistEntry struct {
	ID            uuid.UUID `db:"id" json:"id"`
	DoctorID      uuid.UUID `db:"doctor_id" json:"doctor_id"`
	PatientID     uuid.UUID `db:"patient_id" json:"patient_id"`
	PreferredDate time.Time `db:"preferred_date" json:"preferred_date"`
	Reason        *string   `db:"reason" json:"reason,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// BookingRequest is the input to Schedule.
type BookingRequest struct {
	DoctorID         uuid.UUID `json:"doctor_id"`
	PatientID        uuid.UUID `json:"patient_id"`
	Date             string    `json:"date"`
	Time             string    `json:"time"`
	Duration         int       `json:"duration,omitempty"`
	Reason           string    `json:"reason,omitempty"`
	ConsultationType string    `json:"consultation_type,omitempty"`
	PhoneNumber      string    `json:"phone_number,omitempty"`
}

// WaitlistRequest is the input to AddToWaitlist.
type WaitlistRequest struct {
	DoctorID      uuid.UUID `json:"doctor_id"`
	PatientID     uuid.UUID `json:"patient_id"`
	PreferredDate string    `json:"preferred_date"`
	Reason        string    `json:"reason,omitempty"`
}

// AnnotatedSlot is a free slot enriched for the availability listing.
type AnnotatedSlot struct {
	StartTime         string `json:"start_time"`
	EndTime           string `json:"end_time"`
	AppointmentNumber int    `json:"appointment_number"`
	ReportingTime     string `json:"reporting_time"`
}

// RescheduleResult reports the outcome of one item of a bulk day move.
type RescheduleResult struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	NewDate       string    `json:"new_date,omitempty"`
	NewTime       string    `json:"new_time,omitempty"`
	Error         string    `json:"error,omitempty"`
}
