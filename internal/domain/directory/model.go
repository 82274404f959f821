package directory

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the calendar-date wire format used across the API.
const DateLayout = "2006-01-02"

// Break is one unbookable window inside a working day.
type Break struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// AvailabilityRule is one weekday entry of a doctor's weekly template.
// Times are wall-clock "15:04" strings. A day may carry any number of
// breaks.
type AvailabilityRule struct {
	Day          string  `json:"day"`
	StartTime    string  `json:"start_time"`
	EndTime      string  `json:"end_time"`
	SlotDuration int     `json:"slot_duration,omitempty"`
	Breaks       []Break `json:"breaks,omitempty"`
	Slots        int     `json:"slots,omitempty"`
}

// Holiday marks a date the doctor does not take appointments.
type Holiday struct {
	Date   string `json:"date"`
	Reason string `json:"reason,omitempty"`
}

// Doctor maps to the doctor table. Availability and holidays are stored
// as JSONB documents.
type Doctor struct {
	ID           uuid.UUID          `db:"id" json:"id"`
	Name         string             `db:"name" json:"name"`
	Specialty    *string            `db:"specialty" json:"specialty,omitempty"`
	PhoneNumber  *string            `db:"phone_number" json:"phone_number,omitempty"`
	Availability []AvailabilityRule `db:"availability" json:"availability"`
	Holidays     []Holiday          `db:"holidays" json:"holidays"`
	CreatedAt    time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `db:"updated_at" json:"updated_at"`
}

// RuleFor returns the availability rule for the given date's weekday, or nil.
func (d *Doctor) RuleFor(date time.Time) *AvailabilityRule {
	day := strings.ToUpper(date.Weekday().String())
	for i := range d.Availability {
		if strings.ToUpper(d.Availability[i].Day) == day {
			return &d.Availability[i]
		}
	}
	return nil
}

// HolidayOn returns the holiday entry covering the given date, or nil.
func (d *Doctor) HolidayOn(date time.Time) *Holiday {
	key := date.Format(DateLayout)
	for i := range d.Holidays {
		if d.Holidays[i].Date == key {
			return &d.Holidays[i]
		}
	}
	return nil
}

// Patient maps to the patient table.
type Patient struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	Name        string     `db:"name" json:"name"`
	PhoneNumber string     `db:"phone_number" json:"phone_number"`
	Email       *string    `db:"email" json:"email,omitempty"`
	DateOfBirth *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}
