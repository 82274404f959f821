package scheduling

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/medsched/medsched/internal/domain/directory"
	"github.com/medsched/medsched/internal/platform/db"
	"github.com/medsched/medsched/internal/platform/lock"
)

// TxRunner runs a function inside a storage transaction.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// FollowUpQueue accepts best-effort tasks to run after the triggering
// transaction has committed.
type FollowUpQueue interface {
	Enqueue(name string, fn func(ctx context.Context) error) bool
}

// Deps bundles the service's collaborators.
type Deps struct {
	Schedules    ScheduleRepository
	Appointments AppointmentRepository
	Waitlist     WaitlistRepository
	Doctors      DoctorDirectory
	Patients     PatientDirectory
	Tx           TxRunner
	Locks        *lock.Keyed
	FollowUps    FollowUpQueue
	Logger       zerolog.Logger

	// Clock defaults to time.Now.
	Clock func() time.Time
	// DefaultSlotMinutes defaults to 30.
	DefaultSlotMinutes int
	// CancelLead defaults to 24h.
	CancelLead time.Duration
}

type Service struct {
	schedules    ScheduleRepository
	appointments AppointmentRepository
	waitlist     WaitlistRepository
	doctors      DoctorDirectory
	patients     PatientDirectory
	tx           TxRunner
	locks        *lock.Keyed
	followups    FollowUpQueue
	logger       zerolog.Logger
	now          func() time.Time
	defaultSlot  int
	cancelLead   time.Duration
}

func NewService(d Deps) *Service {
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.DefaultSlotMinutes <= 0 {
		d.DefaultSlotMinutes = 30
	}
	if d.CancelLead <= 0 {
		d.CancelLead = 24 * time.Hour
	}
	if d.Locks == nil {
		d.Locks = lock.NewKeyed()
	}
	return &Service{
		schedules:    d.Schedules,
		appointments: d.Appointments,
		waitlist:     d.Waitlist,
		doctors:      d.Doctors,
		patients:     d.Patients,
		tx:           d.Tx,
		locks:        d.Locks,
		followups:    d.FollowUps,
		logger:       d.Logger,
		now:          d.Clock,
		defaultSlot:  d.DefaultSlotMinutes,
		cancelLead:   d.CancelLead,
	}
}

func dayKey(doctorID uuid.UUID, date time.Time) string {
	return doctorID.String() + "|" + date.Format(DateLayout)
}

// acquireDay takes the in-process lock for one doctor-day.
func (s *Service) acquireDay(ctx context.Context, doctorID uuid.UUID, date time.Time) (func(), error) {
	release, err := s.locks.Acquire(ctx, dayKey(doctorID, date))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBusy, err)
	}
	return release, nil
}

// acquireDays takes locks for multiple doctor-days in sorted key order.
func (s *Service) acquireDays(ctx context.Context, doctorID uuid.UUID, dates ...time.Time) (func(), error) {
	keys := make([]string, 0, len(dates))
	seen := make(map[string]bool)
	for _, d := range dates {
		k := dayKey(doctorID, d)
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	releases := make([]func(), 0, len(keys))
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
	for _, k := range keys {
		rel, err := s.locks.Acquire(ctx, k)
		if err != nil {
			releaseAll()
			return nil, fmt.Errorf("%w: %v", ErrBusy, err)
		}
		releases = append(releases, rel)
	}
	return releaseAll, nil
}

func (s *Service) getDoctor(ctx context.Context, id uuid.UUID) (*directory.Doctor, error) {
	doc, err := s.doctors.GetDoctor(ctx, id)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", id, ErrDoctorNotFound)
		}
		return nil, err
	}
	return doc, nil
}

func (s *Service) getPatient(ctx context.Context, id uuid.UUID) (*directory.Patient, error) {
	pat, err := s.patients.GetPatient(ctx, id)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", id, ErrPatientNotFound)
		}
		return nil, err
	}
	return pat, nil
}

// lockedSchedule returns the doctor's day schedule with its row lock held,
// materializing it from the weekly template on first demand. Must run
// inside a transaction. Holidays are the caller's concern.
func (s *Service) lockedSchedule(ctx context.Context, doctor *directory.Doctor, date time.Time) (*DaySchedule, error) {
	ds, err := s.schedules.GetForUpdate(ctx, doctor.ID, date)
	if err == nil {
		return ds, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	rule := doctor.RuleFor(date)
	if rule == nil {
		return nil, fmt.Errorf("%w on %s", ErrDoctorUnavailable, strings.ToUpper(date.Weekday().String()))
	}
	slots, err := GenerateSlots(*rule, s.defaultSlot)
	if err != nil {
		return nil, err
	}

	ds = &DaySchedule{
		DoctorID:       doctor.ID,
		Date:           DateOf(date),
		Slots:          slots,
		TotalSlots:     len(slots),
		AvailableSlots: len(slots),
	}
	if err := s.schedules.Create(ctx, ds); err != nil {
		// Another instance materialized the same day first; take its row.
		if db.IsUniqueViolation(err) {
			return s.schedules.GetForUpdate(ctx, doctor.ID, date)
		}
		return nil, err
	}
	return ds, nil
}

func (s *Service) checkHoliday(doctor *directory.Doctor, date time.Time) error {
	if hol := doctor.HolidayOn(date); hol != nil {
		if hol.Reason != "" {
			return fmt.Errorf("%w on %s due to %s", ErrDoctorUnavailable, date.Format(DateLayout), hol.Reason)
		}
		return fmt.Errorf("%w on %s", ErrDoctorUnavailable, date.Format(DateLayout))
	}
	return nil
}

func parseDate(v string) (time.Time, error) {
	d, err := time.Parse(DateLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q", ErrInvalidInput, v)
	}
	return d, nil
}

func parseClock(v string) (string, error) {
	t, err := time.Parse(TimeLayout, v)
	if err != nil {
		return "", fmt.Errorf("%w: invalid time %q", ErrInvalidInput, v)
	}
	return t.Format(TimeLayout), nil
}

// startOf returns the appointment's wall-clock start instant in UTC.
func startOf(a *Appointment) time.Time {
	t, err := time.Parse(TimeLayout, a.Time)
	if err != nil {
		return a.Date
	}
	return a.Date.Add(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute)
}

// Schedule books an appointment: doctor and patient are verified, the
// phone number must not hold another active appointment that day with any
// doctor, the date must not be a holiday, and the requested time must hit
// a free slot. All of it commits or none of it does.
func (s *Service) Schedule(ctx context.Context, req BookingRequest) (*Appointment, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	tm, err := parseClock(req.Time)
	if err != nil {
		return nil, err
	}
	consultType := req.ConsultationType
	if consultType == "" {
		consultType = ConsultOffline
	}
	if consultType != ConsultOffline && consultType != ConsultOnline {
		return nil, fmt.Errorf("%w: invalid consultation_type %q", ErrInvalidInput, req.ConsultationType)
	}

	release, err := s.acquireDay(ctx, req.DoctorID, date)
	if err != nil {
		return nil, err
	}
	defer release()

	var appt *Appointment
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		doctor, err := s.getDoctor(ctx, req.DoctorID)
		if err != nil {
			return err
		}
		patient, err := s.getPatient(ctx, req.PatientID)
		if err != nil {
			return err
		}

		phone := req.PhoneNumber
		if phone == "" {
			phone = patient.PhoneNumber
		}
		if phone == "" {
			return fmt.Errorf("%w: phone_number is required", ErrInvalidInput)
		}

		count, err := s.appointments.CountActiveByPhone(ctx, phone, date, uuid.Nil)
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateBooking
		}

		if err := s.checkHoliday(doctor, date); err != nil {
			return err
		}

		ds, err := s.lockedSchedule(ctx, doctor, date)
		if err != nil {
			return err
		}

		duration := req.Duration
		if duration <= 0 {
			if rule := doctor.RuleFor(date); rule != nil && rule.SlotDuration > 0 {
				duration = rule.SlotDuration
			} else {
				duration = s.defaultSlot
			}
		}

		bookingID := uuid.NewString()
		if err := ds.Reserve(tm, bookingID); err != nil {
			return err
		}
		if err := s.schedules.Update(ctx, ds); err != nil {
			return err
		}

		appt = &Appointment{
			DoctorID:         req.DoctorID,
			PatientID:        req.PatientID,
			Date:             DateOf(date),
			Time:             tm,
			Duration:         duration,
			Status:           StatusScheduled,
			ConsultationType: consultType,
			PhoneNumber:      phone,
			BookingID:        bookingID,
			PreviousDates:    []PreviousDate{},
		}
		if req.Reason != "" {
			appt.Reason = &req.Reason
		}
		return s.appointments.Create(ctx, appt)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("appointment_id", appt.ID.String()).
		Str("doctor_id", appt.DoctorID.String()).
		Str("date", appt.Date.Format(DateLayout)).
		Str("time", appt.Time).
		Msg("appointment booked")
	return appt, nil
}

// Reschedule moves an appointment to a new date and time in one
// transaction: the old slot is released, the new one reserved, and the
// old (date, time) pair is appended to the history. On any failure the
// appointment is left exactly as it was.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, newDateStr, newTimeStr string) (*Appointment, error) {
	newDate, err := parseDate(newDateStr)
	if err != nil {
		return nil, err
	}
	newTime, err := parseClock(newTimeStr)
	if err != nil {
		return nil, err
	}

	// Pre-read to learn which days to lock; verified again inside the tx.
	before, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", id, ErrAppointmentNotFound)
		}
		return nil, err
	}

	release, err := s.acquireDays(ctx, before.DoctorID, before.Date, newDate)
	if err != nil {
		return nil, err
	}
	defer release()

	var appt *Appointment
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		appt, err = s.appointments.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%s: %w", id, ErrAppointmentNotFound)
			}
			return err
		}
		if appt.IsCanceled {
			return ErrAlreadyCanceled
		}
		// The appointment moved between the pre-read and the lock.
		if !appt.Date.Equal(before.Date) {
			return ErrBusy
		}

		doctor, err := s.getDoctor(ctx, appt.DoctorID)
		if err != nil {
			return err
		}

		count, err := s.appointments.CountActiveByPhone(ctx, appt.PhoneNumber, newDate, appt.ID)
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateBooking
		}
		if err := s.checkHoliday(doctor, newDate); err != nil {
			return err
		}

		oldDate, oldTime := appt.Date, appt.Time
		bookingID := uuid.NewString()
		sameDay := DateOf(oldDate).Equal(DateOf(newDate))

		if sameDay {
			ds, err := s.lockedSchedule(ctx, doctor, newDate)
			if err != nil {
				return err
			}
			ds.Release(oldTime)
			if err := ds.Reserve(newTime, bookingID); err != nil {
				return err
			}
			if err := s.schedules.Update(ctx, ds); err != nil {
				return err
			}
		} else {
			dsNew, err := s.lockedSchedule(ctx, doctor, newDate)
			if err != nil {
				return err
			}
			if err := dsNew.Reserve(newTime, bookingID); err != nil {
				return err
			}
			if err := s.schedules.Update(ctx, dsNew); err != nil {
				return err
			}

			dsOld, err := s.schedules.GetForUpdate(ctx, appt.DoctorID, oldDate)
			switch {
			case err == nil:
				if !dsOld.Release(oldTime) {
					s.logger.Warn().
						Str("appointment_id", appt.ID.String()).
						Str("date", oldDate.Format(DateLayout)).
						Str("time", oldTime).
						Msg("old slot was not reserved, nothing to release")
				}
				if err := s.schedules.Update(ctx, dsOld); err != nil {
					return err
				}
			case errors.Is(err, pgx.ErrNoRows):
				// No schedule row for the old day; nothing to release.
			default:
				return err
			}
		}

		appt.PreviousDates = append(appt.PreviousDates, PreviousDate{
			Date: oldDate.Format(DateLayout),
			Time: oldTime,
		})
		appt.Date = DateOf(newDate)
		appt.Time = newTime
		appt.BookingID = bookingID
		now := s.now()
		appt.RescheduledDate = &now
		return s.appointments.Update(ctx, appt)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("appointment_id", appt.ID.String()).
		Str("date", appt.Date.Format(DateLayout)).
		Str("time", appt.Time).
		Msg("appointment rescheduled")
	return appt, nil
}

// CancelByDoctor soft-cancels an appointment on the doctor's behalf.
func (s *Service) CancelByDoctor(ctx context.Context, id uuid.UUID, reason string) (*Appointment, error) {
	return s.cancel(ctx, id, reason, "doctor", false)
}

// CancelByPatient soft-cancels an appointment on the patient's behalf.
// It is refused inside the lead-time window before the appointment start.
func (s *Service) CancelByPatient(ctx context.Context, id uuid.UUID, reason string) (*Appointment, error) {
	return s.cancel(ctx, id, reason, "patient", true)
}

func (s *Service) cancel(ctx context.Context, id uuid.UUID, reason, actor string, enforceLead bool) (*Appointment, error) {
	before, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", id, ErrAppointmentNotFound)
		}
		return nil, err
	}

	release, err := s.acquireDay(ctx, before.DoctorID, before.Date)
	if err != nil {
		return nil, err
	}
	// The promotion task needs the day lock itself, so the lock is let go
	// before the freed slot is handed to the follow-up queue. The deferred
	// call covers error and panic unwinds.
	released := false
	unlock := func() {
		if !released {
			released = true
			release()
		}
	}
	defer unlock()

	var appt *Appointment
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		appt, err = s.appointments.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%s: %w", id, ErrAppointmentNotFound)
			}
			return err
		}
		if appt.IsCanceled {
			return ErrAlreadyCanceled
		}
		if enforceLead {
			deadline := startOf(appt).Add(-s.cancelLead)
			if s.now().After(deadline) {
				return ErrCancelWindowClosed
			}
		}

		appt.IsCanceled = true
		appt.Status = StatusCanceled
		appt.CancelationReason = &reason
		appt.ModifiedBy = &actor
		if err := s.appointments.Update(ctx, appt); err != nil {
			return err
		}

		// Freeing the slot is secondary: a missing or stale schedule row
		// must not block the cancellation itself.
		ds, err := s.schedules.GetForUpdate(ctx, appt.DoctorID, appt.Date)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			s.logger.Warn().
				Str("appointment_id", appt.ID.String()).
				Msg("no day schedule found while releasing canceled slot")
		case err != nil:
			return err
		default:
			if !ds.Release(appt.Time) {
				s.logger.Warn().
					Str("appointment_id", appt.ID.String()).
					Str("time", appt.Time).
					Msg("slot was not reserved while releasing canceled slot")
			}
			if err := s.schedules.Update(ctx, ds); err != nil {
				return err
			}
		}
		return nil
	})
	unlock()
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("appointment_id", appt.ID.String()).
		Str("modified_by", actor).
		Msg("appointment canceled")

	s.enqueuePromotion(appt)
	return appt, nil
}

// enqueuePromotion schedules a waitlist promotion attempt for the freed
// slot. Runs after the cancel has committed, in its own transaction.
func (s *Service) enqueuePromotion(appt *Appointment) {
	if s.followups == nil {
		return
	}
	doctorID := appt.DoctorID
	date := appt.Date
	tm := appt.Time
	duration := appt.Duration
	consultType := appt.ConsultationType
	s.followups.Enqueue("waitlist-promotion", func(ctx context.Context) error {
		return s.PromoteWaitlist(ctx, doctorID, date, tm, duration, consultType)
	})
}

// PromoteWaitlist books the freed slot for the oldest waitlist entry whose
// preferred date is on or before the freed date. A slot already re-taken
// or an empty waitlist is not an error.
func (s *Service) PromoteWaitlist(ctx context.Context, doctorID uuid.UUID, date time.Time, tm string, duration int, consultType string) error {
	release, err := s.acquireDay(ctx, doctorID, date)
	if err != nil {
		return err
	}
	defer release()

	var promoted *Appointment
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		entry, err := s.waitlist.FirstEligible(ctx, doctorID, date)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return err
		}

		patient, err := s.getPatient(ctx, entry.PatientID)
		if err != nil {
			if errors.Is(err, ErrPatientNotFound) {
				// Stale entry; drop it so it cannot clog the queue.
				return s.waitlist.Delete(ctx, entry.ID)
			}
			return err
		}

		ds, err := s.schedules.GetForUpdate(ctx, doctorID, date)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return err
		}

		bookingID := uuid.NewString()
		if err := ds.Reserve(tm, bookingID); err != nil {
			// Someone booked the freed slot first; leave the entry queued.
			return nil
		}
		if err := s.schedules.Update(ctx, ds); err != nil {
			return err
		}

		promoted = &Appointment{
			DoctorID:         doctorID,
			PatientID:        entry.PatientID,
			Date:             DateOf(date),
			Time:             tm,
			Duration:         duration,
			Reason:           entry.Reason,
			Status:           StatusScheduled,
			ConsultationType: consultType,
			PhoneNumber:      patient.PhoneNumber,
			BookingID:        bookingID,
			PreviousDates:    []PreviousDate{},
		}
		if err := s.appointments.Create(ctx, promoted); err != nil {
			return err
		}
		return s.waitlist.Delete(ctx, entry.ID)
	})
	if err != nil {
		return err
	}

	if promoted != nil {
		s.logger.Info().
			Str("appointment_id", promoted.ID.String()).
			Str("patient_id", promoted.PatientID.String()).
			Str("date", promoted.Date.Format(DateLayout)).
			Str("time", promoted.Time).
			Msg("waitlist entry promoted")
	}
	return nil
}

// Purge hard-deletes an appointment and frees its slot. The soft cancel
// paths are the normal route; this one is for administrative removal.
func (s *Service) Purge(ctx context.Context, id uuid.UUID) error {
	before, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%s: %w", id, ErrAppointmentNotFound)
		}
		return err
	}

	release, err := s.acquireDay(ctx, before.DoctorID, before.Date)
	if err != nil {
		return err
	}
	defer release()

	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		appt, err := s.appointments.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%s: %w", id, ErrAppointmentNotFound)
			}
			return err
		}

		if !appt.IsCanceled {
			ds, err := s.schedules.GetForUpdate(ctx, appt.DoctorID, appt.Date)
			switch {
			case errors.Is(err, pgx.ErrNoRows):
			case err != nil:
				return err
			default:
				ds.Release(appt.Time)
				if err := s.schedules.Update(ctx, ds); err != nil {
					return err
				}
			}
		}
		return s.appointments.Delete(ctx, appt.ID)
	})
}

// RescheduleDoctorAppointments moves every active appointment a doctor
// has on oldDate to newDate, shifting each start time by offsetMinutes.
// An empty newDate keeps the appointments on their original day. Each
// move runs in its own transaction; a failed move is reported per item
// and does not stop the rest.
func (s *Service) RescheduleDoctorAppointments(ctx context.Context, doctorID uuid.UUID, oldDateStr, newDateStr string, offsetMinutes int) ([]RescheduleResult, error) {
	oldDate, err := parseDate(oldDateStr)
	if err != nil {
		return nil, err
	}
	if newDateStr == "" {
		newDateStr = DateOf(oldDate).Format(DateLayout)
	}
	newDate, err := parseDate(newDateStr)
	if err != nil {
		return nil, err
	}
	sameDay := DateOf(oldDate).Equal(DateOf(newDate))
	if sameDay && offsetMinutes == 0 {
		return nil, fmt.Errorf("%w: new_date or a non-zero offset_minutes is required", ErrInvalidInput)
	}
	if _, err := s.getDoctor(ctx, doctorID); err != nil {
		return nil, err
	}

	appts, err := s.appointments.ListActiveByDoctorOnDate(ctx, doctorID, oldDate)
	if err != nil {
		return nil, err
	}

	// appts arrive earliest first. A same-day forward shift walks
	// latest-first so no move lands on a slot still held by the next
	// appointment; every other direction is safe in natural order.
	order := make([]int, len(appts))
	for i := range order {
		order[i] = i
	}
	if sameDay && offsetMinutes > 0 {
		for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
			order[i], order[j] = order[j], order[i]
		}
	}

	results := make([]RescheduleResult, len(appts))
	for _, i := range order {
		appt := appts[i]
		res := RescheduleResult{AppointmentID: appt.ID}
		newTime, err := AddMinutes(appt.Time, offsetMinutes)
		if err == nil {
			_, err = s.Reschedule(ctx, appt.ID, newDateStr, newTime)
		}
		if err != nil {
			res.Error = err.Error()
			s.logger.Error().Err(err).
				Str("appointment_id", appt.ID.String()).
				Msg("bulk reschedule item failed")
		} else {
			res.NewDate = newDateStr
			res.NewTime = newTime
		}
		results[i] = res
	}
	return results, nil
}

// AddToWaitlist queues a patient for a doctor. One entry per
// (doctor, patient) pair.
func (s *Service) AddToWaitlist(ctx context.Context, req WaitlistRequest) (*WaitlistEntry, error) {
	date, err := parseDate(req.PreferredDate)
	if err != nil {
		return nil, err
	}
	if _, err := s.getDoctor(ctx, req.DoctorID); err != nil {
		return nil, err
	}
	if _, err := s.getPatient(ctx, req.PatientID); err != nil {
		return nil, err
	}

	_, err = s.waitlist.GetByDoctorAndPatient(ctx, req.DoctorID, req.PatientID)
	if err == nil {
		return nil, ErrAlreadyWaitlisted
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	entry := &WaitlistEntry{
		DoctorID:      req.DoctorID,
		PatientID:     req.PatientID,
		PreferredDate: DateOf(date),
	}
	if req.Reason != "" {
		entry.Reason = &req.Reason
	}
	if err := s.waitlist.Create(ctx, entry); err != nil {
		// A concurrent add for the same pair wins the insert race.
		if db.IsUniqueViolation(err) {
			return nil, ErrAlreadyWaitlisted
		}
		return nil, err
	}
	return entry, nil
}

// AvailableSlots lists the free slots for a doctor-day, numbered in start
// order, each with a reporting time one hour before the slot.
func (s *Service) AvailableSlots(ctx context.Context, doctorID uuid.UUID, dateStr string) ([]AnnotatedSlot, error) {
	date, err := parseDate(dateStr)
	if err != nil {
		return nil, err
	}
	doctor, err := s.getDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if err := s.checkHoliday(doctor, date); err != nil {
		return nil, err
	}

	var free []TimeSlot
	ds, err := s.schedules.Get(ctx, doctorID, date)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		rule := doctor.RuleFor(date)
		if rule == nil {
			// Not a working day for this doctor; nothing bookable.
			break
		}
		free, err = GenerateSlots(*rule, s.defaultSlot)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		free = ds.FreeSlots()
	}

	sort.Slice(free, func(i, j int) bool { return free[i].StartTime < free[j].StartTime })

	out := make([]AnnotatedSlot, 0, len(free))
	for i, sl := range free {
		reporting, err := AddMinutes(sl.StartTime, -60)
		if err != nil {
			reporting = sl.StartTime
		}
		out = append(out, AnnotatedSlot{
			StartTime:         sl.StartTime,
			EndTime:           sl.EndTime,
			AppointmentNumber: i + 1,
			ReportingTime:     reporting,
		})
	}
	return out, nil
}

// EnsureSchedule materializes the day schedule for a doctor-day if the
// doctor works that day. Holidays and off days are silently skipped.
// Used by the rolling pre-generation job.
func (s *Service) EnsureSchedule(ctx context.Context, doctorID uuid.UUID, date time.Time) error {
	doctor, err := s.getDoctor(ctx, doctorID)
	if err != nil {
		return err
	}
	if doctor.HolidayOn(date) != nil || doctor.RuleFor(date) == nil {
		return nil
	}

	release, err := s.acquireDay(ctx, doctorID, date)
	if err != nil {
		return err
	}
	defer release()

	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		_, err := s.lockedSchedule(ctx, doctor, date)
		return err
	})
}

// GetAppointment loads one appointment.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.appointments.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrAppointmentNotFound)
	}
	return appt, err
}

func (s *Service) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.appointments.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListAppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.appointments.ListByDoctor(ctx, doctorID, limit, offset)
}

func (s *Service) ListWaitlistByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*WaitlistEntry, int, error) {
	return s.waitlist.ListByDoctor(ctx, doctorID, limit, offset)
}
