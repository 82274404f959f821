package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medsched/medsched/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// =========== Schedule Repository ===========

type scheduleRepoPG struct{ pool *pgxpool.Pool }

func NewScheduleRepoPG(pool *pgxpool.Pool) ScheduleRepository { return &scheduleRepoPG{pool: pool} }

func (r *scheduleRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const schedCols = `id, doctor_id, date, slots, total_slots, available_slots, created_at, updated_at`

func (r *scheduleRepoPG) scanSchedule(row pgx.Row) (*DaySchedule, error) {
	var ds DaySchedule
	err := row.Scan(&ds.ID, &ds.DoctorID, &ds.Date, &ds.Slots,
		&ds.TotalSlots, &ds.AvailableSlots, &ds.CreatedAt, &ds.UpdatedAt)
	return &ds, err
}

func (r *scheduleRepoPG) Get(ctx context.Context, doctorID uuid.UUID, date time.Time) (*DaySchedule, error) {
	return r.scanSchedule(r.conn(ctx).QueryRow(ctx,
		`SELECT `+schedCols+` FROM day_schedule WHERE doctor_id = $1 AND date = $2`,
		doctorID, DateOf(date)))
}

func (r *scheduleRepoPG) GetForUpdate(ctx context.Context, doctorID uuid.UUID, date time.Time) (*DaySchedule, error) {
	return r.scanSchedule(r.conn(ctx).QueryRow(ctx,
		`SELECT `+schedCols+` FROM day_schedule WHERE doctor_id = $1 AND date = $2 FOR UPDATE`,
		doctorID, DateOf(date)))
}

func (r *scheduleRepoPG) Create(ctx context.Context, ds *DaySchedule) error {
	ds.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO day_schedule (id, doctor_id, date, slots, total_slots, available_slots)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		ds.ID, ds.DoctorID, DateOf(ds.Date), ds.Slots, ds.TotalSlots, ds.AvailableSlots)
	return err
}

func (r *scheduleRepoPG) Update(ctx context.Context, ds *DaySchedule) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE day_schedule SET slots = $2, available_slots = $3, updated_at = NOW()
		WHERE id = $1`,
		ds.ID, ds.Slots, ds.AvailableSlots)
	return err
}

// =========== Appointment Repository ===========

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

func (r *appointmentRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const apptCols = `id, doctor_id, patient_id, date, time, duration, reason, status,
	consultation_type, phone_number, booking_id, is_canceled, cancelation_reason,
	rescheduled_date, previous_dates, modified_by, created_at, updated_at`

func (r *appointmentRepoPG) scanAppt(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.DoctorID, &a.PatientID, &a.Date, &a.Time, &a.Duration,
		&a.Reason, &a.Status, &a.ConsultationType, &a.PhoneNumber, &a.BookingID,
		&a.IsCanceled, &a.CancelationReason, &a.RescheduledDate, &a.PreviousDates,
		&a.ModifiedBy, &a.CreatedAt, &a.UpdatedAt)
	return &a, err
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointment (id, doctor_id, patient_id, date, time, duration, reason,
			status, consultation_type, phone_number, booking_id, is_canceled,
			cancelation_reason, rescheduled_date, previous_dates, modified_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		a.ID, a.DoctorID, a.PatientID, DateOf(a.Date), a.Time, a.Duration, a.Reason,
		a.Status, a.ConsultationType, a.PhoneNumber, a.BookingID, a.IsCanceled,
		a.CancelationReason, a.RescheduledDate, a.PreviousDates, a.ModifiedBy)
	return err
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return r.scanAppt(r.conn(ctx).QueryRow(ctx, `SELECT `+apptCols+` FROM appointment WHERE id = $1`, id))
}

func (r *appointmentRepoPG) Update(ctx context.Context, a *Appointment) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment SET date=$2, time=$3, duration=$4, reason=$5, status=$6,
			phone_number=$7, booking_id=$8, is_canceled=$9, cancelation_reason=$10,
			rescheduled_date=$11, previous_dates=$12, modified_by=$13, updated_at=NOW()
		WHERE id = $1`,
		a.ID, DateOf(a.Date), a.Time, a.Duration, a.Reason, a.Status,
		a.PhoneNumber, a.BookingID, a.IsCanceled, a.CancelationReason,
		a.RescheduledDate, a.PreviousDates, a.ModifiedBy)
	return err
}

func (r *appointmentRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM appointment WHERE id = $1`, id)
	return err
}

func (r *appointmentRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointment WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+apptCols+` FROM appointment WHERE patient_id = $1 ORDER BY date DESC, time DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := r.scanAppt(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, nil
}

func (r *appointmentRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointment WHERE doctor_id = $1`, doctorID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+apptCols+` FROM appointment WHERE doctor_id = $1 ORDER BY date DESC, time DESC LIMIT $2 OFFSET $3`,
		doctorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := r.scanAppt(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, nil
}

func (r *appointmentRepoPG) ListActiveByDoctorOnDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+apptCols+` FROM appointment
		 WHERE doctor_id = $1 AND date = $2 AND is_canceled = FALSE
		 ORDER BY time ASC`,
		doctorID, DateOf(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := r.scanAppt(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *appointmentRepoPG) CountActiveByPhone(ctx context.Context, phone string, date time.Time, excludeID uuid.UUID) (int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM appointment
		 WHERE phone_number = $1 AND date = $2 AND is_canceled = FALSE AND id <> $3`,
		phone, DateOf(date), excludeID).Scan(&total)
	return total, err
}

// =========== Waitlist Repository ===========

type waitlistRepoPG struct{ pool *pgxpool.Pool }

func NewWaitlistRepoPG(pool *pgxpool.Pool) WaitlistRepository { return &waitlistRepoPG{pool: pool} }

func (r *waitlistRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const waitlistCols = `id, doctor_id, patient_id, preferred_date, reason, created_at`

func (r *waitlistRepoPG) scanEntry(row pgx.Row) (*WaitlistEntry, error) {
	var w WaitlistEntry
	err := row.Scan(&w.ID, &w.DoctorID, &w.PatientID, &w.PreferredDate, &w.Reason, &w.CreatedAt)
	return &w, err
}

func (r *waitlistRepoPG) Create(ctx context.Context, w *WaitlistEntry) error {
	w.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO waitlist (id, doctor_id, patient_id, preferred_date, reason)
		VALUES ($1,$2,$3,$4,$5)`,
		w.ID, w.DoctorID, w.PatientID, DateOf(w.PreferredDate), w.Reason)
	return err
}

func (r *waitlistRepoPG) GetByDoctorAndPatient(ctx context.Context, doctorID, patientID uuid.UUID) (*WaitlistEntry, error) {
	return r.scanEntry(r.conn(ctx).QueryRow(ctx,
		`SELECT `+waitlistCols+` FROM waitlist WHERE doctor_id = $1 AND patient_id = $2`,
		doctorID, patientID))
}

func (r *waitlistRepoPG) FirstEligible(ctx context.Context, doctorID uuid.UUID, date time.Time) (*WaitlistEntry, error) {
	return r.scanEntry(r.conn(ctx).QueryRow(ctx,
		`SELECT `+waitlistCols+` FROM waitlist
		 WHERE doctor_id = $1 AND preferred_date <= $2
		 ORDER BY created_at ASC
		 LIMIT 1`,
		doctorID, DateOf(date)))
}

func (r *waitlistRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM waitlist WHERE id = $1`, id)
	return err
}

func (r *waitlistRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*WaitlistEntry, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM waitlist WHERE doctor_id = $1`, doctorID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+waitlistCols+` FROM waitlist WHERE doctor_id = $1 ORDER BY created_at ASC LIMIT $2 OFFSET $3`,
		doctorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*WaitlistEntry
	for rows.Next() {
		w, err := r.scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, w)
	}
	return items, total, nil
}
