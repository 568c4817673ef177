package appointments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgx used by the repository, satisfied by
// *pgxpool.Pool and by pgxmock in tests.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository provides persistence for appointments.
type Repository struct {
	db Querier
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithQuerier allows injecting mocks for tests.
func NewRepositoryWithQuerier(q Querier) *Repository {
	return &Repository{db: q}
}

const listColumns = `a.id, a.patient_id, a.dentist_id, a.service_id, a.clinic_id,
	a.scheduled_date, a.scheduled_time, a.status,
	a.reschedule_date, a.reschedule_time, a.cancel_reason, a.cancel_requested_at,
	a.created_at, a.updated_at,
	d.first_name || ' ' || d.last_name, s.name, c.name`

const listJoins = `FROM appointments a
	JOIN dentists d ON d.id = a.dentist_id
	JOIN services s ON s.id = a.service_id
	JOIN clinics c ON c.id = a.clinic_id`

// Create inserts a new appointment row.
func (r *Repository) Create(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	_, err := r.db.Exec(ctx,
		`INSERT INTO appointments
			(id, patient_id, dentist_id, service_id, clinic_id,
			 scheduled_date, scheduled_time, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.PatientID, a.DentistID, a.ServiceID, a.ClinicID,
		a.Date, a.Time.Format24(), string(a.Status), a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("appointments: insert: %w", err)
	}
	return nil
}

// ListForPatient returns the patient's appointments in the given statuses,
// soonest first, with display names joined in.
func (r *Repository) ListForPatient(ctx context.Context, patientID uuid.UUID, statuses []Status) ([]Appointment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+listColumns+` `+listJoins+`
		 WHERE a.patient_id = $1 AND a.status = ANY($2)
		 ORDER BY a.scheduled_date, a.scheduled_time`,
		patientID, statusStrings(statuses))
	if err != nil {
		return nil, fmt.Errorf("appointments: list for patient: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// HasPendingRequest reports whether the patient has any appointment awaiting
// staff action. This is the global per-patient lock.
func (r *Repository) HasPendingRequest(ctx context.Context, patientID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE patient_id = $1 AND status = ANY($2))`,
		patientID, statusStrings(PendingRequestStatuses)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("appointments: pending request check: %w", err)
	}
	return exists, nil
}

// CountActiveInWeek counts the patient's confirmed/pending appointments with
// a date in [weekStart, weekEnd), optionally excluding one appointment.
func (r *Repository) CountActiveInWeek(ctx context.Context, patientID uuid.UUID, weekStart, weekEnd time.Time, exclude uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM appointments
		 WHERE patient_id = $1 AND status = ANY($2)
		   AND scheduled_date >= $3 AND scheduled_date < $4
		   AND id <> $5`,
		patientID, statusStrings(ActiveStatuses), weekStart, weekEnd, exclude).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("appointments: weekly count: %w", err)
	}
	return n, nil
}

// DentistSlotTaken reports whether the dentist already has an active
// appointment at the exact slot, optionally excluding one appointment.
func (r *Repository) DentistSlotTaken(ctx context.Context, dentistID uuid.UUID, date time.Time, t TimeOfDay, exclude uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE dentist_id = $1 AND scheduled_date = $2 AND scheduled_time = $3
			  AND status = ANY($4) AND id <> $5)`,
		dentistID, date, t.Format24(), statusStrings(ActiveStatuses), exclude).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("appointments: dentist slot check: %w", err)
	}
	return exists, nil
}

// PatientSlotTaken reports whether the patient already has an active
// appointment at the exact slot.
func (r *Repository) PatientSlotTaken(ctx context.Context, patientID uuid.UUID, date time.Time, t TimeOfDay) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE patient_id = $1 AND scheduled_date = $2 AND scheduled_time = $3
			  AND status = ANY($4))`,
		patientID, date, t.Format24(), statusStrings(ActiveStatuses)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("appointments: patient slot check: %w", err)
	}
	return exists, nil
}

// DentistDayTimes returns the start times of the dentist's active
// appointments on the given date, for slot derivation.
func (r *Repository) DentistDayTimes(ctx context.Context, dentistID uuid.UUID, date time.Time) ([]TimeOfDay, error) {
	rows, err := r.db.Query(ctx,
		`SELECT scheduled_time FROM appointments
		 WHERE dentist_id = $1 AND scheduled_date = $2 AND status = ANY($3)
		 ORDER BY scheduled_time`,
		dentistID, date, statusStrings(ActiveStatuses))
	if err != nil {
		return nil, fmt.Errorf("appointments: dentist day times: %w", err)
	}
	defer rows.Close()

	var out []TimeOfDay
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("appointments: scan time: %w", err)
		}
		if t, ok := parseTime24(s); ok {
			out = append(out, t)
		}
	}
	return out, rows.Err()
}

// UpdateStatus moves an appointment between statuses, guarded by the current
// status so concurrent movers cannot both win.
func (r *Repository) UpdateStatus(ctx context.Context, id string, from, to Status) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE appointments SET status = $1, updated_at = NOW()
		 WHERE id = $2 AND status = $3`,
		string(to), id, string(from))
	if err != nil {
		return false, fmt.Errorf("appointments: update status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// StageReschedule atomically stores the requested new slot and moves the
// appointment into reschedule_requested, guarded by the current status.
func (r *Repository) StageReschedule(ctx context.Context, id string, from Status, newDate time.Time, newTime TimeOfDay) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE appointments
		 SET status = $1, reschedule_date = $2, reschedule_time = $3, updated_at = NOW()
		 WHERE id = $4 AND status = $5`,
		string(StatusRescheduleRequested), newDate, newTime.Format24(), id, string(from))
	if err != nil {
		return false, fmt.Errorf("appointments: stage reschedule: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// StageCancel atomically stores the cancellation reason and moves the
// appointment into cancel_requested, guarded by the current status.
func (r *Repository) StageCancel(ctx context.Context, id string, from Status, reason string, requestedAt time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE appointments
		 SET status = $1, cancel_reason = $2, cancel_requested_at = $3, updated_at = NOW()
		 WHERE id = $4 AND status = $5`,
		string(StatusCancelRequested), reason, requestedAt, id, string(from))
	if err != nil {
		return false, fmt.Errorf("appointments: stage cancel: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// RecordTransition appends an audit row for a committed status change.
func (r *Repository) RecordTransition(ctx context.Context, id string, from, to Status, actor, reason string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO appointment_transitions
			(id, appointment_id, from_status, to_status, actor, reason, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		uuid.New(), id, string(from), string(to), actor, reason)
	if err != nil {
		return fmt.Errorf("appointments: record transition: %w", err)
	}
	return nil
}

func statusStrings(statuses []Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func scanAppointment(rows pgx.Rows) (Appointment, error) {
	var (
		a          Appointment
		timeStr    string
		reschedStr *string
	)
	err := rows.Scan(&a.ID, &a.PatientID, &a.DentistID, &a.ServiceID, &a.ClinicID,
		&a.Date, &timeStr, &a.Status,
		&a.RescheduleDate, &reschedStr, &a.CancelReason, &a.CancelRequestedAt,
		&a.CreatedAt, &a.UpdatedAt,
		&a.DentistName, &a.ServiceName, &a.ClinicName)
	if err != nil {
		return Appointment{}, fmt.Errorf("appointments: scan: %w", err)
	}
	if t, ok := parseTime24(timeStr); ok {
		a.Time = t
	}
	if reschedStr != nil {
		if t, ok := parseTime24(*reschedStr); ok {
			a.RescheduleTime = &t
		}
	}
	return a, nil
}

// parseTime24 reads "15:04" or "15:04:05" from the time column.
func parseTime24(s string) (TimeOfDay, bool) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return TimeOfDay{}, false
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return TimeOfDay{}, false
	}
	return TimeOfDay{Hour: h, Minute: m}, true
}
