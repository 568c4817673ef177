package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dorotheo-dental/sage/internal/appointments"
)

// Querier is the subset of pgx used by the repository, satisfied by
// *pgxpool.Pool and by pgxmock in tests.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Repository reads dentist schedules and blocked periods from postgres.
type Repository struct {
	db Querier
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("availability: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithQuerier allows injecting mocks for tests.
func NewRepositoryWithQuerier(q Querier) *Repository {
	return &Repository{db: q}
}

// WindowsForDay returns the dentist's recurring working windows on a weekday.
func (r *Repository) WindowsForDay(ctx context.Context, dentistID uuid.UUID, day time.Weekday) ([]Window, error) {
	rows, err := r.db.Query(ctx,
		`SELECT start_time, end_time FROM dentist_availability
		 WHERE dentist_id = $1 AND weekday = $2
		 ORDER BY start_time`,
		dentistID, int(day))
	if err != nil {
		return nil, fmt.Errorf("availability: windows for day: %w", err)
	}
	defer rows.Close()

	var out []Window
	for rows.Next() {
		var startStr, endStr string
		if err := rows.Scan(&startStr, &endStr); err != nil {
			return nil, fmt.Errorf("availability: scan window: %w", err)
		}
		w, ok := parseWindow(startStr, endStr)
		if !ok {
			continue
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// BlockedForDate returns the dentist's one-off blocked periods on a date.
func (r *Repository) BlockedForDate(ctx context.Context, dentistID uuid.UUID, date time.Time) ([]BlockedSlot, error) {
	rows, err := r.db.Query(ctx,
		`SELECT start_time, end_time, reason FROM blocked_time_slots
		 WHERE dentist_id = $1 AND blocked_date = $2
		 ORDER BY start_time`,
		dentistID, date)
	if err != nil {
		return nil, fmt.Errorf("availability: blocked for date: %w", err)
	}
	defer rows.Close()

	var out []BlockedSlot
	for rows.Next() {
		var (
			startStr, endStr string
			reason           string
		)
		if err := rows.Scan(&startStr, &endStr, &reason); err != nil {
			return nil, fmt.Errorf("availability: scan blocked slot: %w", err)
		}
		w, ok := parseWindow(startStr, endStr)
		if !ok {
			continue
		}
		out = append(out, BlockedSlot{DentistID: dentistID, Date: date, Window: w, Reason: reason})
	}
	return out, rows.Err()
}

func parseWindow(start, end string) (Window, bool) {
	s, ok := parseTime24(start)
	if !ok {
		return Window{}, false
	}
	e, ok := parseTime24(end)
	if !ok {
		return Window{}, false
	}
	return Window{Start: s, End: e}, true
}

func parseTime24(s string) (appointments.TimeOfDay, bool) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return appointments.TimeOfDay{}, false
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return appointments.TimeOfDay{}, false
	}
	return appointments.TimeOfDay{Hour: h, Minute: m}, true
}
