package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgx used by the store, satisfied by *pgxpool.Pool
// and by pgxmock in tests.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store reads reference data from postgres.
type Store struct {
	db Querier
}

// NewStore creates a directory store backed by a pgx pool.
func NewStore(pool *pgxpool.Pool) *Store {
	if pool == nil {
		panic("directory: pgx pool required")
	}
	return &Store{db: pool}
}

// NewStoreWithQuerier allows injecting mocks for tests.
func NewStoreWithQuerier(q Querier) *Store {
	return &Store{db: q}
}

// ListClinics returns all branches ordered by name.
func (s *Store) ListClinics(ctx context.Context) ([]Clinic, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, name, address, phone FROM clinics ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("directory: list clinics: %w", err)
	}
	defer rows.Close()

	var out []Clinic
	for rows.Next() {
		var c Clinic
		if err := rows.Scan(&c.ID, &c.Name, &c.Address, &c.Phone); err != nil {
			return nil, fmt.Errorf("directory: scan clinic: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListDentists returns all practitioners with the dentist role.
func (s *Store) ListDentists(ctx context.Context) ([]Dentist, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, first_name, last_name, role FROM dentists WHERE role = $1 ORDER BY last_name`,
		RoleDentist)
	if err != nil {
		return nil, fmt.Errorf("directory: list dentists: %w", err)
	}
	defer rows.Close()

	var out []Dentist
	for rows.Next() {
		var d Dentist
		if err := rows.Scan(&d.ID, &d.FirstName, &d.LastName, &d.Role); err != nil {
			return nil, fmt.Errorf("directory: scan dentist: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetPatient returns the patient with the given ID, or pgx.ErrNoRows.
func (s *Store) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := s.db.QueryRow(ctx,
		`SELECT id, first_name, last_name, email, phone, preferred_language
		 FROM patients WHERE id = $1`, id)
	return scanPatient(row)
}

// GetPatientByEmail looks a patient up by email, case-insensitively.
func (s *Store) GetPatientByEmail(ctx context.Context, email string) (*Patient, error) {
	row := s.db.QueryRow(ctx,
		`SELECT id, first_name, last_name, email, phone, preferred_language
		 FROM patients WHERE lower(email) = lower($1)`, email)
	return scanPatient(row)
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	if err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.Phone, &p.PreferredLanguage); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("directory: scan patient: %w", err)
	}
	return &p, nil
}

// ListServices returns all bookable procedures ordered by name.
func (s *Store) ListServices(ctx context.Context) ([]Service, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, name, description, duration_minutes, price_cents FROM services ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("directory: list services: %w", err)
	}
	defer rows.Close()

	var out []Service
	for rows.Next() {
		var sv Service
		if err := rows.Scan(&sv.ID, &sv.Name, &sv.Description, &sv.DurationMinutes, &sv.PriceCents); err != nil {
			return nil, fmt.Errorf("directory: scan service: %w", err)
		}
		out = append(out, sv)
	}
	return out, rows.Err()
}
