// Package directory holds the clinic's reference data: branches, dentists,
// services, and patients. The conversational engine only ever reads these;
// staff tooling writes them.
package directory

import (
	"strings"

	"github.com/google/uuid"
)

// Clinic is one branch of the practice.
type Clinic struct {
	ID      uuid.UUID
	Name    string
	Address string
	Phone   string
}

// Dentist is a practitioner. Only rows with Role == RoleDentist are bookable.
type Dentist struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	Role      string
}

// RoleDentist marks a bookable practitioner.
const RoleDentist = "dentist"

// FullName renders "First Last" for display and quick replies.
func (d Dentist) FullName() string {
	return strings.TrimSpace(d.FirstName + " " + d.LastName)
}

// DisplayName renders the honorific form used in chat replies.
func (d Dentist) DisplayName() string {
	return "Dr. " + d.FullName()
}

// Service is a bookable procedure.
type Service struct {
	ID              uuid.UUID
	Name            string
	Description     string
	DurationMinutes int
	PriceCents      int
}

// Patient is an authenticated chat user.
type Patient struct {
	ID                uuid.UUID
	FirstName         string
	LastName          string
	Email             string
	Phone             string
	PreferredLanguage string
}

// FullName renders "First Last".
func (p Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}
