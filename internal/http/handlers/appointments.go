package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/dorotheo-dental/sage/internal/appointments"
	"github.com/dorotheo-dental/sage/internal/http/middleware"
	"github.com/dorotheo-dental/sage/pkg/logging"
)

// AppointmentLister reads a patient's appointments.
type AppointmentLister interface {
	ListForPatient(ctx context.Context, patientID uuid.UUID, statuses []appointments.Status) ([]appointments.Appointment, error)
}

// AppointmentsHandler serves the patient's appointment list for the app's
// "My Appointments" screen.
type AppointmentsHandler struct {
	appts  AppointmentLister
	logger *logging.Logger
}

// NewAppointmentsHandler creates an appointments handler.
func NewAppointmentsHandler(appts AppointmentLister, logger *logging.Logger) *AppointmentsHandler {
	if appts == nil {
		panic("handlers: appointment lister required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AppointmentsHandler{appts: appts, logger: logger}
}

// AppointmentView is the JSON shape for one appointment.
type AppointmentView struct {
	ID      string `json:"id"`
	Service string `json:"service"`
	Dentist string `json:"dentist"`
	Branch  string `json:"branch"`
	Date    string `json:"date"` // "January 2, 2006"
	Time    string `json:"time"` // "3:04 PM"
	Status  string `json:"status"`
}

// List returns the authenticated patient's non-terminal appointments, soonest
// first.
func (h *AppointmentsHandler) List(w http.ResponseWriter, r *http.Request) {
	patientID, ok := middleware.PatientIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	statuses := []appointments.Status{
		appointments.StatusConfirmed,
		appointments.StatusPending,
		appointments.StatusRescheduleRequested,
		appointments.StatusCancelRequested,
	}
	list, err := h.appts.ListForPatient(r.Context(), patientID, statuses)
	if err != nil {
		h.logger.Error("appointments: list failed", "error", err, "patient_id", patientID)
		writeError(w, http.StatusInternalServerError, "failed to load appointments")
		return
	}

	views := make([]AppointmentView, 0, len(list))
	for _, a := range list {
		views = append(views, AppointmentView{
			ID:      a.ID.String(),
			Service: a.ServiceName,
			Dentist: a.DentistName,
			Branch:  a.ClinicName,
			Date:    a.DateString(),
			Time:    a.Time.String(),
			Status:  string(a.Status),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": views})
}
