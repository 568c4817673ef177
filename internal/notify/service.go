package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/dorotheo-dental/sage/internal/appointments"
	"github.com/dorotheo-dental/sage/internal/directory"
	"github.com/dorotheo-dental/sage/pkg/logging"
)

// Service emails booking events to the patient and the front desk. Flow
// controllers treat every method as best-effort: a send failure is logged by
// the caller and never blocks the chat reply.
type Service struct {
	email     EmailSender
	staff     []string
	fromLabel string
	logger    *logging.Logger
}

// NewService creates a notification service. staff lists front-desk addresses
// that receive a copy of every event; it may be empty.
func NewService(email EmailSender, staff []string, logger *logging.Logger) *Service {
	if email == nil {
		panic("notify: email sender is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		email:     email,
		staff:     staff,
		fromLabel: "Sage at Dorotheo Dental Clinic",
		logger:    logger,
	}
}

// BookingConfirmed notifies the patient and staff that an appointment was
// booked through chat.
func (s *Service) BookingConfirmed(ctx context.Context, patient *directory.Patient, appt *appointments.Appointment) error {
	subject := fmt.Sprintf("Appointment Confirmed - %s", patient.FullName())
	body := fmt.Sprintf(`Your appointment is confirmed!

Patient: %s
Service: %s
Dentist: %s
Branch: %s
Date: %s
Time: %s

See you there. If you need to change this appointment, just message us in the app.

— %s`, patient.FullName(), appt.ServiceName, appt.DentistName, appt.ClinicName,
		appt.DateString(), appt.Time.String(), s.fromLabel)

	html := s.eventHTML("Appointment Confirmed", "#10b981", patient, appt, [][2]string{
		{"Date", appt.DateString()},
		{"Time", appt.Time.String()},
	}, "See you there. Message us in the app if anything changes.")

	return s.deliver(ctx, patient, subject, body, html, "booking_confirmed")
}

// RescheduleRequested notifies staff that a patient asked to move an
// appointment, and acknowledges the request to the patient. The original slot
// stays booked until staff approve.
func (s *Service) RescheduleRequested(ctx context.Context, patient *directory.Patient, appt *appointments.Appointment) error {
	newDate, newTime := "-", "-"
	if appt.RescheduleDate != nil {
		newDate = appt.RescheduleDate.Format("January 2, 2006")
	}
	if appt.RescheduleTime != nil {
		newTime = appt.RescheduleTime.String()
	}

	subject := fmt.Sprintf("Reschedule Request - %s", patient.FullName())
	body := fmt.Sprintf(`%s asked to move an appointment.

Current: %s
Requested: %s at %s

The original slot stays booked until staff approve the change.

— %s`, patient.FullName(), appt.Describe(), newDate, newTime, s.fromLabel)

	html := s.eventHTML("Reschedule Request", "#f59e0b", patient, appt, [][2]string{
		{"Current", fmt.Sprintf("%s at %s", appt.DateString(), appt.Time.String())},
		{"Requested", fmt.Sprintf("%s at %s", newDate, newTime)},
	}, "Please review this request in the staff dashboard.")

	return s.deliver(ctx, patient, subject, body, html, "reschedule_requested")
}

// CancelRequested notifies staff that a patient asked to cancel an
// appointment, and acknowledges the request to the patient.
func (s *Service) CancelRequested(ctx context.Context, patient *directory.Patient, appt *appointments.Appointment) error {
	subject := fmt.Sprintf("Cancellation Request - %s", patient.FullName())
	body := fmt.Sprintf(`%s asked to cancel an appointment.

Appointment: %s
Reason: %s

The slot stays booked until staff approve the cancellation.

— %s`, patient.FullName(), appt.Describe(), orDash(appt.CancelReason), s.fromLabel)

	html := s.eventHTML("Cancellation Request", "#ef4444", patient, appt, [][2]string{
		{"Appointment", fmt.Sprintf("%s at %s", appt.DateString(), appt.Time.String())},
		{"Reason", orDash(appt.CancelReason)},
	}, "Please review this request in the staff dashboard.")

	return s.deliver(ctx, patient, subject, body, html, "cancel_requested")
}

// deliver fans the message out to the patient and every staff recipient,
// collecting failures so one bad address doesn't hide the rest.
func (s *Service) deliver(ctx context.Context, patient *directory.Patient, subject, body, html, event string) error {
	var errs []error

	if patient.Email != "" {
		msg := EmailMessage{To: patient.Email, ToName: patient.FullName(), Subject: subject, Body: body, HTML: html}
		if err := s.email.Send(ctx, msg); err != nil {
			s.logger.Error("notify: patient email failed", "error", err, "event", event, "to", patient.Email)
			errs = append(errs, err)
		} else {
			s.logger.Info("notify: patient email sent", "event", event, "to", patient.Email)
		}
	}

	for _, recipient := range s.staff {
		msg := EmailMessage{To: recipient, Subject: subject, Body: body, HTML: html}
		if err := s.email.Send(ctx, msg); err != nil {
			s.logger.Error("notify: staff email failed", "error", err, "event", event, "to", recipient)
			errs = append(errs, err)
		} else {
			s.logger.Info("notify: staff email sent", "event", event, "to", recipient)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d notification(s) failed", len(errs))
	}
	return nil
}

func (s *Service) eventHTML(title, accent string, patient *directory.Patient, appt *appointments.Appointment, extra [][2]string, footer string) string {
	rows := [][2]string{
		{"Patient", patient.FullName()},
		{"Service", appt.ServiceName},
		{"Dentist", appt.DentistName},
		{"Branch", appt.ClinicName},
	}
	rows = append(rows, extra...)

	var b strings.Builder
	fmt.Fprintf(&b, `<div style="font-family: sans-serif; max-width: 600px;">`)
	fmt.Fprintf(&b, `<h2 style="color: %s;">%s</h2>`, accent, title)
	fmt.Fprintf(&b, `<table style="border-collapse: collapse; margin: 20px 0;">`)
	for _, row := range rows {
		fmt.Fprintf(&b, `<tr><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;"><strong>%s:</strong></td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">%s</td></tr>`, row[0], row[1])
	}
	fmt.Fprintf(&b, `</table>`)
	fmt.Fprintf(&b, `<p>%s</p>`, footer)
	fmt.Fprintf(&b, `<p style="color: #6b7280; font-size: 12px; margin-top: 20px;">— %s</p>`, s.fromLabel)
	fmt.Fprintf(&b, `</div>`)
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
