package handlers

import (
	"context"
	"net/http"

	"github.com/dorotheo-dental/sage/internal/directory"
	"github.com/dorotheo-dental/sage/pkg/logging"
)

// DirectoryReader lists the clinic's reference data.
type DirectoryReader interface {
	ListClinics(ctx context.Context) ([]directory.Clinic, error)
	ListDentists(ctx context.Context) ([]directory.Dentist, error)
	ListServices(ctx context.Context) ([]directory.Service, error)
}

// DirectoryHandler serves branches, dentists, and services so the app can
// render pickers without a chat round-trip.
type DirectoryHandler struct {
	dir    DirectoryReader
	logger *logging.Logger
}

// NewDirectoryHandler creates a directory handler.
func NewDirectoryHandler(dir DirectoryReader, logger *logging.Logger) *DirectoryHandler {
	if dir == nil {
		panic("handlers: directory reader required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &DirectoryHandler{dir: dir, logger: logger}
}

// ListClinics returns all branches.
func (h *DirectoryHandler) ListClinics(w http.ResponseWriter, r *http.Request) {
	clinics, err := h.dir.ListClinics(r.Context())
	if err != nil {
		h.logger.Error("directory: list clinics failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load clinics")
		return
	}

	type view struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Address string `json:"address"`
		Phone   string `json:"phone"`
	}
	out := make([]view, 0, len(clinics))
	for _, c := range clinics {
		out = append(out, view{ID: c.ID.String(), Name: c.Name, Address: c.Address, Phone: c.Phone})
	}
	writeJSON(w, http.StatusOK, map[string]any{"clinics": out})
}

// ListDentists returns all bookable practitioners.
func (h *DirectoryHandler) ListDentists(w http.ResponseWriter, r *http.Request) {
	dentists, err := h.dir.ListDentists(r.Context())
	if err != nil {
		h.logger.Error("directory: list dentists failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load dentists")
		return
	}

	type view struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	out := make([]view, 0, len(dentists))
	for _, d := range dentists {
		out = append(out, view{ID: d.ID.String(), Name: d.DisplayName()})
	}
	writeJSON(w, http.StatusOK, map[string]any{"dentists": out})
}

// ListServices returns all bookable procedures.
func (h *DirectoryHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.dir.ListServices(r.Context())
	if err != nil {
		h.logger.Error("directory: list services failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load services")
		return
	}

	type view struct {
		ID              string `json:"id"`
		Name            string `json:"name"`
		Description     string `json:"description,omitempty"`
		DurationMinutes int    `json:"duration_minutes"`
		PriceCents      int    `json:"price_cents"`
	}
	out := make([]view, 0, len(services))
	for _, s := range services {
		out = append(out, view{
			ID:              s.ID.String(),
			Name:            s.Name,
			Description:     s.Description,
			DurationMinutes: s.DurationMinutes,
			PriceCents:      s.PriceCents,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"services": out})
}
