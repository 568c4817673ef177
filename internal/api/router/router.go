package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dorotheo-dental/sage/internal/http/handlers"
	httpmiddleware "github.com/dorotheo-dental/sage/internal/http/middleware"
	"github.com/dorotheo-dental/sage/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger              *logging.Logger
	ChatHandler         *handlers.ChatHandler
	AppointmentsHandler *handlers.AppointmentsHandler
	DirectoryHandler    *handlers.DirectoryHandler
	HealthHandler       *handlers.HealthHandler
	MetricsHandler      http.Handler
	PatientAuthSecret   string
	CORSAllowedOrigins  []string

	// Chat rate limit, requests per second per IP. Zero disables limiting.
	ChatRateLimit float64
	ChatRateBurst int
}

// New creates the Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints.
	r.Group(func(public chi.Router) {
		if cfg.HealthHandler != nil {
			public.Get("/health/live", cfg.HealthHandler.Live)
			public.Get("/health/ready", cfg.HealthHandler.Ready)
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Patient API, JWT-protected.
	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(httpmiddleware.PatientJWT(cfg.PatientAuthSecret))

		if cfg.ChatHandler != nil {
			chat := v1
			if cfg.ChatRateLimit > 0 {
				chat = v1.With(httpmiddleware.RateLimit(cfg.ChatRateLimit, cfg.ChatRateBurst))
			}
			chat.Post("/chat", cfg.ChatHandler.HandleMessage)
			chat.Get("/chat/ws", cfg.ChatHandler.HandleWebSocket)
		}
		if cfg.AppointmentsHandler != nil {
			v1.Get("/appointments", cfg.AppointmentsHandler.List)
		}
		if cfg.DirectoryHandler != nil {
			v1.Get("/clinics", cfg.DirectoryHandler.ListClinics)
			v1.Get("/dentists", cfg.DirectoryHandler.ListDentists)
			v1.Get("/services", cfg.DirectoryHandler.ListServices)
		}
	})

	return r
}
