// Package handler is the JSON-over-HTTP surface of the clinic API.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"clinic-booking-api/internal/account"
	"clinic-booking-api/internal/auth"
	"clinic-booking-api/internal/booking"
	"clinic-booking-api/internal/middleware"
	"clinic-booking-api/internal/model"
)

// Accounts is satisfied by *account.Service.
type Accounts interface {
	Register(ctx context.Context, role model.Role, name, email, password string) (*account.Registration, error)
	Authenticate(ctx context.Context, role model.Role, email, password string) (*account.Session, error)
	Refresh(ctx context.Context, raw string) (*account.Session, error)
	Logout(ctx context.Context, raw string) error
	List(ctx context.Context, role model.Role) ([]model.Account, error)
	Get(ctx context.Context, role model.Role, id string) (*model.Account, error)
	Practitioners(ctx context.Context) ([]model.Practitioner, error)
	Practitioner(ctx context.Context, id string) (*model.Practitioner, error)
	UpdatePractitioner(ctx context.Context, id, name, email string) (*model.Practitioner, error)
}

// Bookings is satisfied by *booking.Service.
type Bookings interface {
	Book(ctx context.Context, req booking.BookRequest) (*model.Appointment, error)
	Cancel(ctx context.Context, appointmentID string) error
	ListForPractitioner(ctx context.Context, practitionerID string) ([]model.Appointment, error)
}

type Deps struct {
	Accounts Accounts
	Bookings Bookings
	Issuer   *auth.Issuer
	Log      *logrus.Logger

	// RequireAuth puts booking, cancellation and profile updates behind a
	// bearer token.
	RequireAuth bool

	// optional
	Limiter     *middleware.RateLimiter
	HTTPMetrics middleware.HTTPRecorder
	Metrics     http.Handler
	Health      http.Handler
	CORSOrigins []string
}

type Handler struct {
	accounts    Accounts
	bookings    Bookings
	log         *logrus.Logger
	requireAuth bool
}

func New(d Deps) *Handler {
	return &Handler{
		accounts:    d.Accounts,
		bookings:    d.Bookings,
		log:         d.Log,
		requireAuth: d.RequireAuth,
	}
}

// NewRouter wires every route and the middleware chain:
//
//	Recovery → Logging → Metrics → CORS → Auth(optional)
//
// Signup, login and refresh are rate limited per client IP.
func NewRouter(d Deps) http.Handler {
	h := New(d)
	r := chi.NewRouter()

	r.Use(middleware.Recovery(d.Log))
	r.Use(middleware.Logging(d.Log))
	if d.HTTPMetrics != nil {
		r.Use(middleware.Metrics(d.HTTPMetrics))
	}
	if len(d.CORSOrigins) > 0 {
		r.Use(middleware.CORS(d.CORSOrigins))
	}
	r.Use(middleware.Auth(d.Issuer, false))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, model.NotFound("Could not find this route."))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"message": msgMethodNotAllowed})
	})

	if d.Health != nil {
		r.Method(http.MethodGet, "/health", d.Health)
	}
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	var limit, guard []func(http.Handler) http.Handler
	if d.Limiter != nil {
		limit = append(limit, d.Limiter.Limit)
	}
	if d.RequireAuth {
		guard = append(guard, middleware.Auth(d.Issuer, true))
	}

	r.Route("/doctors", func(r chi.Router) {
		r.Get("/", h.ListDoctors)
		r.With(limit...).Post("/signup", h.SignupDoctor)
		r.With(limit...).Post("/login", h.LoginDoctor)
		r.Get("/patients-list/{doctorId}", h.DoctorAppointments)
		r.With(guard...).Delete("/delete-appointment/{appointmentId}", h.CancelAppointment)
		r.Get("/{id}", h.GetDoctor)
		r.With(guard...).Patch("/{id}", h.UpdateDoctor)
	})

	r.Route("/patients", func(r chi.Router) {
		r.Get("/", h.ListPatients)
		r.With(limit...).Post("/signup", h.SignupPatient)
		r.With(limit...).Post("/login", h.LoginPatient)
		r.With(guard...).Post("/create-appointment", h.CreateAppointment)
		r.Get("/{id}", h.GetPatient)
	})

	r.Route("/auth", func(r chi.Router) {
		r.With(limit...).Post("/refresh", h.Refresh)
		r.Post("/logout", h.Logout)
	})

	return r
}
