package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"clinic-booking-api/internal/booking"
)

type createAppointmentRequest struct {
	Title    string `json:"title"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	DoctorID string `json:"doctorId"`
}

// POST /patients/create-appointment
func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req createAppointmentRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	apt, err := h.bookings.Book(r.Context(), booking.BookRequest{
		Title:          req.Title,
		Date:           req.Date,
		Time:           req.Time,
		FullName:       req.FullName,
		Email:          req.Email,
		PractitionerID: req.DoctorID,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"appointment": toAppointment(apt),
		"booked":      true,
	})
}

// DELETE /doctors/delete-appointment/{appointmentId}
func (h *Handler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	if err := h.bookings.Cancel(r.Context(), chi.URLParam(r, "appointmentId")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Deleted appointment."})
}

// GET /doctors/patients-list/{doctorId}
func (h *Handler) DoctorAppointments(w http.ResponseWriter, r *http.Request) {
	apts, err := h.bookings.ListForPractitioner(r.Context(), chi.URLParam(r, "doctorId"))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]appointmentView, 0, len(apts))
	for i := range apts {
		out = append(out, toAppointment(&apts[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": out})
}
