package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"clinic-booking-api/internal/middleware"
	"clinic-booking-api/internal/model"
)

type updateDoctorRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// GET /doctors
func (h *Handler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	ps, err := h.accounts.Practitioners(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]doctorView, 0, len(ps))
	for i := range ps {
		out = append(out, toDoctor(&ps[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"doctors": out})
}

// GET /doctors/{id}
func (h *Handler) GetDoctor(w http.ResponseWriter, r *http.Request) {
	p, err := h.accounts.Practitioner(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"doctor": toDoctor(p)})
}

// PATCH /doctors/{id}
func (h *Handler) UpdateDoctor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if h.requireAuth {
		c, ok := middleware.ClaimsFromContext(r.Context())
		if !ok || c.Role != model.RolePractitioner || c.UserID != id {
			writeError(w, model.Forbidden("You are not allowed to update this doctor."))
			return
		}
	}

	var req updateDoctorRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	p, err := h.accounts.UpdatePractitioner(r.Context(), id, req.Name, req.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"doctor": toDoctor(p)})
}

// GET /patients
func (h *Handler) ListPatients(w http.ResponseWriter, r *http.Request) {
	accts, err := h.accounts.List(r.Context(), model.RolePatient)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]patientView, 0, len(accts))
	for i := range accts {
		out = append(out, toPatient(&accts[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"patients": out})
}

// GET /patients/{id}
func (h *Handler) GetPatient(w http.ResponseWriter, r *http.Request) {
	a, err := h.accounts.Get(r.Context(), model.RolePatient, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"patient": toPatient(a)})
}
