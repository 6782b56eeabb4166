package handler

import (
	"net/http"

	"clinic-booking-api/internal/account"
	"clinic-booking-api/internal/model"
)

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

const refreshCookie = "refresh_token"

// POST /doctors/signup
func (h *Handler) SignupDoctor(w http.ResponseWriter, r *http.Request) {
	reg, ok := h.signup(w, r, model.RolePractitioner)
	if !ok {
		return
	}
	doc := toDoctor(&model.Practitioner{Account: *reg.Account})
	writeJSON(w, http.StatusCreated, map[string]any{
		"doctor":   doc,
		"doctorId": reg.Account.ID,
		"email":    reg.Account.Email,
		"token":    reg.Token,
	})
}

// POST /patients/signup
func (h *Handler) SignupPatient(w http.ResponseWriter, r *http.Request) {
	reg, ok := h.signup(w, r, model.RolePatient)
	if !ok {
		return
	}
	body := map[string]any{
		"patientId": reg.Account.ID,
		"email":     reg.Account.Email,
	}
	if reg.Token != "" {
		body["token"] = reg.Token
	}
	writeJSON(w, http.StatusCreated, body)
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request, role model.Role) (*account.Registration, bool) {
	var req signupRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return nil, false
	}
	reg, err := h.accounts.Register(r.Context(), role, req.Name, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return reg, true
}

// POST /doctors/login
func (h *Handler) LoginDoctor(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.login(w, r, model.RolePractitioner)
	if !ok {
		return
	}
	doc := toDoctor(&model.Practitioner{Account: *sess.Account})
	if p, err := h.accounts.Practitioner(r.Context(), sess.Account.ID); err == nil {
		doc = toDoctor(p)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"doctor":       doc,
		"doctorId":     sess.Account.ID,
		"email":        sess.Account.Email,
		"token":        sess.Token,
		"refreshToken": sess.RefreshToken,
	})
}

// POST /patients/login
func (h *Handler) LoginPatient(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.login(w, r, model.RolePatient)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"patient":      toPatient(sess.Account),
		"patientId":    sess.Account.ID,
		"email":        sess.Account.Email,
		"token":        sess.Token,
		"refreshToken": sess.RefreshToken,
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request, role model.Role) (*account.Session, bool) {
	var req loginRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return nil, false
	}
	sess, err := h.accounts.Authenticate(r.Context(), role, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return sess, true
}

// refreshToken reads the token from the JSON body, falling back to the cookie.
func refreshToken(w http.ResponseWriter, r *http.Request) (string, error) {
	var req refreshRequest
	if err := decode(w, r, &req); err != nil {
		return "", err
	}
	if req.RefreshToken != "" {
		return req.RefreshToken, nil
	}
	if c, err := r.Cookie(refreshCookie); err == nil {
		return c.Value, nil
	}
	return "", nil
}

// POST /auth/refresh
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	raw, err := refreshToken(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	sess, err := h.accounts.Refresh(r.Context(), raw)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":        sess.Token,
		"refreshToken": sess.RefreshToken,
	})
}

// POST /auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	raw, err := refreshToken(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.accounts.Logout(r.Context(), raw); err != nil {
		writeError(w, err)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: refreshCookie, Value: "", Path: "/auth/", MaxAge: -1, HttpOnly: true})
	w.WriteHeader(http.StatusNoContent)
}
